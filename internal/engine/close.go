package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tradebridge/saxogw/internal/domain"
)

// executeClose flattens any open position on the instrument and cancels its
// resting orders. Both halves always run: a missing position must not leave
// stale bracket orders behind.
func (e *Engine) executeClose(ctx context.Context, sig *domain.TradeSignal, token, accountKey string) (*domain.ExecutionResult, error) {
	result := &domain.ExecutionResult{}

	closeErr := e.closePosition(ctx, sig, token, accountKey, result)
	cancelErr := e.cancelOpenOrders(ctx, sig, token, accountKey, result)

	if closeErr != nil {
		return result, closeErr
	}
	return result, cancelErr
}

// closePosition fetches positions, finds the one on the signal's instrument
// and submits a market order in the opposite direction for its full size.
func (e *Engine) closePosition(ctx context.Context, sig *domain.TradeSignal, token, accountKey string, result *domain.ExecutionResult) error {
	positions, err := e.broker.ListPositions(ctx, token, accountKey)
	if err != nil {
		return errors.Wrap(err, "list positions")
	}

	var found *domain.Position
	for i := range positions {
		if positions[i].Uic == sig.Uic && !positions[i].SignedQuantity.IsZero() {
			found = &positions[i]
			break
		}
	}
	if found == nil {
		result.Closed = &domain.CloseSummary{Message: "no position"}
		return nil
	}

	qty := found.SignedQuantity.Abs()
	side := found.Direction().Opposite()
	ack, err := e.broker.PlaceOrder(ctx, token, &domain.OrderRequest{
		AccountKey: accountKey,
		Uic:        sig.Uic,
		AssetType:  sig.AssetType,
		Side:       side,
		Kind:       domain.KindMarket,
		Quantity:   qty,
	})
	if err != nil {
		return errors.Wrap(err, "closing order")
	}
	result.Closed = &domain.CloseSummary{
		Ack:      ack,
		Side:     side,
		Quantity: &qty,
	}
	log.WithFields(logrus.Fields{"uic": sig.Uic, "side": side, "qty": qty}).Info("position closed")
	return nil
}

// cancelOpenOrders deletes every resting order on the signal's instrument.
// Each cancellation is attempted independently; one failure does not block
// the rest.
func (e *Engine) cancelOpenOrders(ctx context.Context, sig *domain.TradeSignal, token, accountKey string, result *domain.ExecutionResult) error {
	orders, err := e.broker.ListOpenOrders(ctx, token, accountKey)
	if err != nil {
		return errors.Wrap(err, "list open orders")
	}

	summary := &domain.CancelSummary{Orders: []domain.CancelOutcome{}}
	for _, o := range orders {
		if o.Uic != sig.Uic {
			continue
		}
		outcome := domain.CancelOutcome{OrderID: o.OrderID}
		if err := e.broker.DeleteOrder(ctx, token, o.OrderID, accountKey); err != nil {
			outcome.Error = err.Error()
			log.WithField("order", o.OrderID).WithError(err).Warn("cancel failed")
		}
		summary.Orders = append(summary.Orders, outcome)
	}
	result.Cancelled = summary
	return nil
}
