package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tradebridge/saxogw/internal/domain"
)

var log = logrus.WithField("component", "engine")

// Broker is the brokerage surface the engine drives. Satisfied by
// *broker.Client; tests substitute a recording fake.
type Broker interface {
	PlaceOrder(ctx context.Context, token string, req *domain.OrderRequest) (*domain.OrderAck, error)
	ListPositions(ctx context.Context, token, accountKey string) ([]domain.Position, error)
	ListOpenOrders(ctx context.Context, token, accountKey string) ([]domain.OpenOrder, error)
	DeleteOrder(ctx context.Context, token, orderID, accountKey string) error
}

// Options tunes the engine's position polling: the wait is bounded, and a
// timeout is reported on the affected leg instead of being ignored.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Engine turns one TradeSignal into brokerage orders. It owns no state
// across invocations; every Execute call is fully determined by its inputs.
type Engine struct {
	broker       Broker
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func New(broker Broker, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 3 * time.Second
	}
	return &Engine{
		broker:       broker,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
	}
}

// Execute dispatches on the signal action. All broker calls are strictly
// sequential; later steps depend on earlier outcomes. On error the partial
// result is still returned so the caller can see what was already done.
func (e *Engine) Execute(ctx context.Context, sig *domain.TradeSignal, token, accountKey string) (*domain.ExecutionResult, error) {
	switch sig.Action {
	case domain.ActionClose:
		return e.executeClose(ctx, sig, token, accountKey)
	case domain.ActionBuy, domain.ActionSell:
		return e.executeEntry(ctx, sig, token, accountKey)
	default:
		return nil, domain.NewInputError("unsupported action %q", sig.Action)
	}
}

// executeEntry submits the primary market order and then each requested
// bracket leg. Entry failure is fatal: brackets without a confirmed entry
// could create unintended directional exposure. Bracket failures are
// isolated and recorded, never rolled back, because each leg is an
// independent brokerage order.
func (e *Engine) executeEntry(ctx context.Context, sig *domain.TradeSignal, token, accountKey string) (*domain.ExecutionResult, error) {
	side, ok := sig.EntrySide()
	if !ok {
		return nil, domain.NewInputError("action %q has no entry side", sig.Action)
	}
	qty := sig.EffectiveQuantity()

	entry := &domain.OrderRequest{
		AccountKey: accountKey,
		Uic:        sig.Uic,
		AssetType:  sig.AssetType,
		Side:       side,
		Kind:       domain.KindMarket,
		Quantity:   qty,
	}
	ack, err := e.broker.PlaceOrder(ctx, token, entry)
	if err != nil {
		return nil, errors.Wrap(err, "entry order")
	}
	result := &domain.ExecutionResult{Entry: ack}

	if !sig.WantsBrackets() {
		return result, nil
	}

	// The trailing leg anchors on the filled position. Wait for the fill to
	// register before submitting it; a timeout is reported on the leg.
	var positionReady error
	if sig.Trailing != nil {
		positionReady = e.waitForPosition(ctx, token, accountKey, sig.Uic)
	}

	bracketSide := side.Opposite()

	if sig.StopLoss != nil {
		result.StopLoss = e.submitLeg(ctx, token, &domain.OrderRequest{
			AccountKey: accountKey,
			Uic:        sig.Uic,
			AssetType:  sig.AssetType,
			Side:       bracketSide,
			Kind:       domain.KindStop,
			Quantity:   qty,
			Price:      sig.StopLoss,
			Duration:   domain.DurationGoodTillCancel,
		})
	}
	if sig.TakeProfit != nil {
		result.TakeProfit = e.submitLeg(ctx, token, &domain.OrderRequest{
			AccountKey: accountKey,
			Uic:        sig.Uic,
			AssetType:  sig.AssetType,
			Side:       bracketSide,
			Kind:       domain.KindLimit,
			Quantity:   qty,
			Price:      sig.TakeProfit,
			Duration:   domain.DurationGoodTillCancel,
		})
	}
	if sig.Trailing != nil {
		if positionReady != nil {
			result.TrailingStop = &domain.LegOutcome{Error: positionReady.Error()}
		} else {
			result.TrailingStop = e.submitLeg(ctx, token, &domain.OrderRequest{
				AccountKey: accountKey,
				Uic:        sig.Uic,
				AssetType:  sig.AssetType,
				Side:       bracketSide,
				Kind:       domain.KindTrailingStop,
				Quantity:   qty,
				Trailing:   sig.Trailing,
				Duration:   domain.DurationGoodTillCancel,
			})
		}
	}

	if result.PartialFailure() {
		log.WithField("uic", sig.Uic).Warn("entry filled but at least one bracket leg failed; position may be unprotected")
	}
	return result, nil
}

// submitLeg places one bracket leg and converts failure into a recorded
// outcome instead of an error.
func (e *Engine) submitLeg(ctx context.Context, token string, req *domain.OrderRequest) *domain.LegOutcome {
	ack, err := e.broker.PlaceOrder(ctx, token, req)
	if err != nil {
		log.WithFields(logrus.Fields{"uic": req.Uic, "type": req.Kind}).WithError(err).Warn("bracket leg rejected")
		return &domain.LegOutcome{Error: err.Error()}
	}
	return &domain.LegOutcome{Ack: ack}
}

// waitForPosition polls the position endpoint until the instrument shows up
// or the timeout elapses. The fill usually registers within one interval.
func (e *Engine) waitForPosition(ctx context.Context, token, accountKey string, uic int) error {
	deadline := time.Now().Add(e.pollTimeout)
	for {
		positions, err := e.broker.ListPositions(ctx, token, accountKey)
		if err == nil {
			for _, p := range positions {
				if p.Uic == uic && !p.SignedQuantity.IsZero() {
					return nil
				}
			}
		}
		if time.Now().After(deadline) {
			return errors.Errorf("position for uic %d did not register within %s", uic, e.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}
