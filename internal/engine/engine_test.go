package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradebridge/saxogw/internal/domain"
)

// fakeBroker records every call and answers from scripted responses.
type fakeBroker struct {
	placed    []*domain.OrderRequest
	deleted   []string
	positions []domain.Position
	orders    []domain.OpenOrder

	// failOrder rejects the n-th PlaceOrder call (1-based) with failErr.
	failOrder int
	failErr   error

	listPositionsErr  error
	listOpenOrdersErr error
	deleteErrs        map[string]error
}

func (f *fakeBroker) PlaceOrder(_ context.Context, _ string, req *domain.OrderRequest) (*domain.OrderAck, error) {
	f.placed = append(f.placed, req)
	if f.failOrder == len(f.placed) {
		return nil, f.failErr
	}
	return &domain.OrderAck{OrderID: fmt.Sprintf("ord-%d", len(f.placed))}, nil
}

func (f *fakeBroker) ListPositions(context.Context, string, string) ([]domain.Position, error) {
	if f.listPositionsErr != nil {
		return nil, f.listPositionsErr
	}
	return f.positions, nil
}

func (f *fakeBroker) ListOpenOrders(context.Context, string, string) ([]domain.OpenOrder, error) {
	if f.listOpenOrdersErr != nil {
		return nil, f.listOpenOrdersErr
	}
	return f.orders, nil
}

func (f *fakeBroker) DeleteOrder(_ context.Context, _ string, orderID, _ string) error {
	f.deleted = append(f.deleted, orderID)
	if err, ok := f.deleteErrs[orderID]; ok {
		return err
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fastEngine(b Broker) *Engine {
	return New(b, Options{PollInterval: time.Millisecond, PollTimeout: 10 * time.Millisecond})
}

func TestExecuteEntryOnly(t *testing.T) {
	b := &fakeBroker{}
	e := fastEngine(b)

	sig := &domain.TradeSignal{Action: domain.ActionBuy, Uic: 4910, AssetType: "CfdOnIndex", Quantity: dec("2")}
	result, err := e.Execute(context.Background(), sig, "tok", "acct")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(b.placed) != 1 {
		t.Fatalf("expected one order, got %d", len(b.placed))
	}
	entry := b.placed[0]
	if entry.Side != domain.SideBuy || entry.Kind != domain.KindMarket || !entry.Quantity.Equal(dec("2")) {
		t.Fatalf("entry order got=%+v", entry)
	}
	if entry.AccountKey != "acct" || entry.Uic != 4910 {
		t.Fatalf("entry order routing got=%+v", entry)
	}
	if result.Entry == nil || result.Entry.OrderID == "" {
		t.Fatalf("result missing entry ack: %+v", result)
	}
	if result.StopLoss != nil || result.TakeProfit != nil || result.TrailingStop != nil {
		t.Fatalf("no bracket legs requested but result has some: %+v", result)
	}
}

func TestExecuteEntryFailureIsFatal(t *testing.T) {
	b := &fakeBroker{failOrder: 1, failErr: &domain.BrokerError{Status: 400, Body: "rejected"}}
	e := fastEngine(b)

	sl := decPtr("100")
	sig := &domain.TradeSignal{Action: domain.ActionBuy, Uic: 4910, Quantity: dec("1"), StopLoss: sl}
	result, err := e.Execute(context.Background(), sig, "tok", "acct")
	if err == nil {
		t.Fatal("expected error from failed entry")
	}
	if result != nil {
		t.Fatalf("failed entry must not produce a result: %+v", result)
	}
	if len(b.placed) != 1 {
		t.Fatalf("brackets must not be submitted after a failed entry, orders=%d", len(b.placed))
	}
	be, ok := domain.AsBrokerError(err)
	if !ok || be.Status != 400 {
		t.Fatalf("broker error must survive wrapping, got %v", err)
	}
}

func TestExecuteSellWithStopAndTarget(t *testing.T) {
	b := &fakeBroker{}
	e := fastEngine(b)

	sig := &domain.TradeSignal{
		Action:     domain.ActionSell,
		Uic:        21,
		AssetType:  "FxSpot",
		Quantity:   dec("1"),
		StopLoss:   decPtr("1.1000"),
		TakeProfit: decPtr("1.0800"),
	}
	result, err := e.Execute(context.Background(), sig, "tok", "acct")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(b.placed) != 3 {
		t.Fatalf("expected entry + 2 brackets, got %d orders", len(b.placed))
	}

	stop, target := b.placed[1], b.placed[2]
	if stop.Side != domain.SideBuy || stop.Kind != domain.KindStop {
		t.Fatalf("stop leg got side=%q kind=%q", stop.Side, stop.Kind)
	}
	if !stop.Price.Equal(dec("1.1000")) || stop.Duration != domain.DurationGoodTillCancel {
		t.Fatalf("stop leg got=%+v", stop)
	}
	if target.Side != domain.SideBuy || target.Kind != domain.KindLimit || !target.Price.Equal(dec("1.0800")) {
		t.Fatalf("target leg got=%+v", target)
	}
	if !result.StopLoss.OK() || !result.TakeProfit.OK() {
		t.Fatalf("both legs should be acknowledged: %+v", result)
	}
}

func TestExecuteBracketFailureIsIsolated(t *testing.T) {
	b := &fakeBroker{failOrder: 2, failErr: &domain.BrokerError{Status: 400, Body: "too tight"}}
	e := fastEngine(b)

	sig := &domain.TradeSignal{
		Action:     domain.ActionBuy,
		Uic:        4910,
		Quantity:   dec("1"),
		StopLoss:   decPtr("17000"),
		TakeProfit: decPtr("18000"),
	}
	result, err := e.Execute(context.Background(), sig, "tok", "acct")
	if err != nil {
		t.Fatalf("bracket failure must not fail the invocation: %v", err)
	}
	if result.Entry == nil {
		t.Fatal("entry ack missing")
	}
	if result.StopLoss.OK() {
		t.Fatal("stop leg should have failed")
	}
	if result.StopLoss.Error == "" {
		t.Fatal("failed leg must carry the reason")
	}
	if !result.TakeProfit.OK() {
		t.Fatalf("target leg must still be attempted and succeed: %+v", result.TakeProfit)
	}
	if !result.PartialFailure() {
		t.Fatal("result must report partial failure")
	}
}

func TestExecuteTrailingWaitsForPosition(t *testing.T) {
	b := &fakeBroker{
		positions: []domain.Position{{Uic: 4910, SignedQuantity: dec("1")}},
	}
	e := fastEngine(b)

	sig := &domain.TradeSignal{
		Action:   domain.ActionBuy,
		Uic:      4910,
		Quantity: dec("1"),
		Trailing: &domain.TrailingStop{Distance: dec("15"), Step: dec("5")},
	}
	result, err := e.Execute(context.Background(), sig, "tok", "acct")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.TrailingStop.OK() {
		t.Fatalf("trailing leg should be acknowledged: %+v", result.TrailingStop)
	}
	trailing := b.placed[1]
	if trailing.Kind != domain.KindTrailingStop || trailing.Side != domain.SideSell {
		t.Fatalf("trailing leg got=%+v", trailing)
	}
	if trailing.Trailing == nil || !trailing.Trailing.Distance.Equal(dec("15")) || !trailing.Trailing.Step.Equal(dec("5")) {
		t.Fatalf("trailing parameters got=%+v", trailing.Trailing)
	}
}

func TestExecuteTrailingPollTimeout(t *testing.T) {
	// Position never registers: the trailing leg records the timeout, the
	// other legs and the invocation still succeed.
	b := &fakeBroker{}
	e := fastEngine(b)

	sig := &domain.TradeSignal{
		Action:   domain.ActionBuy,
		Uic:      4910,
		Quantity: dec("1"),
		StopLoss: decPtr("17000"),
		Trailing: &domain.TrailingStop{Distance: dec("15"), Step: dec("15")},
	}
	result, err := e.Execute(context.Background(), sig, "tok", "acct")
	if err != nil {
		t.Fatalf("poll timeout must not fail the invocation: %v", err)
	}
	if result.TrailingStop == nil || result.TrailingStop.OK() {
		t.Fatalf("trailing leg should record the timeout: %+v", result.TrailingStop)
	}
	if !result.StopLoss.OK() {
		t.Fatalf("stop leg must be unaffected: %+v", result.StopLoss)
	}
	// Entry + stop only; the trailing order was never submitted.
	if len(b.placed) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(b.placed))
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	e := fastEngine(&fakeBroker{})
	_, err := e.Execute(context.Background(), &domain.TradeSignal{Action: "hold"}, "tok", "acct")
	if _, ok := err.(*domain.InputError); !ok {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestExecuteClampsQuantityToMinLot(t *testing.T) {
	b := &fakeBroker{}
	e := fastEngine(b)

	sig := &domain.TradeSignal{Action: domain.ActionBuy, Uic: 4910}
	if _, err := e.Execute(context.Background(), sig, "tok", "acct"); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !b.placed[0].Quantity.Equal(domain.MinLot) {
		t.Fatalf("quantity got=%s want=%s", b.placed[0].Quantity, domain.MinLot)
	}
}
