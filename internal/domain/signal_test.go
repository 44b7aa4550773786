package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEffectiveQuantity(t *testing.T) {
	cases := []struct {
		name string
		qty  string
		want string
	}{
		{"positive passes through", "2", "2"},
		{"fractional passes through", "0.5", "0.5"},
		{"zero clamps to min lot", "0", "0.1"},
		{"negative clamps to min lot", "-1", "0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := &TradeSignal{Quantity: decimal.RequireFromString(tc.qty)}
			got := sig.EffectiveQuantity()
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("EffectiveQuantity got=%s want=%s", got, tc.want)
			}
		})
	}
}

func TestEffectiveQuantityUnset(t *testing.T) {
	// A signal with no qty field decodes to the decimal zero value.
	sig := &TradeSignal{}
	if got := sig.EffectiveQuantity(); !got.Equal(MinLot) {
		t.Fatalf("unset quantity got=%s want=%s", got, MinLot)
	}
}

func TestWantsBrackets(t *testing.T) {
	sl := decimal.RequireFromString("100")
	if (&TradeSignal{}).WantsBrackets() {
		t.Fatal("bare signal should not want brackets")
	}
	if !(&TradeSignal{StopLoss: &sl}).WantsBrackets() {
		t.Fatal("stop-loss signal should want brackets")
	}
	if !(&TradeSignal{Trailing: &TrailingStop{}}).WantsBrackets() {
		t.Fatal("trailing signal should want brackets")
	}
}

func TestEntrySide(t *testing.T) {
	if side, ok := (&TradeSignal{Action: ActionBuy}).EntrySide(); !ok || side != SideBuy {
		t.Fatalf("buy: got side=%q ok=%v", side, ok)
	}
	if side, ok := (&TradeSignal{Action: ActionSell}).EntrySide(); !ok || side != SideSell {
		t.Fatalf("sell: got side=%q ok=%v", side, ok)
	}
	if _, ok := (&TradeSignal{Action: ActionClose}).EntrySide(); ok {
		t.Fatal("close must not have an entry side")
	}
}

func TestSideOpposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Fatal("Opposite must swap Buy/Sell")
	}
}

func TestPositionDirection(t *testing.T) {
	long := Position{SignedQuantity: decimal.RequireFromString("2")}
	short := Position{SignedQuantity: decimal.RequireFromString("-2")}
	if long.Direction() != SideBuy {
		t.Fatalf("long direction got=%q", long.Direction())
	}
	if short.Direction() != SideSell {
		t.Fatalf("short direction got=%q", short.Direction())
	}
}
