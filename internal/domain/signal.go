package domain

import (
	"github.com/shopspring/decimal"
)

// Action is the normalized instruction carried by an inbound signal.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionClose Action = "close"
)

// MinLot is the smallest order amount the gateway will submit. Signals with a
// missing or non-positive quantity are clamped up to this value.
var MinLot = decimal.RequireFromString("0.1")

// TrailingStop describes the trailing leg of a bracket.
type TrailingStop struct {
	Distance decimal.Decimal
	Step     decimal.Decimal
}

// TradeSignal is an inbound instruction after decoding and symbol resolution.
// Immutable once built; the engine never mutates it.
type TradeSignal struct {
	Action    Action
	Symbol    string
	Uic       int
	AssetType string

	Quantity   decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Trailing   *TrailingStop
}

// EffectiveQuantity clamps the requested quantity to MinLot.
func (s *TradeSignal) EffectiveQuantity() decimal.Decimal {
	if s.Quantity.LessThanOrEqual(decimal.Zero) {
		return MinLot
	}
	return s.Quantity
}

// WantsBrackets reports whether any bracket leg was requested.
func (s *TradeSignal) WantsBrackets() bool {
	return s.StopLoss != nil || s.TakeProfit != nil || s.Trailing != nil
}

// EntrySide maps a buy/sell action to an order side. Close has no entry side.
func (s *TradeSignal) EntrySide() (Side, bool) {
	switch s.Action {
	case ActionBuy:
		return SideBuy, true
	case ActionSell:
		return SideSell, true
	default:
		return "", false
	}
}
