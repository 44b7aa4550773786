package domain

import (
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite returns the other direction, used when composing bracket legs and
// closing orders.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderKind is the order type on the broker side.
type OrderKind string

const (
	KindMarket       OrderKind = "Market"
	KindLimit        OrderKind = "Limit"
	KindStop         OrderKind = "Stop"
	KindStopIfTraded OrderKind = "StopIfTraded"
	KindTrailingStop OrderKind = "TrailingStop"
)

// OrderDuration controls how long an order rests.
type OrderDuration string

const (
	DurationImmediate      OrderDuration = "ImmediateOrCancel"
	DurationGoodTillCancel OrderDuration = "GoodTillCancel"
	DurationDayOrder       OrderDuration = "DayOrder"
)

// OrderRequest is the broker-facing representation of a single order leg.
// One is built fresh per leg and never reused across submissions.
type OrderRequest struct {
	AccountKey string
	Uic        int
	AssetType  string
	Side       Side
	Kind       OrderKind
	Quantity   decimal.Decimal
	Price      *decimal.Decimal
	Trailing   *TrailingStop
	Duration   OrderDuration
}

// OrderAck is the broker's acknowledgment of a submitted order.
type OrderAck struct {
	OrderID string `json:"orderId"`
}

// Position is a broker-reported open position snapshot. SignedQuantity is
// positive for long, negative for short. Snapshots are fetched on demand and
// never cached across signals.
type Position struct {
	Uic            int
	SignedQuantity decimal.Decimal
}

// Direction returns the side that would extend the position.
func (p Position) Direction() Side {
	if p.SignedQuantity.Sign() < 0 {
		return SideSell
	}
	return SideBuy
}

// OpenOrder is a broker-reported resting order; the engine uses it only to
// find cancellation candidates for a Close action.
type OpenOrder struct {
	OrderID string
	Uic     int
}
