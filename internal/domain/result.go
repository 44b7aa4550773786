package domain

import (
	"github.com/shopspring/decimal"
)

// LegOutcome is the tagged result of one bracket leg: either an ack or the
// reason it failed. Bracket failures are recorded, never swallowed, so the
// caller can observe an unprotected position.
type LegOutcome struct {
	Ack   *OrderAck `json:"ack,omitempty"`
	Error string    `json:"error,omitempty"`
}

// OK reports whether the leg was acknowledged.
func (l *LegOutcome) OK() bool {
	return l != nil && l.Ack != nil && l.Error == ""
}

// CloseSummary reports the position-closing half of a Close action.
type CloseSummary struct {
	Message  string           `json:"message,omitempty"`
	Ack      *OrderAck        `json:"ack,omitempty"`
	Side     Side             `json:"side,omitempty"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
}

// CancelOutcome is the result of one order cancellation attempt.
type CancelOutcome struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error,omitempty"`
}

// CancelSummary reports the cancellation half of a Close action. One failing
// cancellation does not block the others.
type CancelSummary struct {
	Orders []CancelOutcome `json:"orders"`
}

// ExecutionResult aggregates everything the engine did for one signal.
// A present field means that leg was attempted; if Entry is set, the entry
// order succeeded before any bracket leg was tried.
type ExecutionResult struct {
	Entry        *OrderAck      `json:"entry,omitempty"`
	StopLoss     *LegOutcome    `json:"stopLoss,omitempty"`
	TakeProfit   *LegOutcome    `json:"takeProfit,omitempty"`
	TrailingStop *LegOutcome    `json:"trailingStop,omitempty"`
	Closed       *CloseSummary  `json:"closed,omitempty"`
	Cancelled    *CancelSummary `json:"cancelled,omitempty"`
}

// PartialFailure reports whether any attempted bracket leg failed while the
// entry itself succeeded.
func (r *ExecutionResult) PartialFailure() bool {
	if r == nil || r.Entry == nil {
		return false
	}
	for _, leg := range []*LegOutcome{r.StopLoss, r.TakeProfit, r.TrailingStop} {
		if leg != nil && !leg.OK() {
			return true
		}
	}
	return false
}
