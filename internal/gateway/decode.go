package gateway

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradebridge/saxogw/internal/domain"
	"github.com/tradebridge/saxogw/pkg/config"
)

// webhookPayload is the TradingView alert body. json.Number tolerates both
// numeric and quoted-numeric fields, which alert templates produce
// interchangeably.
type webhookPayload struct {
	Action       string           `json:"action"`
	Symbol       string           `json:"symbol"`
	Qty          *json.Number     `json:"qty"`
	SL           *json.Number     `json:"sl"`
	TP           *json.Number     `json:"tp"`
	TrailingStop *trailingPayload `json:"trailingStop"`
}

type trailingPayload struct {
	Enabled     bool         `json:"enabled"`
	TrailPoints *json.Number `json:"trailPoints"`
	TrailOffset *json.Number `json:"trailOffset"`
}

// DecodeSignal parses and validates an inbound body into a TradeSignal.
// All failures are *domain.InputError; no network call happens here.
func DecodeSignal(body []byte, symbols map[string]config.SymbolSpec) (*domain.TradeSignal, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.NewInputError("malformed request body: %v", err)
	}

	action := domain.Action(strings.ToLower(strings.TrimSpace(p.Action)))
	switch action {
	case domain.ActionBuy, domain.ActionSell, domain.ActionClose:
	case "":
		return nil, domain.NewInputError("missing action")
	default:
		return nil, domain.NewInputError("unknown action %q", p.Action)
	}

	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		return nil, domain.NewInputError("missing symbol")
	}
	spec, ok := symbols[symbol]
	if !ok {
		return nil, domain.NewInputError("unknown symbol %q", p.Symbol)
	}

	sig := &domain.TradeSignal{
		Action:    action,
		Symbol:    symbol,
		Uic:       spec.Uic,
		AssetType: spec.AssetType,
	}

	if p.Qty != nil {
		qty, err := decimal.NewFromString(p.Qty.String())
		if err != nil {
			return nil, domain.NewInputError("invalid qty %q", p.Qty.String())
		}
		sig.Quantity = qty
	}

	var err error
	if sig.StopLoss, err = parsePrice(p.SL, "sl"); err != nil {
		return nil, err
	}
	if sig.TakeProfit, err = parsePrice(p.TP, "tp"); err != nil {
		return nil, err
	}

	if p.TrailingStop != nil && p.TrailingStop.Enabled {
		distance, err := parsePrice(p.TrailingStop.TrailPoints, "trailingStop.trailPoints")
		if err != nil {
			return nil, err
		}
		if distance == nil {
			return nil, domain.NewInputError("trailingStop enabled but trailPoints missing")
		}
		step := *distance
		if p.TrailingStop.TrailOffset != nil {
			s, err := parsePrice(p.TrailingStop.TrailOffset, "trailingStop.trailOffset")
			if err != nil {
				return nil, err
			}
			step = *s
		}
		sig.Trailing = &domain.TrailingStop{Distance: *distance, Step: step}
	}

	return sig, nil
}

// parsePrice converts an optional numeric field. Absent is fine; present but
// unparseable or non-positive is a fatal input error.
func parsePrice(n *json.Number, field string) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, domain.NewInputError("invalid %s %q", field, n.String())
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewInputError("%s must be positive, got %s", field, d)
	}
	return &d, nil
}
