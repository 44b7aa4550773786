package broker

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/tradebridge/saxogw/internal/domain"
)

// orderPayload is the wire shape of POST /trade/v2/orders. Amounts go out as
// json.Number so they serialize as bare JSON numbers, which is what the API
// expects.
type orderPayload struct {
	AccountKey  string      `json:"AccountKey"`
	AssetType   string      `json:"AssetType"`
	Uic         int         `json:"Uic"`
	BuySell     string      `json:"BuySell"`
	OrderType   string      `json:"OrderType"`
	Amount      json.Number `json:"Amount"`
	ManualOrder bool        `json:"ManualOrder"`

	OrderPrice                   *json.Number   `json:"OrderPrice,omitempty"`
	TrailingStopDistanceToMarket *json.Number   `json:"TrailingStopDistanceToMarket,omitempty"`
	TrailingStopStep             *json.Number   `json:"TrailingStopStep,omitempty"`
	OrderDuration                *orderDuration `json:"OrderDuration,omitempty"`
}

type orderDuration struct {
	DurationType string `json:"DurationType"`
}

// orderAck is the wire shape of the order acknowledgment.
type orderAck struct {
	OrderID string `json:"OrderId"`
}

// positionsReply is the wire shape of GET /port/v1/positions.
type positionsReply struct {
	Data []struct {
		PositionBase struct {
			Uic    int             `json:"Uic"`
			Amount decimal.Decimal `json:"Amount"`
		} `json:"PositionBase"`
	} `json:"Data"`
}

// openOrdersReply is the wire shape of GET /port/v1/orders/me.
type openOrdersReply struct {
	Data []struct {
		OrderID string `json:"OrderId"`
		Uic     int    `json:"Uic"`
	} `json:"Data"`
}

func numberOf(d decimal.Decimal) *json.Number {
	n := json.Number(d.String())
	return &n
}

func payloadFromRequest(req *domain.OrderRequest) orderPayload {
	p := orderPayload{
		AccountKey:  req.AccountKey,
		AssetType:   req.AssetType,
		Uic:         req.Uic,
		BuySell:     string(req.Side),
		OrderType:   string(req.Kind),
		Amount:      json.Number(req.Quantity.String()),
		ManualOrder: true,
	}
	if req.Price != nil {
		p.OrderPrice = numberOf(*req.Price)
	}
	if req.Trailing != nil {
		p.TrailingStopDistanceToMarket = numberOf(req.Trailing.Distance)
		p.TrailingStopStep = numberOf(req.Trailing.Step)
	}
	if req.Duration != "" {
		p.OrderDuration = &orderDuration{DurationType: string(req.Duration)}
	}
	return p
}
