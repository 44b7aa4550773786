package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tradebridge/saxogw/internal/domain"
	"github.com/tradebridge/saxogw/internal/metrics"
)

var log = logrus.WithField("component", "broker")

// Client issues the four logical brokerage operations against the Saxo
// OpenAPI REST surface. It is stateless: the bearer token is passed per call
// so the token lifecycle stays with the caller.
type Client struct {
	client  *resty.Client
	limiter *tokenBucket
}

// NewClient builds a client for the given REST base, e.g.
// https://gateway.saxobank.com/sim/openapi. Retries cover transport-level
// failures only; a non-2xx reply is never retried here because the caller
// decides what a rejection means.
func NewClient(base string) *Client {
	base = strings.TrimRight(base, "/")
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil // transport errors only
		}).
		SetHeader("Content-Type", "application/json")
	return &Client{
		client:  client,
		limiter: newTokenBucket(30, 10),
	}
}

func (c *Client) newRequest(ctx context.Context, token string) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token)
}

// brokerError converts any non-2xx reply into a typed error carrying the
// numeric status and the raw body verbatim. Callers branch on the status,
// never on the message text.
func brokerError(resp *resty.Response) error {
	return &domain.BrokerError{
		Status: resp.StatusCode(),
		Body:   string(resp.Body()),
	}
}

// PlaceOrder submits one order leg.
func (c *Client) PlaceOrder(ctx context.Context, token string, req *domain.OrderRequest) (*domain.OrderAck, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	payload := payloadFromRequest(req)
	var ack orderAck
	resp, err := c.newRequest(ctx, token).
		SetBody(payload).
		SetResult(&ack).
		Post("/trade/v2/orders")
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	if !resp.IsSuccess() {
		metrics.BrokerErrors.Add(1)
		return nil, brokerError(resp)
	}
	metrics.OrdersPlaced.Add(1)
	log.WithFields(logrus.Fields{
		"uic":   req.Uic,
		"side":  req.Side,
		"type":  req.Kind,
		"order": ack.OrderID,
	}).Info("order placed")
	return &domain.OrderAck{OrderID: ack.OrderID}, nil
}

// ListPositions fetches the account's open positions.
func (c *Client) ListPositions(ctx context.Context, token, accountKey string) ([]domain.Position, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	var reply positionsReply
	resp, err := c.newRequest(ctx, token).
		SetQueryParam("AccountKey", accountKey).
		SetQueryParam("FieldGroups", "PositionBase").
		SetResult(&reply).
		Get("/port/v1/positions")
	if err != nil {
		return nil, errors.Wrap(err, "list positions")
	}
	if !resp.IsSuccess() {
		metrics.BrokerErrors.Add(1)
		return nil, brokerError(resp)
	}
	out := make([]domain.Position, 0, len(reply.Data))
	for _, d := range reply.Data {
		out = append(out, domain.Position{
			Uic:            d.PositionBase.Uic,
			SignedQuantity: d.PositionBase.Amount,
		})
	}
	return out, nil
}

// ListOpenOrders fetches the account's resting orders.
func (c *Client) ListOpenOrders(ctx context.Context, token, accountKey string) ([]domain.OpenOrder, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	var reply openOrdersReply
	resp, err := c.newRequest(ctx, token).
		SetQueryParam("AccountKey", accountKey).
		SetResult(&reply).
		Get("/port/v1/orders/me")
	if err != nil {
		return nil, errors.Wrap(err, "list open orders")
	}
	if !resp.IsSuccess() {
		metrics.BrokerErrors.Add(1)
		return nil, brokerError(resp)
	}
	out := make([]domain.OpenOrder, 0, len(reply.Data))
	for _, d := range reply.Data {
		out = append(out, domain.OpenOrder{OrderID: d.OrderID, Uic: d.Uic})
	}
	return out, nil
}

// DeleteOrder cancels one resting order.
func (c *Client) DeleteOrder(ctx context.Context, token, orderID, accountKey string) error {
	if err := c.limiter.wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait")
	}
	endpoint := fmt.Sprintf("/trade/v2/orders/%s", url.PathEscape(orderID))
	resp, err := c.newRequest(ctx, token).
		SetQueryParam("AccountKey", accountKey).
		Delete(endpoint)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if !resp.IsSuccess() {
		metrics.BrokerErrors.Add(1)
		return brokerError(resp)
	}
	metrics.OrdersCancelled.Add(1)
	log.WithField("order", orderID).Info("order cancelled")
	return nil
}
