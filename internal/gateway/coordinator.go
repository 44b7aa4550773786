package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradebridge/saxogw/internal/domain"
	"github.com/tradebridge/saxogw/internal/journal"
	"github.com/tradebridge/saxogw/internal/metrics"
	"github.com/tradebridge/saxogw/internal/risk"
	"github.com/tradebridge/saxogw/pkg/config"
)

var log = logrus.WithField("component", "coordinator")

// TokenManager is the credential surface the coordinator needs. Satisfied by
// *auth.Manager.
type TokenManager interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Executor runs one signal. Satisfied by *engine.Engine.
type Executor interface {
	Execute(ctx context.Context, sig *domain.TradeSignal, token, accountKey string) (*domain.ExecutionResult, error)
}

// Envelope is the response body for every webhook invocation.
type Envelope struct {
	Success bool                    `json:"success"`
	Result  *domain.ExecutionResult `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Coordinator wires the decoded signal through the token manager and the
// execution engine and maps the outcome onto an HTTP status plus envelope.
type Coordinator struct {
	tokens     TokenManager
	executor   Executor
	breaker    *risk.CircuitBreaker
	journal    *journal.Journal // optional
	symbols    map[string]config.SymbolSpec
	accountKey string
}

func NewCoordinator(tokens TokenManager, executor Executor, breaker *risk.CircuitBreaker, jnl *journal.Journal, symbols map[string]config.SymbolSpec, accountKey string) *Coordinator {
	return &Coordinator{
		tokens:     tokens,
		executor:   executor,
		breaker:    breaker,
		journal:    jnl,
		symbols:    symbols,
		accountKey: accountKey,
	}
}

// Handle processes one inbound signal body and returns the HTTP status and
// response envelope.
func (c *Coordinator) Handle(ctx context.Context, body []byte) (int, Envelope) {
	metrics.SignalsReceived.Add(1)
	receivedAt := time.Now()

	sig, err := DecodeSignal(body, c.symbols)
	if err != nil {
		metrics.SignalsRejected.Add(1)
		return http.StatusBadRequest, Envelope{Error: err.Error()}
	}

	if err := c.breaker.Allow(); err != nil {
		metrics.SignalsRejected.Add(1)
		return http.StatusServiceUnavailable, Envelope{Error: err.Error()}
	}

	result, execErr := c.execute(ctx, sig)

	status := http.StatusOK
	env := Envelope{Success: execErr == nil, Result: result}
	if execErr != nil {
		c.breaker.RecordFailure()
		env.Error = execErr.Error()
		status = statusFor(execErr)
	} else {
		c.breaker.RecordSuccess()
	}

	c.record(sig, receivedAt, result, execErr)
	return status, env
}

// execute asks for a token and runs the engine. On a broker 401 it forces
// one refresh and retries the whole signal exactly once, but only when
// nothing irreversible happened yet: an acknowledged entry or closing order
// must never be resubmitted.
func (c *Coordinator) execute(ctx context.Context, sig *domain.TradeSignal) (*domain.ExecutionResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	result, err := c.executor.Execute(ctx, sig, token, c.accountKey)
	if err != nil && domain.IsAuthFailure(err) && safeToRetry(result) {
		log.Info("broker rejected token, refreshing and retrying once")
		c.tokens.Invalidate()
		token, tokenErr := c.tokens.Token(ctx)
		if tokenErr != nil {
			return result, tokenErr
		}
		return c.executor.Execute(ctx, sig, token, c.accountKey)
	}
	return result, err
}

// safeToRetry reports whether re-running the signal cannot duplicate an
// already-placed order. Listing and cancellation are idempotent; order
// placement is not.
func safeToRetry(result *domain.ExecutionResult) bool {
	if result == nil {
		return true
	}
	if result.Entry != nil {
		return false
	}
	if result.Closed != nil && result.Closed.Ack != nil {
		return false
	}
	return true
}

func statusFor(err error) int {
	var ie *domain.InputError
	if errors.As(err, &ie) {
		return http.StatusBadRequest
	}
	var ce *domain.CredentialError
	if errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	// Broker rejections and transport failures both read as a bad upstream.
	return http.StatusBadGateway
}

// record writes the journal entry. Failures are counted, never propagated.
func (c *Coordinator) record(sig *domain.TradeSignal, receivedAt time.Time, result *domain.ExecutionResult, execErr error) {
	if c.journal == nil {
		return
	}
	entry := &journal.Entry{
		ID:         uuid.NewString(),
		ReceivedAt: receivedAt,
		Action:     string(sig.Action),
		Symbol:     sig.Symbol,
		Uic:        sig.Uic,
		Quantity:   sig.EffectiveQuantity().String(),
		Success:    execErr == nil,
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			entry.Result = raw
		}
	}
	if err := c.journal.Record(entry); err != nil {
		metrics.JournalWriteErrs.Add(1)
		log.WithError(err).Warn("journal write failed")
	}
}
