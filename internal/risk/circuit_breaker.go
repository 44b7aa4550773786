package risk

import (
	"fmt"
	"sync/atomic"
)

// ErrCircuitBreakerOpen means the gateway has halted trading and rejects
// signals until resumed.
var ErrCircuitBreakerOpen = fmt.Errorf("circuit breaker open")

// CircuitBreaker halts execution after too many consecutive failed signals.
// A webhook gateway has no operator watching each order go out, so repeated
// broker rejections (bad account key, revoked app, dead market) must stop
// the flow rather than burn through the rate limit.
//
// Fast path uses atomics; threshold <= 0 disables the limit.
type CircuitBreaker struct {
	halted              atomic.Bool
	consecutiveFailures atomic.Int64
	maxConsecutive      atomic.Int64
}

func NewCircuitBreaker(maxConsecutiveFailures int) *CircuitBreaker {
	cb := &CircuitBreaker{}
	cb.maxConsecutive.Store(int64(maxConsecutiveFailures))
	return cb
}

// Allow reports whether a new signal may execute.
func (cb *CircuitBreaker) Allow() error {
	if cb == nil {
		return nil
	}
	if cb.halted.Load() {
		return ErrCircuitBreakerOpen
	}
	max := cb.maxConsecutive.Load()
	if max > 0 && cb.consecutiveFailures.Load() >= max {
		cb.halted.Store(true)
		return ErrCircuitBreakerOpen
	}
	return nil
}

// RecordSuccess resets the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.consecutiveFailures.Store(0)
}

// RecordFailure extends the failure streak and trips the breaker when the
// threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	n := cb.consecutiveFailures.Add(1)
	if max := cb.maxConsecutive.Load(); max > 0 && n >= max {
		cb.halted.Store(true)
	}
}

// Halt trips the breaker manually.
func (cb *CircuitBreaker) Halt() {
	if cb == nil {
		return
	}
	cb.halted.Store(true)
}

// Resume reopens trading and clears the failure streak.
func (cb *CircuitBreaker) Resume() {
	if cb == nil {
		return
	}
	cb.halted.Store(false)
	cb.consecutiveFailures.Store(0)
}

// Halted reports the breaker state without mutating it.
func (cb *CircuitBreaker) Halted() bool {
	return cb != nil && cb.halted.Load()
}
