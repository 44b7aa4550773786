package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// InputError is a malformed or unresolvable signal. Never retried; mapped to
// a 4xx response.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// NewInputError builds an InputError with a formatted message.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// CredentialError means no usable access token could be produced: missing
// configuration or a rejected refresh exchange. Fatal for the invocation.
type CredentialError struct {
	Cause error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential error: %v", e.Cause)
}

func (e *CredentialError) Unwrap() error { return e.Cause }

// BrokerError is any non-2xx brokerage response. Status and the raw body are
// carried verbatim; callers branch on Status, never on message text.
type BrokerError struct {
	Status int
	Body   string
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker error %d: %s", e.Status, e.Body)
}

// IsAuthFailure reports whether the broker rejected the bearer token.
func (e *BrokerError) IsAuthFailure() bool {
	return e.Status == http.StatusUnauthorized
}

// AsBrokerError unwraps a BrokerError from an error chain.
func AsBrokerError(err error) (*BrokerError, bool) {
	var be *BrokerError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsAuthFailure reports whether err is a broker 401 anywhere in its chain.
func IsAuthFailure(err error) bool {
	be, ok := AsBrokerError(err)
	return ok && be.IsAuthFailure()
}
