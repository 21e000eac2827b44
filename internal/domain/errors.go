package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// FeedError is a market data connection failure. The feed keeps reconnecting
// after any FeedError that is not Fatal.
type FeedError struct {
	Stage  string // dial, subscribe or read
	Status int    // HTTP status of a rejected handshake, 0 otherwise
	Fatal  bool
	Err    error
}

func (e *FeedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed %s (http %d): %v", e.Stage, e.Status, e.Err)
	}
	return fmt.Sprintf("feed %s: %v", e.Stage, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError wraps a transient feed failure.
func NewFeedError(stage string, err error) *FeedError {
	return &FeedError{Stage: stage, Err: err}
}

// NewHandshakeError classifies a failed websocket upgrade. A gateway that
// rejects our credentials will keep rejecting them, so 401 and 403 are fatal.
func NewHandshakeError(status int, err error) *FeedError {
	return &FeedError{
		Stage:  "dial",
		Status: status,
		Fatal:  status == http.StatusUnauthorized || status == http.StatusForbidden,
		Err:    err,
	}
}

// ShouldReconnect reports whether the feed may retry after err.
func ShouldReconnect(err error) bool {
	var fe *FeedError
	if errors.As(err, &fe) {
		return !fe.Fatal
	}
	var ce *ConfigError
	return !errors.As(err, &ce)
}

// ConfigError points at the config field that failed validation.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnknownContract is returned when no reference data exists for a symbol.
	ErrUnknownContract = errors.New("unknown contract")

	// ErrNotTrading is returned when an order is requested outside TRADING.
	ErrNotTrading = errors.New("strategy is not trading")

	// ErrInvalidTransition is returned for a lifecycle change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrDispatchRejected is returned by dispatchers that refuse an intent.
	ErrDispatchRejected = errors.New("order rejected")
)
