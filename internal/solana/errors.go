package solana

import (
	"errors"
	"fmt"
)

// Transport error taxonomy. The fetch layer retries retriable failures; the
// rest fail fast at the item level.
var (
	// ErrRateLimited is returned when the provider reports too many requests.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMalformed is returned when the provider rejects the request shape.
	ErrMalformed = errors.New("malformed request")
)

// TransientError wraps a network-level failure that is worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient network error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a retriable transport failure.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// IsRetriable reports whether err should be retried with backoff.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var te *TransientError
	return errors.As(err, &te)
}
