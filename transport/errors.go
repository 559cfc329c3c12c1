package transport

import (
	"context"
	"errors"
)

// Sentinel errors for transport failures. Implementations wrap these so
// the retry layer can classify failures with errors.Is.
var (
	// ErrConnection indicates a connection-level failure (dial, reset, refused).
	ErrConnection = errors.New("transport: connection error")

	// ErrTimeout indicates a peer call exceeded its deadline.
	ErrTimeout = errors.New("transport: timeout")

	// ErrPeer indicates a generic peer-side failure.
	ErrPeer = errors.New("transport: peer error")

	// ErrNotSupported indicates the transport does not implement an
	// optional capability (e.g. shard management).
	ErrNotSupported = errors.New("transport: capability not supported")
)

// IsRetryable reports whether an error belongs to the retryable class:
// connection errors, timeouts, and generic peer errors. Context
// cancellation and capability absence are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrPeer)
}
