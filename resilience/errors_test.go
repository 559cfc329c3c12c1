package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_Wrapping(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"circuit open", ErrCircuitOpen},
		{"max retries", ErrMaxRetriesExceeded},
		{"bulkhead full", ErrBulkheadFull},
		{"timeout", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("peer n1: %w", tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false, want true", wrapped)
			}
		})
	}
}
