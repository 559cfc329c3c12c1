package checkpoint

import (
	"fmt"
	"time"
)

// Checkpoint is a durable snapshot of a long-running operation's
// progress. Once saved it is immutable; resuming an operation writes
// new checkpoints rather than rewriting old ones.
type Checkpoint struct {
	OperationID    string         `json:"operation_id"`
	CheckpointID   string         `json:"checkpoint_id"`
	Timestamp      time.Time      `json:"timestamp"`
	CompletedItems []string       `json:"completed_items"`
	PendingItems   []string       `json:"pending_items"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// New creates a checkpoint for the given operation. The checkpoint ID
// is derived from the current time so IDs sort lexicographically in
// creation order.
func New(operationID string, completed, pending []string) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		OperationID:    operationID,
		CheckpointID:   newCheckpointID(now),
		Timestamp:      now,
		CompletedItems: append([]string(nil), completed...),
		PendingItems:   append([]string(nil), pending...),
	}
}

// newCheckpointID formats a zero-padded nanosecond timestamp so that
// string ordering matches time ordering.
func newCheckpointID(t time.Time) string {
	return fmt.Sprintf("cp_%020d", t.UnixNano())
}
