package operation

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Status represents the lifecycle state of a multi-peer operation.
type Status int

const (
	// StatusPending means the operation has been created but not started.
	StatusPending Status = iota

	// StatusInProgress means peer calls are being dispatched.
	StatusInProgress

	// StatusCompleted means every peer call succeeded.
	StatusCompleted

	// StatusPartiallyCompleted means some peer calls succeeded and some failed.
	StatusPartiallyCompleted

	// StatusFailed means no peer call succeeded.
	StatusFailed

	// StatusInterrupted means the operation was cut short, typically by
	// cancellation, and may be resumable from a checkpoint.
	StatusInterrupted

	// StatusRecovered means the operation finished after being resumed
	// from a checkpoint.
	StatusRecovered
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusPartiallyCompleted:
		return "partially_completed"
	case StatusFailed:
		return "failed"
	case StatusInterrupted:
		return "interrupted"
	case StatusRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Result aggregates per-peer outcomes for one logical multi-peer
// operation. Peer outcomes may arrive from concurrent goroutines;
// every mutation is atomic.
//
// Invariants: SuccessCount() == len(SuccessfulNodes()),
// FailureCount() == len(FailedNodes()), and AffectedNodes() is the
// first-seen-ordered union of the two.
type Result struct {
	mu sync.Mutex

	id        string
	kind      string
	status    Status
	startTime time.Time
	endTime   time.Time
	completed bool

	affectedNodes   []string
	successfulNodes []string
	failedNodes     map[string]string
	results         map[string]any
	seen            map[string]bool
	errorMessage    string
}

// newID builds an operation ID of the form {kind}_{unixSeconds}_{rand4hex}.
func newID(kind string) string {
	// #nosec G404 -- IDs need uniqueness within a process, not secrecy.
	return fmt.Sprintf("%s_%d_%04x", kind, time.Now().Unix(), rand.Uint32()&0xffff)
}

// NewResult creates a pending result for an operation of the given kind.
func NewResult(kind string) *Result {
	return &Result{
		id:          newID(kind),
		kind:        kind,
		status:      StatusPending,
		startTime:   time.Now(),
		failedNodes: make(map[string]string),
		results:     make(map[string]any),
		seen:        make(map[string]bool),
	}
}

// ID returns the unique operation identifier.
func (r *Result) ID() string {
	return r.id
}

// Kind returns the operation kind, e.g. "shard_transfer".
func (r *Result) Kind() string {
	return r.kind
}

// Start marks the operation as in progress.
func (r *Result) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusPending {
		r.status = StatusInProgress
	}
}

// AddSuccess records a successful outcome for a peer. The payload is
// stored for later retrieval via Results(). Duplicate successes for
// the same peer are ignored.
func (r *Result) AddSuccess(peerID string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.successfulNodes {
		if id == peerID {
			r.results[peerID] = payload
			return
		}
	}

	r.successfulNodes = append(r.successfulNodes, peerID)
	r.results[peerID] = payload
	r.noteAffectedLocked(peerID)
}

// AddFailure records a failed outcome for a peer. A repeat failure
// for the same peer replaces the stored message.
func (r *Result) AddFailure(peerID, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failedNodes[peerID] = errMsg
	r.noteAffectedLocked(peerID)
}

func (r *Result) noteAffectedLocked(peerID string) {
	if !r.seen[peerID] {
		r.seen[peerID] = true
		r.affectedNodes = append(r.affectedNodes, peerID)
	}
}

// Complete finalizes the operation, deriving the terminal status from
// the recorded outcomes: no failures yields completed, a mix yields
// partially completed, and no successes yields failed. Only the first
// call takes effect.
func (r *Result) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeLocked(r.deriveStatusLocked())
}

// CompleteWithStatus finalizes the operation with an explicit terminal
// status, bypassing derivation. Only the first completion takes effect.
func (r *Result) CompleteWithStatus(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeLocked(status)
}

func (r *Result) deriveStatusLocked() Status {
	switch {
	case len(r.failedNodes) == 0:
		return StatusCompleted
	case len(r.successfulNodes) > 0:
		return StatusPartiallyCompleted
	default:
		return StatusFailed
	}
}

func (r *Result) completeLocked(status Status) {
	if r.completed {
		return
	}
	r.completed = true
	r.status = status
	r.endTime = time.Now()
}

// SetErrorMessage attaches an operation-level error description.
func (r *Result) SetErrorMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorMessage = msg
}

// Status returns the operation's current status.
func (r *Result) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SuccessCount returns the number of peers that succeeded.
func (r *Result) SuccessCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successfulNodes)
}

// FailureCount returns the number of peers that failed.
func (r *Result) FailureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failedNodes)
}

// AffectedNodes returns every peer touched by the operation in
// first-seen order.
func (r *Result) AffectedNodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.affectedNodes...)
}

// SuccessfulNodes returns the peers that succeeded, in first-success order.
func (r *Result) SuccessfulNodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successfulNodes...)
}

// FailedNodes returns a copy of the peer-to-error map for failed peers.
func (r *Result) FailedNodes() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.failedNodes))
	for k, v := range r.failedNodes {
		out[k] = v
	}
	return out
}

// Results returns a copy of the per-peer success payloads.
func (r *Result) Results() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]any, len(r.results))
	for k, v := range r.results {
		out[k] = v
	}
	return out
}

// ErrorMessage returns the operation-level error description, if any.
func (r *Result) ErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorMessage
}

// StartTime returns when the operation was created.
func (r *Result) StartTime() time.Time {
	return r.startTime
}

// EndTime returns when the operation completed, or the zero time if
// it has not.
func (r *Result) EndTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endTime
}

// ExecutionTime returns the elapsed time from start to completion, or
// from start to now for an unfinished operation.
func (r *Result) ExecutionTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTime.IsZero() {
		return time.Since(r.startTime)
	}
	return r.endTime.Sub(r.startTime)
}
