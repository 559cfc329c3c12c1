package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/peerops/observe"
	"github.com/jonwraymond/peerops/resilience"
)

// PeerFunc is a caller-supplied operation executed against one peer.
type PeerFunc func(ctx context.Context, peerID string) (any, error)

// Outcome is the terminal result of one peer's call in a fan-out.
// Exactly one of Value and Err is meaningful.
type Outcome struct {
	Value any
	Err   error
}

// ExecuteOnHealthyNodes runs fn against every currently healthy peer
// under a concurrency bound and a per-call timeout. Once
// minSuccessCount calls have succeeded, the remaining in-flight calls
// are cancelled, but the returned map is always total over the
// dispatched peer set: cancelled or unstarted calls carry the
// cancellation error as their outcome.
func (c *Coordinator) ExecuteOnHealthyNodes(ctx context.Context, fn PeerFunc, minSuccessCount, maxConcurrent int, timeout time.Duration) (map[string]Outcome, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	peers := c.monitor.HealthyNodes()
	if len(peers) == 0 {
		return nil, ErrNoHealthyPeers
	}

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = c.config.DefaultTimeout
	}
	if minSuccessCount < 1 {
		minSuccessCount = 1
	}

	execCtx, cancelRemaining := context.WithCancel(ctx)
	defer cancelRemaining()

	gate := resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: maxConcurrent,
		MaxWait:       -1, // wait for a slot until the fan-out is cut off
	})

	var (
		mu        sync.Mutex
		outcomes  = make(map[string]Outcome, len(peers))
		successes int
	)

	record := func(peerID string, value any, err error) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[peerID] = Outcome{Value: value, Err: err}
		if err == nil {
			successes++
			if successes >= minSuccessCount {
				cancelRemaining()
			}
		}
	}

	var wg sync.WaitGroup
	for _, peerID := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := gate.Acquire(execCtx); err != nil {
				// Quorum already met or caller cancelled before this
				// peer's turn; it still gets a definite outcome.
				record(peerID, nil, err)
				return
			}
			defer gate.Release()

			var value any
			err := resilience.ExecuteWithTimeout(execCtx, timeout, func(ctx context.Context) error {
				var fnErr error
				value, fnErr = fn(ctx, peerID)
				return fnErr
			})

			// The quorum cutoff is not the peer's fault: once execCtx is
			// cancelled, an error outcome carries no health penalty.
			cutoff := execCtx.Err() != nil

			if err != nil {
				record(peerID, nil, err)
				if !cutoff {
					c.monitor.RecordFailure(peerID)
				}
				return
			}
			record(peerID, value, nil)
			c.monitor.RecordSuccess(peerID)
		}()
	}
	wg.Wait()

	return outcomes, nil
}

// LazyBroadcast sends a message to the minReach highest-availability
// peers concurrently, counting on the network's own propagation for
// reach beyond them. Returns how many sends succeeded and failed.
func (c *Coordinator) LazyBroadcast(ctx context.Context, protocol string, payload map[string]any, minReach int) (successCount, failureCount int, err error) {
	if err := c.checkOpen(); err != nil {
		return 0, 0, err
	}

	peers := c.monitor.SelectBestNodes(minReach, nil)
	if len(peers) == 0 {
		return 0, 0, ErrNoHealthyPeers
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, peerID := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			meta := observe.CallMeta{Peer: peerID, Operation: "broadcast", Protocol: protocol}
			start := time.Now()

			sendErr := c.execute(ctx, CircuitMessageSend, func(ctx context.Context) error {
				_, callErr := c.transport.SendMessage(ctx, peerID, protocol, payload, c.config.DefaultTimeout)
				return callErr
			})

			c.observeCall(ctx, meta, time.Since(start), sendErr)

			mu.Lock()
			if sendErr != nil {
				failureCount++
			} else {
				successCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return successCount, failureCount, nil
}
