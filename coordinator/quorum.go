package coordinator

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/jonwraymond/peerops/observe"
)

// FindConsistentData queries every healthy peer for the same data and
// returns the most common response once it reaches quorum. Responses
// are grouped by structural equality using canonical JSON, so map key
// order never splits a group. quorumPct is a percentage of the
// healthy peer count; the required agreement is
// max(1, ceil(healthy * quorumPct / 100)).
//
// When the largest group falls short, the call fails with a
// *NoQuorumError carrying the best agreement and the requirement.
func (c *Coordinator) FindConsistentData(ctx context.Context, protocol string, request map[string]any, quorumPct float64, timeout time.Duration) (map[string]any, int, error) {
	if err := c.checkOpen(); err != nil {
		return nil, 0, err
	}

	peers := c.monitor.HealthyNodes()
	if len(peers) == 0 {
		return nil, 0, ErrNoHealthyPeers
	}

	if timeout <= 0 {
		timeout = c.config.DefaultTimeout
	}
	required := int(math.Ceil(float64(len(peers)) * quorumPct / 100))
	if required < 1 {
		required = 1
	}

	type reply struct {
		peerID   string
		response map[string]any
	}

	var (
		mu      sync.Mutex
		replies []reply
		wg      sync.WaitGroup
	)
	for _, peerID := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			meta := observe.CallMeta{Peer: peerID, Operation: "consistency_query", Protocol: protocol}
			start := time.Now()

			var response map[string]any
			err := c.execute(ctx, CircuitMessageSend, func(ctx context.Context) error {
				var callErr error
				response, callErr = c.transport.SendMessage(ctx, peerID, protocol, request, timeout)
				return callErr
			})

			c.observeCall(ctx, meta, time.Since(start), err)
			if err != nil {
				return
			}

			mu.Lock()
			replies = append(replies, reply{peerID: peerID, response: response})
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Group structurally equal responses. Keys track first-seen order
	// so ties resolve deterministically.
	counts := make(map[string]int)
	representatives := make(map[string]map[string]any)
	var order []string

	for _, r := range replies {
		key, err := canonicalKey(r.response)
		if err != nil {
			c.logger.Warn(ctx, "unhashable consistency response dropped",
				observe.Field{Key: "peer_id", Value: r.peerID},
				observe.Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			representatives[key] = r.response
		}
		counts[key]++
	}

	bestCount := 0
	bestKey := ""
	for _, key := range order {
		if counts[key] > bestCount {
			bestCount = counts[key]
			bestKey = key
		}
	}

	if bestCount < required {
		return nil, 0, &NoQuorumError{
			Best:     bestCount,
			Required: required,
			Healthy:  len(peers),
		}
	}
	return representatives[bestKey], bestCount, nil
}

// canonicalKey serializes a response to a canonical form: JSON with
// lexicographically ordered map keys at every depth, which Go's
// encoder produces for map types.
func canonicalKey(response map[string]any) (string, error) {
	data, err := json.Marshal(response)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
