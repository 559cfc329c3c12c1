package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/peerops/observe"
	"github.com/jonwraymond/peerops/transport"
)

// MonitorConfig configures the background health monitor.
type MonitorConfig struct {
	// Interval between probe sweeps. Defaults to 60s.
	Interval time.Duration

	// ProbeTimeout bounds each individual health-check call. Defaults to 2s.
	ProbeTimeout time.Duration

	// ResponseWindow caps the per-peer response-time sample buffer.
	// Defaults to 10.
	ResponseWindow int

	// Logger for probe activity. Defaults to a no-op logger.
	Logger observe.Logger

	// Metrics records probe calls. Defaults to a no-op implementation.
	Metrics observe.Metrics
}

// Monitor probes connected peers on a fixed interval and maintains
// per-peer health state. Callers may also feed outcomes in directly
// via RecordSuccess/RecordFailure as their own peer calls resolve.
type Monitor struct {
	config    MonitorConfig
	transport transport.Transport

	mu    sync.RWMutex
	peers map[string]*PeerHealth
	order []string // insertion order, for stable tie-breaking

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewMonitor creates a health monitor over the given transport.
func NewMonitor(t transport.Transport, config MonitorConfig) *Monitor {
	if config.Interval <= 0 {
		config.Interval = 60 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 2 * time.Second
	}
	if config.ResponseWindow < 1 {
		config.ResponseWindow = 10
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}

	return &Monitor{
		config:    config,
		transport: t,
		peers:     make(map[string]*PeerHealth),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background probe loop. Calling Start more than
// once has no effect.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

// Stop terminates the probe loop and waits for it to exit. Safe to
// call multiple times and before Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	select {
	case <-m.done:
	case <-time.After(m.config.ProbeTimeout + time.Second):
		// The loop is mid-probe; it will observe stop on its next tick.
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// Probe immediately on start rather than waiting a full interval.
	m.probeAll(ctx)

	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

// probeAll checks every connected peer that has not been checked
// within the current interval.
func (m *Monitor) probeAll(ctx context.Context) {
	for _, peerID := range m.transport.ConnectedPeers(ctx) {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		ph := m.ensure(peerID)
		if time.Since(ph.lastCheck()) < m.config.Interval {
			continue
		}
		m.probe(ctx, peerID, ph)
	}
}

func (m *Monitor) probe(ctx context.Context, peerID string, ph *PeerHealth) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	meta := observe.CallMeta{Peer: peerID, Operation: "health_check"}
	start := time.Now()

	report, err := m.transport.HealthCheck(probeCtx, peerID)
	elapsed := time.Since(start)

	m.config.Metrics.RecordCall(ctx, meta, elapsed, err)

	if err != nil {
		ph.RecordFailure()
		m.config.Logger.WithCall(meta).Warn(ctx, "health check failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	rt := report.ResponseTime
	if rt <= 0 {
		rt = elapsed
	}
	ph.UpdateResponseTime(rt)
	ph.RecordSuccess()
	ph.MergeCapabilities(report.Capabilities)
	ph.MergeLoadMetrics(report.LoadMetrics)

	m.config.Logger.WithCall(meta).Debug(ctx, "health check succeeded",
		observe.Field{Key: "response_time_ms", Value: float64(rt.Milliseconds())},
	)
}

// ensure returns the peer's health entry, creating one lazily.
func (m *Monitor) ensure(peerID string) *PeerHealth {
	m.mu.RLock()
	ph, ok := m.peers[peerID]
	m.mu.RUnlock()
	if ok {
		return ph
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ph, ok := m.peers[peerID]; ok {
		return ph
	}
	ph = NewPeerHealth(peerID, m.config.ResponseWindow)
	m.peers[peerID] = ph
	m.order = append(m.order, peerID)
	return ph
}

// RecordSuccess feeds a successful peer call outcome into health tracking.
func (m *Monitor) RecordSuccess(peerID string) {
	m.ensure(peerID).RecordSuccess()
}

// RecordFailure feeds a failed peer call outcome into health tracking.
func (m *Monitor) RecordFailure(peerID string) {
	m.ensure(peerID).RecordFailure()
}

// UpdateResponseTime feeds a response-time sample into health tracking.
func (m *Monitor) UpdateResponseTime(peerID string, d time.Duration) {
	m.ensure(peerID).UpdateResponseTime(d)
}

// Health returns a snapshot of the named peer, if known.
func (m *Monitor) Health(peerID string) (Snapshot, bool) {
	m.mu.RLock()
	ph, ok := m.peers[peerID]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return ph.Snapshot(), true
}

// Snapshots returns point-in-time health for every known peer.
func (m *Monitor) Snapshots() map[string]Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Snapshot, len(m.peers))
	for id, ph := range m.peers {
		out[id] = ph.Snapshot()
	}
	return out
}

// HealthyNodes returns the IDs of peers whose status is healthy.
// Degraded peers are excluded here even though SelectBestNodes will
// still consider them.
func (m *Monitor) HealthyNodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, id := range m.order {
		if m.peers[id].Status() == StatusHealthy {
			out = append(out, id)
		}
	}
	return out
}

// SelectBestNodes returns up to count peer IDs ranked by availability
// score, excluding unhealthy peers and any in the exclude list. Ties
// keep insertion order.
func (m *Monitor) SelectBestNodes(count int, exclude []string) []string {
	if count <= 0 {
		return nil
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	type candidate struct {
		id    string
		score float64
	}

	m.mu.RLock()
	candidates := make([]candidate, 0, len(m.order))
	for _, id := range m.order {
		if excluded[id] {
			continue
		}
		ph := m.peers[id]
		if ph.Status() == StatusUnhealthy {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: ph.Score()})
	}
	m.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if count > len(candidates) {
		count = len(candidates)
	}
	out := make([]string, 0, count)
	for _, c := range candidates[:count] {
		out = append(out, c.id)
	}
	return out
}

// PeerCount returns the number of peers under observation.
func (m *Monitor) PeerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}
