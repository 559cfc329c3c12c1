package health

import (
	"sync"
	"time"
)

// Status represents the health state of a peer.
type Status int

const (
	// StatusUnknown means the peer has never been probed.
	StatusUnknown Status = iota

	// StatusHealthy means the peer responded to its last check.
	StatusHealthy

	// StatusDegraded means the peer has failed recently but may recover.
	StatusDegraded

	// StatusUnhealthy means the peer has failed repeatedly.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Number of consecutive failures before a peer is marked unhealthy.
const unhealthyFailureCount = 3

// Score adjustments per observation.
const (
	successScoreDelta = 0.1
	failureScoreDelta = 0.2
)

// PeerHealth tracks rolling health metrics for a single peer.
// Entries are created lazily on first observation and persist for
// the life of the process.
type PeerHealth struct {
	mu sync.Mutex

	peerID          string
	status          Status
	lastCheckTime   time.Time
	lastFailureTime time.Time
	failureCount    int
	score           float64

	responseTimes []time.Duration
	window        int

	capabilities map[string]any
	loadMetrics  map[string]any
}

// Snapshot is a point-in-time copy of a peer's health.
type Snapshot struct {
	PeerID          string
	Status          Status
	Score           float64
	FailureCount    int
	LastCheckTime   time.Time
	LastFailureTime time.Time
	AvgResponseTime time.Duration
	Capabilities    map[string]any
	LoadMetrics     map[string]any
}

// NewPeerHealth creates health tracking for a peer. New peers start
// with a full availability score and unknown status. window caps the
// response-time sample buffer; values < 1 use the default of 10.
func NewPeerHealth(peerID string, window int) *PeerHealth {
	if window < 1 {
		window = 10
	}
	return &PeerHealth{
		peerID:       peerID,
		status:       StatusUnknown,
		score:        1.0,
		window:       window,
		capabilities: make(map[string]any),
		loadMetrics:  make(map[string]any),
	}
}

// RecordSuccess marks the peer healthy and raises its score.
func (p *PeerHealth) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusHealthy
	p.lastCheckTime = time.Now()
	p.score = min(1.0, p.score+successScoreDelta)
}

// RecordFailure lowers the peer's score. Three or more accumulated
// failures mark it unhealthy; fewer mark it degraded.
func (p *PeerHealth) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.lastFailureTime = time.Now()
	p.score = max(0.0, p.score-failureScoreDelta)

	if p.failureCount >= unhealthyFailureCount {
		p.status = StatusUnhealthy
	} else {
		p.status = StatusDegraded
	}
}

// UpdateResponseTime appends a response-time sample, evicting the
// oldest once the window is full.
func (p *PeerHealth) UpdateResponseTime(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.responseTimes = append(p.responseTimes, d)
	if len(p.responseTimes) > p.window {
		p.responseTimes = p.responseTimes[1:]
	}
}

// MergeCapabilities stores capability values reported by the peer.
func (p *PeerHealth) MergeCapabilities(caps map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, v := range caps {
		p.capabilities[k] = v
	}
}

// MergeLoadMetrics stores load values reported by the peer.
func (p *PeerHealth) MergeLoadMetrics(metrics map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, v := range metrics {
		p.loadMetrics[k] = v
	}
}

// Status returns the peer's current status.
func (p *PeerHealth) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Score returns the peer's current availability score in [0, 1].
func (p *PeerHealth) Score() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score
}

// AvgResponseTime returns the mean of the sampled response times,
// or zero when no samples exist.
func (p *PeerHealth) AvgResponseTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avgResponseTimeLocked()
}

func (p *PeerHealth) avgResponseTimeLocked() time.Duration {
	if len(p.responseTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range p.responseTimes {
		total += d
	}
	return total / time.Duration(len(p.responseTimes))
}

// Snapshot returns a copy of the peer's current health state.
func (p *PeerHealth) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	caps := make(map[string]any, len(p.capabilities))
	for k, v := range p.capabilities {
		caps[k] = v
	}
	load := make(map[string]any, len(p.loadMetrics))
	for k, v := range p.loadMetrics {
		load[k] = v
	}

	return Snapshot{
		PeerID:          p.peerID,
		Status:          p.status,
		Score:           p.score,
		FailureCount:    p.failureCount,
		LastCheckTime:   p.lastCheckTime,
		LastFailureTime: p.lastFailureTime,
		AvgResponseTime: p.avgResponseTimeLocked(),
		Capabilities:    caps,
		LoadMetrics:     load,
	}
}

// lastCheck returns when the peer was last successfully checked.
func (p *PeerHealth) lastCheck() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCheckTime
}
