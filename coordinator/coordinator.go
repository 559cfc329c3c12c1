package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/peerops/checkpoint"
	"github.com/jonwraymond/peerops/health"
	"github.com/jonwraymond/peerops/observe"
	"github.com/jonwraymond/peerops/operation"
	"github.com/jonwraymond/peerops/resilience"
	"github.com/jonwraymond/peerops/transport"
)

// Circuit names protecting each class of outbound peer call.
const (
	CircuitShardTransfer  = "shard_transfer"
	CircuitDatasetSync    = "dataset_sync"
	CircuitNodeConnection = "node_connection"
	CircuitMessageSend    = "message_send"
)

// Config holds configuration for the Coordinator.
type Config struct {
	// Circuits overrides the default circuit breaker set. When nil, one
	// breaker per standard circuit name is created with default settings.
	Circuits []resilience.CircuitBreakerConfig

	// Retry is the default retry policy for outbound calls. Zero fields
	// take the resilience package defaults; the RetryIf predicate defaults
	// to transport error classification. JitterFactor zero takes the 0.2
	// default; a negative value disables jitter entirely.
	Retry resilience.RetryConfig

	// HealthCheckInterval is how often the health monitor sweeps
	// connected peers. Defaults to 60s.
	HealthCheckInterval time.Duration

	// ProbeTimeout bounds each health-check call. Defaults to 2s.
	ProbeTimeout time.Duration

	// DefaultTimeout bounds individual peer calls when the caller does
	// not supply one. Defaults to 30s.
	DefaultTimeout time.Duration

	// CheckpointDir is where resumable operations persist progress.
	// Defaults to "checkpoints".
	CheckpointDir string

	// Logger receives structured call logs. Defaults to a no-op logger.
	Logger observe.Logger

	// Metrics records call and circuit telemetry. Defaults to a no-op
	// implementation.
	Metrics observe.Metrics
}

// Coordinator composes circuit breaking, retry, health tracking,
// operation aggregation, and checkpointing around a transport. It is
// the single entry point for resilient multi-peer primitives.
type Coordinator struct {
	config    Config
	transport transport.Transport
	shards    transport.ShardManager // nil when the transport lacks the capability

	mu        sync.RWMutex
	circuits  map[string]*resilience.CircuitBreaker
	executors map[string]*resilience.Executor

	retry       *resilience.Retry
	passthrough *resilience.Executor // retry only, for unregistered circuit names
	monitor     *health.Monitor
	operations  *operation.Registry
	checkpoints *checkpoint.Store

	logger  observe.Logger
	metrics observe.Metrics

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Coordinator bound to the given transport. The shard
// capability is probed once at construction; transports without it
// cause shard operations to fail with transport.ErrNotSupported.
func New(t transport.Transport, config Config) *Coordinator {
	if config.HealthCheckInterval <= 0 {
		config.HealthCheckInterval = 60 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 2 * time.Second
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	if config.CheckpointDir == "" {
		config.CheckpointDir = "checkpoints"
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Retry.RetryIf == nil {
		config.Retry.RetryIf = transport.IsRetryable
	}
	if config.Retry.JitterFactor == 0 {
		config.Retry.JitterFactor = 0.2
	} else if config.Retry.JitterFactor < 0 {
		config.Retry.JitterFactor = 0
	}

	c := &Coordinator{
		config:      config,
		transport:   t,
		operations:  operation.NewRegistry(),
		checkpoints: checkpoint.NewStore(config.CheckpointDir),
		logger:      config.Logger,
		metrics:     config.Metrics,
		circuits:    make(map[string]*resilience.CircuitBreaker),
		executors:   make(map[string]*resilience.Executor),
		closed:      make(chan struct{}),
	}

	c.shards, _ = t.(transport.ShardManager)
	c.retry = resilience.NewRetry(config.Retry)
	c.passthrough = resilience.NewExecutor(resilience.WithRetry(c.retry))

	circuitConfigs := config.Circuits
	if circuitConfigs == nil {
		circuitConfigs = defaultCircuits()
	}
	for _, cc := range circuitConfigs {
		c.registerCircuit(cc)
	}

	c.monitor = health.NewMonitor(t, health.MonitorConfig{
		Interval:     config.HealthCheckInterval,
		ProbeTimeout: config.ProbeTimeout,
		Logger:       config.Logger,
		Metrics:      config.Metrics,
	})

	return c
}

func defaultCircuits() []resilience.CircuitBreakerConfig {
	names := []string{
		CircuitShardTransfer,
		CircuitDatasetSync,
		CircuitNodeConnection,
		CircuitMessageSend,
	}
	configs := make([]resilience.CircuitBreakerConfig, 0, len(names))
	for _, name := range names {
		configs = append(configs, resilience.CircuitBreakerConfig{Name: name})
	}
	return configs
}

func (c *Coordinator) registerCircuit(cc resilience.CircuitBreakerConfig) {
	userHook := cc.OnStateChange
	cc.OnStateChange = func(name string, from, to resilience.State) {
		c.metrics.RecordStateChange(context.Background(), name, from.String(), to.String())
		c.logger.Warn(context.Background(), "circuit state changed",
			observe.Field{Key: "circuit", Value: name},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	cb := resilience.NewCircuitBreaker(cc)

	// Each circuit gets its own composed chain: breaker outside, retry
	// inside, and a per-attempt timeout for the calls whose transport
	// methods take no explicit deadline.
	opts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(cb),
		resilience.WithRetry(c.retry),
	}
	switch cc.Name {
	case CircuitShardTransfer, CircuitDatasetSync, CircuitNodeConnection:
		opts = append(opts, resilience.WithTimeout(c.config.DefaultTimeout))
	}

	c.mu.Lock()
	c.circuits[cc.Name] = cb
	c.executors[cc.Name] = resilience.NewExecutor(opts...)
	c.mu.Unlock()
}

// Circuit returns the named circuit breaker, or nil when none is
// registered under that name.
func (c *Coordinator) Circuit(name string) *resilience.CircuitBreaker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.circuits[name]
}

// Monitor exposes the coordinator's health monitor.
func (c *Coordinator) Monitor() *health.Monitor {
	return c.monitor
}

// Operations exposes the operation registry for result lookup.
func (c *Coordinator) Operations() *operation.Registry {
	return c.operations
}

// Checkpoints exposes the checkpoint store.
func (c *Coordinator) Checkpoints() *checkpoint.Store {
	return c.checkpoints
}

// Start launches the background health monitor.
func (c *Coordinator) Start(ctx context.Context) {
	c.monitor.Start(ctx)
}

// Shutdown stops the health monitor and rejects new operations.
// In-flight calls are allowed to finish naturally. Safe to call
// multiple times.
func (c *Coordinator) Shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.monitor.Stop()
	})
}

// checkOpen reports ErrShutdown once Shutdown has been called.
func (c *Coordinator) checkOpen() error {
	select {
	case <-c.closed:
		return ErrShutdown
	default:
		return nil
	}
}

// execute runs op through the chain composed for the named circuit.
// Calls with no circuit registered under the name pass straight to
// retry.
func (c *Coordinator) execute(ctx context.Context, circuitName string, op func(context.Context) error) error {
	c.mu.RLock()
	ex, ok := c.executors[circuitName]
	c.mu.RUnlock()
	if !ok {
		ex = c.passthrough
	}
	return ex.Execute(ctx, op)
}

// observeCall records health feedback and telemetry for a finished
// peer call.
func (c *Coordinator) observeCall(ctx context.Context, meta observe.CallMeta, elapsed time.Duration, err error) {
	c.metrics.RecordCall(ctx, meta, elapsed, err)
	switch {
	case err == nil:
		c.monitor.RecordSuccess(meta.Peer)
		c.monitor.UpdateResponseTime(meta.Peer, elapsed)
	case errors.Is(err, resilience.ErrCircuitOpen):
		// Fast-fail without a call: circuits are shared per resource, so
		// an open breaker says nothing about this particular peer.
	default:
		c.monitor.RecordFailure(meta.Peer)
	}
}

// SendMessageWithRetry sends one message to a peer through the
// message_send circuit and the retry policy. The final error after
// exhausted retries surfaces to the caller.
func (c *Coordinator) SendMessageWithRetry(ctx context.Context, peerID, protocol string, payload map[string]any, timeout time.Duration) (map[string]any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = c.config.DefaultTimeout
	}

	meta := observe.CallMeta{Peer: peerID, Operation: "message_send", Protocol: protocol}
	start := time.Now()

	var response map[string]any
	err := c.execute(ctx, CircuitMessageSend, func(ctx context.Context) error {
		var callErr error
		response, callErr = c.transport.SendMessage(ctx, peerID, protocol, payload, timeout)
		return callErr
	})

	c.observeCall(ctx, meta, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ConnectToPeerWithRetry dials a peer through the node_connection
// circuit and the retry policy.
func (c *Coordinator) ConnectToPeerWithRetry(ctx context.Context, peerID string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	meta := observe.CallMeta{Peer: peerID, Operation: "node_connection"}
	start := time.Now()

	err := c.execute(ctx, CircuitNodeConnection, func(ctx context.Context) error {
		return c.transport.ConnectToPeer(ctx, peerID)
	})

	c.observeCall(ctx, meta, time.Since(start), err)
	return err
}
