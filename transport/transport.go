package transport

import (
	"context"
	"time"
)

// Transport is the peer network collaborator consumed by the coordination
// layer. Implementations own connection management, message framing, and
// peer discovery; this package only defines the contract.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: all methods must honor cancellation/deadlines.
// - Errors: failures should be classified with the sentinel errors in this
//   package so the retry layer can distinguish retryable failures.
type Transport interface {
	// SendMessage sends a protocol message to a peer and returns the decoded
	// response. The timeout bounds the round trip.
	SendMessage(ctx context.Context, peerID, protocol string, payload map[string]any, timeout time.Duration) (map[string]any, error)

	// ConnectToPeer establishes (or re-establishes) a connection to a peer.
	ConnectToPeer(ctx context.Context, peerID string) error

	// ConnectedPeers returns the IDs of currently connected peers.
	ConnectedPeers(ctx context.Context) []string

	// HealthCheck performs a timed liveness probe against a peer.
	HealthCheck(ctx context.Context, peerID string) (HealthReport, error)
}

// ShardManager is an optional capability of a Transport implementation.
// Callers should type-assert for it; absence of the capability is reported
// as ErrNotSupported by the consuming layer rather than probed ad hoc.
type ShardManager interface {
	// TransferShard moves one dataset shard to a peer.
	TransferShard(ctx context.Context, shardID, peerID string) (map[string]any, error)

	// SyncDataset reconciles a dataset with a single peer.
	SyncDataset(ctx context.Context, datasetID, peerID string) (map[string]any, error)

	// RebalanceShards redistributes shards of a dataset across target nodes.
	RebalanceShards(ctx context.Context, datasetID string, targetReplication int, targetNodes []string, maxConcurrent int) (map[string]any, error)
}

// HealthReport is the payload returned by a successful health probe.
type HealthReport struct {
	// ResponseTime is the observed probe round-trip time.
	ResponseTime time.Duration

	// Capabilities advertises optional peer features (merged into the
	// peer's health record).
	Capabilities map[string]any

	// LoadMetrics carries peer-reported load data (merged into the
	// peer's health record).
	LoadMetrics map[string]any
}
