package coordinator

import (
	"context"
	"time"

	"github.com/jonwraymond/peerops/checkpoint"
	"github.com/jonwraymond/peerops/observe"
	"github.com/jonwraymond/peerops/operation"
	"github.com/jonwraymond/peerops/transport"
)

// ResilientTransfer pushes a shard to each target through the
// shard_transfer circuit and retry policy, recording every outcome in
// one operation result. If any targets fail and alternates remain, one
// round of failover dispatches as many untried alternates as there
// were failures; alternate failures do not cascade further.
//
// Per-peer failures are recovered into the result rather than
// returned; the error return is reserved for shutdown and missing
// shard capability.
func (c *Coordinator) ResilientTransfer(ctx context.Context, shardID string, targets, alternates []string) (*operation.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.shards == nil {
		return nil, transport.ErrNotSupported
	}

	res := c.operations.CreateOperation("shard_transfer")
	res.Start()

	tried := make(map[string]bool, len(targets))
	for _, peerID := range targets {
		tried[peerID] = true
		c.transferOne(ctx, res, shardID, peerID)
	}

	if failures := res.FailureCount(); failures > 0 && len(alternates) > 0 {
		dispatched := 0
		for _, peerID := range alternates {
			if dispatched >= failures {
				break
			}
			if tried[peerID] {
				continue
			}
			tried[peerID] = true
			dispatched++
			c.transferOne(ctx, res, shardID, peerID)
		}
	}

	res.Complete()
	return res, nil
}

func (c *Coordinator) transferOne(ctx context.Context, res *operation.Result, shardID, peerID string) {
	meta := observe.CallMeta{Peer: peerID, Operation: "shard_transfer"}
	start := time.Now()

	var payload map[string]any
	err := c.execute(ctx, CircuitShardTransfer, func(ctx context.Context) error {
		var callErr error
		payload, callErr = c.shards.TransferShard(ctx, shardID, peerID)
		return callErr
	})

	c.observeCall(ctx, meta, time.Since(start), err)
	if err != nil {
		res.AddFailure(peerID, err.Error())
		return
	}
	res.AddSuccess(peerID, payload)
}

// ResilientRebalance delegates a rebalance of the dataset's shards to
// the transport through the shard_transfer circuit, bracketing the
// call with checkpoints so an interrupted rebalance is discoverable.
func (c *Coordinator) ResilientRebalance(ctx context.Context, datasetID string, targetReplication int, targetNodes []string, maxConcurrent int) (*operation.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.shards == nil {
		return nil, transport.ErrNotSupported
	}

	res := c.operations.CreateOperation("shard_rebalance")
	res.Start()

	c.saveCheckpoint(ctx, res.ID(), nil, targetNodes, map[string]any{
		"dataset_id":         datasetID,
		"target_replication": targetReplication,
	})

	meta := observe.CallMeta{Peer: "cluster", Operation: "shard_rebalance", DatasetID: datasetID}
	start := time.Now()

	var payload map[string]any
	err := c.execute(ctx, CircuitShardTransfer, func(ctx context.Context) error {
		var callErr error
		payload, callErr = c.shards.RebalanceShards(ctx, datasetID, targetReplication, targetNodes, maxConcurrent)
		return callErr
	})
	elapsed := time.Since(start)
	c.metrics.RecordCall(ctx, meta, elapsed, err)

	if err != nil {
		for _, peerID := range targetNodes {
			res.AddFailure(peerID, err.Error())
		}
		res.SetErrorMessage(err.Error())
		res.Complete()
		return res, nil
	}

	for _, peerID := range targetNodes {
		res.AddSuccess(peerID, payload)
	}
	c.saveCheckpoint(ctx, res.ID(), targetNodes, nil, map[string]any{
		"dataset_id":         datasetID,
		"target_replication": targetReplication,
	})

	res.Complete()
	return res, nil
}

// saveCheckpoint persists progress best-effort; persistence failures
// are logged, never surfaced.
func (c *Coordinator) saveCheckpoint(ctx context.Context, operationID string, completed, pending []string, metadata map[string]any) {
	cp := checkpoint.New(operationID, completed, pending)
	cp.Metadata = metadata
	if err := c.checkpoints.Save(cp); err != nil {
		c.logger.Warn(ctx, "checkpoint save failed",
			observe.Field{Key: "operation_id", Value: operationID},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}
