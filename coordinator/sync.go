package coordinator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/peerops/observe"
	"github.com/jonwraymond/peerops/operation"
	"github.com/jonwraymond/peerops/transport"
)

// ResilientSync synchronizes a dataset with each target peer in
// batches of maxConcurrent. Calls within a batch run concurrently
// through the dataset_sync circuit and retry policy; the next batch
// starts only after the whole batch resolves. Progress is
// checkpointed after every batch so an interrupted sync can resume.
//
// Per-peer failures land in the operation result. Cancellation
// mid-sync finalizes the result as interrupted and returns the
// context error alongside it.
func (c *Coordinator) ResilientSync(ctx context.Context, datasetID string, targets []string, maxConcurrent int) (*operation.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.shards == nil {
		return nil, transport.ErrNotSupported
	}

	res := c.operations.CreateOperation("dataset_sync")
	res.Start()

	err := c.syncTargets(ctx, res, res.ID(), datasetID, targets, nil, maxConcurrent)
	if err != nil {
		res.CompleteWithStatus(operation.StatusInterrupted)
		return res, err
	}

	res.Complete()
	return res, nil
}

// ResumeSync continues a previously interrupted sync from its latest
// checkpoint, syncing only the pending targets. The resumed run
// checkpoints under the original operation ID so later resumptions
// see cumulative progress. A fully successful resumption finalizes
// as recovered.
func (c *Coordinator) ResumeSync(ctx context.Context, datasetID, operationID string, maxConcurrent int) (*operation.Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.shards == nil {
		return nil, transport.ErrNotSupported
	}

	cp, err := c.checkpoints.FindLatest(operationID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, ErrNoCheckpoint
	}

	res := c.operations.CreateOperation("dataset_sync")
	res.Start()

	err = c.syncTargets(ctx, res, operationID, datasetID, cp.PendingItems, cp.CompletedItems, maxConcurrent)
	if err != nil {
		res.CompleteWithStatus(operation.StatusInterrupted)
		return res, err
	}

	if res.FailureCount() == 0 {
		res.CompleteWithStatus(operation.StatusRecovered)
	} else {
		res.Complete()
	}
	return res, nil
}

// syncTargets drives the batched fan-out shared by ResilientSync and
// ResumeSync. previouslyCompleted seeds checkpoint continuity without
// affecting the operation result's counters.
func (c *Coordinator) syncTargets(ctx context.Context, res *operation.Result, operationID, datasetID string, targets, previouslyCompleted []string, maxConcurrent int) error {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	completed := append([]string(nil), previouslyCompleted...)
	pending := append([]string(nil), targets...)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			c.saveCheckpoint(ctx, operationID, completed, pending, map[string]any{"dataset_id": datasetID})
			return err
		}

		batch := pending
		if len(batch) > maxConcurrent {
			batch = batch[:maxConcurrent]
		}
		pending = pending[len(batch):]

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, peerID := range batch {
			g.Go(func() error {
				err := c.syncOne(gctx, res, datasetID, peerID)
				if err == nil {
					mu.Lock()
					completed = append(completed, peerID)
					mu.Unlock()
				}
				// Per-peer failures are recovered into the result; the
				// group error is reserved for cancellation.
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			// Fold the batch's unresolved members back into pending so
			// the interruption checkpoint stays total: every target is
			// either completed or pending, and a resume misses nothing.
			done := make(map[string]bool, len(completed))
			for _, id := range completed {
				done[id] = true
			}
			var unresolved []string
			for _, id := range batch {
				if !done[id] {
					unresolved = append(unresolved, id)
				}
			}
			pending = append(unresolved, pending...)
			c.saveCheckpoint(ctx, operationID, completed, pending, map[string]any{"dataset_id": datasetID})
			return err
		}

		c.saveCheckpoint(ctx, operationID, completed, pending, map[string]any{"dataset_id": datasetID})
	}

	return ctx.Err()
}

func (c *Coordinator) syncOne(ctx context.Context, res *operation.Result, datasetID, peerID string) error {
	meta := observe.CallMeta{Peer: peerID, Operation: "dataset_sync", DatasetID: datasetID}
	start := time.Now()

	var payload map[string]any
	err := c.execute(ctx, CircuitDatasetSync, func(ctx context.Context) error {
		var callErr error
		payload, callErr = c.shards.SyncDataset(ctx, datasetID, peerID)
		return callErr
	})

	c.observeCall(ctx, meta, time.Since(start), err)
	if err != nil {
		res.AddFailure(peerID, err.Error())
		return err
	}
	res.AddSuccess(peerID, payload)
	return nil
}
