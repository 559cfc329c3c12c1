// Package checkpoint persists progress snapshots for resumable
// multi-peer operations. Each checkpoint records the completed and
// pending work items for one operation and is stored as a standalone
// JSON file whose name sorts in creation order.
package checkpoint
