// Package coordinator composes circuit breaking, retry, peer health
// tracking, operation aggregation, and checkpointing into resilient
// multi-peer primitives over a transport: shard transfer with
// failover, batched dataset sync with resumption, bounded fan-out
// with early quorum, reliability-weighted broadcast, and
// quorum-checked consistent reads.
//
// Every outbound call flows through a named circuit breaker and the
// coordinator's retry policy, and its outcome feeds the peer health
// monitor. Multi-peer operations recover per-peer failures into an
// operation.Result so callers observe partial success; single-target
// helpers surface the final error directly.
package coordinator
