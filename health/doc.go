// Package health tracks per-peer availability for a dataset network.
//
// A PeerHealth entry holds a rolling availability score, a bounded
// window of response-time samples, and a coarse status derived from
// recent failures. The Monitor probes connected peers on an interval
// through the transport and exposes score-ranked peer selection for
// callers placing work.
package health
