// Package operation aggregates per-peer outcomes for logical
// multi-peer operations. A Result collects successes and failures as
// concurrent peer calls resolve and derives a terminal status on
// completion; a Registry keeps results addressable by ID.
package operation
