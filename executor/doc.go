// Package executor drives registered agents through one of the four execution
// strategies (sequential, parallel, conditional, iterative) as a small state
// machine: Pending → Running → {Completed, Failed}.
//
// The executor owns all recovery around agent invocations: per-agent timeouts,
// panic recovery, and cooperative cancellation with a bounded grace period.
// Agent-level failures are always converted into error-signal insights and
// never abort the coordinating process; only fail-fast policies, run
// cancellation and barrier timeouts move a run to the Failed state, and even
// then every insight gathered so far is returned.
//
// Concurrent execution (parallel strategy, conditional stage internals) runs
// on a bounded worker pool and rendezvouses on a barrier, so the executor
// itself only ever suspends on barrier awaits and knowledge store writes.
package executor
