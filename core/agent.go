package core

// Agent defines the single capability every participant in a coordination run
// must expose: given a run-scoped execution context, produce an AgentReport.
//
// Agents are the primary processing units in Conductor. They are registered
// with the Coordinator under a string identifier and referenced by that
// identifier from ExecutionPlans. The engine never inspects agent internals;
// it only relies on the contract below.
//
// Implementations must:
//   - Respect context cancellation for graceful shutdown (rc.Done / rc.Err)
//   - Never mutate the shared AgentContext
//   - Route all shared state through the run's KnowledgeStore (rc.Put / rc.Get)
//   - Be safe to invoke concurrently with other agents
//
// A recoverable failure is signalled by returning a report containing an
// error-signal insight. Returning a non-nil error (or panicking) is treated
// by the executor as an agent fault and converted into an error insight; it
// never crashes the run.
type Agent interface {
	ID() string
	Run(rc *RunContext) (*AgentReport, error)
	Description() string
}
