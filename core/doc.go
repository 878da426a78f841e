// Package core provides the foundational domain types, interfaces and execution
// contexts used by Conductor. It defines the core abstractions for:
//
//   - Agents (independently invokable, capability-bearing units of work)
//   - AgentContext / RunContext (immutable run input & scoped execution state)
//   - Insights, reports and the aggregated run report
//   - ExecutionPlan (declarative description of strategy, participants, policies)
//   - The pluggable KnowledgeStore contract for run-scoped shared findings
//
// The package intentionally keeps implementation concerns (store backends,
// strategy execution, concrete agents) out of scope, exposing small interfaces
// to enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
