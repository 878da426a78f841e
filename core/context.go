package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/conductor/logging"
)

// AgentContext is the immutable per-run input shared by reference across all
// agents participating in one coordination run. It carries a unique run
// identifier, the creation timestamp and an arbitrary key/value payload.
//
// The payload is copied on construction and on read so no caller or agent can
// mutate it after creation.
type AgentContext struct {
	runID   string
	created time.Time
	payload map[string]any
}

// NewAgentContext creates a run context with a generated run identifier.
// The payload map is copied; the caller may reuse or mutate its own map freely
// afterwards.
func NewAgentContext(payload map[string]any) *AgentContext {
	return newAgentContext(uuid.NewString(), payload)
}

func newAgentContext(runID string, payload map[string]any) *AgentContext {
	cp := make(map[string]any, len(payload))
	for k, v := range payload {
		cp[k] = v
	}
	return &AgentContext{runID: runID, created: time.Now().UTC(), payload: cp}
}

// RunID returns the unique identifier of this run.
func (c *AgentContext) RunID() string { return c.runID }

// Created returns the creation timestamp of the context.
func (c *AgentContext) Created() time.Time { return c.created }

// Value returns the payload value for key and whether it was present.
func (c *AgentContext) Value(key string) (any, bool) {
	v, ok := c.payload[key]
	return v, ok
}

// Payload returns a defensive copy of the full payload map.
func (c *AgentContext) Payload() map[string]any {
	cp := make(map[string]any, len(c.payload))
	for k, v := range c.payload {
		cp[k] = v
	}
	return cp
}

// RunContext is the scoped execution state handed to an Agent's Run method.
// It aggregates:
//   - The ambient cancellation Context (per-agent timeout already applied)
//   - The immutable AgentContext for the run
//   - The agent's own identifier (used to tag knowledge writes)
//   - The run-scoped KnowledgeStore
//
// A fresh RunContext is created by the executor for every agent invocation;
// agents must not retain it beyond the call.
type RunContext struct {
	Context   context.Context
	Run       *AgentContext
	AgentID   string
	Knowledge KnowledgeStore

	*loggerAdapter
}

// NewRunContext constructs the execution scope for a single agent invocation.
func NewRunContext(
	ctx context.Context,
	run *AgentContext,
	agentID string,
	store KnowledgeStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		Run:           run,
		AgentID:       agentID,
		Knowledge:     store,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the invocation is cancelled or timed out.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Put writes a fact to the run's knowledge store tagged with this agent's
// identifier, returning the committed version.
func (rc *RunContext) Put(key string, value any) (uint64, error) {
	return rc.Knowledge.Put(key, value, rc.AgentID)
}

// Get reads the most recent committed value for key from the knowledge store.
func (rc *RunContext) Get(key string) (KnowledgeEntry, bool) {
	return rc.Knowledge.Get(key)
}
