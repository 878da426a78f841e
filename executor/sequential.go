package executor

import (
	"context"

	"github.com/hupe1980/conductor/core"
)

// runSequential executes the plan's agents one at a time in plan order. Each
// agent can consult the knowledge store for its predecessors' findings; the
// AgentContext itself is never re-threaded. Under fail-fast the first
// error-grade outcome transitions the run to Failed and skips the remaining
// agents, still returning the insights gathered so far. Under collect-all
// every planned agent runs regardless of prior failures.
func (e *Executor) runSequential(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan) *Result {
	res := &Result{State: core.StateRunning}

	for _, id := range plan.AgentIDs {
		if ctx.Err() != nil {
			// Run-level cancellation skips the remaining agents.
			res.State = core.StateFailed
			return res
		}

		report, failed := e.invoke(ctx, run, id, plan.AgentTimeout)
		res.Reports = append(res.Reports, report)

		if plan.Policy() == core.FailFast && (failed || report.HasError()) {
			e.logger.Info("fail-fast triggered, skipping remaining agents", "agent_id", id, "plan_id", plan.ID)
			res.State = core.StateFailed
			return res
		}
	}

	res.State = core.StateCompleted
	return res
}
