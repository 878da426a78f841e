package executor

import (
	"context"

	"github.com/hupe1980/conductor/barrier"
	"github.com/hupe1980/conductor/core"
)

// runConditional routes execution through the plan's stages in declaration
// order. After each executed stage the aggregated signal so far is evaluated
// against the next stage's predicate; unmet branches are skipped and
// contribute no insights. Default branches (nil predicate) are always
// eligible. The chosen path is recorded for auditability. No matching branch
// is a valid outcome: the run completes with whatever was gathered.
func (e *Executor) runConditional(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan) *Result {
	res := &Result{State: core.StateRunning}
	signal := core.SignalInfo

	for _, stage := range plan.Stages {
		if ctx.Err() != nil {
			res.State = core.StateFailed
			return res
		}

		if stage.When != nil && !stage.When(signal) {
			e.logger.Debug("stage skipped, predicate unmet", "stage", stage.Name, "signal", string(signal))
			continue
		}

		reports, bstate, tripped := e.runConcurrent(ctx, run, plan, "stage:"+stage.Name, stage.AgentIDs)
		res.Reports = append(res.Reports, reports...)
		res.Path = append(res.Path, stage.Name)
		res.Barrier = bstate

		for _, report := range reports {
			signal = signal.Escalate(report.Signal())
		}

		if bstate == barrier.StateReleasedTimeout || tripped {
			res.State = core.StateFailed
			return res
		}
	}

	res.State = core.StateCompleted
	return res
}
