package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/conductor/barrier"
	"github.com/hupe1980/conductor/core"
)

// runParallel launches all of the plan's agents concurrently (bounded by the
// plan's concurrency limit) behind a single barrier listing every agent as a
// participant. The run completes when the barrier releases by full arrival
// and fails on a barrier timeout. Under fail-fast the first error-grade
// outcome cancels the remaining in-flight agents cooperatively; forced
// arrivals keep the barrier from hanging.
func (e *Executor) runParallel(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan) *Result {
	reports, bstate, tripped := e.runConcurrent(ctx, run, plan, "parallel:"+plan.ID, plan.AgentIDs)

	state := core.StateCompleted
	if bstate == barrier.StateReleasedTimeout || tripped {
		state = core.StateFailed
	}

	return &Result{State: state, Reports: reports, Barrier: bstate}
}

// runConcurrent is the shared concurrent execution core used by the parallel
// strategy and by conditional stage internals. It returns the collected
// reports, the barrier's terminal state, and whether fail-fast tripped.
func (e *Executor) runConcurrent(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan, name string, ids []string) ([]core.AgentReport, barrier.State, bool) {
	bar := barrier.New(name, ids, plan.BarrierTimeout)

	limit := int64(plan.Concurrency)
	if limit <= 0 {
		limit = int64(len(ids))
	}
	sem := semaphore.NewWeighted(limit)

	// groupCtx lets fail-fast cancel in-flight siblings without touching the
	// run-level context.
	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		reports []core.AgentReport
		tripped bool
	)

	for _, id := range ids {
		go func(id string) {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				// Cancelled while queued; never ran.
				report := core.NewAgentReport(id).
					Add(core.NewInsight(core.SignalError, "agent cancelled", "cancelled before execution started"))
				mu.Lock()
				reports = append(reports, *report)
				mu.Unlock()
				bar.ArriveWithFailure(id)
				return
			}
			defer sem.Release(1)

			report, failed := e.invoke(groupCtx, run, id, plan.AgentTimeout)

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()

			if failed || report.HasError() {
				if plan.Policy() == core.FailFast {
					mu.Lock()
					tripped = true
					mu.Unlock()
					cancel()
				}
				bar.ArriveWithFailure(id)
				return
			}

			bar.Arrive(id)
		}(id)
	}

	bstate := bar.Await(ctx)

	// Stop any stragglers after a timeout release before collecting.
	cancel()

	e.logger.Info("barrier released", "barrier", bar.Name(), "state", string(bstate), "arrived", bar.Arrived(), "failures", len(bar.Failures()))

	mu.Lock()
	collected := make([]core.AgentReport, len(reports))
	copy(collected, reports)
	trippedNow := tripped
	mu.Unlock()

	return collected, bstate, trippedNow
}
