package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/conductor/barrier"
	"github.com/hupe1980/conductor/core"
	"github.com/hupe1980/conductor/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// GracePeriod bounds how long the executor waits for a cancelled or
	// timed-out agent to hand back a partial report before treating it as
	// failed outright.
	GracePeriod time.Duration

	// Logger receives structured execution logs.
	Logger logging.Logger
}

// Executor runs the agents of one coordination run under the plan's strategy.
// It holds the resolved agent set (identifier lookup already happened in the
// coordinator) and the run-scoped knowledge store. Executors are cheap; the
// coordinator creates one per run.
type Executor struct {
	agents map[string]core.Agent
	store  core.KnowledgeStore
	grace  time.Duration
	logger logging.Logger
}

// New constructs an Executor over a resolved agent set and a run-scoped store.
func New(agents map[string]core.Agent, store core.KnowledgeStore, optFns ...func(o *Options)) *Executor {
	opts := Options{
		GracePeriod: 2 * time.Second,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		agents: agents,
		store:  store,
		grace:  opts.GracePeriod,
		logger: opts.Logger,
	}
}

// Result is the raw outcome of one strategy execution (one round for
// iterative plans). Aggregation into the caller-facing report happens in the
// coordinator.
type Result struct {
	State   core.RunState
	Reports []core.AgentReport

	// Path lists the stages a conditional run executed, in order.
	Path []string

	// Barrier is the terminal barrier state of a concurrent execution, empty
	// for sequential runs.
	Barrier barrier.State
}

// Execute drives one pass of the plan's strategy. Iterative plans execute a
// single round here; the refinement loop owns the convergence decision.
// Execute never returns an error: agent faults become insights and policy
// aborts become the Failed state, always carrying the reports collected so
// far.
func (e *Executor) Execute(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan) *Result {
	e.logger.Debug("strategy execution starting", "run_id", run.RunID(), "plan_id", plan.ID, "strategy", string(plan.Strategy))

	var res *Result
	switch plan.Strategy {
	case core.StrategySequential:
		res = e.runSequential(ctx, run, plan)
	case core.StrategyParallel:
		res = e.runParallel(ctx, run, plan)
	case core.StrategyConditional:
		res = e.runConditional(ctx, run, plan)
	case core.StrategyIterative:
		res = e.Execute(ctx, run, plan.RoundPlan())
	default:
		// Validate() rejects unknown strategies before execution starts.
		res = &Result{State: core.StateFailed}
	}

	e.logger.Info("strategy execution finished",
		"run_id", run.RunID(), "plan_id", plan.ID, "strategy", string(plan.Strategy),
		"state", string(res.State), "reports", len(res.Reports))

	return res
}

// invoke runs a single agent with per-agent timeout, panic recovery and
// cancellation handling. The returned flag reports a hard failure (fault,
// timeout, cancellation); error-signal insights inside a normally returned
// report are the caller's concern.
func (e *Executor) invoke(ctx context.Context, run *core.AgentContext, agentID string, timeout time.Duration) (core.AgentReport, bool) {
	agent := e.agents[agentID]

	invCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		invCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		report *core.AgentReport
		err    error
	}

	start := time.Now()
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		rc := core.NewRunContext(invCtx, run, agentID, e.store, e.logger)
		report, err := agent.Run(rc)
		done <- outcome{report: report, err: err}
	}()

	select {
	case out := <-done:
		return e.finishInvoke(agentID, start, out.report, out.err)
	case <-invCtx.Done():
		reason := "agent timed out"
		if ctx.Err() != nil {
			reason = "agent cancelled"
		}

		// Give the agent a bounded grace period to hand back a partial
		// report before writing it off entirely.
		var partial []core.AgentInsight
		graceTimer := time.NewTimer(e.grace)
		defer graceTimer.Stop()
		select {
		case out := <-done:
			if out.report != nil {
				partial = out.report.Insights
			}
		case <-graceTimer.C:
		}

		report := core.NewAgentReport(agentID).
			Add(partial...).
			Add(core.NewInsight(core.SignalError, reason, fmt.Sprintf("agent %q did not complete: %s", agentID, reason)))
		e.logger.Warn("agent invocation aborted", "agent_id", agentID, "reason", reason, "duration", time.Since(start))
		return *report, true
	}
}

// finishInvoke normalizes a completed invocation: a fault (non-nil error or
// nil report) is converted into an error insight, never propagated upward.
func (e *Executor) finishInvoke(agentID string, start time.Time, report *core.AgentReport, err error) (core.AgentReport, bool) {
	if err != nil {
		rep := core.NewAgentReport(agentID).
			Add(core.NewInsight(core.SignalError, "agent fault", err.Error()))
		if report != nil {
			rep.Insights = append(report.Insights, rep.Insights...)
		}
		e.logger.Warn("agent invocation faulted", "agent_id", agentID, "error", err, "duration", time.Since(start))
		return *rep, true
	}

	if report == nil {
		rep := core.NewAgentReport(agentID).
			Add(core.NewInsight(core.SignalError, "agent fault", fmt.Sprintf("agent %q returned no report", agentID)))
		return *rep, true
	}

	// Reports travel by value from here on; the agent relinquishes ownership.
	rep := *report
	rep.AgentID = agentID
	if rep.Completed.IsZero() {
		rep.Completed = time.Now().UTC()
	}

	e.logger.Debug("agent invocation completed", "agent_id", agentID, "insights", len(rep.Insights), "duration", time.Since(start))
	return rep, false
}
