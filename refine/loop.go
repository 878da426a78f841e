// Package refine drives iterative convergence on top of the strategy
// executor. Each round delegates to the plan's round strategy, snapshots the
// knowledge store and evaluates the plan's convergence predicate against the
// previous round. The loop stops when the predicate holds or the configured
// iteration cap is reached, whichever comes first; hitting the cap is
// reported as a warn-level insight, not a failure.
package refine

import (
	"context"
	"slices"

	"github.com/hupe1980/conductor/core"
	"github.com/hupe1980/conductor/executor"
	"github.com/hupe1980/conductor/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives per-round structured logs.
	Logger logging.Logger
}

// Loop owns the convergence decision of an iterative plan. The strategy
// executor only ever runs one round at a time.
type Loop struct {
	exec   *executor.Executor
	store  core.KnowledgeStore
	logger logging.Logger
}

// New constructs a refinement loop over an executor and the run-scoped store.
func New(exec *executor.Executor, store core.KnowledgeStore, optFns ...func(o *Options)) *Loop {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Loop{exec: exec, store: store, logger: opts.Logger}
}

// Outcome is the result of a full refinement run: the last round's raw
// result, the retained round history and whether convergence was reached
// before the iteration cap.
type Outcome struct {
	Final     *executor.Result
	Rounds    []core.Round
	Converged bool

	// CapHit carries the warn insight to attach when the iteration cap
	// stopped the loop.
	CapHit *core.AgentInsight
}

// Run executes refinement rounds until the plan's convergence predicate holds
// or MaxIterations is reached. Each round's reports are retained in order for
// inspection.
func (l *Loop) Run(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan) *Outcome {
	roundPlan := plan.RoundPlan()
	predicate := plan.Converged
	if predicate == nil {
		predicate = DefaultConvergence
	}

	outcome := &Outcome{}
	var prev *core.RoundState

	for i := 1; i <= plan.MaxIterations; i++ {
		res := l.exec.Execute(ctx, run, roundPlan)
		outcome.Final = res

		curr := &core.RoundState{
			Reports:  res.Reports,
			Snapshot: l.store.Snapshot(),
			Signal:   roundSignal(res.Reports),
		}

		changed := DiffSnapshots(snapshotOf(prev), curr.Snapshot)
		outcome.Rounds = append(outcome.Rounds, core.Round{
			Number:      i,
			Reports:     res.Reports,
			Signal:      curr.Signal,
			ChangedKeys: changed,
		})

		converged := predicate(prev, curr)
		l.logger.Info("refinement round completed",
			"round", i, "signal", string(curr.Signal), "changed_keys", len(changed), "converged", converged)

		if converged {
			outcome.Converged = true
			return outcome
		}

		if res.State == core.StateFailed {
			// A failed round (fail-fast, barrier timeout, cancellation)
			// cannot meaningfully refine further.
			return outcome
		}

		prev = curr
	}

	capInsight := core.NewInsight(core.SignalWarn, "iteration cap reached",
		"refinement stopped after the configured maximum iteration count without converging").
		WithData(map[string]any{"max_iterations": plan.MaxIterations})
	outcome.CapHit = &capInsight

	return outcome
}

// DefaultConvergence is the convergence predicate used when the plan does not
// supply one: the round produced no error-signal insights AND no knowledge
// store key changed since the prior round. It can never hold on the first
// round since there is nothing to diff against.
func DefaultConvergence(prev, curr *core.RoundState) bool {
	if prev == nil {
		return false
	}
	if curr.Signal == core.SignalError {
		return false
	}
	return len(DiffSnapshots(prev.Snapshot, curr.Snapshot)) == 0
}

// DiffSnapshots returns the sorted set of keys whose presence or version
// differs between the two snapshots.
func DiffSnapshots(prev, curr map[string]core.KnowledgeEntry) []string {
	var changed []string
	for k, e := range curr {
		pe, ok := prev[k]
		if !ok || pe.Version != e.Version {
			changed = append(changed, k)
		}
	}
	for k := range prev {
		if _, ok := curr[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

func snapshotOf(rs *core.RoundState) map[string]core.KnowledgeEntry {
	if rs == nil {
		return nil
	}
	return rs.Snapshot
}

func roundSignal(reports []core.AgentReport) core.Signal {
	signal := core.SignalInfo
	for _, r := range reports {
		signal = signal.Escalate(r.Signal())
	}
	return signal
}
