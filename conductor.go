// Package conductor provides a high-level façade over the strategy executor,
// refinement loop and service abstractions (knowledge store & logging)
// enabling rapid construction of multi-agent coordination runs. Most
// applications interact with this package by:
//  1. Creating a Coordinator via New() (optionally overriding the knowledge
//     store factory and logger)
//  2. Registering one or more agents implementing core.Agent
//  3. Running declarative ExecutionPlans via RunPlan
//
// The façade delegates execution to executor.Executor (and refine.Loop for
// iterative plans) while keeping setup and usage ergonomics concise. All
// defaults are safe for local development and testing; production deployments
// typically supply a durable knowledge backend and a structured logger.
package conductor

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/conductor/aggregate"
	"github.com/hupe1980/conductor/core"
	"github.com/hupe1980/conductor/executor"
	"github.com/hupe1980/conductor/knowledge"
	"github.com/hupe1980/conductor/logging"
	"github.com/hupe1980/conductor/refine"
)

// Options configures the Coordinator.
type Options struct {
	// Knowledge produces the run-scoped knowledge store for each run.
	// Defaults to a fresh in-memory store per run, guaranteeing no cross-run
	// leakage.
	Knowledge core.KnowledgeFactory

	// GracePeriod bounds how long a cancelled or timed-out agent may take to
	// hand back a partial report. Zero keeps the executor default.
	GracePeriod time.Duration

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Coordinator is the public entry point of the engine: it keeps the closed
// registry of agent implementations and turns ExecutionPlans into aggregated
// reports. All methods are safe for concurrent use.
type Coordinator struct {
	mu     sync.RWMutex
	agents map[string]core.Agent

	knowledge core.KnowledgeFactory
	grace     time.Duration
	logger    logging.Logger
}

// New creates a Coordinator with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Knowledge: func(string) core.KnowledgeStore { return knowledge.NewInMemoryStore() },
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Coordinator{
		agents:    make(map[string]core.Agent),
		knowledge: opts.Knowledge,
		grace:     opts.GracePeriod,
		logger:    opts.Logger,
	}
}

// Register makes an agent available for plans under its identifier. A plan
// referencing an unregistered identifier is rejected before execution starts.
func (c *Coordinator) Register(agents ...core.Agent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range agents {
		if a == nil || a.ID() == "" {
			return core.NewConfigError("agent registration requires a non-empty identifier")
		}
		if _, exists := c.agents[a.ID()]; exists {
			return core.NewConfigError("agent %q is already registered", a.ID())
		}
		c.agents[a.ID()] = a
	}

	return nil
}

// Agent returns the registered agent for id, or nil.
func (c *Coordinator) Agent(id string) core.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.agents[id]
}

// RunPlan validates and executes one coordination run, returning the
// aggregated report. Callers always receive a structured report, even for
// Failed runs. Configuration errors (unregistered agent, malformed plan) and
// a nil plan reject the run before any agent executes.
func (c *Coordinator) RunPlan(ctx context.Context, run *core.AgentContext, plan *core.ExecutionPlan) (*core.AggregatedReport, error) {
	if plan == nil {
		return nil, core.ErrNilPlan
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if run == nil {
		run = core.NewAgentContext(nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	agents, err := c.resolve(plan)
	if err != nil {
		return nil, err
	}

	if plan.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.GlobalTimeout)
		defer cancel()
	}

	store := c.knowledge(run.RunID())
	exec := executor.New(agents, store, func(o *executor.Options) {
		o.Logger = c.logger
		if c.grace > 0 {
			o.GracePeriod = c.grace
		}
	})

	c.logger.Info("run starting", "run_id", run.RunID(), "plan_id", plan.ID, "strategy", string(plan.Strategy))

	report := &core.AggregatedReport{
		PlanID:   plan.ID,
		RunID:    run.RunID(),
		Strategy: plan.Strategy,
	}
	agg := aggregate.New(plan.Participants())

	if plan.Strategy == core.StrategyIterative {
		loop := refine.New(exec, store, func(o *refine.Options) { o.Logger = c.logger })
		outcome := loop.Run(ctx, run, plan)

		final := outcome.Final
		reports := final.Reports
		if outcome.CapHit != nil {
			// The cap is a warning on the run, attributed to the coordinator.
			capReport := core.NewAgentReport("coordinator").Add(*outcome.CapHit)
			reports = append(reports, *capReport)
		}

		report.State = final.State
		report.SubReports = agg.SortReports(reports)
		report.Insights, report.Signal = agg.Merge(reports)
		report.Rounds = outcome.Rounds
		report.RoundCount = len(outcome.Rounds)
		report.Converged = outcome.Converged
	} else {
		res := exec.Execute(ctx, run, plan)
		report.State = res.State
		report.Path = res.Path
		report.SubReports = agg.SortReports(res.Reports)
		report.Insights, report.Signal = agg.Merge(res.Reports)
	}

	c.logger.Info("run finished",
		"run_id", run.RunID(), "plan_id", plan.ID,
		"state", string(report.State), "signal", string(report.Signal), "insights", len(report.Insights))

	return report, nil
}

// resolve maps every plan participant to its registered implementation,
// rejecting the run on the first unregistered identifier.
func (c *Coordinator) resolve(plan *core.ExecutionPlan) (map[string]core.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	agents := make(map[string]core.Agent)
	for _, id := range plan.Participants() {
		a, ok := c.agents[id]
		if !ok {
			return nil, core.NewConfigError("agent %q is not registered", id)
		}
		agents[id] = a
	}

	return agents, nil
}
