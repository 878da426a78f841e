package conductor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/conductor/core"
	"github.com/hupe1980/conductor/knowledge"
)

type stubAgent struct {
	id    string
	runFn func(rc *core.RunContext) (*core.AgentReport, error)
}

func newStubAgent(id string, runFn func(rc *core.RunContext) (*core.AgentReport, error)) *stubAgent {
	if runFn == nil {
		runFn = func(rc *core.RunContext) (*core.AgentReport, error) {
			return core.NewAgentReport(rc.AgentID).Add(core.NewInsight(core.SignalInfo, "done", "")), nil
		}
	}
	return &stubAgent{id: id, runFn: runFn}
}

func (a *stubAgent) ID() string                                         { return a.id }
func (a *stubAgent) Description() string                                { return "stub agent " + a.id }
func (a *stubAgent) Run(rc *core.RunContext) (*core.AgentReport, error) { return a.runFn(rc) }

func subReportIDs(reports []core.AgentReport) []string {
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.AgentID)
	}
	return ids
}

func TestCoordinator_Register(t *testing.T) {
	c := New()

	require.NoError(t, c.Register(newStubAgent("a", nil), newStubAgent("b", nil)))
	assert.NotNil(t, c.Agent("a"))
	assert.Nil(t, c.Agent("absent"))

	err := c.Register(newStubAgent("a", nil))
	assert.True(t, core.IsConfigError(err))

	err = c.Register(newStubAgent("", nil))
	assert.True(t, core.IsConfigError(err))
}

func TestCoordinator_RunPlan_NilPlan(t *testing.T) {
	c := New()
	_, err := c.RunPlan(context.Background(), nil, nil)
	assert.ErrorIs(t, err, core.ErrNilPlan)
}

func TestCoordinator_RunPlan_UnregisteredAgent(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(newStubAgent("a", nil)))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		Strategy: core.StrategySequential,
		AgentIDs: []string{"a", "ghost"},
	})

	assert.Nil(t, report)
	assert.True(t, core.IsConfigError(err))
	assert.Contains(t, err.Error(), "ghost")
}

func TestCoordinator_RunPlan_InvalidPlan(t *testing.T) {
	c := New()

	_, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{Strategy: core.StrategySequential})
	assert.True(t, core.IsConfigError(err))
}

func TestCoordinator_RunPlan_SequentialFailFast(t *testing.T) {
	c := New()
	broken := newStubAgent("a", func(rc *core.RunContext) (*core.AgentReport, error) {
		return core.NewAgentReport(rc.AgentID).Add(core.NewInsight(core.SignalError, "disk unreadable", "")), nil
	})
	require.NoError(t, c.Register(broken, newStubAgent("b", nil)))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		ID:            "triage",
		Strategy:      core.StrategySequential,
		AgentIDs:      []string{"a", "b"},
		FailurePolicy: core.FailFast,
	})
	require.NoError(t, err)

	// The failed run still yields a structured report: one sub-report from the
	// failing agent, the error signal, and no trace of the skipped agent.
	assert.Equal(t, core.StateFailed, report.State)
	assert.Equal(t, core.SignalError, report.Signal)
	assert.Equal(t, []string{"a"}, subReportIDs(report.SubReports))
	require.Len(t, report.Insights, 1)
	assert.Equal(t, "disk unreadable", report.Insights[0].Insight.Title)
}

func TestCoordinator_RunPlan_ParallelCompletes(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(
		newStubAgent("a", nil),
		newStubAgent("b", nil),
		newStubAgent("c", nil),
	))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		ID:             "scan",
		Strategy:       core.StrategyParallel,
		AgentIDs:       []string{"a", "b", "c"},
		BarrierTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, core.SignalInfo, report.Signal)
	assert.Equal(t, []string{"a", "b", "c"}, subReportIDs(report.SubReports))
	assert.Len(t, report.Insights, 3)
}

func TestCoordinator_RunPlan_ConditionalPathIsRecorded(t *testing.T) {
	c := New()
	probe := newStubAgent("probe", func(rc *core.RunContext) (*core.AgentReport, error) {
		return core.NewAgentReport(rc.AgentID).Add(core.NewInsight(core.SignalWarn, "anomaly", "")), nil
	})
	require.NoError(t, c.Register(probe, newStubAgent("deep", nil), newStubAgent("report", nil)))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		Strategy: core.StrategyConditional,
		Stages: []core.Stage{
			{Name: "probe", AgentIDs: []string{"probe"}},
			{Name: "deep-dive", AgentIDs: []string{"deep"}, When: core.MinSignalPredicate(core.SignalWarn)},
			{Name: "summarize", AgentIDs: []string{"report"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []string{"probe", "deep-dive", "summarize"}, report.Path)
	assert.Equal(t, core.SignalWarn, report.Signal)
}

func TestCoordinator_RunPlan_IterativeConverges(t *testing.T) {
	c := New()

	rounds := 0
	refiner := newStubAgent("refiner", func(rc *core.RunContext) (*core.AgentReport, error) {
		rounds++
		if rounds == 1 {
			if _, err := rc.Put("draft", "v1"); err != nil {
				return nil, err
			}
		}
		return core.NewAgentReport(rc.AgentID), nil
	})
	require.NoError(t, c.Register(refiner))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		Strategy:      core.StrategyIterative,
		AgentIDs:      []string{"refiner"},
		MaxIterations: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, core.StateCompleted, report.State)
	assert.True(t, report.Converged)
	assert.Equal(t, 2, report.RoundCount)
	require.Len(t, report.Rounds, 2)
	assert.Equal(t, []string{"draft"}, report.Rounds[0].ChangedKeys)
}

func TestCoordinator_RunPlan_IterativeCapAnnotatesReport(t *testing.T) {
	c := New()
	restless := newStubAgent("restless", func(rc *core.RunContext) (*core.AgentReport, error) {
		if _, err := rc.Put("churn", time.Now().UnixNano()); err != nil {
			return nil, err
		}
		return core.NewAgentReport(rc.AgentID), nil
	})
	require.NoError(t, c.Register(restless))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		Strategy:      core.StrategyIterative,
		AgentIDs:      []string{"restless"},
		MaxIterations: 2,
	})
	require.NoError(t, err)

	assert.False(t, report.Converged)
	assert.Equal(t, 2, report.RoundCount)
	assert.Equal(t, core.SignalWarn, report.Signal)

	// The cap shows up as a coordinator-attributed warning.
	ids := subReportIDs(report.SubReports)
	assert.Contains(t, ids, "coordinator")
}

func TestCoordinator_RunPlan_GlobalTimeout(t *testing.T) {
	c := New(func(o *Options) { o.GracePeriod = 20 * time.Millisecond })
	sleeper := newStubAgent("sleeper", func(rc *core.RunContext) (*core.AgentReport, error) {
		select {
		case <-rc.Done():
			return nil, rc.Err()
		case <-time.After(5 * time.Second):
			return core.NewAgentReport(rc.AgentID), nil
		}
	})
	require.NoError(t, c.Register(sleeper))

	start := time.Now()
	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		Strategy:      core.StrategySequential,
		AgentIDs:      []string{"sleeper"},
		GlobalTimeout: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, core.SignalError, report.Signal)
}

func TestCoordinator_KnowledgeFactoryScopesRuns(t *testing.T) {
	stores := make(map[string]*knowledge.InMemoryStore)
	c := New(func(o *Options) {
		o.Knowledge = func(runID string) core.KnowledgeStore {
			s := knowledge.NewInMemoryStore()
			stores[runID] = s
			return s
		}
	})

	writer := newStubAgent("writer", func(rc *core.RunContext) (*core.AgentReport, error) {
		if _, err := rc.Put("mark", rc.Run.RunID()); err != nil {
			return nil, err
		}
		return core.NewAgentReport(rc.AgentID), nil
	})
	require.NoError(t, c.Register(writer))

	plan := &core.ExecutionPlan{Strategy: core.StrategySequential, AgentIDs: []string{"writer"}}

	run1 := core.NewAgentContext(nil)
	run2 := core.NewAgentContext(nil)
	_, err := c.RunPlan(context.Background(), run1, plan)
	require.NoError(t, err)
	_, err = c.RunPlan(context.Background(), run2, plan)
	require.NoError(t, err)

	require.Len(t, stores, 2)
	for runID, store := range stores {
		entry, ok := store.Get("mark")
		require.True(t, ok)
		assert.Equal(t, runID, entry.Value)
	}
}

func TestCoordinator_RunPlan_NilRunGetsFreshContext(t *testing.T) {
	c := New()
	var seen string
	probe := newStubAgent("probe", func(rc *core.RunContext) (*core.AgentReport, error) {
		seen = rc.Run.RunID()
		return core.NewAgentReport(rc.AgentID), nil
	})
	require.NoError(t, c.Register(probe))

	report, err := c.RunPlan(context.Background(), nil, &core.ExecutionPlan{
		Strategy: core.StrategySequential,
		AgentIDs: []string{"probe"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, report.RunID)
}
