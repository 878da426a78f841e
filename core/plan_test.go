package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionPlan_Validate_Sequential(t *testing.T) {
	plan := &ExecutionPlan{Strategy: StrategySequential, AgentIDs: []string{"a"}}
	assert.NoError(t, plan.Validate())

	empty := &ExecutionPlan{Strategy: StrategySequential}
	err := empty.Validate()
	assert.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestExecutionPlan_Validate_UnknownStrategy(t *testing.T) {
	plan := &ExecutionPlan{Strategy: "round-robin", AgentIDs: []string{"a"}}
	err := plan.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestExecutionPlan_Validate_Conditional(t *testing.T) {
	plan := &ExecutionPlan{
		Strategy: StrategyConditional,
		Stages: []Stage{
			{Name: "triage", AgentIDs: []string{"a"}},
			{Name: "deep", AgentIDs: []string{"b"}, When: MinSignalPredicate(SignalWarn)},
		},
	}
	assert.NoError(t, plan.Validate())

	noDefault := &ExecutionPlan{
		Strategy: StrategyConditional,
		Stages: []Stage{
			{Name: "deep", AgentIDs: []string{"b"}, When: MinSignalPredicate(SignalWarn)},
		},
	}
	err := noDefault.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no default branch")

	emptyStage := &ExecutionPlan{
		Strategy: StrategyConditional,
		Stages:   []Stage{{Name: "triage"}},
	}
	assert.Error(t, emptyStage.Validate())
}

func TestExecutionPlan_Validate_Iterative(t *testing.T) {
	plan := &ExecutionPlan{Strategy: StrategyIterative, AgentIDs: []string{"a"}, MaxIterations: 3}
	assert.NoError(t, plan.Validate())

	noCap := &ExecutionPlan{Strategy: StrategyIterative, AgentIDs: []string{"a"}}
	assert.Error(t, noCap.Validate())

	nested := &ExecutionPlan{
		Strategy:      StrategyIterative,
		AgentIDs:      []string{"a"},
		MaxIterations: 3,
		RoundStrategy: StrategyIterative,
	}
	assert.Error(t, nested.Validate())
}

func TestExecutionPlan_Validate_FailurePolicy(t *testing.T) {
	plan := &ExecutionPlan{Strategy: StrategySequential, AgentIDs: []string{"a"}, FailurePolicy: "abort-maybe"}
	assert.Error(t, plan.Validate())
}

func TestExecutionPlan_Policy_DefaultsToCollectAll(t *testing.T) {
	plan := &ExecutionPlan{}
	assert.Equal(t, CollectAll, plan.Policy())

	plan.FailurePolicy = FailFast
	assert.Equal(t, FailFast, plan.Policy())
}

func TestExecutionPlan_Participants(t *testing.T) {
	plan := &ExecutionPlan{
		Strategy: StrategyConditional,
		AgentIDs: []string{"a", "b"},
		Stages: []Stage{
			{Name: "s1", AgentIDs: []string{"b", "c"}},
			{Name: "s2", AgentIDs: []string{"a", "d"}},
		},
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, plan.Participants())
}

func TestExecutionPlan_RoundPlan(t *testing.T) {
	plan := &ExecutionPlan{
		Strategy:      StrategyIterative,
		AgentIDs:      []string{"a"},
		MaxIterations: 5,
		RoundStrategy: StrategyParallel,
	}

	round := plan.RoundPlan()
	assert.Equal(t, StrategyParallel, round.Strategy)
	assert.Zero(t, round.MaxIterations)
	assert.Nil(t, round.Converged)
	// Original plan is untouched.
	assert.Equal(t, StrategyIterative, plan.Strategy)

	// Round strategy defaults to sequential.
	plan.RoundStrategy = ""
	assert.Equal(t, StrategySequential, plan.RoundPlan().Strategy)
}
