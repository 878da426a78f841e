package core

import (
	"time"
)

// Strategy selects how a plan's agents are driven through a run.
type Strategy string

const (
	// StrategySequential runs agents one at a time in plan order.
	StrategySequential Strategy = "sequential"
	// StrategyParallel launches all agents concurrently behind a barrier.
	StrategyParallel Strategy = "parallel"
	// StrategyConditional routes execution through predicate-gated stages.
	StrategyConditional Strategy = "conditional"
	// StrategyIterative repeats rounds of another strategy until convergence.
	StrategyIterative Strategy = "iterative"
)

// FailurePolicy decides how a run reacts to agent-level failures.
type FailurePolicy string

const (
	// FailFast aborts remaining work on the first error-grade outcome.
	FailFast FailurePolicy = "fail-fast"
	// CollectAll runs every planned agent regardless of prior failures.
	CollectAll FailurePolicy = "collect-all"
)

// StagePredicate gates a conditional stage on the aggregated signal of the
// stages executed so far. A nil predicate marks the default branch, which is
// always eligible.
type StagePredicate func(upstream Signal) bool

// MinSignalPredicate returns a predicate satisfied when the upstream signal is
// at least as severe as min. This is the predicate form used by declarative
// plan files.
func MinSignalPredicate(min Signal) StagePredicate {
	return func(upstream Signal) bool { return upstream.Rank() >= min.Rank() }
}

// Stage groups agents for one step of a conditional plan.
type Stage struct {
	Name     string
	AgentIDs []string
	When     StagePredicate // nil marks the default branch
}

// RoundState captures one refinement round's outcome for convergence checks:
// the aggregated signal, the round's reports and the knowledge store snapshot
// taken after the round completed.
type RoundState struct {
	Signal   Signal
	Reports  []AgentReport
	Snapshot map[string]KnowledgeEntry
}

// ConvergencePredicate decides whether iterative refinement may stop. It is
// evaluated after every round against the previous round's state (nil on the
// first round) and the current one.
type ConvergencePredicate func(prev, curr *RoundState) bool

// ExecutionPlan describes one coordination run: the chosen strategy, the
// ordered (or staged) participants, per-agent and barrier timeouts, the
// failure policy and, for iterative plans, the round strategy, iteration
// cap and convergence predicate.
//
// Plans are created by the caller and are read-only for the run's duration.
type ExecutionPlan struct {
	// ID identifies the plan in reports and logs.
	ID string

	// Strategy selects the execution mode.
	Strategy Strategy

	// AgentIDs lists participants in plan order (sequential, parallel and
	// iterative rounds). Conditional plans use Stages instead.
	AgentIDs []string

	// Stages holds the predicate-gated groups of a conditional plan. Exactly
	// the stages whose predicate matches (plus default branches) execute.
	Stages []Stage

	// AgentTimeout bounds each agent invocation. Zero means no per-agent
	// timeout.
	AgentTimeout time.Duration

	// GlobalTimeout bounds the whole run. Zero means unbounded.
	GlobalTimeout time.Duration

	// BarrierTimeout bounds the rendezvous of concurrent agents. Zero means
	// the barrier waits for full arrival (or run cancellation).
	BarrierTimeout time.Duration

	// FailurePolicy defaults to CollectAll when empty.
	FailurePolicy FailurePolicy

	// Concurrency limits simultaneously running agents in parallel and staged
	// execution. Zero means one worker per agent.
	Concurrency int

	// RoundStrategy selects the per-round strategy of an iterative plan.
	// Defaults to sequential; must not itself be iterative.
	RoundStrategy Strategy

	// MaxIterations caps refinement rounds of an iterative plan.
	MaxIterations int

	// Converged overrides the default convergence predicate (no error-signal
	// insights and no knowledge key changed since the prior round).
	Converged ConvergencePredicate
}

// Policy returns the effective failure policy, defaulting to CollectAll.
func (p *ExecutionPlan) Policy() FailurePolicy {
	if p.FailurePolicy == "" {
		return CollectAll
	}
	return p.FailurePolicy
}

// Participants returns every agent identifier the plan references, in first
// mention order. Used by the coordinator to reject unregistered identifiers
// before execution starts.
func (p *ExecutionPlan) Participants() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(list []string) {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	add(p.AgentIDs)
	for _, st := range p.Stages {
		add(st.AgentIDs)
	}
	return ids
}

// Validate checks structural soundness of the plan. Violations are reported
// as ConfigError; a run is rejected before any agent executes.
func (p *ExecutionPlan) Validate() error {
	switch p.Strategy {
	case StrategySequential, StrategyParallel:
		if len(p.AgentIDs) == 0 {
			return NewConfigError("%s plan lists no agents", p.Strategy)
		}
	case StrategyConditional:
		if len(p.Stages) == 0 {
			return NewConfigError("conditional plan has no stages")
		}
		hasDefault := false
		for i, st := range p.Stages {
			if len(st.AgentIDs) == 0 {
				return NewConfigError("stage %q (index %d) lists no agents", st.Name, i)
			}
			if st.When == nil {
				hasDefault = true
			}
		}
		if !hasDefault {
			return NewConfigError("conditional plan has no default branch")
		}
	case StrategyIterative:
		if len(p.AgentIDs) == 0 {
			return NewConfigError("iterative plan lists no agents")
		}
		if p.MaxIterations <= 0 {
			return NewConfigError("iterative plan requires a positive max iteration count")
		}
		if p.RoundStrategy == StrategyIterative {
			return NewConfigError("iterative plan cannot delegate rounds to the iterative strategy")
		}
		switch p.RoundStrategy {
		case "", StrategySequential, StrategyParallel, StrategyConditional:
		default:
			return NewConfigError("unknown round strategy %q", p.RoundStrategy)
		}
	default:
		return NewConfigError("unknown strategy %q", p.Strategy)
	}

	switch p.FailurePolicy {
	case "", FailFast, CollectAll:
	default:
		return NewConfigError("unknown failure policy %q", p.FailurePolicy)
	}

	if p.Concurrency < 0 {
		return NewConfigError("concurrency must not be negative")
	}

	return nil
}

// RoundPlan derives the single-round plan an iterative run delegates to. The
// returned plan shares the participant lists but switches to the round
// strategy and drops iteration controls.
func (p *ExecutionPlan) RoundPlan() *ExecutionPlan {
	round := *p
	round.Strategy = p.RoundStrategy
	if round.Strategy == "" {
		round.Strategy = StrategySequential
	}
	round.RoundStrategy = ""
	round.MaxIterations = 0
	round.Converged = nil
	return &round
}
