package core

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// planFile mirrors the declarative YAML form of an ExecutionPlan. Predicates
// cannot be expressed in data, so stage conditions are limited to minimum
// signal thresholds and iterative plans loaded from files use the default
// convergence predicate.
type planFile struct {
	ID             string         `yaml:"id"`
	Strategy       string         `yaml:"strategy"`
	Agents         []string       `yaml:"agents"`
	Stages         []stageFile    `yaml:"stages"`
	AgentTimeout   duration       `yaml:"agent_timeout"`
	GlobalTimeout  duration       `yaml:"global_timeout"`
	BarrierTimeout duration       `yaml:"barrier_timeout"`
	FailurePolicy  string         `yaml:"failure_policy"`
	Concurrency    int            `yaml:"concurrency"`
	Iterative      *iterativeFile `yaml:"iterative"`
}

// duration decodes Go duration strings ("30s", "2m") from YAML scalars.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

type stageFile struct {
	Name      string   `yaml:"name"`
	Agents    []string `yaml:"agents"`
	MinSignal string   `yaml:"min_signal"` // empty marks the default branch
}

type iterativeFile struct {
	RoundStrategy string `yaml:"round_strategy"`
	MaxIterations int    `yaml:"max_iterations"`
}

// LoadPlan decodes a declarative ExecutionPlan from YAML and validates it.
// Stage conditions are expressed as min_signal thresholds; a stage without
// min_signal is the default branch.
func LoadPlan(r io.Reader) (*ExecutionPlan, error) {
	var pf planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	plan := &ExecutionPlan{
		ID:             pf.ID,
		Strategy:       Strategy(pf.Strategy),
		AgentIDs:       pf.Agents,
		AgentTimeout:   time.Duration(pf.AgentTimeout),
		GlobalTimeout:  time.Duration(pf.GlobalTimeout),
		BarrierTimeout: time.Duration(pf.BarrierTimeout),
		FailurePolicy:  FailurePolicy(pf.FailurePolicy),
		Concurrency:    pf.Concurrency,
	}

	for _, sf := range pf.Stages {
		st := Stage{Name: sf.Name, AgentIDs: sf.Agents}
		if sf.MinSignal != "" {
			min, ok := ParseSignal(sf.MinSignal)
			if !ok {
				return nil, NewConfigError("stage %q has unknown min_signal %q", sf.Name, sf.MinSignal)
			}
			st.When = MinSignalPredicate(min)
		}
		plan.Stages = append(plan.Stages, st)
	}

	if pf.Iterative != nil {
		plan.RoundStrategy = Strategy(pf.Iterative.RoundStrategy)
		plan.MaxIterations = pf.Iterative.MaxIterations
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}
