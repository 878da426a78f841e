package core

import "time"

// AgentReport is the output of a single agent invocation: the agent's
// identifier, the ordered sequence of insights it emitted (insertion order is
// emission order and is preserved through aggregation) and a completion
// timestamp. After collection the report is owned by the aggregator; the
// producing agent relinquishes it on return.
type AgentReport struct {
	AgentID   string         `json:"agent_id"`
	Insights  []AgentInsight `json:"insights"`
	Completed time.Time      `json:"completed"`
}

// NewAgentReport constructs an empty report for the given agent.
func NewAgentReport(agentID string) *AgentReport {
	return &AgentReport{AgentID: agentID, Completed: time.Now().UTC()}
}

// Add appends an insight preserving emission order and returns the report for
// chaining.
func (r *AgentReport) Add(insights ...AgentInsight) *AgentReport {
	r.Insights = append(r.Insights, insights...)
	return r
}

// Signal returns the highest-severity signal present in the report, or
// SignalInfo for an empty report.
func (r *AgentReport) Signal() Signal {
	sig := SignalInfo
	for _, in := range r.Insights {
		sig = sig.Escalate(in.Signal)
	}
	return sig
}

// HasError reports whether the report contains at least one error-signal
// insight. Used by fail-fast policies.
func (r *AgentReport) HasError() bool {
	for _, in := range r.Insights {
		if in.Signal == SignalError {
			return true
		}
	}
	return false
}

// RunState is the terminal/intermediate state of a strategy execution.
type RunState string

const (
	// StatePending marks a run that has been accepted but not started.
	StatePending RunState = "pending"
	// StateRunning marks a run in progress.
	StateRunning RunState = "running"
	// StateCompleted marks a run that finished under its plan's policy.
	StateCompleted RunState = "completed"
	// StateFailed marks a run aborted by fail-fast or a barrier timeout.
	StateFailed RunState = "failed"
)

// RankedInsight pairs an insight with the agent that produced it, in the
// deterministic order computed by the aggregator.
type RankedInsight struct {
	AgentID string       `json:"agent_id"`
	Insight AgentInsight `json:"insight"`
}

// Round captures the outcome of one refinement iteration for inspection.
type Round struct {
	Number      int           `json:"number"`
	Reports     []AgentReport `json:"reports"`
	Signal      Signal        `json:"signal"`
	ChangedKeys []string      `json:"changed_keys,omitempty"`
}

// AggregatedReport is the structured result returned to the caller for every
// run, including Failed ones. Insights are ordered by severity rank, then plan
// position, then emission order (see the aggregate package); Signal is the
// run-level escalated severity.
type AggregatedReport struct {
	PlanID     string          `json:"plan_id"`
	RunID      string          `json:"run_id"`
	Strategy   Strategy        `json:"strategy"`
	State      RunState        `json:"state"`
	Signal     Signal          `json:"signal"`
	Insights   []RankedInsight `json:"insights"`
	SubReports []AgentReport   `json:"sub_reports"`

	// Path records the stages chosen by a conditional run for auditability.
	Path []string `json:"path,omitempty"`

	// Iterative runs retain per-round history and convergence outcome.
	Rounds     []Round `json:"rounds,omitempty"`
	RoundCount int     `json:"round_count,omitempty"`
	Converged  bool    `json:"converged,omitempty"`
}
