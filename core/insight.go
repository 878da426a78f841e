package core

// Signal grades the severity of an insight. The ordering info < warn < error
// is significant: aggregation ranks insights by severity and the run-level
// signal escalates to the highest severity present, never de-escalates.
type Signal string

const (
	// SignalInfo marks an informational finding.
	SignalInfo Signal = "info"
	// SignalWarn marks a finding that needs attention but did not fail.
	SignalWarn Signal = "warn"
	// SignalError marks a failure-grade finding.
	SignalError Signal = "error"
)

// Rank returns the numeric severity of the signal (higher is more severe).
// Unknown signals rank below info so malformed input can never escalate a run.
func (s Signal) Rank() int {
	switch s {
	case SignalError:
		return 3
	case SignalWarn:
		return 2
	case SignalInfo:
		return 1
	default:
		return 0
	}
}

// Escalate returns the more severe of the two signals.
func (s Signal) Escalate(other Signal) Signal {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// ParseSignal converts a string into a Signal, reporting whether it named a
// known severity.
func ParseSignal(s string) (Signal, bool) {
	switch Signal(s) {
	case SignalInfo, SignalWarn, SignalError:
		return Signal(s), true
	}
	return "", false
}

// AgentInsight is one structured finding produced by an agent. Insights are
// immutable once produced; the executor and aggregator only ever copy them.
type AgentInsight struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Signal      Signal         `json:"signal"`
	Data        map[string]any `json:"data,omitempty"`
}

// NewInsight constructs an insight with the given severity.
func NewInsight(signal Signal, title, description string) AgentInsight {
	return AgentInsight{Title: title, Description: description, Signal: signal}
}

// WithData returns a copy of the insight carrying the given structured payload.
func (i AgentInsight) WithData(data map[string]any) AgentInsight {
	i.Data = data
	return i
}
