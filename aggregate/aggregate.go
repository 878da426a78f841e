// Package aggregate merges per-agent reports into a single ranked result.
//
// Insights are ordered first by severity rank (error > warn > info), then by
// the producing agent's position in the execution plan, then by emission
// order within the agent. The ordering is therefore a pure function of the
// plan and the reports, reproducible regardless of the real-time completion
// order of concurrent agents. The aggregator also computes a run-level signal
// equal to the highest severity present (escalation, never de-escalation). It
// has no side effects and never touches the knowledge store.
package aggregate

import (
	"slices"

	"github.com/hupe1980/conductor/core"
)

// Aggregator ranks insights against a fixed plan order.
type Aggregator struct {
	position map[string]int
}

// New creates an aggregator for the given plan-ordered participant list.
// Agents missing from the list rank after all planned ones, in report order.
func New(planOrder []string) *Aggregator {
	pos := make(map[string]int, len(planOrder))
	for i, id := range planOrder {
		pos[id] = i
	}
	return &Aggregator{position: pos}
}

// rankedItem carries the sort keys alongside the insight.
type rankedItem struct {
	core.RankedInsight
	planPos  int
	emission int
}

// Merge combines the reports into the deterministic ranked insight sequence
// and the escalated run-level signal. The reports themselves are not mutated;
// sub-report ordering is left to the caller.
func (a *Aggregator) Merge(reports []core.AgentReport) ([]core.RankedInsight, core.Signal) {
	signal := core.SignalInfo

	var items []rankedItem
	for ri, rep := range reports {
		pos, ok := a.position[rep.AgentID]
		if !ok {
			pos = len(a.position) + ri
		}
		for ei, in := range rep.Insights {
			signal = signal.Escalate(in.Signal)
			items = append(items, rankedItem{
				RankedInsight: core.RankedInsight{AgentID: rep.AgentID, Insight: in},
				planPos:       pos,
				emission:      ei,
			})
		}
	}

	slices.SortStableFunc(items, func(x, y rankedItem) int {
		if d := y.Insight.Signal.Rank() - x.Insight.Signal.Rank(); d != 0 {
			return d
		}
		if d := x.planPos - y.planPos; d != 0 {
			return d
		}
		return x.emission - y.emission
	})

	ranked := make([]core.RankedInsight, len(items))
	for i, it := range items {
		ranked[i] = it.RankedInsight
	}

	return ranked, signal
}

// SortReports returns the reports ordered by plan position, giving stable
// sub-report sequences independent of completion order.
func (a *Aggregator) SortReports(reports []core.AgentReport) []core.AgentReport {
	sorted := make([]core.AgentReport, len(reports))
	copy(sorted, reports)
	slices.SortStableFunc(sorted, func(x, y core.AgentReport) int {
		return a.pos(x.AgentID) - a.pos(y.AgentID)
	})
	return sorted
}

func (a *Aggregator) pos(agentID string) int {
	if p, ok := a.position[agentID]; ok {
		return p
	}
	return len(a.position)
}
