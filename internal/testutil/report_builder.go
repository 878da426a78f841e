package testutil

import (
	"time"

	"github.com/hupe1980/conductor/core"
)

// ReportBuilder provides a fluent helper for constructing agent reports in
// tests. Example:
//
//	rep := NewReportBuilder("scanner").Info("ok", "nothing found").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ReportBuilder struct {
	agentID   string
	insights  []core.AgentInsight
	completed time.Time
}

// NewReportBuilder creates a builder for the given agent identifier.
func NewReportBuilder(agentID string) *ReportBuilder {
	return &ReportBuilder{agentID: agentID}
}

// Completed overrides the completion timestamp (chainable).
func (b *ReportBuilder) Completed(t time.Time) *ReportBuilder {
	b.completed = t
	return b
}

// Insight appends an arbitrary insight (chainable).
func (b *ReportBuilder) Insight(in core.AgentInsight) *ReportBuilder {
	b.insights = append(b.insights, in)
	return b
}

// Info appends an info-signal insight (chainable).
func (b *ReportBuilder) Info(title, desc string) *ReportBuilder {
	return b.Insight(core.NewInsight(core.SignalInfo, title, desc))
}

// Warn appends a warn-signal insight (chainable).
func (b *ReportBuilder) Warn(title, desc string) *ReportBuilder {
	return b.Insight(core.NewInsight(core.SignalWarn, title, desc))
}

// Error appends an error-signal insight (chainable).
func (b *ReportBuilder) Error(title, desc string) *ReportBuilder {
	return b.Insight(core.NewInsight(core.SignalError, title, desc))
}

// Build materializes the report.
func (b *ReportBuilder) Build() *core.AgentReport {
	rep := core.NewAgentReport(b.agentID).Add(b.insights...)
	if !b.completed.IsZero() {
		rep.Completed = b.completed
	}
	return rep
}
