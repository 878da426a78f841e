package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/conductor/core"
	"github.com/hupe1980/conductor/internal/testutil"
)

func TestAggregator_Merge_SeverityFirst(t *testing.T) {
	agg := New([]string{"a", "b"})

	reports := []core.AgentReport{
		*testutil.NewReportBuilder("a").Info("a-info", "").Warn("a-warn", "").Build(),
		*testutil.NewReportBuilder("b").Error("b-error", "").Info("b-info", "").Build(),
	}

	ranked, signal := agg.Merge(reports)
	assert.Equal(t, core.SignalError, signal)

	titles := rankedTitles(ranked)
	assert.Equal(t, []string{"b-error", "a-warn", "a-info", "b-info"}, titles)
}

func TestAggregator_Merge_PlanOrderBreaksTies(t *testing.T) {
	agg := New([]string{"first", "second", "third"})

	// Deliberately pass reports in reverse completion order; ranking must be
	// a pure function of plan order and emission order.
	reports := []core.AgentReport{
		*testutil.NewReportBuilder("third").Info("t1", "").Build(),
		*testutil.NewReportBuilder("second").Info("s1", "").Info("s2", "").Build(),
		*testutil.NewReportBuilder("first").Info("f1", "").Build(),
	}

	ranked, signal := agg.Merge(reports)
	assert.Equal(t, core.SignalInfo, signal)
	assert.Equal(t, []string{"f1", "s1", "s2", "t1"}, rankedTitles(ranked))
}

func TestAggregator_Merge_DeterministicAcrossShuffles(t *testing.T) {
	agg := New([]string{"a", "b", "c"})

	a := *testutil.NewReportBuilder("a").Warn("a1", "").Build()
	b := *testutil.NewReportBuilder("b").Error("b1", "").Build()
	c := *testutil.NewReportBuilder("c").Warn("c1", "").Info("c2", "").Build()

	orderings := [][]core.AgentReport{
		{a, b, c},
		{c, b, a},
		{b, a, c},
	}

	want := []string{"b1", "a1", "c1", "c2"}
	for _, reports := range orderings {
		ranked, signal := agg.Merge(reports)
		assert.Equal(t, core.SignalError, signal)
		assert.Equal(t, want, rankedTitles(ranked))
	}
}

func TestAggregator_Merge_Empty(t *testing.T) {
	agg := New([]string{"a"})
	ranked, signal := agg.Merge(nil)
	assert.Empty(t, ranked)
	assert.Equal(t, core.SignalInfo, signal)
}

func TestAggregator_Merge_UnplannedAgentsRankLast(t *testing.T) {
	agg := New([]string{"planned"})

	reports := []core.AgentReport{
		*testutil.NewReportBuilder("surprise").Info("x1", "").Build(),
		*testutil.NewReportBuilder("planned").Info("p1", "").Build(),
	}

	ranked, _ := agg.Merge(reports)
	assert.Equal(t, []string{"p1", "x1"}, rankedTitles(ranked))
}

func TestAggregator_SortReports(t *testing.T) {
	agg := New([]string{"a", "b", "c"})

	reports := []core.AgentReport{
		*testutil.NewReportBuilder("c").Build(),
		*testutil.NewReportBuilder("a").Build(),
		*testutil.NewReportBuilder("b").Build(),
	}

	sorted := agg.SortReports(reports)
	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].AgentID)
	assert.Equal(t, "b", sorted[1].AgentID)
	assert.Equal(t, "c", sorted[2].AgentID)

	// Input slice order is preserved.
	assert.Equal(t, "c", reports[0].AgentID)
}

func rankedTitles(ranked []core.RankedInsight) []string {
	titles := make([]string, 0, len(ranked))
	for _, ri := range ranked {
		titles = append(titles, ri.Insight.Title)
	}
	return titles
}
