package advisor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantpath/grantpath/src/analysis"
	"github.com/grantpath/grantpath/src/dataset"
)

func funderTasks() (analysis.Task, analysis.Task) {
	totals := analysis.NewTask(analysis.KindGroupedSum, "Top Funders by Total Amount",
		dataset.ColAmount, dataset.ColFunder, "", 0, 0, dataset.Filter{})
	counts := analysis.NewTask(analysis.KindValueCounts, "Grant Counts by Funder",
		dataset.ColFunder, "", "", 0, 10, dataset.Filter{})
	return totals, counts
}

func funderResults(totals, counts analysis.Task, totalRows, countRows []analysis.Row) []analysis.Result {
	return []analysis.Result{
		{TaskID: totals.ID, Title: totals.Title, Source: analysis.SourceFallback, Rows: totalRows},
		{TaskID: counts.ID, Title: counts.Title, Source: analysis.SourceFallback, Rows: countRows},
	}
}

func TestRankBlendedScoreScenario(t *testing.T) {
	// FunderA: $100,000 over 2 grants; FunderB: $50,000 over 5 grants.
	// With equal weights FunderB (0.75) must outrank FunderA (0.70).
	totals, counts := funderTasks()
	results := funderResults(totals, counts,
		[]analysis.Row{{Label: "FunderA", Value: 100000}, {Label: "FunderB", Value: 50000}},
		[]analysis.Row{{Label: "FunderB", Value: 5}, {Label: "FunderA", Value: 2}})

	candidates, note := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{Region: "Austin"}, Config{})
	require.Empty(t, note)
	require.Len(t, candidates, 2)
	assert.Equal(t, "FunderB", candidates[0].Identity)
	assert.InDelta(t, 0.75, candidates[0].Score, 1e-9)
	assert.Equal(t, "FunderA", candidates[1].Identity)
	assert.InDelta(t, 0.70, candidates[1].Score, 1e-9)
	assert.Equal(t, 5, candidates[0].GrantCount)
	assert.Equal(t, 50000.0, candidates[0].TotalAmount)
}

func TestRankTiesBrokenByIdentity(t *testing.T) {
	totals, counts := funderTasks()
	results := funderResults(totals, counts,
		[]analysis.Row{{Label: "Zeta Fund", Value: 50000}, {Label: "Alpha Fund", Value: 50000}},
		[]analysis.Row{{Label: "Zeta Fund", Value: 3}, {Label: "Alpha Fund", Value: 3}})

	candidates, _ := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{}, Config{})
	require.Len(t, candidates, 2)
	assert.Equal(t, "Alpha Fund", candidates[0].Identity)
	assert.Equal(t, "Zeta Fund", candidates[1].Identity)
	assert.Equal(t, candidates[0].Score, candidates[1].Score)
}

func TestRankPureFunction(t *testing.T) {
	totals, counts := funderTasks()
	results := funderResults(totals, counts,
		[]analysis.Row{{Label: "A", Value: 10}, {Label: "B", Value: 20}},
		[]analysis.Row{{Label: "A", Value: 1}, {Label: "B", Value: 2}})
	tasks := []analysis.Task{totals, counts}

	first, _ := Rank(tasks, results, dataset.Profile{}, Config{})
	second, _ := Rank(tasks, results, dataset.Profile{}, Config{})
	assert.Equal(t, first, second)
}

func TestRankNoFunderDataReturnsNote(t *testing.T) {
	task := analysis.NewTask(analysis.KindValueCounts, "Subjects",
		dataset.ColSubject, "", "", 0, 10, dataset.Filter{})
	results := []analysis.Result{{TaskID: task.ID, Source: analysis.SourceFallback,
		Rows: []analysis.Row{{Label: "Education", Value: 3}}}}

	candidates, note := Rank([]analysis.Task{task}, results, dataset.Profile{}, Config{})
	assert.Empty(t, candidates)
	assert.Contains(t, note, "no funder data")
}

func TestRankSkipsPlaceholderLabels(t *testing.T) {
	totals, counts := funderTasks()
	results := funderResults(totals, counts,
		[]analysis.Row{{Label: "Real Fund", Value: 100}, {Label: "other", Value: 500}, {Label: "Unknown", Value: 300}},
		[]analysis.Row{{Label: "Real Fund", Value: 1}, {Label: "other", Value: 5}})

	candidates, note := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{}, Config{})
	require.Empty(t, note)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Real Fund", candidates[0].Identity)
}

func TestRationaleUniqueWithIdenticalNumbers(t *testing.T) {
	// Two funders with identical totals and counts must still get
	// distinguishable rationale text.
	totals, counts := funderTasks()
	results := funderResults(totals, counts,
		[]analysis.Row{{Label: "FunderX", Value: 50000}, {Label: "FunderY", Value: 50000}},
		[]analysis.Row{{Label: "FunderX", Value: 3}, {Label: "FunderY", Value: 3}})

	candidates, _ := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{}, Config{})
	require.Len(t, candidates, 2)
	assert.NotEmpty(t, candidates[0].Rationale)
	assert.NotEqual(t, candidates[0].Rationale, candidates[1].Rationale)
}

func TestRationaleUniqueAfterTemplateCycle(t *testing.T) {
	// More candidates than templates, all with identical numbers: every
	// rationale must still be unique within the report.
	totals, counts := funderTasks()
	var totalRows, countRows []analysis.Row
	for i := 0; i < 9; i++ {
		label := fmt.Sprintf("Funder%02d", i)
		totalRows = append(totalRows, analysis.Row{Label: label, Value: 50000})
		countRows = append(countRows, analysis.Row{Label: label, Value: 3})
	}
	results := funderResults(totals, counts, totalRows, countRows)

	candidates, _ := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{}, Config{TopK: 20})
	require.Len(t, candidates, 9)
	seen := map[string]struct{}{}
	for _, c := range candidates {
		_, dup := seen[c.Rationale]
		assert.False(t, dup, "duplicate rationale: %q", c.Rationale)
		seen[c.Rationale] = struct{}{}
	}
}

func TestRankHonorsTopK(t *testing.T) {
	totals, counts := funderTasks()
	var totalRows, countRows []analysis.Row
	for i := 0; i < 15; i++ {
		label := fmt.Sprintf("Funder%02d", i)
		totalRows = append(totalRows, analysis.Row{Label: label, Value: float64(1000 * (i + 1))})
		countRows = append(countRows, analysis.Row{Label: label, Value: float64(i + 1)})
	}
	results := funderResults(totals, counts, totalRows, countRows)

	candidates, _ := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{}, Config{TopK: 5})
	assert.Len(t, candidates, 5)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestRankSupportingTaskIDs(t *testing.T) {
	totals, counts := funderTasks()
	results := funderResults(totals, counts,
		[]analysis.Row{{Label: "FunderA", Value: 100}},
		[]analysis.Row{{Label: "FunderA", Value: 2}})

	candidates, _ := Rank([]analysis.Task{totals, counts}, results, dataset.Profile{}, Config{})
	require.Len(t, candidates, 1)
	assert.ElementsMatch(t, []string{totals.ID, counts.ID}, candidates[0].SupportingTaskIDs)
}
