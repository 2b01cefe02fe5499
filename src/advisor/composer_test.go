package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantpath/grantpath/src/analysis"
	"github.com/grantpath/grantpath/src/dataset"
)

func composedFixture(t *testing.T, rows []dataset.Grant) ([]analysis.Task, []analysis.Result, []Candidate, string, []Section) {
	t.Helper()
	tab, err := dataset.NewTable(nil, rows)
	require.NoError(t, err)
	profile := dataset.Profile{Region: "Austin", BudgetRange: "$25K-$75K"}
	tasks := analysis.Plan(tab.Schema(), profile, dataset.Filter{})
	var results []analysis.Result
	for _, task := range tasks {
		results = append(results, analysis.Fallback(task, tab))
	}
	candidates, note := Rank(tasks, results, profile, Config{})
	sections := Compose(tasks, results, candidates, note, profile)
	return tasks, results, candidates, note, sections
}

func advisorRows() []dataset.Grant {
	return []dataset.Grant{
		{Funder: "FunderA", Recipient: "R1", Amount: 60000, Year: 2021,
			Subjects: []string{"Education"}, Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
		{Funder: "FunderA", Recipient: "R2", Amount: 40000, Year: 2022,
			Subjects: []string{"Education"}, Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
		{Funder: "FunderB", Recipient: "R3", Amount: 10000, Year: 2021,
			Subjects: []string{"Health"}, Populations: []string{"Seniors"}, Geographies: []string{"Texas"}},
		{Funder: "FunderB", Recipient: "R4", Amount: 10000, Year: 2022,
			Subjects: []string{"Education"}, Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
		{Funder: "FunderB", Recipient: "R5", Amount: 10000, Year: 2022,
			Subjects: []string{"Education"}, Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
		{Funder: "FunderB", Recipient: "R6", Amount: 10000, Year: 2023,
			Subjects: []string{"Education"}, Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
		{Funder: "FunderB", Recipient: "R7", Amount: 10000, Year: 2023,
			Subjects: []string{"Education"}, Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
	}
}

func TestComposeFixedSectionContract(t *testing.T) {
	tasks, _, candidates, _, sections := composedFixture(t, advisorRows())

	require.Len(t, sections, 8)
	for i, s := range sections {
		assert.Equal(t, sectionOrder[i], s.Title)
		assert.GreaterOrEqual(t, len(s.Body), minSectionLen, "section %q too short", s.Title)
		assert.NotEmpty(t, s.CitedTaskIDs, "section %q has no citations", s.Title)
	}

	// Every citation names a planned task or a ranked candidate.
	valid := map[string]struct{}{}
	for _, task := range tasks {
		valid[task.ID] = struct{}{}
	}
	for _, c := range candidates {
		valid[c.Identity] = struct{}{}
	}
	for _, s := range sections {
		for _, id := range s.CitedTaskIDs {
			_, ok := valid[id]
			assert.True(t, ok, "section %q cites unknown id %q", s.Title, id)
		}
	}
}

func TestComposeEmptyDatasetDegrades(t *testing.T) {
	// Zero rows: every underlying result is empty, yet the eight-section
	// contract still holds with explicit no-data statements.
	_, _, _, _, sections := composedFixture(t, nil)

	require.Len(t, sections, 8)
	for _, s := range sections {
		assert.GreaterOrEqual(t, len(s.Body), minSectionLen, "section %q too short", s.Title)
		assert.NotEmpty(t, s.CitedTaskIDs)
	}
	assert.Contains(t, sections[0].Body, "No data was found")
	assert.Contains(t, sections[0].Body, "broadening")
}

func TestComposeKeyFundersCitesCandidates(t *testing.T) {
	_, _, candidates, _, sections := composedFixture(t, advisorRows())
	require.NotEmpty(t, candidates)

	var keyFunders Section
	for _, s := range sections {
		if s.Title == "Key Funders" {
			keyFunders = s
		}
	}
	assert.Contains(t, keyFunders.Body, candidates[0].Identity)
	assert.Contains(t, keyFunders.CitedTaskIDs, candidates[0].Identity)
}

func TestComposeNoFunderDataNote(t *testing.T) {
	// Schema without a funder column: the key-funders section must carry
	// the ranker's note instead of failing.
	schema := dataset.Schema{
		{Name: dataset.ColAmount, Type: dataset.TypeNumeric},
		{Name: dataset.ColSubject, Type: dataset.TypeText},
		{Name: dataset.ColPopulation, Type: dataset.TypeText},
		{Name: dataset.ColGeography, Type: dataset.TypeText},
		{Name: dataset.ColYear, Type: dataset.TypeNumeric},
	}
	tab, err := dataset.NewTable(schema, []dataset.Grant{
		{Amount: 1000, Year: 2022, Subjects: []string{"Education"},
			Populations: []string{"Youth"}, Geographies: []string{"Texas"}},
	})
	require.NoError(t, err)

	tasks := analysis.Plan(tab.Schema(), dataset.Profile{}, dataset.Filter{})
	var results []analysis.Result
	for _, task := range tasks {
		results = append(results, analysis.Fallback(task, tab))
	}
	candidates, note := Rank(tasks, results, dataset.Profile{}, Config{})
	require.Empty(t, candidates)
	require.NotEmpty(t, note)

	sections := Compose(tasks, results, candidates, note, dataset.Profile{})
	require.Len(t, sections, 8)
	assert.Contains(t, sections[2].Body, "no funder data")
}

func TestComposeDeterministic(t *testing.T) {
	_, _, _, _, first := composedFixture(t, advisorRows())
	_, _, _, _, second := composedFixture(t, advisorRows())
	assert.Equal(t, first, second)
}
