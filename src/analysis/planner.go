package analysis

import (
	"github.com/grantpath/grantpath/src/dataset"
)

// Plan derives the ordered task list for a run from the column schema and
// the run filter. It never looks at row data, so the same schema and filter
// always yield the same plan, zero-row datasets included.
//
// With the canonical grant schema the plan covers funder totals, subject,
// population and geographic distributions, temporal trend, amount
// distribution, a subject-by-population cross and a subject-by-funder
// cross, plus grant counts per funder and the largest individual grants.
func Plan(schema dataset.Schema, profile dataset.Profile, filter dataset.Filter) []Task {
	var tasks []Task
	add := func(t Task) { tasks = append(tasks, t) }

	hasFunder := schema.Has(dataset.ColFunder)
	hasAmount := schema.Has(dataset.ColAmount)

	if hasFunder && hasAmount {
		add(NewTask(KindGroupedSum, "Top Funders by Total Amount",
			dataset.ColAmount, dataset.ColFunder, "", 0, 0, filter))
	}
	if schema.Has(dataset.ColSubject) {
		add(NewTask(KindValueCounts, "Grant Subject Distribution",
			dataset.ColSubject, "", "", 0, DefaultTopK, filter))
	}
	if schema.Has(dataset.ColPopulation) {
		add(NewTask(KindValueCounts, "Population Served Distribution",
			dataset.ColPopulation, "", "", 0, DefaultTopK, filter))
	}
	if schema.Has(dataset.ColGeography) {
		add(NewTask(KindValueCounts, "Geographic Distribution",
			dataset.ColGeography, "", "", 0, DefaultTopK, filter))
	}
	if schema.Has(dataset.ColYear) && hasAmount {
		add(NewTask(KindGroupedSum, "Funding by Year",
			dataset.ColAmount, dataset.ColYear, "", 0, 0, filter))
	}
	if hasAmount {
		add(NewTask(KindDescribe, "Grant Amount Distribution",
			dataset.ColAmount, "", "", 0, 0, filter))
	}
	if schema.Has(dataset.ColSubject) && schema.Has(dataset.ColPopulation) && hasAmount {
		add(NewTask(KindPivotTable, "Subject by Population Funding",
			dataset.ColAmount, dataset.ColSubject, dataset.ColPopulation, 0, 0, filter))
	}
	if schema.Has(dataset.ColSubject) && hasFunder && hasAmount {
		add(NewTask(KindPivotTable, "Funder by Subject Funding",
			dataset.ColAmount, dataset.ColFunder, dataset.ColSubject, 0, 0, filter))
	}
	if hasFunder {
		add(NewTask(KindValueCounts, "Grant Counts by Funder",
			dataset.ColFunder, "", "", 0, DefaultTopK, filter))
	}
	if hasAmount {
		add(NewTask(KindTopN, "Largest Individual Grants",
			dataset.ColAmount, "", "", 10, 0, filter))
	}
	return tasks
}
