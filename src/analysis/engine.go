package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/grantpath/grantpath/src/dataset"
)

// DefaultTopK caps value_counts output before the "other" bucket.
const DefaultTopK = 10

// Fallback computes a task locally against the dataset snapshot. It is pure:
// the same table and task always produce byte-identical rows, with no
// external dependency of any kind.
func Fallback(task Task, tab *dataset.Table) Result {
	var rows []Row
	switch task.Kind {
	case KindDescribe:
		rows = describe(tab, task.Filter, task.Column)
	case KindValueCounts:
		rows = valueCounts(tab, task.Filter, task.Column, task.TopK)
	case KindGroupedSum:
		rows = groupedSum(tab, task.Filter, task.GroupColumn, task.Column)
	case KindPivotTable:
		rows = pivotTable(tab, task.Filter, task.GroupColumn, task.ColColumn, task.Column)
	case KindTopN:
		rows = topN(tab, task.Filter, task.Column, task.N)
	}
	if rows == nil {
		rows = []Row{}
	}
	return Result{
		TaskID:      task.ID,
		Title:       task.Title,
		Source:      SourceFallback,
		Rows:        rows,
		GeneratedAt: time.Now().UTC(),
	}
}

func describe(tab *dataset.Table, f dataset.Filter, col string) []Row {
	var vals []float64
	for _, g := range tab.Rows() {
		if !f.Match(g) {
			continue
		}
		if v, ok := g.Numeric(col); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return []Row{
		{Label: "count", Value: float64(len(vals))},
		{Label: "mean", Value: sum / float64(len(vals))},
		{Label: "median", Value: quantile(vals, 0.5)},
		{Label: "min", Value: vals[0]},
		{Label: "max", Value: vals[len(vals)-1]},
		{Label: "q1", Value: quantile(vals, 0.25)},
		{Label: "q3", Value: quantile(vals, 0.75)},
	}
}

// quantile interpolates linearly over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func valueCounts(tab *dataset.Table, f dataset.Filter, col string, topK int) []Row {
	if topK <= 0 {
		topK = DefaultTopK
	}
	counts := map[string]float64{}
	for _, g := range tab.Rows() {
		if !f.Match(g) {
			continue
		}
		for _, label := range g.Labels(col) {
			counts[label]++
		}
	}
	rows := sortedRows(counts)
	if len(rows) <= topK {
		return rows
	}
	other := 0.0
	for _, r := range rows[topK:] {
		other += r.Value
	}
	rows = append(rows[:topK], Row{Label: "other", Value: other})
	return rows
}

func groupedSum(tab *dataset.Table, f dataset.Filter, groupCol, valueCol string) []Row {
	sums := map[string]float64{}
	for _, g := range tab.Rows() {
		if !f.Match(g) {
			continue
		}
		v, ok := g.Numeric(valueCol)
		if !ok {
			continue
		}
		for _, label := range g.Labels(groupCol) {
			sums[label] += v
		}
	}
	return sortedRows(sums)
}

func pivotTable(tab *dataset.Table, f dataset.Filter, rowCol, colCol, valueCol string) []Row {
	type cell struct{ row, col string }
	sums := map[cell]float64{}
	rowSet := map[string]struct{}{}
	colSet := map[string]struct{}{}
	for _, g := range tab.Rows() {
		if !f.Match(g) {
			continue
		}
		v, _ := g.Numeric(valueCol)
		for _, r := range g.Labels(rowCol) {
			rowSet[r] = struct{}{}
			for _, c := range g.Labels(colCol) {
				colSet[c] = struct{}{}
				sums[cell{r, c}] += v
			}
		}
	}
	rowLabels := sortedKeys(rowSet)
	colLabels := sortedKeys(colSet)
	var rows []Row
	// Full cross product: absent cells surface as explicit zeros.
	for _, r := range rowLabels {
		for _, c := range colLabels {
			rows = append(rows, Row{Label: r + " | " + c, Value: sums[cell{r, c}]})
		}
	}
	return rows
}

func topN(tab *dataset.Table, f dataset.Filter, byCol string, n int) []Row {
	if n <= 0 {
		n = 10
	}
	type entry struct {
		identity string
		value    float64
	}
	var entries []entry
	for _, g := range tab.Rows() {
		if !f.Match(g) {
			continue
		}
		v, ok := g.Numeric(byCol)
		if !ok {
			continue
		}
		entries = append(entries, entry{identity: rowIdentity(g), value: v})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].identity < entries[j].identity
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{Label: e.identity, Value: e.value})
	}
	return rows
}

func rowIdentity(g dataset.Grant) string {
	switch {
	case g.Funder != "" && g.Recipient != "":
		return g.Funder + " / " + g.Recipient
	case g.Funder != "":
		return g.Funder
	case g.Recipient != "":
		return g.Recipient
	}
	return fmt.Sprintf("grant-%d-%.0f", g.Year, g.Amount)
}

// sortedRows orders by value descending, ties by label ascending.
func sortedRows(m map[string]float64) []Row {
	rows := make([]Row, 0, len(m))
	for label, v := range m {
		rows = append(rows, Row{Label: label, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
