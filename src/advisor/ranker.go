package advisor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/grantpath/grantpath/src/analysis"
	"github.com/grantpath/grantpath/src/dataset"
)

// Labels that name no real funder and must never become candidates.
var placeholderFunders = map[string]struct{}{
	"":          {},
	"other":     {},
	"unknown":   {},
	"n/a":       {},
	"na":        {},
	"none":      {},
	"null":      {},
	"nan":       {},
	"anonymous": {},
}

// rationaleTemplates are cycled deterministically in rank order so no two
// candidates in one report share a verbatim rationale even when their
// numbers coincide.
var rationaleTemplates = []string{
	"%s has directed %s across %d grants toward %s, making it one of the strongest matches in this dataset.",
	"With %[2]s granted over %[3]d awards, %[1]s shows a sustained commitment to %[4]s worth pursuing.",
	"%s stands out for %s: its %s in total giving across %d grants signals real capacity in this space.",
	"Grant records show %s awarding %s through %d separate grants, a pattern that aligns closely with %s.",
	"A track record of %d grants totaling %s puts %s among the most active funders for %s.",
	"%s appears repeatedly in the data, with %s committed over %d grants relevant to %s.",
}

type funderStats struct {
	identity string
	total    float64
	count    float64
	taskIDs  []string
}

// Rank scores funder candidates from the computed aggregates. The score is
// normalize(total_amount)*w1 + normalize(grant_count)*w2, normalized against
// the maxima observed in the supplied results, ties broken by identity
// ascending. It is a pure function of its inputs.
//
// When no funder-bearing result exists the candidate list is empty and the
// returned note carries an explanation for the composer instead of failing
// the run.
func Rank(tasks []analysis.Task, results []analysis.Result, profile dataset.Profile, cfg Config) ([]Candidate, string) {
	cfg.setDefaults()
	byID := map[string]analysis.Task{}
	for _, t := range tasks {
		byID[t.ID] = t
	}

	stats := map[string]*funderStats{}
	get := func(identity string) *funderStats {
		key := strings.ToLower(strings.TrimSpace(identity))
		if s, ok := stats[key]; ok {
			return s
		}
		s := &funderStats{identity: identity}
		stats[key] = s
		return s
	}

	sawFunderData := false
	for _, res := range results {
		task, ok := byID[res.TaskID]
		if !ok {
			continue
		}
		switch {
		case task.Kind == analysis.KindGroupedSum && task.GroupColumn == dataset.ColFunder:
			for _, row := range res.Rows {
				if isPlaceholder(row.Label) {
					continue
				}
				sawFunderData = true
				s := get(row.Label)
				s.total += row.Value
				s.taskIDs = appendUnique(s.taskIDs, res.TaskID)
			}
		case task.Kind == analysis.KindValueCounts && task.Column == dataset.ColFunder:
			for _, row := range res.Rows {
				if isPlaceholder(row.Label) {
					continue
				}
				sawFunderData = true
				s := get(row.Label)
				s.count += row.Value
				s.taskIDs = appendUnique(s.taskIDs, res.TaskID)
			}
		case task.Kind == analysis.KindTopN:
			for _, row := range res.Rows {
				funder := row.Label
				if i := strings.Index(funder, " / "); i >= 0 {
					funder = funder[:i]
				}
				if isPlaceholder(funder) {
					continue
				}
				// Top-N only attests that the funder exists; totals and
				// counts come from the aggregate tasks.
				s := get(funder)
				s.taskIDs = appendUnique(s.taskIDs, res.TaskID)
			}
		}
	}

	if !sawFunderData {
		return nil, "no funder data was present in the analysis results; candidate ranking was skipped"
	}

	var maxTotal, maxCount float64
	for _, s := range stats {
		maxTotal = math.Max(maxTotal, s.total)
		maxCount = math.Max(maxCount, s.count)
	}

	candidates := make([]Candidate, 0, len(stats))
	for _, s := range stats {
		if s.total == 0 && s.count == 0 {
			continue
		}
		score := normalize(s.total, maxTotal)*cfg.WeightAmount + normalize(s.count, maxCount)*cfg.WeightCount
		candidates = append(candidates, Candidate{
			Identity:          s.identity,
			Score:             clamp01(round4(score)),
			TotalAmount:       s.total,
			GrantCount:        int(s.count),
			SupportingTaskIDs: s.taskIDs,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Identity < candidates[j].Identity
	})
	if len(candidates) > cfg.TopK {
		candidates = candidates[:cfg.TopK]
	}

	attachRationales(candidates, profile)
	return candidates, ""
}

// attachRationales fills in diversified rationale text, cycling templates in
// rank order and guaranteeing no verbatim duplicates within the report.
func attachRationales(candidates []Candidate, profile dataset.Profile) {
	dim := dominantDimension(profile)
	used := map[string]struct{}{}
	for i := range candidates {
		c := &candidates[i]
		var text string
		for offset := 0; offset < len(rationaleTemplates); offset++ {
			text = renderRationale((i+offset)%len(rationaleTemplates), c, dim)
			if _, dup := used[text]; !dup {
				break
			}
		}
		if _, dup := used[text]; dup {
			text = fmt.Sprintf("%s Ranked #%d overall in this report.", text, i+1)
		}
		used[text] = struct{}{}
		c.Rationale = text
	}
}

func renderRationale(idx int, c *Candidate, dim string) string {
	amount := formatAmount(c.TotalAmount)
	switch idx {
	case 2:
		return fmt.Sprintf(rationaleTemplates[idx], c.Identity, dim, amount, c.GrantCount)
	case 4:
		return fmt.Sprintf(rationaleTemplates[idx], c.GrantCount, amount, c.Identity, dim)
	default:
		return fmt.Sprintf(rationaleTemplates[idx], c.Identity, amount, c.GrantCount, dim)
	}
}

// dominantDimension picks the profile dimension that most directly matched
// the data, for interpolation into rationale text.
func dominantDimension(p dataset.Profile) string {
	switch {
	case len(p.Subjects) > 0:
		return strings.ToLower(strings.Join(p.Subjects, ", "))
	case len(p.Populations) > 0:
		return "communities serving " + strings.ToLower(strings.Join(p.Populations, ", "))
	case p.Region != "":
		return "work in " + p.Region
	case p.Goal != "":
		return "goals like yours"
	}
	return "this funding area"
}

func formatAmount(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.0fK", v/1e3)
	}
	return fmt.Sprintf("$%.0f", v)
}

func isPlaceholder(label string) bool {
	_, ok := placeholderFunders[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

func normalize(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
