package alias

import (
	"sort"
	"strings"
)

// Kind selects which synonym table applies when expanding a token.
type Kind string

const (
	KindGeneric    Kind = "generic"
	KindSubject    Kind = "subject"
	KindPopulation Kind = "population"
	KindGeography  Kind = "geography"
)

// Resolver expands normalized profile tokens into textual variants used for
// row matching. Expansion is pure and total: every input yields at least the
// lowercased input itself, and the same input always yields the same output.
type Resolver struct {
	topical map[string][]string
	geo     map[string][]string
}

// NewResolver returns a resolver loaded with the built-in synonym tables.
func NewResolver() *Resolver {
	return &Resolver{
		topical: map[string][]string{
			"low_income":         {"low income", "low-income", "low income people", "low-income people"},
			"low income":         {"low income", "low-income", "low income people", "low-income people"},
			"low-income":         {"low income", "low-income", "low income people", "low-income people"},
			"after_school":       {"after school", "after-school", "out-of-school", "out of school"},
			"after school":       {"after school", "after-school", "out-of-school", "out of school"},
			"after-school":       {"after school", "after-school", "out-of-school", "out of school"},
			"youth":              {"youth", "children and youth", "young people"},
			"children and youth": {"youth", "children and youth", "young people"},
			"students":           {"students", "student"},
			"stem":               {"stem", "science technology engineering mathematics"},
			"technology":         {"technology", "information and communications", "it"},
			"education":          {"education", "education services", "elementary and secondary education", "youth development"},
			"youth_education":    {"education", "education services", "elementary and secondary education", "youth development"},
			"youth education":    {"education", "education services", "elementary and secondary education", "youth development"},
		},
		geo: map[string][]string{
			"us": {"united states", "u.s.", "usa"},
			"tx": {"texas", "austin", "dallas", "houston", "san antonio", "fort worth"},
			"ca": {"california", "los angeles", "san francisco", "san diego", "sacramento", "oakland"},
			"ny": {"new york", "new york city", "brooklyn", "queens", "manhattan", "albany"},
			"fl": {"florida", "miami", "orlando", "tampa", "jacksonville", "tallahassee"},
			"il": {"illinois", "chicago", "springfield", "rockford"},
			"wa": {"washington", "seattle", "spokane", "tacoma", "olympia"},
			"ma": {"massachusetts", "boston", "cambridge", "worcester", "springfield"},
			// City to state, so a city-level profile still matches state rows.
			"austin":        {"texas", "tx"},
			"dallas":        {"texas", "tx"},
			"houston":       {"texas", "tx"},
			"los angeles":   {"california", "ca"},
			"san francisco": {"california", "ca"},
			"chicago":       {"illinois", "il"},
			"seattle":       {"washington", "wa"},
			"boston":        {"massachusetts", "ma"},
			"miami":         {"florida", "fl"},
			"new york city": {"new york", "ny"},
		},
	}
}

// Expand returns the sorted, deduplicated variant set for one token. The
// output always contains the lowercased trimmed input; an empty input yields
// an empty slice.
func (r *Resolver) Expand(token string, kind Kind) []string {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return nil
	}
	set := map[string]struct{}{t: {}}
	for _, v := range structuralVariants(t) {
		set[v] = struct{}{}
	}
	switch kind {
	case KindGeography:
		for _, s := range r.geo[t] {
			set[s] = struct{}{}
		}
	default:
		for _, s := range r.topical[t] {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ExpandAll expands every term and deduplicates across the whole list while
// preserving first-seen order.
func (r *Resolver) ExpandAll(terms []string, kind Kind) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range terms {
		for _, v := range r.Expand(t, kind) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// structuralVariants swaps underscores, hyphens and spaces so tokens match
// whichever separator the dataset happens to use.
func structuralVariants(t string) []string {
	return []string{
		strings.ReplaceAll(t, "_", " "),
		strings.ReplaceAll(t, "_", "-"),
		strings.ReplaceAll(t, "-", " "),
		strings.ReplaceAll(t, "-", "_"),
		strings.ReplaceAll(t, " ", "_"),
		strings.ReplaceAll(t, " ", "-"),
	}
}
