package advisor

import (
	"strings"

	"github.com/grantpath/grantpath/src/alias"
	"github.com/grantpath/grantpath/src/dataset"
)

// buildFilter expands the profile into a row filter. A dimension whose
// expanded variants would match no row at all is skipped rather than
// zeroing out the dataset; if the combined filter still eliminates every
// row, the run falls back to the unfiltered table.
func buildFilter(r *alias.Resolver, tab *dataset.Table, p dataset.Profile) dataset.Filter {
	var f dataset.Filter

	if variants := r.ExpandAll(p.Subjects, alias.KindSubject); len(variants) > 0 {
		if tab.CountMatching(dataset.Filter{Subjects: variants}) > 0 {
			f.Subjects = variants
		}
	}
	if variants := r.ExpandAll(p.Populations, alias.KindPopulation); len(variants) > 0 {
		if tab.CountMatching(dataset.Filter{Populations: variants}) > 0 {
			f.Populations = variants
		}
	}
	if variants := r.ExpandAll(regionTokens(p.Region), alias.KindGeography); len(variants) > 0 {
		if tab.CountMatching(dataset.Filter{Geographies: variants}) > 0 {
			f.Geographies = variants
		}
	}

	if !f.IsZero() && tab.Len() > 0 && tab.CountMatching(f) == 0 {
		return dataset.Filter{}
	}
	return f
}

// regionTokens splits a free-text region into individual tokens for alias
// expansion ("Austin, TX" -> ["austin", "tx"]).
func regionTokens(region string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(region, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	}) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
