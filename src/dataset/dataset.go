package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// Canonical column names shared by the planner, the engine and the
// dataset provider.
const (
	ColFunder     = "funder_name"
	ColRecipient  = "recip_name"
	ColAmount     = "amount_usd"
	ColSubject    = "grant_subject_tran"
	ColPopulation = "grant_population_tran"
	ColGeography  = "grant_geo_area_tran"
	ColYear       = "year_issued"
)

// Column types as seen by the planner.
const (
	TypeText    = "text"
	TypeNumeric = "numeric"
)

// Column describes one dataset column.
type Column struct {
	Name string
	Type string
}

// Schema is the ordered column list of a table. Planning decisions look only
// at the schema, never at row data.
type Schema []Column

// DefaultSchema returns the full canonical grant schema.
func DefaultSchema() Schema {
	return Schema{
		{Name: ColFunder, Type: TypeText},
		{Name: ColRecipient, Type: TypeText},
		{Name: ColAmount, Type: TypeNumeric},
		{Name: ColSubject, Type: TypeText},
		{Name: ColPopulation, Type: TypeText},
		{Name: ColGeography, Type: TypeText},
		{Name: ColYear, Type: TypeNumeric},
	}
}

// Has reports whether the schema contains the named column.
func (s Schema) Has(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Grant is one grant record. Tag columns hold sets of free-text labels.
type Grant struct {
	Funder      string
	Recipient   string
	Amount      float64
	Subjects    []string
	Populations []string
	Geographies []string
	Year        int
}

// Labels returns the label set a grant contributes to a categorical column.
func (g Grant) Labels(col string) []string {
	switch col {
	case ColFunder:
		if g.Funder == "" {
			return nil
		}
		return []string{g.Funder}
	case ColRecipient:
		if g.Recipient == "" {
			return nil
		}
		return []string{g.Recipient}
	case ColSubject:
		return g.Subjects
	case ColPopulation:
		return g.Populations
	case ColGeography:
		return g.Geographies
	case ColYear:
		if g.Year == 0 {
			return nil
		}
		return []string{strconv.Itoa(g.Year)}
	}
	return nil
}

// Numeric returns the numeric value of a grant for a numeric column.
func (g Grant) Numeric(col string) (float64, bool) {
	switch col {
	case ColAmount:
		return g.Amount, true
	case ColYear:
		if g.Year == 0 {
			return 0, false
		}
		return float64(g.Year), true
	}
	return 0, false
}

// Table is an immutable snapshot of grant records plus the schema it was
// loaded with. No pipeline stage mutates a table after construction.
type Table struct {
	schema      Schema
	rows        []Grant
	fingerprint uint64
}

// NewTable validates the record invariants and freezes the snapshot.
// Amounts must be non-negative; years must be four-digit or zero.
func NewTable(schema Schema, rows []Grant) (*Table, error) {
	if len(schema) == 0 {
		schema = DefaultSchema()
	}
	for i, g := range rows {
		if g.Amount < 0 {
			return nil, fmt.Errorf("dataset: row %d: negative amount %.2f", i, g.Amount)
		}
		if g.Year != 0 && (g.Year < 1000 || g.Year > 9999) {
			return nil, fmt.Errorf("dataset: row %d: year %d is not a 4-digit year", i, g.Year)
		}
	}
	snapshot := make([]Grant, len(rows))
	copy(snapshot, rows)
	return &Table{schema: schema, rows: snapshot, fingerprint: fingerprint(snapshot)}, nil
}

// Schema returns the table's column schema.
func (t *Table) Schema() Schema { return t.schema }

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns the underlying records. Callers must treat the slice as
// read-only.
func (t *Table) Rows() []Grant { return t.rows }

// Fingerprint is a stable content hash of the snapshot, usable as a cache
// key component.
func (t *Table) Fingerprint() uint64 { return t.fingerprint }

func fingerprint(rows []Grant) uint64 {
	h := xxhash.New64()
	for _, g := range rows {
		fmt.Fprintf(h, "%s|%s|%.4f|%d|%s|%s|%s\n",
			g.Funder, g.Recipient, g.Amount, g.Year,
			strings.Join(g.Subjects, ";"),
			strings.Join(g.Populations, ";"),
			strings.Join(g.Geographies, ";"))
	}
	return h.Sum64()
}

// Profile is the user-supplied project profile. Every field is optional;
// profile data only narrows or orders results, it can never fail a run.
type Profile struct {
	ExperienceLevel string   `json:"experience_level"`
	OrgType         string   `json:"org_type"`
	Region          string   `json:"region"`
	BudgetRange     string   `json:"budget_range"`
	Goal            string   `json:"goal"`
	Subjects        []string `json:"subjects"`
	Populations     []string `json:"populations"`
}

// Filter is a row predicate built from expanded profile tokens. Variant
// lists are lowercased; an empty list leaves that dimension unfiltered.
type Filter struct {
	Subjects    []string
	Populations []string
	Geographies []string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool {
	return len(f.Subjects) == 0 && len(f.Populations) == 0 && len(f.Geographies) == 0
}

// Match reports whether a grant passes every non-empty dimension of the
// filter. Matching is case-insensitive substring containment over the
// grant's tag text, so "texas" matches a row tagged "Texas (statewide)".
func (f Filter) Match(g Grant) bool {
	if len(f.Subjects) > 0 && !containsAny(g.Subjects, f.Subjects) {
		return false
	}
	if len(f.Populations) > 0 && !containsAny(g.Populations, f.Populations) {
		return false
	}
	if len(f.Geographies) > 0 && !containsAny(g.Geographies, f.Geographies) {
		return false
	}
	return true
}

// Key renders the filter as a stable string for task identity hashing.
func (f Filter) Key() string {
	parts := []string{
		"s=" + canonicalJoin(f.Subjects),
		"p=" + canonicalJoin(f.Populations),
		"g=" + canonicalJoin(f.Geographies),
	}
	return strings.Join(parts, "&")
}

// CountMatching returns how many rows pass the filter.
func (t *Table) CountMatching(f Filter) int {
	n := 0
	for _, g := range t.rows {
		if f.Match(g) {
			n++
		}
	}
	return n
}

func containsAny(tags []string, variants []string) bool {
	if len(tags) == 0 {
		return false
	}
	joined := strings.ToLower(strings.Join(tags, "; "))
	for _, v := range variants {
		if v != "" && strings.Contains(joined, v) {
			return true
		}
	}
	return false
}

func canonicalJoin(vs []string) string {
	sorted := make([]string, len(vs))
	copy(sorted, vs)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
