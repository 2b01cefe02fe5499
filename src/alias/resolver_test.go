package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandGeographyCityToState(t *testing.T) {
	r := NewResolver()
	got := r.Expand("Austin", KindGeography)
	assert.Contains(t, got, "austin")
	assert.Contains(t, got, "texas")
	assert.Contains(t, got, "tx")
}

func TestExpandUnknownTokenYieldsItself(t *testing.T) {
	r := NewResolver()
	got := r.Expand("  Zebra ", KindGeography)
	assert.Equal(t, []string{"zebra"}, got)
}

func TestExpandEmptyInput(t *testing.T) {
	r := NewResolver()
	assert.Nil(t, r.Expand("", KindSubject))
	assert.Nil(t, r.Expand("   ", KindSubject))
}

func TestExpandStructuralVariants(t *testing.T) {
	r := NewResolver()
	got := r.Expand("after_school", KindPopulation)
	assert.Contains(t, got, "after school")
	assert.Contains(t, got, "after-school")
	assert.Contains(t, got, "out of school")
}

func TestExpandDeterministic(t *testing.T) {
	r := NewResolver()
	first := r.Expand("tx", KindGeography)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, r.Expand("tx", KindGeography))
	}
}

func TestExpandTopicalSynonymsIgnoredForGeography(t *testing.T) {
	r := NewResolver()
	got := r.Expand("education", KindGeography)
	assert.NotContains(t, got, "youth development")
	assert.Contains(t, got, "education")
}

func TestExpandAllDeduplicatesAcrossTerms(t *testing.T) {
	r := NewResolver()
	got := r.ExpandAll([]string{"austin", "tx"}, KindGeography)
	counts := map[string]int{}
	for _, v := range got {
		counts[v]++
	}
	for v, n := range counts {
		assert.Equal(t, 1, n, "duplicate variant %q", v)
	}
	assert.Contains(t, got, "houston")
}
