package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Foodborne", Foodborne},
		{"food poisoning", Foodborne},
		{"Vector-borne, zoonotic", VectorBorne},
		{"Waterborne/Foodborne", Waterborne},
		{"Re-emerging diseases", Emerging},
		{"reemerging", Emerging},
		{"Hospital acquired", Healthcare},
		{"HAIs", Healthcare},
		{"amr", Antimicrobial},
		{"  other ", Other},
		{"", Other},
		{", Airborne", Airborne},
		{"parasitic infections", "Parasitic Infections"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	inputs := []string{"Vector-Borne", "mystery label", "food, water", "EMERGING", "x/y/z"}
	for _, in := range inputs {
		first := Normalize(in)
		for i := 0; i < 50; i++ {
			require.Equal(t, first, Normalize(in), in)
		}
	}
}

func TestCanonicalAlwaysInSet(t *testing.T) {
	for _, in := range []string{"parasitic", "Vector", "", "Ünknown thing", "Other", "respiratory"} {
		got := Canonical(in)
		assert.True(t, IsCanonical(got), "%q -> %q", in, got)
	}
	assert.Equal(t, Other, Canonical("parasitic infections"))
	assert.Equal(t, Respiratory, Canonical("respiratory illness"))
}

func TestEveryCanonicalNormalizesToItself(t *testing.T) {
	for _, d := range All() {
		assert.Equal(t, d.Name, Normalize(d.Name))
		assert.Equal(t, d.Name, Normalize(d.Name+", misc"))
	}
	assert.Len(t, All(), 16)
}

func TestLookupColors(t *testing.T) {
	d, ok := Lookup(VectorBorne)
	require.True(t, ok)
	assert.NotEmpty(t, d.Color)
	assert.NotEmpty(t, d.Icon)

	_, ok = Lookup("Vector")
	assert.False(t, ok)
}

func TestMergePreference(t *testing.T) {
	defs := Merge([]CatalogEntry{
		{Name: "Foodborne, Waterborne", Icon: "x"},
		{Name: "foodborne illness", Icon: "y"},
		{Name: "Foodborne Outbreaks", Icon: "z"},
		{Name: "Mystery", Icon: "ignored"},
		{Name: "other", Icon: "question", Color: "#000"},
	})
	require.Len(t, defs, 2)

	assert.Equal(t, Foodborne, defs[0].Name)
	assert.Equal(t, "utensils", defs[0].Icon, "canonical icon wins over hints")

	assert.Equal(t, Other, defs[1].Name)
	assert.Equal(t, "#9ca3af", defs[1].Color)
	assert.Equal(t, "question", defs[1].Icon, "exact spelling preferred over approximate match")
}

func TestEntryRank(t *testing.T) {
	assert.Equal(t, 0, entryRank("zoonotic outbreaks", Zoonotic))
	assert.Equal(t, 1, entryRank("Zoonoses", Zoonotic))
	assert.Equal(t, 2, entryRank("Zoonotic, Vector-borne", Zoonotic))
}
