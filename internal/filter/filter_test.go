package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eldo84/live-health-sub002/internal/config"
)

func defaultFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := FromConfig(config.FilterConfig{})
	require.NoError(t, err)
	return f
}

func TestValidDiseases(t *testing.T) {
	f := defaultFilter(t)
	for _, name := range []string{
		"Cholera", "COVID-19", "Dengue fever", "H5N1 avian influenza",
		"Mpox", "Guillain–Barré syndrome", "Marburg virus disease", "Hepatitis A",
	} {
		assert.True(t, f.Valid(name), name)
	}
}

func TestRejections(t *testing.T) {
	f := defaultFilter(t)
	cases := []struct {
		name string
		want Reason
	}{
		{"", Empty},
		{"   ", Empty},
		{"Outbreak", CategoryLabel},
		{"Vector-Borne", CategoryLabel},
		{"vaccination", DeniedName},
		{"  Vaccination ", DeniedName},
		{"Earthquake", DeniedName},
		{"diabetes", DeniedName},
		{"霍乱", NonLatin},
		{"Cholera вспышка", NonLatin},
		{"50 people infected", Pattern},
		{"1,200 cases", Pattern},
		{"virus killing 12", Pattern},
		{"Outbreak in Kenya", Pattern},
		{"New strain", Pattern},
		{"latest measles", Pattern},
		{"Measles | Rubella", Pattern},
		{"Regional health meeting", Pattern},
		{"Dengue alert", Pattern},
		{"Flu trends", Pattern},
		{"Global threats", Pattern},
		{"Mobile clinics", Pattern},
		{"Free clinic", Pattern},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.Check(tc.name))
			assert.False(t, f.Valid(tc.name))
		})
	}
}

func TestConfigAdditions(t *testing.T) {
	f, err := FromConfig(config.FilterConfig{
		ExtraNames:          []string{"Heat Dome"},
		ExtraCategoryLabels: []string{"misc"},
	})
	require.NoError(t, err)
	assert.Equal(t, DeniedName, f.Check("heat dome"))
	assert.Equal(t, CategoryLabel, f.Check("MISC"))
}

func TestBadPattern(t *testing.T) {
	_, err := New(Lists{Patterns: []string{"("}})
	assert.ErrorContains(t, err, "compile pattern")
}

func TestEmbeddedListsLoad(t *testing.T) {
	l, err := DefaultLists()
	require.NoError(t, err)
	assert.NotEmpty(t, l.CategoryLabels)
	assert.Contains(t, l.Names, "vaccination")
	assert.Len(t, l.Patterns, 6)
}
