package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageMinutesPerPage(t *testing.T) {
	testCases := []struct {
		category string
		expected float64
	}{
		{"Romance", 1.75},
		{"  FICÇÃO ", 1.75},
		{"Ciência", 5},
		{"Bíblia", 4},
		{"biblia", 4},
		{"cookbooks", DefaultMinutesPerPage},
		{"", DefaultMinutesPerPage},
	}

	for _, tc := range testCases {
		t.Run(tc.category, func(t *testing.T) {
			assert.InDelta(t, tc.expected, AverageMinutesPerPage(tc.category), 1e-9)
		})
	}
}

func TestLoadProfiles_MergesOverDefaults(t *testing.T) {
	override := `
default: {min: 1, max: 2}
categories:
  Romance: {min: 3, max: 3}
  Poesia: {min: 2, max: 4}
`
	profiles, err := LoadProfiles(strings.NewReader(override), DefaultProfiles())
	require.NoError(t, err)

	assert.InDelta(t, 3.0, profiles.AverageMinutesPerPage("romance"), 1e-9)
	assert.InDelta(t, 3.0, profiles.AverageMinutesPerPage("POESIA"), 1e-9)
	assert.InDelta(t, 5.0, profiles.AverageMinutesPerPage("science"), 1e-9)
	assert.InDelta(t, 1.5, profiles.AverageMinutesPerPage("unknown"), 1e-9)

	// the built-in table is untouched
	assert.InDelta(t, 1.75, AverageMinutesPerPage("romance"), 1e-9)
}

func TestLoadProfiles_RejectsBadRanges(t *testing.T) {
	_, err := LoadProfiles(strings.NewReader("categories:\n  x: {min: 3, max: 1}\n"), DefaultProfiles())
	require.Error(t, err)

	_, err = LoadProfiles(strings.NewReader("categories: [1, 2"), DefaultProfiles())
	require.Error(t, err)
}

func TestLoadProfiles_EmptyDocumentKeepsBase(t *testing.T) {
	profiles, err := LoadProfiles(strings.NewReader(""), DefaultProfiles())
	require.NoError(t, err)
	assert.InDelta(t, 1.75, profiles.AverageMinutesPerPage("romance"), 1e-9)
}

func TestTimeProfiles_ZeroValueUsesDefault(t *testing.T) {
	var profiles TimeProfiles
	assert.Equal(t, DefaultMinutesPerPage, profiles.AverageMinutesPerPage("romance"))
}
