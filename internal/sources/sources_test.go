package sources

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSourcesValid(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for _, s := range all {
		assert.NoError(t, s.Validate(), s.Name)
	}
	assert.True(t, sort.SliceIsSorted(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	}))
}

func TestByName(t *testing.T) {
	s, err := ByName("markus-lanz")
	require.NoError(t, err)
	assert.Equal(t, "markus-lanz", s.Name)
	assert.False(t, s.Static)

	_, err = ByName("nachtcafe")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := Source{Name: "x", ListingURL: "https://example.com", EpisodeLinkSelector: "a"}
	assert.Error(t, s.Validate(), "missing date rule")

	s.DateRule = DateFromSlug
	assert.NoError(t, s.Validate())

	s.Name = ""
	assert.Error(t, s.Validate())
}

func TestDateFromSlugNumeric(t *testing.T) {
	d, ok := DateFromSlug("https://example.com/talk-2025-01-14-102.html")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC), d)
}

func TestDateFromSlugGerman(t *testing.T) {
	d, ok := DateFromSlug("https://www.zdf.de/markus-lanz-vom-14-januar-2025-100.html")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC), d)

	d, ok = DateFromSlug("https://example.com/sendung-vom-3-maerz-2024-100.html")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), d)
}

func TestDateFromSlugMiss(t *testing.T) {
	_, ok := DateFromSlug("https://example.com/ueber-die-sendung.html")
	assert.False(t, ok)

	_, ok = DateFromSlug("https://example.com/vom-99-januar-2025.html")
	assert.False(t, ok)
}

func TestEpisodeNumberRule(t *testing.T) {
	anchor := time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC)
	rule := EpisodeNumberRule(1400, anchor, 7*24*time.Hour)

	d, ok := rule("https://example.com/folge-1402.html")
	require.True(t, ok)
	assert.Equal(t, anchor.AddDate(0, 0, 14), d)

	d, ok = rule("https://example.com/folge-1399.html")
	require.True(t, ok)
	assert.Equal(t, anchor.AddDate(0, 0, -7), d)

	_, ok = rule("https://example.com/specials.html")
	assert.False(t, ok)
}
