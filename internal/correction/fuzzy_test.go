package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionsRanking(t *testing.T) {
	canonical := []string{
		"TBA Hà Nội",
		"TBA Hà Nam",
		"TBA Đà Nẵng",
		"TBA Cần Thơ",
	}

	got := Suggestions("TBA Ha Noi", canonical, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "TBA Hà Nội", got[0].Station)
	assert.Equal(t, float64(100), got[0].Score, "diacritics must not dilute the score")
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	assert.GreaterOrEqual(t, got[1].Score, got[2].Score)
}

func TestSuggestionsTieBreaksByName(t *testing.T) {
	got := Suggestions("abc", []string{"abd", "abe"}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Score, got[1].Score)
	assert.Equal(t, "abd", got[0].Station)
}

func TestSuggestionsDefaultsCount(t *testing.T) {
	canonical := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	got := Suggestions("a0", canonical, 0)
	assert.Len(t, got, 5)
}

func TestSuggestionsShortList(t *testing.T) {
	got := Suggestions("abc", []string{"abc"}, 5)
	require.Len(t, got, 1)
	assert.Equal(t, float64(100), got[0].Score)
}

func TestSimilarityBounds(t *testing.T) {
	assert.Equal(t, float64(100), similarity("abc", "abc"))
	assert.Equal(t, float64(0), similarity("abc", "xyz"))
	assert.Equal(t, float64(100), similarity("", ""))
	assert.InDelta(t, 66.7, similarity("abc", "abd"), 0.1)
}
