package correction

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"voltcli/internal/dataset"
)

// NotInDirectory is the sentinel choice offered alongside fuzzy candidates.
// Choosing it records the operator's judgement that the station genuinely has
// no reference entry, and applies no correction.
const NotInDirectory = "(not in DB)"

// Suggestion is one fuzzy-match candidate for an unresolved station.
type Suggestion struct {
	Station string  `json:"station"`
	Score   float64 `json:"score"`
}

// Suggestions ranks the canonical station names by similarity to the
// unresolved name and returns the top k. Similarity is a 0-100 ratio over
// the canonical join keys, so case, diacritics, voltage-class tokens and
// boilerplate do not dilute the score.
func Suggestions(unresolved string, canonical []string, k int) []Suggestion {
	if k <= 0 {
		k = 5
	}
	target := matchKey(unresolved)

	out := make([]Suggestion, 0, len(canonical))
	for _, name := range canonical {
		out = append(out, Suggestion{Station: name, Score: similarity(target, matchKey(name))})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Station < out[j].Station
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// matchKey normalizes a name for scoring. Names reduced to nothing by the
// join-key stripping fall back to the folded form.
func matchKey(s string) string {
	if key := dataset.JoinKey(s); key != "" {
		return key
	}
	return dataset.Fold(s)
}

// similarity maps Levenshtein distance onto a 0-100 ratio.
func similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}
