package dataset

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes to NFD, drops combining marks and recomposes.
// This turns "Trạm Biến Áp" into "Tram Bien Ap".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	voltClassRe  = regexp.MustCompile(`\b\d{2,3}\s*kv\b`)
	boilerRe     = regexp.MustCompile(`\b(tba|tram bien ap|nm|tdn|td|xm|nmd|nmdn|nmt|nha may|xi mang|kcn)\b`)
	bareTokenRe  = regexp.MustCompile(`\b\d+[a-z]?\b`)
	punctRe      = regexp.MustCompile(`[,/()\-]`)
)

// Fold lower-cases the input and strips diacritics. The stroked đ/Đ do not
// decompose into a combining mark, so they are mapped explicitly.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = strings.ReplaceAll(s, "đ", "d") // đ
	return whitespaceRe.ReplaceAllString(s, " ")
}

// JoinKey canonicalizes a free-text station name into the key used for
// reference-directory lookups. On top of Fold it removes voltage-class
// tokens ("110kV"), the fixed administrative boilerplate vocabulary, bare
// numeric or alphanumeric suffix tokens and punctuation.
//
// Two names differing only in diacritics, case, spacing or boilerplate
// tokens produce the same key.
func JoinKey(s string) string {
	s = Fold(s)
	s = voltClassRe.ReplaceAllString(s, " ")
	s = boilerRe.ReplaceAllString(s, " ")
	s = bareTokenRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// NormalizeHeader collapses internal whitespace and trims a header cell.
func NormalizeHeader(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// squashHeader removes all whitespace and lower-cases; used for matching
// headers against short candidate labels.
func squashHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
