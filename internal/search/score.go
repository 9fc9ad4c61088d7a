package search

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Score returns the similarity of query and candidate on a 0-100 scale.
func Score(query, candidate string) int {
	q := normalize(query)
	c := normalize(candidate)
	if q == "" || c == "" {
		return 0
	}

	best := partialRatio(q, c)
	if best == 100 {
		return best
	}
	qs, cs := sortTokens(q), sortTokens(c)
	if qs != q || cs != c {
		best = max(best, partialRatio(qs, cs))
	}
	return best
}

// normalize case-folds s and collapses every run of non-alphanumeric runes
// into one space.
func normalize(s string) string {
	folded := cases.Fold().String(s)
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// partialRatio slides the shorter string across the longer one and returns
// the best window similarity.
func partialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		d := levenshtein.ComputeDistance(s, string(long[i:i+len(short)]))
		if sim := similarity(d, len(short)); sim > best {
			best = sim
			if best == 100 {
				break
			}
		}
	}
	return best
}

func similarity(distance, length int) int {
	if length == 0 {
		return 0
	}
	return (200*(length-distance) + length) / (2 * length)
}
