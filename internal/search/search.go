package search

import (
	"errors"
	"slices"
	"strings"

	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/sahilm/fuzzy"
)

// DefaultThreshold is the minimum score for inclusion.
const DefaultThreshold = 50

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Match is a package and its similarity score.
type Match struct {
	Package catalog.Package
	Score   int
}

// Index filters package lists by name similarity.
type Index struct {
	threshold int
}

// New returns an Index with the given inclusion threshold (0-100).
func New(threshold int) *Index {
	return &Index{threshold: min(max(threshold, 0), 100)}
}

// Threshold returns the inclusion threshold.
func (ix *Index) Threshold() int { return ix.threshold }

// Rank scores every package name against query and returns those at or
// above the threshold, best first. Equal scores keep the order of pkgs.
func (ix *Index) Rank(pkgs []catalog.Package, query string) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	var matches []Match
	for _, p := range pkgs {
		if score := Score(query, p.Name); score >= ix.threshold {
			matches = append(matches, Match{Package: p, Score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Score - a.Score
	})
	return matches, nil
}

// Search is Rank without the scores.
func (ix *Index) Search(pkgs []catalog.Package, query string) ([]catalog.Package, error) {
	matches, err := ix.Rank(pkgs, query)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Package, len(matches))
	for i, m := range matches {
		out[i] = m.Package
	}
	return out, nil
}

// MatchedIndexes returns the byte offsets in name of the characters that
// match query as an in-order subsequence, for highlighting. It returns nil
// when query is not a subsequence of name.
func MatchedIndexes(query, name string) []int {
	matches := fuzzy.Find(query, []string{name})
	if len(matches) == 0 {
		return nil
	}
	return matches[0].MatchedIndexes
}
