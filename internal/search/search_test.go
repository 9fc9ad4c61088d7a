package search

import (
	"errors"
	"testing"

	"github.com/ada-labs/swinstall/internal/catalog"
)

func packages(names ...string) []catalog.Package {
	out := make([]catalog.Package, len(names))
	for i, n := range names {
		out[i] = catalog.Package{Name: n}
	}
	return out
}

func names(pkgs []catalog.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.Name
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearch(t *testing.T) {
	catalogPkgs := packages("Blender", "GIMP", "Inkscape")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"prefix", "blen", []string{"Blender"}},
		{"case insensitive", "gimp", []string{"GIMP"}},
		{"upper query", "INKSCAPE", []string{"Inkscape"}},
		{"typo", "blnder", []string{"Blender"}},
		{"no match", "zzz", []string{}},
	}

	ix := New(DefaultThreshold)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.Search(catalogPkgs, tt.query)
			if err != nil {
				t.Fatalf("Search(%q) error: %v", tt.query, err)
			}
			if !equalNames(names(got), tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, names(got), tt.want)
			}
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	ix := New(DefaultThreshold)
	for _, q := range []string{"", "   "} {
		if _, err := ix.Search(packages("Blender"), q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Search(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestRankOrdersByScore(t *testing.T) {
	ix := New(DefaultThreshold)
	matches, err := ix.Rank(packages("GIMP", "Inkscpe", "Inkscape"), "inkscape")
	if err != nil {
		t.Fatalf("Rank error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Package.Name != "Inkscape" || matches[0].Score != 100 {
		t.Errorf("first match = %s/%d, want Inkscape/100", matches[0].Package.Name, matches[0].Score)
	}
	if matches[1].Package.Name != "Inkscpe" {
		t.Errorf("second match = %s, want Inkscpe", matches[1].Package.Name)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("scores not descending: %v", matches)
		}
	}
}

func TestRankTiesKeepCatalogOrder(t *testing.T) {
	ix := New(DefaultThreshold)
	got, err := ix.Search(packages("Blender-LTS", "GIMP", "Blender"), "blender")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	want := []string{"Blender-LTS", "Blender"}
	if !equalNames(names(got), want) {
		t.Errorf("Search = %v, want %v", names(got), want)
	}
}

func TestThresholdIsClamped(t *testing.T) {
	if got := New(150).Threshold(); got != 100 {
		t.Errorf("New(150).Threshold() = %d, want 100", got)
	}
	if got := New(-5).Threshold(); got != 0 {
		t.Errorf("New(-5).Threshold() = %d, want 0", got)
	}

	got, err := New(0).Search(packages("Blender", "GIMP"), "zzz")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("threshold 0 returned %d packages, want 2", len(got))
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		candidate string
		want      int
	}{
		{"identical", "Blender", "Blender", 100},
		{"substring", "blen", "Blender", 100},
		{"query longer than name", "blender studio", "Blender", 100},
		{"reordered words", "image gimp", "GIMP Image", 100},
		{"separators ignored", "vs code", "VS-Code", 100},
		{"one substitution in four", "blxn", "Blender", 75},
		{"disjoint", "zzz", "Inkscape", 0},
		{"empty query", "", "Blender", 0},
		{"empty candidate", "blender", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.query, tt.candidate); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.query, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestMatchedIndexes(t *testing.T) {
	got := MatchedIndexes("bln", "blender")
	if len(got) != 3 {
		t.Fatalf("MatchedIndexes = %v, want 3 indexes", got)
	}
	if got[0] != 0 {
		t.Errorf("first index = %d, want 0", got[0])
	}
	if MatchedIndexes("xyz", "blender") != nil {
		t.Error("expected nil for non-subsequence")
	}
}
