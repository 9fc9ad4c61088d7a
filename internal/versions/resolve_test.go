package versions

import (
	"slices"
	"testing"
)

func TestLatest(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     string
	}{
		{"numeric beats lexical", []string{"1.2.0", "1.10.0", "1.3.0"}, "1.10.0"},
		{"lexical fallback", []string{"abc", "xyz"}, "xyz"},
		{"mixed set is lexical", []string{"1.10", "1.9", "beta"}, "beta"},
		{"mixed set lexical ordering of numbers", []string{"1.10", "1.9", "0.1-rc"}, "1.9"},
		{"zero padding", []string{"1.2", "1.2.1"}, "1.2.1"},
		{"single", []string{"9.9"}, "9.9"},
		{"large components", []string{"2024.10.1", "2024.9.30"}, "2024.10.1"},
		{"empty token is not numeric", []string{"1..2", "1.3"}, "1.3"},
		{"v prefix is not numeric", []string{"v2", "v10"}, "v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Label(tt.versions)
			if got != tt.want {
				t.Errorf("Label(%v) = %q, want %q", tt.versions, got, tt.want)
			}
		})
	}
}

func TestLatestTieKeepsFirst(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     int
	}{
		{"padded equal", []string{"1.2", "1.2.0", "1.1"}, 0},
		{"padded equal reversed", []string{"1.1", "1.2.0", "1.2"}, 1},
		{"leading zeros", []string{"1.02", "1.2"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Latest(tt.versions); got != tt.want {
				t.Errorf("Latest(%v) = %d, want %d", tt.versions, got, tt.want)
			}
		})
	}
}

func TestLatestEmpty(t *testing.T) {
	if got := Latest(nil); got != -1 {
		t.Errorf("Latest(nil) = %d, want -1", got)
	}
	if got := Label([]string{}); got != Unavailable {
		t.Errorf("Label(empty) = %q, want %q", got, Unavailable)
	}
}

func TestLatestIsMember(t *testing.T) {
	sets := [][]string{
		{"3", "1", "2"},
		{"a", "c", "b"},
		{"1.0", "1.0.0.0"},
		{"", "1"},
	}
	for _, vs := range sets {
		i := Latest(vs)
		if i < 0 || i >= len(vs) {
			t.Errorf("Latest(%v) = %d, out of range", vs, i)
		}
	}
}

func TestOrderingOf(t *testing.T) {
	if got := OrderingOf([]string{"1", "2.3"}); got != Numeric {
		t.Errorf("OrderingOf numeric = %s", got)
	}
	if got := OrderingOf([]string{"1", "2.3-beta"}); got != Lexical {
		t.Errorf("OrderingOf mixed = %s", got)
	}
}

func TestSortDescending(t *testing.T) {
	in := []string{"1.2.0", "1.10.0", "1.3.0", "1.3"}
	got := SortDescending(in)
	want := []string{"1.10.0", "1.3.0", "1.3", "1.2.0"}
	if !slices.Equal(got, want) {
		t.Errorf("SortDescending(%v) = %v, want %v", in, got, want)
	}
	if in[0] != "1.2.0" {
		t.Error("SortDescending modified its input")
	}
}
