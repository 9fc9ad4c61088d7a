package versions

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Unavailable is the display label for a package with no known versions.
const Unavailable = "unavailable"

// Ordering identifies which comparator a candidate set resolved to.
type Ordering int

const (
	Numeric Ordering = iota
	Lexical
)

func (o Ordering) String() string {
	if o == Numeric {
		return "numeric"
	}
	return "lexical"
}

// Comparator compares two versions of one candidate set.
type Comparator func(a, b string) int

// OrderingOf reports the ordering that applies to vs as a whole.
func OrderingOf(vs []string) Ordering {
	for _, v := range vs {
		if _, ok := parseNumeric(v); !ok {
			return Lexical
		}
	}
	return Numeric
}

// ComparatorFor returns the comparator for the candidate set vs.
func ComparatorFor(vs []string) Comparator {
	if OrderingOf(vs) == Lexical {
		return strings.Compare
	}
	return compareNumeric
}

// Latest returns the index in vs of the latest version, or -1 when vs is
// empty. When several candidates compare equal (e.g. "1.2" and "1.2.0"), the
// one that appears first in vs wins.
func Latest(vs []string) int {
	if len(vs) == 0 {
		return -1
	}
	compare := ComparatorFor(vs)
	best := 0
	for i := 1; i < len(vs); i++ {
		if compare(vs[i], vs[best]) > 0 {
			best = i
		}
	}
	return best
}

// Label returns the latest version of vs, or Unavailable.
func Label(vs []string) string {
	i := Latest(vs)
	if i < 0 {
		return Unavailable
	}
	return vs[i]
}

// SortDescending returns a copy of vs ordered newest first. Equal versions
// keep their original relative order.
func SortDescending(vs []string) []string {
	out := slices.Clone(vs)
	compare := ComparatorFor(vs)
	slices.SortStableFunc(out, func(a, b string) int {
		return compare(b, a)
	})
	return out
}

func compareNumeric(a, b string) int {
	na, _ := parseNumeric(a)
	nb, _ := parseNumeric(b)
	n := max(len(na), len(nb))
	for i := 0; i < n; i++ {
		var x, y uint64
		if i < len(na) {
			x = na[i]
		}
		if i < len(nb) {
			y = nb[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// parseNumeric splits v on "." and parses each token as an unsigned integer.
func parseNumeric(v string) ([]uint64, bool) {
	if v == "" {
		return nil, false
	}
	tokens := strings.Split(v, ".")
	out := make([]uint64, len(tokens))
	for i, tok := range tokens {
		if tok == "" || tok[0] == '+' {
			return nil, false
		}
		n, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
