package versions

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrNoMatch is returned when no candidate satisfies a constraint.
	ErrNoMatch = errors.New("no version satisfies constraint")
	// ErrNotSemver is returned when a constraint is applied to a candidate
	// set that contains a non-semver version.
	ErrNotSemver = errors.New("candidate set is not semver")
)

// MatchConstraint returns the index of the highest version in vs that
// satisfies constraint (e.g. "~1.2", ">= 2.0, < 3"). Every candidate must
// parse as a semantic version; ties go to the earliest candidate.
func MatchConstraint(vs []string, constraint string) (int, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return -1, fmt.Errorf("parsing constraint %q: %w", constraint, err)
	}

	parsed := make([]*semver.Version, len(vs))
	for i, v := range vs {
		sv, err := semver.NewVersion(v)
		if err != nil {
			return -1, fmt.Errorf("%w: %q: %v", ErrNotSemver, v, err)
		}
		parsed[i] = sv
	}

	best := -1
	for i, sv := range parsed {
		if !c.Check(sv) {
			continue
		}
		if best < 0 || sv.GreaterThan(parsed[best]) {
			best = i
		}
	}
	if best < 0 {
		return -1, fmt.Errorf("%w %q", ErrNoMatch, constraint)
	}
	return best, nil
}
