package dispatch

import (
	"fmt"
	"regexp"
	"strings"
)

// The first character may not be a dot or dash, which keeps identifiers
// from naming parent directories or reading as command-line flags.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

// ValidateIdentifier reports whether s may be used in a path or command.
// Only letters, digits, dot, dash and underscore are allowed.
func ValidateIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return nil
}

// BuildCommand expands {key} placeholders in an argument template with
// vars. Every value is validated with ValidateIdentifier first. The result
// is an argument vector for direct execution; it is never handed to a shell.
func BuildCommand(template []string, vars map[string]string) ([]string, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("empty command template")
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		if err := ValidateIdentifier(v); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	argv := make([]string, len(template))
	for i, arg := range template {
		argv[i] = r.Replace(arg)
		if open := strings.IndexByte(argv[i], '{'); open >= 0 && strings.IndexByte(argv[i][open:], '}') > 0 {
			return nil, fmt.Errorf("unknown placeholder in %q", arg)
		}
	}
	return argv, nil
}
