package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPackageOrVersion is returned by Submit when the pair is not in
	// the current catalog. No job is created.
	ErrUnknownPackageOrVersion = errors.New("unknown package or version")
	// ErrInvalidIdentifier fails a job whose package name or version contains
	// characters outside [A-Za-z0-9._-].
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrNoArtifacts is returned by Submit for a container variant without a
	// primary artifact.
	ErrNoArtifacts = errors.New("variant has no primary artifact")
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("job queue is full")
	ErrShutdown    = errors.New("dispatcher is shut down")
	// ErrAbandoned fails jobs that were still queued or running when the
	// dispatcher was shut down with the Abandon policy.
	ErrAbandoned = errors.New("job abandoned at shutdown")
)

// maxDiagnostic bounds the captured output kept on a StepError.
const maxDiagnostic = 4 << 10

// StepError reports the step that failed a job with its captured output.
type StepError struct {
	Step   string
	Output string
	Err    error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %s: %v", e.Step, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }

// tail keeps the last maxDiagnostic bytes of out, where failures are
// usually reported.
func tail(out []byte) string {
	if len(out) <= maxDiagnostic {
		return string(out)
	}
	return "..." + string(out[len(out)-maxDiagnostic:])
}
