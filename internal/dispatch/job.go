package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ada-labs/swinstall/internal/catalog"
)

// Status is the lifecycle state of a job or one of its steps.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canTransition allows only forward moves: Pending to Running or Failed,
// Running to Completed or Failed.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Step is the observable state of one step of a job.
type Step struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Job is a copy of a job's state. Mutating it has no effect on the
// dispatcher.
type Job struct {
	ID          string       `json:"id"`
	Package     string       `json:"package"`
	Version     string       `json:"version"`
	Kind        catalog.Kind `json:"-"`
	Status      Status       `json:"status"`
	Steps       []Step       `json:"steps"`
	Error       string       `json:"error,omitempty"`
	Err         error        `json:"-"`
	SubmittedAt time.Time    `json:"submitted_at"`
	StartedAt   time.Time    `json:"started_at,omitzero"`
	FinishedAt  time.Time    `json:"finished_at,omitzero"`
}

// job is the dispatcher's record. Fields other than plan and done are
// guarded by Dispatcher.mu.
type job struct {
	Job
	plan []step
	done chan struct{}
}

func newJob(id, name, version string, kind catalog.Kind, plan []step, now time.Time) *job {
	j := &job{
		Job: Job{
			ID:          id,
			Package:     name,
			Version:     version,
			Kind:        kind,
			Status:      StatusPending,
			Steps:       make([]Step, len(plan)),
			SubmittedAt: now,
		},
		plan: plan,
		done: make(chan struct{}),
	}
	for i, s := range plan {
		j.Steps[i] = Step{Name: s.name(), Target: s.target()}
	}
	return j
}

func (j *job) snapshot() Job {
	c := j.Job
	c.Steps = append([]Step(nil), j.Steps...)
	return c
}

func (j *job) transition(to Status, at time.Time) error {
	if !canTransition(j.Status, to) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.Status, to)
	}
	j.Status = to
	switch {
	case to == StatusRunning:
		j.StartedAt = at
	case to.Terminal():
		j.FinishedAt = at
	}
	return nil
}

// step is one unit of work in a job's plan.
type step interface {
	name() string
	target() string
	run(ctx context.Context) (output []byte, err error)
}
