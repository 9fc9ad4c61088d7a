package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers     = 2
	DefaultQueueSize   = 64
	DefaultStepTimeout = 10 * time.Minute
)

// DefaultPackageManager is the native-package install command template.
var DefaultPackageManager = []string{"apt-get", "install", "-y", "{name}={version}"}

// Catalog supplies the snapshot submissions are validated against.
type Catalog interface {
	Get(ctx context.Context) (*catalog.Snapshot, error)
}

// Policy decides what Shutdown does with unfinished jobs.
type Policy int

const (
	// Drain lets queued and running jobs finish.
	Drain Policy = iota
	// Abandon cancels running steps and fails every unfinished job with
	// ErrAbandoned.
	Abandon
)

func (p Policy) String() string {
	if p == Abandon {
		return "abandon"
	}
	return "drain"
}

// ParsePolicy parses "drain" or "abandon".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "drain":
		return Drain, nil
	case "abandon":
		return Abandon, nil
	default:
		return Drain, fmt.Errorf("unknown shutdown policy %q (want drain or abandon)", s)
	}
}

// Dispatcher owns the job set and the worker pool.
type Dispatcher struct {
	catalog        Catalog
	paths          Paths
	packageManager []string
	httpClient     *http.Client
	runner         Runner
	logger         *log.Logger
	notify         func(Job)
	now            func() time.Time
	workers        int
	queueSize      int
	stepTimeout    time.Duration

	// ctx is cancelled to abandon work at shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan *job
	done   chan struct{}

	mu     sync.RWMutex
	jobs   map[string]*job
	order  []string
	closed bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPaths sets the container-image install destinations.
func WithPaths(p Paths) Option {
	return func(d *Dispatcher) {
		d.paths = p
	}
}

// WithPackageManager sets the native-package command template. Arguments may
// contain {name} and {version} placeholders.
func WithPackageManager(argv []string) Option {
	return func(d *Dispatcher) {
		if len(argv) > 0 {
			d.packageManager = argv
		}
	}
}

// WithHTTPClient sets the client used by artifact downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = c
	}
}

// WithRunner sets how package-manager commands are executed.
func WithRunner(r Runner) Option {
	return func(d *Dispatcher) {
		d.runner = r
	}
}

func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithNotifier registers a sink that receives a copy of every job when it
// reaches a terminal state. It is called on its own goroutine.
func WithNotifier(fn func(Job)) Option {
	return func(d *Dispatcher) {
		d.notify = fn
	}
}

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize bounds how many submitted jobs may wait for a worker.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithStepTimeout bounds each step. A step that times out fails its job.
func WithStepTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.stepTimeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New starts a dispatcher. Call Shutdown to stop its workers.
func New(c Catalog, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:        c,
		packageManager: DefaultPackageManager,
		httpClient:     http.DefaultClient,
		runner:         ExecRunner{},
		logger:         logging.Discard(),
		now:            time.Now,
		workers:        DefaultWorkers,
		queueSize:      DefaultQueueSize,
		stepTimeout:    DefaultStepTimeout,
		done:           make(chan struct{}),
		jobs:           make(map[string]*job),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.queue = make(chan *job, d.queueSize)
	go d.loop()
	return d
}

// Submit queues an install of version of the named package and returns the
// job id without waiting for it to run. The pair must exist in the current
// catalog. A pair that exists but contains characters outside the
// identifier allowlist yields a job that has already failed with
// ErrInvalidIdentifier.
func (d *Dispatcher) Submit(ctx context.Context, name, version string) (string, error) {
	if d.isClosed() {
		return "", ErrShutdown
	}

	snap, err := d.catalog.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("loading catalog: %w", err)
	}
	pkg, ok := snap.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: package %q", ErrUnknownPackageOrVersion, name)
	}
	v, ok := pkg.Variant(version)
	if !ok {
		return "", fmt.Errorf("%w: %s version %q", ErrUnknownPackageOrVersion, name, version)
	}

	var plan []step
	invalid := validatePair(name, version)
	if invalid == nil {
		if plan, err = d.plan(pkg, v); err != nil {
			if !errors.Is(err, ErrInvalidIdentifier) {
				return "", err
			}
			invalid = err
		}
	}

	j := newJob(newID(), name, version, pkg.Kind, plan, d.now())

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrShutdown
	}
	if invalid == nil {
		select {
		case d.queue <- j:
		default:
			return "", ErrQueueFull
		}
	}
	d.jobs[j.ID] = j
	d.order = append(d.order, j.ID)
	d.logger.Info("job submitted", "job", j.ID, "package", name, "version", version, "kind", pkg.Kind)
	if invalid != nil {
		d.finishLocked(j, invalid)
	}
	return j.ID, nil
}

// Status returns a copy of the job's current state.
func (d *Dispatcher) Status(id string) (Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	j, ok := d.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j.snapshot(), nil
}

// Jobs returns copies of all jobs in submission order.
func (d *Dispatcher) Jobs() []Job {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Job, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.jobs[id].snapshot())
	}
	return out
}

// Wait blocks until the job is terminal or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context, id string) (Job, error) {
	d.mu.RLock()
	j, ok := d.jobs[id]
	d.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	select {
	case <-j.done:
		return d.Status(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the workers to exit. With
// Drain, queued and running jobs finish normally; with Abandon, they fail
// with ErrAbandoned and running commands are killed. If ctx ends first the
// remaining work is abandoned and ctx's error is returned once the workers
// have exited.
func (d *Dispatcher) Shutdown(ctx context.Context, policy Policy) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	if policy == Abandon {
		d.cancel()
	}
	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.logger.Warn("shutdown deadline reached, abandoning jobs")
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

func (d *Dispatcher) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// loop hands queued jobs to at most d.workers goroutines.
func (d *Dispatcher) loop() {
	defer close(d.done)
	var g errgroup.Group
	g.SetLimit(d.workers)
	for j := range d.queue {
		g.Go(func() error {
			d.run(j)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) run(j *job) {
	if d.ctx.Err() != nil {
		d.finish(j, ErrAbandoned)
		return
	}

	d.mu.Lock()
	err := j.transition(StatusRunning, d.now())
	d.mu.Unlock()
	if err != nil {
		d.logger.Error("starting job", "job", j.ID, "err", err)
		return
	}
	d.logger.Info("job started", "job", j.ID, "package", j.Package, "version", j.Version)
	d.finish(j, d.execute(j))
}

// execute runs the plan in order, stopping at the first failure. The
// abandon flag is checked before each step.
func (d *Dispatcher) execute(j *job) error {
	if err := validatePair(j.Package, j.Version); err != nil {
		return err
	}
	for i, s := range j.plan {
		if d.ctx.Err() != nil {
			return ErrAbandoned
		}
		d.setStep(j, i, StatusRunning, "")

		ctx, cancel := context.WithTimeout(d.ctx, d.stepTimeout)
		out, err := s.run(ctx)
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err != nil {
			switch {
			case d.ctx.Err() != nil:
				err = fmt.Errorf("%w: %w", ErrAbandoned, err)
			case timedOut:
				err = fmt.Errorf("timed out after %s: %w", d.stepTimeout, err)
			}
			d.setStep(j, i, StatusFailed, err.Error())
			return &StepError{Step: s.name(), Output: tail(out), Err: err}
		}
		d.logger.Debug("step completed", "job", j.ID, "step", s.name(), "target", s.target())
		d.setStep(j, i, StatusCompleted, "")
	}
	return nil
}

func (d *Dispatcher) setStep(j *job, i int, to Status, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if canTransition(j.Steps[i].Status, to) {
		j.Steps[i].Status = to
		j.Steps[i].Error = msg
	}
}

func (d *Dispatcher) finish(j *job, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishLocked(j, err)
}

// finishLocked moves j to its terminal state. d.mu must be held.
func (d *Dispatcher) finishLocked(j *job, err error) {
	to := StatusCompleted
	if err != nil {
		to = StatusFailed
		j.Err = err
		j.Error = err.Error()
	}
	if terr := j.transition(to, d.now()); terr != nil {
		d.logger.Error("finishing job", "job", j.ID, "err", terr)
		return
	}
	close(j.done)

	if err != nil {
		d.logger.Error("job failed", "job", j.ID, "package", j.Package, "version", j.Version, "err", err)
	} else {
		d.logger.Info("job completed", "job", j.ID, "package", j.Package, "version", j.Version)
	}
	if d.notify != nil {
		go d.notify(j.snapshot())
	}
}

func validatePair(name, version string) error {
	if err := ValidateIdentifier(name); err != nil {
		return fmt.Errorf("package name: %w", err)
	}
	if err := ValidateIdentifier(version); err != nil {
		return fmt.Errorf("version: %w", err)
	}
	return nil
}

// newID returns a time-ordered job id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
