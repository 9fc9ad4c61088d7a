package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ada-labs/swinstall/internal/branding"
	"github.com/ada-labs/swinstall/internal/logging"
	"github.com/charmbracelet/log"
)

// maxDocumentSize caps how much of an upstream response is read.
const maxDocumentSize = 32 << 20

// Source produces catalog snapshots from an upstream.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Mode selects the upstream shape.
type Mode string

const (
	ModeScrape   Mode = "scrape"
	ModeManifest Mode = "manifest"
)

type options struct {
	httpClient  *http.Client
	logger      *log.Logger
	ignore      []string
	concurrency int
	now         func() time.Time
}

// Option configures a Source.
type Option func(*options)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger used for skipped entries and fetch progress.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithIgnore lists top-level directory names the scraped source skips.
func WithIgnore(names ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, names...)
	}
}

// WithConcurrency bounds the number of per-package listings fetched at once
// by the scraped source.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient:  http.DefaultClient,
		logger:      logging.Discard(),
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSource returns the source for mode.
func NewSource(mode Mode, url string, opts ...Option) (Source, error) {
	switch mode {
	case ModeScrape:
		return NewScrapeSource(url, opts...)
	case ModeManifest:
		return NewManifestSource(url, opts...)
	default:
		return nil, fmt.Errorf("unknown catalog mode %q", mode)
	}
}

// getDocument fetches url and returns its body and Content-Type. Transport
// failures, timeouts, and non-200 statuses are reported as ErrUnreachable.
func getDocument(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", unreachable(url, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", branding.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", unreachable(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", unreachable(url, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, "", unreachable(url, fmt.Errorf("reading response body: %w", err))
	}
	if len(body) > maxDocumentSize {
		return nil, "", malformed(url, fmt.Errorf("document exceeds %d bytes", maxDocumentSize))
	}
	return body, resp.Header.Get("Content-Type"), nil
}
