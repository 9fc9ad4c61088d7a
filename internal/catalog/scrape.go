package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Artifact file names inside a scraped version directory.
const (
	scrapedPrimaryExt  = ".sif"
	scrapedLauncherExt = ".desktop"
	scrapedIconExt     = ".png"
)

// ScrapeSource reads a directory-listing upstream: the base listing holds one
// directory per package, and each package listing holds one
// "{name}-{version}/" directory per version.
type ScrapeSource struct {
	base        *url.URL
	httpClient  *http.Client
	logger      *log.Logger
	ignore      map[string]bool
	concurrency int
	now         func() time.Time
}

// NewScrapeSource creates a scraped source rooted at baseURL.
func NewScrapeSource(baseURL string, opts ...Option) (*ScrapeSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("catalog URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	o := buildOptions(opts)
	ignore := make(map[string]bool, len(o.ignore))
	for _, name := range o.ignore {
		ignore[strings.TrimSuffix(name, "/")] = true
	}

	return &ScrapeSource{
		base:        u,
		httpClient:  o.httpClient,
		logger:      o.logger.WithPrefix("scrape"),
		ignore:      ignore,
		concurrency: o.concurrency,
		now:         o.now,
	}, nil
}

// Fetch lists the package directories, then each package's version
// directories. A package whose listing cannot be fetched is skipped; the
// fetch fails with ErrUnreachable only when the base listing or every
// package listing fails.
func (s *ScrapeSource) Fetch(ctx context.Context) (*Snapshot, error) {
	baseURL := s.base.String()
	body, _, err := getDocument(ctx, s.httpClient, baseURL)
	if err != nil {
		return nil, err
	}

	dirs, err := listDirectories(body)
	if err != nil {
		return nil, malformed(baseURL, err)
	}

	var names []string
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		if s.ignore[dir] || seen[dir] {
			s.logger.Debug("skipping entry", "entry", dir)
			continue
		}
		seen[dir] = true
		names = append(names, dir)
	}

	pkgs := make([]*Package, len(names))
	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		g.Go(func() error {
			p, err := s.fetchPackage(gctx, name)
			if err != nil {
				s.logger.Warn("skipping package", "package", name, "err", err)
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				return nil
			}
			pkgs[i] = p
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, unreachable(baseURL, err)
	}
	if len(names) > 0 && failures == len(names) {
		return nil, lastErr
	}

	out := make([]Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p != nil {
			out = append(out, *p)
		}
	}
	s.logger.Debug("scraped catalog", "packages", len(out), "skipped", failures)
	return NewSnapshot(out, s.now(), OriginLive), nil
}

func (s *ScrapeSource) fetchPackage(ctx context.Context, name string) (*Package, error) {
	pkgURL := s.base.JoinPath(name).String() + "/"
	body, _, err := getDocument(ctx, s.httpClient, pkgURL)
	if err != nil {
		return nil, err
	}
	dirs, err := listDirectories(body)
	if err != nil {
		return nil, malformed(pkgURL, err)
	}

	p := &Package{Name: name, Kind: KindContainerImage}
	prefix := name + "-"
	for _, dir := range dirs {
		version, ok := strings.CutPrefix(dir, prefix)
		if !ok || version == "" {
			s.logger.Debug("skipping version entry", "package", name, "entry", dir)
			continue
		}
		p.Variants = append(p.Variants, Variant{
			Version:   version,
			Artifacts: s.artifactsFor(name, dir),
		})
	}
	return p, nil
}

// artifactsFor derives artifact URIs from the directory convention
// {base}/{name}/{name}-{version}/{name}.{sif,desktop,png}.
func (s *ScrapeSource) artifactsFor(name, versionDir string) Artifacts {
	dir := s.base.JoinPath(name, versionDir)
	return Artifacts{
		Primary:  dir.JoinPath(name + scrapedPrimaryExt).String(),
		Launcher: dir.JoinPath(name + scrapedLauncherExt).String(),
		Icon:     dir.JoinPath(name + scrapedIconExt).String(),
	}
}

// listDirectories returns the names of the subdirectory links in a directory
// listing: anchors whose href is a single relative path segment ending in
// "/". Parent links, absolute links, query links, and files are skipped.
func listDirectories(body []byte) ([]string, error) {
	var dirs []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return dirs, nil
			}
			return nil, fmt.Errorf("parsing directory listing: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "href" {
					continue
				}
				if dir, ok := directoryName(attr.Val); ok {
					dirs = append(dirs, dir)
				}
			}
		}
	}
}

func directoryName(href string) (string, bool) {
	if !strings.HasSuffix(href, "/") || strings.ContainsAny(href, "?#:") {
		return "", false
	}
	name := strings.TrimSuffix(href, "/")
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return "", false
	}
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		return "", false
	}
	return unescaped, true
}
