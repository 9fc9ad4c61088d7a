package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ada-labs/swinstall/internal/branding"
	"github.com/ada-labs/swinstall/internal/platform"
	"github.com/charmbracelet/log"
)

// fetchStep downloads one artifact to dest.
type fetchStep struct {
	role   string
	url    string
	dest   string
	mode   os.FileMode
	client *http.Client
	logger *log.Logger
}

func (s *fetchStep) name() string   { return "fetch-" + s.role }
func (s *fetchStep) target() string { return s.dest }

// run streams the response into a temporary file next to dest and renames
// it into place once complete, so dest never holds a partial download.
func (s *fetchStep) run(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", branding.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDiagnostic))
		return body, fmt.Errorf("GET %s returned status %d", s.url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(s.dest), 0755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}
	tmp := s.dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating download file: %w", err)
	}
	defer os.Remove(tmp)

	n, err := s.copy(f, resp.Body, resp.ContentLength)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("writing download: %w", err)
	}
	if err := os.Rename(tmp, s.dest); err != nil {
		return nil, fmt.Errorf("moving download into place: %w", err)
	}
	if s.mode != 0 {
		if err := platform.Chmod(s.dest, s.mode); err != nil {
			return nil, fmt.Errorf("setting permissions: %w", err)
		}
	}
	return fmt.Appendf(nil, "wrote %d bytes to %s", n, s.dest), nil
}

// copy logs progress in 10% increments at debug level when the size is known.
func (s *fetchStep) copy(dst io.Writer, src io.Reader, total int64) (int64, error) {
	var written int64
	lastDecile := -1
	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if total > 0 {
				if decile := int(written * 10 / total); decile != lastDecile {
					s.logger.Debug("downloading", "url", s.url, "percent", decile*10)
					lastDecile = decile
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading download stream: %w", readErr)
		}
	}
}

// linkStep points a package's "current" link at the installed version.
type linkStep struct {
	link string
	dir  string
}

func (s *linkStep) name() string   { return "activate" }
func (s *linkStep) target() string { return s.link }
func (s *linkStep) run(context.Context) ([]byte, error) {
	if err := platform.ReplaceSymlink(s.dir, s.link); err != nil {
		return nil, fmt.Errorf("linking %s: %w", s.link, err)
	}
	return nil, nil
}

// Runner executes an argument vector and returns its combined output.
type Runner interface {
	Run(ctx context.Context, argv []string) ([]byte, error)
}

// ExecRunner runs commands as child processes. The child is killed when ctx
// is done.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the child
	// is killed. Zero means five seconds.
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	out, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return out, err
}

// commandStep runs the package manager.
type commandStep struct {
	argv   []string
	runner Runner
}

func (s *commandStep) name() string   { return "install" }
func (s *commandStep) target() string { return strings.Join(s.argv, " ") }
func (s *commandStep) run(ctx context.Context) ([]byte, error) {
	return s.runner.Run(ctx, s.argv)
}
