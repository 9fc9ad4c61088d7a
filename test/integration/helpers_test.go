//go:build integration

package integration_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ada-labs/swinstall/internal/config"
	"github.com/ada-labs/swinstall/internal/dispatch"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir string // SWINSTALL_HOME: config file and catalog backup
	Paths   dispatch.Paths
}

// setupTestEnv creates isolated temp directories and points SWINSTALL_HOME
// at one of them. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	env := &testEnv{
		HomeDir: filepath.Join(root, "home"),
		Paths: dispatch.Paths{
			Downloads: filepath.Join(root, "images"),
			Launchers: filepath.Join(root, "applications"),
			Icons:     filepath.Join(root, "icons"),
		},
	}
	t.Setenv("SWINSTALL_HOME", env.HomeDir)
	if err := config.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	return env
}

// upstream serves a scraped-mode software tree: directory listings for the
// base URL and every package, plus artifact files. It can be switched off to
// simulate an outage.
type upstream struct {
	*httptest.Server

	down     atomic.Bool
	listings atomic.Int32

	mu       sync.Mutex
	packages map[string][]string // name -> versions
	missing  map[string]bool     // artifact paths answering 404
}

func newUpstream(t *testing.T, packages map[string][]string) *upstream {
	t.Helper()
	u := &upstream{packages: packages, missing: make(map[string]bool)}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) setMissing(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.missing[path] = true
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	if u.down.Load() {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	path := r.URL.Path
	if path == "/" {
		u.listings.Add(1)
		entries := []string{"../", "misc/", "README.txt"}
		for name := range u.packages {
			entries = append(entries, name+"/")
		}
		writeListing(w, entries)
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	versions, ok := u.packages[parts[0]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 && strings.HasSuffix(path, "/") {
		entries := []string{"../", "notes.txt"}
		for _, v := range versions {
			entries = append(entries, parts[0]+"-"+v+"/")
		}
		writeListing(w, entries)
		return
	}
	if len(parts) == 3 && !u.missing[path] {
		fmt.Fprintf(w, "artifact %s", path)
		return
	}
	http.NotFound(w, r)
}

func writeListing(w http.ResponseWriter, entries []string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintln(w, "<html><body><h1>Index</h1><pre>")
	for _, e := range entries {
		fmt.Fprintf(w, "<a href=%q>%s</a>\n", e, e)
	}
	fmt.Fprintln(w, "</pre></body></html>")
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file to not exist: %s", path)
	}
}
