//go:build integration

package integration_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ada-labs/swinstall/internal/cache"
	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/dispatch"
)

func TestInstallPartialFailureKeepsEarlierFiles(t *testing.T) {
	env := setupTestEnv(t)
	up := newUpstream(t, map[string][]string{"Inkscape": {"1.3"}})
	up.setMissing("/Inkscape/Inkscape-1.3/Inkscape.desktop")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := cache.New(mustScrape(t, up.URL))
	defer c.Close()
	d := dispatch.New(c, dispatch.WithPaths(env.Paths))
	defer d.Shutdown(ctx, dispatch.Drain)

	id, err := d.Submit(ctx, "Inkscape", "1.3")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := d.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Status != dispatch.StatusFailed {
		t.Fatalf("job = %s, want failed", job.Status)
	}

	assertFileExists(t, filepath.Join(env.Paths.Downloads, "Inkscape", "Inkscape-1.3", "Inkscape.sif"))
	assertFileNotExists(t, filepath.Join(env.Paths.Launchers, "Inkscape.desktop"))
	assertFileNotExists(t, filepath.Join(env.Paths.Icons, "Inkscape.png"))
}

func TestInstallUnknownVersionRejected(t *testing.T) {
	env := setupTestEnv(t)
	up := newUpstream(t, map[string][]string{"GIMP": {"2.10"}})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := cache.New(mustScrape(t, up.URL))
	defer c.Close()
	d := dispatch.New(c, dispatch.WithPaths(env.Paths))
	defer d.Shutdown(ctx, dispatch.Drain)

	if _, err := d.Submit(ctx, "GIMP", "9.9"); !errors.Is(err, dispatch.ErrUnknownPackageOrVersion) {
		t.Errorf("Submit error = %v, want ErrUnknownPackageOrVersion", err)
	}
}

func TestManifestCatalogNativeInstall(t *testing.T) {
	setupTestEnv(t)
	manifest := newManifestServer(t, `
packages:
  - name: gimp
    kind: native
    description: GNU Image Manipulation Program
    variants:
      - version: "2.10.34"
      - version: "2.10.36"
  - name: broken
    kind: spaceship
`)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source, err := catalog.NewSource(catalog.ModeManifest, manifest.URL+"/catalog.yaml")
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	c := cache.New(source)
	defer c.Close()

	runner := &recordingRunner{}
	d := dispatch.New(c,
		dispatch.WithRunner(runner),
		dispatch.WithPackageManager([]string{"dnf", "install", "-y", "{name}-{version}"}),
	)
	defer d.Shutdown(ctx, dispatch.Drain)

	snap, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("catalog has %d packages, want 1 (broken entry skipped)", snap.Len())
	}
	gimp, _ := snap.Lookup("gimp")

	id, err := d.Submit(ctx, "gimp", gimp.LatestLabel())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := d.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Status != dispatch.StatusCompleted {
		t.Fatalf("job = %s (%s), want completed", job.Status, job.Error)
	}
	if got := runner.last(); len(got) != 4 || got[3] != "gimp-2.10.36" {
		t.Errorf("package manager argv = %q", got)
	}
}
