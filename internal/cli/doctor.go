package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/config"
	"github.com/spf13/cobra"
)

var (
	checkCatalog  bool
	checkBackup   bool
	checkDirs     bool
	checkRuntime  bool
	checkManifest string
)

func init() {
	doctorCmd.Flags().BoolVar(&checkCatalog, "check-catalog", false, "Fetch the catalog from upstream, bypassing the cache")
	doctorCmd.Flags().BoolVar(&checkBackup, "check-backup", false, "Verify the on-disk catalog backup")
	doctorCmd.Flags().BoolVar(&checkDirs, "check-dirs", false, "Verify install directories are writable")
	doctorCmd.Flags().BoolVar(&checkRuntime, "check-runtime", false, "Verify the package manager is available")
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate a catalog manifest file at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the installer configuration",
	Long:  `Run diagnostic checks on the configuration, catalog upstream and install directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if checkManifest != "" {
			return runManifestCheck(out, checkManifest)
		}

		settings, err := config.Current()
		if err != nil {
			fmt.Fprintf(out, "[FAIL] configuration: %v\n", err)
			return err
		}
		fmt.Fprintf(out, "[ OK ] configuration %s\n", config.FilePath())

		all := !checkCatalog && !checkBackup && !checkDirs && !checkRuntime
		var failed bool
		if all || checkCatalog {
			failed = runCatalogCheck(cmd.Context(), out, settings) || failed
		}
		if all || checkBackup {
			runBackupCheck(out, settings)
		}
		if all || checkDirs {
			failed = runDirsCheck(out, settings) || failed
		}
		if all || checkRuntime {
			runRuntimeCheck(out, settings)
		}
		if failed {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

func runCatalogCheck(ctx context.Context, out io.Writer, s *config.Settings) bool {
	fmt.Fprintf(out, "Catalog check: %s (%s)\n", s.CatalogURL, s.CatalogMode)
	e, err := newEngine(s)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return true
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(ctx, s.FetchTimeout)
	defer cancel()
	start := time.Now()
	snap, err := e.source.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return true
	}
	fmt.Fprintf(out, "  [ OK ] %d packages in %s\n", snap.Len(), time.Since(start).Round(time.Millisecond))
	var unavailable int
	for _, p := range snap.Packages() {
		if _, ok := p.Latest(); !ok {
			unavailable++
		}
	}
	if unavailable > 0 {
		fmt.Fprintf(out, "  [WARN] %d packages have no versions\n", unavailable)
	}
	return false
}

func runBackupCheck(out io.Writer, s *config.Settings) {
	fmt.Fprintf(out, "Backup check: %s\n", s.BackupPath)
	snap, err := catalog.NewBackup(s.BackupPath, logger).Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintln(out, "  [MISS] no backup yet (written after the first successful fetch)")
	case err != nil:
		fmt.Fprintf(out, "  [WARN] unreadable backup: %v\n", err)
	default:
		fmt.Fprintf(out, "  [ OK ] %d packages from %s\n", snap.Len(), snap.FetchedAt().Format(time.RFC3339))
	}
}

func runDirsCheck(out io.Writer, s *config.Settings) bool {
	fmt.Fprintln(out, "Directory check:")
	var failed bool
	for _, dir := range []struct{ key, path string }{
		{config.KeyDownloadDir, s.DownloadDir},
		{config.KeyLauncherDir, s.LauncherDir},
		{config.KeyIconDir, s.IconDir},
	} {
		if err := checkWritable(dir.path); err != nil {
			fmt.Fprintf(out, "  [FAIL] %s %s: %v\n", dir.key, dir.path, err)
			failed = true
			continue
		}
		fmt.Fprintf(out, "  [ OK ] %s %s\n", dir.key, dir.path)
	}
	return failed
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func runRuntimeCheck(out io.Writer, s *config.Settings) {
	fmt.Fprintln(out, "Runtime check:")
	name := s.PackageManager[0]
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(out, "  [MISS] %s not found (native packages cannot be installed)\n", name)
		return
	}
	fmt.Fprintf(out, "  [ OK ] %s found at %s\n", name, path)
}

func runManifestCheck(out io.Writer, path string) error {
	fmt.Fprintf(out, "Manifest validation: %s\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return fmt.Errorf("reading manifest: %w", err)
	}
	pkgs, _, err := catalog.DecodeManifest(data, catalog.DetectFormat(path, ""), logger)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	fmt.Fprintf(out, "  [ OK ] Valid manifest with %d packages\n", len(pkgs))
	return nil
}
