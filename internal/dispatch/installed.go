package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ada-labs/swinstall/internal/platform"
)

// Installation is a container package found under the download directory.
type Installation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
}

// InstalledVersion returns the version the package's "current" link points
// at under downloadDir, or fs.ErrNotExist when nothing is installed.
func InstalledVersion(downloadDir, name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	target, err := platform.ReadSymlinkTarget(filepath.Join(downloadDir, name, currentLink))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	version, ok := strings.CutPrefix(filepath.Base(target), name+"-")
	if !ok {
		return "", fmt.Errorf("%s: unexpected link target %q", name, target)
	}
	return version, nil
}

// Installed lists the activated packages under downloadDir, sorted by name.
// A missing directory yields an empty list.
func Installed(downloadDir string) ([]Installation, error) {
	entries, err := os.ReadDir(downloadDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", downloadDir, err)
	}

	var out []Installation
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		version, err := InstalledVersion(downloadDir, e.Name())
		if err != nil {
			continue
		}
		out = append(out, Installation{
			Name:    e.Name(),
			Version: version,
			Path:    filepath.Join(downloadDir, e.Name(), e.Name()+"-"+version),
		})
	}
	return out, nil
}

// Uninstall removes every installed version of a container package together
// with its launcher descriptor and icon. It returns fs.ErrNotExist when
// nothing was found to remove.
func Uninstall(paths Paths, name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return err
	}

	var removed bool
	root := filepath.Join(paths.Downloads, name)
	if _, err := os.Lstat(root); err == nil {
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("removing %s: %w", root, err)
		}
		removed = true
	}

	launcher := filepath.Join(paths.Launchers, name+".desktop")
	if err := os.Remove(launcher); err == nil {
		removed = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing launcher: %w", err)
	}

	icons, err := filepath.Glob(filepath.Join(paths.Icons, name+".*"))
	if err != nil {
		return fmt.Errorf("finding icons: %w", err)
	}
	for _, icon := range icons {
		ext := strings.TrimPrefix(filepath.Base(icon), name+".")
		if strings.Contains(ext, ".") {
			// Blender.lts.png belongs to Blender.lts.
			continue
		}
		if err := os.Remove(icon); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing icon: %w", err)
		}
		removed = true
	}

	if !removed {
		return fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return nil
}
