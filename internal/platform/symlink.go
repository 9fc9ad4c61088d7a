package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
)

const sidecarSuffix = ".target"

// ReplaceSymlink points link at target, replacing any previous link or
// sidecar. Relative targets are resolved against the link's directory.
func ReplaceSymlink(target, link string) error {
	if err := RemoveSymlink(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing previous link: %w", err)
	}

	err := os.Symlink(target, link)
	if err == nil || runtime.GOOS != "windows" {
		return err
	}

	// Windows without developer mode: record the target in a sidecar.
	if err := os.WriteFile(link+sidecarSuffix, []byte(target), 0644); err != nil {
		return fmt.Errorf("writing link sidecar: %w", err)
	}
	return nil
}

// RemoveSymlink removes a link and its sidecar, if any.
func RemoveSymlink(path string) error {
	err := os.Remove(path)
	sidecarErr := os.Remove(path + sidecarSuffix)
	if err != nil && sidecarErr == nil {
		return nil
	}
	return err
}

// ReadSymlinkTarget returns the target of a link made by ReplaceSymlink.
func ReadSymlinkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err == nil {
		return target, nil
	}

	data, readErr := os.ReadFile(path + sidecarSuffix)
	if readErr != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
