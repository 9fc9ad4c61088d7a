package platform

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestReplaceSymlink(t *testing.T) {
	tmp := t.TempDir()
	for _, dir := range []string{"blender-4.1", "blender-4.2"} {
		if err := os.Mkdir(filepath.Join(tmp, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	link := filepath.Join(tmp, "current")

	if err := ReplaceSymlink("blender-4.1", link); err != nil {
		t.Fatalf("first ReplaceSymlink failed: %v", err)
	}
	if err := ReplaceSymlink("blender-4.2", link); err != nil {
		t.Fatalf("second ReplaceSymlink failed: %v", err)
	}

	got, err := ReadSymlinkTarget(link)
	if err != nil {
		t.Fatalf("ReadSymlinkTarget failed: %v", err)
	}
	if got != "blender-4.2" {
		t.Errorf("target = %q, want %q", got, "blender-4.2")
	}
}

func TestRemoveSymlink(t *testing.T) {
	tmp := t.TempDir()
	link := filepath.Join(tmp, "current")
	if err := ReplaceSymlink(tmp, link); err != nil {
		t.Fatal(err)
	}

	if err := RemoveSymlink(link); err != nil {
		t.Fatalf("RemoveSymlink failed: %v", err)
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Error("link still exists after RemoveSymlink")
	}
	if err := RemoveSymlink(link); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("removing a missing link: err = %v, want ErrNotExist", err)
	}
}

func TestReadSymlinkTargetSidecar(t *testing.T) {
	tmp := t.TempDir()
	link := filepath.Join(tmp, "current")
	if err := os.WriteFile(link+sidecarSuffix, []byte("gimp-2.10\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSymlinkTarget(link)
	if err != nil {
		t.Fatalf("ReadSymlinkTarget failed: %v", err)
	}
	if got != "gimp-2.10" {
		t.Errorf("target = %q, want %q", got, "gimp-2.10")
	}
}

func TestReadSymlinkTargetMissing(t *testing.T) {
	if _, err := ReadSymlinkTarget(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing link")
	}
}
