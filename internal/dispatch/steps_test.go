package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"
)

// TestHelperProcess is not a real test. ExecRunner tests run the test binary
// as the child process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SWINSTALL_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	switch args[0] {
	case "fail":
		fmt.Println("E: Unable to locate package", args[1])
		os.Exit(100)
	case "hang":
		time.Sleep(time.Minute)
	default:
		fmt.Println("installed", args[0])
	}
	os.Exit(0)
}

func helperArgv(args ...string) []string {
	return append([]string{os.Args[0], "-test.run=TestHelperProcess", "--"}, args...)
}

func TestExecRunner(t *testing.T) {
	t.Setenv("SWINSTALL_HELPER_PROCESS", "1")
	ctx := testContext(t)

	out, err := ExecRunner{}.Run(ctx, helperArgv("gimp"))
	if err != nil {
		t.Fatalf("Run: %v (%s)", err, out)
	}
	if !strings.Contains(string(out), "installed gimp") {
		t.Errorf("output = %q", out)
	}

	out, err = ExecRunner{}.Run(ctx, helperArgv("fail", "gimp"))
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if !strings.Contains(string(out), "Unable to locate package gimp") {
		t.Errorf("diagnostic output = %q", out)
	}
}

func TestExecRunnerKillsOnTimeout(t *testing.T) {
	t.Setenv("SWINSTALL_HELPER_PROCESS", "1")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ExecRunner{WaitDelay: time.Second}.Run(ctx, helperArgv("hang"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run returned after %v; child was not killed", elapsed)
	}
}

func TestExecRunnerEmptyCommand(t *testing.T) {
	if _, err := (ExecRunner{}).Run(context.Background(), nil); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://files.example.org/blender/blender-4.2/blender.sif", "Blender.sif"},
		{"https://files.example.org/img/blender-4.2.simg?token=x", "Blender.simg"},
		{"https://files.example.org/img/latest", "Blender.bin"},
		{"https://files.example.org/img/evil.s;h", "Blender.bin"},
	}
	for _, tt := range tests {
		if got := fileName(tt.uri, "Blender", ".bin"); got != tt.want {
			t.Errorf("fileName(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestInstalledVersionNotInstalled(t *testing.T) {
	if _, err := InstalledVersion(t.TempDir(), "GIMP"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
	if _, err := InstalledVersion(t.TempDir(), "../etc"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("err = %v, want ErrInvalidIdentifier", err)
	}
}
