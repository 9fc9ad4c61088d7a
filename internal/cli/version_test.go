package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ada-labs/swinstall/internal/branding"
)

func TestVersionJSON(t *testing.T) {
	versionJSON = true
	defer func() { versionJSON = false }()
	buildVersion, buildCommit, buildDate = "1.4.0", "abc123", "2026-01-01"

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decoding %q: %v", out.String(), err)
	}
	if info["version"] != "1.4.0" || info["commit"] != "abc123" {
		t.Errorf("info = %v", info)
	}
	if info["module"] != branding.GoModule() || info["module"] == "" {
		t.Errorf("module = %q, want %q", info["module"], branding.GoModule())
	}
}
