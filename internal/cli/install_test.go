package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/dispatch"
	"github.com/ada-labs/swinstall/internal/versions"
)

func testSnapshot() *catalog.Snapshot {
	variants := func(vs ...string) []catalog.Variant {
		out := make([]catalog.Variant, len(vs))
		for i, v := range vs {
			out[i] = catalog.Variant{Version: v}
		}
		return out
	}
	return catalog.NewSnapshot([]catalog.Package{
		{Name: "Blender", Kind: catalog.KindContainerImage, Variants: variants("1.2.0", "1.10.0", "1.3.0", "2.0.0")},
		{Name: "GIMP", Kind: catalog.KindNativePackage, Variants: variants("abc", "xyz")},
		{Name: "Empty", Kind: catalog.KindContainerImage},
	}, time.Now(), catalog.OriginLive)
}

func TestResolveRequests(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name       string
		args       []string
		constraint string
		want       []string
		wantErr    error
	}{
		{"latest numeric", []string{"Blender"}, "", []string{"2.0.0"}, nil},
		{"latest lexical", []string{"GIMP"}, "", []string{"xyz"}, nil},
		{"pinned", []string{"Blender@1.2.0"}, "", []string{"1.2.0"}, nil},
		{"pinned wins over constraint", []string{"Blender@2.0.0"}, "~1.2", []string{"2.0.0"}, nil},
		{"constraint", []string{"Blender"}, "< 2", []string{"1.10.0"}, nil},
		{"several", []string{"GIMP", "Blender@1.3.0"}, "", []string{"xyz", "1.3.0"}, nil},
		{"unknown package", []string{"Maya"}, "", nil, dispatch.ErrUnknownPackageOrVersion},
		{"constraint unmatched", []string{"Blender"}, ">= 3", nil, versions.ErrNoMatch},
		{"constraint on non-semver", []string{"GIMP"}, "~1", nil, versions.ErrNotSemver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRequests(snap, tt.args, tt.constraint)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveRequests: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d requests, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Version != tt.want[i] {
					t.Errorf("request %d version = %q, want %q", i, r.Version, tt.want[i])
				}
			}
		})
	}
}

func TestResolveRequestsUnavailable(t *testing.T) {
	_, err := resolveRequests(testSnapshot(), []string{"Empty"}, "")
	if err == nil {
		t.Fatal("expected error for a package without versions")
	}
}

func TestToCatalogEntry(t *testing.T) {
	snap := testSnapshot()
	p, _ := snap.Lookup("Empty")
	entry := toCatalogEntry(p, t.TempDir())
	if entry.Latest != versions.Unavailable {
		t.Errorf("Latest = %q, want %q", entry.Latest, versions.Unavailable)
	}
	if entry.Installed != "" {
		t.Errorf("Installed = %q, want empty", entry.Installed)
	}
}
