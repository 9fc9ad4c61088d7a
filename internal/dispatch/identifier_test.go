package dispatch

import (
	"errors"
	"slices"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"Blender", true},
		{"4.2.1", true},
		{"my_pkg-1", true},
		{"v2.0-rc1", true},
		{"", false},
		{".", false},
		{"..", false},
		{".hidden", false},
		{"-rf", false},
		{"a b", false},
		{"a/b", false},
		{`a\b`, false},
		{"9;rm -rf", false},
		{"$(id)", false},
		{"`id`", false},
		{"x|y", false},
		{"ñandú", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.valid && err != nil {
				t.Errorf("ValidateIdentifier(%q) = %v, want nil", tt.input, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidIdentifier) {
				t.Errorf("ValidateIdentifier(%q) = %v, want ErrInvalidIdentifier", tt.input, err)
			}
		})
	}
}

func TestBuildCommand(t *testing.T) {
	template := []string{"apt-get", "install", "-y", "{name}={version}"}

	tests := []struct {
		name     string
		template []string
		vars     map[string]string
		want     []string
		wantErr  error
	}{
		{
			name:     "substitutes placeholders",
			template: template,
			vars:     map[string]string{"name": "gimp", "version": "2.10.34"},
			want:     []string{"apt-get", "install", "-y", "gimp=2.10.34"},
		},
		{
			name:     "metacharacter in version",
			template: template,
			vars:     map[string]string{"name": "gimp", "version": "9;rm -rf"},
			wantErr:  ErrInvalidIdentifier,
		},
		{
			name:     "flag-like name",
			template: template,
			vars:     map[string]string{"name": "--allow-unauthenticated", "version": "1"},
			wantErr:  ErrInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCommand(tt.template, tt.vars)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("BuildCommand error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCommand error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildCommand = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildCommandRejectsBadTemplates(t *testing.T) {
	if _, err := BuildCommand(nil, nil); err == nil {
		t.Error("expected error for empty template")
	}
	_, err := BuildCommand([]string{"dnf", "install", "{pkg}"}, map[string]string{"name": "gimp"})
	if err == nil {
		t.Error("expected error for unknown placeholder")
	}
}
