// Package branding provides compile-time identity values for the CLI.
//
// branding.yaml is embedded into the binary; forks edit it to rename the
// tool, move its home directory, or point it at a different catalog.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	CatalogURL  string `yaml:"catalog_url"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "swinstall",
			DisplayName: "Software Installer",
			Description: "Browse, search, and install packages from a software catalog",
			HomeDir:     ".swinstall",
			EnvPrefix:   "SWINSTALL",
			GoModule:    "github.com/ada-labs/swinstall",
			CatalogURL:  "https://ada-files.oxfordfun.com/software/",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "swinstall").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".swinstall").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "SWINSTALL").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path reported by version --json.
func GoModule() string { load(); return defaults.GoModule }

// CatalogURL returns the default upstream catalog URL.
func CatalogURL() string { load(); return defaults.CatalogURL }

// UserAgent returns the User-Agent sent on every upstream request.
func UserAgent() string { load(); return defaults.CLIName + "-engine" }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "SWINSTALL_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
