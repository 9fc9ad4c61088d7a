package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ada-labs/swinstall/internal/branding"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyCatalogURL      = "catalog_url"
	KeyCatalogMode     = "catalog_mode"
	KeyCatalogIgnore   = "catalog_ignore"
	KeyCacheTTL        = "cache_ttl"
	KeyFetchTimeout    = "fetch_timeout"
	KeyStepTimeout     = "step_timeout"
	KeyWorkers         = "workers"
	KeyQueueSize       = "queue_size"
	KeySearchThreshold = "search_threshold"
	KeyDownloadDir     = "download_dir"
	KeyLauncherDir     = "launcher_dir"
	KeyIconDir         = "icon_dir"
	KeyBackupPath      = "backup_path"
	KeyPackageManager  = "package_manager"
)

// Catalog ingestion modes.
const (
	ModeScrape   = "scrape"
	ModeManifest = "manifest"
)

// Defaults.
const (
	DefaultCacheTTL        = 60 * time.Second
	DefaultFetchTimeout    = 30 * time.Second
	DefaultStepTimeout     = 10 * time.Minute
	DefaultWorkers         = 2
	DefaultQueueSize       = 64
	DefaultSearchThreshold = 50
	DefaultPackageManager  = "apt-get install -y {name}={version}"
)

var knownKeys = []string{
	KeyCatalogURL, KeyCatalogMode, KeyCatalogIgnore, KeyCacheTTL, KeyFetchTimeout,
	KeyStepTimeout, KeyWorkers, KeyQueueSize, KeySearchThreshold, KeyDownloadDir,
	KeyLauncherDir, KeyIconDir, KeyBackupPath, KeyPackageManager,
}

// Settings is the configuration consumed by the engine components. It is
// built once at startup and passed to constructors by value.
type Settings struct {
	CatalogURL      string
	CatalogMode     string
	CatalogIgnore   []string
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	StepTimeout     time.Duration
	Workers         int
	QueueSize       int
	SearchThreshold int
	DownloadDir     string
	LauncherDir     string
	IconDir         string
	BackupPath      string
	// PackageManager is the argv template for native-package installs.
	// {name} and {version} are substituted per job.
	PackageManager []string
}

// IsKnownKey reports whether key is a recognised config key.
func IsKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

// KnownKeys returns all recognised config keys.
func KnownKeys() []string {
	return append([]string(nil), knownKeys...)
}

func setDefaults(v *viper.Viper) {
	dataHome := xdgDataHome()
	v.SetDefault(KeyCatalogURL, branding.CatalogURL())
	v.SetDefault(KeyCatalogMode, ModeScrape)
	v.SetDefault(KeyCatalogIgnore, "misc")
	v.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	v.SetDefault(KeyFetchTimeout, DefaultFetchTimeout)
	v.SetDefault(KeyStepTimeout, DefaultStepTimeout)
	v.SetDefault(KeyWorkers, DefaultWorkers)
	v.SetDefault(KeyQueueSize, DefaultQueueSize)
	v.SetDefault(KeySearchThreshold, DefaultSearchThreshold)
	v.SetDefault(KeyDownloadDir, filepath.Join(Dir(), "images"))
	v.SetDefault(KeyLauncherDir, filepath.Join(dataHome, "applications"))
	v.SetDefault(KeyIconDir, filepath.Join(dataHome, "icons"))
	v.SetDefault(KeyBackupPath, filepath.Join(Dir(), "catalog-backup.json"))
	v.SetDefault(KeyPackageManager, DefaultPackageManager)
}

// FromViper builds Settings from v, applying defaults for unset keys.
func FromViper(v *viper.Viper) (*Settings, error) {
	setDefaults(v)

	s := &Settings{
		CatalogURL:      strings.TrimSpace(v.GetString(KeyCatalogURL)),
		CatalogMode:     strings.ToLower(strings.TrimSpace(v.GetString(KeyCatalogMode))),
		CatalogIgnore:   splitList(v.GetString(KeyCatalogIgnore)),
		CacheTTL:        v.GetDuration(KeyCacheTTL),
		FetchTimeout:    v.GetDuration(KeyFetchTimeout),
		StepTimeout:     v.GetDuration(KeyStepTimeout),
		Workers:         v.GetInt(KeyWorkers),
		QueueSize:       v.GetInt(KeyQueueSize),
		SearchThreshold: v.GetInt(KeySearchThreshold),
		DownloadDir:     expandHome(v.GetString(KeyDownloadDir)),
		LauncherDir:     expandHome(v.GetString(KeyLauncherDir)),
		IconDir:         expandHome(v.GetString(KeyIconDir)),
		BackupPath:      expandHome(v.GetString(KeyBackupPath)),
		PackageManager:  strings.Fields(v.GetString(KeyPackageManager)),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks value ranges. It does not touch the filesystem or network.
func (s *Settings) Validate() error {
	if s.CatalogURL == "" {
		return fmt.Errorf("%s must not be empty", KeyCatalogURL)
	}
	if s.CatalogMode != ModeScrape && s.CatalogMode != ModeManifest {
		return fmt.Errorf("%s must be %q or %q, got %q", KeyCatalogMode, ModeScrape, ModeManifest, s.CatalogMode)
	}
	if s.CacheTTL <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyCacheTTL, s.CacheTTL)
	}
	if s.FetchTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyFetchTimeout, s.FetchTimeout)
	}
	if s.StepTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyStepTimeout, s.StepTimeout)
	}
	if s.Workers < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyWorkers, s.Workers)
	}
	if s.QueueSize < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyQueueSize, s.QueueSize)
	}
	if s.SearchThreshold < 0 || s.SearchThreshold > 100 {
		return fmt.Errorf("%s must be within 0..100, got %d", KeySearchThreshold, s.SearchThreshold)
	}
	if len(s.PackageManager) == 0 {
		return fmt.Errorf("%s must not be empty", KeyPackageManager)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func xdgDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share")
	}
	return filepath.Join(home, ".local", "share")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
