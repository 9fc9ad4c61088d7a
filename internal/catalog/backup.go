package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ada-labs/swinstall/internal/logging"
	"github.com/charmbracelet/log"
)

// tmpSuffix is appended to the backup path during atomic writes.
const tmpSuffix = ".tmp"

// Backup persists the last good snapshot as a manifest document.
type Backup struct {
	path   string
	logger *log.Logger
}

// NewBackup returns a Backup stored at path. A nil logger discards.
func NewBackup(path string, logger *log.Logger) *Backup {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Backup{path: path, logger: logger.WithPrefix("backup")}
}

// Path returns the backup file location.
func (b *Backup) Path() string { return b.path }

// Save writes s to disk. The write is atomic: a temp file is written and
// renamed over the previous backup.
func (b *Backup) Save(s *Snapshot) error {
	data, err := EncodeManifest(s)
	if err != nil {
		return fmt.Errorf("encoding catalog backup: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	tmp := b.path + tmpSuffix
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing catalog backup: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalizing catalog backup: %w", err)
	}
	b.logger.Debug("wrote catalog backup", "path", b.path, "packages", s.Len())
	return nil
}

// Load reads the backup into a snapshot with OriginBackup. A missing file
// yields an error matching os.ErrNotExist; an undecodable file matches
// ErrMalformed.
func (b *Backup) Load() (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog backup: %w", err)
	}
	pkgs, fetchedAt, err := DecodeManifest(data, FormatJSON, b.logger)
	if err != nil {
		return nil, malformed(b.path, err)
	}
	if fetchedAt.IsZero() {
		if info, err := os.Stat(b.path); err == nil {
			fetchedAt = info.ModTime()
		}
	}
	return NewSnapshot(pkgs, fetchedAt, OriginBackup), nil
}
