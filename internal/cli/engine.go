package cli

import (
	"fmt"

	"github.com/ada-labs/swinstall/internal/cache"
	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/config"
	"github.com/ada-labs/swinstall/internal/dispatch"
	"github.com/ada-labs/swinstall/internal/search"
)

// engine holds the components a command needs, built from one Settings.
type engine struct {
	settings *config.Settings
	source   catalog.Source
	cache    *cache.Cache
	index    *search.Index
}

func loadEngine() (*engine, error) {
	settings, err := config.Current()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return newEngine(settings)
}

func newEngine(s *config.Settings) (*engine, error) {
	source, err := catalog.NewSource(catalog.Mode(s.CatalogMode), s.CatalogURL,
		catalog.WithLogger(logger.WithPrefix("catalog")),
		catalog.WithIgnore(s.CatalogIgnore...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating catalog source: %w", err)
	}

	c := cache.New(source,
		cache.WithTTL(s.CacheTTL),
		cache.WithFetchTimeout(s.FetchTimeout),
		cache.WithBackup(catalog.NewBackup(s.BackupPath, logger)),
		cache.WithLogger(logger.WithPrefix("cache")),
	)

	return &engine{
		settings: s,
		source:   source,
		cache:    c,
		index:    search.New(s.SearchThreshold),
	}, nil
}

func (e *engine) paths() dispatch.Paths {
	return dispatch.Paths{
		Downloads: e.settings.DownloadDir,
		Launchers: e.settings.LauncherDir,
		Icons:     e.settings.IconDir,
	}
}

func (e *engine) dispatcher(opts ...dispatch.Option) *dispatch.Dispatcher {
	base := []dispatch.Option{
		dispatch.WithPaths(e.paths()),
		dispatch.WithPackageManager(e.settings.PackageManager),
		dispatch.WithWorkers(e.settings.Workers),
		dispatch.WithQueueSize(e.settings.QueueSize),
		dispatch.WithStepTimeout(e.settings.StepTimeout),
		dispatch.WithLogger(logger.WithPrefix("dispatch")),
	}
	return dispatch.New(e.cache, append(base, opts...)...)
}

// Close waits for any pending backup write.
func (e *engine) Close() {
	e.cache.Close()
}
