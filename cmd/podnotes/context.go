package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/glabrego/podnotes/internal/app"
	"github.com/glabrego/podnotes/internal/config"
	"github.com/glabrego/podnotes/internal/feed"
	"github.com/glabrego/podnotes/internal/feedcache"
	"github.com/glabrego/podnotes/internal/library"
	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/netclient"
	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/storage"
	"github.com/glabrego/podnotes/internal/vault"
)

// runtime is the wired object graph shared by every command.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	cache   *feedcache.Cache
	library *library.Library
	service *app.Service
	vault   vault.FS
	closer  io.Closer
}

type commandContext struct {
	configFlag *string

	once sync.Once
	rt   *runtime
	err  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureRuntime loads the configuration and builds the service graph on first use.
// Log output goes to stderr so command output stays pipeable.
func (c *commandContext) ensureRuntime(ctx context.Context, stderr io.Writer) (*runtime, error) {
	c.once.Do(func() {
		c.rt, c.err = c.build(ctx, stderr)
	})
	return c.rt, c.err
}

func (c *commandContext) build(ctx context.Context, stderr io.Writer) (*runtime, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr})
	if err != nil {
		return nil, err
	}

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeoutDuration()}
	client := netclient.NewClient(httpClient, cfg.UserAgent)
	newParser := func(seed *podcast.Feed) app.EpisodeSource {
		opts := []feed.Option{feed.WithLogger(logger)}
		if seed != nil {
			opts = append(opts, feed.WithFeed(*seed))
		}
		return feed.NewParser(client, opts...)
	}

	cache := feedcache.New(store, feedcache.WithLogger(logger))
	lib := library.New(store)
	service := app.NewService(newParser, cache, lib,
		app.WithLogger(logger),
		app.WithCacheMaxAge(cfg.CacheMaxAgeDuration()),
		app.WithConcurrency(cfg.ImportConcurrency),
		app.WithChapterFetcher(client),
	)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		cache:   cache,
		library: lib,
		service: service,
		vault:   vault.FS{Root: cfg.VaultDir},
		closer:  closer,
	}, nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, io.Closer, error) {
	if cfg.Store == config.StoreFile {
		store, err := storage.NewFileStore(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("storage init error: %w", err)
		}
		return store, nil, nil
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("storage schema error: %w", err)
	}
	if err := store.CheckWritable(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("storage write check failed (%v); verify db_path is writable: %s", err, cfg.DBPath)
	}
	return store, store, nil
}

func (c *commandContext) close() error {
	if c.rt == nil || c.rt.closer == nil {
		return nil
	}
	closer := c.rt.closer
	c.rt.closer = nil
	return closer.Close()
}
