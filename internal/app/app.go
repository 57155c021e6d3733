package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/glabrego/podnotes/internal/chapters"
	"github.com/glabrego/podnotes/internal/feed"
	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/opml"
	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/vault"
)

// EpisodeSource is a per-feed parser.
type EpisodeSource interface {
	GetFeed(ctx context.Context, url string) (podcast.Feed, error)
	GetEpisodes(ctx context.Context, url string) ([]podcast.Episode, error)
}

// ParserFactory returns a fresh EpisodeSource, seeded with known feed
// metadata when seed is non-nil.
type ParserFactory func(seed *podcast.Feed) EpisodeSource

type EpisodeCache interface {
	GetCachedEpisodes(ctx context.Context, f podcast.Feed, maxAge time.Duration) ([]podcast.Episode, bool)
	SetCachedEpisodes(ctx context.Context, f podcast.Feed, episodes []podcast.Episode)
}

type Library interface {
	List(ctx context.Context) ([]podcast.Feed, error)
	Find(ctx context.Context, key string) (podcast.Feed, error)
	Merge(ctx context.Context, feeds []podcast.Feed) (int, error)
	Remove(ctx context.Context, key string) (podcast.Feed, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.base = logger
		s.logger = logging.NewComponentLogger(logger, "app")
	}
}

// WithCacheMaxAge sets how long cached episodes are served without a refetch.
func WithCacheMaxAge(d time.Duration) Option {
	return func(s *Service) { s.maxAge = d }
}

// WithConcurrency bounds parallel fetches during RefreshAll and OPML import.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithChapterFetcher sets the client used for chapter documents.
func WithChapterFetcher(f chapters.Fetcher) Option {
	return func(s *Service) { s.chapterFetcher = f }
}

type Service struct {
	newParser      ParserFactory
	cache          EpisodeCache
	library        Library
	chapterFetcher chapters.Fetcher
	base           *slog.Logger
	logger         *slog.Logger
	maxAge         time.Duration
	concurrency    int

	inflight singleflight.Group
}

func NewService(newParser ParserFactory, cache EpisodeCache, library Library, opts ...Option) *Service {
	s := &Service{
		newParser:   newParser,
		cache:       cache,
		library:     library,
		logger:      logging.NewComponentLogger(nil, "app"),
		concurrency: opml.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Feed(ctx context.Context, url string) (podcast.Feed, error) {
	return s.newParser(nil).GetFeed(ctx, url)
}

// ResolveFeed returns the saved feed matching key (title or URL), or an
// unsaved feed identified by key as its URL.
func (s *Service) ResolveFeed(ctx context.Context, key string) podcast.Feed {
	if f, err := s.library.Find(ctx, key); err == nil {
		return f
	}
	return podcast.Feed{URL: key}
}

// Episodes returns the episodes of f, from the cache unless refresh is set or
// the cached copy is stale. Concurrent calls for the same feed share a fetch.
func (s *Service) Episodes(ctx context.Context, f podcast.Feed, refresh bool) ([]podcast.Episode, error) {
	if !refresh {
		if episodes, ok := s.cache.GetCachedEpisodes(ctx, f, s.maxAge); ok {
			return episodes, nil
		}
	}

	v, err, _ := s.inflight.Do(f.Key(), func() (any, error) {
		var seed *podcast.Feed
		if f.Title != "" {
			seed = &f
		}
		episodes, err := s.newParser(seed).GetEpisodes(ctx, f.URL)
		if err != nil {
			return nil, err
		}
		s.cache.SetCachedEpisodes(ctx, f, episodes)
		s.logger.Debug("episodes fetched",
			logging.String(logging.FieldURL, f.URL),
			logging.Int("episodes", len(episodes)),
			logging.Bool("refresh", refresh))
		return episodes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load episodes of %s: %w", f.Key(), err)
	}
	return v.([]podcast.Episode), nil
}

// FindEpisode looks title up among the episodes of f.
func (s *Service) FindEpisode(ctx context.Context, f podcast.Feed, title string) (podcast.Episode, error) {
	episodes, err := s.Episodes(ctx, f, false)
	if err != nil {
		return podcast.Episode{}, err
	}
	if ep, ok := feed.MatchTitle(episodes, title); ok {
		return ep, nil
	}
	return podcast.Episode{}, &feed.NotFoundError{Title: title, URL: f.URL}
}

// Chapters returns the visible chapters of ep, or none when it declares no
// chapters document.
func (s *Service) Chapters(ctx context.Context, ep podcast.Episode) []podcast.Chapter {
	if s.chapterFetcher == nil {
		return []podcast.Chapter{}
	}
	return chapters.Fetch(ctx, s.chapterFetcher, ep.ChaptersURL, chapters.WithLogger(s.base))
}

func (s *Service) SavedFeeds(ctx context.Context) ([]podcast.Feed, error) {
	feeds, err := s.library.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list saved feeds: %w", err)
	}
	return feeds, nil
}

// SaveFeed fetches the feed at url and subscribes to it. It reports false
// when a feed with the same title is already saved.
func (s *Service) SaveFeed(ctx context.Context, url string) (podcast.Feed, bool, error) {
	f, err := s.Feed(ctx, url)
	if err != nil {
		return podcast.Feed{}, false, err
	}
	added, err := s.library.Merge(ctx, []podcast.Feed{f})
	if err != nil {
		return f, false, err
	}
	return f, added == 1, nil
}

func (s *Service) RemoveFeed(ctx context.Context, key string) (podcast.Feed, error) {
	return s.library.Remove(ctx, key)
}

type RefreshResult struct {
	Refreshed int
	Failed    int
}

// RefreshAll refetches every saved feed into the cache. Individual failures
// are logged and counted.
func (s *Service) RefreshAll(ctx context.Context) (RefreshResult, error) {
	feeds, err := s.SavedFeeds(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	var refreshed, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, f := range feeds {
		g.Go(func() error {
			if _, err := s.Episodes(ctx, f, true); err != nil {
				failed.Add(1)
				s.logger.Warn("feed refresh failed",
					logging.Event("feed_refresh_failed"),
					logging.String(logging.FieldFeed, f.Title),
					logging.String(logging.FieldURL, f.URL),
					logging.Error(err))
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := RefreshResult{Refreshed: int(refreshed.Load()), Failed: int(failed.Load())}
	s.logger.Info("refreshed saved feeds",
		logging.Int("refreshed", res.Refreshed),
		logging.Int("failed", res.Failed))
	return res, ctx.Err()
}

// ScheduleRefresh runs RefreshAll on the cron schedule expr until ctx is
// done. Runs never overlap.
func (s *Service) ScheduleRefresh(ctx context.Context, expr string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(expr, func() {
		if _, err := s.RefreshAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("scheduled refresh failed", logging.Event("scheduled_refresh_failed"), logging.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("parse refresh schedule %q: %w", expr, err)
	}

	s.logger.Info("refresh scheduled", logging.String("schedule", expr))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// ImportOPML subscribes to the feeds listed in an OPML document.
func (s *Service) ImportOPML(ctx context.Context, text string, notifier opml.Notifier, progress func(done, total int)) (opml.Result, error) {
	im := &opml.Importer{
		Feeds:       s.library,
		NewGetter:   func() opml.FeedGetter { return s.newParser(nil) },
		Notifier:    notifier,
		Concurrency: s.concurrency,
		Progress:    progress,
		Logger:      s.base,
	}
	return im.Import(ctx, text)
}

// ExportOPML writes the saved feeds as OPML to path inside v.
func (s *Service) ExportOPML(ctx context.Context, v vault.Vault, path string, notifier opml.Notifier) (int, error) {
	feeds, err := s.SavedFeeds(ctx)
	if err != nil {
		return 0, err
	}
	ex := &opml.Exporter{Vault: v, Notifier: notifier, Logger: s.base}
	if err := ex.Export(feeds, path); err != nil {
		return 0, err
	}
	return len(feeds), nil
}
