package opml

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/podcast"
)

const DefaultConcurrency = 4

// Notifier shows short messages to the user.
type Notifier interface {
	Notify(message string)
}

type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

type FeedGetter interface {
	GetFeed(ctx context.Context, url string) (podcast.Feed, error)
}

// SavedFeeds is the subscription list imports merge into.
type SavedFeeds interface {
	List(ctx context.Context) ([]podcast.Feed, error)
	Merge(ctx context.Context, feeds []podcast.Feed) (int, error)
}

type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

type Importer struct {
	Feeds SavedFeeds
	// NewGetter returns a fresh feed getter per fetch; parsers hold
	// per-feed state.
	NewGetter   func() FeedGetter
	Notifier    Notifier
	Concurrency int
	// Progress, if set, is called after each fetch completes, in completion
	// order.
	Progress func(done, total int)
	Logger   *slog.Logger
}

// Import subscribes to the feeds of an OPML document. Feeds already saved by
// URL are skipped, the rest are fetched concurrently and failures are counted
// without aborting the batch. Fetched feeds whose title is already saved are
// skipped too.
func (im *Importer) Import(ctx context.Context, text string) (Result, error) {
	logger := logging.NewComponentLogger(im.Logger, "opml")

	feeds, err := Parse(text)
	if err != nil {
		im.notify("Invalid OPML file")
		return Result{}, err
	}
	saved, err := im.Feeds.List(ctx)
	if err != nil {
		return Result{}, err
	}
	known := make(map[string]struct{}, len(saved))
	for _, f := range saved {
		known[f.URL] = struct{}{}
	}

	var res Result
	pending := make([]podcast.Feed, 0, len(feeds))
	for _, f := range feeds {
		if _, ok := known[f.URL]; ok {
			res.Skipped++
			continue
		}
		known[f.URL] = struct{}{}
		pending = append(pending, f)
	}

	fetched := make([]*podcast.Feed, len(pending))
	var done atomic.Int64
	var failed atomic.Int64
	total := len(pending)

	limit := im.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, f := range pending {
		g.Go(func() error {
			got, err := im.NewGetter().GetFeed(ctx, f.URL)
			if err != nil {
				failed.Add(1)
				logger.Warn("opml feed import failed",
					logging.Event("opml_feed_failed"),
					logging.String(logging.FieldFeed, f.Title),
					logging.String(logging.FieldURL, f.URL),
					logging.Error(err))
			} else {
				fetched[i] = &got
			}
			n := done.Add(1)
			if im.Progress != nil {
				im.Progress(int(n), total)
			}
			return nil
		})
	}
	_ = g.Wait()
	res.Failed = int(failed.Load())

	successes := make([]podcast.Feed, 0, total)
	for _, f := range fetched {
		if f != nil {
			successes = append(successes, *f)
		}
	}
	added, err := im.Feeds.Merge(ctx, successes)
	if err != nil {
		im.notify("Unable to save imported podcasts")
		return res, err
	}
	res.Imported = added
	res.Skipped += len(successes) - added

	logger.Info("opml import finished",
		logging.Int("imported", res.Imported),
		logging.Int("skipped", res.Skipped),
		logging.Int("failed", res.Failed))
	im.notify(fmt.Sprintf("Imported %d podcasts, skipped %d, %d failed", res.Imported, res.Skipped, res.Failed))
	return res, nil
}

func (im *Importer) notify(message string) {
	if im.Notifier != nil {
		im.Notifier.Notify(message)
	}
}
