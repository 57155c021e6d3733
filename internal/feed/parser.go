// Package feed fetches podcast RSS documents and normalizes them into
// podcast.Feed and podcast.Episode records.
//
// Items missing a title, enclosure, description or pubDate are skipped rather
// than failing the whole document; only a feed without a title is rejected.
package feed

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/text/cases"

	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/netclient"
	"github.com/glabrego/podnotes/internal/podcast"
)

type Fetcher interface {
	Get(ctx context.Context, url string) (*netclient.Response, error)
}

type Option func(*Parser)

// WithFeed seeds the parser with known feed metadata so GetEpisodes skips
// the feed-level fetch.
func WithFeed(f podcast.Feed) Option {
	return func(p *Parser) {
		cp := f
		p.feed = &cp
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logging.NewComponentLogger(logger, "feed") }
}

// Parser is not safe for concurrent use; create one per feed.
type Parser struct {
	client Fetcher
	feed   *podcast.Feed
	logger *slog.Logger
}

func NewParser(client Fetcher, opts ...Option) *Parser {
	p := &Parser{client: client, logger: logging.NewComponentLogger(nil, "feed")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed returns the feed metadata known to the parser, if any.
func (p *Parser) Feed() (podcast.Feed, bool) {
	if p.feed == nil {
		return podcast.Feed{}, false
	}
	return *p.feed, true
}

// GetFeed fetches url and extracts the channel title and artwork.
func (p *Parser) GetFeed(ctx context.Context, url string) (podcast.Feed, error) {
	doc, err := p.fetch(ctx, url)
	if err != nil {
		return podcast.Feed{}, err
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		return podcast.Feed{}, &ParseError{URL: url, Cause: errors.New("missing channel title")}
	}

	f := podcast.Feed{
		Title:      title,
		URL:        url,
		ArtworkURL: channelArtwork(doc),
	}
	p.feed = &f
	return f, nil
}

// GetEpisodes returns the valid items of the feed at url in document order.
func (p *Parser) GetEpisodes(ctx context.Context, url string) ([]podcast.Episode, error) {
	if p.feed == nil {
		if _, err := p.GetFeed(ctx, url); err != nil {
			return nil, err
		}
	}

	doc, err := p.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	episodes := make([]podcast.Episode, 0, len(doc.Items))
	skipped := 0
	for _, item := range doc.Items {
		ep, ok := parseItem(item, p.feed)
		if !ok {
			skipped++
			continue
		}
		episodes = append(episodes, ep)
	}
	if skipped > 0 {
		p.logger.Debug("skipped invalid feed items",
			logging.String(logging.FieldURL, url),
			logging.Int("skipped", skipped),
			logging.Int("kept", len(episodes)))
	}
	return episodes, nil
}

// FindItemByTitle returns the first episode whose title equals title,
// ignoring case and surrounding whitespace.
func (p *Parser) FindItemByTitle(ctx context.Context, title, url string) (podcast.Episode, error) {
	episodes, err := p.GetEpisodes(ctx, url)
	if err != nil {
		return podcast.Episode{}, err
	}
	if ep, ok := MatchTitle(episodes, title); ok {
		return ep, nil
	}
	return podcast.Episode{}, &NotFoundError{Title: title, URL: url}
}

// MatchTitle finds the first episode titled title under Unicode case folding,
// ignoring surrounding whitespace.
func MatchTitle(episodes []podcast.Episode, title string) (podcast.Episode, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(title))
	for _, ep := range episodes {
		if fold.String(strings.TrimSpace(ep.Title)) == want {
			return ep, true
		}
	}
	return podcast.Episode{}, false
}

func (p *Parser) fetch(ctx context.Context, url string) (*rss.Feed, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseDocument(url, resp.Body)
}

func parseDocument(url string, body []byte) (*rss.Feed, error) {
	var rp rss.Parser
	doc, err := rp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: url, Cause: err}
	}
	return doc, nil
}

// channelArtwork prefers <image><url> over the iTunes image href.
func channelArtwork(doc *rss.Feed) string {
	if doc.Image != nil {
		if u := strings.TrimSpace(doc.Image.URL); u != "" {
			return u
		}
	}
	if doc.ITunesExt != nil {
		if u := strings.TrimSpace(doc.ITunesExt.Image); u != "" {
			return u
		}
	}
	return ""
}

func parseItem(item *rss.Item, owner *podcast.Feed) (podcast.Episode, bool) {
	if item == nil {
		return podcast.Episode{}, false
	}
	title := strings.TrimSpace(item.Title)
	description := strings.TrimSpace(item.Description)
	pubDate := strings.TrimSpace(item.PubDate)
	streamURL := ""
	if item.Enclosure != nil {
		streamURL = strings.TrimSpace(item.Enclosure.URL)
	}
	if title == "" || streamURL == "" || description == "" || pubDate == "" {
		return podcast.Episode{}, false
	}

	ep := podcast.Episode{
		Title:       title,
		StreamURL:   streamURL,
		URL:         strings.TrimSpace(item.Link),
		Description: description,
		Content:     strings.TrimSpace(item.Content),
		ITunesTitle: extensionValue(item, "itunes", "title"),
		ChaptersURL: extensionAttr(item, "podcast", "chapters", "url"),
	}
	if item.PubDateParsed != nil {
		d := item.PubDateParsed.UTC().Truncate(time.Millisecond)
		ep.EpisodeDate = &d
	}
	if item.ITunesExt != nil {
		ep.ArtworkURL = strings.TrimSpace(item.ITunesExt.Image)
	}

	if owner != nil {
		ep.PodcastName = owner.Title
		ep.FeedURL = owner.URL
		if ep.URL == "" {
			ep.URL = owner.URL
		}
		if ep.ArtworkURL == "" {
			ep.ArtworkURL = owner.ArtworkURL
		}
	}
	return ep, true
}

func extensionValue(item *rss.Item, namespace, name string) string {
	if item.Extensions == nil {
		return ""
	}
	values := item.Extensions[namespace][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func extensionAttr(item *rss.Item, namespace, name, attr string) string {
	if item.Extensions == nil {
		return ""
	}
	values := item.Extensions[namespace][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Attrs[attr])
}
