// Package chapters loads Podcasting 2.0 JSON chapter documents.
package chapters

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/netclient"
	"github.com/glabrego/podnotes/internal/podcast"
)

type Fetcher interface {
	Get(ctx context.Context, url string) (*netclient.Response, error)
}

type Option func(*options)

type options struct {
	logger *slog.Logger
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

type document struct {
	Version  string          `json:"version"`
	Chapters json.RawMessage `json:"chapters"`
}

// Fetch downloads the chapters document at url and returns its visible
// chapters ordered by start time. It never fails: an empty url, a network
// error or a malformed document all yield an empty slice.
func Fetch(ctx context.Context, client Fetcher, url string, opts ...Option) []podcast.Chapter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "chapters")
	if strings.TrimSpace(url) == "" {
		return []podcast.Chapter{}
	}
	resp, err := client.Get(ctx, url)
	if err != nil {
		logger.Debug("chapters fetch failed", logging.String(logging.FieldURL, url), logging.Error(err))
		return []podcast.Chapter{}
	}
	chapters, err := Parse(resp.Body)
	if err != nil {
		logger.Debug("chapters document rejected", logging.String(logging.FieldURL, url), logging.Error(err))
		return []podcast.Chapter{}
	}
	return chapters
}

// Parse decodes a chapters document, drops entries with toc set to false and
// sorts the rest by start time, keeping document order for ties. A missing or
// non-array chapters field yields an empty slice.
func Parse(data []byte) ([]podcast.Chapter, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return []podcast.Chapter{}, err
	}
	raw := bytes.TrimSpace(doc.Chapters)
	if len(raw) == 0 || raw[0] != '[' {
		return []podcast.Chapter{}, nil
	}
	var all []podcast.Chapter
	if err := json.Unmarshal(raw, &all); err != nil {
		return []podcast.Chapter{}, err
	}

	visible := make([]podcast.Chapter, 0, len(all))
	for _, c := range all {
		if c.Hidden() {
			continue
		}
		visible = append(visible, c)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].StartTime < visible[j].StartTime
	})
	return visible, nil
}
