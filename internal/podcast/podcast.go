// Package podcast holds the feed, episode and chapter records shared by the
// parser, cache, template engine and UI.
package podcast

import (
	"strings"
	"time"
)

// Feed describes a podcast's identity as derived from its RSS document.
type Feed struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
}

// Key is the feed identity: the URL when present, otherwise the title.
func (f Feed) Key() string {
	if strings.TrimSpace(f.URL) != "" {
		return f.URL
	}
	return f.Title
}

// Episode is one normalized item of a feed.
type Episode struct {
	Title       string
	StreamURL   string
	URL         string
	Description string
	Content     string
	PodcastName string
	FeedURL     string
	ArtworkURL  string
	EpisodeDate *time.Time
	ITunesTitle string
	// ChaptersURL points at a Podcasting 2.0 chapters document, if the item
	// declares one.
	ChaptersURL string
}

// Chapter is a chapter marker. A chapter whose TOC is explicitly false is
// hidden from listings.
type Chapter struct {
	StartTime float64  `json:"startTime"`
	EndTime   *float64 `json:"endTime,omitempty"`
	Title     string   `json:"title"`
	Img       string   `json:"img,omitempty"`
	URL       string   `json:"url,omitempty"`
	TOC       *bool    `json:"toc,omitempty"`
}

func (c Chapter) Hidden() bool {
	return c.TOC != nil && !*c.TOC
}
