package feedcache

import (
	"time"

	"github.com/glabrego/podnotes/internal/podcast"
)

// isoLayout matches JavaScript's Date.toISOString output.
const isoLayout = "2006-01-02T15:04:05.000Z"

type serializedEpisode struct {
	Title       string `json:"title"`
	StreamURL   string `json:"streamUrl"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	PodcastName string `json:"podcastName"`
	FeedURL     string `json:"feedUrl,omitempty"`
	ArtworkURL  string `json:"artworkUrl,omitempty"`
	EpisodeDate string `json:"episodeDate,omitempty"`
	ITunesTitle string `json:"itunesTitle,omitempty"`
	ChaptersURL string `json:"chaptersUrl,omitempty"`
}

func serialize(ep podcast.Episode) serializedEpisode {
	se := serializedEpisode{
		Title:       ep.Title,
		StreamURL:   ep.StreamURL,
		URL:         ep.URL,
		Description: ep.Description,
		Content:     ep.Content,
		PodcastName: ep.PodcastName,
		FeedURL:     ep.FeedURL,
		ArtworkURL:  ep.ArtworkURL,
		ITunesTitle: ep.ITunesTitle,
		ChaptersURL: ep.ChaptersURL,
	}
	if ep.EpisodeDate != nil {
		se.EpisodeDate = ep.EpisodeDate.UTC().Format(isoLayout)
	}
	return se
}

func (se serializedEpisode) episode() podcast.Episode {
	ep := podcast.Episode{
		Title:       se.Title,
		StreamURL:   se.StreamURL,
		URL:         se.URL,
		Description: se.Description,
		Content:     se.Content,
		PodcastName: se.PodcastName,
		FeedURL:     se.FeedURL,
		ArtworkURL:  se.ArtworkURL,
		ITunesTitle: se.ITunesTitle,
		ChaptersURL: se.ChaptersURL,
	}
	if se.EpisodeDate != "" {
		if d, err := time.Parse(time.RFC3339Nano, se.EpisodeDate); err == nil {
			d = d.UTC()
			ep.EpisodeDate = &d
		}
	}
	return ep
}
