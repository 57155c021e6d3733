package template

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/render/markdown"
)

// LinkScheme is the URI scheme of the links rendered by {{linktime}}.
const LinkScheme = "podnotes"

// Playback exposes the live player state the timestamp dialect reads.
type Playback interface {
	// CurrentTime is the playback position in seconds.
	CurrentTime() float64
	// Duration is the episode length in seconds.
	Duration() float64
	Episode() podcast.Episode
}

// NoteTemplate renders a note body for ep.
func NoteTemplate(tmpl string, ep podcast.Episode, opts ...Option) (string, []Diagnostic) {
	return Render(tmpl, noteTags(ep), opts...)
}

// TimestampTemplate renders tmpl against the current playback position.
func TimestampTemplate(tmpl string, pb Playback, opts ...Option) (string, []Diagnostic) {
	position := pb.CurrentTime()
	ep := pb.Episode()
	tags := Tags{
		"time": Func(func(args ...string) string {
			return FormatSeconds(position, joinedArgs(args, DefaultTimeFormat))
		}),
		"linktime": Func(func(args ...string) string {
			label := FormatSeconds(position, joinedArgs(args, DefaultTimeFormat))
			return fmt.Sprintf("[%s](%s)", label, PlaybackLink(ep, position))
		}),
	}
	return Render(tmpl, tags, opts...)
}

// FilePathTemplate renders a note path for ep. Every substituted value is
// sanitized; separators written in tmpl itself are kept.
func FilePathTemplate(tmpl string, ep podcast.Episode, opts ...Option) (string, []Diagnostic) {
	return Render(tmpl, pathTags(ep), opts...)
}

// DownloadPathTemplate is FilePathTemplate with any file extension written in
// tmpl removed first. The real extension comes from the downloaded content.
func DownloadPathTemplate(tmpl string, ep podcast.Episode, opts ...Option) (string, []Diagnostic) {
	return Render(stripExtension(tmpl), pathTags(ep), opts...)
}

// TranscriptTemplate renders a transcript note for ep.
func TranscriptTemplate(tmpl string, ep podcast.Episode, transcript string, opts ...Option) (string, []Diagnostic) {
	tags := Tags{
		"title":      Literal(ep.Title),
		"safetitle":  Literal(Sanitize(ep.Title)),
		"podcast":    Literal(ep.PodcastName),
		"url":        Literal(ep.URL),
		"date":       dateTag(ep, false),
		"transcript": Literal(transcript),
	}
	return Render(tmpl, tags, opts...)
}

// PlaybackLink builds the deep link that reopens ep at position seconds.
func PlaybackLink(ep podcast.Episode, position float64) string {
	feedURL := ep.FeedURL
	if feedURL == "" {
		feedURL = ep.URL
	}
	return fmt.Sprintf("%s://open?episode=%s&url=%s&time=%d",
		LinkScheme,
		url.QueryEscape(ep.Title),
		url.QueryEscape(feedURL),
		int64(math.Floor(math.Max(position, 0))))
}

func noteTags(ep podcast.Episode) Tags {
	content := ep.Content
	if strings.TrimSpace(content) == "" {
		content = ep.Description
	}
	return Tags{
		"title":       Literal(ep.Title),
		"safetitle":   Literal(Sanitize(ep.Title)),
		"url":         Literal(ep.URL),
		"podcast":     Literal(ep.PodcastName),
		"artwork":     Literal(ep.ArtworkURL),
		"stream":      Literal(ep.StreamURL),
		"date":        dateTag(ep, false),
		"description": htmlTag(ep.Description),
		"content":     htmlTag(content),
	}
}

func pathTags(ep podcast.Episode) Tags {
	return Tags{
		"title":   Literal(Sanitize(ep.Title)),
		"podcast": Literal(Sanitize(ep.PodcastName)),
		"date":    dateTag(ep, true),
	}
}

func dateTag(ep podcast.Episode, sanitize bool) Tag {
	return Func(func(args ...string) string {
		if ep.EpisodeDate == nil {
			return ""
		}
		out := FormatDate(*ep.EpisodeDate, joinedArgs(args, DefaultDateFormat))
		if sanitize {
			out = Sanitize(out)
		}
		return out
	})
}

// htmlTag converts raw to Markdown; a first argument is prefixed to every line.
func htmlTag(raw string) Tag {
	return Func(func(args ...string) string {
		text := markdown.FromHTML(raw)
		if len(args) == 0 {
			return text
		}
		return markdown.PrefixLines(text, args[0])
	})
}

func stripExtension(tmpl string) string {
	ext := path.Ext(tmpl)
	if ext == "" || strings.ContainsAny(ext, "{}") {
		return tmpl
	}
	return strings.TrimSuffix(tmpl, ext)
}
