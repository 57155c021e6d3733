package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/render/markdown"
	"github.com/glabrego/podnotes/internal/template"
)

type WrapFunc func(string, int) []string

// ChapterState is what the detail pane knows about an episode's chapters.
type ChapterState struct {
	Loading  bool
	Chapters []podcast.Chapter
	Selected int
}

func DetailLines(ep podcast.Episode, chapters ChapterState, width int, wrap WrapFunc) []string {
	lines := DetailMetaLines(ep, width, wrap)

	body := ep.Content
	if strings.TrimSpace(body) == "" {
		body = ep.Description
	}
	if text := markdown.FromHTML(body); text != "" {
		lines = append(lines, "")
		lines = append(lines, wrap(text, width)...)
	}

	lines = append(lines, "", "Chapters:")
	switch {
	case chapters.Loading:
		lines = append(lines, "  loading...")
	case len(chapters.Chapters) == 0:
		lines = append(lines, "  none")
	default:
		for i, c := range chapters.Chapters {
			marker := " "
			if i == chapters.Selected {
				marker = ">"
			}
			label := fmt.Sprintf("%s %s  %s", marker, template.FormatSeconds(c.StartTime, template.DefaultTimeFormat), c.Title)
			lines = append(lines, wrap(label, width)...)
		}
	}
	return lines
}

func DetailMetaLines(ep podcast.Episode, width int, wrap WrapFunc) []string {
	lines := make([]string, 0, 16)
	lines = append(lines, wrap(ep.Title, width)...)
	lines = append(lines, strings.Repeat("=", max(1, min(width, len(ep.Title)))))
	lines = append(lines, "")

	if ep.PodcastName != "" {
		lines = append(lines, wrap("Podcast: "+ep.PodcastName, width)...)
	}
	if ep.EpisodeDate != nil {
		lines = append(lines, "Date: "+ep.EpisodeDate.UTC().Format(time.RFC3339))
	}
	if ep.URL != "" {
		lines = append(lines, wrap("URL: "+ep.URL, width)...)
	}
	if ep.StreamURL != "" {
		lines = append(lines, wrap("Stream: "+ep.StreamURL, width)...)
	}
	return lines
}

func DetailMaxTop(linesLen, bodyHeight int) int {
	maxTop := linesLen - bodyHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func RenderDetailLines(lines []string, top, maxLines int) string {
	if len(lines) == 0 {
		return ""
	}
	if top < 0 {
		top = 0
	}
	if top > len(lines)-1 {
		top = len(lines) - 1
	}
	end := len(lines)
	if maxLines > 0 && top+maxLines < end {
		end = top + maxLines
	}
	return strings.Join(lines[top:end], "\n") + "\n"
}

// WrapText word-wraps text to width columns, hard-splitting longer words.
func WrapText(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))

	for _, p := range paragraphs {
		words := strings.Fields(p)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		indent := p[:len(p)-len(strings.TrimLeft(p, " "))]
		line := ""
		for _, word := range words {
			for len(word) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, word[:width])
				word = word[width:]
			}

			if line == "" {
				line = indent + word
				continue
			}
			if len(line)+1+len(word) <= width {
				line += " " + word
				continue
			}
			out = append(out, line)
			line = indent + word
		}
		if line != "" {
			out = append(out, line)
		}
	}

	return out
}
