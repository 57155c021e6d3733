package view

import (
	"strings"
	"testing"
	"time"

	"github.com/glabrego/podnotes/internal/podcast"
	tuitheme "github.com/glabrego/podnotes/internal/tui/theme"
)

func TestRenderEpisodeLine_AbsoluteDateWhenRelativeDisabled(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	published := now.Add(-2 * time.Hour)
	th := tuitheme.Default()

	line := RenderEpisodeLine(EpisodeLineParams{
		Episode: podcast.Episode{Title: "Absolute date rendering", EpisodeDate: &published},
		Now:     now,
		Width:   60,
	}, th)
	plain := stripANSI(line)
	if !strings.HasSuffix(plain, "[2026-02-09]") {
		t.Fatalf("expected absolute date suffix at right edge, got %q", plain)
	}
	if !strings.HasPrefix(plain, "   1. ") {
		t.Fatalf("expected numbered prefix, got %q", plain)
	}
}

func TestRenderEpisodeLine_UndatedAndActive(t *testing.T) {
	th := tuitheme.Default()
	line := stripANSI(RenderEpisodeLine(EpisodeLineParams{
		Episode:    podcast.Episode{Title: strings.Repeat("long title ", 20)},
		Active:     true,
		VisiblePos: 4,
		Width:      50,
	}, th))
	if !strings.HasPrefix(line, ">  5. ") {
		t.Fatalf("expected active marker, got %q", line)
	}
	if !strings.HasSuffix(line, "[undated]") {
		t.Fatalf("expected undated label, got %q", line)
	}
	if !strings.Contains(line, "...") {
		t.Fatalf("expected truncated title, got %q", line)
	}
}

func TestRelativeTimeLabel(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		then time.Time
		want string
	}{
		{then: now.Add(-30 * time.Second), want: "just now"},
		{then: now.Add(-1 * time.Minute), want: "1 minute ago"},
		{then: now.Add(-3 * time.Minute), want: "3 minutes ago"},
		{then: now.Add(-1 * time.Hour), want: "1 hour ago"},
		{then: now.Add(-7 * time.Hour), want: "7 hours ago"},
		{then: now.Add(-1 * 24 * time.Hour), want: "1 day ago"},
		{then: now.Add(-7 * 24 * time.Hour), want: "7 days ago"},
	}
	for _, tc := range cases {
		if got := RelativeTimeLabel(now, tc.then); got != tc.want {
			t.Fatalf("RelativeTimeLabel(%s) = %q, want %q", tc.then.UTC().Format(time.RFC3339), got, tc.want)
		}
	}
}
