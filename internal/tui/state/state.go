package state

import (
	"github.com/glabrego/podnotes/internal/podcast"
)

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

// CenteredWindow returns the [start, end) slice of totalRows to draw so the
// cursor stays centered in a viewport of height rows.
func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

// EpisodeIndexByStreamURL locates an episode across refreshes. It returns -1
// when no episode matches.
func EpisodeIndexByStreamURL(episodes []podcast.Episode, streamURL string) int {
	if streamURL == "" {
		return -1
	}
	for i, ep := range episodes {
		if ep.StreamURL == streamURL {
			return i
		}
	}
	return -1
}

// ChapterAt returns the index of the last chapter starting at or before
// position, or -1 when position precedes every chapter.
func ChapterAt(chapters []podcast.Chapter, position float64) int {
	idx := -1
	for i, c := range chapters {
		if c.StartTime > position {
			break
		}
		idx = i
	}
	return idx
}
