package theme

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/podnotes/internal/podcast"
)

// RecentWindow is how old an episode may be and still count as new.
const RecentWindow = 7 * 24 * time.Hour

type Theme struct {
	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Section    lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style
	Chapter    lipgloss.Style

	TitleNew     lipgloss.Style
	TitleOld     lipgloss.Style
	TitleUndated lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:     lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Section:      lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		ActiveLine:   lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:    lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:    lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:    lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:    lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:    lipgloss.NewStyle().Foreground(cpPeach),
		Chapter:      lipgloss.NewStyle().Foreground(cpLavender),
		TitleNew:     lipgloss.NewStyle().Bold(true).Foreground(cpText),
		TitleOld:     lipgloss.NewStyle().Foreground(cpSubtext0),
		TitleUndated: lipgloss.NewStyle().Italic(true).Foreground(cpSubtext0),
	}
}

// StyleEpisodeTitle emphasizes episodes published within RecentWindow of now.
func (t Theme) StyleEpisodeTitle(ep podcast.Episode, now time.Time, title string) string {
	if title == "" {
		return title
	}
	switch {
	case ep.EpisodeDate == nil:
		return t.TitleUndated.Render(title)
	case now.Sub(*ep.EpisodeDate) <= RecentWindow:
		return t.TitleNew.Render(title)
	default:
		return t.TitleOld.Render(title)
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
