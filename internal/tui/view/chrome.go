package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/glabrego/podnotes/internal/tui/theme"
)

func Toolbar(inDetail bool) string {
	if inDetail {
		return "j/k scroll | [ ] chapter | t copy timestamp | n note | o open | y copy stream | esc back | ? help"
	}
	return "j/k move | enter open | n note | o open | y copy stream | r refresh | ? help | q quit"
}

func Footer(mode, podcast string, shown int, source string, th tuitheme.Theme) string {
	parts := []string{
		th.MetaLabel.Render("mode") + " " + th.MetaValue.Render(mode),
		th.MetaLabel.Render("podcast") + " " + th.MetaValue.Render(podcast),
		th.MetaValue.Render(fmt.Sprintf("%d episodes", shown)),
	}
	if source != "" {
		parts = append(parts, th.MetaLabel.Render("from")+" "+th.MetaValue.Render(source))
	}
	return strings.Join(parts, " • ")
}

func Message(loading bool, hasWarning bool, status, warning string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}
