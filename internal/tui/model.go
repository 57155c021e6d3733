// Package tui is the interactive episode browser: a list of a feed's
// episodes with a detail pane showing notes and chapters, plus shortcuts that
// write notes into the vault and copy timestamp links.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/template"
	"github.com/glabrego/podnotes/internal/tui/platform"
	tuistate "github.com/glabrego/podnotes/internal/tui/state"
	tuitheme "github.com/glabrego/podnotes/internal/tui/theme"
	tuiview "github.com/glabrego/podnotes/internal/tui/view"
	"github.com/glabrego/podnotes/internal/vault"
)

const requestTimeout = 30 * time.Second

type Service interface {
	Episodes(ctx context.Context, f podcast.Feed, refresh bool) ([]podcast.Episode, error)
	Chapters(ctx context.Context, ep podcast.Episode) []podcast.Chapter
}

// Options carries the templates and vault the note shortcuts write with.
type Options struct {
	Vault             vault.Vault
	NotePath          string
	NoteTemplate      string
	TimestampTemplate string
}

type episodesLoadedMsg struct {
	episodes []podcast.Episode
	source   string
}

type episodesErrorMsg struct {
	err error
}

type chaptersLoadedMsg struct {
	key      string
	chapters []podcast.Chapter
}

type noteCreatedMsg struct {
	note vault.Note
}

type actionDoneMsg struct {
	status string
}

type actionErrorMsg struct {
	err error
}

type clearStatusMsg struct {
	id int
}

type Model struct {
	service Service
	feed    podcast.Feed
	opts    Options
	theme   tuitheme.Theme

	episodes      []podcast.Episode
	cursor        int
	source        string
	inDetail      bool
	detailTop     int
	chapterCursor int
	chapters      map[string][]podcast.Chapter
	chapterLoad   map[string]bool
	showHelp      bool
	width         int
	height        int
	loading       bool
	status        string
	statusID      int
	err           error

	openURLFn func(string) error
	copyFn    func(string) error
	nowFn     func() time.Time
}

func NewModel(service Service, f podcast.Feed, episodes []podcast.Episode, opts Options) Model {
	return Model{
		service:     service,
		feed:        f,
		opts:        opts,
		theme:       tuitheme.Default(),
		episodes:    append([]podcast.Episode(nil), episodes...),
		chapters:    make(map[string][]podcast.Chapter),
		chapterLoad: make(map[string]bool),
		openURLFn:   platform.OpenURLInBrowser,
		copyFn:      platform.CopyToClipboard,
		nowFn:       time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	if m.service == nil || len(m.episodes) > 0 {
		return nil
	}
	return loadEpisodesCmd(m.service, m.feed, false)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case episodesLoadedMsg:
		anchor := ""
		if ep, ok := m.current(); ok {
			anchor = ep.StreamURL
		}
		m.loading = false
		m.err = nil
		m.episodes = msg.episodes
		m.source = msg.source
		if idx := tuistate.EpisodeIndexByStreamURL(m.episodes, anchor); idx >= 0 {
			m.cursor = idx
		}
		m.cursor = tuistate.ClampCursor(m.cursor, len(m.episodes))
		if len(m.episodes) == 0 {
			m.inDetail = false
		}
		return m, nil
	case episodesErrorMsg:
		m.loading = false
		m.status = ""
		m.err = msg.err
		return m, nil
	case chaptersLoadedMsg:
		delete(m.chapterLoad, msg.key)
		m.chapters[msg.key] = msg.chapters
		m.chapterCursor = tuistate.ClampCursor(m.chapterCursor, len(msg.chapters))
		return m, nil
	case noteCreatedMsg:
		m.err = nil
		if msg.note.Created {
			m.status = "Created note " + msg.note.Path
		} else {
			m.status = "Note already exists: " + msg.note.Path
		}
		if len(msg.note.Diagnostics) > 0 {
			m.status += " (" + msg.note.Diagnostics[0].String() + ")"
		}
		return m.flashStatus(4 * time.Second)
	case actionDoneMsg:
		m.err = nil
		m.status = msg.status
		return m.flashStatus(3 * time.Second)
	case actionErrorMsg:
		m.err = nil
		m.status = msg.err.Error()
		return m.flashStatus(4 * time.Second)
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	switch msg.String() {
	case "o":
		return m.openCurrentURL()
	case "y":
		return m.copyStreamURL()
	case "n":
		return m.createNote()
	}

	if m.inDetail {
		switch msg.String() {
		case "esc", "backspace":
			m.inDetail = false
			m.detailTop = 0
		case "up", "k":
			if m.detailTop > 0 {
				m.detailTop--
			}
		case "down", "j":
			if m.detailTop < tuiview.DetailMaxTop(len(m.detailLines()), m.detailBodyHeight()) {
				m.detailTop++
			}
		case "[":
			if m.chapterCursor > 0 {
				m.chapterCursor--
			}
		case "]":
			if m.chapterCursor < len(m.currentChapters())-1 {
				m.chapterCursor++
			}
		case "t":
			return m.copyTimestamp()
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		m.cursor = tuistate.ClampCursor(m.cursor-1, len(m.episodes))
	case "down", "j":
		m.cursor = tuistate.ClampCursor(m.cursor+1, len(m.episodes))
	case "g":
		m.cursor = 0
	case "G":
		m.cursor = tuistate.ClampCursor(len(m.episodes)-1, len(m.episodes))
	case "pgup", "ctrl+b":
		m.cursor = tuistate.ClampCursor(m.cursor-tuistate.PageStep(m.height, m.status != ""), len(m.episodes))
	case "pgdown", "ctrl+f":
		m.cursor = tuistate.ClampCursor(m.cursor+tuistate.PageStep(m.height, m.status != ""), len(m.episodes))
	case "enter":
		return m.openDetail()
	case "r":
		if m.service == nil {
			return m, nil
		}
		m.loading = true
		m.status = ""
		m.err = nil
		return m, loadEpisodesCmd(m.service, m.feed, true)
	}
	return m, nil
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	ep, ok := m.current()
	if !ok {
		return m, nil
	}
	m.inDetail = true
	m.detailTop = 0
	m.chapterCursor = 0
	key := chapterKey(ep)
	if _, done := m.chapters[key]; done || m.chapterLoad[key] || m.service == nil {
		return m, nil
	}
	m.chapterLoad[key] = true
	return m, loadChaptersCmd(m.service, ep)
}

func (m Model) openCurrentURL() (tea.Model, tea.Cmd) {
	ep, ok := m.current()
	if !ok {
		return m, nil
	}
	raw := ep.URL
	if strings.TrimSpace(raw) == "" {
		raw = ep.StreamURL
	}
	validURL, err := platform.ValidateEpisodeURL(raw)
	if err != nil {
		m.err = nil
		m.status = err.Error()
		return m.flashStatus(4 * time.Second)
	}
	return m, runActionCmd(func() error { return m.openURLFn(validURL) }, "Opened "+validURL)
}

func (m Model) copyStreamURL() (tea.Model, tea.Cmd) {
	ep, ok := m.current()
	if !ok {
		return m, nil
	}
	validURL, err := platform.ValidateEpisodeURL(ep.StreamURL)
	if err != nil {
		m.err = nil
		m.status = err.Error()
		return m.flashStatus(4 * time.Second)
	}
	return m, runActionCmd(func() error { return m.copyFn(validURL) }, "Copied stream URL")
}

// copyTimestamp renders the timestamp template at the selected chapter's start
// and copies it.
func (m Model) copyTimestamp() (tea.Model, tea.Cmd) {
	ep, ok := m.current()
	if !ok {
		return m, nil
	}
	position := 0.0
	if chapters := m.currentChapters(); len(chapters) > 0 {
		position = chapters[tuistate.ClampCursor(m.chapterCursor, len(chapters))].StartTime
	}
	text, _ := template.TimestampTemplate(m.opts.TimestampTemplate, chapterPosition{ep: ep, at: position})
	label := template.FormatSeconds(position, template.DefaultTimeFormat)
	return m, runActionCmd(func() error { return m.copyFn(text) }, "Copied timestamp "+label)
}

func (m Model) createNote() (tea.Model, tea.Cmd) {
	ep, ok := m.current()
	if !ok {
		return m, nil
	}
	if m.opts.Vault == nil {
		m.status = "No vault configured"
		return m.flashStatus(4 * time.Second)
	}
	return m, createNoteCmd(m.opts, ep)
}

func (m Model) flashStatus(after time.Duration) (tea.Model, tea.Cmd) {
	m.statusID++
	return m, clearStatusCmd(m.statusID, after)
}

func (m Model) current() (podcast.Episode, bool) {
	if len(m.episodes) == 0 {
		return podcast.Episode{}, false
	}
	return m.episodes[tuistate.ClampCursor(m.cursor, len(m.episodes))], true
}

func (m Model) currentChapters() []podcast.Chapter {
	ep, ok := m.current()
	if !ok {
		return nil
	}
	return m.chapters[chapterKey(ep)]
}

func chapterKey(ep podcast.Episode) string {
	if ep.StreamURL != "" {
		return ep.StreamURL
	}
	return ep.Title
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Podnotes"))
	if title := m.feedTitle(); title != "" {
		b.WriteString(" " + m.theme.ModePill.Render(title))
	}
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("Help (? to close)\n\n")
		b.WriteString(m.helpView())
		b.WriteString("\n\n")
		b.WriteString(m.chrome())
		return b.String()
	}

	b.WriteString(tuiview.Toolbar(m.inDetail))
	b.WriteString("\n\n")
	if m.inDetail {
		b.WriteString(tuiview.RenderDetailLines(m.detailLines(), m.detailTop, m.detailBodyHeight()))
		b.WriteString("\n")
		b.WriteString(m.chrome())
		return b.String()
	}

	switch {
	case m.loading && len(m.episodes) == 0:
		b.WriteString("Loading episodes...\n")
	case len(m.episodes) == 0:
		b.WriteString("No episodes available.\n")
	default:
		start, end := tuistate.CenteredWindow(len(m.episodes), m.cursor, m.listHeight())
		now := m.nowFn()
		for i := start; i < end; i++ {
			b.WriteString(tuiview.RenderEpisodeLine(tuiview.EpisodeLineParams{
				Episode:    m.episodes[i],
				Now:        now,
				VisiblePos: i,
				Active:     i == m.cursor,
				Width:      m.contentWidth(),
			}, m.theme))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.chrome())
	return b.String()
}

func (m Model) chrome() string {
	mode := "list"
	if m.inDetail {
		mode = "detail"
	}
	warning := ""
	if m.err != nil {
		warning = m.err.Error()
	}
	return tuiview.Message(m.loading, m.err != nil, m.status, warning, m.theme) + "\n" +
		tuiview.Footer(mode, m.feedTitle(), len(m.episodes), m.source, m.theme) + "\n"
}

func (m Model) feedTitle() string {
	if m.feed.Title != "" {
		return m.feed.Title
	}
	if len(m.episodes) > 0 {
		return m.episodes[0].PodcastName
	}
	return m.feed.URL
}

func (m Model) detailLines() []string {
	ep, ok := m.current()
	if !ok {
		return []string{"No episode selected."}
	}
	key := chapterKey(ep)
	return tuiview.DetailLines(ep, tuiview.ChapterState{
		Loading:  m.chapterLoad[key],
		Chapters: m.chapters[key],
		Selected: m.chapterCursor,
	}, m.contentWidth(), tuiview.WrapText)
}

func (m Model) helpView() string {
	lines := []string{
		"Navigation:",
		"  j/k or arrows move, g/G jump top/bottom, pgup/pgdown jump page",
		"Modes:",
		"  enter opens detail, esc/backspace returns to list",
		"Detail:",
		"  [ ] select chapter, t copy a timestamp link at the selected chapter",
		"Actions:",
		"  n create note in vault, o open episode page, y copy stream URL, r refresh feed",
	}
	return strings.Join(lines, "\n")
}

func (m Model) contentWidth() int {
	if m.width > 0 {
		return m.width - 1
	}
	return 100
}

func (m Model) listHeight() int {
	if m.height <= 0 {
		return 0
	}
	if h := m.height - 7; h > 3 {
		return h
	}
	return 3
}

func (m Model) detailBodyHeight() int {
	if m.height > 0 {
		if h := m.height - 6; h > 3 {
			return h
		}
	}
	return 16
}

type chapterPosition struct {
	ep podcast.Episode
	at float64
}

func (p chapterPosition) CurrentTime() float64     { return p.at }
func (p chapterPosition) Duration() float64        { return 0 }
func (p chapterPosition) Episode() podcast.Episode { return p.ep }

func loadEpisodesCmd(service Service, f podcast.Feed, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		episodes, err := service.Episodes(ctx, f, refresh)
		if err != nil {
			return episodesErrorMsg{err: err}
		}
		source := "cache"
		if refresh {
			source = "network"
		}
		return episodesLoadedMsg{episodes: episodes, source: source}
	}
}

func loadChaptersCmd(service Service, ep podcast.Episode) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return chaptersLoadedMsg{key: chapterKey(ep), chapters: service.Chapters(ctx, ep)}
	}
}

func createNoteCmd(opts Options, ep podcast.Episode) tea.Cmd {
	return func() tea.Msg {
		note, err := vault.CreateNote(opts.Vault, opts.NotePath, opts.NoteTemplate, ep)
		if err != nil {
			return actionErrorMsg{err: fmt.Errorf("create note: %w", err)}
		}
		return noteCreatedMsg{note: note}
	}
}

func runActionCmd(fn func() error, status string) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionErrorMsg{err: err}
		}
		return actionDoneMsg{status: status}
	}
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
