package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:podcast="https://podcastindex.org/namespace/1.0">
  <channel>
    <title>Test Show</title>
    <link>https://example.com/show</link>
    <item>
      <title>Episode One</title>
      <link>https://example.com/1</link>
      <description><![CDATA[<p>First <b>episode</b></p>]]></description>
      <pubDate>Mon, 02 Feb 2026 10:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/1.mp3" type="audio/mpeg" length="1"/>
      <podcast:chapters url="%s/chapters.json" type="application/json+chapters"/>
    </item>
    <item>
      <title>Episode Two</title>
      <link>https://example.com/2</link>
      <description>Second</description>
      <pubDate>Mon, 26 Jan 2026 10:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/2.mp3" type="audio/mpeg" length="1"/>
    </item>
  </channel>
</rss>`

const testChapters = `{"version":"1.2.0","chapters":[{"startTime":0,"title":"Intro"},{"startTime":60,"title":"Main topic"},{"startTime":90,"title":"Ad","toc":false}]}`

var podnotesEnv = []string{
	"DB_PATH", "STORE", "VAULT_DIR", "LOG_LEVEL", "LOG_FORMAT", "HTTP_TIMEOUT",
	"USER_AGENT", "CACHE_MAX_AGE", "NOTE_TEMPLATE", "NOTE_PATH", "DOWNLOAD_PATH",
	"TIMESTAMP_TEMPLATE", "TRANSCRIPT_TEMPLATE", "TRANSCRIPT_PATH",
	"IMPORT_CONCURRENCY", "REFRESH_CRON",
}

type cliTestEnv struct {
	dir     string
	vault   string
	feedURL string
}

func setupCLITestEnv(t *testing.T, store string) *cliTestEnv {
	t.Helper()

	for _, name := range podnotesEnv {
		t.Setenv("PODNOTES_"+name, "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	t.Chdir(dir)

	vaultDir := filepath.Join(dir, "vault")
	if err := os.MkdirAll(vaultDir, 0o755); err != nil {
		t.Fatalf("mkdir vault: %v", err)
	}
	dbPath := filepath.Join(dir, "data", "podnotes.db")
	if store == "file" {
		dbPath = filepath.Join(dir, "data", "store.json")
	}
	t.Setenv("PODNOTES_STORE", store)
	t.Setenv("PODNOTES_DB_PATH", dbPath)
	t.Setenv("PODNOTES_VAULT_DIR", vaultDir)
	t.Setenv("PODNOTES_LOG_LEVEL", "error")

	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, testFeed, "http://"+r.Host)
	})
	mux.HandleFunc("/chapters.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testChapters))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &cliTestEnv{dir: dir, vault: vaultDir, feedURL: server.URL + "/rss"}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("podnotes %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}

func TestEpisodesAndFind(t *testing.T) {
	env := setupCLITestEnv(t, "file")

	out := mustRunCLI(t, "episodes", env.feedURL)
	for _, want := range []string{"Episode One", "Episode Two", "2026-02-02", "yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in episodes output:\n%s", want, out)
		}
	}

	out = mustRunCLI(t, "find", env.feedURL, "episode two")
	if !strings.Contains(out, "Stream:    https://cdn.example.com/2.mp3") {
		t.Fatalf("unexpected find output:\n%s", out)
	}

	_, _, err := runCLI(t, "", "find", env.feedURL, "Episode Nine")
	if err == nil || !strings.Contains(err.Error(), "Could not find episode") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestChaptersCommand(t *testing.T) {
	env := setupCLITestEnv(t, "file")

	out := mustRunCLI(t, "chapters", env.feedURL, "Episode One")
	if !strings.Contains(out, "Intro") || !strings.Contains(out, "00:01:00") || !strings.Contains(out, "Main topic") {
		t.Fatalf("unexpected chapters output:\n%s", out)
	}
	if strings.Contains(out, "Ad") {
		t.Fatalf("expected hidden chapter to be dropped:\n%s", out)
	}

	out = mustRunCLI(t, "chapters", env.feedURL, "Episode Two")
	if !strings.Contains(out, "No chapters.") {
		t.Fatalf("unexpected output for episode without chapters:\n%s", out)
	}
}

func TestNoteCommand(t *testing.T) {
	env := setupCLITestEnv(t, "file")

	out := mustRunCLI(t, "note", env.feedURL, "Episode One")
	if strings.TrimSpace(out) != "Created Podcasts/Test Show/Episode One.md" {
		t.Fatalf("unexpected note output: %q", out)
	}
	body, err := os.ReadFile(filepath.Join(env.vault, "Podcasts", "Test Show", "Episode One.md"))
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	for _, want := range []string{"## Episode One", "Podcast:: Test Show", "PublishDate:: 2026-02-02", "> First **episode**"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in note:\n%s", want, body)
		}
	}

	out = mustRunCLI(t, "note", env.feedURL, "Episode One")
	if !strings.HasPrefix(out, "Already exists:") {
		t.Fatalf("expected existing note to be kept, got %q", out)
	}

	out, stderr, err := runCLI(t, "", "note", "--print", "--template", "# {{title}} {{titel}}", env.feedURL, "Episode One")
	if err != nil {
		t.Fatalf("note --print: %v", err)
	}
	if out != "# Episode One {{titel}}" {
		t.Fatalf("unexpected printed note: %q", out)
	}
	if !strings.Contains(stderr, `did you mean "title"`) {
		t.Fatalf("expected tag suggestion on stderr, got %q", stderr)
	}
}

func TestPathAndTimestampCommands(t *testing.T) {
	env := setupCLITestEnv(t, "file")

	out := mustRunCLI(t, "path", "--template", "{{podcast}}/{{date:YYYY}}/{{title}}.md", env.feedURL, "Episode One")
	if strings.TrimSpace(out) != "Test Show/2026/Episode One.md" {
		t.Fatalf("unexpected path: %q", out)
	}
	out = mustRunCLI(t, "path", "--download", "--template", "{{podcast}}/{{title}}.mp3", env.feedURL, "Episode One")
	if strings.TrimSpace(out) != "Test Show/Episode One" {
		t.Fatalf("unexpected download path: %q", out)
	}

	out = mustRunCLI(t, "timestamp", "--at", "1:35", env.feedURL, "Episode One")
	want := fmt.Sprintf("- [00:01:35](podnotes://open?episode=Episode+One&url=%s&time=95) \n", url.QueryEscape(env.feedURL))
	if out != want {
		t.Fatalf("timestamp = %q, want %q", out, want)
	}

	if _, _, err := runCLI(t, "", "timestamp", "--at", "1:75", env.feedURL, "Episode One"); err == nil {
		t.Fatal("expected invalid position error")
	}
}

func TestTranscriptCommand(t *testing.T) {
	env := setupCLITestEnv(t, "file")

	out, stderr, err := runCLI(t, "hello world\n", "transcript", env.feedURL, "Episode Two")
	if err != nil {
		t.Fatalf("transcript: %v\nstderr: %s", err, stderr)
	}
	if strings.TrimSpace(out) != "Wrote Transcripts/Test Show/Episode Two.md" {
		t.Fatalf("unexpected transcript output: %q", out)
	}
	body, err := os.ReadFile(filepath.Join(env.vault, "Transcripts", "Test Show", "Episode Two.md"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(body) != "# Episode Two\n\nhello world\n" {
		t.Fatalf("unexpected transcript body: %q", body)
	}

	if _, _, err := runCLI(t, "again", "transcript", env.feedURL, "Episode Two"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected existing transcript error, got %v", err)
	}
}

func TestFeedsAndOPML(t *testing.T) {
	env := setupCLITestEnv(t, "file")

	if out := mustRunCLI(t, "feeds", "add", env.feedURL); strings.TrimSpace(out) != "Saved Test Show" {
		t.Fatalf("unexpected add output: %q", out)
	}
	if out := mustRunCLI(t, "feeds", "add", env.feedURL); !strings.HasPrefix(out, "Already saved") {
		t.Fatalf("unexpected second add output: %q", out)
	}
	if out := mustRunCLI(t, "feeds", "list"); !strings.Contains(out, "Test Show") || !strings.Contains(out, env.feedURL) {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	// Saved feeds resolve by title.
	if out := mustRunCLI(t, "episodes", "Test Show"); !strings.Contains(out, "Episode One") {
		t.Fatalf("expected episodes by title:\n%s", out)
	}

	out := mustRunCLI(t, "opml", "export", "feeds.opml")
	if strings.TrimSpace(out) != "Exported 1 podcasts to feeds.opml" {
		t.Fatalf("unexpected export output: %q", out)
	}
	exported, err := os.ReadFile(filepath.Join(env.vault, "feeds.opml"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	if out := mustRunCLI(t, "feeds", "remove", "Test Show"); strings.TrimSpace(out) != "Removed Test Show" {
		t.Fatalf("unexpected remove output: %q", out)
	}
	if _, _, err := runCLI(t, "", "feeds", "remove", "Test Show"); err == nil {
		t.Fatal("expected error removing an unknown feed")
	}

	out, stderr, err := runCLI(t, string(exported), "opml", "import", "-")
	if err != nil {
		t.Fatalf("opml import: %v\nstderr: %s", err, stderr)
	}
	if strings.TrimSpace(out) != "Imported 1 podcasts, skipped 0, 0 failed" {
		t.Fatalf("unexpected import output: %q", out)
	}

	if _, _, err := runCLI(t, "", "opml", "export", "missing/feeds.opml"); err == nil {
		t.Fatal("expected export into a missing folder to fail")
	}
	out, _, err = runCLI(t, "", "opml", "export", "feeds.opml")
	if err == nil || strings.TrimSpace(out) != "Unable to export podcasts: file already exists" {
		t.Fatalf("expected existing export to be kept, got %q, %v", out, err)
	}
}

func TestCacheAndRefreshWithSQLite(t *testing.T) {
	env := setupCLITestEnv(t, "sqlite")

	mustRunCLI(t, "feeds", "add", env.feedURL)
	if out := mustRunCLI(t, "refresh"); strings.TrimSpace(out) != "Refreshed 1 feeds, 0 failed" {
		t.Fatalf("unexpected refresh output: %q", out)
	}

	out := mustRunCLI(t, "cache", "stats")
	for _, want := range []string{"Feeds:    1", "Episodes: 2", "Size:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in cache stats:\n%s", want, out)
		}
	}

	mustRunCLI(t, "cache", "clear")
	if out := mustRunCLI(t, "cache", "stats"); !strings.Contains(out, "Feeds:    0") {
		t.Fatalf("expected empty cache after clear:\n%s", out)
	}

	if _, _, err := runCLI(t, "", "refresh", "--watch"); err == nil {
		t.Fatal("expected --watch without refresh_cron to fail")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "podnotes dev\n" {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestParsePosition(t *testing.T) {
	cases := map[string]float64{
		"":        0,
		"95":      95,
		"12.5":    12.5,
		"1:35":    95,
		"1:02:03": 3723,
	}
	for raw, want := range cases {
		got, err := parsePosition(raw)
		if err != nil {
			t.Fatalf("parsePosition(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("parsePosition(%q) = %v, want %v", raw, got, want)
		}
	}
	for _, raw := range []string{"abc", "-5", "1:60", "1:2:3:4"} {
		if _, err := parsePosition(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
