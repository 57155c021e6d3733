package opml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glabrego/podnotes/internal/library"
	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/storage"
	"github.com/glabrego/podnotes/internal/vault"
)

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Go Time" type="rss" xmlUrl="https://gotime.example.com/rss"/>
    <outline text="Folder">
      <outline text="Nested Show" type="rss" xmlUrl="https://nested.example.com/rss"/>
      <outline text="Broken" type="rss" xmlUrl="https://broken.example.com/rss"/>
    </outline>
    <outline title="Title Only" xmlUrl="https://titleonly.example.com/rss"/>
    <outline text="No URL"/>
    <outline text="Already Saved" xmlUrl="https://saved.example.com/rss"/>
  </body>
</opml>`

func TestParse_AnyDepth(t *testing.T) {
	feeds, err := Parse(sampleOPML)
	require.NoError(t, err)
	assert.Equal(t, []podcast.Feed{
		{Title: "Go Time", URL: "https://gotime.example.com/rss"},
		{Title: "Nested Show", URL: "https://nested.example.com/rss"},
		{Title: "Broken", URL: "https://broken.example.com/rss"},
		{Title: "Title Only", URL: "https://titleonly.example.com/rss"},
		{Title: "Already Saved", URL: "https://saved.example.com/rss"},
	}, feeds)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("<opml><body><outline")
	assert.Error(t, err)
}

func TestParse_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<opml><body><outline text=\"Caf\xe9\" xmlUrl=\"https://cafe.example.com\"/></body></opml>"
	feeds, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Café", feeds[0].Title)
}

func TestSerialize_RoundTrip(t *testing.T) {
	in := []podcast.Feed{
		{Title: "Go Time", URL: "https://gotime.example.com/rss"},
		{Title: "Tom & Jerry <live>", URL: "https://example.com/rss?a=1&b=2"},
	}
	text, err := Serialize(in)
	require.NoError(t, err)
	assert.Contains(t, text, `<?xml version="1.0" encoding="UTF-8"?>`)

	var doc document
	require.NoError(t, xml.Unmarshal([]byte(text), &doc))
	require.Len(t, doc.Body.Outlines, 1)
	group := doc.Body.Outlines[0]
	assert.Equal(t, "feeds", group.Text)
	assert.Empty(t, group.XMLURL)
	require.Len(t, group.Outlines, 2)
	assert.Equal(t, "https://gotime.example.com/rss", group.Outlines[0].XMLURL)

	out, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

type fakeGetter struct {
	feeds map[string]podcast.Feed
}

func (g fakeGetter) GetFeed(_ context.Context, url string) (podcast.Feed, error) {
	f, ok := g.feeds[url]
	if !ok {
		return podcast.Feed{}, fmt.Errorf("fetch %s: %w", url, errors.New("connection refused"))
	}
	return f, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func TestImport_CountsImportedSkippedFailed(t *testing.T) {
	ctx := context.Background()
	lib := library.New(storage.NewMemoryStore(0))
	_, err := lib.Merge(ctx, []podcast.Feed{
		{Title: "Already Saved", URL: "https://saved.example.com/rss"},
		{Title: "Title Only (saved)", URL: "https://elsewhere.example.com/rss"},
	})
	require.NoError(t, err)

	getter := fakeGetter{feeds: map[string]podcast.Feed{
		"https://gotime.example.com/rss":    {Title: "Go Time", URL: "https://gotime.example.com/rss"},
		"https://nested.example.com/rss":    {Title: "Nested Show", URL: "https://nested.example.com/rss"},
		"https://titleonly.example.com/rss": {Title: "Title Only (saved)", URL: "https://titleonly.example.com/rss"},
	}}
	notifier := &recordingNotifier{}
	var progressMu sync.Mutex
	var progress []int

	im := &Importer{
		Feeds:       lib,
		NewGetter:   func() FeedGetter { return getter },
		Notifier:    notifier,
		Concurrency: 2,
		Progress: func(done, total int) {
			progressMu.Lock()
			defer progressMu.Unlock()
			assert.Equal(t, 4, total)
			progress = append(progress, done)
		},
	}

	res, err := im.Import(ctx, sampleOPML)
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2, Skipped: 2, Failed: 1}, res)

	sort.Ints(progress)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	feeds, err := lib.List(ctx)
	require.NoError(t, err)
	titles := make([]string, 0, len(feeds))
	for _, f := range feeds {
		titles = append(titles, f.Title)
	}
	assert.ElementsMatch(t, []string{"Already Saved", "Go Time", "Nested Show", "Title Only (saved)"}, titles)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "Imported 2 podcasts, skipped 2, 1 failed", notifier.messages[0])
}

func TestImport_InvalidDocument(t *testing.T) {
	notifier := &recordingNotifier{}
	im := &Importer{
		Feeds:     library.New(storage.NewMemoryStore(0)),
		NewGetter: func() FeedGetter { return fakeGetter{} },
		Notifier:  notifier,
	}
	_, err := im.Import(context.Background(), "not xml at all <")
	assert.Error(t, err)
	assert.Equal(t, []string{"Invalid OPML file"}, notifier.messages)
}

func TestExport(t *testing.T) {
	v := vault.FS{Root: t.TempDir()}
	notifier := &recordingNotifier{}
	ex := &Exporter{Vault: v, Notifier: notifier}
	feeds := []podcast.Feed{
		{Title: "A", URL: "https://a.example.com/rss"},
		{Title: "B", URL: "https://b.example.com/rss"},
	}

	require.NoError(t, ex.Export(feeds, "podcasts.opml"))
	text, err := v.Read("podcasts.opml")
	require.NoError(t, err)
	parsed, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, feeds, parsed)
	assert.Equal(t, "Exported 2 podcasts to podcasts.opml", notifier.messages[0])

	err = ex.Export(feeds, "missing/podcasts.opml")
	assert.True(t, errors.Is(err, vault.ErrFolderMissing))
	assert.Equal(t, "Unable to export podcasts: folder does not exist", notifier.messages[1])

	err = ex.Export(feeds[:1], "podcasts.opml")
	assert.True(t, errors.Is(err, vault.ErrExists))
	assert.Equal(t, "Unable to export podcasts: file already exists", notifier.messages[2])
	text, err = v.Read("podcasts.opml")
	require.NoError(t, err)
	parsed, err = Parse(text)
	require.NoError(t, err)
	assert.Equal(t, feeds, parsed, "existing export is left untouched")
}

type failingVault struct {
	vault.FS
}

func (failingVault) Create(string, string) error { return errors.New("disk full") }

func TestExport_WriteFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	ex := &Exporter{Vault: failingVault{vault.FS{Root: t.TempDir()}}, Notifier: notifier}

	err := ex.Export([]podcast.Feed{{Title: "A", URL: "https://a.example.com/rss"}}, "podcasts.opml")
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, []string{"Unable to export podcasts"}, notifier.messages)
}
