package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/storage"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func sampleEpisodes(n int) []podcast.Episode {
	out := make([]podcast.Episode, 0, n)
	for i := 0; i < n; i++ {
		d := time.Date(2026, 2, 1, 10, 30, 15, 123_000_000, time.UTC).Add(-time.Duration(i) * 24 * time.Hour)
		out = append(out, podcast.Episode{
			Title:       fmt.Sprintf("Episode %d", i),
			StreamURL:   fmt.Sprintf("https://cdn.example.com/%d.mp3", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			Description: "<p>notes</p>",
			PodcastName: "Show",
			FeedURL:     "https://example.com/rss",
			EpisodeDate: &d,
		})
	}
	return out
}

func assertEpisodesEqual(t *testing.T, want, got []podcast.Episode) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.StreamURL, g.StreamURL)
		assert.Equal(t, w.URL, g.URL)
		assert.Equal(t, w.Description, g.Description)
		assert.Equal(t, w.PodcastName, g.PodcastName)
		assert.Equal(t, w.FeedURL, g.FeedURL)
		if w.EpisodeDate == nil {
			assert.Nil(t, g.EpisodeDate)
			continue
		}
		require.NotNil(t, g.EpisodeDate)
		assert.True(t, w.EpisodeDate.Equal(*g.EpisodeDate), "date %d: want %s got %s", i, w.EpisodeDate, g.EpisodeDate)
	}
}

var show = podcast.Feed{Title: "Show", URL: "https://example.com/rss"}

func TestSetThenGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	clock := newClock()
	c := New(store, WithClock(clock.now))

	episodes := sampleEpisodes(3)
	episodes[2].EpisodeDate = nil
	c.SetCachedEpisodes(ctx, show, episodes)

	got, ok := c.GetCachedEpisodes(ctx, show, 0)
	require.True(t, ok)
	assertEpisodesEqual(t, episodes, got)

	// A fresh cache over the same store sees the persisted blob.
	reopened := New(store, WithClock(clock.now))
	got, ok = reopened.GetCachedEpisodes(ctx, show, time.Hour)
	require.True(t, ok)
	assertEpisodesEqual(t, episodes, got)
}

func TestSet_NormalizesDatesToUTCMillis(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemoryStore(0))

	zone := time.FixedZone("UTC+2", 2*60*60)
	d := time.Date(2024, 1, 1, 10, 0, 0, 123_456_789, zone)
	c.SetCachedEpisodes(ctx, show, []podcast.Episode{{Title: "t", StreamURL: "s", EpisodeDate: &d}})

	got, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	require.True(t, ok)
	require.NotNil(t, got[0].EpisodeDate)
	want := time.Date(2024, 1, 1, 8, 0, 0, 123_000_000, time.UTC)
	assert.True(t, want.Equal(*got[0].EpisodeDate), "want %s got %s", want, got[0].EpisodeDate)
	assert.Equal(t, time.UTC, got[0].EpisodeDate.Location())
}

func TestSet_CapsEpisodeCount(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemoryStore(0))

	episodes := sampleEpisodes(100)
	c.SetCachedEpisodes(ctx, show, episodes)

	got, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	require.True(t, ok)
	assertEpisodesEqual(t, episodes[:DefaultMaxEpisodes], got)
}

func TestSet_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	c := New(store)

	c.SetCachedEpisodes(ctx, show, nil)
	_, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	assert.False(t, ok)
	_, err := store.Get(ctx, StorageKey)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestGet_ExpiredEntryIsDeleted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	clock := newClock()
	c := New(store, WithClock(clock.now))

	c.SetCachedEpisodes(ctx, show, sampleEpisodes(2))
	clock.advance(2 * time.Hour)

	_, ok := c.GetCachedEpisodes(ctx, show, 3*time.Hour)
	require.True(t, ok, "entry younger than max age is returned")

	_, ok = c.GetCachedEpisodes(ctx, show, time.Hour)
	assert.False(t, ok)

	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	var persisted map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.NotContains(t, persisted, show.Key())
}

func TestGet_DefaultMaxAge(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := New(nil, WithClock(clock.now))

	c.SetCachedEpisodes(ctx, show, sampleEpisodes(1))
	clock.advance(5 * time.Hour)
	_, ok := c.GetCachedEpisodes(ctx, show, 0)
	assert.True(t, ok)
	clock.advance(2 * time.Hour)
	_, ok = c.GetCachedEpisodes(ctx, show, 0)
	assert.False(t, ok)
}

func TestKeyFallsBackToTitle(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	untitled := podcast.Feed{Title: "Only Title"}
	c.SetCachedEpisodes(ctx, untitled, sampleEpisodes(1))

	_, ok := c.GetCachedEpisodes(ctx, podcast.Feed{Title: "Only Title"}, time.Hour)
	assert.True(t, ok)
}

func TestClearFeedCache(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	c := New(store)
	c.SetCachedEpisodes(ctx, show, sampleEpisodes(1))

	c.ClearFeedCache(ctx)

	_, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	assert.False(t, ok)
	_, err := store.Get(ctx, StorageKey)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestCorruptBlobResetsCache(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	require.NoError(t, store.Set(ctx, StorageKey, "{not json"))

	c := New(store)
	_, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	assert.False(t, ok)

	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
}

func TestEviction_DropsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	clock := newClock()

	big := strings.Repeat("x", 2000)
	episodes := []podcast.Episode{{Title: "t", StreamURL: "s", Description: big}}

	const budget = 10_000
	c := New(store, WithClock(clock.now), WithLimits(0, budget))

	feeds := make([]podcast.Feed, 0, 6)
	for i := 0; i < 6; i++ {
		f := podcast.Feed{Title: fmt.Sprintf("feed-%d", i), URL: fmt.Sprintf("https://example.com/%d", i)}
		feeds = append(feeds, f)
		c.SetCachedEpisodes(ctx, f, episodes)
		clock.advance(time.Minute)
	}

	present := make([]bool, len(feeds))
	for i, f := range feeds {
		_, present[i] = c.GetCachedEpisodes(ctx, f, 24*time.Hour)
	}
	assert.True(t, present[len(feeds)-1], "newest entry must survive")
	assert.False(t, present[0], "oldest entry must be evicted")
	for i := 1; i < len(present); i++ {
		if present[i-1] {
			assert.True(t, present[i], "entry %d kept while newer entry %d dropped", i-1, i)
		}
	}

	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(raw), budget)
}

type quotaStore struct {
	*storage.MemoryStore
	failSets int
	sets     int
	removes  int
}

func (s *quotaStore) Set(ctx context.Context, key, value string) error {
	s.sets++
	if s.failSets > 0 {
		s.failSets--
		return fmt.Errorf("wrapped: %w", storage.ErrQuotaExceeded)
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *quotaStore) Remove(ctx context.Context, key string) error {
	s.removes++
	return s.MemoryStore.Remove(ctx, key)
}

func TestQuotaExceeded_ClearAndRetry(t *testing.T) {
	ctx := context.Background()
	store := &quotaStore{MemoryStore: storage.NewMemoryStore(0), failSets: 1}
	c := New(store)

	c.SetCachedEpisodes(ctx, show, sampleEpisodes(1))

	assert.Equal(t, 2, store.sets)
	assert.Equal(t, 1, store.removes)
	_, err := store.MemoryStore.Get(ctx, StorageKey)
	assert.NoError(t, err)
}

func TestQuotaExceeded_RetryFailsRemovesKey(t *testing.T) {
	ctx := context.Background()
	store := &quotaStore{MemoryStore: storage.NewMemoryStore(0), failSets: 2}
	require.NoError(t, store.MemoryStore.Set(ctx, StorageKey, "{}"))
	c := New(store)

	c.SetCachedEpisodes(ctx, show, sampleEpisodes(1))

	_, err := store.MemoryStore.Get(ctx, StorageKey)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	// The in-memory view still serves the entry for this process.
	_, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	assert.True(t, ok)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }
func (brokenStore) Set(context.Context, string, string) error   { return errors.New("disk gone") }
func (brokenStore) Remove(context.Context, string) error        { return errors.New("disk gone") }

func TestUnavailableStoreDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	c := New(brokenStore{})

	c.SetCachedEpisodes(ctx, show, sampleEpisodes(2))
	got, ok := c.GetCachedEpisodes(ctx, show, time.Hour)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	c.SetCachedEpisodes(ctx, show, sampleEpisodes(3))
	c.SetCachedEpisodes(ctx, podcast.Feed{Title: "Other"}, sampleEpisodes(2))

	st := c.Stats(ctx)
	assert.Equal(t, 2, st.Feeds)
	assert.Equal(t, 5, st.Episodes)
	assert.Positive(t, st.Bytes)
}
