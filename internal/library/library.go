// Package library keeps the user's saved podcast feeds, keyed by title, in a
// storage.Store.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/storage"
)

const StorageKey = "podnotes:saved-feeds:v1"

var ErrFeedNotFound = errors.New("feed not saved")

type Library struct {
	store storage.Store
	mu    sync.Mutex
}

func New(store storage.Store) *Library {
	return &Library{store: store}
}

// List returns the saved feeds ordered by title.
func (l *Library) List(ctx context.Context) ([]podcast.Feed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	feeds, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]podcast.Feed, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out, nil
}

// Find returns the saved feed whose title or URL equals key.
func (l *Library) Find(ctx context.Context, key string) (podcast.Feed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	feeds, err := l.load(ctx)
	if err != nil {
		return podcast.Feed{}, err
	}
	if f, ok := lookup(feeds, key); ok {
		return f, nil
	}
	return podcast.Feed{}, fmt.Errorf("%q: %w", key, ErrFeedNotFound)
}

// Merge saves every feed whose title is not taken yet and returns how many
// were added.
func (l *Library) Merge(ctx context.Context, incoming []podcast.Feed) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	feeds, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, f := range incoming {
		if _, exists := feeds[f.Title]; exists {
			continue
		}
		feeds[f.Title] = f
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, l.save(ctx, feeds)
}

// Remove deletes the feed whose title or URL equals key.
func (l *Library) Remove(ctx context.Context, key string) (podcast.Feed, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	feeds, err := l.load(ctx)
	if err != nil {
		return podcast.Feed{}, err
	}
	f, ok := lookup(feeds, key)
	if !ok {
		return podcast.Feed{}, fmt.Errorf("%q: %w", key, ErrFeedNotFound)
	}
	delete(feeds, f.Title)
	return f, l.save(ctx, feeds)
}

func lookup(feeds map[string]podcast.Feed, key string) (podcast.Feed, bool) {
	if f, ok := feeds[key]; ok {
		return f, true
	}
	for _, f := range feeds {
		if f.URL != "" && f.URL == key {
			return f, true
		}
	}
	return podcast.Feed{}, false
}

func (l *Library) load(ctx context.Context) (map[string]podcast.Feed, error) {
	raw, err := l.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]podcast.Feed{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load saved feeds: %w", err)
	}
	feeds := map[string]podcast.Feed{}
	if err := json.Unmarshal([]byte(raw), &feeds); err != nil {
		return nil, fmt.Errorf("decode saved feeds: %w", err)
	}
	return feeds, nil
}

func (l *Library) save(ctx context.Context, feeds map[string]podcast.Feed) error {
	data, err := json.Marshal(feeds)
	if err != nil {
		return fmt.Errorf("encode saved feeds: %w", err)
	}
	if err := l.store.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save feeds: %w", err)
	}
	return nil
}
