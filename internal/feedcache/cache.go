// Package feedcache persists parsed episodes per feed in a single JSON blob
// held by a storage.Store.
//
// Entries expire after a caller-supplied age, each feed keeps at most
// DefaultMaxEpisodes episodes, and the whole blob stays under DefaultMaxBytes
// by evicting the least recently updated feeds. WithLimits overrides both.
// Storage failures are logged and never returned: a broken store degrades to
// an in-memory cache.
package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glabrego/podnotes/internal/logging"
	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/storage"
)

const (
	StorageKey = "podnotes:feed-cache:v1"

	DefaultMaxAge      = 6 * time.Hour
	DefaultMaxEpisodes = 75
	DefaultMaxBytes    = 4 * 1024 * 1024

	// evictionTarget is the share of the byte budget retained after eviction.
	evictionTarget = 0.8
)

type entry struct {
	Episodes  []serializedEpisode `json:"episodes"`
	UpdatedAt int64               `json:"updatedAt"`
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logging.NewComponentLogger(logger, "feedcache") }
}

func WithLimits(maxEpisodes, maxBytes int) Option {
	return func(c *Cache) {
		if maxEpisodes > 0 {
			c.maxEpisodes = maxEpisodes
		}
		if maxBytes > 0 {
			c.maxBytes = maxBytes
		}
	}
}

type Cache struct {
	store       storage.Store
	now         func() time.Time
	logger      *slog.Logger
	maxEpisodes int
	maxBytes    int

	mu      sync.Mutex
	loaded  bool
	entries map[string]entry
}

// New creates a cache over store. A nil store keeps entries in memory only.
func New(store storage.Store, opts ...Option) *Cache {
	c := &Cache{
		store:       store,
		now:         time.Now,
		logger:      logging.NewComponentLogger(nil, "feedcache"),
		maxEpisodes: DefaultMaxEpisodes,
		maxBytes:    DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCachedEpisodes returns the cached episodes of f, or false on a miss or
// when the entry is older than maxAge. Expired entries are deleted.
func (c *Cache) GetCachedEpisodes(ctx context.Context, f podcast.Feed, maxAge time.Duration) ([]podcast.Episode, bool) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	key := f.Key()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	age := c.now().Sub(time.UnixMilli(e.UpdatedAt))
	if age > maxAge {
		delete(c.entries, key)
		c.persist(ctx)
		c.logger.Debug("feed cache entry expired",
			logging.String(logging.FieldFeed, key),
			logging.Duration("age", age))
		return nil, false
	}

	episodes := make([]podcast.Episode, 0, len(e.Episodes))
	for _, se := range e.Episodes {
		episodes = append(episodes, se.episode())
	}
	return episodes, true
}

// SetCachedEpisodes stores the leading episodes of f, up to the episode
// limit. An empty slice is ignored. Episode dates are kept as UTC instants
// truncated to the millisecond, so cached copies drop any zone and finer
// precision.
func (c *Cache) SetCachedEpisodes(ctx context.Context, f podcast.Feed, episodes []podcast.Episode) {
	if len(episodes) == 0 {
		return
	}
	if len(episodes) > c.maxEpisodes {
		episodes = episodes[:c.maxEpisodes]
	}
	serialized := make([]serializedEpisode, 0, len(episodes))
	for _, ep := range episodes {
		serialized = append(serialized, serialize(ep))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	c.entries[f.Key()] = entry{Episodes: serialized, UpdatedAt: c.now().UnixMilli()}
	c.persist(ctx)
}

// ClearFeedCache drops every entry.
func (c *Cache) ClearFeedCache(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.loaded = true
	if c.store == nil {
		return
	}
	if err := c.store.Remove(ctx, StorageKey); err != nil {
		c.logger.Warn("failed to clear feed cache", logging.Event("feedcache_clear_failed"), logging.Error(err))
	}
}

type Stats struct {
	Feeds    int
	Episodes int
	Bytes    int
}

func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	st := Stats{Feeds: len(c.entries)}
	for _, e := range c.entries {
		st.Episodes += len(e.Episodes)
	}
	if data, err := json.Marshal(c.entries); err == nil {
		st.Bytes = len(data)
	}
	return st
}

func (c *Cache) ensureLoaded(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true
	c.entries = make(map[string]entry)
	if c.store == nil {
		return
	}

	raw, err := c.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		c.logger.Warn("feed cache store unavailable, using memory only",
			logging.Event("feedcache_load_failed"),
			logging.Error(err))
		c.store = nil
		return
	}
	var entries map[string]entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		c.logger.Warn("feed cache blob is corrupt, resetting",
			logging.Event("feedcache_corrupt"),
			logging.Error(err))
		c.persist(ctx)
		return
	}
	c.entries = entries
}

// persist writes the whole mapping, evicting old feeds when it exceeds the
// byte budget. Callers hold c.mu.
func (c *Cache) persist(ctx context.Context) {
	data, err := json.Marshal(c.entries)
	if err != nil {
		c.logger.Warn("failed to encode feed cache", logging.Event("feedcache_encode_failed"), logging.Error(err))
		return
	}
	if len(data) > c.maxBytes {
		dropped := c.evict()
		c.logger.Info("evicted feed cache entries",
			logging.Int("dropped", dropped),
			logging.Int("kept", len(c.entries)),
			logging.Int("bytes_before", len(data)))
		if data, err = json.Marshal(c.entries); err != nil {
			return
		}
	}
	if c.store == nil {
		return
	}

	err = c.store.Set(ctx, StorageKey, string(data))
	if err == nil {
		return
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		c.logger.Warn("failed to persist feed cache", logging.Event("feedcache_persist_failed"), logging.Error(err))
		return
	}

	c.logger.Warn("feed cache quota exceeded, clearing and retrying", logging.Event("feedcache_quota"))
	_ = c.store.Remove(ctx, StorageKey)
	if err := c.store.Set(ctx, StorageKey, string(data)); err != nil {
		c.logger.Warn("feed cache retry failed, dropping persisted cache",
			logging.Event("feedcache_quota_retry_failed"),
			logging.Error(err))
		_ = c.store.Remove(ctx, StorageKey)
	}
}

// evict keeps the most recently updated entries whose cumulative size stays
// under evictionTarget of the budget. It returns the number dropped.
func (c *Cache) evict() int {
	type sized struct {
		key  string
		e    entry
		size int
	}
	items := make([]sized, 0, len(c.entries))
	for k, e := range c.entries {
		data, err := json.Marshal(map[string]entry{k: e})
		if err != nil {
			continue
		}
		items = append(items, sized{key: k, e: e, size: len(data)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].e.UpdatedAt != items[j].e.UpdatedAt {
			return items[i].e.UpdatedAt < items[j].e.UpdatedAt
		}
		return items[i].key < items[j].key
	})

	budget := int(float64(c.maxBytes) * evictionTarget)
	kept := make(map[string]entry, len(items))
	total := 0
	for i := len(items) - 1; i >= 0; i-- {
		if total+items[i].size > budget {
			break
		}
		total += items[i].size
		kept[items[i].key] = items[i].e
	}
	dropped := len(c.entries) - len(kept)
	c.entries = kept
	return dropped
}
