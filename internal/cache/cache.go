package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stellasora-tools/buildcore/pkg/core"
)

type effectEntry struct {
	effects   []core.EffectInfo
	fetchedAt time.Time
}

// EffectCache caches extracted effects per description text so repeated score
// requests do not call the extraction service again. Entries older than ttl are
// stale: still returned, but callers should revalidate them.
type EffectCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]effectEntry

	Hits   SafeCounter
	Misses SafeCounter
}

// NewEffectCache creates a cache with the given revalidation window.
// A non-positive ttl makes every entry stale immediately.
func NewEffectCache(ttl time.Duration) *EffectCache {
	return &EffectCache{
		ttl:     ttl,
		entries: make(map[string]effectEntry),
	}
}

// Get returns the cached effects for key. fresh is false when the entry is older
// than the revalidation window.
func (c *EffectCache) Get(key string, now time.Time) (effects []core.EffectInfo, fresh bool, ok bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.Misses.Inc()
		return nil, false, false
	}
	c.Hits.Inc()
	return cloneEffects(e.effects), now.Sub(e.fetchedAt) < c.ttl, true
}

// Set stores effects for key, fetched at now.
func (c *EffectCache) Set(key string, effects []core.EffectInfo, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = effectEntry{effects: cloneEffects(effects), fetchedAt: now}
}

// Delete removes key.
func (c *EffectCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached keys.
func (c *EffectCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset clears all entries and counters.
func (c *EffectCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]effectEntry)
	c.mu.Unlock()
	c.Hits.Set(0)
	c.Misses.Set(0)
}

// cacheFileVersion is bumped when the file layout changes; other versions are ignored.
const cacheFileVersion = 1

type cacheFile struct {
	Version int              `json:"version"`
	Entries []cacheFileEntry `json:"entries"`
}

type cacheFileEntry struct {
	Key       string            `json:"key"`
	FetchedAt time.Time         `json:"fetchedAt"`
	Effects   []core.EffectInfo `json:"effects"`
}

// SaveFile writes all entries with their fetch times to path, replacing it.
func (c *EffectCache) SaveFile(path string) error {
	c.mu.RLock()
	f := cacheFile{Version: cacheFileVersion, Entries: make([]cacheFileEntry, 0, len(c.entries))}
	for k, e := range c.entries {
		f.Entries = append(f.Entries, cacheFileEntry{Key: k, FetchedAt: e.fetchedAt, Effects: e.effects})
	}
	c.mu.RUnlock()

	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode effect cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create effect cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("failed to write effect cache: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile merges entries saved by SaveFile into the cache and returns how many
// were read. A missing file loads nothing. Entries keep their original fetch
// time, so the revalidation window carries over between runs.
func (c *EffectCache) LoadFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read effect cache: %w", err)
	}

	var f cacheFile
	if err := json.Unmarshal(b, &f); err != nil {
		return 0, fmt.Errorf("failed to decode effect cache %s: %w", path, err)
	}
	if f.Version != cacheFileVersion {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range f.Entries {
		if cur, ok := c.entries[e.Key]; ok && !cur.fetchedAt.Before(e.FetchedAt) {
			continue
		}
		c.entries[e.Key] = effectEntry{effects: e.Effects, fetchedAt: e.FetchedAt}
	}
	return len(f.Entries), nil
}

func cloneEffects(in []core.EffectInfo) []core.EffectInfo {
	if in == nil {
		return nil
	}
	return append([]core.EffectInfo(nil), in...)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
