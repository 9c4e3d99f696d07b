package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellasora-tools/buildcore/pkg/core"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func sampleEffects() []core.EffectInfo {
	return []core.EffectInfo{
		{Name: "Focus", Type: core.EffectAtkIncrease, Value: 20, Unit: core.UnitPercent, Uptime: 10, Cooldown: 20, MaxStacks: 1},
	}
}

func TestEffectCache_Miss(t *testing.T) {
	c := NewEffectCache(time.Hour)

	got, fresh, ok := c.Get("unknown", t0)
	assert.False(t, ok)
	assert.False(t, fresh)
	assert.Nil(t, got)
	assert.Equal(t, 1, c.Misses.Value())
	assert.Equal(t, 0, c.Hits.Value())
}

func TestEffectCache_FreshThenStale(t *testing.T) {
	c := NewEffectCache(time.Hour)
	c.Set("atk up 20%", sampleEffects(), t0)

	got, fresh, ok := c.Get("atk up 20%", t0.Add(59*time.Minute))
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, sampleEffects(), got)

	_, fresh, ok = c.Get("atk up 20%", t0.Add(time.Hour))
	require.True(t, ok)
	assert.False(t, fresh, "entry at the window boundary is stale")
	assert.Equal(t, 2, c.Hits.Value())
}

func TestEffectCache_ReturnsCopies(t *testing.T) {
	c := NewEffectCache(time.Hour)
	in := sampleEffects()
	c.Set("k", in, t0)
	in[0].Value = 999

	got, _, _ := c.Get("k", t0)
	got[0].Name = "mutated"

	again, _, _ := c.Get("k", t0)
	assert.Equal(t, 20.0, again[0].Value)
	assert.Equal(t, "Focus", again[0].Name)
}

func TestEffectCache_ZeroTTLAlwaysStale(t *testing.T) {
	c := NewEffectCache(0)
	c.Set("k", sampleEffects(), t0)
	_, fresh, ok := c.Get("k", t0)
	assert.True(t, ok)
	assert.False(t, fresh)
}

func TestEffectCache_DeleteAndReset(t *testing.T) {
	c := NewEffectCache(time.Hour)
	c.Set("a", sampleEffects(), t0)
	c.Set("b", nil, t0)
	assert.Equal(t, 2, c.Len())

	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Get("b", t0)
	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Hits.Value())
}

func TestEffectCache_Concurrent(t *testing.T) {
	c := NewEffectCache(time.Hour)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("k%d", i), sampleEffects(), t0)
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Get(fmt.Sprintf("k%d", i), t0)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, c.Len())
	assert.Equal(t, 100, c.Hits.Value()+c.Misses.Value())
}

func TestEffectCache_SaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "effect_cache.json")

	first := NewEffectCache(time.Hour)
	first.Set("old", sampleEffects(), t0)
	first.Set("new", sampleEffects(), t0.Add(50*time.Minute))
	require.NoError(t, first.SaveFile(path))

	second := NewEffectCache(time.Hour)
	n, err := second.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	now := t0.Add(70 * time.Minute)
	got, fresh, ok := second.Get("old", now)
	require.True(t, ok)
	assert.False(t, fresh, "fetch time survives the reload")
	assert.Equal(t, sampleEffects(), got)

	_, fresh, ok = second.Get("new", now)
	require.True(t, ok)
	assert.True(t, fresh)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEffectCache_LoadFileKeepsNewerEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effect_cache.json")
	saved := NewEffectCache(time.Hour)
	saved.Set("k", sampleEffects(), t0)
	require.NoError(t, saved.SaveFile(path))

	c := NewEffectCache(time.Hour)
	c.Set("k", nil, t0.Add(2*time.Hour))
	_, err := c.LoadFile(path)
	require.NoError(t, err)

	got, fresh, ok := c.Get("k", t0.Add(2*time.Hour))
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Nil(t, got)
}

func TestEffectCache_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	c := NewEffectCache(time.Hour)

	n, err := c.LoadFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Zero(t, n)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = c.LoadFile(bad)
	assert.Error(t, err)

	other := filepath.Join(dir, "v9.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"version": 9, "entries": [{"key": "k"}]}`), 0644))
	n, err = c.LoadFile(other)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.Len())
}

func TestNameIndex(t *testing.T) {
	idx := NewNameIndex()

	_, ok := idx.Get("speed run")
	assert.False(t, ok)

	idx.Set("speed run", 3)
	idx.Set("alias", 3)
	idx.Set("tank", 4)

	id, ok := idx.Get("speed run")
	require.True(t, ok)
	assert.Equal(t, uint(3), id)

	idx.DeleteID(3)
	_, ok = idx.Get("alias")
	assert.False(t, ok)
	_, ok = idx.Get("tank")
	assert.True(t, ok)

	idx.Delete("tank")
	_, ok = idx.Get("tank")
	assert.False(t, ok)

	idx.Set("x", 1)
	idx.Reset()
	_, ok = idx.Get("x")
	assert.False(t, ok)
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_SetAndInc(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, 42, c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, 44, c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(1000), c.Value())
}
