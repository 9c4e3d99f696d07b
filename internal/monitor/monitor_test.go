package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stellasora-tools/buildcore/internal/cache"
	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/internal/ratelimit"
	"github.com/stellasora-tools/buildcore/internal/storage/memory"
	"github.com/stellasora-tools/buildcore/internal/worker"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, outputDir string) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := memory.New(config.MemoryConfig{})
	sb := core.SavedBuild{Name: "fire", Token: "tok"}
	require.NoError(t, backend.SaveBuild(&sb))

	w := worker.NewManager(worker.Dependencies{Backend: backend, Logger: logger})
	w.Record(core.ScoreRecord{Token: "tok"})

	c := cache.NewEffectCache(time.Minute)
	c.Set("k", nil, time.Now())
	c.Get("k", time.Now())
	c.Get("missing", time.Now())

	lim := ratelimit.New(time.Second)
	lim.Backoff(time.Minute)

	return NewService(Dependencies{
		Backend:     backend,
		StorageType: "memory",
		Worker:      w,
		Cache:       c,
		Limiter:     lim,
		Logger:      logger,
		OutputDir:   outputDir,
		Version:     "test",
	})
}

func TestGetProgramStatus(t *testing.T) {
	s := newTestService(t, "")
	st := s.GetProgramStatus()

	assert.Equal(t, "memory", st.Storage.Type)
	assert.Equal(t, 1, st.Storage.Builds)
	require.NotNil(t, st.Worker)
	assert.Equal(t, 1, st.Worker.PendingScores)
	require.NotNil(t, st.Cache)
	assert.Equal(t, 1, st.Cache.Entries)
	assert.Equal(t, 1, st.Cache.Hits)
	assert.Equal(t, 1, st.Cache.Misses)
	assert.Greater(t, st.Cache.BlockedForSecs, int64(50))
}

func TestGetProgramStatus_Empty(t *testing.T) {
	st := NewService(Dependencies{StorageType: "none"}).GetProgramStatus()
	assert.Nil(t, st.Worker)
	assert.Nil(t, st.Cache)
	lines := Lines(st)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"type": "none"`)
	for _, line := range lines {
		assert.NotEqual(t, "null", line)
	}
}

func TestLines_PartialSections(t *testing.T) {
	w := worker.NewManager(worker.Dependencies{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	st := NewService(Dependencies{StorageType: "none", Worker: w}).GetProgramStatus()
	require.NotNil(t, st.Worker)
	require.Nil(t, st.Cache)

	lines := Lines(st)
	require.Len(t, lines, 2)
	var ws WorkerStatus
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ws))
	assert.Equal(t, 0, ws.PendingScores)
}

func TestLines(t *testing.T) {
	lines := Lines(newTestService(t, "").GetProgramStatus())
	require.Len(t, lines, 3)

	var storage StorageStatus
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &storage))
	assert.Equal(t, 1, storage.Builds)
}

func TestWriteStatusFile(t *testing.T) {
	dir := t.TempDir()
	s := newTestService(t, dir)
	require.NoError(t, s.WriteStatusFile())

	b, err := os.ReadFile(filepath.Join(dir, StatusFileName))
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(b, &st))
	assert.Equal(t, "test", st.Version)

	assert.Error(t, newTestService(t, "").WriteStatusFile())
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	s := newTestService(t, dir)

	assert.Error(t, s.Start(0))
	require.NoError(t, s.Start(10*time.Millisecond))
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, StatusFileName))
		return err == nil
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}
