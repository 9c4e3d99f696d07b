package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestBackend(cfg config.MemoryConfig) *Backend {
	b := New(cfg)
	b.now = func() time.Time { return fixedNow }
	return b
}

func sampleBuild(name string, mainID int) core.SavedBuild {
	return core.SavedBuild{
		Name:    name,
		Version: "b",
		Token:   "token-" + name,
		Build: core.Build{
			Main:       core.Character{ID: mainID, Talents: core.CharacterTalents{Core: []core.Talent{{ID: 1, Level: 3}}}},
			Supports:   [2]core.Character{{ID: 112}, {ID: 127}},
			LossRecord: core.LossRecord{Main: []int{1, 2, 3}, Sub: []int{4, 5, 6}},
		},
	}
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NotNil(t, b)
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestSaveAndGetBuild(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})

	sb := sampleBuild("fire", 103)
	require.NoError(t, b.SaveBuild(&sb))
	assert.Equal(t, uint(1), sb.ID)
	assert.Equal(t, fixedNow, sb.CreatedAt)
	assert.Equal(t, fixedNow, sb.UpdatedAt)

	got, err := b.GetBuild(1)
	require.NoError(t, err)
	assert.Equal(t, sb, got)

	second := sampleBuild("water", 104)
	require.NoError(t, b.SaveBuild(&second))
	assert.Equal(t, uint(2), second.ID)
}

func TestSaveBuild_UpdateKeepsCreatedAt(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})

	sb := sampleBuild("fire", 103)
	require.NoError(t, b.SaveBuild(&sb))

	later := fixedNow.Add(time.Hour)
	b.now = func() time.Time { return later }

	sb.Name = "fire v2"
	require.NoError(t, b.SaveBuild(&sb))
	assert.Equal(t, fixedNow, sb.CreatedAt)
	assert.Equal(t, later, sb.UpdatedAt)

	got, err := b.GetBuild(sb.ID)
	require.NoError(t, err)
	assert.Equal(t, "fire v2", got.Name)

	missing := sampleBuild("ghost", 1)
	missing.ID = 99
	assert.ErrorIs(t, b.SaveBuild(&missing), core.ErrBuildNotFound)
}

func TestGetBuild_NotFound(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})
	_, err := b.GetBuild(42)
	assert.ErrorIs(t, err, core.ErrBuildNotFound)
}

func TestListBuilds_OrderedByID(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})
	for _, name := range []string{"a", "b", "c"} {
		sb := sampleBuild(name, 100)
		require.NoError(t, b.SaveBuild(&sb))
	}

	list, err := b.ListBuilds()
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, sb := range list {
		assert.Equal(t, uint(i+1), sb.ID)
	}
}

func TestDeleteBuild_RemovesScores(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})

	keep := sampleBuild("keep", 1)
	drop := sampleBuild("drop", 2)
	require.NoError(t, b.SaveBuild(&keep))
	require.NoError(t, b.SaveBuild(&drop))

	require.NoError(t, b.RecordScore(&core.ScoreRecord{BuildID: keep.ID, TotalScore: 10}))
	require.NoError(t, b.RecordScore(&core.ScoreRecord{BuildID: drop.ID, TotalScore: 20}))

	require.NoError(t, b.DeleteBuild(drop.ID))
	assert.ErrorIs(t, b.DeleteBuild(drop.ID), core.ErrBuildNotFound)

	scores, err := b.ListScores(drop.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	scores, err = b.ListScores(keep.ID)
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestRecordScore(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})

	r := core.ScoreRecord{Token: "adhoc", TotalScore: 56}
	require.NoError(t, b.RecordScore(&r))
	assert.Equal(t, uint(1), r.ID)
	assert.Equal(t, fixedNow, r.ComputedAt)

	explicit := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r2 := core.ScoreRecord{Token: "adhoc", TotalScore: 20, ComputedAt: explicit}
	require.NoError(t, b.RecordScore(&r2))
	assert.Equal(t, explicit, r2.ComputedAt)

	scores, err := b.ListScores(0)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 56.0, scores[0].TotalScore)
	assert.Equal(t, 20.0, scores[1].TotalScore)
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			cfg := config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: compress}

			b := newTestBackend(cfg)
			require.NoError(t, b.Init())
			sb := sampleBuild("fire", 103)
			require.NoError(t, b.SaveBuild(&sb))
			require.NoError(t, b.RecordScore(&core.ScoreRecord{
				BuildID:    sb.ID,
				Token:      sb.Token,
				TotalScore: 25,
				Contributions: []core.EffectContribution{
					{Name: "Blaze", Type: core.EffectDamageIgnis, AverageIncrease: 25, UptimeCoverage: 1},
				},
			}))
			require.NoError(t, b.Close())

			path := b.GetExportedFilePath()
			if compress {
				assert.Equal(t, filepath.Join(cfg.OutputDir, "builds.json.gz"), path)
			} else {
				assert.Equal(t, filepath.Join(cfg.OutputDir, "builds.json"), path)
			}

			reloaded := newTestBackend(cfg)
			require.NoError(t, reloaded.Init())

			got, err := reloaded.GetBuild(sb.ID)
			require.NoError(t, err)
			assert.Equal(t, sb, got)

			scores, err := reloaded.ListScores(sb.ID)
			require.NoError(t, err)
			require.Len(t, scores, 1)
			assert.Equal(t, core.EffectDamageIgnis, scores[0].Contributions[0].Type)

			// counters continue after the import
			next := sampleBuild("water", 104)
			require.NoError(t, reloaded.SaveBuild(&next))
			assert.Equal(t, uint(2), next.ID)
		})
	}
}

func TestExport_GzipIsValid(t *testing.T) {
	cfg := config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: true}
	b := newTestBackend(cfg)
	sb := sampleBuild("fire", 103)
	require.NoError(t, b.SaveBuild(&sb))
	require.NoError(t, b.Close())

	f, err := os.Open(b.GetExportedFilePath())
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export BuildsExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Len(t, export.Builds, 1)
	assert.NotNil(t, export.Scores)
}

func TestImport_RejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BaseFileName), []byte(`{"version":99,"builds":[]}`), 0o644))

	b := New(config.MemoryConfig{OutputDir: dir})
	assert.ErrorContains(t, b.Init(), "unsupported export version 99")
}
