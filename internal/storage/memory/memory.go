// Package memory keeps saved builds in memory and persists them as one JSON
// document in the output directory.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// Backend stores saved builds in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig

	builds map[uint]core.SavedBuild
	scores []core.ScoreRecord

	idCounter      uint
	scoreCounter   uint
	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		builds: make(map[uint]core.SavedBuild),
		now:    time.Now,
	}
}

// Init loads a previous export from the output directory, if any
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.importJSON()
}

// Close writes the export file
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportJSON()
}

// SaveBuild inserts a new build or replaces the one with the same ID
func (b *Backend) SaveBuild(sb *core.SavedBuild) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	if sb.ID == 0 {
		b.idCounter++
		sb.ID = b.idCounter
		sb.CreatedAt = now
	} else if existing, ok := b.builds[sb.ID]; ok {
		sb.CreatedAt = existing.CreatedAt
	} else {
		return fmt.Errorf("%w: %d", core.ErrBuildNotFound, sb.ID)
	}
	sb.UpdatedAt = now

	b.builds[sb.ID] = *sb
	return nil
}

// GetBuild returns the build with the given ID
func (b *Backend) GetBuild(id uint) (core.SavedBuild, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sb, ok := b.builds[id]
	if !ok {
		return core.SavedBuild{}, fmt.Errorf("%w: %d", core.ErrBuildNotFound, id)
	}
	return sb, nil
}

// ListBuilds returns all builds ordered by ID
func (b *Backend) ListBuilds() ([]core.SavedBuild, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.SavedBuild, 0, len(b.builds))
	for _, sb := range b.builds {
		out = append(out, sb)
	}
	sortBuilds(out)
	return out, nil
}

// DeleteBuild removes a build and its score history
func (b *Backend) DeleteBuild(id uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.builds[id]; !ok {
		return fmt.Errorf("%w: %d", core.ErrBuildNotFound, id)
	}
	delete(b.builds, id)

	kept := b.scores[:0]
	for _, r := range b.scores {
		if r.BuildID != id {
			kept = append(kept, r)
		}
	}
	b.scores = kept
	return nil
}

// RecordScore appends a score record
func (b *Backend) RecordScore(r *core.ScoreRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scoreCounter++
	r.ID = b.scoreCounter
	if r.ComputedAt.IsZero() {
		r.ComputedAt = b.now().UTC()
	}
	b.scores = append(b.scores, *r)
	return nil
}

// ListScores returns the scores of a build, oldest first. buildID 0 lists
// scores of unsaved builds.
func (b *Backend) ListScores(buildID uint) ([]core.ScoreRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []core.ScoreRecord
	for _, r := range b.scores {
		if r.BuildID == buildID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func sortBuilds(builds []core.SavedBuild) {
	sort.Slice(builds, func(i, j int) bool { return builds[i].ID < builds[j].ID })
}
