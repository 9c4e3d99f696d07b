// Package gormstorage implements the storage.Backend interface on top of any GORM
// dialect. Builds are written synchronously; score records go through a queue that
// a background writer drains in batches.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stellasora-tools/buildcore/internal/database"
	"github.com/stellasora-tools/buildcore/internal/model"
	"github.com/stellasora-tools/buildcore/internal/model/convert"
	"github.com/stellasora-tools/buildcore/internal/queue"
	"github.com/stellasora-tools/buildcore/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is not positive.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based score writes.
type Backend struct {
	deps     Dependencies
	scores   *queue.Queue[model.ScoreRecord]
	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	now      func() time.Time
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		scores: queue.New[model.ScoreRecord](),
		now:    time.Now,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the score writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer goroutine and flushes pending score records.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Flush()
}

// SaveBuild inserts a new build or updates an existing one.
func (b *Backend) SaveBuild(sb *core.SavedBuild) error {
	now := b.now().UTC()
	if sb.ID == 0 {
		sb.CreatedAt = now
	} else {
		existing, err := b.GetBuild(sb.ID)
		if err != nil {
			return err
		}
		sb.CreatedAt = existing.CreatedAt
	}
	sb.UpdatedAt = now

	m, err := convert.CoreToSavedBuild(*sb)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Save(&m).Error; err != nil {
		return fmt.Errorf("failed to save build: %w", err)
	}
	sb.ID = m.ID
	sb.CreatedAt = m.CreatedAt
	sb.UpdatedAt = m.UpdatedAt
	return nil
}

// GetBuild loads a build by ID.
func (b *Backend) GetBuild(id uint) (core.SavedBuild, error) {
	var m model.SavedBuild
	err := b.deps.DB.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.SavedBuild{}, fmt.Errorf("%w: %d", core.ErrBuildNotFound, id)
	}
	if err != nil {
		return core.SavedBuild{}, fmt.Errorf("failed to load build %d: %w", id, err)
	}
	return convert.SavedBuildToCore(m)
}

// ListBuilds returns all builds ordered by ID.
func (b *Backend) ListBuilds() ([]core.SavedBuild, error) {
	var rows []model.SavedBuild
	if err := b.deps.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	out := make([]core.SavedBuild, 0, len(rows))
	for _, m := range rows {
		sb, err := convert.SavedBuildToCore(m)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, nil
}

// DeleteBuild soft-deletes a build and removes its score history.
func (b *Backend) DeleteBuild(id uint) error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.SavedBuild{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete build %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %d", core.ErrBuildNotFound, id)
		}
		if err := tx.Where("build_id = ?", id).Delete(&model.ScoreRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete scores of build %d: %w", id, err)
		}
		return nil
	})
}

// RecordScore queues a score record for the writer.
func (b *Backend) RecordScore(r *core.ScoreRecord) error {
	if r.ComputedAt.IsZero() {
		r.ComputedAt = b.now().UTC()
	}
	b.scores.Push(convert.CoreToScoreRecord(*r))
	return nil
}

// ListScores flushes pending records and returns the history of a build.
func (b *Backend) ListScores(buildID uint) ([]core.ScoreRecord, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}
	var rows []model.ScoreRecord
	if err := b.deps.DB.Where("build_id = ?", buildID).Order("computed_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	out := make([]core.ScoreRecord, 0, len(rows))
	for _, m := range rows {
		r, err := convert.ScoreRecordToCore(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Pending returns the number of queued score records.
func (b *Backend) Pending() int {
	return b.scores.Len()
}

// Flush writes all queued score records now.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return writeQueue(b.deps.DB, b.scores, "score records", b.deps.Logger)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Items go back to the front of the queue when the write fails.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	items := q.Drain()
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("error writing queue", "queue", name, "count", len(items), "error", err)
		if dropped := q.Requeue(items...); dropped > 0 {
			log.Warn("dropped queued items", "queue", name, "count", dropped)
		}
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Debug("wrote queue", "queue", name, "count", len(items), "duration", time.Since(start))
	return nil
}

// writer periodically drains the score queue into the DB.
func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
