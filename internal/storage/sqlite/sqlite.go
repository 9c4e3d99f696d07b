// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are restoring the last dump
// on Init and dumping periodically and on Close.
package sqlitestorage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellasora-tools/buildcore/internal/database"
	"github.com/stellasora-tools/buildcore/internal/model"
	gormstorage "github.com/stellasora-tools/buildcore/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path          string // dump file; empty keeps everything in memory
	DumpInterval  time.Duration
	FlushInterval time.Duration
	// DBLogger receives dump timings; the zero value discards them.
	DBLogger zerolog.Logger
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        logger,
		FlushInterval: cfg.FlushInterval,
	})

	return &Backend{
		Backend: gormBackend,
		db:      db,
		cfg:     cfg,
		log:     logger.With("component", "sqlite"),
	}, nil
}

// Init migrates the schema, restores the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if err := b.restore(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, flushes the GORM backend and writes a final dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	err := b.Backend.Close()
	if b.cfg.Path != "" {
		err = errors.Join(err, b.Dump())
	}
	return err
}

// Dump writes the in-memory database to the configured path.
func (b *Backend) Dump() error {
	if b.cfg.Path == "" {
		return nil
	}
	if err := b.Backend.Flush(); err != nil {
		return err
	}
	return database.TimedDump(b.db, b.cfg.Path, b.cfg.DBLogger)
}

// restore copies rows from an existing dump file into the in-memory database.
func (b *Backend) restore() error {
	if b.cfg.Path == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.Path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	disk, err := database.OpenSqlite(b.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", b.cfg.Path, err)
	}
	if sqlDB, err := disk.DB(); err == nil {
		defer sqlDB.Close()
	}

	var builds []model.SavedBuild
	var scores []model.ScoreRecord
	if disk.Migrator().HasTable(&model.SavedBuild{}) {
		if err := disk.Unscoped().Find(&builds).Error; err != nil {
			return fmt.Errorf("failed to read builds from dump: %w", err)
		}
	}
	if disk.Migrator().HasTable(&model.ScoreRecord{}) {
		if err := disk.Find(&scores).Error; err != nil {
			return fmt.Errorf("failed to read scores from dump: %w", err)
		}
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		if len(builds) > 0 {
			if err := tx.CreateInBatches(&builds, 200).Error; err != nil {
				return err
			}
		}
		if len(scores) > 0 {
			if err := tx.CreateInBatches(&scores, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restore dump: %w", err)
	}

	b.log.Info("Restored dump", "path", b.cfg.Path, "builds", len(builds), "scores", len(scores))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Dump()
		}
	}
}
