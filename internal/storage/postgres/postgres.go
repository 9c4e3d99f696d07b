// Package postgres implements the storage.Backend interface on PostgreSQL through
// GORM. When Postgres is unreachable it falls back to a local SQLite file.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/internal/database"
	gormstorage "github.com/stellasora-tools/buildcore/internal/storage/gorm"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	// DB skips connecting when set (tests inject SQLite here).
	DB            *gorm.DB
	Config        config.DBConfig
	FallbackPath  string
	Logger        *slog.Logger
	DBLogger      zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend on the database chosen by database.Manager.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend. Nothing connects until Init.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects, migrates and starts the score writer.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		b.manager = database.NewManager(b.deps.DBLogger, b.deps.FallbackPath)
		if err := b.manager.Connect(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db = b.manager.DB
		if b.manager.ShouldSaveLocal {
			b.deps.Logger.Warn("postgres unavailable, using local SQLite", "path", b.deps.FallbackPath)
		}
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        b.deps.Logger.With("component", "postgres"),
		FlushInterval: b.deps.FlushInterval,
	})
	return b.Backend.Init()
}

// Close flushes pending writes and closes a connection opened by Init.
func (b *Backend) Close() error {
	var err error
	if b.Backend != nil {
		err = b.Backend.Close()
	}
	if b.manager != nil {
		err = errors.Join(err, b.manager.Close())
	}
	return err
}

// IsLocalFallback reports whether Init fell back to SQLite.
func (b *Backend) IsLocalFallback() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}
