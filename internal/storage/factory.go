package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/stellasora-tools/buildcore/internal/config"
	gormstorage "github.com/stellasora-tools/buildcore/internal/storage/gorm"
	"github.com/stellasora-tools/buildcore/internal/storage/memory"
	"github.com/stellasora-tools/buildcore/internal/storage/postgres"
	sqlitestorage "github.com/stellasora-tools/buildcore/internal/storage/sqlite"
)

// Compile-time interface checks
var (
	_ Backend    = (*memory.Backend)(nil)
	_ Exportable = (*memory.Backend)(nil)
	_ Backend    = (*gormstorage.Backend)(nil)
	_ Flusher    = (*gormstorage.Backend)(nil)
	_ Backend    = (*sqlitestorage.Backend)(nil)
	_ Backend    = (*postgres.Backend)(nil)
)

// Options carries what the backends need besides StorageConfig.
type Options struct {
	DB       config.DBConfig
	Worker   config.WorkerConfig
	Logger   *slog.Logger
	DBLogger zerolog.Logger
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{
			Config:        opts.DB,
			FallbackPath:  cfg.SQLite.Path,
			Logger:        logger,
			DBLogger:      opts.DBLogger,
			FlushInterval: opts.Worker.FlushInterval,
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:          cfg.SQLite.Path,
			DumpInterval:  cfg.SQLite.DumpInterval,
			FlushInterval: opts.Worker.FlushInterval,
			DBLogger:      opts.DBLogger,
		}, logger)
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
