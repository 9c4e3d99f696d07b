package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellasora-tools/buildcore/internal/buildtoken"
	"github.com/stellasora-tools/buildcore/internal/cache"
	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/internal/extract"
	"github.com/stellasora-tools/buildcore/internal/handlers"
	"github.com/stellasora-tools/buildcore/internal/influx"
	"github.com/stellasora-tools/buildcore/internal/logging"
	"github.com/stellasora-tools/buildcore/internal/monitor"
	intOtel "github.com/stellasora-tools/buildcore/internal/otel"
	"github.com/stellasora-tools/buildcore/internal/ratelimit"
	"github.com/stellasora-tools/buildcore/internal/score"
	"github.com/stellasora-tools/buildcore/internal/storage"
	"github.com/stellasora-tools/buildcore/internal/uptime"
	"github.com/stellasora-tools/buildcore/internal/worker"
)

// app holds the services of one CLI invocation.
type app struct {
	sessionStart time.Time
	storageType  string

	logFile     *os.File
	logOut      io.Writer
	slogManager *logging.SlogManager
	logger      *slog.Logger
	dbLogger    zerolog.Logger
	otel        *intOtel.Provider
	gelf        *logging.GELFSink

	backend    storage.Backend
	influx     *influx.Manager
	worker     *worker.Manager
	dispatcher *dispatcher.Dispatcher
	handlers   *handlers.Service
	monitor    *monitor.Service

	effectCache     *cache.EffectCache
	effectCachePath string
}

// setupLogging opens the session log file and builds the slog and zerolog loggers.
// Console output is reserved for command results, so logs fall back to stderr
// when the file cannot be opened.
func (a *app) setupLogging(stderr io.Writer) {
	a.slogManager = logging.NewSlogManager()
	a.slogManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("storage", a.storageType)}
	})

	level := config.GetString("logLevel")
	var logOut io.Writer = stderr
	f, _, logErr := logging.OpenLogFile(config.GetString("logsDir"), ExtensionName, a.sessionStart)
	if logErr == nil {
		a.logFile = f
		logOut = f
	}
	a.logOut = logOut

	otelCfg := config.GetOTelConfig()
	var err error
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logOut,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		fmt.Fprintf(stderr, "OTel disabled: %v\n", err)
		a.otel, _ = intOtel.New(intOtel.Config{})
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		sink, err := logging.NewGELFSink(gl.Address, ExtensionName, level)
		if err != nil {
			fmt.Fprintf(stderr, "GELF disabled: %v\n", err)
		} else {
			a.gelf = sink
			extra = append(extra, sink.Handler())
		}
	}

	a.slogManager.Setup(logOut, level, a.otel.LoggerProvider(), extra...)
	a.logger = a.slogManager.Logger()
	a.dbLogger = logging.NewZerolog(logOut, level, "database")
	if a.logFile == nil {
		a.logger.Warn("Failed to open log file, logging to stderr", "error", logErr)
	}
}

// setupServices builds storage, scoring, metrics and the dispatcher.
func (a *app) setupServices(ctx context.Context) error {
	storageCfg := config.GetStorageConfig()
	workerCfg := config.GetWorkerConfig()
	a.storageType = storageCfg.Type

	backend, err := storage.NewBackend(storageCfg, storage.Options{
		DB:       config.GetDBConfig(),
		Worker:   workerCfg,
		Logger:   a.logger,
		DBLogger: a.dbLogger,
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	a.backend = backend
	a.logger.Debug("Storage backend initialized", "type", storageCfg.Type)

	scoreCfg := config.GetScoreConfig()
	mode, err := score.ParseMode(scoreCfg.Mode)
	if err != nil {
		return err
	}
	sim := uptime.DefaultSimulatorConfig()
	sim.Window = scoreCfg.Window
	sim.SkillCooldown = scoreCfg.SkillCooldown
	sim.UltimateAt = scoreCfg.UltimateAt
	scorer, err := score.New(a.logger, score.Options{
		Mode:            mode,
		Window:          scoreCfg.Window,
		DefaultCritRate: score.CritRate(scoreCfg.DefaultCritRate),
		Simulator:       sim,
	})
	if err != nil {
		return err
	}

	var sinks []worker.ScoreSink
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := filepath.Join(config.GetString("logsDir"), "influx_backup.lp.gz")
		a.influx = influx.NewManager(logging.NewZerolog(a.logOut, config.GetString("logLevel"), "influx"), influxCfg, backupPath)
		if err := a.influx.Connect(ctx); err != nil {
			a.logger.Warn("InfluxDB unavailable", "error", err)
			a.influx = nil
		} else {
			sinks = append(sinks, a.influx)
		}
	}

	a.worker = worker.NewManager(worker.Dependencies{
		Scorer:        scorer,
		Backend:       backend,
		Sinks:         sinks,
		Logger:        a.logger,
		FlushInterval: workerCfg.FlushInterval,
		Concurrency:   workerCfg.Concurrency,
		MaxPending:    workerCfg.MaxPending,
	})
	a.worker.Start(ctx)

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.logger))
	if err != nil {
		return err
	}
	a.worker.RegisterHandlers(a.dispatcher)

	var source extract.Source
	var limiter *ratelimit.Limiter
	a.effectCache = cache.NewEffectCache(0)
	if ex := config.GetExtractConfig(); ex.ServerURL != "" && ex.APIKey != "" {
		a.effectCache = cache.NewEffectCache(ex.CacheTTL)
		a.effectCachePath = resolveUnder(config.GetString("logsDir"), ex.CacheFile)
		if a.effectCachePath != "" {
			n, err := a.effectCache.LoadFile(a.effectCachePath)
			if err != nil {
				a.logger.Warn("Failed to load effect cache, starting empty", "path", a.effectCachePath, "error", err)
			} else {
				a.logger.Debug("Loaded effect cache", "path", a.effectCachePath, "entries", n)
			}
		}
		limiter = ratelimit.New(ex.MinInterval)
		source = extract.NewCachedSource(extract.New(ex.ServerURL, ex.APIKey), a.effectCache, limiter, a.logger)
	}

	defaultScheme, err := buildtoken.ParseVersion(config.GetString("defaultScheme"))
	if err != nil {
		return err
	}

	a.monitor = monitor.NewService(monitor.Dependencies{
		Backend:     backend,
		StorageType: storageCfg.Type,
		Worker:      a.worker,
		Cache:       a.effectCache,
		Limiter:     limiter,
		Logger:      a.logger,
		OutputDir:   config.GetString("logsDir"),
		Version:     CurrentVersion,
	})
	if interval := config.GetMonitorConfig().StatusInterval; interval > 0 {
		if err := a.monitor.Start(interval); err != nil {
			return err
		}
	}

	a.handlers = handlers.NewService(handlers.Dependencies{
		Backend:       backend,
		Scorer:        scorer,
		Worker:        a.worker,
		Source:        source,
		Monitor:       a.monitor,
		Names:         cache.NewNameIndex(),
		Logger:        a.logger,
		DefaultScheme: defaultScheme,
		Damage:        config.GetDamageConfig(),
		ExportDir:     storageCfg.Memory.OutputDir,
	})
	if err := a.handlers.LoadNames(); err != nil {
		return err
	}
	a.handlers.Register(a.dispatcher)
	return nil
}

// close drains queued commands, flushes scores and releases every resource.
func (a *app) close(ctx context.Context) {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.worker != nil {
		if err := a.worker.Stop(ctx); err != nil {
			a.logger.Error("Failed to flush score records", "error", err)
		}
	}
	if a.monitor != nil && a.monitor.IsRunning() {
		a.monitor.Stop()
		if err := a.monitor.WriteStatusFile(); err != nil {
			a.logger.Error("Failed to write status file", "error", err)
		}
	}
	if a.effectCachePath != "" {
		if err := a.effectCache.SaveFile(a.effectCachePath); err != nil {
			a.logger.Error("Failed to save effect cache", "path", a.effectCachePath, "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB manager", "error", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shut down OTel", "error", err)
		}
	}
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// resolveUnder joins a relative path onto dir; absolute and empty paths are kept.
func resolveUnder(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
