// Package monitor reports the state of storage, the score worker and the effect
// cache, on demand or into a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stellasora-tools/buildcore/internal/cache"
	"github.com/stellasora-tools/buildcore/internal/ratelimit"
	"github.com/stellasora-tools/buildcore/internal/storage"
	"github.com/stellasora-tools/buildcore/internal/worker"
)

// StatusFileName is written into Dependencies.OutputDir by Start.
const StatusFileName = "status.json"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Backend     storage.Backend
	StorageType string
	Worker      *worker.Manager
	Cache       *cache.EffectCache
	Limiter     *ratelimit.Limiter
	Logger      *slog.Logger
	OutputDir   string
	Version     string
}

// StorageStatus describes the storage backend.
type StorageStatus struct {
	Type       string `json:"type"`
	Builds     int    `json:"builds"`
	ExportPath string `json:"exportPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WorkerStatus describes the score worker.
type WorkerStatus struct {
	PendingScores       int       `json:"pendingScores"`
	LastFlush           time.Time `json:"lastFlush,omitzero"`
	LastFlushDurationMs int64     `json:"lastFlushDurationMs"`
}

// CacheStatus describes the effect cache and extraction limiter.
type CacheStatus struct {
	Entries        int   `json:"entries"`
	Hits           int   `json:"hits"`
	Misses         int   `json:"misses"`
	BlockedForSecs int64 `json:"blockedForSecs"`
}

// Status is one status report.
type Status struct {
	Time    time.Time     `json:"time"`
	Version string        `json:"version,omitempty"`
	Storage StorageStatus `json:"storage"`
	Worker  *WorkerStatus `json:"worker,omitempty"`
	Cache   *CacheStatus  `json:"cache,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus collects the current status
func (s *Service) GetProgramStatus() Status {
	st := Status{
		Time:    time.Now().UTC(),
		Version: s.deps.Version,
		Storage: StorageStatus{Type: s.deps.StorageType},
	}

	if s.deps.Backend != nil {
		builds, err := s.deps.Backend.ListBuilds()
		if err != nil {
			st.Storage.Error = err.Error()
		} else {
			st.Storage.Builds = len(builds)
		}
		if e, ok := s.deps.Backend.(storage.Exportable); ok {
			st.Storage.ExportPath = e.GetExportedFilePath()
		}
	}

	if s.deps.Worker != nil {
		last, dur := s.deps.Worker.LastFlush()
		st.Worker = &WorkerStatus{
			PendingScores:       s.deps.Worker.Pending(),
			LastFlush:           last,
			LastFlushDurationMs: dur.Milliseconds(),
		}
	}

	if s.deps.Cache != nil {
		st.Cache = &CacheStatus{
			Entries: s.deps.Cache.Len(),
			Hits:    s.deps.Cache.Hits.Value(),
			Misses:  s.deps.Cache.Misses.Value(),
		}
		if s.deps.Limiter != nil {
			st.Cache.BlockedForSecs = int64(s.deps.Limiter.BlockedFor().Seconds())
		}
	}

	return st
}

// Lines renders a status as indented JSON lines, one section per entry.
// Absent worker and cache sections are skipped.
func Lines(st Status) []string {
	sections := []any{st.Storage}
	if st.Worker != nil {
		sections = append(sections, st.Worker)
	}
	if st.Cache != nil {
		sections = append(sections, st.Cache)
	}

	var out []string
	for _, section := range sections {
		b, err := json.MarshalIndent(section, "", "  ")
		if err != nil {
			b = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
		}
		out = append(out, string(b))
	}
	return out
}

// WriteStatusFile writes the current status to OutputDir/status.json.
func (s *Service) WriteStatusFile() error {
	if s.deps.OutputDir == "" {
		return fmt.Errorf("monitor output dir not set")
	}
	if err := os.MkdirAll(s.deps.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create status dir: %w", err)
	}
	b, err := json.MarshalIndent(s.GetProgramStatus(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.deps.OutputDir, StatusFileName), b, 0644)
}

// Start starts the status monitor goroutine
func (s *Service) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid monitor interval %s", interval)
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.WriteStatusFile(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stopChan, s.done
	running := s.isRunning
	s.stopChan = nil
	s.mu.Unlock()

	if running && stop != nil {
		close(stop)
		<-done
	}
}
