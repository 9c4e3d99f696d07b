// Package worker persists score records in the background and scores batches of
// builds concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stellasora-tools/buildcore/internal/queue"
	"github.com/stellasora-tools/buildcore/internal/score"
	"github.com/stellasora-tools/buildcore/internal/storage"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is not positive.
const DefaultFlushInterval = 5 * time.Second

// ScoreSink receives every persisted score record, e.g. the InfluxDB writer.
type ScoreSink interface {
	WriteScore(ctx context.Context, r core.ScoreRecord) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Scorer        *score.Scorer
	Backend       storage.Backend
	Sinks         []ScoreSink
	Logger        *slog.Logger
	FlushInterval time.Duration
	// Concurrency bounds EvaluateBatch; 0 means unbounded.
	Concurrency int
	// MaxPending caps queued records, dropping the oldest; 0 means unbounded.
	MaxPending int
}

// Manager manages the score flush goroutine
type Manager struct {
	deps    Dependencies
	pending *queue.Queue[core.ScoreRecord]

	flushMu  sync.Mutex
	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}

	lastFlush         time.Time
	lastFlushDuration time.Duration
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Manager{
		deps:    deps,
		pending: queue.NewBounded[core.ScoreRecord](deps.MaxPending),
	}
}

// Record queues a score record for the next flush.
func (m *Manager) Record(r core.ScoreRecord) {
	if r.ComputedAt.IsZero() {
		r.ComputedAt = time.Now().UTC()
	}
	if dropped := m.pending.Push(r); dropped > 0 {
		m.deps.Logger.Warn("score queue full, dropped oldest records", "count", dropped)
	}
}

// Pending returns the number of queued records.
func (m *Manager) Pending() int {
	return m.pending.Len()
}

// LastFlush returns when the last flush finished and how long it took.
func (m *Manager) LastFlush() (time.Time, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFlush, m.lastFlushDuration
}

// Flush writes queued records to the backend and the sinks. Records the backend
// rejects are queued again; sink failures are logged and do not requeue.
func (m *Manager) Flush(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	items := m.pending.Drain()
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	var errs []error
	for i := range items {
		r := items[i]
		if m.deps.Backend != nil {
			if err := m.deps.Backend.RecordScore(&r); err != nil {
				m.pending.Requeue(items[i:]...)
				errs = append(errs, fmt.Errorf("failed to record score: %w", err))
				break
			}
		}
		for _, sink := range m.deps.Sinks {
			if err := sink.WriteScore(ctx, r); err != nil {
				m.deps.Logger.WarnContext(ctx, "score sink failed", "token", r.Token, "error", err)
			}
		}
	}

	if f, ok := m.deps.Backend.(storage.Flusher); ok {
		if err := f.Flush(); err != nil {
			errs = append(errs, err)
		}
	}

	elapsed := time.Since(start)
	m.mu.Lock()
	m.lastFlush = time.Now()
	m.lastFlushDuration = elapsed
	m.mu.Unlock()

	m.deps.Logger.DebugContext(ctx, "flushed score records", "count", len(items), "duration", elapsed)
	return errors.Join(errs...)
}

// Start runs the flush loop until Stop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stopChan != nil {
		m.mu.Unlock()
		return
	}
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stopChan, m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Flush(ctx); err != nil {
					m.deps.Logger.ErrorContext(ctx, "score flush failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the flush loop and flushes what is left.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	stop, done := m.stopChan, m.done
	m.stopChan, m.done = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return m.Flush(ctx)
}

// Job is one build to score in a batch.
type Job struct {
	BuildID uint
	Token   string
	Effects []core.EffectInfo
}

// Result pairs a job with its score.
type Result struct {
	Job   Job
	Score core.BuildScore
}

// EvaluateBatch scores jobs concurrently, records every result and returns them in
// job order.
func (m *Manager) EvaluateBatch(ctx context.Context, jobs []Job) ([]Result, error) {
	if m.deps.Scorer == nil {
		return nil, errors.New("worker has no scorer")
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if m.deps.Concurrency > 0 {
		g.SetLimit(m.deps.Concurrency)
	}

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Result{Job: job, Score: m.deps.Scorer.Evaluate(gctx, job.Effects)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		m.Record(core.ScoreRecord{
			BuildID:       r.Job.BuildID,
			Token:         r.Job.Token,
			TotalScore:    r.Score.TotalScore,
			Contributions: r.Score.EffectContributions,
		})
	}
	return results, nil
}
