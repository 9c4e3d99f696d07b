package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// MultiHandler fans a record out to every sink enabled for its level. Sinks keep
// their own levels, so the session file can log DEBUG while GELF only sees WARN.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler skips nil handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			sinks = append(sinks, h)
		}
	}
	return &MultiHandler{sinks: sinks}
}

// Len returns the number of sinks.
func (m *MultiHandler) Len() int {
	return len(m.sinks)
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes r to each enabled sink. The record is cloned only when more than
// one sink takes it. A failing sink does not stop the others.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	targets := make([]int, 0, len(m.sinks))
	for i, h := range m.sinks {
		if h.Enabled(ctx, r.Level) {
			targets = append(targets, i)
		}
	}

	var errs []error
	for n, i := range targets {
		rec := r
		if n < len(targets)-1 {
			rec = r.Clone()
		}
		if err := m.sinks[i].Handle(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("log sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = fn(h)
	}
	return &MultiHandler{sinks: sinks}
}
