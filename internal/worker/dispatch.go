package worker

import (
	"context"
	"fmt"

	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// Command names registered by RegisterHandlers.
const (
	CommandRecordScore = "record-score"
	CommandFlush       = "flush"
)

// RegisterHandlers registers the worker's commands with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Score records arrive from every score command - buffered
	d.Register(CommandRecordScore, m.handleRecordScore, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CommandFlush, m.handleFlush, dispatcher.Logged(), dispatcher.Usage("flush  write pending score records now"))
}

func (m *Manager) handleRecordScore(_ context.Context, c dispatcher.Command) (any, error) {
	r, ok := c.Payload.(core.ScoreRecord)
	if !ok {
		return nil, fmt.Errorf("record-score: unexpected payload %T", c.Payload)
	}
	m.Record(r)
	return nil, nil
}

func (m *Manager) handleFlush(ctx context.Context, _ dispatcher.Command) (any, error) {
	if err := m.Flush(ctx); err != nil {
		return nil, err
	}
	return "flushed", nil
}
