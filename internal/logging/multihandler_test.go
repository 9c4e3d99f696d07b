package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("udp closed") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h failingHandler) WithGroup(string) slog.Handler { return h }

func textAt(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestMultiHandler_PerSinkLevels(t *testing.T) {
	var file, gelf bytes.Buffer
	logger := slog.New(NewMultiHandler(textAt(&file, slog.LevelDebug), textAt(&gelf, slog.LevelWarn)))

	logger.Debug("decoded token")
	logger.Warn("effect value out of range")

	assert.Contains(t, file.String(), "decoded token")
	assert.Contains(t, file.String(), "effect value out of range")
	assert.NotContains(t, gelf.String(), "decoded token")
	assert.Contains(t, gelf.String(), "effect value out of range")
}

func TestMultiHandler_Enabled(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		sinks []slog.Handler
		level slog.Level
		want  bool
	}{
		{"empty", nil, slog.LevelError, false},
		{"info sink rejects debug", []slog.Handler{textAt(&bytes.Buffer{}, slog.LevelInfo)}, slog.LevelDebug, false},
		{"info sink takes info", []slog.Handler{textAt(&bytes.Buffer{}, slog.LevelInfo)}, slog.LevelInfo, true},
		{"any sink enables", []slog.Handler{textAt(&bytes.Buffer{}, slog.LevelError), textAt(&bytes.Buffer{}, slog.LevelDebug)}, slog.LevelDebug, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMultiHandler(tt.sinks...).Enabled(ctx, tt.level))
		})
	}
}

func TestMultiHandler_SkipsNil(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(nil, textAt(&buf, slog.LevelInfo), nil)
	require.Equal(t, 1, multi.Len())

	slog.New(multi).Info("saved build", "name", "crit-ignis")
	assert.Contains(t, buf.String(), "name=crit-ignis")
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiHandler(textAt(&a, slog.LevelInfo), textAt(&b, slog.LevelInfo))

	logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "score")}).WithGroup("build"))
	logger.Info("scored", "id", 7)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "component=score")
		assert.Contains(t, out, "build.id=7")
	}
	assert.Same(t, multi, multi.WithGroup(""))
}

func TestMultiHandler_FailingSinkDoesNotBlockOthers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(failingHandler{}, textAt(&buf, slog.LevelInfo))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "export done", 0)
	err := multi.Handle(context.Background(), r)

	assert.EqualError(t, err, "log sink 0: udp closed")
	assert.Contains(t, buf.String(), "export done")
}
