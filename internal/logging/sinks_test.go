package logging

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGELFSink_SendsRecord(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	sink, err := NewGELFSink(conn.LocalAddr().String(), "stellasora", "info")
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	slog.New(sink.Handler()).Info("build saved", "name", "speed run")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 8192)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(inflate(t, buf[:n]), &msg))
	assert.Contains(t, msg["short_message"], "build saved")
	assert.Contains(t, msg["short_message"], `"name":"speed run"`)
}

// inflate undoes the writer's packet compression (gzip by default, zlib optional).
func inflate(t *testing.T, p []byte) []byte {
	t.Helper()
	var r io.Reader
	var err error
	switch {
	case len(p) > 1 && p[0] == 0x1f && p[1] == 0x8b:
		r, err = gzip.NewReader(bytes.NewReader(p))
	case len(p) > 0 && p[0] == 0x78:
		r, err = zlib.NewReader(bytes.NewReader(p))
	default:
		return p
	}
	require.NoError(t, err)
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	return raw
}

func TestNewGELFSink_BadAddress(t *testing.T) {
	_, err := NewGELFSink("not an address", "stellasora", "info")
	assert.Error(t, err)
}

func TestNewZerolog_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "warn", "database")

	logger.Info().Msg("hidden")
	logger.Warn().Str("path", "builds.db").Msg("dump skipped")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "dump skipped")
	assert.Contains(t, out, "component=database")
	assert.Contains(t, out, "path=builds.db")
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, "debug", zerologLevel("DEBUG").String())
	assert.Equal(t, "info", zerologLevel("").String())
	assert.Equal(t, "info", zerologLevel("loud").String())
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Error().Msg("dropped") })
}
