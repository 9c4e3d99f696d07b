package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFSink sends log records to a Graylog GELF UDP input.
type GELFSink struct {
	writer  *gelf.Writer
	handler slog.Handler
}

// NewGELFSink dials address and returns a sink whose Handler emits one JSON
// record per GELF message.
func NewGELFSink(address, facility, level string) (*GELFSink, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("creating gelf writer for %s: %w", address, err)
	}
	w.Facility = facility
	return &GELFSink{
		writer:  w,
		handler: slog.NewJSONHandler(w, HandlerOptions(level)),
	}, nil
}

// Handler returns the slog handler to pass to SlogManager.Setup.
func (s *GELFSink) Handler() slog.Handler {
	return s.handler
}

// Close closes the UDP connection.
func (s *GELFSink) Close() error {
	return s.writer.Close()
}
