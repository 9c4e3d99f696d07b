// Package storage defines the saved-build persistence interface.
package storage

import "github.com/stellasora-tools/buildcore/pkg/core"

// ErrNotFound is returned when a build id does not exist.
var ErrNotFound = core.ErrBuildNotFound

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Saved builds (SaveBuild assigns ID and timestamps to the passed pointer)
	SaveBuild(b *core.SavedBuild) error
	GetBuild(id uint) (core.SavedBuild, error)
	ListBuilds() ([]core.SavedBuild, error)
	DeleteBuild(id uint) error

	// Score history
	RecordScore(r *core.ScoreRecord) error
	ListScores(buildID uint) ([]core.ScoreRecord, error)
}

// Exportable is an optional interface for backends that write a file on Close.
type Exportable interface {
	GetExportedFilePath() string
}

// Flusher is an optional interface for backends that buffer writes.
type Flusher interface {
	Flush() error
}
