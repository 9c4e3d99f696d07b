package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stellasora-tools/buildcore/pkg/core"
)

// ExportVersion is written to every export file.
const ExportVersion = 1

// BaseFileName is the export file name without the compression suffix.
const BaseFileName = "builds.json"

// BuildsExport is the root JSON structure
type BuildsExport struct {
	Version     int                `json:"version"`
	NextBuildID uint               `json:"nextBuildId"`
	NextScoreID uint               `json:"nextScoreId"`
	Builds      []core.SavedBuild  `json:"builds"`
	Scores      []core.ScoreRecord `json:"scores"`
}

func (b *Backend) exportPath() string {
	name := BaseFileName
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name)
}

// exportJSON writes all builds to the export file. Caller holds the lock.
func (b *Backend) exportJSON() error {
	export := BuildsExport{
		Version:     ExportVersion,
		NextBuildID: b.idCounter,
		NextScoreID: b.scoreCounter,
		Builds:      make([]core.SavedBuild, 0, len(b.builds)),
		Scores:      b.scores,
	}
	for _, sb := range b.builds {
		export.Builds = append(export.Builds, sb)
	}
	sortBuilds(export.Builds)
	if export.Scores == nil {
		export.Scores = []core.ScoreRecord{}
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := b.exportPath()
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

// importJSON loads the export file if present. Caller holds the lock.
func (b *Backend) importJSON() error {
	path := b.exportPath()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if b.cfg.CompressOutput {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip export: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export BuildsExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return fmt.Errorf("failed to decode export %s: %w", path, err)
	}
	if export.Version != ExportVersion {
		return fmt.Errorf("unsupported export version %d in %s", export.Version, path)
	}

	b.builds = make(map[uint]core.SavedBuild, len(export.Builds))
	b.idCounter = export.NextBuildID
	for _, sb := range export.Builds {
		b.builds[sb.ID] = sb
		if sb.ID > b.idCounter {
			b.idCounter = sb.ID
		}
	}
	b.scores = export.Scores
	b.scoreCounter = export.NextScoreID
	for _, r := range b.scores {
		if r.ID > b.scoreCounter {
			b.scoreCounter = r.ID
		}
	}
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return gz.Close()
}
