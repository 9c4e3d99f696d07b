package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/internal/output"
	"github.com/stellasora-tools/buildcore/internal/validate"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// handleSave stores a valid build. Saving under an existing name replaces that
// build and keeps its id.
func (s *Service) handleSave(ctx context.Context, c dispatcher.Command) (any, error) {
	name := strings.TrimSpace(c.Arg(0))
	if name == "" || c.Arg(1) == "" {
		return nil, s.usage(c.Name)
	}
	be, err := s.backend()
	if err != nil {
		return nil, err
	}

	d, err := DecodeInput(c.Arg(1))
	if err != nil {
		return nil, err
	}
	if err := validate.Validate(d.Build, d.Scheme).Err(); err != nil {
		return nil, err
	}

	sb := core.SavedBuild{
		Name:    name,
		Version: string(d.Scheme),
		Token:   d.Token,
		Build:   d.Build,
	}
	if id, ok := s.deps.Names.Get(name); ok {
		existing, err := be.GetBuild(id)
		switch {
		case err == nil:
			sb.ID = existing.ID
			sb.CreatedAt = existing.CreatedAt
		case !errors.Is(err, core.ErrBuildNotFound):
			return nil, err
		}
	}

	if err := be.SaveBuild(&sb); err != nil {
		return nil, fmt.Errorf("failed to save build: %w", err)
	}
	s.deps.Names.Set(sb.Name, sb.ID)
	s.deps.Logger.InfoContext(ctx, "Saved build", "id", sb.ID, "name", sb.Name, "scheme", sb.Version)
	return sb, nil
}

func (s *Service) handleList(_ context.Context, _ dispatcher.Command) (any, error) {
	be, err := s.backend()
	if err != nil {
		return nil, err
	}
	builds, err := be.ListBuilds()
	if err != nil {
		return nil, err
	}
	if builds == nil {
		builds = []core.SavedBuild{}
	}
	return builds, nil
}

func (s *Service) handleDelete(ctx context.Context, c dispatcher.Command) (any, error) {
	if c.Arg(0) == "" {
		return nil, s.usage(c.Name)
	}
	be, err := s.backend()
	if err != nil {
		return nil, err
	}
	sb, err := s.resolveBuild(c.Arg(0))
	if err != nil {
		return nil, err
	}
	if err := be.DeleteBuild(sb.ID); err != nil {
		return nil, err
	}
	s.deps.Names.DeleteID(sb.ID)
	s.deps.Logger.InfoContext(ctx, "Deleted build", "id", sb.ID, "name", sb.Name)
	return fmt.Sprintf("deleted build %d (%s)", sb.ID, sb.Name), nil
}

// handleExport writes every saved build and every recorded score, including
// scores of unsaved builds, to a spreadsheet.
func (s *Service) handleExport(ctx context.Context, c dispatcher.Command) (any, error) {
	be, err := s.backend()
	if err != nil {
		return nil, err
	}
	if s.deps.Worker != nil {
		if err := s.deps.Worker.Flush(ctx); err != nil {
			return nil, err
		}
	}

	builds, err := be.ListBuilds()
	if err != nil {
		return nil, err
	}
	scores, err := be.ListScores(0)
	if err != nil {
		return nil, err
	}
	for _, b := range builds {
		bs, err := be.ListScores(b.ID)
		if err != nil {
			return nil, err
		}
		scores = append(scores, bs...)
	}

	dir := s.deps.ExportDir
	if dir == "" {
		dir = "."
	}
	path, err := output.ExportXLSX(dir, c.Arg(0), builds, scores)
	if err != nil {
		return nil, fmt.Errorf("failed to export builds: %w", err)
	}
	s.deps.Logger.InfoContext(ctx, "Exported builds", "path", path, "builds", len(builds), "scores", len(scores))
	return path, nil
}

func (s *Service) handleStatus(_ context.Context, _ dispatcher.Command) (any, error) {
	if s.deps.Monitor == nil {
		return nil, errors.New("status monitor not configured")
	}
	return s.deps.Monitor.GetProgramStatus(), nil
}
