package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/damage"
	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/internal/effectfile"
	"github.com/stellasora-tools/buildcore/internal/storage"
	"github.com/stellasora-tools/buildcore/internal/worker"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// Scored is the score of one effect file.
type Scored struct {
	File    string          `json:"file"`
	BuildID uint            `json:"buildId,omitempty"`
	Token   string          `json:"token,omitempty"`
	Score   core.BuildScore `json:"score"`
}

func (s *Service) handleScore(ctx context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) == 0 {
		return nil, s.usage(c.Name)
	}
	if s.deps.Scorer == nil {
		return nil, errors.New("no scorer configured")
	}

	jobs := make([]worker.Job, 0, len(c.Args))
	for _, path := range c.Args {
		f, err := effectfile.Load(path)
		if err != nil {
			return nil, err
		}
		job := worker.Job{Effects: f.Effects}
		if f.Build != "" {
			if job.BuildID, job.Token, err = s.scoreTarget(f.Build); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		jobs = append(jobs, job)
	}

	if len(jobs) == 1 || s.deps.Worker == nil {
		out := make([]Scored, len(jobs))
		for i, job := range jobs {
			bs := s.deps.Scorer.Evaluate(ctx, job.Effects)
			out[i] = Scored{File: filepath.Base(c.Args[i]), BuildID: job.BuildID, Token: job.Token, Score: bs}
			s.recordScore(ctx, core.ScoreRecord{
				BuildID:       job.BuildID,
				Token:         job.Token,
				TotalScore:    bs.TotalScore,
				Contributions: bs.EffectContributions,
			})
		}
		return out, nil
	}

	results, err := s.deps.Worker.EvaluateBatch(ctx, jobs)
	if err != nil {
		return nil, err
	}
	out := make([]Scored, len(results))
	for i, r := range results {
		out[i] = Scored{File: filepath.Base(c.Args[i]), BuildID: r.Job.BuildID, Token: r.Job.Token, Score: r.Score}
	}
	return out, nil
}

// scoreTarget resolves the build reference of an effect file. A saved build name
// or id yields its id and token; anything else must decode as a share token.
func (s *Service) scoreTarget(ref string) (uint, string, error) {
	if s.deps.Backend != nil {
		sb, err := s.resolveBuild(ref)
		if err == nil {
			return sb.ID, sb.Token, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, "", err
		}
	}
	d, err := DecodeInput(ref)
	if err != nil {
		return 0, "", err
	}
	return 0, d.Token, nil
}

func (s *Service) handleExtract(ctx context.Context, c dispatcher.Command) (any, error) {
	path := c.Arg(0)
	if path == "" {
		return nil, s.usage(c.Name)
	}
	if s.deps.Source == nil {
		return nil, errors.New("effect extraction is not configured")
	}

	descriptions, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if len(descriptions) == 0 {
		return effectfile.File{Effects: []core.EffectInfo{}}, nil
	}

	effects, err := s.deps.Source.Extract(ctx, descriptions)
	if err != nil {
		return nil, err
	}
	if err := effectfile.ValidateEffects(effects); err != nil {
		return nil, fmt.Errorf("extraction returned invalid effects: %w", err)
	}
	return effectfile.File{Effects: effects}, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptions file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// Damage is the result of the damage command with a single parameter set.
type Damage struct {
	Params damage.Params `json:"params"`
	Result damage.Result `json:"result"`
	DPS    *float64      `json:"dps,omitempty"`
}

func (s *Service) handleDamage(_ context.Context, c dispatcher.Command) (any, error) {
	if c.Arg(0) == "" {
		return nil, s.usage(c.Name)
	}
	base, dps, err := s.loadDamage(c.Arg(0))
	if err != nil {
		return nil, err
	}

	if c.Arg(1) != "" {
		variant, _, err := s.loadDamage(c.Arg(1))
		if err != nil {
			return nil, err
		}
		return damage.Compare(base, variant), nil
	}

	out := Damage{Params: base, Result: damage.Calculate(base)}
	if dps != nil {
		v := damage.DPS(out.Result.Expected, *dps)
		out.DPS = &v
	}
	return out, nil
}

// loadDamage reads damage parameters and fills the curve constants from config
// where the file leaves them zero.
func (s *Service) loadDamage(path string) (damage.Params, *damage.DPSParams, error) {
	f, err := effectfile.Load(path)
	if err != nil {
		return damage.Params{}, nil, err
	}
	if f.Damage == nil {
		return damage.Params{}, nil, fmt.Errorf("%s: no damage parameters", path)
	}
	p := *f.Damage
	if p.LevelConstant == 0 {
		p.LevelConstant = s.deps.Damage.LevelConstant
	}
	if p.VLower == 0 {
		p.VLower = s.deps.Damage.VLower
	}
	return p.WithDefaults(), f.DPS, nil
}
