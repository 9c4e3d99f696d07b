package score

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stellasora-tools/buildcore/internal/uptime"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/stellasora-tools/buildcore/internal/score"

// Scorer evaluates effect lists into BuildScores. It is safe for concurrent use.
type Scorer struct {
	logger    *slog.Logger
	opts      Options
	estimator uptime.Estimator
	tracer    trace.Tracer

	evaluations metric.Int64Counter
	warnings    metric.Int64Counter
}

// New creates a Scorer. Uses the global OTel meter for metrics (no-op if not configured).
func New(logger *slog.Logger, opts Options) (*Scorer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	s := &Scorer{
		logger: logger.With("component", "score"),
		opts:   opts,
	}
	switch opts.Mode {
	case ModeAnalytic:
		s.estimator = uptime.Analytic{Window: opts.Window}
	case ModeSimulated:
		s.estimator = uptime.NewSimulator(opts.Simulator)
	default:
		return nil, fmt.Errorf("unknown score mode %q", opts.Mode)
	}

	s.tracer = otel.Tracer(instrumentationName)
	m := otel.Meter(instrumentationName)
	var err error
	s.evaluations, err = m.Int64Counter(
		"score.evaluations",
		metric.WithDescription("Total build score evaluations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating evaluations counter: %w", err)
	}
	s.warnings, err = m.Int64Counter(
		"score.warnings",
		metric.WithDescription("Degenerate values coerced to 0 during scoring"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating warnings counter: %w", err)
	}
	return s, nil
}

// Options returns the effective options.
func (s *Scorer) Options() Options {
	return s.opts
}

// Evaluate scores effects. A degenerate effect is scored as 0 and logged; it never
// aborts the evaluation.
func (s *Scorer) Evaluate(ctx context.Context, effects []core.EffectInfo) core.BuildScore {
	ctx, span := s.tracer.Start(ctx, "score.Evaluate", trace.WithAttributes(
		attribute.String("mode", string(s.opts.Mode)),
		attribute.Int("effects", len(effects)),
	))
	defer span.End()

	coverage, sim := s.estimator.Estimate(effects)
	modeAttr := metric.WithAttributes(attribute.String("mode", string(s.opts.Mode)))

	contribs := make([]core.EffectContribution, 0, len(effects))
	for i, e := range effects {
		cov := coverage[i]
		v := Contribution(e, cov)
		if !finite(v) {
			s.logger.WarnContext(ctx, "degenerate effect contribution, using 0",
				"effect", e.Name, "type", e.Type.String(), "value", e.Value, "coverage", cov)
			s.warnings.Add(ctx, 1, modeAttr)
			v = 0
		}
		contribs = append(contribs, core.EffectContribution{
			Name:            e.Name,
			Type:            e.Type,
			AverageIncrease: v,
			UptimeCoverage:  cov,
		})
	}

	total := Total(contribs, s.opts)
	if !finite(total) {
		s.logger.WarnContext(ctx, "degenerate total score, using 0", "effects", len(effects))
		s.warnings.Add(ctx, 1, modeAttr)
		total = 0
	}
	s.evaluations.Add(ctx, 1, modeAttr)
	span.SetAttributes(attribute.Float64("total_score", total))

	s.logger.DebugContext(ctx, "build scored", "effects", len(effects), "total", total)
	return core.BuildScore{
		EffectContributions: contribs,
		TotalScore:          total,
		Simulation:          sim,
	}
}
