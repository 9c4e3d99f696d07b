// Package score turns a list of effects into a single build score.
//
// Each effect is normalised to a percentage-equivalent magnitude, weighted by its
// uptime coverage and stack count, and then folded into a damage index that starts at
// 100. Additive effects raise the index directly; multiplicative effects scale it in a
// fixed type order. The score is the uplift over the un-buffed baseline.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/uptime"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

const (
	// CountWeight converts a count-based effect ("回") to percent: one occurrence is 10%.
	CountWeight = 10.0
	// Baseline is the un-buffed damage index.
	Baseline = 100.0
	// BaselineCritDamage is the crit damage bonus assumed when scoring crit rate.
	BaselineCritDamage = 0.5
	// DefaultCritRate is assumed for crit damage when no crit_rate effect is present.
	DefaultCritRate = 0.2
)

// multiplicativeOrder is the order factors are applied in.
var multiplicativeOrder = [...]core.EffectType{
	core.EffectAtkIncrease,
	core.EffectCritRate,
	core.EffectCritDamage,
	core.EffectSpeedIncrease,
	core.EffectCooldownReduction,
}

// Mode selects how coverage is estimated.
type Mode string

const (
	ModeAnalytic  Mode = "analytic"
	ModeSimulated Mode = "simulated"
)

// ParseMode accepts "analytic" or "simulated" in any case. Empty means analytic.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAnalytic:
		return ModeAnalytic, nil
	case ModeSimulated:
		return ModeSimulated, nil
	default:
		return "", fmt.Errorf("unknown score mode %q", s)
	}
}

// Options tune scoring. The zero value scores like DefaultOptions.
type Options struct {
	Mode   Mode
	Window float64
	// DefaultCritRate is assumed when no crit_rate effect is present. nil means
	// the package DefaultCritRate; use CritRate(0) for a build that never crits.
	DefaultCritRate *float64
	Simulator       uptime.SimulatorConfig
}

// CritRate returns a pointer for Options.DefaultCritRate.
func CritRate(v float64) *float64 {
	return &v
}

// DefaultOptions returns analytic scoring over a 120s window.
func DefaultOptions() Options {
	sim := uptime.DefaultSimulatorConfig()
	return Options{
		Mode:            ModeAnalytic,
		Window:          uptime.DefaultWindow,
		DefaultCritRate: CritRate(DefaultCritRate),
		Simulator:       sim,
	}
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeAnalytic
	}
	if !(o.Window > 0) {
		o.Window = uptime.DefaultWindow
	}
	rate := DefaultCritRate
	if o.DefaultCritRate != nil && !math.IsNaN(*o.DefaultCritRate) {
		rate = clamp01(*o.DefaultCritRate)
	}
	o.DefaultCritRate = &rate
	if o.Simulator.Window == 0 {
		o.Simulator.Window = o.Window
	}
	return o
}

// Normalize converts an effect value to a percentage-equivalent magnitude.
// Percent and seconds pass through; counts are weighted by CountWeight.
func Normalize(e core.EffectInfo) float64 {
	if e.Unit == core.UnitCount {
		return e.Value * CountWeight
	}
	return e.Value
}

// Contribution is Normalize(e) weighted by coverage and stack count.
func Contribution(e core.EffectInfo, coverage float64) float64 {
	return Normalize(e) * coverage * float64(e.Stacks())
}

// Total folds contributions into the net uplift over Baseline.
//
// Multiplicative contributions are indexed by type first so crit damage always sees
// the crit rate of the same list, whatever order the list is in. Non-finite
// contributions count as 0.
func Total(contribs []core.EffectContribution, opts Options) float64 {
	opts = opts.withDefaults()

	base := Baseline
	mult := make(map[core.EffectType][]float64, len(multiplicativeOrder))
	for _, c := range contribs {
		v := c.AverageIncrease
		if !finite(v) {
			continue
		}
		switch c.Type.Bucket() {
		case core.BucketAdditive:
			base += v
		case core.BucketMultiplicative:
			mult[c.Type] = append(mult[c.Type], v)
		}
	}

	critRate := *opts.DefaultCritRate
	if rates, ok := mult[core.EffectCritRate]; ok {
		critRate = clamp01(sum(rates) / 100)
	}

	for _, t := range multiplicativeOrder {
		for _, v := range mult[t] {
			base *= factor(t, v, critRate)
		}
	}
	return base - Baseline
}

func factor(t core.EffectType, v, critRate float64) float64 {
	switch t {
	case core.EffectCritRate:
		return 1 + (v/100)*BaselineCritDamage
	case core.EffectCritDamage:
		return 1 + critRate*(v/100)
	default:
		return 1 + v/100
	}
}

func sum(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
