// Package uptime estimates how much of a fight window an effect is active.
package uptime

import (
	"math"

	"github.com/stellasora-tools/buildcore/pkg/core"
)

// DefaultWindow is the length of the simulated fight in seconds.
const DefaultWindow = 120.0

// Estimator computes per-effect coverage. The returned slice is index-aligned with effects.
type Estimator interface {
	Estimate(effects []core.EffectInfo) ([]float64, core.CombatSimulationResult)
}

// Coverage returns the fraction of window during which an effect with the given
// uptime and cooldown is active. The first activation happens at t=0 and the trailing
// partial cycle contributes up to one full uptime.
//
// Negative or NaN inputs count as 0. Any uptime >= window with no cooldown is
// permanent, not only PermanentUptimeSentinel.
func Coverage(uptime, cooldown, window float64) float64 {
	uptime, cooldown = nonNegative(uptime), nonNegative(cooldown)
	if !(window > 0) || math.IsInf(window, 0) {
		return 0
	}

	if cooldown == 0 {
		if uptime >= window {
			return 1
		}
		return uptime / window
	}

	cycle := uptime + cooldown
	if math.IsInf(cycle, 0) {
		return clamp01(math.Min(uptime, window) / window)
	}
	cycles := math.Floor(window / cycle)
	remaining := window - cycles*cycle
	active := cycles*uptime + math.Min(remaining, uptime)
	return clamp01(active / window)
}

// Analytic applies Coverage to every effect. Its result has no action list.
type Analytic struct {
	Window float64
}

func (a Analytic) Estimate(effects []core.EffectInfo) ([]float64, core.CombatSimulationResult) {
	window := a.Window
	if window <= 0 {
		window = DefaultWindow
	}
	cov := make([]float64, len(effects))
	res := core.CombatSimulationResult{
		Duration:     window,
		Actions:      []core.Action{},
		EffectUptime: make(map[string]float64, len(effects)),
	}
	for i, e := range effects {
		cov[i] = Coverage(e.Uptime, e.Cooldown, window)
		res.EffectUptime[e.Name] = cov[i]
	}
	return cov, res
}

// AnalyticCoverage is shorthand for Analytic{Window: window}.Estimate(effects).
func AnalyticCoverage(effects []core.EffectInfo, window float64) core.CombatSimulationResult {
	_, res := Analytic{Window: window}.Estimate(effects)
	return res
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
