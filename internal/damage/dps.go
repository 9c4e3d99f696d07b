package damage

import "math"

// DPSParams describe how often a hit lands. Cooldown and CastTime are in seconds,
// AtkSpeedBonus in percent.
type DPSParams struct {
	Cooldown      float64 `json:"cooldown" yaml:"cooldown"`
	AtkSpeedBonus float64 `json:"atkSpeedBonus" yaml:"atk_speed_bonus"`
	HitCount      float64 `json:"hitCount" yaml:"hit_count"`
	CastTime      float64 `json:"castTime" yaml:"cast_time"`
}

// EffectiveCooldown = cooldown / (1 + atkSpeedBonus/100).
func (p DPSParams) EffectiveCooldown() float64 {
	speed := 1 + p.AtkSpeedBonus/100
	if !(speed > 0) {
		return math.Inf(1)
	}
	return math.Max(0, p.Cooldown) / speed
}

// HitsPerSecond = hitCount / (effectiveCooldown + castTime). A zero-length rotation
// yields 0 rather than an infinite rate.
func (p DPSParams) HitsPerSecond() float64 {
	period := p.EffectiveCooldown() + math.Max(0, p.CastTime)
	if !(period > 0) || math.IsInf(period, 1) {
		return 0
	}
	return math.Max(0, p.HitCount) / period
}

// DPS = expectedDamage * hitsPerSecond.
func DPS(expected float64, p DPSParams) float64 {
	return nonNegative(expected * p.HitsPerSecond())
}
