package damage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleParams() Params {
	return Params{
		TotalAtk:         1000,
		SkillMultiplier:  150,
		TalentMultiplier: 50,
		Bonus:            Bonuses{Elemental: 20, Generic: 10},
		CritRate:         0.4,
		CritDamage:       0.5,
		EnemyDef:         600,
		DefIgnore:        0.25,
		DefPenetrate:     50,
		EnemyResistance:  0.1,
		ResistShred:      0.1,
	}
}

func TestCalculate(t *testing.T) {
	r := Calculate(sampleParams())

	assert.InDelta(t, 2600.0, r.BaseDamage, 1e-9)
	assert.InDelta(t, 1.5, r.CritMultiplier, 1e-9)
	assert.InDelta(t, 2600.0, r.CritAdjusted, 1e-9)
	assert.InDelta(t, 3120.0, r.ExpectedCritAdjusted, 1e-9)
	assert.InDelta(t, 400.0, r.EffectiveDefense, 1e-9)
	assert.InDelta(t, 500.0/900.0, r.DefAmend, 1e-12)
	assert.InDelta(t, 1.0, r.ERAmend, 1e-12)
	assert.InDelta(t, 2600.0*5/9, r.Final, 1e-9)
	assert.InDelta(t, 3120.0*5/9, r.Expected, 1e-9)
}

func TestCalculate_ForceCritIsDeterministic(t *testing.T) {
	for _, rate := range []float64{0, 0.3, 1, 2, -1} {
		p := sampleParams()
		p.ForceCrit = true
		p.CritRate = rate
		r := Calculate(p)
		assert.Equal(t, r.Final, r.Expected)
		assert.InDelta(t, 3900.0*5/9, r.Final, 1e-9)
	}
}

func TestExpectation_ClampsCritRate(t *testing.T) {
	assert.InDelta(t, 150.0, Expectation(100, 1.5, 3), 1e-9)
	assert.InDelta(t, 100.0, Expectation(100, 1.5, -0.5), 1e-9)
	assert.InDelta(t, 125.0, Expectation(100, 1.5, 0.5), 1e-9)
}

func TestEffectiveDefense(t *testing.T) {
	// percentage ignore happens before flat penetration
	assert.InDelta(t, 300.0, EffectiveDefense(500, 0.2, 100), 1e-9)
	assert.Zero(t, EffectiveDefense(100, 0.5, 80))
	assert.Zero(t, EffectiveDefense(100, 1.5, 0))
}

func TestDefenseAmend(t *testing.T) {
	assert.Equal(t, 1.0, DefenseAmend(500, 0))
	assert.InDelta(t, 0.5, DefenseAmend(500, 500), 1e-12)
	assert.InDelta(t, 0.5, DefenseAmend(0, 500), 1e-12)
}

func TestResistanceAmend(t *testing.T) {
	assert.InDelta(t, 1-0.2/1.004, ResistanceAmend(0.2, 0, 0), 1e-12)
	// shredding below zero resistance increases damage
	assert.Greater(t, ResistanceAmend(0, 0.3, 0), 1.0)
	assert.InDelta(t, 1-0.2/(1+0.1*0.01), ResistanceAmend(0.2, 0, 0.1), 1e-12)
	assert.GreaterOrEqual(t, ResistanceAmend(4, 0, 2), 0.0)
}

func TestCalculate_NonNegative(t *testing.T) {
	p := Params{TotalAtk: -10, SkillMultiplier: 100, EnemyDef: -50, CritDamage: -3}
	r := Calculate(p)
	assert.GreaterOrEqual(t, r.BaseDamage, 0.0)
	assert.GreaterOrEqual(t, r.CritMultiplier, 0.0)
	assert.GreaterOrEqual(t, r.Final, 0.0)
	assert.GreaterOrEqual(t, r.Expected, 0.0)
	assert.False(t, math.IsNaN(r.Expected))
}

func TestDPS(t *testing.T) {
	p := DPSParams{Cooldown: 10, AtkSpeedBonus: 25, HitCount: 5, CastTime: 2}
	assert.InDelta(t, 8.0, p.EffectiveCooldown(), 1e-12)
	assert.InDelta(t, 0.5, p.HitsPerSecond(), 1e-12)
	assert.InDelta(t, 500.0, DPS(1000, p), 1e-9)

	assert.Zero(t, DPS(1000, DPSParams{HitCount: 3}))
	assert.Zero(t, DPS(1000, DPSParams{Cooldown: 1, AtkSpeedBonus: -100, HitCount: 1}))
}

func TestCompare(t *testing.T) {
	base := sampleParams()
	variant := base
	variant.TotalAtk = 1100

	c := Compare(base, variant)
	assert.InDelta(t, 10.0, c.DeltaPercent, 1e-9)
	assert.Greater(t, c.Variant.Expected, c.Base.Expected)

	assert.Zero(t, Compare(Params{}, variant).DeltaPercent)
}
