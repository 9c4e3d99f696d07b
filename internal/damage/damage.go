// Package damage implements the per-hit damage formula and its DPS extension.
//
// The steps are applied in a fixed order: base damage, critical step, effective
// defense, defense amendment, elemental resistance amendment. All functions are pure.
package damage

import "math"

const (
	// DefaultLevelConstant is the defense curve constant used when Params.LevelConstant is 0.
	DefaultLevelConstant = 500.0
	// DefaultVLower is the resistance curve lower bound used when Params.VLower is 0.
	DefaultVLower = 0.0
	// resistanceCurve scales the quadratic term of the resistance amendment.
	resistanceCurve = 0.1
)

// Bonuses are the percent damage bonuses that stack additively in base damage.
type Bonuses struct {
	Elemental  float64 `json:"elemental" yaml:"elemental"`
	SkillType  float64 `json:"skillType" yaml:"skill_type"`
	Generic    float64 `json:"generic" yaml:"generic"`
	Mark       float64 `json:"mark" yaml:"mark"`
	Additional float64 `json:"additional" yaml:"additional"`
}

// Sum returns the total bonus in percent.
func (b Bonuses) Sum() float64 {
	return b.Elemental + b.SkillType + b.Generic + b.Mark + b.Additional
}

// Params are the inputs of one hit. Multipliers and bonuses are in percent;
// CritRate, CritDamage, DefIgnore are fractions.
type Params struct {
	TotalAtk         float64 `json:"totalAtk" yaml:"total_atk"`
	SkillMultiplier  float64 `json:"skillMultiplier" yaml:"skill_multiplier"`
	TalentMultiplier float64 `json:"talentMultiplier" yaml:"talent_multiplier"`
	Bonus            Bonuses `json:"bonus" yaml:"bonus"`

	CritRate   float64 `json:"critRate" yaml:"crit_rate"`
	CritDamage float64 `json:"critDamage" yaml:"crit_damage"`
	ForceCrit  bool    `json:"forceCrit" yaml:"force_crit"`

	EnemyDef      float64 `json:"enemyDef" yaml:"enemy_def"`
	DefIgnore     float64 `json:"defIgnore" yaml:"def_ignore"`
	DefPenetrate  float64 `json:"defPenetrate" yaml:"def_penetrate"`
	LevelConstant float64 `json:"levelConstant" yaml:"level_constant"`

	EnemyResistance float64 `json:"enemyResistance" yaml:"enemy_resistance"`
	ResistShred     float64 `json:"resistShred" yaml:"resist_shred"`
	VLower          float64 `json:"vLower" yaml:"v_lower"`
}

// WithDefaults fills a non-positive LevelConstant. VLower's zero value is already
// DefaultVLower.
func (p Params) WithDefaults() Params {
	if !(p.LevelConstant > 0) {
		p.LevelConstant = DefaultLevelConstant
	}
	return p
}

// Result holds every intermediate value of Calculate.
type Result struct {
	BaseDamage           float64 `json:"baseDamage"`
	CritMultiplier       float64 `json:"critMultiplier"`
	CritAdjusted         float64 `json:"critAdjusted"`
	ExpectedCritAdjusted float64 `json:"expectedCritAdjusted"`
	EffectiveDefense     float64 `json:"effectiveDefense"`
	DefAmend             float64 `json:"defAmend"`
	ERAmend              float64 `json:"erAmend"`
	Final                float64 `json:"final"`
	Expected             float64 `json:"expected"`
}

// BaseDamage = atk * ((skill + talent)/100) * (1 + bonus/100).
func BaseDamage(totalAtk, skillMultiplier, talentMultiplier float64, bonus Bonuses) float64 {
	return nonNegative(totalAtk * ((skillMultiplier + talentMultiplier) / 100) * (1 + bonus.Sum()/100))
}

// CritMultiplier = 1 + critDmg.
func CritMultiplier(critDamage float64) float64 {
	return math.Max(0, 1+critDamage)
}

// Expectation returns the crit-weighted average of base. critRate is clamped to [0,1].
func Expectation(base, critMultiplier, critRate float64) float64 {
	r := clamp01(critRate)
	return base*(1-r) + base*critMultiplier*r
}

// EffectiveDefense applies the percentage ignore before the flat penetration.
func EffectiveDefense(enemyDef, defIgnore, defPenetrate float64) float64 {
	return math.Max(0, enemyDef*(1-clamp01(defIgnore))-defPenetrate)
}

// DefenseAmend = levelConstant / (levelConstant + effDef).
func DefenseAmend(levelConstant, effDef float64) float64 {
	if !(levelConstant > 0) {
		levelConstant = DefaultLevelConstant
	}
	return levelConstant / (levelConstant + math.Max(0, effDef))
}

// ResistanceAmend = 1 - net/(1 + 0.1*(net - vLower)^2), net = resistance - shred.
// The result is clamped at 0.
func ResistanceAmend(resistance, shred, vLower float64) float64 {
	net := resistance - shred
	d := net - vLower
	return nonNegative(1 - net/(1+resistanceCurve*d*d))
}

// Calculate runs every step for p.
func Calculate(p Params) Result {
	p = p.WithDefaults()

	var r Result
	r.BaseDamage = BaseDamage(p.TotalAtk, p.SkillMultiplier, p.TalentMultiplier, p.Bonus)
	r.CritMultiplier = CritMultiplier(p.CritDamage)
	if p.ForceCrit {
		r.CritAdjusted = r.BaseDamage * r.CritMultiplier
		r.ExpectedCritAdjusted = r.CritAdjusted
	} else {
		r.CritAdjusted = r.BaseDamage
		r.ExpectedCritAdjusted = Expectation(r.BaseDamage, r.CritMultiplier, p.CritRate)
	}

	r.EffectiveDefense = EffectiveDefense(p.EnemyDef, p.DefIgnore, p.DefPenetrate)
	r.DefAmend = DefenseAmend(p.LevelConstant, r.EffectiveDefense)
	r.ERAmend = ResistanceAmend(p.EnemyResistance, p.ResistShred, p.VLower)

	r.Final = r.CritAdjusted * r.DefAmend * r.ERAmend
	r.Expected = r.ExpectedCritAdjusted * r.DefAmend * r.ERAmend
	return r
}

// Comparison is a what-if between two parameter sets.
type Comparison struct {
	Base         Result  `json:"base"`
	Variant      Result  `json:"variant"`
	DeltaPercent float64 `json:"deltaPercent"`
}

// Compare calculates both sets and the relative change of expected damage in percent.
// DeltaPercent is 0 when the base expectation is 0.
func Compare(base, variant Params) Comparison {
	c := Comparison{Base: Calculate(base), Variant: Calculate(variant)}
	if c.Base.Expected > 0 {
		c.DeltaPercent = (c.Variant.Expected/c.Base.Expected - 1) * 100
	}
	return c
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
