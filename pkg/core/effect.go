package core

import (
	"fmt"
	"strings"
)

// PermanentUptimeSentinel marks an effect that never expires once applied.
const PermanentUptimeSentinel = 999999

// Bucket decides how an effect combines into the build score.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketAdditive
	BucketMultiplicative
)

func (b Bucket) String() string {
	switch b {
	case BucketAdditive:
		return "additive"
	case BucketMultiplicative:
		return "multiplicative"
	default:
		return "none"
	}
}

// EffectType is the closed set of effect categories produced by effect extraction.
type EffectType int

const (
	EffectDamageIncrease EffectType = iota
	EffectDamageNormalAttack
	EffectDamageSkill
	EffectDamageUltimate
	EffectDamageMark
	EffectDamageElemental
	EffectDamageAqua
	EffectDamageIgnis
	EffectDamageTerra
	EffectDamageVentus
	EffectDamageLux
	EffectDamageUmbra
	EffectDamageAdditional
	EffectDamageDot
	EffectDefDecrease
	EffectAtkIncrease
	EffectCritRate
	EffectCritDamage
	EffectSpeedIncrease
	EffectCooldownReduction
	EffectHPIncrease
	EffectHeal
	EffectShield
	EffectOther

	effectTypeCount
)

type effectTypeInfo struct {
	name   string
	bucket Bucket
}

// effectTypes is the single classification table. Adding a type means adding one row here.
var effectTypes = [...]effectTypeInfo{
	EffectDamageIncrease:     {"damage_increase", BucketAdditive},
	EffectDamageNormalAttack: {"damage_normal_attack", BucketAdditive},
	EffectDamageSkill:        {"damage_skill", BucketAdditive},
	EffectDamageUltimate:     {"damage_ultimate", BucketAdditive},
	EffectDamageMark:         {"damage_mark", BucketAdditive},
	EffectDamageElemental:    {"damage_elemental", BucketAdditive},
	EffectDamageAqua:         {"damage_aqua", BucketAdditive},
	EffectDamageIgnis:        {"damage_ignis", BucketAdditive},
	EffectDamageTerra:        {"damage_terra", BucketAdditive},
	EffectDamageVentus:       {"damage_ventus", BucketAdditive},
	EffectDamageLux:          {"damage_lux", BucketAdditive},
	EffectDamageUmbra:        {"damage_umbra", BucketAdditive},
	EffectDamageAdditional:   {"damage_additional", BucketAdditive},
	EffectDamageDot:          {"damage_dot", BucketAdditive},
	EffectDefDecrease:        {"def_decrease", BucketAdditive},
	EffectAtkIncrease:        {"atk_increase", BucketMultiplicative},
	EffectCritRate:           {"crit_rate", BucketMultiplicative},
	EffectCritDamage:         {"crit_damage", BucketMultiplicative},
	EffectSpeedIncrease:      {"speed_increase", BucketMultiplicative},
	EffectCooldownReduction:  {"cooldown_reduction", BucketMultiplicative},
	EffectHPIncrease:         {"hp_increase", BucketNone},
	EffectHeal:               {"heal", BucketNone},
	EffectShield:             {"shield", BucketNone},
	EffectOther:              {"other", BucketNone},
}

// Fails to compile when the table and the enum drift apart.
var _ = [1]struct{}{}[len(effectTypes)-int(effectTypeCount)]

var effectTypesByName = func() map[string]EffectType {
	m := make(map[string]EffectType, len(effectTypes))
	for i, info := range effectTypes {
		m[info.name] = EffectType(i)
	}
	return m
}()

// EffectTypes returns every declared effect type in enum order.
func EffectTypes() []EffectType {
	out := make([]EffectType, 0, effectTypeCount)
	for i := EffectType(0); i < effectTypeCount; i++ {
		out = append(out, i)
	}
	return out
}

// Valid reports whether t is a declared effect type.
func (t EffectType) Valid() bool {
	return t >= 0 && t < effectTypeCount
}

// Bucket returns the combination bucket of t. Unknown types are BucketNone.
func (t EffectType) Bucket() Bucket {
	if !t.Valid() {
		return BucketNone
	}
	return effectTypes[t].bucket
}

func (t EffectType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("EffectType(%d)", int(t))
	}
	return effectTypes[t].name
}

// ParseEffectType maps a wire name like "crit_rate" to its EffectType.
func ParseEffectType(s string) (EffectType, error) {
	t, ok := effectTypesByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown effect type %q", s)
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler (used by both JSON and YAML).
func (t EffectType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid effect type %d", int(t))
	}
	return []byte(effectTypes[t].name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EffectType) UnmarshalText(b []byte) error {
	parsed, err := ParseEffectType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Unit is the unit an effect value is expressed in.
type Unit string

const (
	UnitPercent Unit = "%"
	UnitCount   Unit = "回"
	UnitSeconds Unit = "秒"
)

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	switch u {
	case UnitPercent, UnitCount, UnitSeconds:
		return true
	}
	return false
}

// EffectInfo is one percentage-based game effect extracted from talent or record text.
// Uptime and Cooldown are in seconds; Cooldown 0 means the effect re-applies freely.
type EffectInfo struct {
	Name      string     `json:"name" yaml:"name"`
	Type      EffectType `json:"type" yaml:"type"`
	Value     float64    `json:"value" yaml:"value"`
	Unit      Unit       `json:"unit" yaml:"unit"`
	Uptime    float64    `json:"uptime" yaml:"uptime"`
	Cooldown  float64    `json:"cooldown" yaml:"cooldown"`
	MaxStacks int        `json:"maxStacks" yaml:"max_stacks"`
}

// Stacks returns MaxStacks, treating anything below 1 as a single stack.
func (e EffectInfo) Stacks() int {
	if e.MaxStacks < 1 {
		return 1
	}
	return e.MaxStacks
}

// IsPermanent reports whether the effect is always active over a window of the given length.
func (e EffectInfo) IsPermanent(window float64) bool {
	return e.Cooldown == 0 && e.Uptime >= window
}
