package uptime

import (
	"math"
	"sort"

	"github.com/stellasora-tools/buildcore/pkg/core"
)

// SimulatorConfig describes the scripted fight timeline.
type SimulatorConfig struct {
	Window        float64 // fight length, seconds
	TickInterval  float64 // one normal attack per tick
	SkillCooldown float64 // main skill recast interval, first cast at 0
	UltimateAt    float64 // single ultimate cast, must be positive; past the window means none
}

// DefaultSimulatorConfig returns the 120s timeline with 0.5s normal attacks,
// a 10s main skill and the ultimate at 60s.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Window:        DefaultWindow,
		TickInterval:  0.5,
		SkillCooldown: 10,
		UltimateAt:    60,
	}
}

// Simulator walks a discrete action timeline and triggers effects on the actions their
// type reacts to. An effect re-arms uptime+cooldown seconds after it triggered.
type Simulator struct {
	cfg SimulatorConfig
}

// NewSimulator returns a simulator. Zero, negative and NaN fields fall back to
// DefaultSimulatorConfig.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if !(cfg.Window > 0) || math.IsInf(cfg.Window, 1) {
		cfg.Window = def.Window
	}
	if !(cfg.TickInterval > 0) {
		cfg.TickInterval = def.TickInterval
	}
	if !(cfg.SkillCooldown > 0) {
		cfg.SkillCooldown = def.SkillCooldown
	}
	if !(cfg.UltimateAt > 0) {
		cfg.UltimateAt = def.UltimateAt
	}
	return &Simulator{cfg: cfg}
}

// Config returns the effective configuration.
func (s *Simulator) Config() SimulatorConfig {
	return s.cfg
}

// Timeline returns every action of the fight ordered by time. Actions at the same
// instant are ordered ultimate, main skill, normal attack.
func (s *Simulator) Timeline() []core.Action {
	cfg := s.cfg
	var actions []core.Action

	ticks := int(math.Ceil(cfg.Window / cfg.TickInterval))
	for i := 0; i < ticks; i++ {
		actions = append(actions, core.Action{Time: float64(i) * cfg.TickInterval, Kind: core.ActionNormalAttack})
	}
	casts := int(math.Ceil(cfg.Window / cfg.SkillCooldown))
	for i := 0; i < casts; i++ {
		actions = append(actions, core.Action{Time: float64(i) * cfg.SkillCooldown, Kind: core.ActionMainSkill})
	}
	if cfg.UltimateAt < cfg.Window {
		actions = append(actions, core.Action{Time: cfg.UltimateAt, Kind: core.ActionUltimate})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Time != actions[j].Time {
			return actions[i].Time < actions[j].Time
		}
		return kindOrder(actions[i].Kind) < kindOrder(actions[j].Kind)
	})
	return actions
}

func kindOrder(k core.ActionKind) int {
	switch k {
	case core.ActionUltimate:
		return 0
	case core.ActionMainSkill:
		return 1
	default:
		return 2
	}
}

// Triggers reports whether an action of kind k can (re)apply an effect of type t.
func Triggers(t core.EffectType, k core.ActionKind) bool {
	switch t {
	case core.EffectDamageNormalAttack:
		return k == core.ActionNormalAttack
	case core.EffectDamageSkill:
		return k == core.ActionMainSkill
	case core.EffectDamageUltimate:
		return k == core.ActionUltimate
	}
	return true
}

// EffectCoverage runs one effect over actions and returns its active fraction of the window.
func (s *Simulator) EffectCoverage(e core.EffectInfo, actions []core.Action) float64 {
	window := s.cfg.Window
	if e.IsPermanent(window) {
		return 1
	}
	uptime, cooldown := nonNegative(e.Uptime), nonNegative(e.Cooldown)

	var active float64
	nextReady := 0.0
	for _, a := range actions {
		if a.Time >= window {
			break
		}
		if a.Time < nextReady || !Triggers(e.Type, a.Kind) {
			continue
		}
		end := math.Min(a.Time+uptime, window)
		active += end - a.Time
		nextReady = a.Time + uptime + cooldown
		if math.IsInf(nextReady, 1) {
			break
		}
	}
	return clamp01(active / window)
}

// Estimate simulates the timeline once and scores every effect against it.
func (s *Simulator) Estimate(effects []core.EffectInfo) ([]float64, core.CombatSimulationResult) {
	actions := s.Timeline()
	cov := make([]float64, len(effects))
	res := core.CombatSimulationResult{
		Duration:     s.cfg.Window,
		Actions:      actions,
		EffectUptime: make(map[string]float64, len(effects)),
	}
	for i, e := range effects {
		cov[i] = s.EffectCoverage(e, actions)
		res.EffectUptime[e.Name] = cov[i]
	}
	return cov, res
}

// Simulate runs the timeline and returns only the simulation result.
func (s *Simulator) Simulate(effects []core.EffectInfo) core.CombatSimulationResult {
	_, res := s.Estimate(effects)
	return res
}
