package core

import (
	"errors"
	"time"
)

// ErrBuildNotFound is returned by storage backends for unknown build ids.
var ErrBuildNotFound = errors.New("build not found")

// ActionKind identifies an action in the combat timeline.
type ActionKind string

const (
	ActionNormalAttack ActionKind = "normal_attack"
	ActionMainSkill    ActionKind = "main_skill"
	ActionUltimate     ActionKind = "ultimate"
)

// Action is a single timeline action at Time seconds.
type Action struct {
	Time float64    `json:"time"`
	Kind ActionKind `json:"kind"`
}

// CombatSimulationResult is produced once per score request and never persisted.
type CombatSimulationResult struct {
	Duration     float64            `json:"duration"`
	Actions      []Action           `json:"actions"`
	EffectUptime map[string]float64 `json:"effectUptime"`
}

// EffectContribution is the scored contribution of one effect.
type EffectContribution struct {
	Name            string     `json:"name"`
	Type            EffectType `json:"type"`
	AverageIncrease float64    `json:"averageIncrease"`
	UptimeCoverage  float64    `json:"uptimeCoverage"`
}

// BuildScore is the derived score of a build. It is recomputed on demand.
type BuildScore struct {
	EffectContributions []EffectContribution   `json:"effectContributions"`
	TotalScore          float64                `json:"totalScore"`
	Simulation          CombatSimulationResult `json:"simulation"`
}

// SavedBuild is a named build kept by a storage backend.
type SavedBuild struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Token     string    `json:"token"`
	Build     Build     `json:"build"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScoreRecord is a computed score kept for history and metrics. BuildID is 0 for
// scores of builds that were never saved.
type ScoreRecord struct {
	ID            uint                 `json:"id"`
	BuildID       uint                 `json:"buildId,omitempty"`
	Token         string               `json:"token"`
	TotalScore    float64              `json:"totalScore"`
	Contributions []EffectContribution `json:"contributions"`
	ComputedAt    time.Time            `json:"computedAt"`
}
