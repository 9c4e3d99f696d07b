package core

import (
	"strconv"
	"strings"
)

// Talent slot layout per character.
const (
	CoreSlots = 4
	SubSlots  = 12

	MinLevel = 1
	MaxLevel = 6

	MaxCoreTalents       = 2
	MaxMainSubTalents    = 6
	MaxSupportSubTalents = 5

	LossRecordSlots = 3
)

// Talent is a selected talent. ID is the slot index within its category.
type Talent struct {
	ID    int `json:"id" yaml:"id"`
	Level int `json:"level" yaml:"level"`
}

// CharacterTalents holds the core and sub talent selections of one character.
type CharacterTalents struct {
	Core []Talent `json:"core" yaml:"core"`
	Sub  []Talent `json:"sub" yaml:"sub"`
}

// Character is one of the three build slots.
// Scheme B links carry a numeric ID; query links may carry a display name instead.
type Character struct {
	ID      int              `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string           `json:"name,omitempty" yaml:"name,omitempty"`
	Talents CharacterTalents `json:"talents" yaml:"talents"`
}

// HasIdentity reports whether the slot is filled.
func (c Character) HasIdentity() bool {
	return c.ID != 0 || strings.TrimSpace(c.Name) != ""
}

// Identity returns the display form of the character identity.
func (c Character) Identity() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	if c.ID == 0 {
		return ""
	}
	return strconv.Itoa(c.ID)
}

// LossRecord holds the main and sub loss-record ids.
type LossRecord struct {
	Main []int `json:"main" yaml:"main"`
	Sub  []int `json:"sub" yaml:"sub"`
}

// Build is a full team build: a lead character, two supports and the loss records.
type Build struct {
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	Main       Character    `json:"main" yaml:"main"`
	Supports   [2]Character `json:"supports" yaml:"supports"`
	LossRecord LossRecord   `json:"lossRecord" yaml:"loss_record"`
}

// Characters returns the three slots in order: main, support 1, support 2.
func (b Build) Characters() [3]Character {
	return [3]Character{b.Main, b.Supports[0], b.Supports[1]}
}

// Role returns the role label used in messages for slot index i.
func Role(i int) string {
	switch i {
	case 0:
		return "main"
	case 1:
		return "support 1"
	case 2:
		return "support 2"
	default:
		return "slot " + strconv.Itoa(i)
	}
}
