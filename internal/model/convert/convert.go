// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/stellasora-tools/buildcore/internal/model"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CoreToSavedBuild converts a core.SavedBuild to a GORM model.SavedBuild.
func CoreToSavedBuild(b core.SavedBuild) (model.SavedBuild, error) {
	payload, err := json.Marshal(b.Build)
	if err != nil {
		return model.SavedBuild{}, fmt.Errorf("failed to encode build payload: %w", err)
	}
	return model.SavedBuild{
		Model: gorm.Model{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			UpdatedAt: b.UpdatedAt,
		},
		Name:     b.Name,
		Version:  b.Version,
		Token:    b.Token,
		MainID:   b.Build.Main.ID,
		MainName: b.Build.Main.Name,
		Payload:  datatypes.JSON(payload),
	}, nil
}

// SavedBuildToCore converts a GORM model.SavedBuild back to core.
func SavedBuildToCore(m model.SavedBuild) (core.SavedBuild, error) {
	var b core.Build
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &b); err != nil {
			return core.SavedBuild{}, fmt.Errorf("failed to decode payload of build %d: %w", m.ID, err)
		}
	}
	return core.SavedBuild{
		ID:        m.ID,
		Name:      m.Name,
		Version:   m.Version,
		Token:     m.Token,
		Build:     b,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// CoreToScoreRecord converts a core.ScoreRecord to a GORM model.ScoreRecord.
func CoreToScoreRecord(r core.ScoreRecord) model.ScoreRecord {
	var contributions datatypes.JSON
	if len(r.Contributions) > 0 {
		contributions, _ = json.Marshal(r.Contributions)
	} else {
		contributions = datatypes.JSON("[]")
	}
	return model.ScoreRecord{
		ID:            r.ID,
		BuildID:       r.BuildID,
		Token:         r.Token,
		TotalScore:    r.TotalScore,
		EffectCount:   len(r.Contributions),
		Contributions: contributions,
		ComputedAt:    r.ComputedAt,
	}
}

// ScoreRecordToCore converts a GORM model.ScoreRecord back to core.
func ScoreRecordToCore(m model.ScoreRecord) (core.ScoreRecord, error) {
	var contributions []core.EffectContribution
	if len(m.Contributions) > 0 {
		if err := json.Unmarshal(m.Contributions, &contributions); err != nil {
			return core.ScoreRecord{}, fmt.Errorf("failed to decode contributions of score %d: %w", m.ID, err)
		}
	}
	return core.ScoreRecord{
		ID:            m.ID,
		BuildID:       m.BuildID,
		Token:         m.Token,
		TotalScore:    m.TotalScore,
		Contributions: contributions,
		ComputedAt:    m.ComputedAt,
	}, nil
}
