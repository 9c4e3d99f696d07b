package convert

import (
	"testing"
	"time"

	"github.com/stellasora-tools/buildcore/internal/model"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func sampleSavedBuild() core.SavedBuild {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return core.SavedBuild{
		ID:      5,
		Name:    "fire team",
		Version: "b",
		Token:   "Bn_Bw_B__AAAAAAAAAAAA",
		Build: core.Build{
			Main: core.Character{
				ID:      103,
				Talents: core.CharacterTalents{Core: []core.Talent{{ID: 0, Level: 6}}},
			},
			Supports:   [2]core.Character{{ID: 112}, {ID: 127}},
			LossRecord: core.LossRecord{Main: []int{1, 2, 3}, Sub: []int{4, 5, 6}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSavedBuild_RoundTrip(t *testing.T) {
	in := sampleSavedBuild()

	m, err := CoreToSavedBuild(in)
	require.NoError(t, err)
	assert.Equal(t, uint(5), m.ID)
	assert.Equal(t, 103, m.MainID)
	assert.Equal(t, "b", m.Version)
	assert.NotEmpty(t, m.Payload)

	out, err := SavedBuildToCore(m)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSavedBuildToCore_BadPayload(t *testing.T) {
	_, err := SavedBuildToCore(model.SavedBuild{Payload: datatypes.JSON("{not json")})
	assert.Error(t, err)
}

func TestScoreRecord_RoundTrip(t *testing.T) {
	in := core.ScoreRecord{
		ID:         9,
		BuildID:    5,
		Token:      "tok",
		TotalScore: 56,
		Contributions: []core.EffectContribution{
			{Name: "Blaze", Type: core.EffectDamageIgnis, AverageIncrease: 20, UptimeCoverage: 1},
			{Name: "Edge", Type: core.EffectAtkIncrease, AverageIncrease: 30, UptimeCoverage: 1},
		},
		ComputedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	m := CoreToScoreRecord(in)
	assert.Equal(t, 2, m.EffectCount)

	out, err := ScoreRecordToCore(m)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCoreToScoreRecord_EmptyContributions(t *testing.T) {
	m := CoreToScoreRecord(core.ScoreRecord{Token: "tok"})
	assert.Equal(t, datatypes.JSON("[]"), m.Contributions)
	assert.Equal(t, 0, m.EffectCount)

	out, err := ScoreRecordToCore(m)
	require.NoError(t, err)
	assert.Empty(t, out.Contributions)
}
