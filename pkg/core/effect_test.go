package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEffectTypes_TableComplete(t *testing.T) {
	types := EffectTypes()
	require.Len(t, types, int(effectTypeCount))

	seen := map[string]bool{}
	for _, et := range types {
		name := et.String()
		assert.NotEmpty(t, name, "type %d has no name", int(et))
		assert.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true

		parsed, err := ParseEffectType(name)
		require.NoError(t, err)
		assert.Equal(t, et, parsed)
	}
}

func TestEffectType_Bucket(t *testing.T) {
	tests := []struct {
		typ    EffectType
		bucket Bucket
	}{
		{EffectDamageIncrease, BucketAdditive},
		{EffectDamageUmbra, BucketAdditive},
		{EffectDefDecrease, BucketAdditive},
		{EffectAtkIncrease, BucketMultiplicative},
		{EffectCritRate, BucketMultiplicative},
		{EffectCritDamage, BucketMultiplicative},
		{EffectSpeedIncrease, BucketMultiplicative},
		{EffectCooldownReduction, BucketMultiplicative},
		{EffectHeal, BucketNone},
		{EffectOther, BucketNone},
		{EffectType(-1), BucketNone},
		{effectTypeCount, BucketNone},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.bucket, tt.typ.Bucket())
		})
	}
}

func TestParseEffectType(t *testing.T) {
	got, err := ParseEffectType("  Crit_Rate ")
	require.NoError(t, err)
	assert.Equal(t, EffectCritRate, got)

	_, err = ParseEffectType("damage_everything")
	assert.Error(t, err)
}

func TestEffectInfo_JSONAndYAML(t *testing.T) {
	e := EffectInfo{
		Name:      "Flame Edge",
		Type:      EffectDamageIgnis,
		Value:     12.5,
		Unit:      UnitPercent,
		Uptime:    8,
		Cooldown:  15,
		MaxStacks: 2,
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"damage_ignis"`)

	var back EffectInfo
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, e, back)

	var fromYAML EffectInfo
	doc := "name: Flame Edge\ntype: damage_ignis\nvalue: 12.5\nunit: \"%\"\nuptime: 8\ncooldown: 15\nmax_stacks: 2\n"
	require.NoError(t, yaml.Unmarshal([]byte(doc), &fromYAML))
	assert.Equal(t, e, fromYAML)

	err = json.Unmarshal([]byte(`{"type":"not_a_type"}`), &back)
	assert.Error(t, err)
}

func TestEffectInfo_StacksAndPermanent(t *testing.T) {
	assert.Equal(t, 1, EffectInfo{}.Stacks())
	assert.Equal(t, 1, EffectInfo{MaxStacks: -3}.Stacks())
	assert.Equal(t, 4, EffectInfo{MaxStacks: 4}.Stacks())

	assert.True(t, EffectInfo{Uptime: PermanentUptimeSentinel}.IsPermanent(120))
	assert.True(t, EffectInfo{Uptime: 120}.IsPermanent(120))
	assert.False(t, EffectInfo{Uptime: 119}.IsPermanent(120))
	assert.False(t, EffectInfo{Uptime: PermanentUptimeSentinel, Cooldown: 1}.IsPermanent(120))
}

func TestUnit_Valid(t *testing.T) {
	for _, u := range []Unit{UnitPercent, UnitCount, UnitSeconds} {
		assert.True(t, u.Valid(), string(u))
	}
	assert.False(t, Unit("pts").Valid())
}

func TestBuild_CharactersAndIdentity(t *testing.T) {
	b := Build{
		Main:     Character{ID: 7},
		Supports: [2]Character{{Name: "Chitose"}, {}},
	}
	chars := b.Characters()
	assert.Equal(t, "7", chars[0].Identity())
	assert.Equal(t, "Chitose", chars[1].Identity())
	assert.Equal(t, "", chars[2].Identity())
	assert.False(t, chars[2].HasIdentity())
	assert.False(t, Character{Name: "   "}.HasIdentity())

	assert.Equal(t, "main", Role(0))
	assert.Equal(t, "support 2", Role(2))
	assert.Equal(t, "slot 5", Role(5))
}
