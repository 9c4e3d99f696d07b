package buildtoken

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/basen"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

const (
	talentBase      = core.MaxLevel + 1 // 0 = not selected, 1..6 = level
	slotsPerChar    = core.CoreSlots + core.SubSlots
	talentDigits    = 3 * slotsPerChar
	queryCharPrefix = "c"
)

// Query parameter names of the Scheme A share form.
const (
	ParamTalents = "t"
	ParamMain    = "m"
	ParamSub     = "s"
	ParamName    = "n"
)

var talentTokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SchemeA is the array-packed scheme. Encode/Decode work on the full query string;
// EncodeTalents/DecodeTalents work on the talent token alone.
type SchemeA struct{}

func (SchemeA) Version() Version { return VersionA }

// EncodeTalents packs the talents of all three characters into one base-7 Base64URL token.
func (SchemeA) EncodeTalents(chars [3]core.CharacterTalents) (string, error) {
	digits := make([]int, talentDigits)
	for ci, ct := range chars {
		role := core.Role(ci)
		if err := checkTalents(VersionA, role, "core", ct.Core, core.CoreSlots); err != nil {
			return "", err
		}
		if err := checkTalents(VersionA, role, "sub", ct.Sub, core.SubSlots); err != nil {
			return "", err
		}
		base := ci * slotsPerChar
		for _, t := range ct.Core {
			if digits[base+t.ID] != 0 {
				return "", encodeErrorf(VersionA, "%s core talent %d selected twice", role, t.ID)
			}
			digits[base+t.ID] = t.Level
		}
		for _, t := range ct.Sub {
			slot := base + core.CoreSlots + t.ID
			if digits[slot] != 0 {
				return "", encodeErrorf(VersionA, "%s sub talent %d selected twice", role, t.ID)
			}
			digits[slot] = t.Level
		}
	}

	v, err := basen.ArrayToBigInt(digits, talentBase)
	if err != nil {
		return "", encodeErrorf(VersionA, "%v", err)
	}
	return basen.BigIntToBase64URL(v), nil
}

// DecodeTalents unpacks a talent token. Talents come back sorted by id.
func (SchemeA) DecodeTalents(token string) ([3]core.CharacterTalents, error) {
	var out [3]core.CharacterTalents
	if !talentTokenRe.MatchString(token) {
		return out, parseErrorf(VersionA, "talent token %q contains characters outside [A-Za-z0-9_-]", token)
	}
	v, err := basen.Base64URLToBigInt(token)
	if err != nil {
		return out, wrapParseError(VersionA, err, "invalid talent token")
	}
	if !basen.Fits(v, talentBase, talentDigits) {
		return out, parseErrorf(VersionA, "talent token %q encodes more than %d slots", token, talentDigits)
	}

	digits := basen.BigIntToArray(v, talentBase, talentDigits)
	for ci := range out {
		base := ci * slotsPerChar
		for slot := 0; slot < slotsPerChar; slot++ {
			level := digits[base+slot]
			if level == 0 {
				continue
			}
			if slot < core.CoreSlots {
				out[ci].Core = append(out[ci].Core, core.Talent{ID: slot, Level: level})
			} else {
				out[ci].Sub = append(out[ci].Sub, core.Talent{ID: slot - core.CoreSlots, Level: level})
			}
		}
	}
	return out, nil
}

// Encode renders the full query form: c1,c2,c3, t, and optional m, s, n.
// Names are written as given; a purely numeric name decodes as an id.
func (s SchemeA) Encode(b core.Build) (string, error) {
	chars := b.Characters()
	token, err := s.EncodeTalents([3]core.CharacterTalents{chars[0].Talents, chars[1].Talents, chars[2].Talents})
	if err != nil {
		return "", err
	}

	q := url.Values{}
	for i, c := range chars {
		if id := c.Identity(); id != "" {
			q.Set(queryCharPrefix+strconv.Itoa(i+1), id)
		}
	}
	q.Set(ParamTalents, token)

	if err := setLossParam(q, ParamMain, "main", b.LossRecord.Main); err != nil {
		return "", err
	}
	if err := setLossParam(q, ParamSub, "sub", b.LossRecord.Sub); err != nil {
		return "", err
	}
	if strings.TrimSpace(b.Name) != "" {
		q.Set(ParamName, b.Name)
	}
	return q.Encode(), nil
}

func setLossParam(q url.Values, key, label string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > core.LossRecordSlots {
		return encodeErrorf(VersionA, "%s loss record has %d entries, at most %d allowed", label, len(ids), core.LossRecordSlots)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 {
			return encodeErrorf(VersionA, "%s loss record id %d is negative", label, id)
		}
		parts[i] = strconv.Itoa(id)
	}
	q.Set(key, strings.Join(parts, ","))
	return nil
}

// Decode parses the full query form. A leading "?" is accepted.
func (s SchemeA) Decode(query string) (core.Build, error) {
	var b core.Build
	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return b, wrapParseError(VersionA, err, "invalid query string")
	}

	token := q.Get(ParamTalents)
	if token == "" {
		return b, parseErrorf(VersionA, "missing talent token parameter %q", ParamTalents)
	}
	talents, err := s.DecodeTalents(token)
	if err != nil {
		return b, err
	}

	chars := [3]*core.Character{&b.Main, &b.Supports[0], &b.Supports[1]}
	for i, c := range chars {
		setIdentity(c, q.Get(queryCharPrefix+strconv.Itoa(i+1)))
		c.Talents = talents[i]
	}

	if b.LossRecord.Main, err = parseLossParam(q.Get(ParamMain), "main"); err != nil {
		return core.Build{}, err
	}
	if b.LossRecord.Sub, err = parseLossParam(q.Get(ParamSub), "sub"); err != nil {
		return core.Build{}, err
	}
	b.Name = q.Get(ParamName)
	return b, nil
}

// setIdentity reads a c1..c3 value. The query form does not tag ids and names, so
// a positive integer is always taken as an id: a character whose display name is
// "42" comes back as ID 42 with no name.
func setIdentity(c *core.Character, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if id, err := strconv.Atoi(raw); err == nil && id > 0 {
		c.ID = id
		return
	}
	c.Name = raw
}

// parseLossParam reads a comma-joined id list. Present lists are padded with zeros to
// three entries; an absent list stays empty.
func parseLossParam(raw, label string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) > core.LossRecordSlots {
		return nil, parseErrorf(VersionA, "%s loss record has %d entries, at most %d allowed", label, len(parts), core.LossRecordSlots)
	}
	out := make([]int, core.LossRecordSlots)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil || id < 0 {
			return nil, parseErrorf(VersionA, "%s loss record entry %d (%q) is not a non-negative integer", label, i+1, p)
		}
		out[i] = id
	}
	return out, nil
}
