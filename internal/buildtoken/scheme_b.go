package buildtoken

import (
	"strings"

	"github.com/stellasora-tools/buildcore/internal/basen"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

const (
	idWidth        = 2
	lossFields     = 2 * core.LossRecordSlots
	lossBlockWidth = lossFields * idWidth

	charSeparator = '_'
	lossSeparator = '-'
)

// MaxSchemeBID is the largest character or loss-record id a 2-char Scheme B field holds.
const MaxSchemeBID = 64*64 - 1

// SchemeB is the field-packed scheme:
//
//	<char>_<char>_<char>-<loss>
//	<char> = <2-char id>{<slot char><level digit>}
//	<loss> = 6 fixed 2-char ids, main then sub
//
// Slot chars 0..3 are core talents, 4..15 are sub talents 0..11. The build name is not carried.
type SchemeB struct{}

func (SchemeB) Version() Version { return VersionB }

// Encode renders b as a single path token.
func (SchemeB) Encode(b core.Build) (string, error) {
	var sb strings.Builder
	for i, c := range b.Characters() {
		role := core.Role(i)
		if i > 0 {
			sb.WriteByte(charSeparator)
		}
		if c.ID == 0 && strings.TrimSpace(c.Name) != "" {
			return "", encodeErrorf(VersionB, "%s identity %q is not a numeric id", role, c.Name)
		}
		id, err := basen.EncodeFixed(c.ID, idWidth)
		if err != nil {
			return "", encodeErrorf(VersionB, "%s id: %v", role, err)
		}
		sb.WriteString(id)

		ct := canonicalTalents(c.Talents)
		if err := checkTalents(VersionB, role, "core", ct.Core, core.CoreSlots); err != nil {
			return "", err
		}
		if err := checkTalents(VersionB, role, "sub", ct.Sub, core.SubSlots); err != nil {
			return "", err
		}
		for _, t := range ct.Core {
			writeTalent(&sb, t.ID, t.Level)
		}
		for _, t := range ct.Sub {
			writeTalent(&sb, core.CoreSlots+t.ID, t.Level)
		}
	}

	sb.WriteByte(lossSeparator)
	for _, rec := range []struct {
		label string
		ids   []int
	}{{"main", b.LossRecord.Main}, {"sub", b.LossRecord.Sub}} {
		if len(rec.ids) != core.LossRecordSlots {
			return "", encodeErrorf(VersionB, "%s loss record needs exactly %d entries, got %d", rec.label, core.LossRecordSlots, len(rec.ids))
		}
		for _, id := range rec.ids {
			s, err := basen.EncodeFixed(id, idWidth)
			if err != nil {
				return "", encodeErrorf(VersionB, "%s loss record: %v", rec.label, err)
			}
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

func writeTalent(sb *strings.Builder, slot, level int) {
	sb.WriteByte(basen.Alphabet[slot])
	sb.WriteByte(byte('0' + level))
}

// Decode parses a Scheme B token.
func (SchemeB) Decode(token string) (core.Build, error) {
	var b core.Build
	if len(token) < lossBlockWidth+1 || token[len(token)-lossBlockWidth-1] != lossSeparator {
		return b, parseErrorf(VersionB, "expected '-' followed by a %d-character loss-record block", lossBlockWidth)
	}
	body := token[:len(token)-lossBlockWidth-1]
	loss := token[len(token)-lossBlockWidth:]

	chars := [3]*core.Character{&b.Main, &b.Supports[0], &b.Supports[1]}
	pos := 0
	for i, c := range chars {
		role := core.Role(i)
		if i > 0 {
			if pos >= len(body) || body[pos] != charSeparator {
				return core.Build{}, parseErrorf(VersionB, "expected 3 characters separated by '_', %s is missing", role)
			}
			pos++
		}
		if pos+idWidth > len(body) {
			return core.Build{}, parseErrorf(VersionB, "%s id is truncated", role)
		}
		id, err := basen.DecodeFixed(body[pos : pos+idWidth])
		if err != nil {
			return core.Build{}, wrapParseError(VersionB, err, "%s id", role)
		}
		c.ID = id
		pos += idWidth

		for pos < len(body) && body[pos] != charSeparator {
			if pos+2 > len(body) {
				return core.Build{}, parseErrorf(VersionB, "%s talent token at position %d is truncated", role, pos)
			}
			slot := basen.DigitValue(body[pos])
			if slot < 0 {
				return core.Build{}, wrapParseError(VersionB, &basen.DecodeError{Input: token, Position: pos, Char: body[pos]}, "%s talent slot", role)
			}
			if slot >= slotsPerChar {
				return core.Build{}, parseErrorf(VersionB, "%s talent slot %d outside 0..%d", role, slot, slotsPerChar-1)
			}
			lc := body[pos+1]
			if lc < '0'+core.MinLevel || lc > '0'+core.MaxLevel {
				return core.Build{}, parseErrorf(VersionB, "%s talent level %q outside %d..%d", role, lc, core.MinLevel, core.MaxLevel)
			}
			t := core.Talent{Level: int(lc - '0')}
			if slot < core.CoreSlots {
				t.ID = slot
				c.Talents.Core = append(c.Talents.Core, t)
			} else {
				t.ID = slot - core.CoreSlots
				c.Talents.Sub = append(c.Talents.Sub, t)
			}
			pos += 2
		}
	}
	if pos != len(body) {
		return core.Build{}, parseErrorf(VersionB, "expected exactly 3 characters, found trailing data at position %d", pos)
	}

	ids := make([]int, lossFields)
	for i := range ids {
		v, err := basen.DecodeFixed(loss[i*idWidth : (i+1)*idWidth])
		if err != nil {
			return core.Build{}, wrapParseError(VersionB, err, "loss record field %d", i+1)
		}
		ids[i] = v
	}
	b.LossRecord = core.LossRecord{
		Main: ids[:core.LossRecordSlots:core.LossRecordSlots],
		Sub:  ids[core.LossRecordSlots:],
	}
	return b, nil
}
