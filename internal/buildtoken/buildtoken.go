// Package buildtoken encodes builds into URL-safe share tokens.
//
// Two wire formats coexist and are kept byte-for-byte compatible with links that
// were already shared: Scheme A packs every talent slot into one base-7 number and
// carries identities and loss records as query parameters, Scheme B packs every field
// into a single path token. Callers pick a scheme by its declared Version.
package buildtoken

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stellasora-tools/buildcore/pkg/core"
)

// Version names a token scheme.
type Version string

const (
	VersionA Version = "a"
	VersionB Version = "b"
)

// ParseVersion accepts "a"/"b" in any case, with or without a "scheme" prefix.
func ParseVersion(s string) (Version, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "scheme")
	switch Version(strings.TrimSpace(v)) {
	case VersionA:
		return VersionA, nil
	case VersionB:
		return VersionB, nil
	}
	return "", fmt.Errorf("unknown build token scheme %q", s)
}

// Scheme is one build token format.
type Scheme interface {
	Version() Version
	Encode(b core.Build) (string, error)
	Decode(token string) (core.Build, error)
}

// For returns the scheme registered for v.
func For(v Version) (Scheme, error) {
	switch v {
	case VersionA:
		return SchemeA{}, nil
	case VersionB:
		return SchemeB{}, nil
	}
	return nil, fmt.Errorf("unknown build token scheme %q", v)
}

// BuildParseError is returned for any malformed token.
type BuildParseError struct {
	Scheme  Version
	Message string
	Err     error
}

func (e *BuildParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scheme %s: %s: %v", e.Scheme, e.Message, e.Err)
	}
	return fmt.Sprintf("scheme %s: %s", e.Scheme, e.Message)
}

func (e *BuildParseError) Unwrap() error {
	return e.Err
}

func parseErrorf(v Version, format string, args ...any) error {
	return &BuildParseError{Scheme: v, Message: fmt.Sprintf(format, args...)}
}

func wrapParseError(v Version, err error, format string, args ...any) error {
	return &BuildParseError{Scheme: v, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsParseError reports whether err is (or wraps) a BuildParseError.
func IsParseError(err error) bool {
	var pe *BuildParseError
	return errors.As(err, &pe)
}

// EncodeError is returned when a build cannot be represented in a scheme at all,
// e.g. a talent id outside its category.
type EncodeError struct {
	Scheme  Version
	Message string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("scheme %s: cannot encode: %s", e.Scheme, e.Message)
}

func encodeErrorf(v Version, format string, args ...any) error {
	return &EncodeError{Scheme: v, Message: fmt.Sprintf(format, args...)}
}

func checkTalents(v Version, role string, kind string, talents []core.Talent, slots int) error {
	for _, t := range talents {
		if t.ID < 0 || t.ID >= slots {
			return encodeErrorf(v, "%s %s talent id %d outside 0..%d", role, kind, t.ID, slots-1)
		}
		if t.Level < core.MinLevel || t.Level > core.MaxLevel {
			return encodeErrorf(v, "%s %s talent %d level %d outside %d..%d", role, kind, t.ID, t.Level, core.MinLevel, core.MaxLevel)
		}
	}
	return nil
}

// Canonical returns a copy of b with talents sorted by id, the order decoders produce.
func Canonical(b core.Build) core.Build {
	out := b
	out.Main.Talents = canonicalTalents(b.Main.Talents)
	for i := range out.Supports {
		out.Supports[i].Talents = canonicalTalents(b.Supports[i].Talents)
	}
	out.LossRecord = core.LossRecord{
		Main: append([]int(nil), b.LossRecord.Main...),
		Sub:  append([]int(nil), b.LossRecord.Sub...),
	}
	return out
}

func canonicalTalents(ct core.CharacterTalents) core.CharacterTalents {
	return core.CharacterTalents{Core: sortedTalents(ct.Core), Sub: sortedTalents(ct.Sub)}
}

func sortedTalents(ts []core.Talent) []core.Talent {
	if len(ts) == 0 {
		return nil
	}
	out := append([]core.Talent(nil), ts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
