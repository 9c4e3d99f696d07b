// Package validate checks the structural rules of a build.
//
// Validation never fails: every violation is collected into Result.Errors in a stable
// order (identities, talent counts, talent ids, levels, duplicates, loss records) so
// callers can render the whole list at once. A build that validates for a scheme
// always encodes in it.
package validate

import (
	"fmt"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/buildtoken"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// Result is the outcome of Validate.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Err returns the violations as a *ValidationError, or nil when the build is valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Errors: append([]string(nil), r.Errors...)}
}

// ValidationError carries the violation list for callers that want an error value.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid build: " + strings.Join(e.Errors, "; ")
}

// Validate checks b against the rules of scheme v. Loss-record counts are only
// enforced for VersionB; VersionA accepts partial loss lists.
func Validate(b core.Build, v buildtoken.Version) Result {
	var errs []string
	chars := b.Characters()

	for i, c := range chars {
		switch {
		case !c.HasIdentity():
			errs = append(errs, fmt.Sprintf("%s: character is required", core.Role(i)))
		case v != buildtoken.VersionB:
		case c.ID == 0:
			errs = append(errs, fmt.Sprintf("%s: character %q has no numeric id", core.Role(i), c.Name))
		case c.ID < 0 || c.ID > buildtoken.MaxSchemeBID:
			errs = append(errs, fmt.Sprintf("%s: character id %d outside 1..%d", core.Role(i), c.ID, buildtoken.MaxSchemeBID))
		}
	}

	for i, c := range chars {
		maxSub := core.MaxSupportSubTalents
		if i == 0 {
			maxSub = core.MaxMainSubTalents
		}
		if n := len(c.Talents.Core); n > core.MaxCoreTalents {
			errs = append(errs, fmt.Sprintf("%s: %d core talents selected, at most %d allowed", core.Role(i), n, core.MaxCoreTalents))
		}
		if n := len(c.Talents.Sub); n > maxSub {
			errs = append(errs, fmt.Sprintf("%s: %d sub talents selected, at most %d allowed", core.Role(i), n, maxSub))
		}
	}

	for i, c := range chars {
		errs = append(errs, idErrors(core.Role(i), "core", c.Talents.Core, core.CoreSlots)...)
		errs = append(errs, idErrors(core.Role(i), "sub", c.Talents.Sub, core.SubSlots)...)
	}

	for i, c := range chars {
		errs = append(errs, levelErrors(core.Role(i), "core", c.Talents.Core)...)
		errs = append(errs, levelErrors(core.Role(i), "sub", c.Talents.Sub)...)
	}

	for i, c := range chars {
		errs = append(errs, duplicateErrors(core.Role(i), "core", c.Talents.Core)...)
		errs = append(errs, duplicateErrors(core.Role(i), "sub", c.Talents.Sub)...)
	}

	for _, rec := range []struct {
		kind string
		ids  []int
	}{{"main", b.LossRecord.Main}, {"sub", b.LossRecord.Sub}} {
		errs = append(errs, lossErrors(rec.kind, rec.ids, v)...)
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func idErrors(role, kind string, talents []core.Talent, slots int) []string {
	var out []string
	for _, t := range talents {
		if t.ID < 0 || t.ID >= slots {
			out = append(out, fmt.Sprintf("%s: %s talent id %d outside 0..%d", role, kind, t.ID, slots-1))
		}
	}
	return out
}

// lossErrors checks one loss-record list. Scheme B carries exactly LossRecordSlots
// fixed-width ids; Scheme A carries up to LossRecordSlots.
func lossErrors(kind string, ids []int, v buildtoken.Version) []string {
	var out []string
	n := len(ids)
	switch {
	case v == buildtoken.VersionB && n != core.LossRecordSlots:
		out = append(out, fmt.Sprintf("loss record: %d %s entries, exactly %d required", n, kind, core.LossRecordSlots))
	case n > core.LossRecordSlots:
		out = append(out, fmt.Sprintf("loss record: %d %s entries, at most %d allowed", n, kind, core.LossRecordSlots))
	}
	for _, id := range ids {
		switch {
		case id < 0:
			out = append(out, fmt.Sprintf("loss record: %s id %d is negative", kind, id))
		case v == buildtoken.VersionB && id > buildtoken.MaxSchemeBID:
			out = append(out, fmt.Sprintf("loss record: %s id %d above %d", kind, id, buildtoken.MaxSchemeBID))
		}
	}
	return out
}

func levelErrors(role, kind string, talents []core.Talent) []string {
	var out []string
	for _, t := range talents {
		if t.Level < core.MinLevel || t.Level > core.MaxLevel {
			out = append(out, fmt.Sprintf("%s: %s talent %d level %d outside %d..%d", role, kind, t.ID, t.Level, core.MinLevel, core.MaxLevel))
		}
	}
	return out
}

func duplicateErrors(role, kind string, talents []core.Talent) []string {
	var out []string
	seen := make(map[int]bool, len(talents))
	for _, t := range talents {
		if seen[t.ID] {
			out = append(out, fmt.Sprintf("%s: %s talent %d selected more than once", role, kind, t.ID))
			continue
		}
		seen[t.ID] = true
	}
	return out
}
