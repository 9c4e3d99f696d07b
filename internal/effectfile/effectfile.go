// Package effectfile loads effect lists and damage parameters from YAML or JSON
// files. Unknown keys are rejected in both formats.
package effectfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stellasora-tools/buildcore/internal/damage"
	"github.com/stellasora-tools/buildcore/pkg/core"
	"gopkg.in/yaml.v3"
)

// Format of an input document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// File is the document layout. A document may also be a bare list of effects.
type File struct {
	// Build optionally names the saved build (name, id or share token) the effects
	// belong to.
	Build   string            `json:"build,omitempty" yaml:"build,omitempty"`
	Effects []core.EffectInfo `json:"effects" yaml:"effects"`
	Damage  *damage.Params    `json:"damage,omitempty" yaml:"damage,omitempty"`
	DPS     *damage.DPSParams `json:"dps,omitempty" yaml:"dps,omitempty"`
}

// FormatFor picks the format from a file extension, defaulting to YAML
// (which also accepts JSON documents).
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and validates a file.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to open effect file: %w", err)
	}
	defer f.Close()

	out, err := Decode(f, FormatFor(path))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Decode parses a document in the given format and validates its effects.
func Decode(r io.Reader, format Format) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("failed to read effect document: %w", err)
	}

	var out File
	switch format {
	case FormatJSON:
		out, err = decodeJSON(data)
	case FormatYAML:
		out, err = decodeYAML(data)
	default:
		return File{}, fmt.Errorf("unknown effect document format %q", format)
	}
	if err != nil {
		return File{}, err
	}

	if err := ValidateEffects(out.Effects); err != nil {
		return File{}, err
	}
	return out, nil
}

func decodeJSON(data []byte) (File, error) {
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var out File
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := dec.Decode(&out.Effects); err != nil {
			return File{}, fmt.Errorf("invalid JSON effect list: %w", err)
		}
		return out, nil
	}
	if err := dec.Decode(&out); err != nil {
		return File{}, fmt.Errorf("invalid JSON effect document: %w", err)
	}
	return out, nil
}

func decodeYAML(data []byte) (File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return File{}, fmt.Errorf("invalid YAML effect document: %w", err)
	}

	var out File
	if len(root.Content) == 0 {
		return out, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var target any = &out
	if root.Content[0].Kind == yaml.SequenceNode {
		target = &out.Effects
	}
	if err := dec.Decode(target); err != nil {
		return File{}, fmt.Errorf("invalid YAML effect document: %w", err)
	}
	return out, nil
}

// ValidateEffects checks units and stacks. Every problem is reported.
func ValidateEffects(effects []core.EffectInfo) error {
	var errs []error
	for i, e := range effects {
		label := e.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if !e.Type.Valid() {
			errs = append(errs, fmt.Errorf("effect %s: unknown type", label))
		}
		if !e.Unit.Valid() {
			errs = append(errs, fmt.Errorf("effect %s: unknown unit %q", label, e.Unit))
		}
		if e.MaxStacks < 0 {
			errs = append(errs, fmt.Errorf("effect %s: negative max stacks %d", label, e.MaxStacks))
		}
	}
	return errors.Join(errs...)
}

// Write encodes f in the given format.
func Write(w io.Writer, f File, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown effect document format %q", format)
	}
}
