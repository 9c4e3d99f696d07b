package effectfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/stellasora-tools/buildcore/pkg/core"
	"gopkg.in/yaml.v3"
)

// LoadBuild reads a build document, the input of the encode command.
func LoadBuild(path string) (core.Build, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Build{}, fmt.Errorf("failed to open build file: %w", err)
	}
	defer f.Close()

	b, err := DecodeBuild(f, FormatFor(path))
	if err != nil {
		return core.Build{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// DecodeBuild parses a build document. Unknown keys are rejected.
func DecodeBuild(r io.Reader, format Format) (core.Build, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Build{}, fmt.Errorf("failed to read build document: %w", err)
	}

	var b core.Build
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return core.Build{}, fmt.Errorf("invalid JSON build document: %w", err)
		}
	case FormatYAML:
		if len(bytes.TrimSpace(data)) == 0 {
			return core.Build{}, fmt.Errorf("empty build document")
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil {
			return core.Build{}, fmt.Errorf("invalid YAML build document: %w", err)
		}
	default:
		return core.Build{}, fmt.Errorf("unknown build document format %q", format)
	}
	return b, nil
}
