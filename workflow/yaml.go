package workflow

import (
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/taskmesh/core"
	"gopkg.in/yaml.v3"
)

// Parse decodes a workflow definition from YAML and validates it. A missing
// workflow id is generated; task ids must be explicit since dependencies
// reference them.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("failed to decode workflow yaml: %w", err)
	}
	if def.ID == "" {
		def.ID = core.NewID()
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Load decodes and validates a workflow definition from a reader.
func Load(r io.Reader) (Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read workflow: %w", err)
	}
	return Parse(data)
}

// LoadFile decodes and validates a workflow definition from a YAML file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return Parse(data)
}
