package ranking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type levelsFile struct {
	Levels []Level `yaml:"levels"`
}

// Parse reads a YAML document with a top-level "levels" list and
// validates it into a table.
func Parse(data []byte) (*Table, error) {
	var f levelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse levels: %w", err)
	}
	return NewTable(f.Levels)
}

// LoadFile loads a table from path. An empty path returns the built-in table.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels file: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("levels file %s: %w", path, err)
	}
	return t, nil
}
