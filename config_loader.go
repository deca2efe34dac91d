package sqltrace

import (
	"github.com/arloliu/fuda"
)

// LoadConfig loads Config from a file path.
// It supports YAML and JSON formats.
// Environment variables are also parsed and override file values.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	// fuda.LoadFile handles reading, parsing, env vars, defaults, and validation
	if err := fuda.LoadFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseConfig parses Config from a byte slice.
// It supports YAML and JSON formats (auto-detected).
// Environment variables are also parsed and override file values.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	// fuda.LoadBytes handles parsing, env vars, defaults, and validation
	if err := fuda.LoadBytes(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
