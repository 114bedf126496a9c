package template

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds engine settings loadable from a TOML file. The zero value
// behaves identically to NewEngine.
type Config struct {
	// IncludeRoot is the directory relative {{#include}} paths resolve
	// against. Empty means the working directory.
	IncludeRoot string `toml:"include_root"`

	// PartialDirs are directories of partial templates preloaded into the
	// engine, in order; later directories shadow earlier names.
	PartialDirs []string `toml:"partial_dirs"`

	// DateFormat is the Go layout used by the now/date helpers and the
	// date transform. Empty means RFC 3339.
	DateFormat string `toml:"date_format"`
}

// LoadConfig reads engine settings from a TOML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load engine config %s: %w", path, err)
	}
	return &cfg, nil
}

// NewEngineFromConfig creates an engine and applies the config: include
// root, preloaded partial directories, and date format.
func NewEngineFromConfig(cfg *Config) (*Engine, error) {
	e := NewEngine()
	if cfg == nil {
		return e, nil
	}
	if cfg.IncludeRoot != "" {
		e.includeRoot = cfg.IncludeRoot
	}
	if cfg.DateFormat != "" {
		e.dateFormat = cfg.DateFormat
	}
	for _, dir := range cfg.PartialDirs {
		if err := e.LoadPartialsFromDirectory(dir); err != nil {
			return nil, err
		}
	}
	return e, nil
}
