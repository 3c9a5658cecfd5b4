// Package config loads the runtime settings of the simulation.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-backed runtime configuration. Fields absent from the
// file keep their Default value; fields set explicitly, zero included, are
// taken as written and validated.
type Config struct {
	Seed int64 `yaml:"seed"`

	ChunkSize         int  `yaml:"chunk_size"`
	ChunkRadius       int  `yaml:"chunk_radius"`
	ChunkHysteresis   int  `yaml:"chunk_hysteresis"`
	GenBudget         int  `yaml:"gen_budget_per_tick"`
	VerifyDeterminism bool `yaml:"verify_determinism"`

	CellSize   int `yaml:"cell_size"`
	FOVRadius  int `yaml:"fov_radius"`
	NumBatches int `yaml:"num_batches"`

	Debug          bool   `yaml:"debug"`
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`

	// DBPath is the SQLite database; empty keeps everything in memory.
	DBPath        string `yaml:"db_path"`
	SnapshotPath  string `yaml:"snapshot_path"`
	TemplatesPath string `yaml:"templates_path"`
	// StaticMapsPath names a YAML file of hand-authored chunk layouts.
	StaticMapsPath string `yaml:"static_maps"`
}

// Default returns a runnable configuration.
func Default() Config {
	return Config{
		Seed:            1,
		ChunkSize:       32,
		ChunkRadius:     2,
		ChunkHysteresis: 1,
		GenBudget:       4,
		CellSize:        16,
		FOVRadius:       8,
		NumBatches:      4,
		LogLevel:        "info",
	}
}

// Load reads path over Default.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize < 16 {
		errs = append(errs, fmt.Errorf("chunk_size %d: must be at least 16", c.ChunkSize))
	}
	if c.ChunkRadius < 0 {
		errs = append(errs, fmt.Errorf("chunk_radius %d: must not be negative", c.ChunkRadius))
	}
	if c.ChunkHysteresis < 0 {
		errs = append(errs, fmt.Errorf("chunk_hysteresis %d: must not be negative", c.ChunkHysteresis))
	}
	if c.GenBudget < 1 {
		errs = append(errs, fmt.Errorf("gen_budget_per_tick %d: must be positive", c.GenBudget))
	}
	if c.CellSize < 1 {
		errs = append(errs, fmt.Errorf("cell_size %d: must be positive", c.CellSize))
	}
	if c.FOVRadius < 1 {
		errs = append(errs, fmt.Errorf("fov_radius %d: must be positive", c.FOVRadius))
	}
	if c.NumBatches < 1 {
		errs = append(errs, fmt.Errorf("num_batches %d: must be positive", c.NumBatches))
	}
	if c.LogLevel == "" {
		errs = append(errs, errors.New("log_level: must not be empty"))
	}
	return errors.Join(errs...)
}
