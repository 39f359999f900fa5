// Package config provides configuration loading and management for labelseg.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"labelseg/pkg/neighborhood"
	"labelseg/pkg/watershed"
)

// ErrInvalidConfig indicates a configuration value outside its allowed set.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Labeling parameters for connected-component extraction
	Labeling struct {
		// Connectivity is 4 or 8 for images; volumes always use 26
		Connectivity int `yaml:"connectivity"`

		// DropBackground removes the background region from extracted region sets
		DropBackground bool `yaml:"dropBackground"`

		// MinRegionSize hides regions with fewer pixels from reports
		MinRegionSize int `yaml:"minRegionSize"`

		// Threshold turns grayscale input into foreground where intensity > Threshold
		Threshold float64 `yaml:"threshold"`
	} `yaml:"labeling"`

	// Watershed parameters
	Watershed struct {
		// Variant is "interpixel" or "pixel"
		Variant string `yaml:"variant"`

		// Prune discards flat plateaus that are not true minima
		Prune bool `yaml:"prune"`
	} `yaml:"watershed"`

	// Batch parameters
	Batch struct {
		// NumWorkers bounds how many images are processed at once
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"batch"`

	// Output parameters
	Output struct {
		// Dir receives rendered label images
		Dir string `yaml:"dir"`

		// SaveVisualization writes a compacted label image per input
		SaveVisualization bool `yaml:"saveVisualization"`

		// Verbose also logs per-region details
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Log parameters
	Log struct {
		// Level is a logrus level name
		Level string `yaml:"level"`

		// JSON selects the JSON formatter
		JSON bool `yaml:"json"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Labeling.Connectivity = int(neighborhood.Conn8)
	cfg.Labeling.DropBackground = true
	cfg.Labeling.MinRegionSize = 1
	cfg.Labeling.Threshold = 0.5

	cfg.Watershed.Variant = watershed.InterPixel.String()
	cfg.Watershed.Prune = true

	cfg.Batch.NumWorkers = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Dir = "labelseg_output"
	cfg.Output.SaveVisualization = false
	cfg.Output.Verbose = false

	cfg.Log.Level = "info"
	cfg.Log.JSON = false

	return cfg
}

// Connectivity returns the configured 2D connectivity.
func (c *Config) Connectivity() neighborhood.Connectivity {
	return neighborhood.Connectivity(c.Labeling.Connectivity)
}

// WatershedVariant parses the configured variant name.
func (c *Config) WatershedVariant() (watershed.Variant, error) {
	switch c.Watershed.Variant {
	case watershed.InterPixel.String():
		return watershed.InterPixel, nil
	case watershed.PixelLevel.String():
		return watershed.PixelLevel, nil
	}
	return 0, fmt.Errorf("%w: unknown watershed variant %q", ErrInvalidConfig, c.Watershed.Variant)
}

// Validate checks every field with a restricted value set.
func (c *Config) Validate() error {
	if err := c.Connectivity().Validate2D(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.WatershedVariant(); err != nil {
		return err
	}
	if c.Batch.NumWorkers < 1 {
		return fmt.Errorf("%w: numWorkers must be at least 1, got %d", ErrInvalidConfig, c.Batch.NumWorkers)
	}
	if c.Labeling.MinRegionSize < 0 {
		return fmt.Errorf("%w: minRegionSize must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
