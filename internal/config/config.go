package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Processing ProcessingConfig `json:"processing"`
	Output     OutputConfig     `json:"output"`
	Log        LogConfig        `json:"log"`
}

// ProcessingConfig holds the crop and encode settings
type ProcessingConfig struct {
	TargetSize     int  `json:"target_size"`
	WorkingMaxSide int  `json:"working_max_side"`
	JPEGQuality    int  `json:"jpeg_quality"`
	Workers        int  `json:"workers"`
	SafeMode       bool `json:"safe_mode"`
	Overwrite      bool `json:"overwrite"`
	Recursive      bool `json:"recursive"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir            string `json:"dir"`
	Suffix         string `json:"suffix"`
	ErrorLogPrefix string `json:"error_log_prefix"`
	DebugDir       string `json:"debug_dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	File    string `json:"file"`
	Verbose bool   `json:"verbose"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Processing: ProcessingConfig{
			TargetSize:     800,
			WorkingMaxSide: 512,
			JPEGQuality:    100,
			Workers:        3,
			Recursive:      true,
		},
		Output: OutputConfig{
			Suffix:         "_800",
			ErrorLogPrefix: "mockup_errors_cli",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads an optional .env file and applies MOCKUP_* overrides.
// A missing .env file is not an error.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return c.ApplyEnv(os.LookupEnv)
}

// ApplyEnv applies MOCKUP_* overrides read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MOCKUP_WORKERS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MOCKUP_WORKERS: %w", err)
		}
		c.Processing.Workers = n
	}

	for name, dst := range map[string]*bool{
		"MOCKUP_SAFE_MODE": &c.Processing.SafeMode,
		"MOCKUP_OVERWRITE": &c.Processing.Overwrite,
		"MOCKUP_VERBOSE":   &c.Log.Verbose,
	} {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}

	if v, ok := lookup("MOCKUP_OUTPUT_DIR"); ok {
		c.Output.Dir = v
	}
	if v, ok := lookup("MOCKUP_LOG_FILE"); ok {
		c.Log.File = v
	}
	return nil
}

// ClampWorkers bounds the worker count to [1, 8]
func (c *Config) ClampWorkers() {
	c.Processing.Workers = max(1, min(c.Processing.Workers, 8))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Processing.TargetSize < 1 {
		return fmt.Errorf("processing.target_size must be positive")
	}

	if c.Processing.WorkingMaxSide < 64 {
		return fmt.Errorf("processing.working_max_side must be at least 64")
	}

	if c.Processing.JPEGQuality < 1 || c.Processing.JPEGQuality > 100 {
		return fmt.Errorf("processing.jpeg_quality must be between 1 and 100")
	}

	if c.Processing.Workers < 1 || c.Processing.Workers > 8 {
		return fmt.Errorf("processing.workers must be between 1 and 8")
	}

	if c.Output.Suffix == "" {
		return fmt.Errorf("output.suffix cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "mockup-crop", "config.json")
}
