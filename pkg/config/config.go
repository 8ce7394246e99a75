package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for bookdl
type Config struct {
	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Progress tracking and display settings
	Progress ProgressConfig `yaml:"progress" json:"progress"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ProgressConfig holds progress tracking configuration
type ProgressConfig struct {
	Incremental bool   `yaml:"incremental" json:"incremental"`
	Display     string `yaml:"display" json:"display"`
	BarWidth    int    `yaml:"bar_width" json:"bar_width"`
	ClearLines  int    `yaml:"clear_lines" json:"clear_lines"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Display modes
const (
	DisplayBar  = "bar"
	DisplayTUI  = "tui"
	DisplayNone = "none"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			BaseDirectory: "./books",
		},
		Progress: ProgressConfig{
			Incremental: false,
			Display:     DisplayBar,
			BarWidth:    40,
			ClearLines:  2,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if outputDir := os.Getenv("BOOKDL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if incremental := os.Getenv("BOOKDL_INCREMENTAL"); incremental != "" {
		val, err := strconv.ParseBool(incremental)
		if err != nil {
			return fmt.Errorf("invalid BOOKDL_INCREMENTAL value %q: %w", incremental, err)
		}
		c.Progress.Incremental = val
	}

	if display := os.Getenv("BOOKDL_DISPLAY"); display != "" {
		c.Progress.Display = strings.ToLower(display)
	}

	if width := os.Getenv("BOOKDL_BAR_WIDTH"); width != "" {
		val, err := strconv.Atoi(width)
		if err != nil {
			return fmt.Errorf("invalid BOOKDL_BAR_WIDTH value %q: %w", width, err)
		}
		c.Progress.BarWidth = val
	}

	if logLevel := os.Getenv("BOOKDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("BOOKDL_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	c.Progress.Display = strings.ToLower(c.Progress.Display)

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".bookdl.yaml",
		".bookdl.yml",
		filepath.Join(home, ".config", "bookdl", "config.yaml"),
		filepath.Join(home, ".config", "bookdl", "config.yml"),
		filepath.Join(home, ".bookdl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validDisplays := map[string]bool{
		DisplayBar: true, DisplayTUI: true, DisplayNone: true,
	}
	if !validDisplays[strings.ToLower(c.Progress.Display)] {
		errs = append(errs, fmt.Errorf("invalid display mode %q", c.Progress.Display))
	}
	if c.Progress.BarWidth <= 0 {
		errs = append(errs, errors.New("bar width must be positive"))
	}
	if c.Progress.ClearLines < 0 {
		errs = append(errs, errors.New("clear lines cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if incremental, ok := flags["incremental"].(bool); ok {
		c.Progress.Incremental = incremental
	}
	if display, ok := flags["display"].(string); ok && display != "" {
		c.Progress.Display = strings.ToLower(display)
	}
	if width, ok := flags["bar-width"].(int); ok && width > 0 {
		c.Progress.BarWidth = width
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".bookdl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
