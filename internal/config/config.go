// Package config loads and validates the gridcore host configuration.
//
// Configuration comes from ~/.gridcore/config.yaml (or $GRIDCORE_HOME),
// shallow-merged onto built-in defaults. CLI flags override the loaded
// values after the fact.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rshade/gridcore/selection"
	"github.com/rshade/gridcore/sortorder"
)

// Default values applied before any config file is read.
const (
	defaultPageSize       = 50
	defaultBuffer         = 10
	defaultProbeIncrement = 100
	defaultSelectionMode  = "multi"
	defaultDemoRows       = 10000
	defaultLogLevel       = "info"
)

// Config is the root configuration document.
type Config struct {
	Grid    GridConfig    `yaml:"grid"`
	Logging LoggingConfig `yaml:"logging"`
	Demo    DemoConfig    `yaml:"demo"`
}

// GridConfig tunes the synchronization engine.
type GridConfig struct {
	PageSize         int    `yaml:"page_size"`
	Buffer           int    `yaml:"buffer"`
	ProbeIncrement   int    `yaml:"probe_increment"`
	SelectionMode    string `yaml:"selection_mode"`
	DeselectAllowed  bool   `yaml:"deselect_allowed"`
	MultiSort        bool   `yaml:"multi_sort"`
	ExclusiveDetails bool   `yaml:"exclusive_details"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DemoConfig configures the browse demo dataset.
type DemoConfig struct {
	// Rows is the size of the generated dataset when no URL is set.
	Rows int `yaml:"rows"`
	// Sort holds initial sort expressions ("name", "version:desc").
	Sort []string `yaml:"sort"`
	// URL, when set, points the browse command at a remote paged endpoint
	// instead of the generated dataset.
	URL string `yaml:"url"`
}

// New creates a Config with defaults, then shallow-merges the user config
// file on top when one exists. A broken config file is not fatal; the
// defaults are returned and the error is left to Validate at use time.
func New() *Config {
	cfg := &Config{
		Grid: GridConfig{
			PageSize:       defaultPageSize,
			Buffer:         defaultBuffer,
			ProbeIncrement: defaultProbeIncrement,
			SelectionMode:  defaultSelectionMode,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
		Demo: DemoConfig{
			Rows: defaultDemoRows,
		},
	}

	dir, err := GetConfigDir()
	if err != nil {
		return cfg
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	_ = ShallowMergeYAML(cfg, path)
	return cfg
}

// Validate checks the configuration for values the engine would reject.
func (c *Config) Validate() error {
	if c.Grid.PageSize <= 0 {
		return fmt.Errorf("grid.page_size must be > 0, got %d", c.Grid.PageSize)
	}
	if c.Grid.Buffer < 0 {
		return fmt.Errorf("grid.buffer must be >= 0, got %d", c.Grid.Buffer)
	}
	if c.Grid.ProbeIncrement <= 0 {
		return fmt.Errorf("grid.probe_increment must be > 0, got %d", c.Grid.ProbeIncrement)
	}
	if _, err := selection.ParseMode(c.Grid.SelectionMode); err != nil {
		return fmt.Errorf("grid.selection_mode: %w", err)
	}
	if c.Demo.Rows < 0 {
		return fmt.Errorf("demo.rows must be >= 0, got %d", c.Demo.Rows)
	}
	for _, expr := range c.Demo.Sort {
		if _, _, err := sortorder.ParseExpression(expr); err != nil {
			return fmt.Errorf("demo.sort: %w", err)
		}
	}
	return nil
}

// SelectionMode returns the parsed selection mode. Call Validate first;
// an unparsable mode falls back to multi.
func (c *Config) SelectionMode() selection.Mode {
	mode, err := selection.ParseMode(c.Grid.SelectionMode)
	if err != nil {
		return selection.ModeMulti
	}
	return mode
}

// GlobalConfig holds the global configuration instance.
var GlobalConfig *Config        //nolint:gochecknoglobals // Singleton pattern for configuration
var globalConfigMu sync.RWMutex //nolint:gochecknoglobals // Protects globalConfigInit flag
var globalConfigInit bool       //nolint:gochecknoglobals // Tracks if global config has been initialized

// InitGlobalConfig initializes the global configuration.
func InitGlobalConfig() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	if globalConfigInit {
		return
	}

	GlobalConfig = New()
	globalConfigInit = true
}

// ResetGlobalConfigForTest resets the global config for testing purposes.
func ResetGlobalConfigForTest() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	GlobalConfig = nil
	globalConfigInit = false
}

// GetGlobalConfig returns the global configuration, initializing it if needed.
func GetGlobalConfig() *Config {
	InitGlobalConfig()
	return GlobalConfig
}

// GetLogLevel returns the configured log level.
func GetLogLevel() string {
	cfg := GetGlobalConfig()
	return cfg.Logging.Level
}

// GetLogFile returns the configured log file path.
func GetLogFile() string {
	cfg := GetGlobalConfig()
	return cfg.Logging.File
}

// GetConfigDir returns the path to the gridcore configuration directory.
func GetConfigDir() (string, error) {
	if gcHome := os.Getenv("GRIDCORE_HOME"); gcHome != "" {
		return gcHome, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gridcore"), nil
}

// EnsureConfigDir ensures the gridcore configuration directory exists.
func EnsureConfigDir() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// EnsureLogDir ensures the directory for the configured log file exists.
// If no log file is configured, it does nothing.
func EnsureLogDir() error {
	cfg := GetGlobalConfig()
	if cfg.Logging.File == "" {
		return nil
	}
	logDir := filepath.Dir(cfg.Logging.File)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}
