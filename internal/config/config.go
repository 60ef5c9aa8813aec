package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-latexcompile/internal/template"
	"github.com/alnah/go-latexcompile/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field limits for multi-tenant safety.
const (
	MaxCommandLength = 4096 // executable name or absolute path
	MaxArgs          = 32
	MaxArgLength     = 256
	MaxPathLength    = 4096
	MaxPasses        = 5
	MaxWorkers       = 64
	MaxValues        = 1000
	MaxKeyLength     = 128
	MaxValueLength   = 64 << 10 // a value may hold a whole LaTeX fragment
	MaxTimeout       = time.Hour
)

// appDir is the directory name under the user config dir.
const appDir = "go-latexcompile"

// Config holds the CLI's persistent settings.
type Config struct {
	Compiler CompilerConfig    `yaml:"compiler"`
	Output   OutputConfig      `yaml:"output"`
	Batch    BatchConfig       `yaml:"batch"`
	Log      LogConfig         `yaml:"log"`
	Values   map[string]string `yaml:"values"` // defaults for every ##key##, overridden per run
}

// CompilerConfig selects and tunes the TeX toolchain.
type CompilerConfig struct {
	Command string   `yaml:"command"` // empty = pdflatex
	Args    []string `yaml:"args"`    // nil = library defaults
	Passes  int      `yaml:"passes"`  // 0 = 1
	Timeout string   `yaml:"timeout"` // Go duration ("90s"); empty = none
	TempDir string   `yaml:"tempDir"` // empty = OS temp dir
}

// OutputConfig defines where PDFs go when -o is omitted.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = next to the main file
}

// BatchConfig defines batch defaults.
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 = auto
}

// LogConfig defines diagnostics output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Validate checks value ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("compiler.command", c.Compiler.Command, MaxCommandLength); err != nil {
		return err
	}
	if len(c.Compiler.Args) > MaxArgs {
		return fmt.Errorf("%w: compiler.args: %d arguments (max %d)", ErrInvalidValue, len(c.Compiler.Args), MaxArgs)
	}
	for i, arg := range c.Compiler.Args {
		if err := validateFieldLength(fmt.Sprintf("compiler.args[%d]", i), arg, MaxArgLength); err != nil {
			return err
		}
	}
	if c.Compiler.Passes < 0 || c.Compiler.Passes > MaxPasses {
		return fmt.Errorf("%w: compiler.passes: must be between 1 and %d, got %d", ErrInvalidValue, MaxPasses, c.Compiler.Passes)
	}
	if _, err := c.Compiler.TimeoutDuration(); err != nil {
		return err
	}
	if err := validateFieldLength("compiler.tempDir", c.Compiler.TempDir, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}

	if c.Batch.Workers < 0 || c.Batch.Workers > MaxWorkers {
		return fmt.Errorf("%w: batch.workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Batch.Workers)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level: %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format: %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return ValidateValues("values", c.Values)
}

// ValidateValues checks a placeholder mapping: key charset, key and value
// lengths, and entry count. field prefixes error messages.
func ValidateValues(field string, values map[string]string) error {
	if len(values) > MaxValues {
		return fmt.Errorf("%w: %s: %d entries (max %d)", ErrInvalidValue, field, len(values), MaxValues)
	}
	for k, v := range values {
		if err := validateFieldLength(field+" key", k, MaxKeyLength); err != nil {
			return err
		}
		if !template.ValidKey(k) {
			return fmt.Errorf("%w: %s: key %q (letters, digits, '_' and '-' only)", ErrInvalidValue, field, k)
		}
		if err := validateFieldLength(field+"."+k, v, MaxValueLength); err != nil {
			return err
		}
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means no timeout.
func (c CompilerConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: compiler.timeout: %v", ErrInvalidValue, err)
	}
	if d < 0 || d > MaxTimeout {
		return 0, fmt.Errorf("%w: compiler.timeout: must be between 0 and %v, got %v", ErrInvalidValue, MaxTimeout, d)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration that defers every choice to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{},
		Output:   OutputConfig{DefaultDir: ""},
		Batch:    BatchConfig{Workers: 0},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := yamlutil.DecodeFile(configPath, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists where a config name is looked up, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDir, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file among SearchPaths(name).
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
