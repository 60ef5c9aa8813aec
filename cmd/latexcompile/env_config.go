package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alnah/go-latexcompile/internal/config"
)

const envPrefix = "LATEXCOMPILE_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // LATEXCOMPILE_CONFIG: config file name or path
	Command    string        // LATEXCOMPILE_COMMAND: toolchain executable
	Passes     int           // LATEXCOMPILE_PASSES: toolchain runs
	Timeout    time.Duration // LATEXCOMPILE_TIMEOUT: per-compilation limit
	TempDir    string        // LATEXCOMPILE_TEMP_DIR: workspace parent
	OutputDir  string        // LATEXCOMPILE_OUTPUT_DIR: default output directory
	Workers    int           // LATEXCOMPILE_WORKERS: batch workers
	LogLevel   string        // LATEXCOMPILE_LOG_LEVEL
	LogFormat  string        // LATEXCOMPILE_LOG_FORMAT
}

// knownEnvVars lists valid LATEXCOMPILE_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"LATEXCOMPILE_CONFIG":     true,
	"LATEXCOMPILE_COMMAND":    true,
	"LATEXCOMPILE_PASSES":     true,
	"LATEXCOMPILE_TIMEOUT":    true,
	"LATEXCOMPILE_TEMP_DIR":   true,
	"LATEXCOMPILE_OUTPUT_DIR": true,
	"LATEXCOMPILE_WORKERS":    true,
	"LATEXCOMPILE_LOG_LEVEL":  true,
	"LATEXCOMPILE_LOG_FORMAT": true,
}

// loadEnvFile loads KEY=value pairs from path into the process
// environment. Variables already set are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("LATEXCOMPILE_CONFIG"),
		Command:    os.Getenv("LATEXCOMPILE_COMMAND"),
		TempDir:    os.Getenv("LATEXCOMPILE_TEMP_DIR"),
		OutputDir:  os.Getenv("LATEXCOMPILE_OUTPUT_DIR"),
		LogLevel:   os.Getenv("LATEXCOMPILE_LOG_LEVEL"),
		LogFormat:  os.Getenv("LATEXCOMPILE_LOG_FORMAT"),
	}

	if timeout := os.Getenv("LATEXCOMPILE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if passes := os.Getenv("LATEXCOMPILE_PASSES"); passes != "" {
		if n, err := strconv.Atoi(passes); err == nil && n > 0 {
			cfg.Passes = n
		}
	}
	if workers := os.Getenv("LATEXCOMPILE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Workers = n
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized LATEXCOMPILE_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides config file values with environment values.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Command != "" {
		cfg.Compiler.Command = env.Command
	}
	if env.Passes > 0 {
		cfg.Compiler.Passes = env.Passes
	}
	if env.Timeout > 0 {
		cfg.Compiler.Timeout = env.Timeout.String()
	}
	if env.TempDir != "" {
		cfg.Compiler.TempDir = env.TempDir
	}
	if env.OutputDir != "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.Workers > 0 {
		cfg.Batch.Workers = env.Workers
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
}
