package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	latexcompile "github.com/alnah/go-latexcompile"
	"github.com/alnah/go-latexcompile/internal/config"
	"github.com/alnah/go-latexcompile/internal/hints"
	"github.com/alnah/go-latexcompile/internal/sink"
)

// loadConfig resolves the configuration every command starts from:
// config file (or env.Config), then LATEXCOMPILE_* variables, then the
// common flags. Command-specific flags are merged by the caller.
func loadConfig(common *commonFlags, env *Environment) (*config.Config, error) {
	if err := loadEnvFile(common.envFile); err != nil {
		return nil, err
	}
	if !common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}
	envCfg := loadEnvConfig()

	name := common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	var cfg *config.Config
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = cloneConfig(env.Config)
	}

	applyEnvConfig(envCfg, cfg)
	if common.logFormat != "" {
		cfg.Log.Format = common.logFormat
	}
	switch {
	case common.verbose:
		cfg.Log.Level = "debug"
	case common.quiet:
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// cloneConfig copies base so commands can merge flags into it freely.
func cloneConfig(base *config.Config) *config.Config {
	if base == nil {
		return config.DefaultConfig()
	}
	cfg := *base
	cfg.Compiler.Args = slices.Clone(base.Compiler.Args)
	cfg.Values = maps.Clone(base.Values)
	return &cfg
}

// newLogger builds the CLI's slog logger on w.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newCompiler validates cfg and builds a Compiler from it.
func newCompiler(cfg *config.Config, logger *slog.Logger) (*latexcompile.Compiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := cfg.Compiler.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	opts := []latexcompile.Option{
		latexcompile.WithTimeout(timeout),
		latexcompile.WithLogger(logger),
	}
	if cfg.Compiler.Command != "" {
		opts = append(opts, latexcompile.WithCommand(cfg.Compiler.Command))
	}
	if cfg.Compiler.Args != nil {
		opts = append(opts, latexcompile.WithArgs(cfg.Compiler.Args...))
	}
	if cfg.Compiler.Passes > 0 {
		opts = append(opts, latexcompile.WithPasses(cfg.Compiler.Passes))
	}
	if cfg.Compiler.TempDir != "" {
		opts = append(opts, latexcompile.WithTempDir(cfg.Compiler.TempDir))
	}
	return latexcompile.NewCompiler(opts...)
}

// withHints appends actionable hints to errors users can fix themselves.
func withHints(err error, command string) error {
	var hint string
	switch {
	case errors.Is(err, latexcompile.ErrCompilerNotFound):
		hint = hints.ForCompilerNotFound(command)
	case errors.Is(err, context.DeadlineExceeded):
		hint = hints.ForTimeout()
	case isMissingOutput(err):
		hint = hints.ForMissingOutput()
	case errors.Is(err, latexcompile.ErrCompile):
		hint = hints.ForCompileError()
	case errors.Is(err, sink.ErrUpload):
		hint = hints.ForS3Credentials()
	case errors.Is(err, sink.ErrWrite):
		hint = hints.ForOutputDirectory()
	}
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}

func isMissingOutput(err error) bool {
	var ce *latexcompile.CompileError
	return errors.As(err, &ce) && ce.MissingOutput
}
