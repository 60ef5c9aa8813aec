package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-latexcompile/internal/config"
	"github.com/alnah/go-latexcompile/internal/template"
	"github.com/alnah/go-latexcompile/internal/yamlutil"
)

// Sentinel errors for command-line parsing.
var (
	ErrUsage      = errors.New("invalid usage")
	ErrInvalidVar = errors.New("invalid --var (want key=value)")
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	envFile   string
	logFormat string
	quiet     bool
	verbose   bool
}

// compilerFlags holds toolchain selection flags.
type compilerFlags struct {
	command string
	args    []string
	passes  int
	timeout time.Duration
	tempDir string
}

// valueFlags holds placeholder value flags.
type valueFlags struct {
	vars     []string
	varsFile string
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", "", "load environment variables from a .env file")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only print errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

func addCompilerFlags(fs *flag.FlagSet, f *compilerFlags) {
	fs.StringVar(&f.command, "command", "", "toolchain executable (default pdflatex)")
	fs.StringArrayVar(&f.args, "arg", nil, "toolchain argument, repeatable (replaces the defaults)")
	fs.IntVar(&f.passes, "passes", 0, "number of toolchain runs (1-5)")
	fs.DurationVar(&f.timeout, "timeout", 0, "wall-clock limit per compilation (0 = none)")
	fs.StringVar(&f.tempDir, "temp-dir", "", "parent directory for workspaces")
}

func addValueFlags(fs *flag.FlagSet, f *valueFlags) {
	fs.StringArrayVar(&f.vars, "var", nil, "placeholder value key=value, repeatable")
	fs.StringVar(&f.varsFile, "vars", "", "YAML file of placeholder values")
}

// newFlagSet creates a FlagSet that reports errors instead of exiting.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	fs.SortFlags = false
	return fs
}

// parseFlagSet parses args, wrapping parse failures in ErrUsage.
func parseFlagSet(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

// mergeCompilerFlags overrides cfg with the flags the user actually set.
func mergeCompilerFlags(fs *flag.FlagSet, f *compilerFlags, cfg *config.Config) {
	if fs.Changed("command") {
		cfg.Compiler.Command = f.command
	}
	if fs.Changed("arg") {
		cfg.Compiler.Args = f.args
	}
	if fs.Changed("passes") {
		cfg.Compiler.Passes = f.passes
	}
	if fs.Changed("timeout") {
		cfg.Compiler.Timeout = f.timeout.String()
	}
	if fs.Changed("temp-dir") {
		cfg.Compiler.TempDir = f.tempDir
	}
}

// parseVar splits "key=value". The value may contain '='.
func parseVar(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || !template.ValidKey(key) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidVar, s)
	}
	return key, value, nil
}

// resolveValues layers placeholder values: config, then --vars file, then
// each --var in order.
func resolveValues(base map[string]string, f *valueFlags) (map[string]string, error) {
	values := make(map[string]string, len(base)+len(f.vars))
	for k, v := range base {
		values[k] = v
	}

	if f.varsFile != "" {
		var fromFile map[string]string
		if err := yamlutil.DecodeFile(f.varsFile, &fromFile); err != nil {
			return nil, fmt.Errorf("reading --vars %s: %w", f.varsFile, err)
		}
		if err := config.ValidateValues(f.varsFile, fromFile); err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			values[k] = v
		}
	}

	for _, s := range f.vars {
		k, v, err := parseVar(s)
		if err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, nil
}
