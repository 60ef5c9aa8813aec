package latexcompile

import (
	"log/slog"
	"time"

	"github.com/alnah/go-latexcompile/internal/process"
)

// Compiler defaults.
const (
	// DefaultCommand is the toolchain executable looked up on PATH.
	DefaultCommand = "pdflatex"

	// DefaultPasses runs the toolchain once.
	DefaultPasses = 1

	// MaxPasses caps repeated runs; cross references settle within two or three.
	MaxPasses = 5
)

// DefaultArgs keeps the toolchain non-interactive and makes it stop on the
// first error with file:line diagnostics.
var DefaultArgs = []string{"-interaction=nonstopmode", "-halt-on-error", "-file-line-error"}

// Option configures a Compiler.
type Option func(*Compiler)

// compilerConfig holds internal configuration for Compiler.
type compilerConfig struct {
	command string
	args    []string
	passes  int
	timeout time.Duration // 0 = no limit imposed by the compiler
	tempDir string        // "" = os.TempDir()
	env     []string      // nil = inherit
}

// WithCommand sets the toolchain executable (e.g. "xelatex", "lualatex", or an
// absolute path). The main file name is always appended as the last argument.
func WithCommand(name string) Option {
	return func(c *Compiler) {
		c.cfg.command = name
	}
}

// WithArgs replaces the arguments passed before the main file name.
func WithArgs(args ...string) Option {
	return func(c *Compiler) {
		c.cfg.args = append([]string(nil), args...)
	}
}

// WithPasses sets how many times the toolchain runs per compilation
// (1 to MaxPasses). Every pass must succeed.
func WithPasses(n int) Option {
	return func(c *Compiler) {
		c.cfg.passes = n
	}
}

// WithTimeout bounds the wall-clock time of each Compile call. Zero, the
// default, leaves time limits to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		c.cfg.timeout = d
	}
}

// WithTempDir sets the parent directory workspaces are created in.
func WithTempDir(dir string) Option {
	return func(c *Compiler) {
		c.cfg.tempDir = dir
	}
}

// WithEnv replaces the environment the toolchain runs with.
func WithEnv(env []string) Option {
	return func(c *Compiler) {
		c.cfg.env = append([]string(nil), env...)
	}
}

// WithLogger sets the structured logger. A logger found in the Compile
// context takes precedence.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// withRunner injects a process runner (for tests).
func withRunner(r process.Runner) Option {
	return func(c *Compiler) {
		c.runner = r
	}
}
