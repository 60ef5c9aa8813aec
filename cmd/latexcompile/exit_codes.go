package main

import (
	"errors"
	"os"

	latexcompile "github.com/alnah/go-latexcompile"
	"github.com/alnah/go-latexcompile/internal/config"
	"github.com/alnah/go-latexcompile/internal/sink"
	"github.com/alnah/go-latexcompile/internal/yamlutil"
)

// Exit codes for the latexcompile CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful compilation
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or request
	ExitIO       = 3 // File not found, permission denied, upload failed
	ExitCompiler = 4 // Toolchain missing or compilation failed
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Toolchain errors (exit 4)
	if errors.Is(err, latexcompile.ErrCompile) ||
		errors.Is(err, latexcompile.ErrCompilerNotFound) ||
		errors.Is(err, latexcompile.ErrArtifactNotFound) ||
		errors.Is(err, latexcompile.ErrArtifactInvalid) {
		return ExitCompiler
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidVar) ||
		errors.Is(err, ErrOutsideRoot) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, yamlutil.ErrInputTooLarge) ||
		errors.Is(err, sink.ErrInvalidS3URL) ||
		errors.Is(err, latexcompile.ErrPathViolation) ||
		errors.Is(err, latexcompile.ErrNoInputs) ||
		errors.Is(err, latexcompile.ErrEmptyMainFile) ||
		errors.Is(err, latexcompile.ErrMainFileNotFound) ||
		errors.Is(err, latexcompile.ErrDuplicateInput) ||
		errors.Is(err, latexcompile.ErrOutputCollision) ||
		errors.Is(err, latexcompile.ErrEmptyCommand) ||
		errors.Is(err, latexcompile.ErrInvalidPasses) ||
		errors.Is(err, latexcompile.ErrInvalidTimeout) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, sink.ErrWrite) ||
		errors.Is(err, sink.ErrUpload) ||
		errors.Is(err, latexcompile.ErrWorkspace) ||
		errors.Is(err, latexcompile.ErrMaterialize) ||
		errors.Is(err, latexcompile.ErrExtract) {
		return ExitIO
	}

	return ExitGeneral
}
