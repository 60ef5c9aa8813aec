package latexcompile

import (
	"errors"

	"github.com/alnah/go-latexcompile/internal/workspace"
)

// Sentinel errors for library operations.
var (
	// ErrPathViolation reports an input name that is absolute or contains a
	// parent segment.
	ErrPathViolation = workspace.ErrPathViolation

	ErrWorkspace        = errors.New("workspace failure")
	ErrMaterialize      = errors.New("writing inputs failed")
	ErrCompile          = errors.New("compilation failed")
	ErrCompilerNotFound = errors.New("compiler could not be started")
	ErrArtifactNotFound = errors.New("output PDF not found")
	ErrArtifactInvalid  = errors.New("output is not a PDF")
	ErrExtract          = errors.New("reading output PDF failed")
	ErrInternal         = errors.New("internal error")

	// Request validation errors.
	ErrNoInputs         = errors.New("request has no inputs")
	ErrEmptyMainFile    = errors.New("main file name cannot be empty")
	ErrMainFileNotFound = errors.New("main file is not among the inputs")
	ErrDuplicateInput   = errors.New("duplicate input name")
	ErrInvalidKind      = errors.New("invalid content kind")
	ErrOutputCollision  = errors.New("input has the name of the output PDF")

	// Option validation errors.
	ErrEmptyCommand   = errors.New("compiler command cannot be empty")
	ErrInvalidPasses  = errors.New("invalid number of passes")
	ErrInvalidTimeout = errors.New("invalid timeout")
)
