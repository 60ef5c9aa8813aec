package latexcompile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-latexcompile/internal/ctxlog"
	"github.com/alnah/go-latexcompile/internal/materialize"
	"github.com/alnah/go-latexcompile/internal/process"
	"github.com/alnah/go-latexcompile/internal/template"
	"github.com/alnah/go-latexcompile/internal/workspace"
)

// stage tracks how far a compilation got, for logging.
type stage int

const (
	stageCreated stage = iota
	stageWorkspaceReady
	stageInputsWritten
	stageCompiled
	stageArtifactExtracted
)

func (s stage) String() string {
	switch s {
	case stageCreated:
		return "created"
	case stageWorkspaceReady:
		return "workspace_ready"
	case stageInputsWritten:
		return "inputs_written"
	case stageCompiled:
		return "compiled"
	case stageArtifactExtracted:
		return "artifact_extracted"
	default:
		return "unknown"
	}
}

// Compiler turns a Request into a PDF by running an external LaTeX toolchain
// in a fresh workspace. Create with NewCompiler. A Compiler is immutable and
// safe for concurrent use; each Compile call owns its own workspace and child
// process.
type Compiler struct {
	cfg    compilerConfig
	runner process.Runner
	logger *slog.Logger
}

// NewCompiler creates a Compiler running DefaultCommand with DefaultArgs,
// one pass and no timeout. Use options to change any of these.
func NewCompiler(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		cfg: compilerConfig{
			command: DefaultCommand,
			args:    append([]string(nil), DefaultArgs...),
			passes:  DefaultPasses,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.command == "" {
		return nil, ErrEmptyCommand
	}
	if c.cfg.passes < 1 || c.cfg.passes > MaxPasses {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidPasses, c.cfg.passes, MaxPasses)
	}
	if c.cfg.timeout < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeout, c.cfg.timeout)
	}

	if c.runner == nil {
		c.runner = &process.ExecRunner{Env: c.cfg.env}
	}
	return c, nil
}

// Command returns the configured toolchain executable.
func (c *Compiler) Command() string {
	return c.cfg.command
}

// Compile validates req, materializes its inputs into a new workspace, runs
// the toolchain and returns the PDF. The workspace is removed before Compile
// returns, whatever the outcome. Failures are fail-fast: no partial PDF is
// ever returned.
//
// The context bounds the toolchain run; cancelling it kills the child process
// group. Internal panics are recovered into ErrInternal.
func (c *Compiler) Compile(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()
	logger := c.loggerFor(ctx).With(
		"compilation_id", uuid.NewString(),
		"main_file", req.MainFile,
	)
	current := stageCreated

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		if err != nil {
			logger.Warn("compilation failed", "stage", current.String(), "error", err)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	ws, err := workspace.Acquire(c.cfg.tempDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	defer func() {
		if relErr := ws.Release(); relErr != nil {
			result = nil
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrWorkspace, relErr))
			return
		}
		logger.Debug("workspace released", "dir", ws.Dir())
	}()
	current = stageWorkspaceReady
	logger.Debug("workspace ready", "dir", ws.Dir())

	files := toFiles(req.Inputs)
	warnUnmapped(logger, files, req.Values)
	if err := materialize.Materialize(ws, files, req.Values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	current = stageInputsWritten
	logger.Debug("inputs written", "count", len(files))

	iv := &invoker{
		runner:  c.runner,
		command: c.cfg.command,
		args:    c.cfg.args,
		passes:  c.cfg.passes,
	}
	res, err := iv.invoke(ctx, ws, req.MainFile)
	if err != nil {
		return nil, err
	}
	current = stageCompiled
	logger.Debug("toolchain finished", "command", c.cfg.command, "passes", c.cfg.passes)

	pdf, err := extract(ws, req.MainFile)
	if err != nil {
		return nil, err
	}
	current = stageArtifactExtracted
	logger.Debug("artifact extracted", "bytes", len(pdf))

	return &Result{
		PDF:      pdf,
		Log:      res.Stdout,
		Passes:   c.cfg.passes,
		Duration: time.Since(start),
	}, nil
}

// loggerFor prefers a logger carried by ctx over the configured one.
func (c *Compiler) loggerFor(ctx context.Context) *slog.Logger {
	if logger := ctxlog.FromContext(ctx); logger != ctxlog.Discard() {
		return logger
	}
	if c.logger != nil {
		return c.logger
	}
	return ctxlog.Discard()
}

// warnUnmapped logs placeholders that will pass through literally.
func warnUnmapped(logger *slog.Logger, files []materialize.File, values map[string]string) {
	for _, f := range files {
		if !f.Text {
			continue
		}
		if missing := template.Unmapped(string(f.Data), values); len(missing) > 0 {
			logger.Warn("unmapped placeholders left verbatim", "file", f.Name, "keys", missing)
		}
	}
}

// toFiles converts public inputs to the materializer's representation.
func toFiles(inputs []Input) []materialize.File {
	files := make([]materialize.File, len(inputs))
	for i, in := range inputs {
		files[i] = materialize.File{
			Name: in.Name,
			Text: in.Kind == Text,
			Data: in.Data,
		}
	}
	return files
}
