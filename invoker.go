package latexcompile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-latexcompile/internal/process"
	"github.com/alnah/go-latexcompile/internal/workspace"
)

// invoker runs the toolchain against a main file inside a workspace.
type invoker struct {
	runner  process.Runner
	command string
	args    []string
	passes  int
}

// invoke runs every pass and checks that the PDF exists afterwards. Exit
// status alone is not trusted: some toolchains exit zero on incomplete output.
// Returns the result of the final pass.
func (iv *invoker) invoke(ctx context.Context, ws *workspace.Workspace, mainFile string) (*process.Result, error) {
	args := make([]string, 0, len(iv.args)+1)
	args = append(args, iv.args...)
	args = append(args, mainFile)

	var res *process.Result
	for pass := 1; pass <= iv.passes; pass++ {
		var err error
		res, err = iv.runner.Run(ctx, ws.Dir(), iv.command, args...)
		if err != nil {
			if errors.Is(err, process.ErrStart) {
				return nil, fmt.Errorf("%w: %q: %w", ErrCompilerNotFound, iv.command, err)
			}
			return nil, newCompileError(res, pass, err)
		}
		if res.ExitCode != 0 {
			return nil, newCompileError(res, pass, nil)
		}
	}

	pdfPath, err := ws.Resolve(outputName(mainFile))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(pdfPath); err != nil {
		cerr := newCompileError(res, iv.passes, nil)
		cerr.MissingOutput = true
		return nil, cerr
	}
	return res, nil
}

// newCompileError builds a CompileError from a (possibly nil) run result.
func newCompileError(res *process.Result, pass int, cause error) *CompileError {
	cerr := &CompileError{ExitCode: -1, Pass: pass, cause: cause}
	if res != nil {
		cerr.ExitCode = res.ExitCode
		cerr.Stdout = res.Stdout
		cerr.Stderr = res.Stderr
		cerr.Summary = summarize(res.Stdout)
	}
	return cerr
}
