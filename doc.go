// Package latexcompile compiles LaTeX sources to PDF by running an external
// TeX toolchain (pdflatex by default) inside a disposable workspace.
//
// # Quick Start
//
// Create a compiler once and reuse it; it is safe for concurrent use:
//
//	c, err := latexcompile.NewCompiler(latexcompile.WithPasses(2))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := c.Compile(ctx, latexcompile.Request{
//	    Inputs: []latexcompile.Input{
//	        latexcompile.TextInput("main.tex", `\documentclass{article}
//	\begin{document}Hello ##name##\end{document}`),
//	        latexcompile.BinaryInput("logo.png", png),
//	    },
//	    Values:   map[string]string{"name": "World"},
//	    MainFile: "main.tex",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("main.pdf", result.PDF, 0644)
//
// # Compilation Stages
//
// Each Compile call:
//
//  1. Validates the request (names, duplicates, main file) before touching disk
//  2. Creates a private workspace directory under the temp dir
//  3. Writes every input: text inputs after ##key## substitution, binary inputs verbatim
//  4. Runs the toolchain against the main file, once per configured pass
//  5. Reads <main>.pdf from the workspace root
//  6. Removes the workspace, on every return path
//
// # Placeholders
//
// Text inputs may contain ##key## placeholders, where key is made of letters,
// digits, '_' and '-'. Substitution is a single pass: inserted values are
// never rescanned. Placeholders with no value are left verbatim and logged at
// WARN level, so the toolchain reports them in context.
//
// # Toolchain
//
// The command line is "<command> <args...> <main file>", run with the
// workspace as working directory. The defaults are pdflatex with
// -interaction=nonstopmode -halt-on-error -file-line-error. Success means
// every pass exits 0 and the PDF exists afterwards. There are no retries.
//
// Use WithTimeout to bound each compilation, or cancel the context; either
// kills the toolchain's whole process group on Unix.
//
// # Error Handling
//
// Failures match sentinel errors with errors.Is:
//
//	ErrPathViolation    - an input name is absolute or escapes the workspace
//	ErrOutputCollision  - an input would occupy the path of the output PDF
//	ErrCompilerNotFound - the toolchain executable could not be started
//	ErrCompile          - the toolchain failed or wrote no PDF; errors.As gives *CompileError
//	ErrArtifactInvalid  - the output file does not start with %PDF-
//	ErrWorkspace        - the workspace could not be created or removed
//
// *CompileError carries the exit code, both output streams, and a short
// Summary of TeX's error lines.
//
// # Concurrency
//
// Pool bounds how many compilations run at once:
//
//	pool := latexcompile.NewPool(c, latexcompile.ResolvePoolSize(0))
//	result, err := pool.Compile(ctx, req)
package latexcompile
