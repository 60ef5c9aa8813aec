package latexcompile

// Notes:
// - Tests Compiler.Compile with a fake process.Runner so no TeX installation
//   is needed. The fake runs inside the real workspace directory, which lets
//   tests read materialized inputs and write a PDF the way a toolchain would.
// - Every test uses WithTempDir(t.TempDir()) so "workspace removed" can be
//   asserted by checking the parent directory is empty afterwards.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-latexcompile/internal/ctxlog"
	"github.com/alnah/go-latexcompile/internal/process"
)

// ---------------------------------------------------------------------------
// Fake Runner
// ---------------------------------------------------------------------------

type runCall struct {
	dir  string
	name string
	args []string
}

// fakeRunner records calls and delegates behavior to fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	fn    func(ctx context.Context, dir string, args []string) (*process.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) (*process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{dir: dir, name: name, args: args})
	f.mu.Unlock()

	if f.fn == nil {
		return writePDF(dir, args, "%PDF-1.5 fake")
	}
	return f.fn(ctx, dir, args)
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// writePDF mimics a successful toolchain run for the main file (last arg).
func writePDF(dir string, args []string, content string) (*process.Result, error) {
	main := args[len(args)-1]
	out := filepath.Join(dir, outputName(main))
	if err := os.WriteFile(out, []byte(content), 0o600); err != nil {
		return nil, err
	}
	return &process.Result{Stdout: "Output written on " + outputName(main)}, nil
}

func newTestCompiler(t *testing.T, r process.Runner, opts ...Option) (*Compiler, string) {
	t.Helper()
	parent := t.TempDir()
	all := append([]Option{WithTempDir(parent), withRunner(r)}, opts...)
	c, err := NewCompiler(all...)
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	return c, parent
}

func assertNoWorkspaces(t *testing.T, parent string) {
	t.Helper()
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("ReadDir(%q) error = %v", parent, err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("workspace parent not empty after Compile: %v", names)
	}
}

// ---------------------------------------------------------------------------
// TestNewCompiler - Option validation
// ---------------------------------------------------------------------------

func TestNewCompiler_Defaults(t *testing.T) {
	t.Parallel()

	c, err := NewCompiler()
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	if c.Command() != DefaultCommand {
		t.Errorf("Command() = %q, want %q", c.Command(), DefaultCommand)
	}
	if c.cfg.passes != DefaultPasses {
		t.Errorf("passes = %d, want %d", c.cfg.passes, DefaultPasses)
	}
	if c.cfg.timeout != 0 {
		t.Errorf("timeout = %v, want 0", c.cfg.timeout)
	}
	if _, ok := c.runner.(*process.ExecRunner); !ok {
		t.Errorf("runner = %T, want *process.ExecRunner", c.runner)
	}
}

func TestNewCompiler_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{name: "empty command", opts: []Option{WithCommand("")}, wantErr: ErrEmptyCommand},
		{name: "zero passes", opts: []Option{WithPasses(0)}, wantErr: ErrInvalidPasses},
		{name: "too many passes", opts: []Option{WithPasses(MaxPasses + 1)}, wantErr: ErrInvalidPasses},
		{name: "negative timeout", opts: []Option{WithTimeout(-time.Second)}, wantErr: ErrInvalidTimeout},
		{name: "max passes ok", opts: []Option{WithPasses(MaxPasses)}},
		{name: "xelatex ok", opts: []Option{WithCommand("xelatex"), WithArgs("-interaction=batchmode")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewCompiler(tt.opts...)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("NewCompiler() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewCompiler() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithArgs_CopiesSlice(t *testing.T) {
	t.Parallel()

	args := []string{"-a", "-b"}
	c, err := NewCompiler(WithArgs(args...))
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	args[0] = "mutated"
	if c.cfg.args[0] != "-a" {
		t.Errorf("args[0] = %q, want caller mutation not to leak", c.cfg.args[0])
	}
}

// ---------------------------------------------------------------------------
// TestCompile - Success paths
// ---------------------------------------------------------------------------

func TestCompile_HelloWorldScenario(t *testing.T) {
	t.Parallel()

	var seen string
	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		data, err := os.ReadFile(filepath.Join(dir, "main.tex"))
		if err != nil {
			return nil, err
		}
		seen = string(data)
		return writePDF(dir, args, "%PDF-1.5 hello")
	}}
	c, parent := newTestCompiler(t, r)

	res, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "Hello ##name##")},
		Values:   map[string]string{"name": "World"},
		MainFile: "main.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if seen != "Hello World" {
		t.Errorf("materialized main.tex = %q, want %q", seen, "Hello World")
	}
	if string(res.PDF) != "%PDF-1.5 hello" {
		t.Errorf("PDF = %q, want %q", res.PDF, "%PDF-1.5 hello")
	}
	if res.Passes != 1 {
		t.Errorf("Passes = %d, want 1", res.Passes)
	}
	if !strings.Contains(res.Log, "main.pdf") {
		t.Errorf("Log = %q, want toolchain stdout", res.Log)
	}
	if res.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", res.Duration)
	}
	assertNoWorkspaces(t, parent)
}

func TestCompile_MissingPlaceholderRetained(t *testing.T) {
	t.Parallel()

	var seen string
	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		data, _ := os.ReadFile(filepath.Join(dir, "main.tex"))
		seen = string(data)
		return writePDF(dir, args, "%PDF-1.5")
	}}
	c, _ := newTestCompiler(t, r)

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "Dear ##missing##")},
		Values:   map[string]string{"name": "World"},
		MainFile: "main.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if seen != "Dear ##missing##" {
		t.Errorf("materialized main.tex = %q, want literal placeholder", seen)
	}
}

func TestCompile_BinaryInputVerbatim(t *testing.T) {
	t.Parallel()

	logo := []byte{0x89, 'P', 'N', 'G', '#', '#', 'n', 'a', 'm', 'e', '#', '#', 0x00}
	var got []byte
	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		got, _ = os.ReadFile(filepath.Join(dir, "img", "logo.png"))
		return writePDF(dir, args, "%PDF-1.5")
	}}
	c, _ := newTestCompiler(t, r)

	_, err := c.Compile(context.Background(), Request{
		Inputs: []Input{
			TextInput("main.tex", `\includegraphics{img/logo.png}`),
			BinaryInput("img/logo.png", logo),
		},
		Values:   map[string]string{"name": "World"},
		MainFile: "main.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !bytes.Equal(got, logo) {
		t.Errorf("logo.png = %v, want %v", got, logo)
	}
}

func TestCompile_CommandLine(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	c, _ := newTestCompiler(t, r, WithCommand("xelatex"), WithArgs("-interaction=batchmode"))

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("report.tex", "x")},
		MainFile: "report.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if len(r.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(r.calls))
	}
	call := r.calls[0]
	if call.name != "xelatex" {
		t.Errorf("command = %q, want xelatex", call.name)
	}
	want := []string{"-interaction=batchmode", "report.tex"}
	if strings.Join(call.args, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", call.args, want)
	}
	if !strings.HasPrefix(filepath.Base(call.dir), "latexcompile-") {
		t.Errorf("dir = %q, want a workspace directory", call.dir)
	}
}

func TestCompile_MultiplePasses(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	c, _ := newTestCompiler(t, r, WithPasses(3))

	res, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if r.callCount() != 3 {
		t.Errorf("runner called %d times, want 3", r.callCount())
	}
	if res.Passes != 3 {
		t.Errorf("Passes = %d, want 3", res.Passes)
	}
	if r.calls[0].dir != r.calls[2].dir {
		t.Error("passes ran in different workspaces")
	}
}

func TestCompile_NestedMainFileOutputAtRoot(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	c, _ := newTestCompiler(t, r)

	res, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("src/thesis.tex", "x")},
		MainFile: "src/thesis.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(res.PDF) == 0 {
		t.Error("PDF empty, want thesis.pdf read from workspace root")
	}
}

// ---------------------------------------------------------------------------
// TestCompile - Validation before any process
// ---------------------------------------------------------------------------

func TestCompile_ValidationFailsBeforeSpawn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name:    "main file not among inputs",
			req:     Request{Inputs: []Input{TextInput("a.tex", "x")}, MainFile: "main.tex"},
			wantErr: ErrMainFileNotFound,
		},
		{
			name:    "no inputs",
			req:     Request{MainFile: "main.tex"},
			wantErr: ErrNoInputs,
		},
		{
			name:    "parent traversal",
			req:     Request{Inputs: []Input{TextInput("main.tex", "x"), TextInput("../evil.tex", "x")}, MainFile: "main.tex"},
			wantErr: ErrPathViolation,
		},
		{
			name:    "absolute path",
			req:     Request{Inputs: []Input{TextInput("/etc/main.tex", "x")}, MainFile: "/etc/main.tex"},
			wantErr: ErrPathViolation,
		},
		{
			name: "previous output passed back in as an input",
			req: Request{
				Inputs:   []Input{TextInput("main.tex", "x"), BinaryInput("main.pdf", []byte("%PDF-1.4 stale"))},
				MainFile: "main.tex",
			},
			wantErr: ErrOutputCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeRunner{}
			c, parent := newTestCompiler(t, r)

			res, err := c.Compile(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("Compile() result = %+v, want nil", res)
			}
			if r.callCount() != 0 {
				t.Errorf("runner called %d times, want 0", r.callCount())
			}
			assertNoWorkspaces(t, parent)
		})
	}
}

// ---------------------------------------------------------------------------
// TestCompile - Toolchain failures
// ---------------------------------------------------------------------------

func TestCompile_NonZeroExit(t *testing.T) {
	t.Parallel()

	transcript := "This is pdfTeX\n! Undefined control sequence.\nl.3 \\foo\n\nNo pages of output."
	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		// A partial PDF must never be returned.
		_, _ = writePDF(dir, args, "%PDF-1.5 partial")
		return &process.Result{ExitCode: 1, Stdout: transcript, Stderr: "fatal error"}, nil
	}}
	c, parent := newTestCompiler(t, r)

	res, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", `\foo`)},
		MainFile: "main.tex",
	})
	if res != nil {
		t.Errorf("Compile() result = %+v, want nil", res)
	}
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile() error = %v, want ErrCompile", err)
	}

	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Compile() error = %T, want *CompileError", err)
	}
	if cerr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", cerr.ExitCode)
	}
	if cerr.Stderr != "fatal error" {
		t.Errorf("Stderr = %q, want captured stderr", cerr.Stderr)
	}
	if cerr.Stdout != transcript {
		t.Errorf("Stdout = %q, want captured stdout", cerr.Stdout)
	}
	if len(cerr.Summary) != 2 || cerr.Summary[0] != "! Undefined control sequence." {
		t.Errorf("Summary = %q, want error and context line", cerr.Summary)
	}
	assertNoWorkspaces(t, parent)
}

func TestCompile_FailureOnSecondPass(t *testing.T) {
	t.Parallel()

	var calls int
	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		calls++
		if calls == 2 {
			return &process.Result{ExitCode: 2}, nil
		}
		return writePDF(dir, args, "%PDF-1.5")
	}}
	c, _ := newTestCompiler(t, r, WithPasses(2))

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Compile() error = %v, want *CompileError", err)
	}
	if cerr.Pass != 2 {
		t.Errorf("Pass = %d, want 2", cerr.Pass)
	}
}

func TestCompile_ZeroExitWithoutPDF(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{fn: func(context.Context, string, []string) (*process.Result, error) {
		return &process.Result{Stdout: "No pages of output."}, nil
	}}
	c, parent := newTestCompiler(t, r)

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Compile() error = %v, want *CompileError", err)
	}
	if !cerr.MissingOutput {
		t.Error("MissingOutput = false, want true")
	}
	if cerr.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", cerr.ExitCode)
	}
	assertNoWorkspaces(t, parent)
}

func TestCompile_CompilerNotFound(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{fn: func(context.Context, string, []string) (*process.Result, error) {
		return nil, fmt.Errorf("%w: pdflatex: executable file not found", process.ErrStart)
	}}
	c, parent := newTestCompiler(t, r)

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	if !errors.Is(err, ErrCompilerNotFound) {
		t.Fatalf("Compile() error = %v, want ErrCompilerNotFound", err)
	}
	assertNoWorkspaces(t, parent)
}

func TestCompile_InvalidArtifact(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		return writePDF(dir, args, "this is not a pdf")
	}}
	c, parent := newTestCompiler(t, r)

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	if !errors.Is(err, ErrArtifactInvalid) {
		t.Fatalf("Compile() error = %v, want ErrArtifactInvalid", err)
	}
	assertNoWorkspaces(t, parent)
}

// ---------------------------------------------------------------------------
// TestCompile - Cancellation, timeout and panics
// ---------------------------------------------------------------------------

func TestCompile_TimeoutOption(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{fn: func(ctx context.Context, _ string, _ []string) (*process.Result, error) {
		<-ctx.Done()
		return &process.Result{ExitCode: -1, Stdout: "partial"}, ctx.Err()
	}}
	c, parent := newTestCompiler(t, r, WithTimeout(50*time.Millisecond))

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Compile() error = %v, want context.DeadlineExceeded", err)
	}
	if !errors.Is(err, ErrCompile) {
		t.Errorf("Compile() error = %v, want ErrCompile", err)
	}
	assertNoWorkspaces(t, parent)
}

func TestCompile_CallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRunner{fn: func(ctx context.Context, _ string, _ []string) (*process.Result, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c, parent := newTestCompiler(t, r)

	_, err := c.Compile(ctx, Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Compile() error = %v, want context.Canceled", err)
	}
	var cerr *CompileError
	if errors.As(err, &cerr) && cerr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 for a killed run", cerr.ExitCode)
	}
	assertNoWorkspaces(t, parent)
}

func TestCompile_PanicRecoveredAndWorkspaceReleased(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{fn: func(context.Context, string, []string) (*process.Result, error) {
		panic("runner exploded")
	}}
	c, parent := newTestCompiler(t, r)

	res, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "x")},
		MainFile: "main.tex",
	})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("Compile() error = %v, want ErrInternal", err)
	}
	if res != nil {
		t.Errorf("Compile() result = %+v, want nil", res)
	}
	assertNoWorkspaces(t, parent)
}

// ---------------------------------------------------------------------------
// TestCompile - Concurrency
// ---------------------------------------------------------------------------

func TestCompile_ConcurrentIdenticalRequests(t *testing.T) {
	t.Parallel()

	// Each fake run stamps its own workspace path into the PDF.
	r := &fakeRunner{fn: func(_ context.Context, dir string, args []string) (*process.Result, error) {
		time.Sleep(5 * time.Millisecond)
		return writePDF(dir, args, "%PDF-1.5 "+dir)
	}}
	c, parent := newTestCompiler(t, r)

	const n = 16
	req := Request{
		Inputs:   []Input{TextInput("main.tex", "Hello ##name##")},
		Values:   map[string]string{"name": "World"},
		MainFile: "main.tex",
	}

	results := make([]*Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Compile(context.Background(), req)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("Compile() #%d error = %v", i, errs[i])
		}
		seen[string(results[i].PDF)] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct workspaces, want %d", len(seen), n)
	}
	assertNoWorkspaces(t, parent)
}

// ---------------------------------------------------------------------------
// TestCompile - Logging
// ---------------------------------------------------------------------------

func TestCompile_LogsUnmappedPlaceholders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, _ := newTestCompiler(t, &fakeRunner{}, WithLogger(logger))

	_, err := c.Compile(context.Background(), Request{
		Inputs:   []Input{TextInput("main.tex", "##name## ##missing##")},
		Values:   map[string]string{"name": "x"},
		MainFile: "main.tex",
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"unmapped placeholders", "missing", "compilation_id=", "artifact extracted"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestCompile_ContextLoggerWins(t *testing.T) {
	t.Parallel()

	var configured, fromCtx bytes.Buffer
	c, _ := newTestCompiler(t, &fakeRunner{},
		WithLogger(slog.New(slog.NewTextHandler(&configured, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	ctx := ctxlog.WithLogger(context.Background(),
		slog.New(slog.NewTextHandler(&fromCtx, &slog.HandlerOptions{Level: slog.LevelDebug})))

	if _, err := c.Compile(ctx, Request{Inputs: []Input{TextInput("main.tex", "x")}, MainFile: "main.tex"}); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if configured.Len() != 0 {
		t.Errorf("configured logger got output, want context logger to win:\n%s", configured.String())
	}
	if fromCtx.Len() == 0 {
		t.Error("context logger got no output")
	}
}
