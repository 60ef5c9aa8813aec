package latexcompile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestSummarize - Transcript parsing
// ---------------------------------------------------------------------------

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transcript string
		want       []string
	}{
		{
			name:       "empty transcript",
			transcript: "",
			want:       nil,
		},
		{
			name:       "clean run",
			transcript: "This is pdfTeX\nOutput written on main.pdf (1 page).",
			want:       nil,
		},
		{
			name:       "bang error with context line",
			transcript: "(./main.tex\n! Undefined control sequence.\nl.5 \\foo\n          \n? ",
			want:       []string{"! Undefined control sequence.", "l.5 \\foo"},
		},
		{
			name:       "file line error",
			transcript: "./main.tex:12: LaTeX Error: Environment foo undefined.\n\nl.12 \\begin{foo}",
			want:       []string{"./main.tex:12: LaTeX Error: Environment foo undefined.", "l.12 \\begin{foo}"},
		},
		{
			name:       "context not borrowed from next error",
			transcript: "! First.\n! Second.\nl.9 x",
			want:       []string{"! First.", "! Second.", "l.9 x"},
		},
		{
			name:       "crlf line endings",
			transcript: "! Emergency stop.\r\nl.1 \r\n",
			want:       []string{"! Emergency stop.", "l.1"},
		},
		{
			name:       "non tex file:line is ignored",
			transcript: "main.go:12: not a tex error",
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := summarize(tt.transcript)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize_Capped(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 30 {
		fmt.Fprintf(&b, "! Error %d.\n", i)
	}
	got := summarize(b.String())
	if len(got) != maxSummaryLines {
		t.Errorf("len(summarize()) = %d, want %d", len(got), maxSummaryLines)
	}
}

// ---------------------------------------------------------------------------
// TestCompileError - Error surface
// ---------------------------------------------------------------------------

func TestCompileError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *CompileError
		want string
	}{
		{
			name: "exit status with summary",
			err:  &CompileError{ExitCode: 1, Pass: 1, Summary: []string{"! Undefined control sequence."}},
			want: "compilation failed: exit status 1: ! Undefined control sequence.",
		},
		{
			name: "falls back to last stderr line",
			err:  &CompileError{ExitCode: 127, Pass: 1, Stderr: "warning\nfatal: cannot open file\n"},
			want: "compilation failed: exit status 127: fatal: cannot open file",
		},
		{
			name: "missing output on later pass",
			err:  &CompileError{Pass: 2, MissingOutput: true},
			want: "compilation failed: toolchain exited 0 without writing a PDF (pass 2)",
		},
		{
			name: "cancelled",
			err:  &CompileError{ExitCode: -1, Pass: 1, cause: context.Canceled},
			want: "compilation failed: context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompileError_Is(t *testing.T) {
	t.Parallel()

	var err error = fmt.Errorf("wrapped: %w", &CompileError{ExitCode: 1, cause: context.DeadlineExceeded})
	if !errors.Is(err, ErrCompile) {
		t.Error("errors.Is(err, ErrCompile) = false, want true")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is(err, context.DeadlineExceeded) = false, want true")
	}
	if errors.Is(err, ErrCompilerNotFound) {
		t.Error("errors.Is(err, ErrCompilerNotFound) = true, want false")
	}
}

func TestCompileError_Diagnostics(t *testing.T) {
	t.Parallel()

	withSummary := &CompileError{Summary: []string{"! A.", "l.1 x"}, Stdout: "noise"}
	if got := withSummary.Diagnostics(); got != "! A.\nl.1 x" {
		t.Errorf("Diagnostics() = %q, want summary lines", got)
	}

	raw := &CompileError{Stderr: "boom", Stdout: "log"}
	if got := raw.Diagnostics(); got != "boom\nlog" {
		t.Errorf("Diagnostics() = %q, want raw streams", got)
	}
}
