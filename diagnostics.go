package latexcompile

import (
	"fmt"
	"regexp"
	"strings"
)

// maxSummaryLines caps how many transcript lines CompileError keeps.
const maxSummaryLines = 10

// fileLineError matches "-file-line-error" diagnostics: "./main.tex:12: Undefined control sequence."
var fileLineError = regexp.MustCompile(`^[^\s:]+\.(tex|sty|cls|ltx|bib|dtx):\d+: `)

// CompileError describes a toolchain run that did not produce a PDF.
type CompileError struct {
	// ExitCode is the toolchain's exit status (-1 when it was killed).
	ExitCode int
	// Pass is the 1-based run that failed.
	Pass int
	// Stdout and Stderr are the complete captured streams of the failed pass.
	Stdout string
	Stderr string
	// MissingOutput is set when the toolchain exited zero but wrote no PDF.
	MissingOutput bool
	// Summary holds the error lines extracted from the transcript.
	Summary []string

	cause error
}

// Error renders the exit status and the first diagnostic line.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCompile.Error())

	switch {
	case e.cause != nil:
		fmt.Fprintf(&b, ": %v", e.cause)
	case e.MissingOutput:
		b.WriteString(": toolchain exited 0 without writing a PDF")
	default:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Pass > 1 {
		fmt.Fprintf(&b, " (pass %d)", e.Pass)
	}

	if line := e.firstDiagnostic(); line != "" {
		b.WriteString(": ")
		b.WriteString(line)
	}
	return b.String()
}

// Is matches ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// Unwrap exposes a context error when the run was cancelled.
func (e *CompileError) Unwrap() error {
	return e.cause
}

// Diagnostics returns the summary joined by newlines, or the raw streams when
// nothing could be extracted.
func (e *CompileError) Diagnostics() string {
	if len(e.Summary) > 0 {
		return strings.Join(e.Summary, "\n")
	}
	return strings.TrimSpace(strings.Join([]string{e.Stderr, e.Stdout}, "\n"))
}

func (e *CompileError) firstDiagnostic() string {
	if len(e.Summary) > 0 {
		return e.Summary[0]
	}
	return lastLine(e.Stderr)
}

// summarize extracts TeX error lines from a transcript: each "!" line with the
// "l.<n>" context line that follows, plus file:line:message lines.
func summarize(transcript string) []string {
	var out []string
	lines := strings.Split(strings.ReplaceAll(transcript, "\r\n", "\n"), "\n")

	for i := 0; i < len(lines) && len(out) < maxSummaryLines; i++ {
		line := strings.TrimRight(lines[i], " \t")
		if !strings.HasPrefix(line, "! ") && !fileLineError.MatchString(line) {
			continue
		}
		out = append(out, line)
		if ctx := findLineContext(lines, i+1); ctx != "" && len(out) < maxSummaryLines {
			out = append(out, ctx)
		}
	}
	return out
}

// findLineContext looks a few lines ahead for TeX's "l.<n> ..." marker.
func findLineContext(lines []string, from int) string {
	for i := from; i < len(lines) && i < from+4; i++ {
		line := strings.TrimRight(lines[i], " \t")
		if strings.HasPrefix(line, "l.") {
			return line
		}
		if strings.HasPrefix(line, "! ") || fileLineError.MatchString(line) {
			return ""
		}
	}
	return ""
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
