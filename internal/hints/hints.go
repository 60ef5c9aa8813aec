// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"path/filepath"
	"strings"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	info, err := os.Stat("/.dockerenv")
	return err == nil && !info.IsDir()
}

// ForCompilerNotFound returns hints for a toolchain that could not be started.
// Suggests installing a TeX distribution (a slim one inside containers) and
// the LATEXCOMPILE_COMMAND override when the default command is in use.
func ForCompilerNotFound(command string) string {
	var hints []string

	if filepath.IsAbs(command) {
		hints = append(hints, "check that "+command+" exists and is executable")
	} else if IsInContainer() {
		hints = append(hints, "install texlive-latex-base (Debian) or texlive (Alpine) in the image")
	} else {
		hints = append(hints, "install a TeX distribution (TeX Live, MiKTeX, MacTeX) and make sure "+command+" is on PATH")
	}

	if os.Getenv("LATEXCOMPILE_COMMAND") == "" {
		hints = append(hints, "use --command or LATEXCOMPILE_COMMAND to pick another engine")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow documents.
func ForTimeout() string {
	return format("large documents and cold font caches are slow; raise --timeout")
}

// ForCompileError returns a hint pointing at the full transcript.
func ForCompileError() string {
	return format("rerun with --verbose to print the full TeX transcript")
}

// ForMissingOutput returns a hint for a toolchain that exited 0 without a PDF.
func ForMissingOutput() string {
	return format("the document may produce no pages; check that it has \\begin{document} content")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-latexcompile/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Find a user config path to suggest
	for _, p := range searchedPaths {
		if strings.Contains(filepath.ToSlash(p), "/go-latexcompile/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForS3Credentials returns hints for S3 upload failures.
func ForS3Credentials() string {
	var hints []string
	if os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		hints = append(hints, "set AWS_REGION")
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" && os.Getenv("AWS_PROFILE") == "" {
		hints = append(hints, "set AWS_PROFILE or AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY (or load them with --env-file)")
	}
	return formatHints(hints)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
