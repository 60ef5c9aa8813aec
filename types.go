package latexcompile

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alnah/go-latexcompile/internal/workspace"
)

// ContentKind tells the compiler whether an input is templated.
type ContentKind int

// Content kinds.
const (
	// Text inputs go through ##key## substitution before being written.
	Text ContentKind = iota
	// Binary inputs are written byte for byte.
	Binary
)

// String returns the lowercase kind name.
func (k ContentKind) String() string {
	switch k {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("ContentKind(%d)", int(k))
	}
}

// Input is one file placed in the workspace before compilation.
// Name is used verbatim as a path relative to the workspace root.
type Input struct {
	Name string
	Kind ContentKind
	Data []byte
}

// TextInput returns a templated input.
func TextInput(name, content string) Input {
	return Input{Name: name, Kind: Text, Data: []byte(content)}
}

// BinaryInput returns an input copied verbatim.
func BinaryInput(name string, data []byte) Input {
	return Input{Name: name, Kind: Binary, Data: data}
}

// Request describes one compilation: the files to write, the placeholder
// values applied to text files, and which file the compiler is run against.
type Request struct {
	Inputs   []Input
	Values   map[string]string
	MainFile string
}

// Validate checks the request before any workspace or process exists.
// Returns the first problem found.
func (r *Request) Validate() error {
	if len(r.Inputs) == 0 {
		return ErrNoInputs
	}
	if r.MainFile == "" {
		return ErrEmptyMainFile
	}

	seen := make(map[string]bool, len(r.Inputs))
	output := outputName(r.MainFile)
	mainFound := false
	for _, in := range r.Inputs {
		if err := workspace.ValidateName(in.Name); err != nil {
			return err
		}
		if in.Kind != Text && in.Kind != Binary {
			return fmt.Errorf("%w: %s for %q", ErrInvalidKind, in.Kind, in.Name)
		}

		key := normalizeName(in.Name)
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateInput, in.Name)
		}
		seen[key] = true

		if key == output {
			return fmt.Errorf("%w: %q", ErrOutputCollision, in.Name)
		}
		if in.Name == r.MainFile {
			mainFound = true
		}
	}

	if !mainFound {
		return fmt.Errorf("%w: %q", ErrMainFileNotFound, r.MainFile)
	}
	return nil
}

// normalizeName maps equivalent spellings ("a/./b.tex", `a\b.tex`) to one key.
func normalizeName(name string) string {
	return path.Clean(strings.ReplaceAll(name, `\`, "/"))
}

// Result is a successful compilation.
type Result struct {
	// PDF holds the complete output document.
	PDF []byte
	// Log is the toolchain's standard output from the final pass.
	Log string
	// Passes is the number of toolchain runs performed.
	Passes int
	// Duration covers the whole call, workspace setup and teardown included.
	Duration time.Duration
}
