// Package workspace manages the disposable directories compilations run in.
//
// A Workspace is created per compilation under the system temp directory (or a
// configured parent), owns every file written into it, and is removed
// recursively on Release. Directory names carry a random UUID so concurrent
// compilations never share a path.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Sentinel errors for workspace operations.
var (
	ErrCreate        = errors.New("workspace: cannot create directory")
	ErrRemove        = errors.New("workspace: cannot remove directory")
	ErrPathViolation = errors.New("file name escapes workspace")
)

// dirPrefix is prepended to every workspace directory name.
const dirPrefix = "latexcompile-"

// dirPermissions restricts workspaces to the owner (rwx------).
const dirPermissions = 0o700

// maxAcquireAttempts bounds retries on a name collision.
const maxAcquireAttempts = 3

// newID is swapped in tests to force collisions.
var newID = func() string { return uuid.NewString() }

// Workspace is an exclusively owned temporary directory.
type Workspace struct {
	dir  string
	once sync.Once
	err  error
}

// Acquire creates a new, empty workspace under parent.
// An empty parent means os.TempDir().
func Acquire(parent string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}

	var lastErr error
	for range maxAcquireAttempts {
		dir := filepath.Join(parent, dirPrefix+newID())
		err := os.Mkdir(dir, dirPermissions)
		if err == nil {
			return &Workspace{dir: dir}, nil
		}
		lastErr = err
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrCreate, lastErr)
}

// Dir returns the absolute workspace path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Release removes the workspace and everything in it. Safe to call more than
// once; later calls return the first result.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.err = fmt.Errorf("%w: %w", ErrRemove, err)
		}
	})
	return w.err
}

// Resolve validates name and returns its absolute path inside the workspace.
func (w *Workspace) Resolve(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(w.dir, filepath.FromSlash(name)), nil
}

// ValidateName reports whether name is a plain relative file name that stays
// inside a workspace. Both slash styles are checked regardless of platform so
// a request built on one OS is judged the same on another.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrPathViolation)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains a null byte", ErrPathViolation, name)
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) || hasVolume(name) {
		return fmt.Errorf("%w: %q is absolute", ErrPathViolation, name)
	}

	segments := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q has no file component", ErrPathViolation, name)
	}
	for _, seg := range segments {
		if seg == ".." {
			return fmt.Errorf("%w: %q contains a parent segment", ErrPathViolation, name)
		}
	}
	if last := segments[len(segments)-1]; last == "." || strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`) {
		return fmt.Errorf("%w: %q is not a file name", ErrPathViolation, name)
	}
	return nil
}

// hasVolume detects Windows drive letters ("C:foo", "C:\foo") on any OS.
func hasVolume(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
