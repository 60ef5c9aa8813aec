// Package materialize writes compilation inputs into a workspace.
package materialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-latexcompile/internal/template"
	"github.com/alnah/go-latexcompile/internal/workspace"
)

// ErrWrite reports a filesystem failure while writing an input.
var ErrWrite = errors.New("materialize: write failed")

// File permission constants.
const (
	dirPermissions  = 0o700 // rwx------
	filePermissions = 0o600 // rw-------
)

// File is a named payload to place in the workspace. Text files are run
// through the template engine; binary files are copied byte for byte.
type File struct {
	Name string
	Text bool
	Data []byte
}

// Materialize validates every file name, then writes each file into ws.
// Names are all checked before the first write, so a path violation leaves the
// workspace untouched. Existing files are never overwritten.
func Materialize(ws *workspace.Workspace, files []File, values map[string]string) error {
	paths := make([]string, len(files))
	for i, f := range files {
		p, err := ws.Resolve(f.Name)
		if err != nil {
			return err
		}
		paths[i] = p
	}

	for i, f := range files {
		data := f.Data
		if f.Text {
			data = []byte(template.Render(string(f.Data), values))
		}
		if err := writeExclusive(paths[i], data); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWrite, f.Name, err)
		}
	}
	return nil
}

// writeExclusive creates path (and its parents) and writes data, failing if
// the file already exists.
func writeExclusive(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions) // #nosec G304 -- path resolved inside workspace
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
