package materialize_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alnah/go-latexcompile/internal/materialize"
	"github.com/alnah/go-latexcompile/internal/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Acquire(t.TempDir())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { _ = ws.Release() })
	return ws
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", path, err)
	}
	return data
}

// ---------------------------------------------------------------------------
// TestMaterialize - Text and binary writes
// ---------------------------------------------------------------------------

func TestMaterialize_TextIsTemplated(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	files := []materialize.File{
		{Name: "main.tex", Text: true, Data: []byte("Hello ##name## ##missing##")},
	}

	if err := materialize.Materialize(ws, files, map[string]string{"name": "World"}); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	got := string(readFile(t, filepath.Join(ws.Dir(), "main.tex")))
	if got != "Hello World ##missing##" {
		t.Errorf("main.tex = %q, want %q", got, "Hello World ##missing##")
	}
}

func TestMaterialize_BinaryIsVerbatim(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	payload := []byte{0x00, 0xff, '#', '#', 'n', 'a', 'm', 'e', '#', '#', 0x89, 'P', 'N', 'G'}
	files := []materialize.File{
		{Name: "figures/logo.png", Data: payload},
	}

	if err := materialize.Materialize(ws, files, map[string]string{"name": "World"}); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	got := readFile(t, filepath.Join(ws.Dir(), "figures", "logo.png"))
	if !bytes.Equal(got, payload) {
		t.Errorf("logo.png = %v, want %v", got, payload)
	}
}

func TestMaterialize_FilePermissions(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	files := []materialize.File{{Name: "main.tex", Text: true, Data: []byte("x")}}
	if err := materialize.Materialize(ws, files, nil); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(ws.Dir(), "main.tex"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("mode = %o, want owner-only", perm)
	}
}

// ---------------------------------------------------------------------------
// TestMaterialize - Failure paths
// ---------------------------------------------------------------------------

func TestMaterialize_PathViolationWritesNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bad  string
	}{
		{name: "parent traversal", bad: "../escape.tex"},
		{name: "absolute path", bad: "/tmp/escape.tex"},
		{name: "nested traversal", bad: "a/../../escape.tex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ws := newWorkspace(t)
			files := []materialize.File{
				{Name: "main.tex", Text: true, Data: []byte("ok")},
				{Name: tt.bad, Text: true, Data: []byte("evil")},
			}

			err := materialize.Materialize(ws, files, nil)
			if !errors.Is(err, workspace.ErrPathViolation) {
				t.Fatalf("Materialize() error = %v, want ErrPathViolation", err)
			}

			entries, err := os.ReadDir(ws.Dir())
			if err != nil {
				t.Fatalf("ReadDir() error = %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("workspace has %d entries after violation, want 0", len(entries))
			}
		})
	}
}

func TestMaterialize_DuplicateNameFails(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	files := []materialize.File{
		{Name: "main.tex", Text: true, Data: []byte("first")},
		{Name: "main.tex", Text: true, Data: []byte("second")},
	}

	err := materialize.Materialize(ws, files, nil)
	if !errors.Is(err, materialize.ErrWrite) {
		t.Fatalf("Materialize() error = %v, want ErrWrite", err)
	}
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("Materialize() error = %v, want wrapped os.ErrExist", err)
	}

	if got := string(readFile(t, filepath.Join(ws.Dir(), "main.tex"))); got != "first" {
		t.Errorf("main.tex = %q, want first write kept", got)
	}
}

func TestMaterialize_ReleasedWorkspaceFails(t *testing.T) {
	t.Parallel()

	ws, err := workspace.Acquire(t.TempDir())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	// MkdirAll recreates parents, so block the workspace path with a file.
	if err := os.WriteFile(ws.Dir(), []byte("not a dir"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(ws.Dir()) })

	err = materialize.Materialize(ws, []materialize.File{{Name: "main.tex", Data: []byte("x")}}, nil)
	if !errors.Is(err, materialize.ErrWrite) {
		t.Errorf("Materialize() error = %v, want ErrWrite", err)
	}
}
