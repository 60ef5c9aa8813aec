package latexcompile

// Notes:
// - Request.Validate: each rule is checked in isolation, plus ordering when
//   several problems coexist (first problem wins)
// - Name safety itself is covered in internal/workspace; here we only check
//   the error surfaces through the public sentinel

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRequest_Validate
// ---------------------------------------------------------------------------

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name: "single text input",
			req:  Request{Inputs: []Input{TextInput("main.tex", "x")}, MainFile: "main.tex"},
		},
		{
			name: "nested inputs and binary",
			req: Request{
				Inputs: []Input{
					TextInput("main.tex", "x"),
					TextInput("chapters/intro.tex", "y"),
					BinaryInput("img/logo.png", []byte{0x89}),
				},
				MainFile: "main.tex",
			},
		},
		{
			name: "nested main file",
			req:  Request{Inputs: []Input{TextInput("src/main.tex", "x")}, MainFile: "src/main.tex"},
		},
		{
			name:    "no inputs",
			req:     Request{MainFile: "main.tex"},
			wantErr: ErrNoInputs,
		},
		{
			name:    "empty main file",
			req:     Request{Inputs: []Input{TextInput("main.tex", "x")}},
			wantErr: ErrEmptyMainFile,
		},
		{
			name:    "main file not among inputs",
			req:     Request{Inputs: []Input{TextInput("a.tex", "x")}, MainFile: "main.tex"},
			wantErr: ErrMainFileNotFound,
		},
		{
			name:    "main file differs only by normalization",
			req:     Request{Inputs: []Input{TextInput("./main.tex", "x")}, MainFile: "main.tex"},
			wantErr: ErrMainFileNotFound,
		},
		{
			name:    "parent traversal",
			req:     Request{Inputs: []Input{TextInput("../main.tex", "x")}, MainFile: "../main.tex"},
			wantErr: ErrPathViolation,
		},
		{
			name:    "absolute path",
			req:     Request{Inputs: []Input{TextInput("/tmp/main.tex", "x")}, MainFile: "/tmp/main.tex"},
			wantErr: ErrPathViolation,
		},
		{
			name:    "empty input name",
			req:     Request{Inputs: []Input{TextInput("main.tex", "x"), TextInput("", "y")}, MainFile: "main.tex"},
			wantErr: ErrPathViolation,
		},
		{
			name: "duplicate name",
			req: Request{
				Inputs:   []Input{TextInput("main.tex", "x"), BinaryInput("main.tex", nil)},
				MainFile: "main.tex",
			},
			wantErr: ErrDuplicateInput,
		},
		{
			name: "duplicate after normalization",
			req: Request{
				Inputs:   []Input{TextInput("a/b.tex", "x"), TextInput("a/./b.tex", "y"), TextInput("main.tex", "z")},
				MainFile: "main.tex",
			},
			wantErr: ErrDuplicateInput,
		},
		{
			name: "input named like the output PDF",
			req: Request{
				Inputs:   []Input{TextInput("main.tex", "x"), BinaryInput("main.pdf", []byte("%PDF-1.4 old"))},
				MainFile: "main.tex",
			},
			wantErr: ErrOutputCollision,
		},
		{
			name: "output PDF lands at the root for a nested main",
			req: Request{
				Inputs:   []Input{TextInput("src/thesis.tex", "x"), BinaryInput("./thesis.pdf", []byte("%PDF-1.4 old"))},
				MainFile: "src/thesis.tex",
			},
			wantErr: ErrOutputCollision,
		},
		{
			name: "same base name in a subdirectory is allowed",
			req: Request{
				Inputs:   []Input{TextInput("main.tex", "x"), BinaryInput("figures/main.pdf", []byte("%PDF-1.4 fig"))},
				MainFile: "main.tex",
			},
		},
		{
			name:    "unknown kind",
			req:     Request{Inputs: []Input{{Name: "main.tex", Kind: ContentKind(7)}}, MainFile: "main.tex"},
			wantErr: ErrInvalidKind,
		},
		{
			name:    "no inputs reported before empty main",
			req:     Request{},
			wantErr: ErrNoInputs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestContentKind_String
// ---------------------------------------------------------------------------

func TestContentKind_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind ContentKind
		want string
	}{
		{Text, "text"},
		{Binary, "binary"},
		{ContentKind(9), "ContentKind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ContentKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestInputConstructors(t *testing.T) {
	t.Parallel()

	in := TextInput("main.tex", "Hello ##name##")
	if in.Kind != Text || string(in.Data) != "Hello ##name##" {
		t.Errorf("TextInput() = %+v", in)
	}

	bin := BinaryInput("logo.png", []byte{1, 2, 3})
	if bin.Kind != Binary || len(bin.Data) != 3 {
		t.Errorf("BinaryInput() = %+v", bin)
	}
}
