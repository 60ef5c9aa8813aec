package latexcompile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/alnah/go-latexcompile/internal/workspace"
)

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// outputName derives the PDF name the toolchain writes into its working
// directory: the main file's base name with a .pdf extension.
func outputName(mainFile string) string {
	base := path.Base(strings.ReplaceAll(mainFile, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base)) + ".pdf"
}

// extract reads the compiled PDF back out of the workspace. The file is
// checked again even after invoke saw it, since nothing stops another process
// from touching the directory in between.
func extract(ws *workspace.Workspace, mainFile string) ([]byte, error) {
	pdfPath, err := ws.Resolve(outputName(mainFile))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(pdfPath) // #nosec G304 -- path resolved inside workspace
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, outputName(mainFile))
		}
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}

	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactInvalid, outputName(mainFile))
	}
	return data, nil
}
