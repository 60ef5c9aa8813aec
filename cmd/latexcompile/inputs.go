package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	latexcompile "github.com/alnah/go-latexcompile"
	"github.com/alnah/go-latexcompile/internal/config"
	"github.com/alnah/go-latexcompile/internal/sink"
)

// Sentinel errors for input collection.
var (
	ErrReadInput   = errors.New("failed to read input file")
	ErrOutsideRoot = errors.New("input is outside the main file's directory")
)

// sourceSet is the set of files one compilation reads from disk. Input
// names are paths relative to the main file's directory, so the workspace
// mirrors the project layout.
type sourceSet struct {
	root     string   // absolute directory of the main file
	mainName string   // main file name relative to root
	paths    []string // absolute paths, main file first
}

// collectSources resolves the main file and extras. Directories among the
// extras are walked recursively. The PDF a previous run left next to the
// main file is never collected.
func collectSources(mainPath string, extras []string) (*sourceSet, error) {
	absMain, err := filepath.Abs(mainPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	info, err := os.Stat(absMain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: main file %s is a directory", ErrUsage, mainPath)
	}

	s := &sourceSet{
		root:     filepath.Dir(absMain),
		mainName: filepath.Base(absMain),
		paths:    []string{absMain},
	}
	seen := map[string]bool{absMain: true}
	previousOutput := filepath.Join(s.root, pdfName(s.mainName))
	add := func(p string) error {
		if seen[p] || p == previousOutput {
			return nil
		}
		if _, err := s.relName(p); err != nil {
			return err
		}
		seen[p] = true
		s.paths = append(s.paths, p)
		return nil
	}

	for _, extra := range extras {
		abs, err := filepath.Abs(extra)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		if !info.IsDir() {
			if err := add(abs); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				return add(p)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrOutsideRoot) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
	}
	return s, nil
}

// relName maps an absolute path to its slash-separated input name.
func (s *sourceSet) relName(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s (root %s)", ErrOutsideRoot, abs, s.root)
	}
	return filepath.ToSlash(rel), nil
}

// load reads every file. The main file is always templated; other files
// are classified by content.
func (s *sourceSet) load() ([]latexcompile.Input, error) {
	inputs := make([]latexcompile.Input, 0, len(s.paths))
	for i, p := range s.paths {
		data, err := os.ReadFile(p) // #nosec G304 -- paths are user-provided
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		name, err := s.relName(p)
		if err != nil {
			return nil, err
		}
		kind := classify(data)
		if i == 0 {
			kind = latexcompile.Text
		}
		inputs = append(inputs, latexcompile.Input{Name: name, Kind: kind, Data: data})
	}
	return inputs, nil
}

// classify decides whether a file is templated text or copied verbatim.
// Anything mimetype places under text/plain (TeX, BibTeX, SVG, CSV) is text.
func classify(data []byte) latexcompile.ContentKind {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return latexcompile.Text
		}
	}
	if mt.Is("application/octet-stream") && utf8.Valid(data) && bytes.IndexByte(data, 0) < 0 {
		return latexcompile.Text
	}
	return latexcompile.Binary
}

// outputPath picks where the PDF goes: -o, then output.defaultDir, then
// next to the main file. A local -o naming a directory gets the default
// file name inside it.
func outputPath(dest string, cfg *config.Config, src *sourceSet) string {
	name := pdfName(src.mainName)
	switch {
	case dest != "" && sink.IsS3(dest):
		return dest
	case dest != "":
		if strings.HasSuffix(dest, "/") || isDir(dest) {
			return filepath.Join(dest, name)
		}
		return dest
	case cfg.Output.DefaultDir != "":
		return filepath.Join(cfg.Output.DefaultDir, name)
	default:
		return filepath.Join(src.root, name)
	}
}

// pdfName is the file name the toolchain gives the PDF of mainName.
func pdfName(mainName string) string {
	return strings.TrimSuffix(mainName, filepath.Ext(mainName)) + ".pdf"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
