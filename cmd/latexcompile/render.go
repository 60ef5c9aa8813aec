package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-latexcompile/internal/template"
)

// DefaultStyle is the chroma style used by --color and --html.
const DefaultStyle = "monokai"

// renderFlags holds flags for the render command.
type renderFlags struct {
	common commonFlags
	values valueFlags
	color  bool
	html   bool
	style  string
	list   bool
}

func renderFlagSet(w io.Writer) (*flag.FlagSet, *renderFlags) {
	f := &renderFlags{}
	fs := newFlagSet("render", w, printRenderUsage)
	fs.BoolVar(&f.color, "color", false, "highlight TeX for the terminal")
	fs.BoolVar(&f.html, "html", false, "emit a standalone highlighted HTML page")
	fs.StringVar(&f.style, "style", DefaultStyle, "highlighting style")
	fs.BoolVarP(&f.list, "list", "l", false, "list placeholders instead of rendering")
	addValueFlags(fs, &f.values)
	addCommonFlags(fs, &f.common)
	return fs, f
}

func parseRenderFlags(args []string, env *Environment) (*renderFlags, *flag.FlagSet, error) {
	fs, f := renderFlagSet(env.Stderr)
	if err := parseFlagSet(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// runRender prints a text input after substitution without compiling it.
func runRender(args []string, env *Environment) error {
	f, fs, err := parseRenderFlags(args, env)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		printRenderUsage(env.Stderr)
		return fmt.Errorf("%w: render needs exactly one file", ErrUsage)
	}
	if f.color && f.html {
		return fmt.Errorf("%w: --color and --html are mutually exclusive", ErrUsage)
	}

	cfg, err := loadConfig(&f.common, env)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	values, err := resolveValues(cfg.Values, &f.values)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(fs.Arg(0)) // #nosec G304 -- path is user-provided
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	text := string(data)

	if f.list {
		printPlaceholders(env.Stdout, text, values)
		return nil
	}

	rendered := template.Render(text, values)
	switch {
	case f.color:
		return highlight(env.Stdout, rendered, "terminal256", f.style)
	case f.html:
		return highlight(env.Stdout, rendered, "html", f.style)
	default:
		_, err := io.WriteString(env.Stdout, rendered)
		return err
	}
}

// printPlaceholders lists keys in first-seen order, marking unmapped ones.
func printPlaceholders(w io.Writer, text string, values map[string]string) {
	for _, key := range template.Placeholders(text) {
		if _, ok := values[key]; ok {
			fmt.Fprintf(w, "  %s\n", key)
		} else {
			fmt.Fprintf(w, "  %s (unmapped)\n", key)
		}
	}
}

// highlight writes text tokenized by the TeX lexer through the named
// chroma formatter.
func highlight(w io.Writer, text, format, style string) error {
	lexer := lexers.Get("tex")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	var formatter chroma.Formatter
	if format == "html" {
		formatter = chromahtml.New(chromahtml.Standalone(true), chromahtml.WithLineNumbers(true))
	} else {
		formatter = formatters.Get(format)
	}

	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}

	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("highlighting: %w", err)
	}
	if err := formatter.Format(w, s, it); err != nil {
		return fmt.Errorf("highlighting: %w", err)
	}
	return nil
}
