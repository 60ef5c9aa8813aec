package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = fmt.Errorf("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagEnum // has predefined values
	flagFile
	flagDir
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long   string
	Short  string
	Type   flagType
	Desc   string
	Values []string // for enum flags
}

// commandDef describes a command for completion.
type commandDef struct {
	Name       string
	Desc       string
	Flags      []flagDef
	TakesFiles bool
}

// completionMeta holds completion-specific metadata for flags.
// Flag names, types, and descriptions come from the FlagSet.
type completionMeta struct {
	Values []string
	IsFile bool
	IsDir  bool
}

var flagCompletionMeta = map[string]completionMeta{
	"log-format": {Values: []string{"text", "json"}},
	"style":      {Values: []string{"monokai", "github", "dracula", "solarized-dark", "solarized-light"}},
	"config":     {IsFile: true},
	"env-file":   {IsFile: true},
	"vars":       {IsFile: true},
	"report":     {IsFile: true},
	"command":    {IsFile: true},
	"output":     {IsFile: true},
	"temp-dir":   {IsDir: true},
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage}
		if f.Value.Type() == "bool" {
			fd.Type = flagBool
		}
		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.IsFile:
				fd.Type = flagFile
			case meta.IsDir:
				fd.Type = flagDir
			}
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry for completion.
// Flags are extracted from the actual FlagSets.
func getCommands() []commandDef {
	compileFS, _ := compileFlagSet(io.Discard)
	batchFS, _ := batchFlagSet(io.Discard)
	renderFS, _ := renderFlagSet(io.Discard)
	doctorFS, _ := doctorFlagSet(io.Discard)

	return []commandDef{
		{Name: "compile", Desc: "Compile a LaTeX document to PDF", Flags: extractFlagsFromFlagSet(compileFS), TakesFiles: true},
		{Name: "batch", Desc: "Compile documents from a YAML manifest", Flags: extractFlagsFromFlagSet(batchFS), TakesFiles: true},
		{Name: "render", Desc: "Print a file after substitution", Flags: extractFlagsFromFlagSet(renderFS), TakesFiles: true},
		{Name: "doctor", Desc: "Check the toolchain and environment", Flags: extractFlagsFromFlagSet(doctorFS)},
		{Name: "completion", Desc: "Generate shell completion script"},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
	}
}

// GenerateCompletion writes shell completion script to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	bw := bufio.NewWriter(w)
	switch shell {
	case ShellBash:
		generateBash(bw, getCommands())
	case ShellZsh:
		fmt.Fprintln(bw, "#compdef latexcompile")
		fmt.Fprintln(bw, "autoload -U +X bashcompinit && bashcompinit")
		generateBash(bw, getCommands())
	case ShellFish:
		generateFish(bw, getCommands())
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
	return bw.Flush()
}

func generateBash(w io.Writer, cmds []commandDef) {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}

	fmt.Fprintln(w, "_latexcompile() {")
	fmt.Fprintln(w, `  local cur="${COMP_WORDS[COMP_CWORD]}" prev="${COMP_WORDS[COMP_CWORD-1]}" opts=""`)
	fmt.Fprintln(w, `  if [[ $COMP_CWORD -eq 1 ]]; then`)
	fmt.Fprintf(w, "    COMPREPLY=($(compgen -W %q -- \"$cur\"))\n", strings.Join(names, " "))
	fmt.Fprintln(w, "    return")
	fmt.Fprintln(w, "  fi")

	// Flag values, shared by every command.
	fmt.Fprintln(w, `  case "$prev" in`)
	for _, fd := range uniqueValueFlags(cmds) {
		pattern := "--" + fd.Long
		if fd.Short != "" {
			pattern = "-" + fd.Short + "|" + pattern
		}
		switch fd.Type {
		case flagEnum:
			fmt.Fprintf(w, "    %s) COMPREPLY=($(compgen -W %q -- \"$cur\")); return ;;\n", pattern, strings.Join(fd.Values, " "))
		case flagDir:
			fmt.Fprintf(w, "    %s) COMPREPLY=($(compgen -d -- \"$cur\")); return ;;\n", pattern)
		case flagFile:
			fmt.Fprintf(w, "    %s) COMPREPLY=($(compgen -f -- \"$cur\")); return ;;\n", pattern)
		case flagString:
			fmt.Fprintf(w, "    %s) return ;;\n", pattern)
		}
	}
	fmt.Fprintln(w, "  esac")

	fmt.Fprintln(w, `  case "${COMP_WORDS[1]}" in`)
	for _, c := range cmds {
		switch c.Name {
		case "help":
			fmt.Fprintf(w, "    help) COMPREPLY=($(compgen -W %q -- \"$cur\")); return ;;\n", strings.Join(names, " "))
		case "completion":
			fmt.Fprintln(w, `    completion) COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur")); return ;;`)
		default:
			if len(c.Flags) > 0 {
				fmt.Fprintf(w, "    %s) opts=%q ;;\n", c.Name, strings.Join(flagWords(c.Flags), " "))
			}
		}
	}
	fmt.Fprintln(w, "  esac")
	fmt.Fprintln(w, `  if [[ "$cur" == -* ]]; then`)
	fmt.Fprintln(w, `    COMPREPLY=($(compgen -W "$opts" -- "$cur"))`)
	fmt.Fprintln(w, "  else")
	fmt.Fprintln(w, `    COMPREPLY=($(compgen -f -- "$cur"))`)
	fmt.Fprintln(w, "  fi")
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w, "complete -o filenames -F _latexcompile latexcompile")
}

func generateFish(w io.Writer, cmds []commandDef) {
	fmt.Fprintln(w, "complete -c latexcompile -f")
	for _, c := range cmds {
		fmt.Fprintf(w, "complete -c latexcompile -n __fish_use_subcommand -a %s -d %s\n", c.Name, fishQuote(c.Desc))
	}
	for _, c := range cmds {
		cond := "__fish_seen_subcommand_from " + c.Name
		if c.TakesFiles {
			fmt.Fprintf(w, "complete -c latexcompile -n %s -F\n", fishQuote(cond))
		}
		for _, fd := range c.Flags {
			line := fmt.Sprintf("complete -c latexcompile -n %s -l %s", fishQuote(cond), fd.Long)
			if fd.Short != "" {
				line += " -s " + fd.Short
			}
			switch fd.Type {
			case flagEnum:
				line += " -x -a " + fishQuote(strings.Join(fd.Values, " "))
			case flagFile:
				line += " -r -F"
			case flagDir:
				line += " -x -a '(__fish_complete_directories)'"
			case flagString:
				line += " -x"
			}
			fmt.Fprintln(w, line+" -d "+fishQuote(fd.Desc))
		}
	}
}

// uniqueValueFlags returns every value-taking flag once, sorted by name.
func uniqueValueFlags(cmds []commandDef) []flagDef {
	seen := map[string]bool{}
	var out []flagDef
	for _, c := range cmds {
		for _, fd := range c.Flags {
			if fd.Type == flagBool || seen[fd.Long] {
				continue
			}
			seen[fd.Long] = true
			out = append(out, fd)
		}
	}
	slices.SortFunc(out, func(a, b flagDef) int { return strings.Compare(a.Long, b.Long) })
	return out
}

func flagWords(flags []flagDef) []string {
	words := make([]string, 0, len(flags)*2)
	for _, fd := range flags {
		words = append(words, "--"+fd.Long)
		if fd.Short != "" {
			words = append(words, "-"+fd.Short)
		}
	}
	return words
}

func fishQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: latexcompile completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(latexcompile completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (after compinit):")
	fmt.Fprintln(w, "    eval \"$(latexcompile completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    latexcompile completion fish > ~/.config/fish/completions/latexcompile.fish")
}
