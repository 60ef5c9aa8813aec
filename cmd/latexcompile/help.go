package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: latexcompile <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  compile     Compile a LaTeX document to PDF")
	fmt.Fprintln(w, "  batch       Compile the documents listed in a YAML manifest")
	fmt.Fprintln(w, "  render      Print a file after ##key## substitution")
	fmt.Fprintln(w, "  doctor      Check the toolchain and environment")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'latexcompile help <command>' for details on a specific command.")
}

// runHelp prints help for a command, or the main usage.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "compile":
		printCompileUsage(env.Stdout)
	case "batch":
		printBatchUsage(env.Stdout)
	case "render":
		printRenderUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: latexcompile version")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: latexcompile help [command]")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --env-file <path>     Load LATEXCOMPILE_*/AWS_* variables from a .env file")
	fmt.Fprintln(w, "      --log-format <s>      Log format: text, json")
	fmt.Fprintln(w, "  -q, --quiet               Only print errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging")
}

func printCompilerUsage(w io.Writer) {
	fmt.Fprintln(w, "Toolchain:")
	fmt.Fprintln(w, "      --command <exe>       Executable (default pdflatex)")
	fmt.Fprintln(w, "      --arg <s>             Argument, repeatable; replaces the defaults")
	fmt.Fprintln(w, "                            (-interaction=nonstopmode -halt-on-error -file-line-error)")
	fmt.Fprintln(w, "      --passes <n>          Toolchain runs, 1-5 (2 resolves cross references)")
	fmt.Fprintln(w, "      --timeout <d>         Limit per compilation, e.g. 90s (0 = none)")
	fmt.Fprintln(w, "      --temp-dir <dir>      Parent directory for workspaces")
}

func printValueUsage(w io.Writer) {
	fmt.Fprintln(w, "Values:")
	fmt.Fprintln(w, "      --var key=value       Placeholder value for ##key##, repeatable")
	fmt.Fprintln(w, "      --vars <file.yaml>    YAML mapping of placeholder values (quote numbers)")
	fmt.Fprintln(w, "                            Precedence: --var > --vars > config values")
}

// printCompileUsage prints usage for the compile command.
func printCompileUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: latexcompile compile <main.tex> [files or directories...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile a LaTeX document in a fresh workspace. Extra files keep their")
	fmt.Fprintln(w, "path relative to the main file's directory. Text files are templated,")
	fmt.Fprintln(w, "binary files (images, fonts, PDFs) are copied verbatim.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       PDF file, directory, or s3://bucket/key")
	fmt.Fprintln(w, "  -w, --watch               Recompile when inputs change")
	fmt.Fprintln(w)
	printValueUsage(w)
	fmt.Fprintln(w)
	printCompilerUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  latexcompile compile letter.tex --var name=Ada")
	fmt.Fprintln(w, "  latexcompile compile thesis/main.tex thesis/chapters thesis/figures --passes 2")
	fmt.Fprintln(w, "  latexcompile compile report.tex -o s3://reports/2026/q3.pdf --env-file .env")
}

// printBatchUsage prints usage for the batch command.
func printBatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: latexcompile batch <manifest.yaml> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile several documents concurrently. Manifest format:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  values:            # shared by every job")
	fmt.Fprintln(w, "    company: ACME")
	fmt.Fprintln(w, "  jobs:")
	fmt.Fprintln(w, "    - name: invoice-42")
	fmt.Fprintln(w, "      main: invoice/main.tex")
	fmt.Fprintln(w, "      files: [invoice/logo.png]")
	fmt.Fprintln(w, "      values: {client: Initech}")
	fmt.Fprintln(w, "      output: out/invoice-42.pdf")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Paths are relative to the manifest. Values are layered, later wins:")
	fmt.Fprintln(w, "config, manifest values, --vars, --var, job values.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Batch:")
	fmt.Fprintln(w, "  -j, --workers <n>         Parallel compilations (0 = auto)")
	fmt.Fprintln(w, "      --report <file>       Write a YAML report of every job")
	fmt.Fprintln(w)
	printValueUsage(w)
	fmt.Fprintln(w)
	printCompilerUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: latexcompile render <file> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print a file after ##key## substitution, without compiling it.")
	fmt.Fprintln(w, "Unmapped placeholders are printed as-is.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render:")
	fmt.Fprintln(w, "      --color               Highlight TeX for the terminal")
	fmt.Fprintln(w, "      --html                Emit a standalone highlighted HTML page")
	fmt.Fprintln(w, "      --style <name>        Highlighting style (default monokai)")
	fmt.Fprintln(w, "  -l, --list                List placeholders, marking unmapped ones")
	fmt.Fprintln(w)
	printValueUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: latexcompile doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the configured toolchain is on PATH and the workspace")
	fmt.Fprintln(w, "parent directory is writable.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Doctor:")
	fmt.Fprintln(w, "      --json                Machine-readable output")
	fmt.Fprintln(w, "      --command <exe>       Executable to check")
	fmt.Fprintln(w)
	printCommonUsage(w)
}
