package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	flag "github.com/spf13/pflag"

	latexcompile "github.com/alnah/go-latexcompile"
	"github.com/alnah/go-latexcompile/internal/ctxlog"
	"github.com/alnah/go-latexcompile/internal/sink"
	"github.com/alnah/go-latexcompile/internal/watcher"
)

// compileFlags holds flags for the compile command.
type compileFlags struct {
	common   commonFlags
	compiler compilerFlags
	values   valueFlags
	output   string
	watch    bool
}

// compileFlagSet registers the compile flags. Completion reuses it.
func compileFlagSet(w io.Writer) (*flag.FlagSet, *compileFlags) {
	f := &compileFlags{}
	fs := newFlagSet("compile", w, printCompileUsage)
	fs.StringVarP(&f.output, "output", "o", "", "output file, directory, or s3://bucket/key")
	fs.BoolVarP(&f.watch, "watch", "w", false, "recompile when inputs change")
	addValueFlags(fs, &f.values)
	addCompilerFlags(fs, &f.compiler)
	addCommonFlags(fs, &f.common)
	return fs, f
}

func parseCompileFlags(args []string, env *Environment) (*compileFlags, *flag.FlagSet, error) {
	fs, f := compileFlagSet(env.Stderr)
	if err := parseFlagSet(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// runCompile compiles one document from disk.
func runCompile(ctx context.Context, args []string, env *Environment) error {
	f, fs, err := parseCompileFlags(args, env)
	if err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) == 0 {
		printCompileUsage(env.Stderr)
		return fmt.Errorf("%w: compile needs a main .tex file", ErrUsage)
	}

	cfg, err := loadConfig(&f.common, env)
	if err != nil {
		return err
	}
	mergeCompilerFlags(fs, &f.compiler, cfg)

	logger := newLogger(env.Stderr, cfg.Log)
	ctx = ctxlog.WithLogger(ctx, logger)

	values, err := resolveValues(cfg.Values, &f.values)
	if err != nil {
		return err
	}
	compiler, err := newCompiler(cfg, logger)
	if err != nil {
		return err
	}
	src, err := collectSources(positional[0], positional[1:])
	if err != nil {
		return err
	}

	out, err := sink.Open(ctx, outputPath(f.output, cfg, src))
	if err != nil {
		return withHints(err, compiler.Command())
	}

	job := &compileJob{
		compiler: compiler,
		src:      src,
		values:   values,
		out:      out,
		env:      env,
		quiet:    f.common.quiet,
	}
	if !f.watch {
		return job.run(ctx)
	}
	return job.watch(ctx, logger)
}

// compileJob is one document bound to its compiler, values and sink.
type compileJob struct {
	compiler *latexcompile.Compiler
	src      *sourceSet
	values   map[string]string
	out      sink.Sink
	env      *Environment
	quiet    bool
}

// run reads the sources fresh, compiles and writes the PDF.
func (j *compileJob) run(ctx context.Context) error {
	inputs, err := j.src.load()
	if err != nil {
		return err
	}

	res, err := j.compiler.Compile(ctx, latexcompile.Request{
		Inputs:   inputs,
		Values:   j.values,
		MainFile: j.src.mainName,
	})
	if err != nil {
		return withHints(err, j.compiler.Command())
	}

	location, err := j.out.Write(ctx, res.PDF)
	if err != nil {
		return withHints(err, j.compiler.Command())
	}
	if !j.quiet {
		fmt.Fprintf(j.env.Stdout, "Created %s (%d passes, %s)\n", location, res.Passes, res.Duration.Round(time.Millisecond))
	}
	return nil
}

// watch compiles once, then again after every change until ctx ends.
// Compilation failures are reported and watching continues.
func (j *compileJob) watch(ctx context.Context, logger *slog.Logger) error {
	w, err := watcher.New(j.src.paths, watcher.DefaultDelay)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := j.run(ctx); err != nil {
		fmt.Fprintf(j.env.Stderr, "error: %v\n", err)
	}
	logger.Info("watching for changes", "files", len(j.src.paths))

	return w.Run(ctx, func(ctx context.Context, changed []string) {
		logger.Info("change detected", "files", changed)
		if err := j.run(ctx); err != nil {
			fmt.Fprintf(j.env.Stderr, "error: %v\n", err)
		}
	})
}
