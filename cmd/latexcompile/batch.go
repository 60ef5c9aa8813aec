package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	latexcompile "github.com/alnah/go-latexcompile"
	"github.com/alnah/go-latexcompile/internal/config"
	"github.com/alnah/go-latexcompile/internal/ctxlog"
	"github.com/alnah/go-latexcompile/internal/sink"
	"github.com/alnah/go-latexcompile/internal/yamlutil"
)

// MaxJobs caps the number of jobs in one manifest.
const MaxJobs = 1000

// ErrBatchFailed reports that at least one job failed.
var ErrBatchFailed = errors.New("batch had failures")

// Manifest lists the documents of one batch run. Relative paths are
// resolved against the manifest's directory.
type Manifest struct {
	Values map[string]string `yaml:"values"` // shared by every job
	Jobs   []ManifestJob     `yaml:"jobs"`
}

// ManifestJob is one document in a Manifest.
type ManifestJob struct {
	Name   string            `yaml:"name"`   // label in output; defaults to main
	Main   string            `yaml:"main"`   // main .tex file
	Files  []string          `yaml:"files"`  // extra files or directories
	Values map[string]string `yaml:"values"` // override shared values
	Output string            `yaml:"output"` // path or s3:// URL
}

// loadManifest decodes and validates a manifest file, resolving its paths.
func loadManifest(path string) (*Manifest, error) {
	var m Manifest
	if err := yamlutil.DecodeFile(path, &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		return nil, fmt.Errorf("%w: manifest %s: %w", ErrUsage, path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("%w: manifest %s has no jobs", ErrUsage, path)
	}
	if len(m.Jobs) > MaxJobs {
		return nil, fmt.Errorf("%w: manifest %s has %d jobs (max %d)", ErrUsage, path, len(m.Jobs), MaxJobs)
	}
	if err := config.ValidateValues("values", m.Values); err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || sink.IsS3(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.Main == "" {
			return nil, fmt.Errorf("%w: manifest %s: job %d has no main file", ErrUsage, path, i+1)
		}
		if job.Name == "" {
			job.Name = job.Main
		}
		if err := config.ValidateValues(fmt.Sprintf("jobs[%d].values", i), job.Values); err != nil {
			return nil, err
		}
		job.Main = resolve(job.Main)
		for j := range job.Files {
			job.Files[j] = resolve(job.Files[j])
		}
		job.Output = resolve(job.Output)
	}
	return &m, nil
}

// JobResult holds the outcome of a single job.
type JobResult struct {
	Name       string
	OutputPath string
	Passes     int
	Err        error
	Duration   time.Duration
}

// batchFlags holds flags for the batch command.
type batchFlags struct {
	common   commonFlags
	compiler compilerFlags
	values   valueFlags
	workers  int
	report   string
}

func batchFlagSet(w io.Writer) (*flag.FlagSet, *batchFlags) {
	f := &batchFlags{}
	fs := newFlagSet("batch", w, printBatchUsage)
	fs.IntVarP(&f.workers, "workers", "j", 0, "parallel compilations (0 = auto)")
	fs.StringVar(&f.report, "report", "", "write a YAML report of every job to this file")
	addValueFlags(fs, &f.values)
	addCompilerFlags(fs, &f.compiler)
	addCommonFlags(fs, &f.common)
	return fs, f
}

func parseBatchFlags(args []string, env *Environment) (*batchFlags, *flag.FlagSet, error) {
	fs, f := batchFlagSet(env.Stderr)
	if err := parseFlagSet(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// runBatch compiles every job of a manifest through a bounded pool.
func runBatch(ctx context.Context, args []string, env *Environment) error {
	f, fs, err := parseBatchFlags(args, env)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		printBatchUsage(env.Stderr)
		return fmt.Errorf("%w: batch needs exactly one manifest", ErrUsage)
	}

	cfg, err := loadConfig(&f.common, env)
	if err != nil {
		return err
	}
	mergeCompilerFlags(fs, &f.compiler, cfg)
	if fs.Changed("workers") {
		cfg.Batch.Workers = f.workers
	}

	logger := newLogger(env.Stderr, cfg.Log)
	ctx = ctxlog.WithLogger(ctx, logger)

	manifest, err := loadManifest(fs.Arg(0))
	if err != nil {
		return err
	}
	shared, err := sharedValues(cfg.Values, manifest.Values, &f.values)
	if err != nil {
		return err
	}
	compiler, err := newCompiler(cfg, logger)
	if err != nil {
		return err
	}

	pool := latexcompile.NewPool(compiler, latexcompile.ResolvePoolSize(cfg.Batch.Workers))
	logger.Debug("batch starting", "jobs", len(manifest.Jobs), "workers", pool.Size())

	results := compileBatch(ctx, pool, manifest, shared, cfg)

	if f.report != "" {
		if err := writeReport(f.report, results, env.Now()); err != nil {
			return err
		}
	}

	failed := printResults(results, f.common.quiet, f.common.verbose, env)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d jobs failed: %w", ErrBatchFailed, failed, len(results), firstError(results))
	}
	return nil
}

// sharedValues layers the values every job starts from: config, then the
// manifest's values block, then --vars and --var. Job values go on top in
// compileOne.
func sharedValues(fromConfig, fromManifest map[string]string, f *valueFlags) (map[string]string, error) {
	base := make(map[string]string, len(fromConfig)+len(fromManifest))
	maps.Copy(base, fromConfig)
	maps.Copy(base, fromManifest)
	return resolveValues(base, f)
}

// compileBatch runs the jobs concurrently, at most pool.Size() at a time.
// Results keep manifest order.
func compileBatch(ctx context.Context, pool *latexcompile.Pool, m *Manifest, shared map[string]string, cfg *config.Config) []JobResult {
	concurrency := min(pool.Size(), len(m.Jobs))

	results := make([]JobResult, len(m.Jobs))
	var wg sync.WaitGroup
	jobs := make(chan int, len(m.Jobs))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = JobResult{Name: m.Jobs[idx].Name, Err: ctx.Err()}
					continue
				}
				results[idx] = compileOne(ctx, pool, m.Jobs[idx], shared, cfg)
			}
		}()
	}

	for i := range m.Jobs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// compileOne processes a single job and returns its result.
func compileOne(ctx context.Context, pool *latexcompile.Pool, job ManifestJob, shared map[string]string, cfg *config.Config) JobResult {
	start := time.Now()
	result := JobResult{Name: job.Name}
	fail := func(err error) JobResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	src, err := collectSources(job.Main, job.Files)
	if err != nil {
		return fail(err)
	}
	inputs, err := src.load()
	if err != nil {
		return fail(err)
	}
	result.OutputPath = outputPath(job.Output, cfg, src)

	values := maps.Clone(shared)
	if values == nil {
		values = make(map[string]string, len(job.Values))
	}
	maps.Copy(values, job.Values)

	ctxlog.FromContext(ctx).Debug("job queued", "job", job.Name, "in_flight", pool.InFlight(), "pool_size", pool.Size())
	res, err := pool.Compile(ctx, latexcompile.Request{
		Inputs:   inputs,
		Values:   values,
		MainFile: src.mainName,
	})
	if err != nil {
		return fail(err)
	}
	result.Passes = res.Passes

	out, err := sink.Open(ctx, result.OutputPath)
	if err != nil {
		return fail(err)
	}
	location, err := out.Write(ctx, res.PDF)
	if err != nil {
		return fail(err)
	}
	result.OutputPath = location

	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed jobs.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

func countResults(results []JobResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

func firstError(results []JobResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// printResults outputs job results and returns the number of failures.
func printResults(results []JobResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Name, r.Err)
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d passes, %v)\n", r.Name, r.OutputPath, r.Passes, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}

// reportEntry is one job in a --report file.
type reportEntry struct {
	Name     string `yaml:"name"`
	Output   string `yaml:"output,omitempty"`
	Status   string `yaml:"status"` // ok, failed
	Passes   int    `yaml:"passes,omitempty"`
	Duration string `yaml:"duration"`
	Error    string `yaml:"error,omitempty"`
}

type report struct {
	Generated string        `yaml:"generated"`
	Succeeded int           `yaml:"succeeded"`
	Failed    int           `yaml:"failed"`
	Jobs      []reportEntry `yaml:"jobs"`
}

// writeReport stores the batch outcome as YAML for CI pipelines.
func writeReport(path string, results []JobResult, now time.Time) error {
	summary := countResults(results)
	r := report{
		Generated: now.UTC().Format(time.RFC3339),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	}
	for _, res := range results {
		e := reportEntry{
			Name:     res.Name,
			Output:   res.OutputPath,
			Status:   "ok",
			Passes:   res.Passes,
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if res.Err != nil {
			e.Status = "failed"
			e.Error = res.Err.Error()
		}
		r.Jobs = append(r.Jobs, e)
	}

	data, err := yamlutil.Encode(r)
	if err != nil {
		return err
	}
	// #nosec G306 -- reports are meant to be readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
