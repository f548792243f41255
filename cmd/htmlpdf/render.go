package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/config"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
	"github.com/alnah/go-htmlpdf/internal/hints"
	"github.com/alnah/go-htmlpdf/internal/markdown"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput   = errors.New("no input specified")
	ErrReadInput = errors.New("failed to read input")
	ErrUsage     = errors.New("invalid usage")
)

// File permission constants.
const (
	dirPermissions = 0o750 // rwxr-x---: owner full, group read+execute
)

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// renderJob is one input and where its PDF goes. Output "-" is stdout.
type renderJob struct {
	Input  string
	Output string
}

// renderResult holds the outcome of a single render.
type renderResult struct {
	Input    string
	Output   string
	Pages    int
	Err      error
	Duration time.Duration
}

// renderer renders jobs with options shared by the whole run.
type renderer struct {
	env     *Environment
	opts    []htmlpdf.Option
	cookies []config.Cookie
	md      *markdown.Converter
	logger  *zap.Logger
	verbose bool
}

// runRender orchestrates the render command.
func runRender(ctx context.Context, args []string, env *Environment) error {
	flags, inputs, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: pass a URL, .html or .md file, or - for stdin", ErrNoInput)
	}

	envCfg := loadEnvConfig()
	warnUnknownEnvVars(env.Stderr)

	cfg, err := loadConfig(flags.common.config, envCfg, sharedFlags{
		browser: &flags.browser, load: &flags.load, page: &flags.page,
		footer: &flags.footer, trigger: &flags.trigger, explicit: flags.explicit,
	})
	if err != nil {
		return err
	}
	if flags.explicit["workers"] {
		if flags.workers < 0 {
			return usageErrorf("--workers must not be negative, got %d", flags.workers)
		}
		cfg.Render.Workers = flags.workers
	}
	if flags.explicit["md-style"] {
		cfg.Render.Markdown.Style = flags.mdStyle
	}

	jobs, err := planJobs(inputs, flags.output, cfg.Output.Dir)
	if err != nil {
		return err
	}

	logger := newLogger(flags.common.verbose, env.Stderr)
	defer func() { _ = logger.Sync() }()

	opts, err := buildOptions(cfg, env.Now(), logger)
	if err != nil {
		return err
	}

	// Several inputs share one launched browser; a single input lets
	// Create launch and terminate its own.
	if len(jobs) > 1 && !hasEndpoint(cfg) {
		proc, err := env.Launch(ctx, launchConfig(cfg))
		if err != nil {
			return &hintedError{err: err, hint: hintFor(err, cfg)}
		}
		defer func() {
			if err := proc.Kill(); err != nil {
				logger.Warn("stopping shared browser", zap.Error(err))
			}
		}()
		opts = append(opts, htmlpdf.WithEndpoint("127.0.0.1", proc.Port()))
	}

	r := &renderer{env: env, opts: opts, cookies: cfg.Render.Cookies, logger: logger, verbose: flags.common.verbose}
	if needsMarkdown(jobs) {
		if r.md, err = markdown.New(cfg.Render.Markdown.Style); err != nil {
			return err
		}
	}

	results := r.renderAll(ctx, jobs, workerCount(cfg.Render.Workers, len(jobs)))

	failed, firstErr := printResults(results, flags.common.quiet, flags.common.verbose, env)
	if failed == 0 {
		return nil
	}
	err = firstErr
	if len(results) > 1 {
		err = fmt.Errorf("%d of %d render(s) failed: %w", failed, len(results), firstErr)
	}
	return &hintedError{err: err, hint: hintFor(firstErr, cfg)}
}

// planJobs maps inputs to outputs. With a single input, an output ending
// in .pdf (or "-") names the file; otherwise it is a directory.
func planJobs(inputs []string, output, defaultDir string) ([]renderJob, error) {
	stdin := 0
	for _, in := range inputs {
		if _, err := fileutil.Classify(in); err != nil {
			return nil, err
		}
		if in == "-" {
			stdin++
		}
	}
	if stdin > 1 {
		return nil, usageErrorf("stdin (-) can only be read once")
	}

	single := len(inputs) == 1
	if output == "-" && !single {
		return nil, usageErrorf("--output - needs exactly one input")
	}

	dir := output
	if dir == "" {
		dir = defaultDir
	}
	jobs := make([]renderJob, len(inputs))
	for i, in := range inputs {
		out := fileutil.OutputPath(in, dir, fmt.Sprintf("page-%d", i+1))
		if single && (output == "-" || strings.EqualFold(filepath.Ext(output), ".pdf")) {
			out = output
		}
		jobs[i] = renderJob{Input: in, Output: out}
	}
	return jobs, nil
}

func needsMarkdown(jobs []renderJob) bool {
	for _, j := range jobs {
		if k, _ := fileutil.Classify(j.Input); k == fileutil.KindMarkdown {
			return true
		}
	}
	return false
}

// workerCount bounds concurrency by the configured value, or GOMAXPROCS,
// and by the number of jobs.
func workerCount(configured, jobs int) int {
	n := configured
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, jobs))
}

// renderAll renders jobs concurrently. A failed job does not stop the others.
func (r *renderer) renderAll(ctx context.Context, jobs []renderJob, workers int) []renderResult {
	results := make([]renderResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = renderResult{Input: job.Input, Err: err}
				return nil
			}
			results[i] = r.renderOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// renderOne renders a single job and writes its PDF.
func (r *renderer) renderOne(ctx context.Context, job renderJob) renderResult {
	start := time.Now()
	result := renderResult{Input: job.Input, Output: job.Output}
	done := func(err error) renderResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	content, cleanup, err := r.content(ctx, job.Input)
	if err != nil {
		return done(err)
	}
	defer cleanup()

	opts := r.opts
	if opt, ok := cookieOption(r.cookies, content); ok {
		opts = append(opts[:len(opts):len(opts)], opt)
	}

	res, err := r.env.Render(ctx, content, opts...)
	if err != nil {
		return done(err)
	}

	if job.Output == "-" {
		if _, err := io.Copy(r.env.Stdout, res.Reader()); err != nil {
			return done(fmt.Errorf("%w: stdout: %v", htmlpdf.ErrPersist, err))
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(job.Output), dirPermissions); err != nil {
			return done(fmt.Errorf("%w: creating output directory: %w", htmlpdf.ErrPersist, err))
		}
		if err := res.WriteFile(job.Output); err != nil {
			return done(err)
		}
	}

	if r.verbose {
		if pages, err := res.PageCount(); err == nil {
			result.Pages = pages
		}
	}
	return done(nil)
}

// content resolves an input into what Create accepts. Markdown is
// converted to a temporary HTML file beside its source so relative
// images and links keep resolving.
func (r *renderer) content(ctx context.Context, input string) (string, func(), error) {
	noop := func() {}

	kind, err := fileutil.Classify(input)
	if err != nil {
		return "", noop, err
	}

	switch kind {
	case fileutil.KindURL:
		return input, noop, nil

	case fileutil.KindStdin:
		data, err := io.ReadAll(r.env.Stdin)
		if err != nil {
			return "", noop, fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
		}
		return string(data), noop, nil

	case fileutil.KindHTML:
		if _, err := os.Stat(input); err != nil {
			return "", noop, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		u, err := fileutil.FileURL(input)
		return u, noop, err

	case fileutil.KindMarkdown:
		src, err := os.ReadFile(input) // #nosec G304 -- user-provided input
		if err != nil {
			return "", noop, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		title := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		doc, err := r.md.ToHTML(ctx, title, src)
		if err != nil {
			return "", noop, err
		}
		path, cleanup, err := fileutil.WriteTempFile(filepath.Dir(input), doc, "html")
		if err != nil {
			return "", noop, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		u, err := fileutil.FileURL(path)
		if err != nil {
			cleanup()
			return "", noop, err
		}
		return u, cleanup, nil
	}
	return "", noop, fmt.Errorf("%w: %s", fileutil.ErrUnsupportedInput, input)
}

// printResults outputs render results and returns the failure count and
// the first failure.
func printResults(results []renderResult, quiet, verbose bool, env *Environment) (int, error) {
	var succeeded, failed int
	var firstErr error

	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Input, r.Err)
			continue
		}

		succeeded++
		if quiet || r.Output == "-" {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stderr, "%s -> %s (%d pages, %v)\n", r.Input, r.Output, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stderr, "Created %s\n", r.Output)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stderr, "\n%d succeeded, %d failed\n", succeeded, failed)
	}
	return failed, firstErr
}

// hintedError carries a hint computed where the config was known.
type hintedError struct {
	err  error
	hint string
}

func (e *hintedError) Error() string { return e.err.Error() }
func (e *hintedError) Unwrap() error { return e.err }

// hintFor returns an actionable hint for err. cfg may be nil.
func hintFor(err error, cfg *config.Config) string {
	var statusErr *htmlpdf.HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		return hints.ForHTTPStatus(statusErr.StatusCode)
	case errors.Is(err, htmlpdf.ErrTriggerTimeout):
		kind := ""
		if cfg != nil {
			kind = strings.ToLower(cfg.Trigger.Type)
		}
		return hints.ForTrigger(kind)
	case errors.Is(err, htmlpdf.ErrTimedOut):
		return hints.ForTimeout()
	case errors.Is(err, htmlpdf.ErrLaunch):
		return hints.ForBrowserLaunch()
	case errors.Is(err, htmlpdf.ErrTabOpen):
		ep := htmlpdf.Endpoint{}
		if cfg != nil {
			ep = htmlpdf.Endpoint{Host: cfg.Browser.Host, Port: cfg.Browser.Port}
		}
		return hints.ForEndpoint(ep.String())
	case errors.Is(err, htmlpdf.ErrPersist):
		return hints.ForOutputDirectory()
	}
	return ""
}
