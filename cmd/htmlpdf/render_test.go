package main

// Notes:
// - runRender is exercised with the fake renderer and launcher from
//   helpers_test.go; real browser renders live in the library's
//   integration tests.
// - Tests that call runRender clear HTMLPDF_* variables and cannot run in
//   parallel.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
	"github.com/alnah/go-htmlpdf/internal/markdown"
)

// ---------------------------------------------------------------------------
// TestPlanJobs - Input to output mapping
// ---------------------------------------------------------------------------

func TestPlanJobs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		inputs     []string
		output     string
		defaultDir string
		want       []renderJob
		wantErr    error
	}{
		{
			name:   "single html next to source",
			inputs: []string{"docs/report.html"},
			want:   []renderJob{{"docs/report.html", filepath.Join("docs", "report.pdf")}},
		},
		{
			name:   "single with pdf output",
			inputs: []string{"https://example.com"},
			output: "out/site.PDF",
			want:   []renderJob{{"https://example.com", "out/site.PDF"}},
		},
		{
			name:   "stdin to stdout",
			inputs: []string{"-"},
			output: "-",
			want:   []renderJob{{"-", "-"}},
		},
		{
			name:   "several into a directory",
			inputs: []string{"a.md", "https://example.com", "-"},
			output: "out",
			want: []renderJob{
				{"a.md", filepath.Join("out", "a.pdf")},
				{"https://example.com", filepath.Join("out", "page-2.pdf")},
				{"-", filepath.Join("out", "page-3.pdf")},
			},
		},
		{
			name:       "default dir from config",
			inputs:     []string{"a.html"},
			defaultDir: "pdfs",
			want:       []renderJob{{"a.html", filepath.Join("pdfs", "a.pdf")}},
		},
		{
			name:    "stdin twice",
			inputs:  []string{"-", "-"},
			wantErr: ErrUsage,
		},
		{
			name:    "stdout with several inputs",
			inputs:  []string{"a.html", "b.html"},
			output:  "-",
			wantErr: ErrUsage,
		},
		{
			name:    "unsupported input",
			inputs:  []string{"notes.txt"},
			wantErr: fileutil.ErrUnsupportedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := planJobs(tt.inputs, tt.output, tt.defaultDir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("planJobs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("planJobs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("job %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWorkerCount - Concurrency bounds
// ---------------------------------------------------------------------------

func TestWorkerCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		configured, jobs, want int
	}{
		{4, 10, 4},
		{4, 2, 2},
		{1, 5, 1},
		{8, 0, 1},
	}
	for _, tt := range tests {
		if got := workerCount(tt.configured, tt.jobs); got != tt.want {
			t.Errorf("workerCount(%d, %d) = %d, want %d", tt.configured, tt.jobs, got, tt.want)
		}
	}

	if got := workerCount(0, 1000); got < 1 {
		t.Errorf("auto worker count = %d, want >= 1", got)
	}
}

// ---------------------------------------------------------------------------
// TestRendererContent - Resolving inputs to Create content
// ---------------------------------------------------------------------------

func TestRendererContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "page.html")
	mdPath := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(htmlPath, []byte("<p>x</p>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mdPath, []byte("# Notes\n\n![logo](logo.png)\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	md, err := markdown.New("")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("url passes through", func(t *testing.T) {
		t.Parallel()

		r := &renderer{env: newTestEnv(t, "").Environment}
		got, cleanup, err := r.content(context.Background(), "https://example.com/a")
		defer cleanup()
		if err != nil || got != "https://example.com/a" {
			t.Errorf("content() = %q, %v", got, err)
		}
	})

	t.Run("stdin is read as markup", func(t *testing.T) {
		t.Parallel()

		r := &renderer{env: newTestEnv(t, "<h1>stdin</h1>").Environment}
		got, cleanup, err := r.content(context.Background(), "-")
		defer cleanup()
		if err != nil || got != "<h1>stdin</h1>" {
			t.Errorf("content() = %q, %v", got, err)
		}
	})

	t.Run("html file becomes file URL", func(t *testing.T) {
		t.Parallel()

		r := &renderer{env: newTestEnv(t, "").Environment}
		got, cleanup, err := r.content(context.Background(), htmlPath)
		defer cleanup()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, "page.html") {
			t.Errorf("content() = %q, want file URL", got)
		}
	})

	t.Run("missing html file", func(t *testing.T) {
		t.Parallel()

		r := &renderer{env: newTestEnv(t, "").Environment}
		_, cleanup, err := r.content(context.Background(), filepath.Join(dir, "missing.html"))
		defer cleanup()
		if !errors.Is(err, ErrReadInput) || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected ErrReadInput wrapping ErrNotExist, got %v", err)
		}
	})

	t.Run("markdown converted beside source", func(t *testing.T) {
		t.Parallel()

		r := &renderer{env: newTestEnv(t, "").Environment, md: md}
		got, cleanup, err := r.content(context.Background(), mdPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, ".html") {
			t.Fatalf("content() = %q, want file URL to a temp .html", got)
		}

		matches, _ := filepath.Glob(filepath.Join(dir, ".htmlpdf-*.html"))
		if len(matches) == 0 {
			t.Fatal("temp HTML should be written next to the source")
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `<img src="logo.png"`) {
			t.Errorf("relative image should be preserved, got %s", data)
		}

		cleanup()
		if _, err := os.Stat(matches[0]); !os.IsNotExist(err) {
			t.Error("cleanup should remove the temp HTML")
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunRender - End-to-end with fakes
// ---------------------------------------------------------------------------

func TestRunRender_SingleInputLaunchesPerCall(t *testing.T) {
	clearHTMLPDFEnv(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")
	env := newTestEnv(t, "<p>hello</p>")

	if err := runRender(context.Background(), []string{"-", "-o", out}, env.Environment); err != nil {
		t.Fatalf("runRender() error: %v\nstderr: %s", err, env.stderr)
	}

	if n := env.launcher.launches.Load(); n != 0 {
		t.Errorf("single input should not launch a shared browser, got %d launches", n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != fakePDF {
		t.Errorf("output = %q, want %q", data, fakePDF)
	}
	if !strings.Contains(env.stderr.String(), "Created "+out) {
		t.Errorf("stderr should report the output, got %q", env.stderr)
	}
}

func TestRunRender_SeveralInputsShareBrowser(t *testing.T) {
	clearHTMLPDFEnv(t)

	dir := t.TempDir()
	var inputs []string
	for i := range 3 {
		p := filepath.Join(dir, fmt.Sprintf("p%d.html", i))
		if err := os.WriteFile(p, []byte("<p>x</p>"), 0o600); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, p)
	}
	env := newTestEnv(t, "")

	args := append(inputs, "-o", filepath.Join(dir, "out"), "-w", "2")
	if err := runRender(context.Background(), args, env.Environment); err != nil {
		t.Fatalf("runRender() error: %v\nstderr: %s", err, env.stderr)
	}

	if n := env.launcher.launches.Load(); n != 1 {
		t.Errorf("launches = %d, want 1", n)
	}
	if !env.launcher.proc.killed.Load() {
		t.Error("shared browser should be killed when the run ends")
	}
	if got := len(env.renderer.calls()); got != 3 {
		t.Errorf("renders = %d, want 3", got)
	}
	for i := range 3 {
		if _, err := os.Stat(filepath.Join(dir, "out", fmt.Sprintf("p%d.pdf", i))); err != nil {
			t.Errorf("missing output %d: %v", i, err)
		}
	}
	if !strings.Contains(env.stderr.String(), "3 succeeded, 0 failed") {
		t.Errorf("stderr should summarize, got %q", env.stderr)
	}
}

func TestRunRender_EndpointSkipsLaunch(t *testing.T) {
	clearHTMLPDFEnv(t)

	dir := t.TempDir()
	env := newTestEnv(t, "")
	args := []string{"https://a.example", "https://b.example", "-o", dir, "-e", "chrome:9222", "-q"}

	if err := runRender(context.Background(), args, env.Environment); err != nil {
		t.Fatal(err)
	}
	if n := env.launcher.launches.Load(); n != 0 {
		t.Errorf("launches = %d, want 0 with an endpoint", n)
	}
	if env.stderr.Len() != 0 {
		t.Errorf("quiet run should print nothing, got %q", env.stderr)
	}
}

func TestRunRender_PartialFailure(t *testing.T) {
	clearHTMLPDFEnv(t)

	dir := t.TempDir()
	env := newTestEnv(t, "")
	env.renderer.errFor = map[string]error{
		"https://bad.example": &htmlpdf.HTTPStatusError{StatusCode: 404},
	}
	args := []string{"https://good.example", "https://bad.example", "-o", dir, "-e", "chrome"}

	err := runRender(context.Background(), args, env.Environment)

	if !errors.Is(err, htmlpdf.ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 of 2 render(s) failed") {
		t.Errorf("error should count failures, got %v", err)
	}
	var h *hintedError
	if !errors.As(err, &h) || !strings.Contains(h.hint, "--fail-on-4xx=false") {
		t.Errorf("expected fail-on-4xx hint, got %v", err)
	}
	if !strings.Contains(env.stderr.String(), "FAILED https://bad.example") {
		t.Errorf("stderr should name the failed input, got %q", env.stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "page-1.pdf")); err != nil {
		t.Errorf("the good input should still be written: %v", err)
	}
}

func TestRunRender_LaunchFailure(t *testing.T) {
	clearHTMLPDFEnv(t)

	env := newTestEnv(t, "")
	env.launcher.err = fmt.Errorf("%w: no chrome", htmlpdf.ErrLaunch)

	err := runRender(context.Background(), []string{"https://a.example", "https://b.example"}, env.Environment)

	if !errors.Is(err, htmlpdf.ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
	if got := len(env.renderer.calls()); got != 0 {
		t.Errorf("no render should run without a browser, got %d", got)
	}
}

func TestRunRender_CanceledContext(t *testing.T) {
	clearHTMLPDFEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := newTestEnv(t, "")

	err := runRender(ctx, []string{"https://a.example", "https://b.example", "-e", "chrome", "-o", t.TempDir()}, env.Environment)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestPrintResults - Human output
// ---------------------------------------------------------------------------

func TestPrintResults(t *testing.T) {
	t.Parallel()

	results := []renderResult{
		{Input: "a.html", Output: "a.pdf", Pages: 2},
		{Input: "b.html", Err: htmlpdf.ErrTimedOut},
	}

	t.Run("normal", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "")
		failed, first := printResults(results, false, false, env.Environment)
		if failed != 1 || !errors.Is(first, htmlpdf.ErrTimedOut) {
			t.Errorf("printResults() = %d, %v", failed, first)
		}
		out := env.stderr.String()
		for _, want := range []string{"Created a.pdf", "FAILED b.html", "1 succeeded, 1 failed"} {
			if !strings.Contains(out, want) {
				t.Errorf("output should contain %q, got %q", want, out)
			}
		}
	})

	t.Run("verbose shows pages", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "")
		printResults(results[:1], false, true, env.Environment)
		if !strings.Contains(env.stderr.String(), "a.html -> a.pdf (2 pages") {
			t.Errorf("verbose output = %q", env.stderr)
		}
	})

	t.Run("quiet keeps failures", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, "")
		printResults(results, true, false, env.Environment)
		out := env.stderr.String()
		if strings.Contains(out, "Created") || strings.Contains(out, "succeeded") {
			t.Errorf("quiet output should only show failures, got %q", out)
		}
		if !strings.Contains(out, "FAILED b.html") {
			t.Errorf("quiet output should show failures, got %q", out)
		}
	})
}
