package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	htmlpdf "github.com/alnah/go-htmlpdf"
)

// fakePDF is what fakeRenderer returns for every successful render.
const fakePDF = "%PDF-1.4 fake"

// fakeRenderer records Create calls and returns fakePDF or err.
type fakeRenderer struct {
	mu       sync.Mutex
	contents []string
	optCount []int
	err      error
	errFor   map[string]error // per content
	block    chan struct{}    // when set, renders wait for it or ctx
}

func (f *fakeRenderer) Render(ctx context.Context, content string, opts ...htmlpdf.Option) (*htmlpdf.Result, error) {
	f.mu.Lock()
	f.contents = append(f.contents, content)
	f.optCount = append(f.optCount, len(opts))
	err := f.err
	if e, ok := f.errFor[content]; ok {
		err = e
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return htmlpdf.NewResult(base64.StdEncoding.EncodeToString([]byte(fakePDF))), nil
}

func (f *fakeRenderer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.contents...)
}

// fakeProcess is a launched browser that only records Kill.
type fakeProcess struct {
	port   int
	killed atomic.Bool
}

func (p *fakeProcess) Port() int { return p.port }

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	return nil
}

// fakeLauncher hands out proc and counts launches.
type fakeLauncher struct {
	proc     *fakeProcess
	err      error
	launches atomic.Int32
}

func (l *fakeLauncher) Launch(_ context.Context, _ htmlpdf.LaunchConfig) (htmlpdf.Process, error) {
	l.launches.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return l.proc, nil
}

// testEnv bundles an Environment with its fakes and output buffers.
type testEnv struct {
	*Environment
	renderer *fakeRenderer
	launcher *fakeLauncher
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newTestEnv(t *testing.T, stdin string) *testEnv {
	t.Helper()
	r := &fakeRenderer{}
	l := &fakeLauncher{proc: &fakeProcess{port: 9333}}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &testEnv{
		Environment: &Environment{
			Now:    func() time.Time { return time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC) },
			Stdin:  strings.NewReader(stdin),
			Stdout: stdout,
			Stderr: stderr,
			Render: r.Render,
			Launch: l.Launch,
		},
		renderer: r,
		launcher: l,
		stdout:   stdout,
		stderr:   stderr,
	}
}
