package htmlpdf

// Notes:
// - fakeTab scripts a browser tab: Navigate and SetDocumentContent replay a
//   main request (request, response, load) through the subscribed handlers,
//   the way Chrome reports them over the protocol.
// - Real protocol behavior is covered by the integration tests
//   (create_integration_test.go), which need a Chrome binary.

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// fakeTab implements Tab for testing.
type fakeTab struct {
	// Main response status replayed on navigation (default 200).
	Status int
	// LoadingFailed replays a network failure of the main request instead of
	// a response when non-empty.
	LoadingFailed string
	// NoLoad suppresses the load event.
	NoLoad bool
	// Hang makes Navigate and SetDocumentContent block until ctx is done.
	Hang bool
	// Errs injects errors per method name.
	Errs map[string]error
	// Eval answers Evaluate; defaults to a truthy result.
	Eval func(expr string) (Evaluation, error)
	// PDF is returned by PrintToPDF.
	PDF []byte
	// CloseErr is returned by Close.
	CloseErr error
	// OnNavigate runs after the main request has been replayed.
	OnNavigate func(t *fakeTab)

	mu       sync.Mutex
	calls    []string
	handlers EventHandlers
	load     *loadSignal
	closes   atomic.Int32
}

var _ Tab = (*fakeTab)(nil)

func (f *fakeTab) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.Errs[call]
}

// Calls returns the recorded method names in order.
func (f *fakeTab) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTab) Handlers() EventHandlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

func (f *fakeTab) Closes() int { return int(f.closes.Load()) }

func (f *fakeTab) Close() error {
	f.closes.Add(1)
	return f.CloseErr
}

func (f *fakeTab) EnableDomains(ctx context.Context) error { return f.record("EnableDomains") }

func (f *fakeTab) ClearBrowserCache(ctx context.Context) error {
	return f.record("ClearBrowserCache")
}

func (f *fakeTab) SetCookies(ctx context.Context, cookies []Cookie) error {
	return f.record("SetCookies")
}

func (f *fakeTab) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	return f.record("SetExtraHeaders")
}

func (f *fakeTab) Subscribe(ctx context.Context, h EventHandlers) {
	_ = f.record("Subscribe")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = h
}

func (f *fakeTab) LoadFired(ctx context.Context) func() error {
	_ = f.record("LoadFired")
	load := &loadSignal{ch: make(chan struct{})}
	f.mu.Lock()
	f.load = load
	f.mu.Unlock()

	return func() error {
		select {
		case <-load.ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FireLoad delivers the load event to the armed waiter.
func (f *fakeTab) FireLoad() {
	f.mu.Lock()
	load := f.load
	f.mu.Unlock()
	if load != nil {
		load.once.Do(func() { close(load.ch) })
	}
}

type loadSignal struct {
	ch   chan struct{}
	once sync.Once
}

func (f *fakeTab) Navigate(ctx context.Context, url string) error {
	if err := f.record("Navigate"); err != nil {
		return err
	}
	return f.replay(ctx)
}

func (f *fakeTab) RootFrameID(ctx context.Context) (string, error) {
	if err := f.record("RootFrameID"); err != nil {
		return "", err
	}
	return "frame-1", nil
}

func (f *fakeTab) SetDocumentContent(ctx context.Context, frameID, html string) error {
	if err := f.record("SetDocumentContent"); err != nil {
		return err
	}
	return f.replay(ctx)
}

// replay emits the events of a main-frame load.
func (f *fakeTab) replay(ctx context.Context) error {
	if f.Hang {
		<-ctx.Done()
		return ctx.Err()
	}

	h := f.Handlers()
	if h.RequestWillBeSent != nil {
		h.RequestWillBeSent(RequestEvent{RequestID: "main", URL: "https://example.test/", Method: "GET"})
		h.RequestWillBeSent(RequestEvent{RequestID: "sub", URL: "https://example.test/app.js", Method: "GET"})
	}

	if f.LoadingFailed != "" {
		if h.LoadingFailed != nil {
			h.LoadingFailed(LoadingFailedEvent{RequestID: "main", ErrorText: f.LoadingFailed})
		}
		// Chrome still fires load for its error page.
		f.FireLoad()
		return nil
	}

	status := f.Status
	if status == 0 {
		status = 200
	}
	if h.ResponseReceived != nil {
		h.ResponseReceived(ResponseEvent{RequestID: "main", URL: "https://example.test/", Status: status})
		h.ResponseReceived(ResponseEvent{RequestID: "sub", URL: "https://example.test/app.js", Status: 404})
	}
	if f.OnNavigate != nil {
		f.OnNavigate(f)
	}
	if !f.NoLoad {
		f.FireLoad()
	}
	return nil
}

func (f *fakeTab) Evaluate(ctx context.Context, expr string) (Evaluation, error) {
	if err := f.record("Evaluate"); err != nil {
		return Evaluation{}, err
	}
	if f.Eval != nil {
		return f.Eval(expr)
	}
	return Evaluation{Value: true}, nil
}

func (f *fakeTab) PrintToPDF(ctx context.Context, opts *PrintOptions) ([]byte, error) {
	if err := f.record("PrintToPDF"); err != nil {
		return nil, err
	}
	if f.PDF != nil {
		return f.PDF, nil
	}
	return []byte("%PDF-1.4 fake"), nil
}

// fakeOpener implements TabOpener for testing.
type fakeOpener struct {
	// NewTab builds the tab for each OpenTab call.
	NewTab func() *fakeTab
	Err    error
	// Block makes OpenTab wait until ctx is done and return its error.
	Block bool

	mu        sync.Mutex
	endpoints []Endpoint
	tabs      []*fakeTab
}

var _ TabOpener = (*fakeOpener)(nil)

func (o *fakeOpener) OpenTab(ctx context.Context, ep Endpoint) (Tab, error) {
	o.mu.Lock()
	o.endpoints = append(o.endpoints, ep)
	o.mu.Unlock()
	if o.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	tab := &fakeTab{}
	if o.NewTab != nil {
		tab = o.NewTab()
	}
	o.tabs = append(o.tabs, tab)
	return tab, nil
}

func (o *fakeOpener) Tabs() []*fakeTab {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeTab(nil), o.tabs...)
}

func (o *fakeOpener) Endpoints() []Endpoint {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Endpoint(nil), o.endpoints...)
}

// fakeLauncher implements Launcher for testing.
type fakeLauncher struct {
	Port    int
	Err     error
	KillErr error
	// Block makes Launch wait until ctx is done and return its error.
	Block bool

	launches atomic.Int32
	kills    atomic.Int32

	mu      sync.Mutex
	lastCfg LaunchConfig
}

var _ Launcher = (*fakeLauncher)(nil)

func (l *fakeLauncher) Launch(ctx context.Context, cfg LaunchConfig) (Process, error) {
	l.launches.Add(1)
	l.mu.Lock()
	l.lastCfg = cfg
	l.mu.Unlock()
	if l.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if l.Err != nil {
		return nil, l.Err
	}
	port := l.Port
	if port == 0 {
		port = 9333
	}
	return &fakeProcess{l: l, port: port}, nil
}

func (l *fakeLauncher) Launches() int { return int(l.launches.Load()) }

// LastConfig returns the configuration of the most recent launch.
func (l *fakeLauncher) LastConfig() LaunchConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastCfg
}

func (l *fakeLauncher) Kills() int    { return int(l.kills.Load()) }

type fakeProcess struct {
	l    *fakeLauncher
	port int
}

func (p *fakeProcess) Port() int { return p.port }

func (p *fakeProcess) Kill() error {
	p.l.kills.Add(1)
	return p.l.KillErr
}

// containsCall reports whether calls holds method.
func containsCall(calls []string, method string) bool {
	for _, c := range calls {
		if c == method {
			return true
		}
	}
	return false
}

// indexOfCall returns the position of the first method in calls, or -1.
func indexOfCall(calls []string, method string) int {
	for i, c := range calls {
		if c == method {
			return i
		}
	}
	return -1
}

// evalMatching answers Evaluate by the first pattern contained in expr.
func evalMatching(answers map[string]Evaluation) func(string) (Evaluation, error) {
	return func(expr string) (Evaluation, error) {
		for pattern, ev := range answers {
			if strings.Contains(expr, pattern) {
				return ev, nil
			}
		}
		return Evaluation{Value: true}, nil
	}
}
