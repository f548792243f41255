package htmlpdf

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Compile-time interface checks
var (
	_ TabOpener = rodOpener{}
	_ Tab       = (*rodTab)(nil)
)

// rodOpener opens tabs through go-rod. Every tab gets its own websocket
// connection so concurrent calls never share protocol state.
type rodOpener struct{}

func (rodOpener) OpenTab(ctx context.Context, ep Endpoint) (Tab, error) {
	wsURL, err := launcher.ResolveURL(ep.String())
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ep, err)
	}

	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, wsURL, nil); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", wsURL, err)
	}

	browser := rod.New().Client(cdp.New().Start(ws))
	if err := browser.Connect(); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("creating target: %w", err)
	}

	return &rodTab{page: page, ws: ws}, nil
}

// rodTab implements Tab on a go-rod page.
type rodTab struct {
	page *rod.Page
	ws   *cdp.WebSocket

	mu          sync.Mutex
	loadWaiters []chan struct{}
}

// Close closes the tab, then the connection. The browser keeps running.
func (t *rodTab) Close() error {
	pageErr := t.page.Close()
	wsErr := t.ws.Close()
	return errors.Join(pageErr, wsErr)
}

func (t *rodTab) EnableDomains(ctx context.Context) error {
	p := t.page.Context(ctx)
	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		return fmt.Errorf("enabling network events: %w", err)
	}
	if err := (proto.PageEnable{}).Call(p); err != nil {
		return fmt.Errorf("enabling page events: %w", err)
	}
	if err := (proto.RuntimeEnable{}).Call(p); err != nil {
		return fmt.Errorf("enabling runtime events: %w", err)
	}
	return nil
}

func (t *rodTab) ClearBrowserCache(ctx context.Context) error {
	if err := (proto.NetworkClearBrowserCache{}).Call(t.page.Context(ctx)); err != nil {
		return fmt.Errorf("clearing browser cache: %w", err)
	}
	return nil
}

func (t *rodTab) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	if err := (proto.NetworkSetCookies{Cookies: params}).Call(t.page.Context(ctx)); err != nil {
		return fmt.Errorf("setting cookies: %w", err)
	}
	return nil
}

func (t *rodTab) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	dict := make([]string, 0, len(headers)*2)
	for k, v := range headers {
		dict = append(dict, k, v)
	}
	if _, err := t.page.Context(ctx).SetExtraHeaders(dict); err != nil {
		return fmt.Errorf("setting extra headers: %w", err)
	}
	return nil
}

func (t *rodTab) Subscribe(ctx context.Context, h EventHandlers) {
	var callbacks []any

	if h.RequestWillBeSent != nil {
		callbacks = append(callbacks, func(e *proto.NetworkRequestWillBeSent) {
			ev := RequestEvent{RequestID: string(e.RequestID)}
			if e.Request != nil {
				ev.URL = e.Request.URL
				ev.Method = e.Request.Method
			}
			h.RequestWillBeSent(ev)
		})
	}
	if h.LoadingFailed != nil {
		callbacks = append(callbacks, func(e *proto.NetworkLoadingFailed) {
			h.LoadingFailed(LoadingFailedEvent{
				RequestID: string(e.RequestID),
				ErrorText: e.ErrorText,
				Canceled:  e.Canceled,
			})
		})
	}
	if h.ResponseReceived != nil {
		callbacks = append(callbacks, func(e *proto.NetworkResponseReceived) {
			ev := ResponseEvent{RequestID: string(e.RequestID)}
			if e.Response != nil {
				ev.URL = e.Response.URL
				ev.Status = e.Response.Status
			}
			h.ResponseReceived(ev)
		})
	}
	if h.ConsoleAPICalled != nil {
		callbacks = append(callbacks, func(e *proto.RuntimeConsoleAPICalled) {
			args := make([]string, 0, len(e.Args))
			for _, a := range e.Args {
				args = append(args, remoteObjectText(a))
			}
			h.ConsoleAPICalled(ConsoleEvent{Type: string(e.Type), Args: args})
		})
	}
	if h.ExceptionThrown != nil {
		callbacks = append(callbacks, func(e *proto.RuntimeExceptionThrown) {
			d := e.ExceptionDetails
			if d == nil {
				return
			}
			ev := ExceptionEvent{
				Text:         d.Text,
				URL:          d.URL,
				LineNumber:   d.LineNumber,
				ColumnNumber: d.ColumnNumber,
			}
			if d.Exception != nil {
				ev.Description = d.Exception.Description
			}
			h.ExceptionThrown(ev)
		})
	}

	// Load shares the listener with the network events, so everything the
	// browser reported before it has been handled when a waiter wakes up.
	callbacks = append(callbacks, func(*proto.PageLoadEventFired) {
		t.fireLoad()
	})

	wait := t.page.Context(ctx).EachEvent(callbacks...)
	go wait()
}

func (t *rodTab) LoadFired(ctx context.Context) func() error {
	ch := make(chan struct{})
	t.mu.Lock()
	t.loadWaiters = append(t.loadWaiters, ch)
	t.mu.Unlock()

	return func() error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fireLoad releases every waiter armed before the load event.
func (t *rodTab) fireLoad() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.loadWaiters {
		close(ch)
	}
	t.loadWaiters = nil
}

func (t *rodTab) Navigate(ctx context.Context, url string) error {
	res, err := proto.PageNavigate{URL: url}.Call(t.page.Context(ctx))
	if err != nil {
		return fmt.Errorf("navigating: %w", err)
	}
	if res.ErrorText != "" {
		return navigationFailure(res.ErrorText)
	}
	return nil
}

func (t *rodTab) RootFrameID(ctx context.Context) (string, error) {
	res, err := proto.PageGetFrameTree{}.Call(t.page.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("getting frame tree: %w", err)
	}
	return string(res.FrameTree.Frame.ID), nil
}

func (t *rodTab) SetDocumentContent(ctx context.Context, frameID, html string) error {
	err := proto.PageSetDocumentContent{
		FrameID: proto.PageFrameID(frameID),
		HTML:    html,
	}.Call(t.page.Context(ctx))
	if err != nil {
		return fmt.Errorf("setting document content: %w", err)
	}
	return nil
}

func (t *rodTab) Evaluate(ctx context.Context, expression string) (Evaluation, error) {
	res, err := proto.RuntimeEvaluate{
		Expression:    expression,
		ReturnByValue: true,
		AwaitPromise:  true,
	}.Call(t.page.Context(ctx))
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluating script: %w", err)
	}

	var ev Evaluation
	if res.Result != nil {
		ev.Value = res.Result.Value.Val()
	}
	if d := res.ExceptionDetails; d != nil {
		ev.Exception = d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			ev.Exception = d.Exception.Description
		}
	}
	return ev, nil
}

func (t *rodTab) PrintToPDF(ctx context.Context, opts *PrintOptions) ([]byte, error) {
	res, err := toProtoPrint(opts).Call(t.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFCapture, err)
	}
	return res.Data, nil
}

// toProtoPrint copies PrintOptions into the protocol request unchanged.
func toProtoPrint(o *PrintOptions) *proto.PagePrintToPDF {
	if o == nil {
		return &proto.PagePrintToPDF{}
	}
	return &proto.PagePrintToPDF{
		Landscape:           o.Landscape,
		DisplayHeaderFooter: o.DisplayHeaderFooter,
		PrintBackground:     o.PrintBackground,
		Scale:               o.Scale,
		PaperWidth:          o.PaperWidth,
		PaperHeight:         o.PaperHeight,
		MarginTop:           o.MarginTop,
		MarginBottom:        o.MarginBottom,
		MarginLeft:          o.MarginLeft,
		MarginRight:         o.MarginRight,
		PageRanges:          o.PageRanges,
		HeaderTemplate:      o.HeaderTemplate,
		FooterTemplate:      o.FooterTemplate,
		PreferCSSPageSize:   o.PreferCSSPageSize,
	}
}

// remoteObjectText renders a console argument as text.
func remoteObjectText(o *proto.RuntimeRemoteObject) string {
	if o == nil {
		return ""
	}
	if !o.Value.Nil() {
		return o.Value.String()
	}
	if o.Description != "" {
		return o.Description
	}
	return string(o.Type)
}
