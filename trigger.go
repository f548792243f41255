package htmlpdf

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Trigger waits until the page signals it is ready to be printed. It runs
// once, after a successful navigation and before the PDF capture.
//
// Any type with a Wait method is a Trigger, so callers can define their own
// readiness conditions. The built-in triggers poll a page-side predicate.
type Trigger interface {
	Wait(ctx context.Context, page Evaluator) (any, error)
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc func(ctx context.Context, page Evaluator) (any, error)

func (f TriggerFunc) Wait(ctx context.Context, page Evaluator) (any, error) {
	return f(ctx, page)
}

// Trigger defaults.
const (
	DefaultTriggerTimeout = 3 * time.Second
	DefaultCallbackName   = "htmlPdfCb"
	DefaultVariableName   = "htmlPdfDone"
	DefaultEventSelector  = "body"

	pollInterval = 50 * time.Millisecond
)

// Compile-time interface checks
var (
	_ Trigger = TimerTrigger{}
	_ Trigger = VariableTrigger{}
	_ Trigger = CallbackTrigger{}
	_ Trigger = EventTrigger{}
	_ Trigger = ElementTrigger{}
	_ Trigger = TriggerFunc(nil)
)

// TimerTrigger waits for a fixed delay without touching the page.
type TimerTrigger struct {
	Delay time.Duration
}

func (t TimerTrigger) Wait(ctx context.Context, _ Evaluator) (any, error) {
	timer := time.NewTimer(t.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

// VariableTrigger waits until the global variable Name is truthy.
type VariableTrigger struct {
	Name    string        // default: DefaultVariableName
	Timeout time.Duration // default: DefaultTriggerTimeout
}

func (t VariableTrigger) Wait(ctx context.Context, page Evaluator) (any, error) {
	name := jsString(orDefault(t.Name, DefaultVariableName))
	p := poll{
		check:   fmt.Sprintf("Boolean(window[%s])", name),
		timeout: t.Timeout,
	}
	return p.run(ctx, page)
}

// CallbackTrigger installs a global function Name and waits until the page
// calls it.
type CallbackTrigger struct {
	Name    string        // default: DefaultCallbackName
	Timeout time.Duration // default: DefaultTriggerTimeout
}

func (t CallbackTrigger) Wait(ctx context.Context, page Evaluator) (any, error) {
	name := jsString(orDefault(t.Name, DefaultCallbackName))
	p := poll{
		bootstrap: fmt.Sprintf(`(() => {
	const flags = window.__htmlPdfCallbacks = window.__htmlPdfCallbacks || {};
	const name = %[1]s;
	if (name in flags) return true;
	flags[name] = false;
	window[name] = () => { flags[name] = true; };
	return true;
})()`, name),
		check:   fmt.Sprintf("Boolean(window.__htmlPdfCallbacks && window.__htmlPdfCallbacks[%s])", name),
		timeout: t.Timeout,
	}
	return p.run(ctx, page)
}

// EventTrigger waits until the custom event Name is dispatched on the element
// matched by Selector. A selector that never matches times out.
type EventTrigger struct {
	Name     string
	Selector string        // default: DefaultEventSelector
	Timeout  time.Duration // default: DefaultTriggerTimeout
}

func (t EventTrigger) Wait(ctx context.Context, page Evaluator) (any, error) {
	event := jsString(t.Name)
	selector := jsString(orDefault(t.Selector, DefaultEventSelector))
	key := jsString(t.Name + "\x00" + orDefault(t.Selector, DefaultEventSelector))
	p := poll{
		bootstrap: fmt.Sprintf(`(() => {
	const flags = window.__htmlPdfEvents = window.__htmlPdfEvents || {};
	const key = %[3]s;
	if (key in flags) return true;
	const el = document.querySelector(%[2]s);
	if (!el) return false;
	flags[key] = false;
	el.addEventListener(%[1]s, () => { flags[key] = true; });
	return true;
})()`, event, selector, key),
		check:   fmt.Sprintf("Boolean(window.__htmlPdfEvents && window.__htmlPdfEvents[%s])", key),
		timeout: t.Timeout,
	}
	return p.run(ctx, page)
}

// ElementTrigger waits until an element matching Selector exists in the
// live document, including elements inserted after load.
type ElementTrigger struct {
	Selector string
	Timeout  time.Duration // default: DefaultTriggerTimeout
}

func (t ElementTrigger) Wait(ctx context.Context, page Evaluator) (any, error) {
	p := poll{
		check:   fmt.Sprintf("document.querySelector(%s) !== null", jsString(t.Selector)),
		timeout: t.Timeout,
	}
	return p.run(ctx, page)
}

// poll is the engine shared by the built-in triggers: evaluate bootstrap
// once, then evaluate check every interval until it is truthy or the
// timeout elapses.
type poll struct {
	bootstrap string
	check     string
	timeout   time.Duration
	interval  time.Duration
}

func (p poll) run(ctx context.Context, page Evaluator) (any, error) {
	timeout := p.timeout
	if timeout <= 0 {
		timeout = DefaultTriggerTimeout
	}
	interval := p.interval
	if interval <= 0 {
		interval = pollInterval
	}
	deadline := time.Now().Add(timeout)

	if p.bootstrap != "" {
		ev, err := page.Evaluate(ctx, p.bootstrap)
		if err != nil {
			return nil, err
		}
		if ev.Exception != "" {
			return nil, &ScriptError{Message: ev.Exception}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ev, err := page.Evaluate(ctx, p.check)
		if err != nil {
			return nil, err
		}
		// An exception wins even over a truthy value.
		if ev.Exception != "" {
			return nil, &ScriptError{Message: ev.Exception}
		}
		if ev.Truthy() {
			return ev.Value, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrTriggerTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal cannot fail for a string.
		panic(err)
	}
	return string(b)
}

// orDefault returns s, or def when s is empty.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
