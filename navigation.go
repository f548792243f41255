package htmlpdf

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// urlPattern matches content that is navigated to rather than injected.
var urlPattern = regexp.MustCompile(`(?i)^(https?|file|data):`)

// IsURL reports whether Create navigates to content as a URL (http, https,
// file or data scheme) instead of loading it as document markup.
func IsURL(content string) bool {
	return urlPattern.MatchString(content)
}

// navigator drives a tab to the requested content and classifies the outcome.
type navigator struct {
	conn   Conn
	sup    *supervisor
	state  *navState
	cfg    *config
	logger *zap.Logger

	stopEvents context.CancelFunc
}

func newNavigator(conn Conn, sup *supervisor, state *navState, cfg *config, logger *zap.Logger) *navigator {
	return &navigator{conn: conn, sup: sup, state: state, cfg: cfg, logger: logger}
}

// prepare issues every step that must precede navigation: cache, event
// domains, listeners, headers and cookies.
func (n *navigator) prepare(ctx context.Context) error {
	if err := n.sup.checkAlive(); err != nil {
		return err
	}

	if n.cfg.clearCache {
		if err := n.conn.ClearBrowserCache(ctx); err != nil {
			return err
		}
	}

	if err := n.conn.EnableDomains(ctx); err != nil {
		return err
	}

	eventsCtx, stop := context.WithCancel(ctx)
	n.stopEvents = stop
	n.conn.Subscribe(eventsCtx, n.handlers())

	if len(n.cfg.headers) > 0 {
		if err := n.conn.SetExtraHeaders(ctx, n.cfg.headers); err != nil {
			return err
		}
	}

	if len(n.cfg.cookies) > 0 {
		if err := n.conn.SetCookies(ctx, n.cfg.cookies); err != nil {
			return err
		}
	}

	return n.sup.checkAlive()
}

// close stops event delivery.
func (n *navigator) close() {
	if n.stopEvents != nil {
		n.stopEvents()
	}
}

// handlers builds the listeners that classify the main request. Internal
// bookkeeping happens before the caller's observer sees the event.
func (n *navigator) handlers() EventHandlers {
	h := EventHandlers{
		RequestWillBeSent: func(e RequestEvent) {
			n.state.latchMain(e.RequestID)
			if n.cfg.onRequest != nil {
				n.cfg.onRequest(e)
			}
		},
		LoadingFailed: func(e LoadingFailedEvent) {
			if n.state.isMain(e.RequestID) {
				n.logger.Debug("main request failed", zap.String("error", e.ErrorText))
				n.state.markFailed(navigationFailure(e.ErrorText))
			}
			if n.cfg.onLoadingFailed != nil {
				n.cfg.onLoadingFailed(e)
			}
		},
		ResponseReceived: func(e ResponseEvent) {
			if n.state.isMain(e.RequestID) {
				n.state.recordStatus(e.Status)
			}
		},
	}
	if n.cfg.onConsole != nil {
		h.ConsoleAPICalled = n.cfg.onConsole
	}
	if n.cfg.onException != nil {
		h.ExceptionThrown = n.cfg.onException
	}
	return h
}

// navigate loads content into the tab: URLs by navigation, anything else by
// replacing the root frame's document.
func (n *navigator) navigate(ctx context.Context, content string) error {
	if err := n.sup.checkAlive(); err != nil {
		return err
	}

	if IsURL(content) {
		n.logger.Debug("navigating", zap.String("url", truncate(content, 200)))
		return n.joinLoad(ctx, func(ctx context.Context) error {
			return n.conn.Navigate(ctx, content)
		})
	}

	frameID, err := n.conn.RootFrameID(ctx)
	if err != nil {
		return err
	}
	n.logger.Debug("setting document content", zap.Int("bytes", len(content)))
	return n.joinLoad(ctx, func(ctx context.Context) error {
		return n.conn.SetDocumentContent(ctx, frameID, content)
	})
}

// joinLoad runs action and waits for the load event. The browser resolves
// the two in either order, so both are awaited together; neither is assumed
// to come first. Failure flags are only consulted after the join.
func (n *navigator) joinLoad(ctx context.Context, action func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	loaded := n.conn.LoadFired(gctx)

	g.Go(func() error {
		err := action(gctx)
		if errors.Is(err, ErrNavigationFailed) {
			n.state.markFailed(err)
		}
		return err
	})
	g.Go(loaded)

	err := g.Wait()
	if aliveErr := n.sup.checkAlive(); aliveErr != nil {
		return aliveErr
	}
	return err
}

// navigationFailure wraps a network error text as a navigation failure.
func navigationFailure(reason string) error {
	if reason == "" {
		return ErrNavigationFailed
	}
	return fmt.Errorf("%w: %s", ErrNavigationFailed, reason)
}

// truncate shortens s for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
