package htmlpdf

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// lifecycle acquires the browser and the tab of one call and releases them
// in reverse order on every exit path.
type lifecycle struct {
	launcher Launcher
	opener   TabOpener
	logger   *zap.Logger
	// alive, when set, classifies an acquisition that was interrupted by
	// the call's deadline or cancellation.
	alive func() error
}

// withBrowser resolves the endpoint to render against, launching a browser
// when none is configured, and runs fn. A browser launched here is killed
// after fn returns; a configured endpoint is never touched.
func (l *lifecycle) withBrowser(ctx context.Context, ep Endpoint, cfg LaunchConfig, fn func(Endpoint) error) (err error) {
	if !ep.IsZero() {
		return fn(ep)
	}

	proc, err := l.launcher.Launch(ctx, cfg)
	if err != nil {
		if aliveErr := l.checkAlive(); aliveErr != nil {
			return aliveErr
		}
		return fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	l.logger.Debug("browser launched", zap.Int("port", proc.Port()))
	defer func() {
		err = l.release("browser", proc.Kill, err)
	}()

	return fn(Endpoint{Host: "127.0.0.1", Port: proc.Port()})
}

// withTab opens a tab on ep and runs fn. The tab and its connection are
// closed exactly once after fn returns.
func (l *lifecycle) withTab(ctx context.Context, ep Endpoint, fn func(Tab) error) (err error) {
	tab, err := l.opener.OpenTab(ctx, ep)
	if err != nil {
		if aliveErr := l.checkAlive(); aliveErr != nil {
			return aliveErr
		}
		return fmt.Errorf("%w: %s: %w", ErrTabOpen, ep, err)
	}
	l.logger.Debug("tab opened", zap.Stringer("endpoint", ep))
	defer func() {
		err = l.release("tab", tab.Close, err)
	}()

	return fn(tab)
}

func (l *lifecycle) checkAlive() error {
	if l.alive == nil {
		return nil
	}
	return l.alive()
}

// release runs closeFn and merges its error with primary. A primary error
// is returned unchanged and the release failure is only logged; otherwise
// the release failure becomes the result.
func (l *lifecycle) release(resource string, closeFn func() error, primary error) error {
	closeErr := closeFn()
	if closeErr == nil {
		l.logger.Debug("released", zap.String("resource", resource))
		return primary
	}

	if primary != nil {
		l.logger.Warn("release failed",
			zap.String("resource", resource),
			zap.Error(closeErr),
			zap.NamedError("primary", primary))
		return primary
	}
	return fmt.Errorf("%w: closing %s: %w", ErrCleanup, resource, closeErr)
}
