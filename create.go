package htmlpdf

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Create renders content to PDF. Content is either a URL (http, https,
// file or data scheme) or raw HTML.
//
// Without WithEndpoint a browser is launched for the call and terminated
// before Create returns. Each call opens its own tab, so concurrent calls
// may share one endpoint.
func Create(ctx context.Context, content string, opts ...Option) (result *Result, err error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	cfg := newConfig(opts...)
	logger := cfg.logger.With(zap.String("render_id", uuid.NewString()))

	state := &navState{}
	sup := newSupervisor(ctx, cfg.timeout, cfg.hasTimeout, state, cfg.statusPolicy())
	defer sup.stop()

	if err := sup.checkAlive(); err != nil {
		return nil, err
	}

	lc := &lifecycle{launcher: cfg.launcher, opener: cfg.opener, logger: logger, alive: sup.checkAlive}
	runCtx := sup.context()

	err = lc.withBrowser(runCtx, cfg.endpoint, cfg.launchConfig(), func(ep Endpoint) error {
		if err := sup.checkAlive(); err != nil {
			return err
		}
		return lc.withTab(runCtx, ep, func(tab Tab) error {
			conn := &guardedConn{conn: tab, sup: sup}
			res, err := generate(runCtx, conn, content, cfg, sup, state, logger)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		logger.Debug("render failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// generate runs navigation, the optional trigger and the PDF capture on an
// open tab.
func generate(ctx context.Context, conn Conn, content string, cfg *config, sup *supervisor, state *navState, logger *zap.Logger) (*Result, error) {
	nav := newNavigator(conn, sup, state, cfg, logger)
	defer nav.close()

	if err := nav.prepare(ctx); err != nil {
		return nil, err
	}
	if err := nav.navigate(ctx, content); err != nil {
		return nil, err
	}

	if cfg.trigger != nil {
		if err := sup.checkAlive(); err != nil {
			return nil, err
		}
		logger.Debug("waiting for trigger", zap.String("trigger", fmt.Sprintf("%T", cfg.trigger)))
		if _, err := cfg.trigger.Wait(ctx, conn); err != nil {
			if aliveErr := sup.checkAlive(); aliveErr != nil {
				return nil, aliveErr
			}
			return nil, err
		}
	}

	if err := sup.checkAlive(); err != nil {
		return nil, err
	}

	data, err := conn.PrintToPDF(ctx, cfg.print)
	if err != nil {
		return nil, err
	}
	logger.Debug("PDF captured", zap.Int("bytes", len(data)))

	return NewResult(base64.StdEncoding.EncodeToString(data)), nil
}
