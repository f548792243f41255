package main

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/config"
	"github.com/alnah/go-htmlpdf/internal/dateutil"
)

// buildOptions translates a validated config into Create options shared by
// every render of a run. Cookies are added per input by cookieOption.
func buildOptions(cfg *config.Config, now time.Time, logger *zap.Logger) ([]htmlpdf.Option, error) {
	opts := []htmlpdf.Option{htmlpdf.WithLogger(logger)}

	if hasEndpoint(cfg) {
		opts = append(opts, htmlpdf.WithEndpoint(cfg.Browser.Host, cfg.Browser.Port))
	} else {
		opts = append(opts, htmlpdf.WithChromePath(cfg.Browser.ChromePath))
		if len(cfg.Browser.Flags) > 0 {
			opts = append(opts, htmlpdf.WithChromeFlags(cfg.Browser.Flags...))
		}
		if cfg.Browser.LaunchPort > 0 {
			opts = append(opts, htmlpdf.WithLaunchPort(cfg.Browser.LaunchPort))
		}
	}

	if d, ok := cfg.Render.TimeoutDuration(); ok {
		opts = append(opts, htmlpdf.WithTimeout(d))
	}
	if cfg.Render.ClearCache {
		opts = append(opts, htmlpdf.WithClearCache())
	}
	if cfg.Render.FailOnHTTP4xx != nil {
		opts = append(opts, htmlpdf.WithFailOnHTTP4xx(*cfg.Render.FailOnHTTP4xx))
	}
	if cfg.Render.FailOnHTTP5xx != nil {
		opts = append(opts, htmlpdf.WithFailOnHTTP5xx(*cfg.Render.FailOnHTTP5xx))
	}
	if len(cfg.Render.Headers) > 0 {
		opts = append(opts, htmlpdf.WithExtraHeaders(cfg.Render.Headers))
	}

	printOpts, err := buildPrintOptions(cfg.Page, cfg.Footer, now)
	if err != nil {
		return nil, err
	}
	if printOpts != nil {
		opts = append(opts, htmlpdf.WithPrintOptions(printOpts))
	}

	trigger, err := buildTrigger(cfg.Trigger)
	if err != nil {
		return nil, err
	}
	if trigger != nil {
		opts = append(opts, htmlpdf.WithTrigger(trigger))
	}

	opts = append(opts,
		htmlpdf.WithConsoleHandler(func(ev htmlpdf.ConsoleEvent) {
			logger.Debug("page console", zap.String("type", ev.Type), zap.Strings("args", ev.Args))
		}),
		htmlpdf.WithExceptionHandler(func(ev htmlpdf.ExceptionEvent) {
			logger.Warn("page exception",
				zap.String("text", ev.Text),
				zap.String("url", ev.URL),
				zap.Int("line", ev.LineNumber))
		}),
		htmlpdf.WithLoadingFailedHandler(func(ev htmlpdf.LoadingFailedEvent) {
			if !ev.Canceled {
				logger.Debug("request failed", zap.String("request_id", ev.RequestID), zap.String("error", ev.ErrorText))
			}
		}),
	)
	return opts, nil
}

// cookieOption scopes configured cookies without a URL or domain to the
// page being rendered. Markup renders have no URL to scope to, so such
// cookies are skipped.
func cookieOption(cookies []config.Cookie, pageURL string) (htmlpdf.Option, bool) {
	var out []htmlpdf.Cookie
	for _, c := range cookies {
		ck := htmlpdf.Cookie{Name: c.Name, Value: c.Value, URL: c.URL, Domain: c.Domain, Path: c.Path}
		if ck.URL == "" && ck.Domain == "" {
			if !strings.HasPrefix(pageURL, "http") {
				continue
			}
			ck.URL = pageURL
		}
		out = append(out, ck)
	}
	if len(out) == 0 {
		return nil, false
	}
	return htmlpdf.WithCookies(out...), true
}

// buildPrintOptions returns nil when the browser's print defaults apply.
func buildPrintOptions(page config.PageConfig, footer config.FooterConfig, now time.Time) (*htmlpdf.PrintOptions, error) {
	opts := &htmlpdf.PrintOptions{
		Landscape:         strings.EqualFold(page.Orientation, "landscape"),
		PrintBackground:   page.PrintBackground,
		PageRanges:        page.PageRanges,
		PreferCSSPageSize: page.PreferCSSPageSize,
	}
	customized := opts.Landscape || opts.PrintBackground || opts.PageRanges != "" || opts.PreferCSSPageSize

	if page.Size != "" {
		if err := opts.SetPaper(page.Size, opts.Landscape); err != nil {
			return nil, err
		}
		customized = true
	}
	if page.Margin > 0 {
		opts.SetMargins(page.Margin)
		customized = true
	}
	if page.Scale > 0 {
		scale := page.Scale
		opts.Scale = &scale
		customized = true
	}

	if footer.Enabled {
		date, err := dateutil.Resolve(footer.Date, now)
		if err != nil {
			return nil, fmt.Errorf("footer date: %w", err)
		}
		opts.DisplayHeaderFooter = true
		opts.HeaderTemplate = htmlpdf.FooterTemplate(nil)
		opts.FooterTemplate = htmlpdf.FooterTemplate(&htmlpdf.Footer{
			Position:       footer.Position,
			ShowPageNumber: footer.ShowPageNumber,
			Date:           date,
			Text:           footer.Text,
		})
		customized = true
	}

	if !customized {
		return nil, nil
	}
	return opts, nil
}

// launchConfig returns the parameters for a browser shared by a run.
func launchConfig(cfg *config.Config) htmlpdf.LaunchConfig {
	return htmlpdf.LaunchConfig{
		ChromePath: cfg.Browser.ChromePath,
		Flags:      cfg.Browser.Flags,
		Port:       cfg.Browser.LaunchPort,
	}
}

// hasEndpoint reports whether cfg points at a running browser.
func hasEndpoint(cfg *config.Config) bool {
	return cfg.Browser.Host != "" || cfg.Browser.Port != 0
}

// buildTrigger returns nil when no trigger is configured.
func buildTrigger(tc config.TriggerConfig) (htmlpdf.Trigger, error) {
	timeout, err := config.ParseDuration(tc.Timeout)
	if err != nil {
		return nil, usageErrorf("trigger timeout: %v", err)
	}

	switch strings.ToLower(tc.Type) {
	case config.TriggerNone:
		return nil, nil
	case config.TriggerTimer:
		delay, err := config.ParseDuration(tc.Delay)
		if err != nil {
			return nil, usageErrorf("trigger delay: %v", err)
		}
		return htmlpdf.TimerTrigger{Delay: delay}, nil
	case config.TriggerVariable:
		return htmlpdf.VariableTrigger{Name: tc.Name, Timeout: timeout}, nil
	case config.TriggerCallback:
		return htmlpdf.CallbackTrigger{Name: tc.Name, Timeout: timeout}, nil
	case config.TriggerEvent:
		return htmlpdf.EventTrigger{Name: tc.Name, Selector: tc.Selector, Timeout: timeout}, nil
	case config.TriggerElement:
		return htmlpdf.ElementTrigger{Selector: tc.Selector, Timeout: timeout}, nil
	}
	return nil, usageErrorf("unknown trigger %q", tc.Type)
}
