package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/alnah/go-htmlpdf/internal/config"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
	"github.com/alnah/go-htmlpdf/internal/hints"
)

// sharedFlags are the flag groups render and serve have in common.
type sharedFlags struct {
	browser  *browserFlags
	load     *loadFlags
	page     *pageFlags
	footer   *footerFlags
	trigger  *triggerFlags
	explicit map[string]bool
}

// mergeFlags applies command-line flags over cfg. Only flags set on the
// command line override the file and the environment.
func mergeFlags(f sharedFlags, cfg *config.Config) error {
	set := f.explicit

	if set["endpoint"] {
		host, port, err := parseEndpoint(f.browser.endpoint)
		if err != nil {
			return err
		}
		cfg.Browser.Host, cfg.Browser.Port = host, port
	}
	if set["chrome-path"] {
		cfg.Browser.ChromePath = f.browser.chromePath
	}
	if set["chrome-flag"] {
		cfg.Browser.Flags = f.browser.chromeArgs
	}
	if set["launch-port"] {
		cfg.Browser.LaunchPort = f.browser.launchPort
	}

	if set["timeout"] {
		cfg.Render.Timeout = f.load.timeout
	}
	if set["clear-cache"] {
		cfg.Render.ClearCache = f.load.clearCache
	}
	if set["fail-on-4xx"] {
		v := f.load.fail4xx
		cfg.Render.FailOnHTTP4xx = &v
	}
	if set["fail-on-5xx"] {
		v := f.load.fail5xx
		cfg.Render.FailOnHTTP5xx = &v
	}
	if len(f.load.headers) > 0 && cfg.Render.Headers == nil {
		cfg.Render.Headers = make(map[string]string, len(f.load.headers))
	}
	for _, h := range f.load.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return usageErrorf("invalid --header %q, want \"Name: value\"", h)
		}
		cfg.Render.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	for _, c := range f.load.cookies {
		name, value, ok := strings.Cut(c, "=")
		if !ok || name == "" {
			return usageErrorf("invalid --cookie %q, want \"name=value\"", c)
		}
		cfg.Render.Cookies = append(cfg.Render.Cookies, config.Cookie{Name: name, Value: value})
	}

	if set["page-size"] {
		cfg.Page.Size = f.page.size
	}
	if set["orientation"] {
		cfg.Page.Orientation = f.page.orientation
	}
	if set["margin"] {
		cfg.Page.Margin = f.page.margin
	}
	if set["scale"] {
		cfg.Page.Scale = f.page.scale
	}
	if set["background"] {
		cfg.Page.PrintBackground = f.page.background
	}
	if set["page-ranges"] {
		cfg.Page.PageRanges = f.page.pageRanges
	}
	if set["css-page-size"] {
		cfg.Page.PreferCSSPageSize = f.page.cssPageSize
	}

	// Any footer content flag enables the footer.
	if set["footer-position"] {
		cfg.Footer.Position, cfg.Footer.Enabled = f.footer.position, true
	}
	if set["footer-text"] {
		cfg.Footer.Text, cfg.Footer.Enabled = f.footer.text, true
	}
	if set["footer-date"] {
		cfg.Footer.Date, cfg.Footer.Enabled = f.footer.date, true
	}
	if set["footer-page-number"] {
		cfg.Footer.ShowPageNumber, cfg.Footer.Enabled = f.footer.pageNumber, true
	}
	if f.footer.disabled {
		cfg.Footer.Enabled = false
	}

	if set["trigger"] {
		cfg.Trigger.Type = f.trigger.kind
	}
	if set["trigger-name"] {
		cfg.Trigger.Name = f.trigger.name
	}
	if set["trigger-selector"] {
		cfg.Trigger.Selector = f.trigger.selector
	}
	if set["trigger-delay"] {
		cfg.Trigger.Delay = f.trigger.delay
	}
	if set["trigger-timeout"] {
		cfg.Trigger.Timeout = f.trigger.timeout
	}
	return nil
}

// parseEndpoint splits "host:port", "host" or ":port". Missing halves stay
// zero and are defaulted by the library.
func parseEndpoint(s string) (host string, port int, err error) {
	if s == "" {
		return "", 0, nil
	}
	if !strings.Contains(s, ":") || strings.Count(s, ":") > 1 && !strings.HasPrefix(s, "[") {
		return s, 0, nil
	}
	h, p, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, usageErrorf("invalid endpoint %q: %v", s, err)
	}
	if p == "" {
		return h, 0, nil
	}
	port, err = strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, usageErrorf("invalid endpoint port %q", p)
	}
	return h, port, nil
}

// loadConfig loads the config named by flags or the environment, applies
// the environment and then the flags, and validates the result.
func loadConfig(name string, env *envConfig, f sharedFlags) (*config.Config, error) {
	if name == "" {
		name = env.ConfigPath
	}
	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			err = fmt.Errorf("loading config: %w", err)
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
				return nil, &hintedError{err: err, hint: hints.ForConfigNotFound(config.SearchPaths(name))}
			}
			return nil, err
		}
	}
	if err := applyEnvConfig(env, cfg); err != nil {
		return nil, err
	}
	if err := mergeFlags(f, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
