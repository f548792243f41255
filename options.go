package htmlpdf

import (
	"maps"
	"time"

	"go.uber.org/zap"
)

// Option configures a single Create call.
type Option func(*config)

// config holds the invocation configuration. It is built once per call
// and never mutated afterwards.
type config struct {
	endpoint    Endpoint
	chromePath  string
	chromeFlags []string
	launchPort  int

	print   *PrintOptions
	trigger Trigger

	timeout    time.Duration
	hasTimeout bool

	clearCache bool
	cookies    []Cookie
	headers    map[string]string

	// Nil means fail; only an explicit false tolerates the status class.
	failOnHTTP4xx *bool
	failOnHTTP5xx *bool

	onConsole       func(ConsoleEvent)
	onException     func(ExceptionEvent)
	onLoadingFailed func(LoadingFailedEvent)
	onRequest       func(RequestEvent)

	launcher Launcher
	opener   TabOpener
	logger   *zap.Logger
}

// newConfig applies opts over the defaults.
func newConfig(opts ...Option) *config {
	cfg := &config{
		launcher: rodLauncher{},
		opener:   rodOpener{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// statusPolicy returns the 4xx/5xx failure policy for the supervisor.
func (c *config) statusPolicy() statusPolicy {
	return statusPolicy{fail4xx: c.failOnHTTP4xx, fail5xx: c.failOnHTTP5xx}
}

// launchConfig returns the parameters for launching a browser.
func (c *config) launchConfig() LaunchConfig {
	return LaunchConfig{
		ChromePath: c.chromePath,
		Flags:      c.chromeFlags,
		Port:       c.launchPort,
	}
}

// WithEndpoint connects to a running browser instead of launching one.
// An empty host defaults to DefaultHost and a zero port to DefaultPort.
// The browser at the endpoint is never terminated.
func WithEndpoint(host string, port int) Option {
	return func(c *config) {
		c.endpoint = Endpoint{Host: host, Port: port}
	}
}

// WithChromePath sets the browser binary used when launching.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithChromeFlags replaces the default launch flags.
func WithChromeFlags(flags ...string) Option {
	return func(c *config) {
		c.chromeFlags = append([]string(nil), flags...)
	}
}

// WithLaunchPort sets the remote debugging port of a launched browser.
func WithLaunchPort(port int) Option {
	return func(c *config) {
		c.launchPort = port
	}
}

// WithPrintOptions sets the options passed to the print-to-PDF call.
func WithPrintOptions(opts *PrintOptions) Option {
	return func(c *config) {
		c.print = opts
	}
}

// WithTrigger waits for t after navigation and before capturing the PDF.
func WithTrigger(t Trigger) Option {
	return func(c *config) {
		c.trigger = t
	}
}

// WithTimeout bounds the whole call. A zero duration fails at the first
// checkpoint; a negative duration disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithClearCache clears the browser cache before navigating.
func WithClearCache() Option {
	return func(c *config) {
		c.clearCache = true
	}
}

// WithCookies sets cookies on the tab before navigating.
func WithCookies(cookies ...Cookie) Option {
	return func(c *config) {
		c.cookies = append(c.cookies, cookies...)
	}
}

// WithExtraHeaders sends additional HTTP headers with every request.
func WithExtraHeaders(headers map[string]string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		maps.Copy(c.headers, headers)
	}
}

// WithFailOnHTTP4xx controls whether a 4xx main response fails the call.
// Failing is the default.
func WithFailOnHTTP4xx(fail bool) Option {
	return func(c *config) {
		c.failOnHTTP4xx = &fail
	}
}

// WithFailOnHTTP5xx controls whether a 5xx main response fails the call.
// Failing is the default.
func WithFailOnHTTP5xx(fail bool) Option {
	return func(c *config) {
		c.failOnHTTP5xx = &fail
	}
}

// WithConsoleHandler receives console messages from the page.
func WithConsoleHandler(fn func(ConsoleEvent)) Option {
	return func(c *config) {
		c.onConsole = fn
	}
}

// WithExceptionHandler receives uncaught exceptions from the page.
func WithExceptionHandler(fn func(ExceptionEvent)) Option {
	return func(c *config) {
		c.onException = fn
	}
}

// WithLoadingFailedHandler receives every failed request, not only the main one.
func WithLoadingFailedHandler(fn func(LoadingFailedEvent)) Option {
	return func(c *config) {
		c.onLoadingFailed = fn
	}
}

// WithRequestHandler receives every request the page is about to send.
func WithRequestHandler(fn func(RequestEvent)) Option {
	return func(c *config) {
		c.onRequest = fn
	}
}

// WithLauncher replaces the go-rod browser launcher.
func WithLauncher(l Launcher) Option {
	return func(c *config) {
		c.launcher = l
	}
}

// WithTabOpener replaces the go-rod tab opener.
func WithTabOpener(o TabOpener) Option {
	return func(c *config) {
		c.opener = o
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
