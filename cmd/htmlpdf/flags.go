package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// browserFlags select the browser to render with.
type browserFlags struct {
	endpoint   string // host:port of a running browser
	chromePath string
	chromeArgs []string
	launchPort int
}

// loadFlags control navigation and the load policy.
type loadFlags struct {
	timeout    string
	clearCache bool
	fail4xx    bool
	fail5xx    bool
	headers    []string // "Name: value"
	cookies    []string // "name=value"
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
	scale       float64
	background  bool
	pageRanges  string
	cssPageSize bool
}

// footerFlags holds footer-related flags.
type footerFlags struct {
	position   string
	text       string
	date       string
	pageNumber bool
	disabled   bool
}

// triggerFlags select the completion trigger.
type triggerFlags struct {
	kind     string
	name     string
	selector string
	delay    string
	timeout  string
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common   commonFlags
	output   string
	workers  int
	mdStyle  string
	browser  browserFlags
	load     loadFlags
	page     pageFlags
	footer   footerFlags
	trigger  triggerFlags
	explicit map[string]bool // flags set on the command line
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common   commonFlags
	addr     string
	maxBody  int64
	browser  browserFlags
	load     loadFlags
	page     pageFlags
	footer   footerFlags
	trigger  triggerFlags
	explicit map[string]bool
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log render stages")
}

func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVarP(&f.endpoint, "endpoint", "e", "", "running browser as host:port (default: launch one)")
	fs.StringVar(&f.chromePath, "chrome-path", "", "browser binary to launch")
	fs.StringArrayVar(&f.chromeArgs, "chrome-flag", nil, "launch flag, repeatable (replaces the defaults)")
	fs.IntVar(&f.launchPort, "launch-port", 0, "debugging port for a launched browser (0 = free port)")
}

func addLoadFlags(fs *flag.FlagSet, f *loadFlags) {
	fs.StringVarP(&f.timeout, "timeout", "t", "", "overall render timeout (e.g., 30s, 2m)")
	fs.BoolVar(&f.clearCache, "clear-cache", false, "clear the browser cache before loading")
	fs.BoolVar(&f.fail4xx, "fail-on-4xx", true, "fail when the page returns 4xx")
	fs.BoolVar(&f.fail5xx, "fail-on-5xx", true, "fail when the page returns 5xx")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "extra request header \"Name: value\", repeatable")
	fs.StringArrayVar(&f.cookies, "cookie", nil, "cookie \"name=value\" for the page URL, repeatable")
}

func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches")
	fs.Float64Var(&f.scale, "scale", 0, "rendering scale (0.1-2)")
	fs.BoolVar(&f.background, "background", false, "print background graphics")
	fs.StringVar(&f.pageRanges, "page-ranges", "", "pages to print, e.g. 1-5, 8")
	fs.BoolVar(&f.cssPageSize, "css-page-size", false, "prefer the page size declared in CSS")
}

func addFooterFlags(fs *flag.FlagSet, f *footerFlags) {
	fs.StringVar(&f.position, "footer-position", "", "footer position: left, center, right")
	fs.StringVar(&f.text, "footer-text", "", "custom footer text")
	fs.StringVar(&f.date, "footer-date", "", "footer date: literal, \"auto\" or \"auto:FORMAT\"")
	fs.BoolVar(&f.pageNumber, "footer-page-number", false, "show page numbers in footer")
	fs.BoolVar(&f.disabled, "no-footer", false, "disable footer")
}

func addTriggerFlags(fs *flag.FlagSet, f *triggerFlags) {
	fs.StringVar(&f.kind, "trigger", "", "completion trigger: timer, variable, callback, event, element")
	fs.StringVar(&f.name, "trigger-name", "", "variable, callback or event name")
	fs.StringVar(&f.selector, "trigger-selector", "", "event target or awaited element")
	fs.StringVar(&f.delay, "trigger-delay", "", "timer trigger delay (e.g., 500ms)")
	fs.StringVar(&f.timeout, "trigger-timeout", "", "polling trigger timeout (default 3s)")
}

// explicitFlags records which flags were set on the command line.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, usage io.Writer) (*renderFlags, []string, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &renderFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file (single input) or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (0 = auto)")
	fs.StringVar(&f.mdStyle, "md-style", "", "code highlighting style for .md inputs")

	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	addLoadFlags(fs, &f.load)
	addPageFlags(fs, &f.page)
	addFooterFlags(fs, &f.footer)
	addTriggerFlags(fs, &f.trigger)

	fs.Usage = func() { printRenderUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	f.explicit = explicitFlags(fs)
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, usage io.Writer) (*serveFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :8080)")
	fs.Int64Var(&f.maxBody, "max-body", 0, "maximum request body in bytes (default 10MiB)")

	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	addLoadFlags(fs, &f.load)
	addPageFlags(fs, &f.page)
	addFooterFlags(fs, &f.footer)
	addTriggerFlags(fs, &f.trigger)

	fs.Usage = func() { printServeUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, usageErrorf("serve takes no arguments, got %q", fs.Args())
	}
	f.explicit = explicitFlags(fs)
	return f, nil
}
