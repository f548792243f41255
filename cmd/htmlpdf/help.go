package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: htmlpdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render URLs, HTML or Markdown files to PDF")
	fmt.Fprintln(w, "  serve      Run the HTTP render service")
	fmt.Fprintln(w, "  doctor     Check the browser setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'htmlpdf help <command>' for details on a specific command.")
}

// printBrowserUsage prints the flag groups render and serve share.
func printBrowserUsage(w io.Writer) {
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "  -e, --endpoint <host:port> Running browser (default: launch one)")
	fmt.Fprintln(w, "      --chrome-path <path>  Browser binary to launch")
	fmt.Fprintln(w, "      --chrome-flag <flag>  Launch flag, repeatable (replaces defaults)")
	fmt.Fprintln(w, "      --launch-port <n>     Debugging port of a launched browser")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Loading:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Overall render timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --clear-cache         Clear the browser cache first")
	fmt.Fprintln(w, "      --fail-on-4xx=false   Render pages answering 4xx")
	fmt.Fprintln(w, "      --fail-on-5xx=false   Render pages answering 5xx")
	fmt.Fprintln(w, "  -H, --header <s>          Extra header \"Name: value\", repeatable")
	fmt.Fprintln(w, "      --cookie <s>          Cookie \"name=value\", repeatable")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Completion trigger:")
	fmt.Fprintln(w, "      --trigger <kind>      timer, variable, callback, event, element")
	fmt.Fprintln(w, "      --trigger-name <s>    Variable (htmlPdfDone), callback (htmlPdfCb) or event name")
	fmt.Fprintln(w, "      --trigger-selector <s> Event target (body) or awaited element")
	fmt.Fprintln(w, "      --trigger-delay <d>   Timer delay")
	fmt.Fprintln(w, "      --trigger-timeout <d> Polling timeout (default 3s)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --orientation <s>     Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>          Margin in inches")
	fmt.Fprintln(w, "      --scale <f>           Rendering scale (0.1-2)")
	fmt.Fprintln(w, "      --background          Print background graphics")
	fmt.Fprintln(w, "      --page-ranges <s>     Pages to print, e.g. 1-5, 8")
	fmt.Fprintln(w, "      --css-page-size       Prefer the CSS @page size")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Footer:")
	fmt.Fprintln(w, "      --footer-position <s> Position: left, center, right")
	fmt.Fprintln(w, "      --footer-text <s>     Custom footer text")
	fmt.Fprintln(w, "      --footer-date <s>     Date: \"auto\", \"auto:FORMAT\", or literal")
	fmt.Fprintln(w, "                            Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D, HH, mm")
	fmt.Fprintln(w, "                            Presets: iso, european, us, long, stamp")
	fmt.Fprintln(w, "      --footer-page-number  Show page numbers")
	fmt.Fprintln(w, "      --no-footer           Disable footer")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Log render stages")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: htmlpdf render <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render each input to PDF. Inputs are http(s) URLs, .html files,")
	fmt.Fprintln(w, ".md files, or - to read HTML from stdin.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       PDF file for one input, '-' for stdout, or a directory")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent renders (0 = auto)")
	fmt.Fprintln(w, "      --md-style <name>     Code highlighting style for .md inputs")
	fmt.Fprintln(w)
	printBrowserUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  htmlpdf render https://example.com -o example.pdf")
	fmt.Fprintln(w, "  htmlpdf render report.html --trigger variable --page-size a4")
	fmt.Fprintln(w, "  cat page.html | htmlpdf render - -o - > page.pdf")
	fmt.Fprintln(w, "  htmlpdf render docs/*.md -o out/ --endpoint chrome:9222")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: htmlpdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST /render, GET /healthz and GET /metrics.")
	fmt.Fprintln(w, "POST /render takes raw HTML, or JSON {\"html\"|\"url\", \"options\"}.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "      --max-body <bytes>    Maximum request body (default 10MiB)")
	fmt.Fprintln(w)
	printBrowserUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: htmlpdf doctor [--json] [--endpoint host:port]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that a browser can be launched or reached.")
}

// runHelp prints help for a command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	default:
		fmt.Fprintf(env.Stderr, "unknown command %q\n", args[0])
		return ExitUsage
	}
	return ExitSuccess
}
