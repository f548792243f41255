// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-htmlpdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a known CI environment variable is set.
func InCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForBrowserLaunch returns hints for a browser that failed to start.
func ForBrowserLaunch() string {
	var hints []string
	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN or --chrome-path to use a custom Chrome")
	}
	hints = append(hints, "run 'htmlpdf doctor' to check the setup")
	return formatHints(hints)
}

// ForEndpoint returns a hint for a remote browser that could not be reached.
func ForEndpoint(endpoint string) string {
	return format("check a browser is listening with --remote-debugging-port at " + endpoint)
}

// ForTimeout returns a hint about raising the render timeout.
func ForTimeout() string {
	return format("slow pages need a larger --timeout")
}

// ForTrigger returns a hint for a completion trigger that never fired.
func ForTrigger(kind string) string {
	switch kind {
	case "variable":
		return format("the page must set the variable to a truthy value; raise --trigger-timeout if it is slow")
	case "callback":
		return format("the page must call the callback function; raise --trigger-timeout if it is slow")
	case "event":
		return format("the event must be dispatched on the selected element after load")
	case "element":
		return format("check the selector matches an element the page creates")
	}
	return format("raise --trigger-timeout")
}

// ForHTTPStatus returns a hint for a main request that returned an error status.
func ForHTTPStatus(code int) string {
	if code >= 500 {
		return format("use --fail-on-5xx=false to render server error pages")
	}
	return format("use --fail-on-4xx=false to render client error pages")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-htmlpdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-htmlpdf") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
