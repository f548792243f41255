package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/hints"
)

// endpointCheckTimeout bounds the DevTools reachability check.
const endpointCheckTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string        `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo    `json:"chrome"`
	Endpoint *endpointInfo `json:"endpoint,omitempty"`
	Env      envInfo       `json:"environment"`
	System   systemInfo    `json:"system"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// endpointInfo holds the result of checking a running browser.
type endpointInfo struct {
	Address      string `json:"address"`
	Reachable    bool   `json:"reachable"`
	WebSocketURL string `json:"websocket_url,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	jsonOutput := fs.Bool("json", false, "print results as JSON")
	endpoint := fs.StringP("endpoint", "e", "", "running browser to check as host:port")
	chromePath := fs.String("chrome-path", "", "browser binary to check")
	fs.Usage = func() { printDoctorUsage(env.Stderr) }
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitUsage
	}

	if *endpoint == "" {
		*endpoint = os.Getenv("HTMLPDF_ENDPOINT")
	}
	if *chromePath == "" {
		*chromePath = os.Getenv("HTMLPDF_CHROME_PATH")
	}

	result := runDoctor(ctx, *endpoint, *chromePath)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks. With an endpoint, the running
// browser is checked instead of looking for a local binary.
func runDoctor(ctx context.Context, endpoint, chromePath string) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	if endpoint != "" {
		checkEndpoint(ctx, result, endpoint)
	} else {
		checkChrome(result, chromePath)
	}
	checkEnvironment(result, endpoint != "")
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, chromePath string) {
	if chromePath == "" {
		chromePath = result.Env.BrowserBin
	}
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; a managed Chromium is downloaded on first launch. Set ROD_BROWSER_BIN or --chrome-path to use your own")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	// #nosec G204 -- the binary is the user's configured browser
	out, err := exec.Command(chromePath, "--version").Output()
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEndpoint verifies the DevTools endpoint answers /json/version.
func checkEndpoint(ctx context.Context, result *doctorResult, endpoint string) {
	host, port, err := parseEndpoint(endpoint)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}
	addr := htmlpdf.Endpoint{Host: host, Port: port}.String()
	result.Endpoint = &endpointInfo{Address: addr}

	ctx, cancel := context.WithTimeout(ctx, endpointCheckTimeout)
	defer cancel()

	type resolved struct {
		ws  string
		err error
	}
	done := make(chan resolved, 1)
	go func() {
		ws, err := launcher.ResolveURL(addr)
		done <- resolved{ws, err}
	}()

	select {
	case p := <-done:
		if p.err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("No browser answering at %s: %v", addr, p.err))
			return
		}
		result.Endpoint.Reachable = true
		result.Endpoint.WebSocketURL = p.ws
	case <-ctx.Done():
		result.Errors = append(result.Errors,
			fmt.Sprintf("No browser answering at %s within %v", addr, endpointCheckTimeout))
	}
}

// checkEnvironment detects container and CI environments. The sandbox
// warning only applies when this process launches the browser.
func checkEnvironment(result *doctorResult, remote bool) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI() || os.Getenv("CIRCLECI") != ""

	if !remote && (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("HTMLPDF_CONTAINER") == "1" {
		return true, "HTMLPDF_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for Markdown renders.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	f, err := os.CreateTemp(tmpDir, "htmlpdf-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	_ = f.Close()
	_ = os.Remove(filepath.Clean(f.Name()))
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "htmlpdf doctor")
	fmt.Fprintln(w)

	if r.Endpoint != nil {
		fmt.Fprintln(w, "Browser endpoint")
		if r.Endpoint.Reachable {
			fmt.Fprintf(w, "  [OK] Reachable at %s\n", r.Endpoint.Address)
			fmt.Fprintf(w, "  [OK] DevTools: %s\n", r.Endpoint.WebSocketURL)
		} else {
			fmt.Fprintf(w, "  [ERROR] Unreachable at %s\n", r.Endpoint.Address)
		}
	} else {
		fmt.Fprintln(w, "Chrome/Chromium")
		if r.Chrome.Found {
			fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
			if r.Chrome.Version != "" {
				fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
			}
			if r.Chrome.Sandbox {
				fmt.Fprintln(w, "  [OK] Sandbox: enabled")
			} else {
				fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
			}
		} else {
			fmt.Fprintln(w, "  [WARN] Not found")
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to render")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
