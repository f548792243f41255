package main

// Notes:
// - Chrome detection depends on the host; those tests only assert the shape
//   of the output and that status and exit code agree.
// - Endpoint checks are tested against an httptest server that answers
//   /json/version like a browser does.
// - Container detection reads environment variables and cannot run in
//   parallel.

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
)

// fakeDevTools answers /json/version like a browser's debugging endpoint.
func fakeDevTools(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Browser":"HeadlessChrome/120.0","webSocketDebuggerUrl":"ws://` + r.Host + `/devtools/browser/abc"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runDoctorJSON(t *testing.T, args ...string) (doctorResult, int) {
	t.Helper()
	env := newTestEnv(t, "")
	code := runDoctorCmd(context.Background(), append([]string{"--json"}, args...), env.Environment)

	var result doctorResult
	if err := json.Unmarshal(env.stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, env.stdout)
	}
	return result, code
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_JSONOutput - Structure and exit code consistency
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSONOutput(t *testing.T) {
	t.Parallel()

	result, code := runDoctorJSON(t)

	if result.Env.OS != runtime.GOOS || result.Env.Arch != runtime.GOARCH {
		t.Errorf("platform = %s/%s, want %s/%s", result.Env.OS, result.Env.Arch, runtime.GOOS, runtime.GOARCH)
	}
	valid := map[string]bool{"ready": true, "warnings": true, "errors": true}
	if !valid[result.Status] {
		t.Errorf("invalid status %q", result.Status)
	}
	if (result.Status == "errors") != (code == ExitGeneral) {
		t.Errorf("status %q with exit code %d", result.Status, code)
	}
	if result.Endpoint != nil {
		t.Error("endpoint section should be absent without --endpoint")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Endpoint - Checking a running browser
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_EndpointReachable(t *testing.T) {
	t.Parallel()

	srv := fakeDevTools(t)
	addr := strings.TrimPrefix(srv.URL, "http://")

	result, code := runDoctorJSON(t, "--endpoint", addr)

	if result.Endpoint == nil || !result.Endpoint.Reachable {
		t.Fatalf("endpoint should be reachable, got %+v (errors %v)", result.Endpoint, result.Errors)
	}
	if !strings.HasPrefix(result.Endpoint.WebSocketURL, "ws://") {
		t.Errorf("WebSocketURL = %q", result.Endpoint.WebSocketURL)
	}
	if result.Chrome.Found {
		t.Error("local Chrome should not be looked up with an endpoint")
	}
	if code == ExitGeneral {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestRunDoctorCmd_EndpointUnreachable(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	result, code := runDoctorJSON(t, "-e", addr)

	if result.Endpoint == nil || result.Endpoint.Reachable {
		t.Fatalf("endpoint should be unreachable, got %+v", result.Endpoint)
	}
	if result.Status != "errors" || code != ExitGeneral {
		t.Errorf("status = %q, code = %d, want errors/%d", result.Status, code, ExitGeneral)
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], addr) {
		t.Errorf("errors should name the address, got %v", result.Errors)
	}
}

func TestRunDoctorCmd_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	result, code := runDoctorJSON(t, "-e", "host:abc")

	if code != ExitGeneral || len(result.Errors) == 0 {
		t.Errorf("invalid endpoint should be an error, got %d %v", code, result.Errors)
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_HumanOutput - Sections and status line
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_HumanOutput(t *testing.T) {
	t.Parallel()

	srv := fakeDevTools(t)
	env := newTestEnv(t, "")

	runDoctorCmd(context.Background(), []string{"--endpoint", strings.TrimPrefix(srv.URL, "http://")}, env.Environment)

	out := env.stdout.String()
	for _, want := range []string{"htmlpdf doctor", "Browser endpoint", "[OK] Reachable at", "Environment", "System", "Status:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunDoctorCmd_BadFlag(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	if code := runDoctorCmd(context.Background(), []string{"--nope"}, env.Environment); code != ExitUsage {
		t.Errorf("code = %d, want %d", code, ExitUsage)
	}
}

// ---------------------------------------------------------------------------
// TestIsContainer - Detection signals
// ---------------------------------------------------------------------------

func TestIsContainer(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantHint string
	}{
		{"explicit override", map[string]string{"HTMLPDF_CONTAINER": "1"}, "HTMLPDF_CONTAINER=1"},
		{"podman", map[string]string{"container": "podman"}, "container=podman"},
		{"kubernetes", map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, "KUBERNETES_SERVICE_HOST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"HTMLPDF_CONTAINER", "container", "KUBERNETES_SERVICE_HOST"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, hint := isContainer()
			if !got {
				t.Fatal("expected container detection")
			}
			// /.dockerenv outranks the env signals on Docker hosts.
			if hint != tt.wantHint && hint != "/.dockerenv" {
				t.Errorf("hint = %q, want %q", hint, tt.wantHint)
			}
		})
	}
}

// TestCheckEnvironment_SandboxWarning only warns when the browser is local.
func TestCheckEnvironment_SandboxWarning(t *testing.T) {
	t.Setenv("CI", "true")
	t.Setenv("ROD_NO_SANDBOX", "")

	local := &doctorResult{}
	checkEnvironment(local, false)
	if len(local.Warnings) == 0 {
		t.Error("expected sandbox warning for a local launch in CI")
	}

	remote := &doctorResult{}
	checkEnvironment(remote, true)
	if len(remote.Warnings) != 0 {
		t.Errorf("remote browser should not warn about the sandbox, got %v", remote.Warnings)
	}
}
