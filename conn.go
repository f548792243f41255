package htmlpdf

import (
	"context"
	"math"
	"net"
	"strconv"
)

// Endpoint defaults applied when only one half of an endpoint is configured.
const (
	DefaultHost = "localhost"
	DefaultPort = 9222
)

// Endpoint identifies a running browser's remote debugging address.
// The zero value means "launch a browser for this call".
type Endpoint struct {
	Host string
	Port int
}

// IsZero reports whether neither host nor port is set.
func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

// String returns host:port with defaults filled in.
func (e Endpoint) String() string {
	host := e.Host
	if host == "" {
		host = DefaultHost
	}
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// LaunchConfig holds the parameters for starting a browser process.
type LaunchConfig struct {
	ChromePath string   // explicit binary; empty lets the launcher pick one
	Flags      []string // command-line flags, e.g. "--headless"
	Port       int      // remote debugging port; 0 picks a free one
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context, cfg LaunchConfig) (Process, error)
}

// Process is a browser started by a Launcher.
type Process interface {
	Port() int
	Kill() error
}

// TabOpener opens a new tab, with its own protocol connection, on a running browser.
type TabOpener interface {
	OpenTab(ctx context.Context, ep Endpoint) (Tab, error)
}

// Tab is a protocol connection bound to a single browser tab.
// Close closes the tab first and then the connection.
type Tab interface {
	Conn
	Close() error
}

// Evaluator evaluates JavaScript in the page. It is the only capability
// handed to a Trigger.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) (Evaluation, error)
}

// Conn exposes the protocol operations the render engine needs.
type Conn interface {
	Evaluator

	// EnableDomains turns on the Network, Page and Runtime event streams.
	EnableDomains(ctx context.Context) error
	ClearBrowserCache(ctx context.Context) error
	SetCookies(ctx context.Context, cookies []Cookie) error
	SetExtraHeaders(ctx context.Context, headers map[string]string) error

	// Subscribe registers the non-nil handlers. Events are delivered on a
	// single goroutine until ctx is done.
	Subscribe(ctx context.Context, h EventHandlers)

	// LoadFired arms a waiter for the next load event and returns a function
	// that blocks until it fires or ctx is done. Arm it before navigating.
	// Load events reach the waiter through the Subscribe listener, after the
	// events that preceded them, so Subscribe must be called first.
	LoadFired(ctx context.Context) func() error

	Navigate(ctx context.Context, url string) error
	RootFrameID(ctx context.Context) (string, error)
	SetDocumentContent(ctx context.Context, frameID, html string) error
	PrintToPDF(ctx context.Context, opts *PrintOptions) ([]byte, error)
}

// Evaluation is the outcome of evaluating an expression in the page.
type Evaluation struct {
	Value     any    // JSON-decoded result value
	Exception string // non-empty when the expression threw
}

// Truthy applies JavaScript truthiness to the decoded value.
func (e Evaluation) Truthy() bool {
	switch v := e.Value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
