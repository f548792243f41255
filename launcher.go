package htmlpdf

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/alnah/go-htmlpdf/internal/process"
)

// browserExitTimeout bounds how long Kill waits for the browser to exit.
const browserExitTimeout = 10 * time.Second

// DefaultChromeFlags are used when a launched browser gets no explicit flags.
var DefaultChromeFlags = []string{
	"--disable-gpu",
	"--headless",
	"--hide-scrollbars",
}

// Compile-time interface checks
var (
	_ Launcher       = rodLauncher{}
	_ Process        = (*rodProcess)(nil)
	_ browserProcess = (*launcher.Launcher)(nil)
)

// Launch starts a local browser that several Create calls can share
// through WithEndpoint("127.0.0.1", proc.Port()). The caller owns the
// process and must Kill it.
func Launch(ctx context.Context, cfg LaunchConfig) (Process, error) {
	proc, err := rodLauncher{}.Launch(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	return proc, nil
}

// rodLauncher starts Chrome through go-rod's launcher.
type rodLauncher struct{}

func (rodLauncher) Launch(ctx context.Context, cfg LaunchConfig) (Process, error) {
	l := newRodLauncher(cfg)

	type launched struct {
		url string
		err error
	}
	done := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		done <- launched{url: u, err: err}
	}()

	select {
	case <-ctx.Done():
		// The launch may still succeed; reap it in the background.
		go func() {
			if res := <-done; res.err == nil {
				_ = killLauncher(l, browserExitTimeout)
			}
		}()
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			// Cleanup would block forever when the process never started.
			_ = os.RemoveAll(l.Get(flags.UserDataDir))
			return nil, res.err
		}
		port, err := controlPort(res.url)
		if err != nil {
			_ = killLauncher(l, browserExitTimeout)
			return nil, err
		}
		return &rodProcess{l: l, port: port}, nil
	}
}

// newRodLauncher builds a go-rod launcher from cfg and the environment.
func newRodLauncher(cfg LaunchConfig) *launcher.Launcher {
	l := launcher.New()

	bin := cfg.ChromePath
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// Containers and CI runners usually lack the user namespaces the
	// sandbox needs.
	if bin != "" || os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	chromeFlags := cfg.Flags
	if len(chromeFlags) == 0 {
		chromeFlags = DefaultChromeFlags
	}
	l = l.Headless(false)
	for _, f := range chromeFlags {
		name, value, hasValue := parseChromeFlag(f)
		if name == "" {
			continue
		}
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	if cfg.Port > 0 {
		l = l.RemoteDebuggingPort(cfg.Port)
	}
	return l
}

// parseChromeFlag splits "--name=value" into its parts.
func parseChromeFlag(f string) (name, value string, hasValue bool) {
	f = strings.TrimLeft(strings.TrimSpace(f), "-")
	name, value, hasValue = strings.Cut(f, "=")
	return name, value, hasValue
}

// controlPort extracts the debugging port from the launcher's control URL.
func controlPort(controlURL string) (int, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return 0, fmt.Errorf("parsing control URL: %w", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0, fmt.Errorf("control URL %q has no port", controlURL)
	}
	return port, nil
}

// rodProcess is a browser started by rodLauncher.
type rodProcess struct {
	l    browserProcess
	port int

	once    sync.Once
	killErr error
}

func (p *rodProcess) Port() int { return p.port }

// Kill terminates the browser and its children and removes its profile
// directory. Safe to call more than once; later calls return the first
// result.
func (p *rodProcess) Kill() error {
	p.once.Do(func() { p.killErr = killLauncher(p.l, browserExitTimeout) })
	return p.killErr
}

// browserProcess is the part of launcher.Launcher that killing needs.
type browserProcess interface {
	PID() int
	Kill()
	Cleanup()
}

// killLauncher kills the whole process group before rod's own kill, since
// Chrome spawns helpers that outlive the main process otherwise. It fails
// only when the browser is still running after wait.
func killLauncher(l browserProcess, wait time.Duration) error {
	pid := l.PID()
	var treeErr error
	if pid > 0 {
		treeErr = process.KillTree(pid)
	}
	l.Kill()

	// Cleanup returns once the process has exited.
	exited := make(chan struct{})
	go func() {
		l.Cleanup()
		close(exited)
	}()

	select {
	case <-exited:
		return nil
	case <-time.After(wait):
		err := fmt.Errorf("browser pid %d still running %s after kill", pid, wait)
		if treeErr != nil {
			err = fmt.Errorf("%w: %w", err, treeErr)
		}
		return err
	}
}
