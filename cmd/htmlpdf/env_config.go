package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-htmlpdf/internal/config"
)

// envConfig holds configuration from HTMLPDF_* environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string // HTMLPDF_CONFIG: config file name or path
	Endpoint   string // HTMLPDF_ENDPOINT: running browser host:port
	ChromePath string // HTMLPDF_CHROME_PATH: browser binary to launch
	Timeout    string // HTMLPDF_TIMEOUT: render timeout
	PageSize   string // HTMLPDF_PAGE_SIZE: a4, letter, legal
	OutputDir  string // HTMLPDF_OUTPUT_DIR: default output directory
	Addr       string // HTMLPDF_ADDR: serve listen address
	Workers    int    // HTMLPDF_WORKERS: concurrent renders
}

// knownEnvVars lists valid HTMLPDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"HTMLPDF_CONFIG":      true,
	"HTMLPDF_ENDPOINT":    true,
	"HTMLPDF_CHROME_PATH": true,
	"HTMLPDF_TIMEOUT":     true,
	"HTMLPDF_PAGE_SIZE":   true,
	"HTMLPDF_OUTPUT_DIR":  true,
	"HTMLPDF_ADDR":        true,
	"HTMLPDF_WORKERS":     true,
}

// loadEnvConfig reads configuration from environment variables.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("HTMLPDF_CONFIG"),
		Endpoint:   os.Getenv("HTMLPDF_ENDPOINT"),
		ChromePath: os.Getenv("HTMLPDF_CHROME_PATH"),
		Timeout:    os.Getenv("HTMLPDF_TIMEOUT"),
		PageSize:   os.Getenv("HTMLPDF_PAGE_SIZE"),
		OutputDir:  os.Getenv("HTMLPDF_OUTPUT_DIR"),
		Addr:       os.Getenv("HTMLPDF_ADDR"),
	}
	if workers := os.Getenv("HTMLPDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	return cfg
}

// warnUnknownEnvVars prints a warning for each unrecognized HTMLPDF_* variable.
func warnUnknownEnvVars(w io.Writer) {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "HTMLPDF_") && !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment values the config file left empty.
// Precedence: CLI flags > env vars > config file > defaults
// (flags are applied afterwards by mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) error {
	if env.Endpoint != "" && cfg.Browser.Host == "" && cfg.Browser.Port == 0 {
		host, port, err := parseEndpoint(env.Endpoint)
		if err != nil {
			return fmt.Errorf("HTMLPDF_ENDPOINT: %w", err)
		}
		cfg.Browser.Host, cfg.Browser.Port = host, port
	}
	if env.ChromePath != "" && cfg.Browser.ChromePath == "" {
		cfg.Browser.ChromePath = env.ChromePath
	}
	if env.Timeout != "" && cfg.Render.Timeout == "" {
		cfg.Render.Timeout = env.Timeout
	}
	if env.PageSize != "" && cfg.Page.Size == "" {
		cfg.Page.Size = env.PageSize
	}
	if env.OutputDir != "" && cfg.Output.Dir == "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Addr != "" && (cfg.Server.Addr == "" || cfg.Server.Addr == config.DefaultConfig().Server.Addr) {
		cfg.Server.Addr = env.Addr
	}
	if env.Workers > 0 && cfg.Render.Workers == 0 {
		cfg.Render.Workers = env.Workers
	}
	return nil
}
