// Package config loads htmlpdf YAML configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-htmlpdf/internal/dateutil"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
	"github.com/alnah/go-htmlpdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits for multi-tenant safety.
const (
	MaxHostLength        = 253  // DNS name
	MaxPathLength        = 4096 // PATH_MAX
	MaxURLLength         = 2048 // Browser limit
	MaxFlagLength        = 512
	MaxHeaderLength      = 8192
	MaxTextLength        = 500 // Footer free-form text
	MaxDateLength        = 50
	MaxNameLength        = 100 // JS identifiers, cookie names
	MaxSelectorLength    = 500
	MaxPageRangesLength  = 100
	MaxPageSizeLength    = 10
	MaxOrientationLength = 10
)

// Trigger kinds accepted by TriggerConfig.Type.
const (
	TriggerNone     = ""
	TriggerTimer    = "timer"
	TriggerVariable = "variable"
	TriggerCallback = "callback"
	TriggerEvent    = "event"
	TriggerElement  = "element"
)

// Config holds all configuration for the htmlpdf command.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Render  RenderConfig  `yaml:"render"`
	Page    PageConfig    `yaml:"page"`
	Footer  FooterConfig  `yaml:"footer"`
	Trigger TriggerConfig `yaml:"trigger"`
	Server  ServerConfig  `yaml:"server"`
	Output  OutputConfig  `yaml:"output"`
}

// BrowserConfig selects between a remote browser and a launched one.
// An empty Host with a zero Port launches a local browser.
type BrowserConfig struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	ChromePath string   `yaml:"chromePath"`
	Flags      []string `yaml:"flags"`
	LaunchPort int      `yaml:"launchPort"` // 0 = ephemeral
}

// RenderConfig controls a single render.
type RenderConfig struct {
	Timeout       string            `yaml:"timeout"` // Go duration, empty = none
	ClearCache    bool              `yaml:"clearCache"`
	FailOnHTTP4xx *bool             `yaml:"failOnHTTP4xx"` // nil = fail
	FailOnHTTP5xx *bool             `yaml:"failOnHTTP5xx"` // nil = fail
	Headers       map[string]string `yaml:"headers"`
	Cookies       []Cookie          `yaml:"cookies"`
	Workers       int               `yaml:"workers"` // concurrent renders, 0 = GOMAXPROCS
	Markdown      MarkdownConfig    `yaml:"markdown"`
}

// Cookie is set on the tab before navigating.
type Cookie struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	URL    string `yaml:"url"`
	Domain string `yaml:"domain"`
	Path   string `yaml:"path"`
}

// MarkdownConfig controls .md inputs.
type MarkdownConfig struct {
	Style string `yaml:"style"` // chroma style for code blocks
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size              string  `yaml:"size"`        // "letter", "a4", "legal" (default: browser's)
	Orientation       string  `yaml:"orientation"` // "portrait", "landscape"
	Margin            float64 `yaml:"margin"`      // inches, 0 = browser default
	Scale             float64 `yaml:"scale"`       // 0.1 to 2, 0 = browser default
	PrintBackground   bool    `yaml:"printBackground"`
	PageRanges        string  `yaml:"pageRanges"`
	PreferCSSPageSize bool    `yaml:"preferCSSPageSize"`
}

// FooterConfig defines page footer options.
type FooterConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Position       string `yaml:"position"` // "left", "center", "right" (default: "right")
	ShowPageNumber bool   `yaml:"showPageNumber"`
	Date           string `yaml:"date"` // literal, "auto" or "auto:FORMAT"
	Text           string `yaml:"text"`
}

// TriggerConfig selects the completion trigger.
type TriggerConfig struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`     // variable, callback or event name
	Selector string `yaml:"selector"` // event target or awaited element
	Delay    string `yaml:"delay"`    // timer trigger
	Timeout  string `yaml:"timeout"`  // polling triggers
}

// ServerConfig defines the serve command.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir string `yaml:"dir"` // empty = next to the source
}

// Validate checks lengths, enumerations and durations. Called by LoadConfig,
// but available for callers that build a Config by hand.
func (c *Config) Validate() error {
	type fieldLimit struct {
		field string
		value string
		max   int
	}
	checks := []fieldLimit{
		{"browser.host", c.Browser.Host, MaxHostLength},
		{"browser.chromePath", c.Browser.ChromePath, MaxPathLength},
		{"page.size", c.Page.Size, MaxPageSizeLength},
		{"page.orientation", c.Page.Orientation, MaxOrientationLength},
		{"page.pageRanges", c.Page.PageRanges, MaxPageRangesLength},
		{"footer.date", c.Footer.Date, MaxDateLength},
		{"footer.text", c.Footer.Text, MaxTextLength},
		{"trigger.name", c.Trigger.Name, MaxNameLength},
		{"trigger.selector", c.Trigger.Selector, MaxSelectorLength},
		{"output.dir", c.Output.Dir, MaxPathLength},
	}
	for i, f := range c.Browser.Flags {
		checks = append(checks, fieldLimit{fmt.Sprintf("browser.flags[%d]", i), f, MaxFlagLength})
	}
	for _, chk := range checks {
		if err := validateFieldLength(chk.field, chk.value, chk.max); err != nil {
			return err
		}
	}

	for k, v := range c.Render.Headers {
		if err := validateFieldLength("render.headers."+k, k+v, MaxHeaderLength); err != nil {
			return err
		}
	}
	for i, ck := range c.Render.Cookies {
		field := fmt.Sprintf("render.cookies[%d]", i)
		if ck.Name == "" {
			return fmt.Errorf("%w: %s.name is required", ErrInvalidValue, field)
		}
		if err := validateFieldLength(field+".name", ck.Name, MaxNameLength); err != nil {
			return err
		}
		if err := validateFieldLength(field+".url", ck.URL, MaxURLLength); err != nil {
			return err
		}
	}

	if err := validatePort("browser.port", c.Browser.Port); err != nil {
		return err
	}
	if err := validatePort("browser.launchPort", c.Browser.LaunchPort); err != nil {
		return err
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("%w: render.workers must not be negative, got %d", ErrInvalidValue, c.Render.Workers)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.maxBodyBytes must not be negative", ErrInvalidValue)
	}

	if err := oneOf("page.size", c.Page.Size, "letter", "a4", "legal"); err != nil {
		return err
	}
	if err := oneOf("page.orientation", c.Page.Orientation, "portrait", "landscape"); err != nil {
		return err
	}
	if err := oneOf("footer.position", c.Footer.Position, "left", "center", "right"); err != nil {
		return err
	}
	if err := oneOf("trigger.type", c.Trigger.Type,
		TriggerTimer, TriggerVariable, TriggerCallback, TriggerEvent, TriggerElement); err != nil {
		return err
	}
	if c.Page.Scale != 0 && (c.Page.Scale < 0.1 || c.Page.Scale > 2) {
		return fmt.Errorf("%w: page.scale must be between 0.1 and 2, got %.2f", ErrInvalidValue, c.Page.Scale)
	}
	if c.Page.Margin < 0 {
		return fmt.Errorf("%w: page.margin must not be negative", ErrInvalidValue)
	}

	switch strings.ToLower(c.Trigger.Type) {
	case TriggerEvent:
		if c.Trigger.Name == "" {
			return fmt.Errorf("%w: trigger.name is required for event triggers", ErrInvalidValue)
		}
	case TriggerElement:
		if c.Trigger.Selector == "" {
			return fmt.Errorf("%w: trigger.selector is required for element triggers", ErrInvalidValue)
		}
	}

	for _, d := range []fieldLimit{
		{field: "render.timeout", value: c.Render.Timeout},
		{field: "trigger.delay", value: c.Trigger.Delay},
		{field: "trigger.timeout", value: c.Trigger.Timeout},
	} {
		if _, err := ParseDuration(d.value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, d.field, err)
		}
	}

	if strings.HasPrefix(strings.ToLower(c.Footer.Date), "auto") {
		if _, err := dateutil.Resolve(c.Footer.Date, time.Time{}); err != nil {
			return fmt.Errorf("footer.date: %w", err)
		}
	}
	return nil
}

// ParseDuration parses a Go duration. The empty string is zero.
// Negative durations are rejected.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// TimeoutDuration returns the render timeout and whether one is set.
// Validate has already checked the syntax.
func (r RenderConfig) TimeoutDuration() (time.Duration, bool) {
	if r.Timeout == "" {
		return 0, false
	}
	d, _ := ParseDuration(r.Timeout)
	return d, true
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %s must be between 0 and 65535, got %d", ErrInvalidValue, field, port)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %q (must be one of %s)", ErrInvalidValue, field, value, strings.Join(allowed, ", "))
}

// DefaultConfig returns a configuration that launches a local browser and
// keeps the browser's print defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", MaxBodyBytes: 10 << 20},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(f, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths lists where a config name is looked up, in order:
// current directory, then ~/.config/go-htmlpdf/, each with .yaml and .yml.
func SearchPaths(name string) []string {
	exts := []string{".yaml", ".yml"}
	paths := make([]string, 0, 2*len(exts))
	for _, ext := range exts {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range exts {
			paths = append(paths, filepath.Join(dir, "go-htmlpdf", name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
