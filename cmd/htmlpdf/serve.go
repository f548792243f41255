package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/config"
	"github.com/alnah/go-htmlpdf/internal/dateutil"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Render outcomes used as the metrics "outcome" label.
const (
	outcomeOK         = "ok"
	outcomeBadRequest = "bad_request"
	outcomeTooLarge   = "too_large"
	outcomeTimeout    = "timeout"
	outcomeUpstream   = "upstream"
	outcomeScript     = "script"
	outcomeBrowser    = "browser"
	outcomeCanceled   = "canceled"
	outcomeError      = "error"
)

// serverMetrics are the Prometheus collectors of the render service.
type serverMetrics struct {
	renders  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "htmlpdf_renders_total",
				Help: "Total number of render requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "htmlpdf_render_duration_seconds",
				Help:    "Render request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"outcome"},
		),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "htmlpdf_renders_in_flight",
			Help: "Number of renders currently running",
		}),
	}
}

// server answers render requests against one browser endpoint. Every
// request gets its own Create call, and so its own tab.
type server struct {
	render   renderFunc
	base     *config.Config
	maxBody  int64
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *serverMetrics
	now      func() time.Time
}

func newServer(render renderFunc, base *config.Config, logger *zap.Logger, now func() time.Time) *server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &server{
		render:   render,
		base:     base,
		maxBody:  base.Server.MaxBodyBytes,
		logger:   logger,
		registry: reg,
		metrics:  newServerMetrics(reg),
		now:      now,
	}
}

// routes returns the service router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	r.Post("/render", s.handleRender)
	return r
}

// logRequests logs every request at debug level.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// renderRequest is the JSON form of POST /render.
type renderRequest struct {
	HTML    string          `json:"html"`
	URL     string          `json:"url"`
	Options *requestOptions `json:"options"`
}

// requestOptions override the service configuration for one request.
type requestOptions struct {
	Timeout         string            `json:"timeout"`
	Paper           string            `json:"paper"`
	Landscape       *bool             `json:"landscape"`
	Margin          *float64          `json:"margin"`
	Scale           *float64          `json:"scale"`
	PrintBackground *bool             `json:"printBackground"`
	PageRanges      string            `json:"pageRanges"`
	Trigger         *requestTrigger   `json:"trigger"`
	FailOn4xx       *bool             `json:"failOn4xx"`
	FailOn5xx       *bool             `json:"failOn5xx"`
	Headers         map[string]string `json:"headers"`
}

type requestTrigger struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Delay    string `json:"delay"`
	Timeout  string `json:"timeout"`
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.metrics.inFlight.Inc()
	defer s.metrics.inFlight.Dec()
	start := time.Now()

	logger := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	fail := func(err error) {
		status, outcome := statusFor(err)
		s.observe(outcome, start)
		if status >= http.StatusInternalServerError {
			logger.Warn("render failed", zap.Int("status", status), zap.Error(err))
		}
		respondError(w, status, outcome, err, s.now())
	}

	content, cfg, err := s.parseRequest(w, r)
	if err != nil {
		fail(err)
		return
	}

	opts, err := buildOptions(cfg, s.now(), logger)
	if err != nil {
		fail(err)
		return
	}
	if opt, ok := cookieOption(cfg.Render.Cookies, content); ok {
		opts = append(opts, opt)
	}

	res, err := s.render(r.Context(), content, opts...)
	if err != nil {
		fail(err)
		return
	}
	pdf, err := res.Bytes()
	if err != nil {
		fail(err)
		return
	}

	s.observe(outcomeOK, start)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *server) observe(outcome string, start time.Time) {
	s.metrics.renders.WithLabelValues(outcome).Inc()
	s.metrics.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// parseRequest reads the body as raw HTML, or as a renderRequest when it is
// JSON, and returns the content with the request's configuration.
func (s *server) parseRequest(w http.ResponseWriter, r *http.Request) (string, *config.Config, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return "", nil, err
	}

	cfg := cloneConfig(s.base)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if len(bytes.TrimSpace(body)) == 0 {
			return "", nil, htmlpdf.ErrEmptyContent
		}
		content := string(body)
		if htmlpdf.IsURL(content) && !fileutil.IsURL(content) {
			return "", nil, usageErrorf("url must be http or https, got %.64q", content)
		}
		return content, cfg, nil
	}

	var req renderRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return "", nil, usageErrorf("decoding request: %v", err)
	}

	var content string
	switch {
	case req.HTML != "" && req.URL != "":
		return "", nil, usageErrorf("set either html or url, not both")
	case req.URL != "":
		if !fileutil.IsURL(req.URL) {
			return "", nil, usageErrorf("url must be http or https, got %q", req.URL)
		}
		content = req.URL
	case strings.TrimSpace(req.HTML) != "":
		content = req.HTML
	default:
		return "", nil, htmlpdf.ErrEmptyContent
	}

	if req.Options != nil {
		req.Options.apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	return content, cfg, nil
}

// apply overrides cfg with the fields set in o.
func (o *requestOptions) apply(cfg *config.Config) {
	if o.Timeout != "" {
		cfg.Render.Timeout = o.Timeout
	}
	if o.Paper != "" {
		cfg.Page.Size = o.Paper
	}
	if o.Landscape != nil {
		cfg.Page.Orientation = "portrait"
		if *o.Landscape {
			cfg.Page.Orientation = "landscape"
		}
	}
	if o.Margin != nil {
		cfg.Page.Margin = *o.Margin
	}
	if o.Scale != nil {
		cfg.Page.Scale = *o.Scale
	}
	if o.PrintBackground != nil {
		cfg.Page.PrintBackground = *o.PrintBackground
	}
	if o.PageRanges != "" {
		cfg.Page.PageRanges = o.PageRanges
	}
	if o.Trigger != nil {
		cfg.Trigger = config.TriggerConfig{
			Type:     o.Trigger.Type,
			Name:     o.Trigger.Name,
			Selector: o.Trigger.Selector,
			Delay:    o.Trigger.Delay,
			Timeout:  o.Trigger.Timeout,
		}
	}
	if o.FailOn4xx != nil {
		v := *o.FailOn4xx
		cfg.Render.FailOnHTTP4xx = &v
	}
	if o.FailOn5xx != nil {
		v := *o.FailOn5xx
		cfg.Render.FailOnHTTP5xx = &v
	}
	if len(o.Headers) > 0 {
		if cfg.Render.Headers == nil {
			cfg.Render.Headers = make(map[string]string, len(o.Headers))
		}
		maps.Copy(cfg.Render.Headers, o.Headers)
	}
}

// cloneConfig copies the parts of cfg a request may modify.
func cloneConfig(cfg *config.Config) *config.Config {
	c := *cfg
	c.Render.Headers = maps.Clone(cfg.Render.Headers)
	return &c
}

// statusFor maps a render error to an HTTP status and a metrics outcome.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, outcomeTooLarge
	case errors.Is(err, ErrUsage),
		errors.Is(err, htmlpdf.ErrEmptyContent),
		errors.Is(err, htmlpdf.ErrInvalidPaper),
		errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, config.ErrFieldTooLong),
		errors.Is(err, dateutil.ErrInvalidDateFormat):
		return http.StatusBadRequest, outcomeBadRequest
	case errors.Is(err, htmlpdf.ErrTimedOut),
		errors.Is(err, htmlpdf.ErrTriggerTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, outcomeTimeout
	case errors.Is(err, htmlpdf.ErrHTTPStatus),
		errors.Is(err, htmlpdf.ErrNavigationFailed):
		return http.StatusBadGateway, outcomeUpstream
	case errors.Is(err, htmlpdf.ErrScript):
		return http.StatusUnprocessableEntity, outcomeScript
	case errors.Is(err, htmlpdf.ErrLaunch),
		errors.Is(err, htmlpdf.ErrTabOpen):
		return http.StatusServiceUnavailable, outcomeBrowser
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, outcomeCanceled
	}
	return http.StatusInternalServerError, outcomeError
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	setSecurityHeaders(w)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// respondError writes a structured JSON error response.
func respondError(w http.ResponseWriter, status int, code string, err error, now time.Time) {
	w.Header().Set("Content-Type", "application/json")
	setSecurityHeaders(w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     http.StatusText(status),
		Status:    status,
		Code:      code,
		Message:   err.Error(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// runServe runs the render service until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	envCfg := loadEnvConfig()
	warnUnknownEnvVars(env.Stderr)

	cfg, err := loadConfig(flags.common.config, envCfg, sharedFlags{
		browser: &flags.browser, load: &flags.load, page: &flags.page,
		footer: &flags.footer, trigger: &flags.trigger, explicit: flags.explicit,
	})
	if err != nil {
		return err
	}
	if flags.explicit["addr"] {
		cfg.Server.Addr = flags.addr
	}
	if flags.explicit["max-body"] {
		if flags.maxBody <= 0 {
			return usageErrorf("--max-body must be positive, got %d", flags.maxBody)
		}
		cfg.Server.MaxBodyBytes = flags.maxBody
	}

	logger := newLogger(flags.common.verbose, env.Stderr)
	defer func() { _ = logger.Sync() }()

	// Requests share one browser. Without an endpoint, launch it here
	// and point every request at it.
	if !hasEndpoint(cfg) {
		proc, err := env.Launch(ctx, launchConfig(cfg))
		if err != nil {
			return &hintedError{err: err, hint: hintFor(err, cfg)}
		}
		defer func() {
			if err := proc.Kill(); err != nil {
				logger.Warn("stopping shared browser", zap.Error(err))
			}
		}()
		cfg.Browser.Host, cfg.Browser.Port = "127.0.0.1", proc.Port()
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}

	s := newServer(env.Render, cfg, logger, env.Now)
	return serve(ctx, ln, s.routes(), env.Stderr, flags.common.quiet)
}

// serve serves h on ln until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler, w io.Writer, quiet bool) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if !quiet {
		fmt.Fprintf(w, "Listening on %s\n", ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	<-errCh
	return nil
}
