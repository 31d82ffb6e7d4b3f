// Package api provides the HTTP server for the solar quote generator.
//
// It serves the quote entry form, turns form submissions into quotation
// PDFs and renders standalone electricity cost comparison charts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cclenergy/solarquote/internal/config"
	"github.com/cclenergy/solarquote/internal/infra"
	"github.com/cclenergy/solarquote/internal/intake"
	"github.com/cclenergy/solarquote/internal/logging"
	"github.com/cclenergy/solarquote/internal/report"
	"github.com/cclenergy/solarquote/internal/upload"
	"github.com/cclenergy/solarquote/web"
)

// Server is the HTTP server.
type Server struct {
	router     chi.Router
	cfg        *config.Config
	logger     *log.Logger
	gen        *report.Generator
	uploads    *upload.Store
	limiter    *infra.RateLimiter // nil when rendering is unthrottled
	renderWait time.Duration      // how long a throttled request may queue
	version    string
	configFile string
	serveUI    bool // when true, serve the embedded form at /
}

// Option configures a Server.
type Option func(*Server)

// WithGenerator replaces the quote generator built from configuration.
func WithGenerator(g *report.Generator) Option {
	return func(s *Server) { s.gen = g }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithConfigFile records the config file the server was started from.
func WithConfigFile(path string) Option {
	return func(s *Server) { s.configFile = path }
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, logger *log.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: nil config")
	}
	if logger == nil {
		logger = log.Default()
	}

	srv := &Server{
		cfg:        cfg,
		logger:     logger,
		uploads:    upload.NewStore(cfg.Upload),
		renderWait: 5 * time.Second,
		version:    "dev",
		serveUI:    true,
	}
	if cfg.Server.RenderInterval > 0 {
		srv.limiter = infra.NewRateLimiter(cfg.Server.RenderBurst, cfg.Server.RenderInterval)
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.gen == nil {
		srv.gen = report.NewGeneratorFromConfig(cfg)
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetServeUI controls whether the embedded form is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then shuts down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-done:
	}
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.Server.CORSOrigins) > 0 {
		origins = s.cfg.Server.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// Form submission
	r.With(s.throttle).Post("/generate", s.handleGenerate)
	r.With(s.throttle).Post("/chart", s.handleChart)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.With(s.throttle).Post("/chart", s.handleChart)

		// Config
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/status", s.handleConfigStatus)
	})

	if s.serveUI {
		s.mountStatic(r, web.DistFS())
	}

	return r
}

// mountStatic serves the embedded form and its assets. "/" maps to
// index.html; unknown paths are 404.
func (s *Server) mountStatic(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" || rPath == "index.html" {
			serveIndexHTML(w, distFS)
			return
		}

		f, err := distFS.Open(rPath)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		f.Close()

		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML writes the embedded index.html.
func serveIndexHTML(w http.ResponseWriter, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "quote form not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": s.version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleGenerate turns a quote form submission into a PDF download.
// Missing fields are a 400. The roof image and cost series are optional and
// a bad one only leaves its page without a picture.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if err := s.parseForm(w, r); err != nil {
		writeFormError(w, r, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}

	quote, err := intake.ParseQuote(r.PostForm)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req := report.Request{Quote: quote}
	req.RoofImagePath = s.saveRoofImage(r, logger)

	chartReq, ok, err := intake.ParseChartForm(r.PostForm)
	switch {
	case err != nil:
		logger.Warn("cost series ignored", "err", err)
	case ok:
		series := chartReq.Series(s.cfg.Chart.StartYear)
		req.Series = &series
	}

	res, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		logger.Error("quote generation failed", "project_id", quote.Customer.ProjectID, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to generate quote")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(res.PDF) //nolint:errcheck
}

// saveRoofImage stores the uploaded roof design image, if any, and returns
// its path. Disallowed or failed uploads return "".
func (s *Server) saveRoofImage(r *http.Request, logger *log.Logger) string {
	if r.MultipartForm == nil {
		return ""
	}
	files := r.MultipartForm.File[intake.FieldRoofImage]
	if len(files) == 0 || files[0].Filename == "" {
		return ""
	}
	path, err := s.uploads.Save(files[0])
	switch {
	case errors.Is(err, upload.ErrNotAllowed):
		logger.Info("roof image ignored", "filename", files[0].Filename, "reason", err)
		return ""
	case err != nil:
		logger.Warn("roof image not saved", "filename", files[0].Filename, "err", err)
		return ""
	}
	logger.Debug("roof image saved", "path", path)
	return path
}

// handleChart renders a cost comparison chart as PNG from a JSON
// ChartRequest or from the cost series form fields.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var req intake.ChartRequest

	if isJSON(r) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	} else {
		if err := s.parseForm(w, r); err != nil {
			writeFormError(w, r, err)
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll() //nolint:errcheck
		}
		parsed, _, err := intake.ParseChartForm(r.PostForm)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req = parsed
	}

	if req.Empty() {
		writeError(w, r, http.StatusBadRequest, intake.FieldBeforeCosts+" and "+intake.FieldAfterCosts+" are required")
		return
	}

	png, err := s.gen.RenderChart(r.Context(), req.Series(s.cfg.Chart.StartYear))
	if err != nil {
		if report.IsChartError(err) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("chart rendering failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

// ============================================================
// Helpers
// ============================================================

// throttle queues rendering requests on the shared rate limiter and answers
// 429 when no slot frees up within renderWait.
func (s *Server) throttle(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.renderWait)
		defer cancel()
		if err := s.limiter.Wait(ctx); err != nil {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "too many render requests, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errPayloadTooLarge marks bodies over the configured upload limit.
var errPayloadTooLarge = errors.New("request body too large")

// parseForm parses a multipart or urlencoded body, capped at the upload
// size limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)

	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errPayloadTooLarge
	}
	if err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	return nil
}

func writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errPayloadTooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("failed to write JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
