// Package server implements the AMP proxy: an HTTP server that mirrors a
// canonical site under an /amp path prefix. For each request it fetches the
// canonical page from the upstream, runs the transformation pipeline on the
// body, and returns the result with the upstream status passed through.
// Routing stays the upstream's concern — the proxy only maps
// <amp_prefix>/<path> to <path> and never inspects the page beyond the
// transformation itself.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gaurav-prasanna/ampify/core"
	"github.com/gaurav-prasanna/ampify/core/amp"
	"github.com/gaurav-prasanna/ampify/core/assets"
	"github.com/gaurav-prasanna/ampify/core/fetch"
	"github.com/gaurav-prasanna/ampify/core/imgprobe"
)

// passthroughHeaders are upstream response headers forwarded to the client.
// Content-Length is recomputed and Content-Type is forced to HTML on
// transformed responses.
var passthroughHeaders = []string{
	"Cache-Control",
	"Content-Language",
	"Content-Type",
	"Expires",
	"Last-Modified",
}

// Server serves AMP variants of an upstream site.
type Server struct {
	cfg         *Config
	logger      *slog.Logger
	fetcher     core.Fetcher
	transformer *amp.Transformer
	router      *chi.Mux
}

// New wires a Server from its configuration. The stylesheet resolver reads
// from the configured static directory; image probes go to the upstream with
// the configured timeout.
func New(cfg *Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	resolver := assets.New(cfg.Static.URLPrefix, cfg.Static.Dir)
	prober := imgprobe.New(
		imgprobe.WithBase(cfg.Upstream),
		imgprobe.WithClient(&http.Client{Timeout: time.Duration(cfg.ProbeTimeout)}),
	)

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		fetcher:     fetch.New(),
		transformer: amp.New(resolver, prober),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get(strings.TrimSuffix(cfg.AMPPrefix, "/")+"/*", s.handleAMP)

	s.router = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until the listener fails or ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Listen, Handler: s.router}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	s.logger.Info("amp proxy listening", "addr", s.cfg.Listen, "upstream", s.cfg.Upstream)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleAMP fetches the canonical page for the requested path, transforms
// it, and serves the result. Non-2xx upstream responses pass through
// untransformed so error pages stay error pages.
func (s *Server) handleAMP(w http.ResponseWriter, r *http.Request) {
	canonicalPath := "/" + chi.URLParam(r, "*")
	if q := r.URL.RawQuery; q != "" {
		canonicalPath += "?" + q
	}

	result, err := s.fetcher.Fetch(r.Context(), strings.TrimSuffix(s.cfg.Upstream, "/")+canonicalPath)
	if err != nil {
		s.logger.Error("upstream fetch failed", "path", canonicalPath, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	if result.StatusCode < 200 || result.StatusCode >= 300 {
		s.passthrough(w, result)
		return
	}

	ampHTML, err := s.transformer.Transform(r.Context(), []byte(result.HTML), canonicalPath)
	if err != nil {
		s.logger.Error("transform failed", "path", canonicalPath, "error", err)
		http.Error(w, "transformation failed", http.StatusInternalServerError)
		return
	}

	s.copyHeaders(w, result)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(result.StatusCode)
	w.Write([]byte(ampHTML))

	s.logger.Info("page transformed",
		"path", canonicalPath,
		"status", result.StatusCode,
		"bytes", len(ampHTML),
	)
}

// passthrough relays an upstream response without touching the body.
func (s *Server) passthrough(w http.ResponseWriter, result *core.FetchResult) {
	s.copyHeaders(w, result)
	w.WriteHeader(result.StatusCode)
	w.Write([]byte(result.HTML))
}

func (s *Server) copyHeaders(w http.ResponseWriter, result *core.FetchResult) {
	for _, name := range passthroughHeaders {
		for _, v := range result.Header[name] {
			w.Header().Add(name, v)
		}
	}
}
