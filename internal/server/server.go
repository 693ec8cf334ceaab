// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/audit"
	"github.com/jeranaias/rigrun-tools/internal/tools"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8797

	// MaxRequestBodySize bounds an invocation body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// maxHistoryLimit bounds GET /v1/history.
	maxHistoryLimit = 500
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	invocations atomic.Int64
	failures    atomic.Int64
	cacheHits   atomic.Int64
	startTime   time.Time
}

func newServerStats() *ServerStats {
	return &ServerStats{startTime: time.Now()}
}

func (s *ServerStats) record(cached bool, err error) {
	s.invocations.Add(1)
	if err != nil {
		s.failures.Add(1)
	}
	if cached {
		s.cacheHits.Add(1)
	}
}

// StatsResponse represents the usage statistics response.
type StatsResponse struct {
	Invocations   int64   `json:"invocations"`
	Failures      int64   `json:"failures"`
	CacheHits     int64   `json:"cache_hits"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Snapshot returns the current counters.
func (s *ServerStats) Snapshot() StatsResponse {
	resp := StatsResponse{
		Invocations:   s.invocations.Load(),
		Failures:      s.failures.Load(),
		CacheHits:     s.cacheHits.Load(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if resp.Invocations > 0 {
		resp.CacheHitRate = float64(resp.CacheHits) / float64(resp.Invocations) * 100
	}
	return resp
}

// ============================================================================
// SERVER
// ============================================================================

// HistorySource lists recent invocations. *audit.History implements it.
type HistorySource interface {
	Recent(ctx context.Context, limit int, tool string) ([]audit.Entry, error)
}

// Config configures the HTTP tool API.
type Config struct {
	// Port on 127.0.0.1; DefaultPort when 0
	Port int
	// Token enables bearer authentication when set
	Token string
	// RequestsPerMin is the per-client budget; 120 when 0
	RequestsPerMin int
	// Version is reported by /health
	Version string
	// History, when set, backs GET /v1/history
	History HistorySource
}

// Server exposes a Dispatcher over HTTP.
type Server struct {
	cfg        Config
	dispatcher *tools.Dispatcher
	router     *http.ServeMux
	limiter    *RateLimiter
	stats      *ServerStats
	server     *http.Server
}

// NewServer creates a Server for d.
func NewServer(d *tools.Dispatcher, cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.RequestsPerMin == 0 {
		cfg.RequestsPerMin = 120
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		router:     http.NewServeMux(),
		limiter:    NewRateLimiter(cfg.RequestsPerMin),
		stats:      newServerStats(),
	}
	s.setupRoutes()
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.cfg.Port
}

// Stats returns the server counters.
func (s *Server) Stats() *ServerStats {
	return s.stats
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /v1/tools", s.handleListTools)
	s.router.HandleFunc("GET /v1/tools/{name}", s.handleDescribeTool)
	s.router.HandleFunc("POST /v1/tools/{name}", s.handleInvoke)
	s.router.HandleFunc("GET /v1/history", s.handleHistory)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)

	s.router.HandleFunc("GET /cache/stats", s.handleCacheStats)
	s.router.HandleFunc("POST /cache/clear", s.handleCacheClear)
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(s.limiter),
		AuthMiddleware(s.cfg.Token),
	)(s.router)
}

// ============================================================================
// TOOL HANDLERS
// ============================================================================

// ToolsResponse lists the registered tools.
type ToolsResponse struct {
	Tools []tools.Descriptor `json:"tools"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ToolsResponse{Tools: s.dispatcher.Registry().Descriptors()})
}

func (s *Server) handleDescribeTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	d, ok := s.dispatcher.Registry().Lookup(name)
	if !ok {
		s.writeToolError(w, &tools.Error{Kind: tools.KindUnknownTool, Tool: name, Message: fmt.Sprintf("no tool named %q", name)})
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

// InvokeResponse is the body of a successful POST /v1/tools/{name}.
type InvokeResponse struct {
	Tool       string `json:"tool"`
	Value      any    `json:"value"`
	Cached     bool   `json:"cached"`
	DurationMs int64  `json:"duration_ms"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	args, err := decodeArgs(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, string(tools.KindInputTooLarge),
				fmt.Sprintf("request body exceeds %d bytes", MaxRequestBodySize))
			return
		}
		s.writeError(w, http.StatusBadRequest, string(tools.KindInvalidArguments), "request body must be a JSON object")
		return
	}

	res, err := s.dispatcher.Invoke(r.Context(), name, args)
	s.stats.record(res.Cached, err)
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, InvokeResponse{
		Tool:       res.Tool,
		Value:      res.Value,
		Cached:     res.Cached,
		DurationMs: res.Duration.Milliseconds(),
	})
}

// decodeArgs reads a JSON object; an empty body means no arguments.
func decodeArgs(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.writeError(w, http.StatusNotFound, "NotConfigured", "invocation history is disabled")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.writeError(w, http.StatusBadRequest, string(tools.KindInvalidArguments),
				fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}
	entries, err := s.cfg.History.Recent(r.Context(), limit, r.URL.Query().Get("tool"))
	if err != nil {
		log.Printf("HISTORY_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, string(tools.KindUpstreamFailure), "history unavailable")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ============================================================================
// HEALTH AND STATS HANDLERS
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Tools        int    `json:"tools"`
	CacheEntries int    `json:"cache_entries"`
	Documents    string `json:"documents,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:       "ok",
		Version:      s.cfg.Version,
		Tools:        s.dispatcher.Registry().Len(),
		CacheEntries: s.dispatcher.Cache().Len(),
	}
	if docs := s.dispatcher.Docs(); docs != nil {
		health.Documents = docs.Dir()
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// ============================================================================
// CACHE HANDLERS
// ============================================================================

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dispatcher.Cache().Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed := s.dispatcher.Cache().Purge()
	log.Printf("CACHE_CLEARED | client_ip=%s removed=%d", GetClientIP(r), removed)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"removed": removed,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start serves on 127.0.0.1 until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s auth=%t", addr, s.cfg.Version, s.cfg.Token != "")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	st := s.stats.Snapshot()
	log.Printf("SERVER_SHUTDOWN | invocations=%d failures=%d cache_hits=%d", st.Invocations, st.Failures, st.CacheHits)
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("HTTP_ENCODE_ERROR | error=%v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}

func (s *Server) writeToolError(w http.ResponseWriter, err error) {
	var te *tools.Error
	if !errors.As(err, &te) {
		te = &tools.Error{Kind: tools.KindOf(err), Message: "tool failed unexpectedly"}
	}
	s.writeJSON(w, StatusForKind(te.Kind), ErrorBody{Error: ErrorDetail{
		Kind:    string(te.Kind),
		Field:   te.Field,
		Message: te.Message,
	}})
}

// StatusForKind maps a failure kind to an HTTP status.
func StatusForKind(kind tools.Kind) int {
	switch kind {
	case tools.KindUnknownTool:
		return http.StatusNotFound
	case tools.KindInvalidArguments, tools.KindParseError, tools.KindDisallowedConstruct:
		return http.StatusBadRequest
	case tools.KindInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case tools.KindDivisionByZero, tools.KindOverflow, tools.KindUndefinedResult:
		return http.StatusUnprocessableEntity
	case tools.KindTimeout:
		return http.StatusGatewayTimeout
	case tools.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
