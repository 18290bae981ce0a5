// HTTP and SSE transport adapters plus the operational endpoints.
//
// DESIGN: Request flow per transport:
//   - POST /mcp:   one body in, one envelope out
//   - GET  /mcp:   static usage hint
//   - GET  /sse:   capabilities notification, then keepalive comments
//   - POST /sse:   handled identically to POST /mcp
//   - GET  /ws:    WebSocket upgrade (ws.go)
//   - GET  /health, GET /stats: operational endpoints, no upstream calls
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/legco-tools/legco-search-mcp/internal/config"
	"github.com/legco-tools/legco-search-mcp/internal/jsonrpc"
)

// Server binds the router to the HTTP listener.
type Server struct {
	cfg     *config.Config
	router  *Router
	httpSrv *http.Server
}

// NewServer wires the HTTP mux around one shared Router.
func NewServer(cfg *config.Config, router *Router) *Server {
	s := &Server{cfg: cfg, router: router}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)

	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No write timeout: SSE and WebSocket connections are long-lived.
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("server listening")
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleMCP is the plain HTTP adapter: one request body, one response body.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeUsageHint(w)
		return
	}
	s.servePost(w, r)
}

// servePost runs the shared POST path for /mcp and /sse.
func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		resp := jsonrpc.NewError(nil, jsonrpc.CodeParseError, "failed to read request", nil).Encode()
		writeJSONRPC(w, resp)
		return
	}

	resp := s.router.Handle(r.Context(), body, callerID(r))
	if resp == nil {
		// Notification: acknowledged, nothing to send back.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSONRPC(w, resp)
}

// writeJSONRPC writes an encoded envelope with the mapped HTTP status.
func writeJSONRPC(w http.ResponseWriter, encoded []byte) {
	status, retryAfter := HTTPStatus(encoded)
	w.Header().Set("Content-Type", "application/json")
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// writeUsageHint answers non-POST requests to /mcp with instructions rather
// than an error.
func (s *Server) writeUsageHint(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":        config.ServerName,
		"version":     config.ServerVersion,
		"description": "MCP server for Hong Kong Legislative Council open data",
		"usage":       "POST a JSON-RPC 2.0 message to this endpoint, or connect via /sse or /ws",
		"methods":     []string{"initialize", "tools/list", "tools/call"},
	})
}

// handleSSE implements the SSE adapter. GET opens a stream that immediately
// announces server capabilities and then stays alive with periodic
// comments; POST on the same path behaves exactly like /mcp.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.servePost(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeUsageHint(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	initMsg, _ := json.Marshal(map[string]any{
		"jsonrpc": jsonrpc.Version,
		"method":  "notifications/initialized",
		"params":  InitializePayload(),
	})
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", initMsg)
	flusher.Flush()

	ticker := time.NewTicker(config.SSEKeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleHealth reports liveness. It performs no upstream call, so it always
// answers immediately.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    s.router.metrics.HealthStatus(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.ServerVersion,
	}
	w.Header().Set("Content-Type", "application/json")
	if health["status"] != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}

// handleStats exposes the raw counters. Restricted to localhost to keep
// operational data off the public surface.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.router.metrics.Snapshot())
}

// callerID identifies the caller for rate limiting: the first
// X-Forwarded-For hop when present, else the remote IP.
func callerID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
