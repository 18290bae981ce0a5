// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: Every tunable that appears in more than one place is defined here
// so the whole parameter surface is auditable in a single file.
package config

import "time"

// ServerName and ServerVersion are reported by initialize and /health.
const (
	ServerName    = "legco-search-mcp"
	ServerVersion = "1.0.0"
)

// ProtocolVersion is the MCP protocol revision this server implements.
const ProtocolVersion = "2024-11-05"

// =============================================================================
// SERVER DEFAULTS
// =============================================================================

// DefaultPort is the HTTP listen port.
const DefaultPort = 8787

// DefaultReadTimeout bounds reading one inbound request.
const DefaultReadTimeout = 30 * time.Second

// SSEKeepaliveInterval is how often the SSE adapter emits a comment to keep
// intermediaries from closing an idle stream.
const SSEKeepaliveInterval = 15 * time.Second

// MaxRequestBodySize caps one inbound JSON-RPC body (HTTP body or WS frame).
const MaxRequestBodySize = 1 << 20

// =============================================================================
// RATE LIMITING
// =============================================================================

// RateLimitWindow and RateLimitCapacity define the sliding window budget:
// at most RateLimitCapacity admitted requests per caller per window.
const (
	RateLimitWindow   = 60 * time.Second
	RateLimitCapacity = 60
)

// RateLimitSweepThreshold is the tracked-entry count above which stale
// window entries are garbage-collected opportunistically.
const RateLimitSweepThreshold = 10000

// =============================================================================
// UPSTREAM FETCH
// =============================================================================

// UpstreamMaxAttempts is the total number of attempts per upstream call,
// including the first.
const UpstreamMaxAttempts = 3

// UpstreamAttemptTimeout bounds each individual attempt.
const UpstreamAttemptTimeout = 30 * time.Second

// UpstreamBackoffBase and UpstreamBackoffCap shape the exponential delay
// between attempts: min(base*2^(k-1), cap) after attempt k.
const (
	UpstreamBackoffBase = 1 * time.Second
	UpstreamBackoffCap  = 10 * time.Second
)

// UpstreamUserAgent is sent on every upstream request.
const UpstreamUserAgent = "LegCo-Search-MCP/1.0"

// =============================================================================
// TOOL PARAMETERS
// =============================================================================

// MaxTextLength caps sanitized free-text parameters.
const MaxTextLength = 500

// DefaultTop, MaxTop, and DefaultSkip are the shared pagination bounds.
const (
	DefaultTop  = 100
	MaxTop      = 1000
	DefaultSkip = 0
)
