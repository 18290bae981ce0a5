// Package monitoring provides lightweight in-memory counters.
//
// DESIGN: Atomic counters for operational visibility:
//   - requests/successes:  totals across all transports
//   - rate_limited:        requests rejected by the limiter
//   - validation_failures: requests rejected before reaching upstream
//   - upstream_failures:   upstream calls that ended in error
//
// The counters feed /stats and the /health degradation heuristic.
// For production, export these to Prometheus or similar.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Health states reported by /health.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Degradation thresholds on the upstream failure ratio.
const (
	degradedRatio  = 0.5
	unhealthyRatio = 0.9
)

// Metrics collects operational counters.
type Metrics struct {
	startedAt time.Time

	requests           atomic.Int64
	successes          atomic.Int64
	rateLimited        atomic.Int64
	validationFailures atomic.Int64
	upstreamCalls      atomic.Int64
	upstreamFailures   atomic.Int64
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RecordRequest records one inbound JSON-RPC request.
func (m *Metrics) RecordRequest(success bool) {
	m.requests.Add(1)
	if success {
		m.successes.Add(1)
	}
}

// RecordRateLimited records a limiter rejection.
func (m *Metrics) RecordRateLimited() { m.rateLimited.Add(1) }

// RecordValidationFailure records a request rejected on input validation.
func (m *Metrics) RecordValidationFailure() { m.validationFailures.Add(1) }

// RecordUpstreamCall records one upstream search, successful or not.
func (m *Metrics) RecordUpstreamCall(failed bool) {
	m.upstreamCalls.Add(1)
	if failed {
		m.upstreamFailures.Add(1)
	}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	Requests           int64  `json:"requests"`
	Successes          int64  `json:"successes"`
	RateLimited        int64  `json:"rate_limited"`
	ValidationFailures int64  `json:"validation_failures"`
	UpstreamCalls      int64  `json:"upstream_calls"`
	UpstreamFailures   int64  `json:"upstream_failures"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Uptime:             time.Since(m.startedAt).Truncate(time.Second).String(),
		Requests:           m.requests.Load(),
		Successes:          m.successes.Load(),
		RateLimited:        m.rateLimited.Load(),
		ValidationFailures: m.validationFailures.Load(),
		UpstreamCalls:      m.upstreamCalls.Load(),
		UpstreamFailures:   m.upstreamFailures.Load(),
	}
}

// HealthStatus derives the health state from the upstream failure ratio.
// It never performs I/O, so /health answers immediately.
func (m *Metrics) HealthStatus() string {
	calls := m.upstreamCalls.Load()
	if calls == 0 {
		return StatusHealthy
	}
	ratio := float64(m.upstreamFailures.Load()) / float64(calls)
	switch {
	case ratio >= unhealthyRatio:
		return StatusUnhealthy
	case ratio >= degradedRatio:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
