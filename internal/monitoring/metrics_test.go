package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest(true)
	m.RecordRequest(false)
	m.RecordRateLimited()
	m.RecordValidationFailure()
	m.RecordUpstreamCall(false)
	m.RecordUpstreamCall(true)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests)
	assert.Equal(t, int64(1), snap.Successes)
	assert.Equal(t, int64(1), snap.RateLimited)
	assert.Equal(t, int64(1), snap.ValidationFailures)
	assert.Equal(t, int64(2), snap.UpstreamCalls)
	assert.Equal(t, int64(1), snap.UpstreamFailures)
}

func TestHealthStatusThresholds(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, StatusHealthy, m.HealthStatus())

	// 10 calls, 4 failures: below the degraded threshold.
	for i := 0; i < 10; i++ {
		m.RecordUpstreamCall(i < 4)
	}
	assert.Equal(t, StatusHealthy, m.HealthStatus())

	// Push the failure ratio past 0.5.
	for i := 0; i < 10; i++ {
		m.RecordUpstreamCall(true)
	}
	assert.Equal(t, StatusDegraded, m.HealthStatus())

	// And past 0.9.
	for i := 0; i < 200; i++ {
		m.RecordUpstreamCall(true)
	}
	assert.Equal(t, StatusUnhealthy, m.HealthStatus())
}
