package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordCommand("create", nil)
	m.RecordCommand("create", errors.New("boom"))
	m.RecordCommand("create", nil)
	m.RecordHistoryFailure()
	m.RecordDelivery("mail", errors.New("smtp down"))
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("mail", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/tickets", "GET", "200")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCommand("create", nil)
		m.RecordHistoryFailure()
		m.RecordDelivery("store", nil)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.RecordRequest("/x", "GET", 404, time.Millisecond)
	})
}
