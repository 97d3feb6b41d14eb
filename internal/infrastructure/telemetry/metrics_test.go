package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObserveBackend("/api/v1/query", "success", 10*time.Millisecond)
	m.ObserveBackend("/api/v1/query", "connection", time.Second)
	m.ObserveOperation("execute_query", "success")
	m.ObserveHTTP("GET", "/health", "200", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("/api/v1/query", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("/api/v1/query", "connection")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayOperations.WithLabelValues("execute_query", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("/api/v1/query", "success", time.Millisecond)
		m.ObserveOperation("list_metrics", "error")
		m.ObserveHTTP("GET", "/", "200", time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveOperation("list_metrics", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `polystat_gateway_operations_total{operation="list_metrics",result="success"} 1`)
}
