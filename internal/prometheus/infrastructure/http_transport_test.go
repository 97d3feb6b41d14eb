package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polystat-gateway/internal/infrastructure/logger"
	"polystat-gateway/internal/infrastructure/telemetry"
	"polystat-gateway/internal/prometheus/domain"
)

func newFactory(t *testing.T, baseURL string, timeout time.Duration) (*TransportFactory, *telemetry.Metrics) {
	t.Helper()
	metrics := telemetry.NewMetrics()
	return NewTransportFactory(DefaultTransportConfig(baseURL, timeout), logger.DefaultLogger(), metrics), metrics
}

func openTransport(t *testing.T, f *TransportFactory) domain.Transport {
	t.Helper()
	tr, err := f.Open()
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestHTTPTransport_Get_Success(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"result":[]}}`))
	}))
	defer srv.Close()

	f, metrics := newFactory(t, srv.URL+"/", 5*time.Second)
	tr := openTransport(t, f)

	payload, err := tr.Get(context.Background(), domain.QueryPath, url.Values{"query": {"up"}})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/query", gotPath)
	assert.Equal(t, "up", gotQuery)

	obj, ok := payload.(map[string]any)
	require.True(t, ok, "expected object payload, got %T", payload)
	assert.Equal(t, "success", obj["status"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackendRequests.WithLabelValues(domain.QueryPath, "success")))
}

func TestHTTPTransport_Get_BasePathPreserved(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f, _ := newFactory(t, srv.URL+"/prometheus/", 5*time.Second)
	tr := openTransport(t, f)

	_, err := tr.Get(context.Background(), domain.MetricNamesPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "/prometheus/api/v1/label/__name__/values", gotPath)
}

func TestHTTPTransport_Get_NumbersDecodedAsJSONNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1700000000]`))
	}))
	defer srv.Close()

	f, _ := newFactory(t, srv.URL, 5*time.Second)
	tr := openTransport(t, f)

	payload, err := tr.Get(context.Background(), domain.QueryPath, nil)
	require.NoError(t, err)
	list := payload.([]any)
	assert.Equal(t, "1700000000", list[0].(interface{ String() string }).String())
}

func TestHTTPTransport_Get_Failures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		timeout    time.Duration
		wantClass  string
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("overloaded"))
			},
			timeout:    5 * time.Second,
			wantClass:  domain.ClassAPI,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"status":"error","error":"parse error"}`))
			},
			timeout:    5 * time.Second,
			wantClass:  domain.ClassAPI,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json</html>"))
			},
			timeout:   5 * time.Second,
			wantClass: domain.ClassNormalization,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			timeout:   50 * time.Millisecond,
			wantClass: domain.ClassConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f, metrics := newFactory(t, srv.URL, tt.timeout)
			tr := openTransport(t, f)

			_, err := tr.Get(context.Background(), domain.QueryPath, url.Values{"query": {"up"}})
			require.Error(t, err)
			assert.Equal(t, tt.wantClass, domain.Classify(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackendRequests.WithLabelValues(domain.QueryPath, tt.wantClass)))

			if tt.wantStatus != 0 {
				var apiErr *domain.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			}
		})
	}
}

func TestHTTPTransport_Get_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f, _ := newFactory(t, addr, time.Second)
	tr := openTransport(t, f)

	_, err := tr.Get(context.Background(), domain.MetricNamesPath, nil)
	require.Error(t, err)

	var connErr *domain.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, domain.MetricNamesPath, connErr.Endpoint)
	assert.Contains(t, err.Error(), "Prometheus connection error")
}

func TestHTTPTransport_NoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, _ := newFactory(t, srv.URL, time.Second)
	tr := openTransport(t, f)

	_, err := tr.Get(context.Background(), domain.QueryPath, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportFactory_Open_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		timeout time.Duration
	}{
		{name: "empty url", baseURL: "", timeout: time.Second},
		{name: "relative url", baseURL: "localhost:9090", timeout: time.Second},
		{name: "unsupported scheme", baseURL: "ftp://prometheus:9090", timeout: time.Second},
		{name: "zero timeout", baseURL: "http://prometheus:9090", timeout: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newFactory(t, tt.baseURL, tt.timeout)
			tr, err := f.Open()
			assert.Error(t, err)
			assert.Nil(t, tr)
		})
	}
}

func TestHTTPTransport_Breaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultTransportConfig(srv.URL, time.Second)
	cfg.BreakerEnabled = true
	f := NewTransportFactory(cfg, logger.DefaultLogger(), telemetry.NewMetrics())

	for i := 0; i < 5; i++ {
		tr, err := f.Open()
		require.NoError(t, err)
		_, err = tr.Get(context.Background(), domain.QueryPath, nil)
		tr.Close()
		assert.Equal(t, domain.ClassAPI, domain.Classify(err))
	}

	tr := openTransport(t, f)
	_, err := tr.Get(context.Background(), domain.QueryPath, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ClassConnection, domain.Classify(err))
	assert.Equal(t, int32(5), calls.Load(), "open breaker must not reach the backend")
}

func TestHTTPTransport_BreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := DefaultTransportConfig(srv.URL, time.Second)
	cfg.BreakerEnabled = true
	f := NewTransportFactory(cfg, logger.DefaultLogger(), nil)
	tr := openTransport(t, f)

	for i := 0; i < 7; i++ {
		_, err := tr.Get(context.Background(), domain.QueryPath, nil)
		assert.Equal(t, domain.ClassAPI, domain.Classify(err))
	}
	assert.Equal(t, int32(7), calls.Load())
}
