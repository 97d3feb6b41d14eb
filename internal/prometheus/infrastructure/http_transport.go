package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"polystat-gateway/internal/infrastructure/telemetry"
	"polystat-gateway/internal/prometheus/domain"
	sharedlogger "polystat-gateway/internal/shared/logger"
)

const (
	tracerName   = "polystat-gateway/prometheus"
	maxBodyInLog = 512
)

// TransportConfig configures the backend connection pool.
type TransportConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxConns        int
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	BreakerEnabled  bool
}

// DefaultTransportConfig returns pool limits of 10 connections with 5 kept alive.
func DefaultTransportConfig(baseURL string, timeout time.Duration) TransportConfig {
	return TransportConfig{
		BaseURL:         baseURL,
		Timeout:         timeout,
		MaxConns:        10,
		MaxIdleConns:    5,
		IdleConnTimeout: 90 * time.Second,
	}
}

// TransportFactory opens one HTTPTransport per request scope. The optional
// circuit breaker is shared by every transport it opens.
type TransportFactory struct {
	cfg     TransportConfig
	logger  sharedlogger.Logger
	metrics *telemetry.Metrics
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// NewTransportFactory creates a factory for the configured backend
func NewTransportFactory(cfg TransportConfig, logger sharedlogger.Logger, metrics *telemetry.Metrics) *TransportFactory {
	f := &TransportFactory{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
	}
	if cfg.BreakerEnabled {
		f.breaker = newBreaker(logger)
	}
	return f
}

func newBreaker(logger sharedlogger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "prometheus",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *domain.APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return domain.Classify(err) != domain.ClassConnection
		},
	})
}

// Open builds a fresh connection pool for one request scope.
func (f *TransportFactory) Open() (domain.Transport, error) {
	base := strings.TrimRight(f.cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid Prometheus URL %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid Prometheus URL %q: must be an absolute http(s) URL", base)
	}
	if f.cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid Prometheus timeout %s", f.cfg.Timeout)
	}

	pool := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        f.cfg.MaxIdleConns,
		MaxIdleConnsPerHost: f.cfg.MaxIdleConns,
		MaxConnsPerHost:     f.cfg.MaxConns,
		IdleConnTimeout:     f.cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	client, err := api.NewClient(api.Config{
		Address: base,
		Client: &http.Client{
			Transport: pool,
			Timeout:   f.cfg.Timeout,
		},
	})
	if err != nil {
		pool.CloseIdleConnections()
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &HTTPTransport{
		client:  client,
		pool:    pool,
		timeout: f.cfg.Timeout,
		logger:  f.logger,
		metrics: f.metrics,
		breaker: f.breaker,
		tracer:  f.tracer,
	}, nil
}

// HTTPTransport implements domain.Transport on top of client_golang's API
// client. It performs exactly one attempt per call.
type HTTPTransport struct {
	client  api.Client
	pool    *http.Transport
	timeout time.Duration
	logger  sharedlogger.Logger
	metrics *telemetry.Metrics
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// Get issues GET {base}{endpoint}?{params} and decodes the JSON body.
func (t *HTTPTransport) Get(ctx context.Context, endpoint string, params url.Values) (any, error) {
	ctx, span := t.tracer.Start(ctx, "prometheus.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("prometheus.endpoint", endpoint)),
	)
	defer span.End()

	start := time.Now()
	payload, status, err := t.execute(ctx, endpoint, params)
	elapsed := time.Since(start)

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	if err != nil {
		class := domain.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, class)
		t.metrics.ObserveBackend(endpoint, class, elapsed)

		args := []any{"endpoint", endpoint, "class", class, "duration", elapsed, "err", err}
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			args = append(args, "status", apiErr.StatusCode, "body", apiErr.Message)
		}
		t.logger.Error("Prometheus request failed", args...)
		return nil, err
	}

	t.metrics.ObserveBackend(endpoint, "success", elapsed)
	t.logger.Info("Prometheus request completed", "endpoint", endpoint, "status", status, "duration", elapsed)
	return payload, nil
}

func (t *HTTPTransport) execute(ctx context.Context, endpoint string, params url.Values) (any, int, error) {
	if t.breaker == nil {
		return t.do(ctx, endpoint, params)
	}

	var status int
	payload, err := t.breaker.Execute(func() (interface{}, error) {
		p, code, err := t.do(ctx, endpoint, params)
		status = code
		return p, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, 0, &domain.ConnectionError{Endpoint: endpoint, Err: err}
	}
	return payload, status, err
}

func (t *HTTPTransport) do(ctx context.Context, endpoint string, params url.Values) (any, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	u := t.client.URL(endpoint, nil)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, body, err := t.client.Do(reqCtx, req)
	if err != nil {
		return nil, 0, &domain.ConnectionError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &domain.APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    snippet(body),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, resp.StatusCode, &domain.NormalizationError{Reason: "invalid JSON body", Err: err}
	}
	return payload, resp.StatusCode, nil
}

// Close releases idle pooled connections.
func (t *HTTPTransport) Close() error {
	t.pool.CloseIdleConnections()
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyInLog {
		return s[:maxBodyInLog] + "..."
	}
	return s
}
