package domain

import (
	"context"
	"net/url"
)

// Backend API paths consumed by the gateway.
const (
	QueryPath       = "/api/v1/query"
	MetricNamesPath = "/api/v1/label/__name__/values"
)

// Transport performs single GET requests against the metrics backend.
// Get returns the decoded JSON tree (map[string]any, []any or a scalar, with
// numbers as json.Number) or a *ConnectionError, *APIError or
// *NormalizationError. Any other error is unclassified.
type Transport interface {
	Get(ctx context.Context, endpoint string, params url.Values) (any, error)
	// Close releases the connection pool.
	Close() error
}

// TransportFactory acquires a Transport scoped to one request.
type TransportFactory interface {
	Open() (Transport, error)
}
