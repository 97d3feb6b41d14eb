package domain

import (
	"errors"
	"fmt"

	"polystat-gateway/internal/shared/validation"
)

// ConnectionError means no response was obtained from the backend: DNS,
// refused connection, timeout, TLS failure or an open circuit.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Prometheus connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// APIError means the backend answered but reported failure, either through a
// non-2xx status or, when StatusCode is zero, through its response envelope.
// For HTTP failures Message holds the start of the response body; it is meant
// for logs and is not part of Error().
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("Prometheus API error: %s", e.Message)
	}
	return fmt.Sprintf("Prometheus API error: %d", e.StatusCode)
}

// NormalizationError means the backend answered 2xx with a body outside every
// recognized envelope, or with a value that is not a number.
type NormalizationError struct {
	Reason string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected Prometheus response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unexpected Prometheus response: %s", e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

func normalizationErrorf(format string, args ...any) *NormalizationError {
	return &NormalizationError{Reason: fmt.Sprintf(format, args...)}
}

// Error classes used in logs and metrics labels.
const (
	ClassValidation    = "validation"
	ClassConnection    = "connection"
	ClassAPI           = "api"
	ClassNormalization = "normalization"
	ClassUnclassified  = "unclassified"
)

// Classify maps err onto the gateway's error taxonomy.
func Classify(err error) string {
	var (
		connErr *ConnectionError
		apiErr  *APIError
		normErr *NormalizationError
		valErr  *validation.ValidationError
	)
	switch {
	case errors.As(err, &valErr):
		return ClassValidation
	case errors.As(err, &connErr):
		return ClassConnection
	case errors.As(err, &apiErr):
		return ClassAPI
	case errors.As(err, &normErr):
		return ClassNormalization
	default:
		return ClassUnclassified
	}
}
