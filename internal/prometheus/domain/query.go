package domain

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// Status tags a QueryResult.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultMetricName is used when a series carries no __name__ label.
const DefaultMetricName = "custom_metric"

// Query is an instant query submitted by a dashboard client.
// PromQL is opaque to the gateway and is forwarded verbatim.
type Query struct {
	Metric string `json:"metric,omitempty"`
	PromQL string `json:"promql"`
}

// Valid validates the query and returns any problems found
func (q *Query) Valid(ctx context.Context) map[string]string {
	problems := make(map[string]string, 1)
	if len(q.PromQL) == 0 {
		problems["promql"] = "promql is required"
	}
	return problems
}

// Sample is one normalized data point of an instant query result.
type Sample struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
	Timestamp time.Time         `json:"timestamp"`
}

// MarshalJSON writes non-finite values (NaN, ±Inf) as null since JSON has no
// literal for them.
func (s Sample) MarshalJSON() ([]byte, error) {
	var value *float64
	if !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) {
		v := s.Value
		value = &v
	}
	labels := s.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	return json.Marshal(struct {
		Name      string            `json:"name"`
		Value     *float64          `json:"value"`
		Labels    map[string]string `json:"labels"`
		Timestamp time.Time         `json:"timestamp"`
	}{s.Name, value, labels, s.Timestamp})
}

// QueryResult is the client-facing outcome of ExecuteQuery. Exactly one of
// Data and Error is meaningful, selected by Status; build it with
// SuccessResult or ErrorResult.
type QueryResult struct {
	Status Status   `json:"status"`
	Data   []Sample `json:"data,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// SuccessResult wraps samples in a success result. A nil slice becomes empty
// so the data field is always present.
func SuccessResult(samples []Sample) QueryResult {
	if samples == nil {
		samples = []Sample{}
	}
	return QueryResult{Status: StatusSuccess, Data: samples}
}

// ErrorResult builds an error result carrying msg.
func ErrorResult(msg string) QueryResult {
	return QueryResult{Status: StatusError, Error: msg}
}

// MarshalJSON emits {status, data} for success and {status, error} otherwise.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	if r.Status == StatusSuccess {
		data := r.Data
		if data == nil {
			data = []Sample{}
		}
		return json.Marshal(struct {
			Status Status   `json:"status"`
			Data   []Sample `json:"data"`
		}{r.Status, data})
	}
	return json.Marshal(struct {
		Status Status `json:"status"`
		Error  string `json:"error"`
	}{StatusError, r.Error})
}

// MetricCatalog lists the distinct metric names known to the backend.
type MetricCatalog struct {
	Metrics    []string  `json:"metrics"`
	TotalCount int       `json:"total_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewMetricCatalog drops duplicate names (keeping first occurrence order) and
// derives TotalCount from what remains. capturedAt is stored in UTC.
func NewMetricCatalog(names []string, capturedAt time.Time) MetricCatalog {
	seen := make(map[string]struct{}, len(names))
	metrics := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		metrics = append(metrics, name)
	}

	return MetricCatalog{
		Metrics:    metrics,
		TotalCount: len(metrics),
		Timestamp:  capturedAt.UTC(),
	}
}
