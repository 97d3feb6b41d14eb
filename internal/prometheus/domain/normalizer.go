package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/common/model"
)

const (
	msgUnexpectedFormat = "Unexpected response format"
	msgUnknownBackend   = "Unknown Prometheus error"
	msgUnknownCatalog   = "Unknown error"
)

// NormalizeQuery turns an instant query payload into a QueryResult.
//
// Backend-reported failures and unrecognized envelopes produce an error
// result with a nil error. A non-nil error means the payload claimed success
// but its series could not be converted.
func NormalizeQuery(payload any) (QueryResult, error) {
	env := parseEnvelope(payload)

	switch env.shape {
	case shapeStatus:
		if !env.succeeded() {
			msg := env.errMsg
			if msg == "" {
				msg = msgUnknownBackend
			}
			return ErrorResult(msg), nil
		}
	case shapeImplicit:
	default:
		return ErrorResult(msgUnexpectedFormat), nil
	}

	series, err := env.resultSeries()
	if err != nil {
		return QueryResult{}, err
	}
	samples, err := convertSeries(series)
	if err != nil {
		return QueryResult{}, err
	}
	return SuccessResult(samples), nil
}

// NormalizeCatalog turns a label-values payload into a MetricCatalog. Every
// shape other than a successful status envelope or a bare array is an error.
func NormalizeCatalog(payload any, capturedAt time.Time) (MetricCatalog, error) {
	env := parseEnvelope(payload)

	var raw []any
	switch env.shape {
	case shapeStatus:
		if !env.succeeded() {
			msg := env.errMsg
			if msg == "" {
				msg = msgUnknownCatalog
			}
			return MetricCatalog{}, &APIError{
				Endpoint: MetricNamesPath,
				Message:  fmt.Sprintf("failed to get metrics list: %s", msg),
			}
		}
		list, ok := env.object["data"].([]any)
		if !ok {
			return MetricCatalog{}, normalizationErrorf("metrics list data is %s, expected array", jsonKind(env.object["data"]))
		}
		raw = list
	case shapeList:
		raw = env.list
	default:
		return MetricCatalog{}, normalizationErrorf("unexpected response format: %s", env.kind)
	}

	names := make([]string, 0, len(raw))
	for i, item := range raw {
		name, ok := item.(string)
		if !ok {
			return MetricCatalog{}, normalizationErrorf("metric name %d is %s, expected string", i, jsonKind(item))
		}
		names = append(names, name)
	}
	return NewMetricCatalog(names, capturedAt), nil
}

// convertSeries converts result entries in backend order. Entries without a
// value are skipped.
func convertSeries(series []any) ([]Sample, error) {
	samples := make([]Sample, 0, len(series))
	for i, entry := range series {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, normalizationErrorf("series %d is %s, expected object", i, jsonKind(entry))
		}

		rawValue, ok := obj["value"]
		if !ok || rawValue == nil {
			continue
		}

		sample, err := convertSample(obj["metric"], rawValue)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func convertSample(rawMetric, rawValue any) (Sample, error) {
	name := DefaultMetricName
	labels := map[string]string{}

	if rawMetric != nil {
		metric, ok := rawMetric.(map[string]any)
		if !ok {
			return Sample{}, normalizationErrorf("metric is %s, expected object", jsonKind(rawMetric))
		}
		for key, raw := range metric {
			value, ok := raw.(string)
			if !ok {
				return Sample{}, normalizationErrorf("label %q is %s, expected string", key, jsonKind(raw))
			}
			if key == model.MetricNameLabel {
				name = value
				continue
			}
			labels[key] = value
		}
	}

	pair, ok := rawValue.([]any)
	if !ok || len(pair) != 2 {
		return Sample{}, normalizationErrorf("value must be a [timestamp, value] pair")
	}

	ts, err := NormalizeTimestamp(pair[0])
	if err != nil {
		return Sample{}, err
	}
	value, err := parseSampleValue(pair[1])
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Name:      name,
		Value:     value,
		Labels:    labels,
		Timestamp: ts,
	}, nil
}

// parseSampleValue accepts Prometheus' string-encoded floats, including
// "NaN" and "+Inf", and plain JSON numbers.
func parseSampleValue(raw any) (float64, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		return v, nil
	default:
		return 0, normalizationErrorf("sample value is %s, expected numeric string", jsonKind(raw))
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &NormalizationError{Reason: fmt.Sprintf("sample value %q is not a number", s), Err: err}
	}
	return f, nil
}
