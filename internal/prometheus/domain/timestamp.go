package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/prometheus/common/model"
)

// Epoch seconds representable as an RFC 3339 timestamp (years 0 through 9999).
var (
	minEpochSeconds = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpochSeconds = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// NormalizeTimestamp converts a backend sample timestamp into a time.Time.
//
// Numbers are Unix epoch seconds, optionally with a fractional part as
// Prometheus emits them (1700000000.123), and are returned in UTC. Structured
// timestamps (time.Time or an RFC 3339 string) pass through unchanged.
// Instants outside years 0-9999 are rejected since they cannot be written back
// as RFC 3339.
func NormalizeTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return checkYear(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, &NormalizationError{Reason: "invalid sample timestamp", Err: err}
		}
		if err := checkEpoch(f); err != nil {
			return time.Time{}, err
		}
		// Exact decimal parsing when the literal allows it.
		var ts model.Time
		if err := ts.UnmarshalJSON([]byte(v.String())); err == nil {
			return ts.Time().UTC(), nil
		}
		return epochFloat(f), nil
	case float64:
		if err := checkEpoch(v); err != nil {
			return time.Time{}, err
		}
		return epochFloat(v), nil
	case int64:
		if err := checkEpoch(float64(v)); err != nil {
			return time.Time{}, err
		}
		return time.Unix(v, 0).UTC(), nil
	case int:
		if err := checkEpoch(float64(v)); err != nil {
			return time.Time{}, err
		}
		return time.Unix(int64(v), 0).UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, &NormalizationError{Reason: "invalid sample timestamp", Err: err}
		}
		return t, nil
	default:
		return time.Time{}, normalizationErrorf("invalid sample timestamp of kind %s", jsonKind(raw))
	}
}

func checkEpoch(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return normalizationErrorf("sample timestamp %v is not finite", f)
	}
	// Compared at millisecond resolution, after the rounding epochFloat applies.
	ms := math.Round(f * 1000)
	if ms < float64(minEpochSeconds*1000) || ms > float64(maxEpochSeconds*1000+999) {
		return normalizationErrorf("sample timestamp %v is out of range", f)
	}
	return nil
}

func checkYear(t time.Time) (time.Time, error) {
	if y := t.Year(); y < 0 || y > 9999 {
		return time.Time{}, normalizationErrorf("sample timestamp year %d is out of range", y)
	}
	return t, nil
}

// epochFloat keeps millisecond precision, the resolution of Prometheus timestamps.
func epochFloat(f float64) time.Time {
	return model.Time(math.Round(f * 1000)).Time().UTC()
}
