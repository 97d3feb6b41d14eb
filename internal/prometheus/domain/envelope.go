package domain

// envelopeShape is the closed set of response layouts a Prometheus-compatible
// backend is known to produce.
type envelopeShape int

const (
	shapeUnknown envelopeShape = iota
	// {"status": "...", "data": ..., "error": "..."}
	shapeStatus
	// {"data": {"result": [...]}} or {"result": [...]} without a status
	shapeImplicit
	// [...]
	shapeList
)

func (s envelopeShape) String() string {
	switch s {
	case shapeStatus:
		return "status"
	case shapeImplicit:
		return "implicit"
	case shapeList:
		return "list"
	default:
		return "unknown"
	}
}

type envelope struct {
	shape  envelopeShape
	status string
	errMsg string
	object map[string]any
	list   []any
	kind   string
}

// parseEnvelope is the only place the payload's outer type is inspected.
func parseEnvelope(payload any) envelope {
	env := envelope{kind: jsonKind(payload)}

	switch v := payload.(type) {
	case map[string]any:
		if raw, ok := v["status"]; ok {
			env.shape = shapeStatus
			env.status, _ = raw.(string)
			env.errMsg, _ = v["error"].(string)
			env.object = v
			return env
		}
		_, hasData := v["data"]
		_, hasResult := v["result"]
		if hasData || hasResult {
			env.shape = shapeImplicit
			env.object = v
			return env
		}
	case []any:
		env.shape = shapeList
		env.list = v
		return env
	}

	env.shape = shapeUnknown
	return env
}

func (e envelope) succeeded() bool {
	return e.status == string(StatusSuccess)
}

// resultSeries locates the series array inside an object envelope.
func (e envelope) resultSeries() ([]any, error) {
	container := e.object
	if data, ok := e.object["data"]; ok {
		m, ok := data.(map[string]any)
		if !ok {
			return nil, normalizationErrorf("data is %s, expected object", jsonKind(data))
		}
		container = m
	}

	raw, ok := container["result"]
	if !ok {
		return nil, normalizationErrorf("missing result in %s response", e.shape)
	}
	series, ok := raw.([]any)
	if !ok {
		return nil, normalizationErrorf("result is %s, expected array", jsonKind(raw))
	}
	return series, nil
}

// jsonKind names the JSON type of a decoded value.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64, interface{ Float64() (float64, error) }:
		return "number"
	default:
		return "unknown"
	}
}
