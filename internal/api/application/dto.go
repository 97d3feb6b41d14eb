package application

const (
	ServiceName    = "polystat-dashboard-backend"
	ServiceVersion = "1.0.0"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the liveness endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// RootResponse describes the API when no frontend is deployed
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

// QueryRequest is the body of POST /api/v1/prometheus/query
type QueryRequest struct {
	Metric string `json:"metric,omitempty" example:"cpu_usage"`
	PromQL string `json:"promql" example:"rate(node_cpu_seconds_total[5m])"`
}
