package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"polystat-gateway/internal/prometheus/domain"
	sharedlogger "polystat-gateway/internal/shared/logger"
	"polystat-gateway/internal/shared/validation"
)

const maxQueryBodyBytes = 1 << 20

// QueryGateway is the part of the Prometheus gateway the handlers need.
type QueryGateway interface {
	ExecuteQuery(ctx context.Context, q domain.Query) (domain.QueryResult, error)
	ListMetrics(ctx context.Context) (domain.MetricCatalog, error)
}

// PrometheusHandler handles dashboard queries and catalog lookups
type PrometheusHandler struct {
	gateway QueryGateway
	logger  sharedlogger.Logger
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(gateway QueryGateway, logger sharedlogger.Logger) *PrometheusHandler {
	return &PrometheusHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// ExecuteQuery handles POST /api/v1/prometheus/query
// @Summary      Execute an instant query
// @Description  Runs a PromQL instant query. Backend failures are reported in the body with status "error".
// @Tags         prometheus
// @Accept       json
// @Produce      json
// @Param        query  body      application.QueryRequest  true  "Query"
// @Success      200    {object}  domain.QueryResult
// @Failure      400    {object}  application.ErrorResponse
// @Failure      503    {object}  application.ErrorResponse
// @Router       /api/v1/prometheus/query [post]
func (h *PrometheusHandler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r.Context(), http.MaxBytesReader(w, r.Body, maxQueryBodyBytes))
	if err != nil {
		h.logger.Debug("Rejected query request", "err", err)
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.gateway.ExecuteQuery(r.Context(), q)
	if err != nil {
		h.logger.Error("Error executing Prometheus query", "err", err)
		respondJSONError(w, http.StatusServiceUnavailable, "Failed to execute Prometheus query")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListMetrics handles GET /api/v1/prometheus/metrics
// @Summary      List metric names
// @Description  Returns every metric name known to the Prometheus backend
// @Tags         prometheus
// @Produce      json
// @Success      200  {object}  domain.MetricCatalog
// @Failure      503  {object}  application.ErrorResponse
// @Router       /api/v1/prometheus/metrics [get]
func (h *PrometheusHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.gateway.ListMetrics(r.Context())
	if err != nil {
		// Details are logged by the gateway and never sent to the client.
		respondJSONError(w, http.StatusServiceUnavailable, "Prometheus service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, catalog)
}

func decodeQuery(ctx context.Context, body io.Reader) (domain.Query, error) {
	var q domain.Query

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		if errors.Is(err, io.EOF) {
			return q, errors.New("request body is required")
		}
		return q, fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return q, errors.New("request body must contain a single JSON object")
	}

	if err := validation.Validate(ctx, &q, "query"); err != nil {
		return q, err
	}
	return q, nil
}
