package application

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"polystat-gateway/internal/infrastructure/telemetry"
	"polystat-gateway/internal/prometheus/domain"
	sharedlogger "polystat-gateway/internal/shared/logger"
	"polystat-gateway/internal/shared/validation"
)

const (
	opExecuteQuery = "execute_query"
	opListMetrics  = "list_metrics"
)

// Gateway runs instant queries and catalog lookups against the metrics
// backend. Each call acquires its own transport and releases it before
// returning, so a Gateway is safe for concurrent use.
type Gateway struct {
	factory domain.TransportFactory
	logger  sharedlogger.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewGateway creates a gateway over the given transport factory
func NewGateway(factory domain.TransportFactory, logger sharedlogger.Logger, metrics *telemetry.Metrics) *Gateway {
	return &Gateway{
		factory: factory,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// ExecuteQuery runs q as an instant query evaluated at the current time.
//
// Every failure past transport acquisition is reported in the returned
// QueryResult. The error is non-nil only when no transport could be opened.
func (g *Gateway) ExecuteQuery(ctx context.Context, q domain.Query) (result domain.QueryResult, err error) {
	if verr := validation.Validate(ctx, &q, "query"); verr != nil {
		g.metrics.ObserveOperation(opExecuteQuery, domain.ClassValidation)
		return domain.ErrorResult(verr.Error()), nil
	}

	t, err := g.factory.Open()
	if err != nil {
		g.logger.Error("Failed to open Prometheus transport", "err", err)
		g.metrics.ObserveOperation(opExecuteQuery, "unavailable")
		return domain.QueryResult{}, fmt.Errorf("failed to open transport: %w", err)
	}
	defer t.Close()

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Unexpected failure executing query", "promql", q.PromQL, "panic", r)
			g.metrics.ObserveOperation(opExecuteQuery, domain.ClassUnclassified)
			result, err = domain.ErrorResult(fmt.Sprint(r)), nil
		}
	}()

	params := url.Values{}
	params.Set("query", q.PromQL)
	params.Set("time", g.now().UTC().Format(time.RFC3339))

	payload, err := t.Get(ctx, domain.QueryPath, params)
	if err != nil {
		g.logger.Error("Error executing Prometheus query", "promql", q.PromQL, "class", domain.Classify(err), "err", err)
		g.metrics.ObserveOperation(opExecuteQuery, domain.Classify(err))
		return domain.ErrorResult(err.Error()), nil
	}

	result, err = domain.NormalizeQuery(payload)
	if err != nil {
		g.logger.Error("Error normalizing Prometheus response", "promql", q.PromQL, "err", err)
		g.metrics.ObserveOperation(opExecuteQuery, domain.Classify(err))
		return domain.ErrorResult(err.Error()), nil
	}

	if result.Status == domain.StatusSuccess {
		g.metrics.ObserveOperation(opExecuteQuery, "success")
	} else {
		g.logger.Warn("Prometheus reported query failure", "promql", q.PromQL, "error", result.Error)
		g.metrics.ObserveOperation(opExecuteQuery, "backend_error")
	}
	return result, nil
}

// ListMetrics returns every metric name known to the backend. All failures
// are returned to the caller.
func (g *Gateway) ListMetrics(ctx context.Context) (domain.MetricCatalog, error) {
	catalog, err := g.listMetrics(ctx)
	if err != nil {
		g.logger.Error("Error getting metrics list", "class", domain.Classify(err), "err", err)
		g.metrics.ObserveOperation(opListMetrics, domain.Classify(err))
		return domain.MetricCatalog{}, err
	}
	g.metrics.ObserveOperation(opListMetrics, "success")
	return catalog, nil
}

func (g *Gateway) listMetrics(ctx context.Context) (catalog domain.MetricCatalog, err error) {
	t, err := g.factory.Open()
	if err != nil {
		return domain.MetricCatalog{}, fmt.Errorf("failed to open transport: %w", err)
	}
	defer t.Close()

	defer func() {
		if r := recover(); r != nil {
			catalog, err = domain.MetricCatalog{}, fmt.Errorf("unexpected failure listing metrics: %v", r)
		}
	}()

	payload, err := t.Get(ctx, domain.MetricNamesPath, nil)
	if err != nil {
		return domain.MetricCatalog{}, err
	}
	return domain.NormalizeCatalog(payload, g.now())
}
