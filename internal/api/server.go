package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	httpSwagger "github.com/swaggo/http-swagger"

	"polystat-gateway/internal/api/handlers"
	apimiddleware "polystat-gateway/internal/api/middleware"
	configapp "polystat-gateway/internal/config/application"
	"polystat-gateway/internal/infrastructure/telemetry"
	sharedlogger "polystat-gateway/internal/shared/logger"
	"polystat-gateway/internal/web"
)

const (
	baseWriteTimeout = 15 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	logger     sharedlogger.Logger
}

// NewServer creates a new API server
func NewServer(
	logger sharedlogger.Logger,
	runtimeCfg *configapp.RuntimeConfig,
	gateway handlers.QueryGateway,
	spa *web.SPA,
	metrics *telemetry.Metrics,
) (*Server, error) {
	if err := runtimeCfg.Validate(); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         ":" + runtimeCfg.APIPort,
		Handler:      NewRouter(logger, runtimeCfg, gateway, spa, metrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: baseWriteTimeout + runtimeCfg.PrometheusTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logger.Debug("Server configured",
		"port", runtimeCfg.APIPort,
		"dev_mode", runtimeCfg.DevMode,
		"docs", runtimeCfg.DocsEnabled,
		"middleware", []string{"RequestID", "RealIP", "Recoverer", "httplog", "cors", "instrument"},
	)

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

// NewRouter builds the HTTP routing tree
func NewRouter(
	logger sharedlogger.Logger,
	runtimeCfg *configapp.RuntimeConfig,
	gateway handlers.QueryGateway,
	spa *web.SPA,
	metrics *telemetry.Metrics,
) http.Handler {
	prometheusHandler := handlers.NewPrometheusHandler(gateway, logger)
	rootHandler := handlers.NewRootHandler(spa)

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// httplog needs a concrete slog.Logger
	var slogLogger *slog.Logger
	if infraLogger, ok := logger.(interface{ SLog() *slog.Logger }); ok {
		slogLogger = infraLogger.SLog()
	} else {
		slogLogger = slog.Default()
	}

	r.Use(httplog.RequestLogger(slogLogger, &httplog.Options{
		Level:             slog.LevelDebug,
		Schema:            httplog.SchemaECS.Concise(true),
		LogRequestHeaders: []string{},
	}))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   runtimeCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(apimiddleware.Instrument(metrics))

	r.Get("/health", handlers.Health)

	if runtimeCfg.DocsEnabled {
		r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
		})
		r.Handle("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/docs/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/prometheus/query", prometheusHandler.ExecuteQuery)
		r.Get("/prometheus/metrics", prometheusHandler.ListMetrics)
		r.Handle("/internal/metrics", metrics.Handler())
	})

	r.Get("/", rootHandler.ServeHTTP)
	r.Handle("/assets/*", spa.Assets())
	r.Handle("/*", spa)

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error("Server error", "err", err)
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Server shutdown error", "err", err)
	} else {
		s.logger.Info("Server shutdown complete")
	}
	return err
}
