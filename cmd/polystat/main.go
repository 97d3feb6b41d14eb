// @title           PolyStat Dashboard API
// @version         1.0.0
// @description     Gateway between the PolyStat dashboard and a Prometheus-compatible backend.

// @BasePath  /

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/urfave/cli/v2"

	_ "polystat-gateway/docs" // Swagger docs

	apiserver "polystat-gateway/internal/api"
	api "polystat-gateway/internal/api/application"
	configapp "polystat-gateway/internal/config/application"
	"polystat-gateway/internal/infrastructure/logger"
	"polystat-gateway/internal/infrastructure/telemetry"
	promapp "polystat-gateway/internal/prometheus/application"
	prominfra "polystat-gateway/internal/prometheus/infrastructure"
	"polystat-gateway/internal/web"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "polystat",
		Usage:   "PolyStat dashboard backend",
		Version: api.ServiceVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prometheus-url", Usage: "Prometheus base URL (PROMETHEUS_URL)"},
			&cli.IntFlag{Name: "prometheus-timeout", Usage: "Prometheus request timeout in seconds (PROMETHEUS_TIMEOUT)"},
			&cli.StringFlag{Name: "cors-origins", Usage: "comma-separated allowed origins (CORS_ORIGINS)"},
			&cli.StringFlag{Name: "static-dir", Usage: "frontend build directory (STATIC_FILES_DIR)"},
			&cli.StringFlag{Name: "port", Usage: "API port (POLYSTAT_API_PORT)"},
			&cli.StringFlag{Name: "log-level", Usage: "DEBUG, INFO, WARN or ERROR (POLYSTAT_LOG_LEVEL)"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json (POLYSTAT_LOG_FORMAT)"},
			&cli.StringFlag{Name: "log-output", Usage: "stdout, stderr or a file path (POLYSTAT_LOG_OUTPUT)"},
			&cli.StringFlag{Name: "env-file", Usage: "path to a .env file (default: ./.env)"},
			&cli.BoolFlag{Name: "dev", Usage: "development mode, forces API docs on (POLYSTAT_DEV_MODE)"},
			&cli.BoolFlag{Name: "breaker", Usage: "enable the Prometheus circuit breaker (POLYSTAT_BREAKER)"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	// .env must be applied before anything reads the environment
	configapp.LoadEnvFile(logger.DefaultLogger(), c.String("env-file"))

	cfg := configapp.LoadRuntimeConfig(configapp.Flags{
		PrometheusURL:     c.String("prometheus-url"),
		PrometheusTimeout: c.Int("prometheus-timeout"),
		CORSOrigins:       c.String("cors-origins"),
		StaticFilesDir:    c.String("static-dir"),
		Port:              c.String("port"),
		LogLevel:          c.String("log-level"),
		LogFormat:         c.String("log-format"),
		LogOutput:         c.String("log-output"),
		DevMode:           c.Bool("dev"),
		Breaker:           c.Bool("breaker"),
	})

	appLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogOutput)
	logger.SetDefaultLogger(appLogger)

	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", "err", err)
		return err
	}

	appLogger.Info("Starting PolyStat gateway",
		"version", api.ServiceVersion,
		"prometheus_url", cfg.PrometheusURL,
		"timeout", cfg.PrometheusTimeout,
		"static_dir", cfg.StaticFilesDir,
		"breaker", cfg.BreakerEnabled,
	)

	metrics := telemetry.NewMetrics()

	transportCfg := prominfra.DefaultTransportConfig(cfg.PrometheusURL, cfg.PrometheusTimeout)
	transportCfg.BreakerEnabled = cfg.BreakerEnabled
	factory := prominfra.NewTransportFactory(transportCfg, appLogger, metrics)
	gateway := promapp.NewGateway(factory, appLogger, metrics)

	spa := web.NewSPA(cfg.StaticFilesDir, appLogger)
	if !spa.Available() {
		appLogger.Warn("Static files directory not found, serving API only", "path", cfg.StaticFilesDir)
	}

	server, err := apiserver.NewServer(appLogger, cfg, gateway, spa, metrics)
	if err != nil {
		appLogger.Error("Failed to create API server", "err", err)
		return fmt.Errorf("failed to create API server: %w", err)
	}

	var g run.Group
	{
		g.Add(func() error {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("API server error: %w", err)
			}
			return nil
		}, func(error) {
			server.Shutdown(context.Background())
		})
	}
	{
		sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			<-sigCtx.Done()
			appLogger.Info("Shutdown signal received, starting graceful shutdown")
			return nil
		}, func(error) {
			cancel()
		})
	}

	err = g.Run()
	appLogger.Info("PolyStat gateway stopped")
	return err
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.DefaultLogger().Error("Application error", "err", err)
		os.Exit(1)
	}
}
