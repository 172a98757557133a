package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"gatekeeper/internal/api"
	"gatekeeper/internal/config"
	"gatekeeper/internal/guard"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/logger"
	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"
	"gatekeeper/internal/provider"
	"gatekeeper/internal/ratelimit"
	"gatekeeper/internal/signals"
	"gatekeeper/internal/version"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	exampleConfig = flag.String("example-config", "", "Write an example configuration file to this path and exit")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
	generateKey   = flag.Bool("generate-admin-key", false, "Print a new random admin key and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	if *generateKey {
		key, err := models.GenerateAPIKey()
		if err != nil {
			slog.Error("Failed to generate admin key", "error", err)
			os.Exit(1)
		}
		fmt.Println(key)
		return
	}

	if *exampleConfig != "" {
		if err := config.SaveExample(*exampleConfig); err != nil {
			slog.Error("Failed to write example configuration", "path", *exampleConfig, "error", err)
			os.Exit(1)
		}
		slog.Info("Example configuration written", "path", *exampleConfig)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize the signal store
	store, err := signals.NewFactory().Create(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize signal store", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Wrap the store with instrumentation if metrics are enabled
	activeStore := store
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStore(store, cfg.Storage.Type)
		if err != nil {
			slog.Error("Failed to create instrumented signal store", "error", err)
			os.Exit(1)
		}
		activeStore = instrumented
	}

	gatekeeper, err := guard.New(cfg.Guard, activeStore, guard.WithLogger(log))
	if err != nil {
		slog.Error("Failed to initialize guard", "error", err)
		os.Exit(1)
	}

	handlers := api.NewHandlers(gatekeeper, identity.NewResolver(cfg.Guard.HashSalt),
		api.WithStorage(activeStore),
		api.WithSynthesizer(provider.NewGoogleTTS(cfg.Provider.TTSEndpoint, cfg.Provider.Timeout, ver.UserAgent())),
		api.WithGenerator(provider.NewGemini(cfg.Provider.GenerationModel, cfg.Provider.Timeout, ver.UserAgent())),
		api.WithGenerationActions(cfg.Guard.SensitiveActions),
		api.WithAdminKeys(models.NewAdminKeySet(cfg.Security.AdminKeys)),
		api.WithVersion(ver.Version),
		api.WithLogger(log),
	)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	if cfg.Security.RateLimit.Enabled {
		limiter, err := ratelimit.NewFromConfig(cfg.Security.RateLimit)
		if err != nil {
			slog.Error("Failed to initialize flood limiter", "error", err)
			os.Exit(1)
		}
		defer limiter.Close()
		routeOpts = append(routeOpts, api.WithRateLimiter(ratelimit.Middleware(limiter, ratelimit.ClientIPKey)))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Starting server",
			"addr", server.Addr,
			"storage", cfg.Storage.Type,
			"failure_policy", cfg.Guard.FailurePolicy,
			"usage_window", cfg.Guard.UsageWindow)

		var err error
		if cfg.Server.TLSEnabled {
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// In-flight requests are done; flush their usage events before the
	// store closes.
	gatekeeper.Close()

	slog.Info("Server shutdown complete")
}
