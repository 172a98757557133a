package api

import (
	"encoding/json"
	"gatekeeper/internal/models"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*routeOptions)

type routeOptions struct {
	middleware []mux.MiddlewareFunc // every route
	gated      []mux.MiddlewareFunc // provider-backed routes only
}

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(o *routeOptions) {
		o.middleware = append(o.middleware, otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/api/v1/openapi.yaml" &&
					r.URL.Path != "/api/v1/docs"
			}),
		))
	}
}

// WithRateLimiter adds the per-address flood limiter in front of the gated
// endpoints.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(o *routeOptions) {
		o.gated = append(o.gated, middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	var options routeOptions
	for _, opt := range opts {
		opt(&options)
	}

	router := mux.NewRouter()

	router.Use(options.middleware...)
	router.Use(recoveryMiddleware)
	router.Use(loggingMiddleware)
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/openapi.yaml", handlers.ServeOpenAPISpec).Methods("GET")
	api.HandleFunc("/docs", handlers.ServeSwaggerUI).Methods("GET")

	gated := api.PathPrefix("").Subrouter()
	gated.Use(options.gated...)
	gated.HandleFunc("/tts", handlers.SynthesizeSpeech)
	gated.HandleFunc("/generate/{action}", handlers.Generate)

	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(RequireAdminKey(handlers.adminKeys))
	adminAPI.HandleFunc("/abuse-events", handlers.CreateAbuseEvent).Methods("POST")

	// Preflight for routes that do not handle OPTIONS themselves. A matcher
	// instead of Methods keeps other methods on unknown paths a 404.
	api.PathPrefix("").MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return r.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.NewErrorResponse(models.MessageNotFound))
	})

	return router
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	json.NewEncoder(w).Encode(models.NewErrorResponse(models.MessageMethodNotAllowed))
}
