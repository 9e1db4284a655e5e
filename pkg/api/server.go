package api

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/inventory"
	"github.com/platinummonkey/stockroom/pkg/middleware"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/reports"
)

// DefaultMaxBodyBytes bounds request bodies when Dependencies leaves it unset
const DefaultMaxBodyBytes = 10 << 20

// Dependencies are the components the API serves. Metrics, Logger and the
// limiters are optional.
type Dependencies struct {
	Accounts  *auth.Service
	Tokens    *auth.TokenService
	Products  *inventory.Store
	Activity  *activity.Logger
	Events    *analytics.EventTracker
	Analytics *analytics.Service
	Reports   *reports.Generator

	Metrics *observability.Metrics
	Logger  *observability.Logger

	// AuthLimiter guards /auth/* keyed by client IP
	AuthLimiter middleware.Limiter
	// APILimiter guards authenticated routes keyed by user
	APILimiter middleware.Limiter

	DevMode        bool
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server is the HTTP API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
	now     func() time.Time
}

// NewServer creates a new API server with all routes registered
func NewServer(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}

	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		now:    time.Now,
	}
	s.setupRoutes(deps)

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	s.handler = httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(deps.AllowedOrigins),
		httputil.MaxBytesMiddleware(maxBody),
	)(s.router)

	return s
}

// setupRoutes registers every handler group on its own middleware stack
func (s *Server) setupRoutes(deps Dependencies) {
	if deps.Metrics != nil {
		// Inside the router so the route template is known
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)

	rs := responder{devMode: deps.DevMode}
	users := deps.Accounts.Store()
	authenticate := middleware.NewAuthMiddleware(deps.Tokens, false).WithMetrics(deps.Metrics)

	authRoutes := s.router.NewRoute().Subrouter()
	if deps.AuthLimiter != nil {
		authRoutes.Use(middleware.NewRateLimitMiddleware(deps.AuthLimiter, ipKey, "auth", deps.Metrics).Handler)
	}
	NewAuthHandlers(deps.Accounts, deps.Activity, deps.Metrics, rs).RegisterRoutes(authRoutes)

	protected := func(extra ...mux.MiddlewareFunc) *mux.Router {
		sub := s.router.NewRoute().Subrouter()
		sub.Use(authenticate.Handler)
		if deps.APILimiter != nil {
			sub.Use(middleware.NewRateLimitMiddleware(deps.APILimiter, nil, "api", deps.Metrics).Handler)
		}
		sub.Use(extra...)
		return sub
	}

	NewProductHandlers(deps.Products, deps.Activity, deps.Events, rs).
		RegisterRoutes(protected())
	NewAdminHandlers(deps.Analytics, users, deps.Activity, rs).
		RegisterRoutes(protected(middleware.RequireAdmin(users)))
	NewAnalyticsHandlers(deps.Analytics, deps.Reports, deps.Activity, rs).
		RegisterRoutes(protected(middleware.OptionalAdmin(users)))

	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteMethodNotAllowed(w)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func ipKey(r *http.Request) string {
	return "ip:" + httputil.ClientIP(r)
}

// healthCheck handles GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"status":    "OK",
		"message":   "Inventory service is running",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// endpointDirectory is listed in the body of every 404
var endpointDirectory = map[string][]string{
	"auth":      {"POST /auth/register", "POST /auth/login"},
	"products":  {"GET /products", "POST /products", "GET /products/{id}", "PUT /products/{id}/quantity"},
	"admin":     {"GET /admin/dashboard", "GET /admin/users", "PUT /admin/users/{id}", "GET /admin/analytics", "GET /admin/logs"},
	"analytics": {"GET /analytics/products", "GET /analytics/inventory", "GET /analytics/users", "GET /analytics/reports"},
	"health":    {"GET /health"},
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"message":            "Endpoint not found",
		"availableEndpoints": endpointDirectory,
	})
}

// responder renders handler errors. Internal errors are logged with full
// detail and redacted in the response unless devMode is set.
type responder struct {
	devMode bool
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		ctx := r.Context()
		observability.WithTraceContext(ctx, observability.FromContext(ctx)).
			WithError(err).
			WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			}).
			Error("request failed")
	}
	httputil.WriteAppError(w, err, rs.devMode)
}

// userID returns the caller's id for activity and event records
func userID(r *http.Request) *int64 {
	identity := middleware.GetIdentity(r)
	if !identity.Authenticated() {
		return nil
	}
	id := identity.UserID
	return &id
}
