package api

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/shakemap/shakemapd/auth"
	"github.com/shakemap/shakemapd/cache"
	"github.com/shakemap/shakemapd/observe"
	"github.com/shakemap/shakemapd/overlay"
	"github.com/shakemap/shakemapd/resilience"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Store is the overlay cache. Required.
	Store *cache.Store

	// Simulator computes synthetic overlays. Required.
	Simulator overlay.Simulator

	// AllowedOrigins is the CORS allow-list. Empty denies all
	// cross-origin requests.
	AllowedOrigins []string

	// Operator guards the refresh endpoint. Nil disables the guard.
	Operator *auth.Operator

	// RefreshLimiter rate-limits forced refreshes. Nil disables limiting.
	RefreshLimiter *resilience.RateLimiter

	// Middleware wraps routes with tracing, metrics and logging.
	// Nil disables instrumentation.
	Middleware *observe.Middleware

	// Logger receives handler-level logs. Nil discards them.
	Logger observe.Logger
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	store     *cache.Store
	simulator overlay.Simulator
	operator  *auth.Operator
	limiter   *resilience.RateLimiter
	mw        *observe.Middleware
	logger    observe.Logger
	origins   []string
}

// NewServer creates a new Server.
func NewServer(config ServerConfig) *Server {
	logger := config.Logger
	if logger == nil {
		logger = observe.NewLoggerWithWriter("error", discardWriter{})
	}

	return &Server{
		store:     config.Store,
		simulator: config.Simulator,
		operator:  config.Operator,
		limiter:   config.RefreshLimiter,
		mw:        config.Middleware,
		logger:    logger.WithComponent("api"),
		origins:   config.AllowedOrigins,
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Handler builds the full route tree with CORS and instrumentation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", s.route(observe.RouteMeta{Name: "static.index", Method: http.MethodGet, Pattern: "/"},
		http.HandlerFunc(s.handleIndex)))
	mux.Handle("/static/", s.route(observe.RouteMeta{Name: "static.assets", Method: http.MethodGet, Pattern: "/static/"},
		http.StripPrefix("/static/", http.FileServer(http.FS(staticAssets())))))

	mux.Handle("GET /api/run", s.route(observe.RouteMeta{Name: "api.run", Method: http.MethodGet, Pattern: "/api/run"},
		http.HandlerFunc(s.handleRunGet)))
	mux.Handle("POST /api/run", s.route(observe.RouteMeta{Name: "api.run", Method: http.MethodPost, Pattern: "/api/run"},
		http.HandlerFunc(s.handleRunPost)))

	refresh := http.Handler(http.HandlerFunc(s.handleRefresh))
	if s.operator != nil {
		refresh = s.operator.Middleware(refresh)
	}
	mux.Handle("POST /api/refresh", s.route(observe.RouteMeta{Name: "api.refresh", Method: http.MethodPost, Pattern: "/api/refresh"},
		refresh))

	mux.Handle("GET /api/cache_state", s.route(observe.RouteMeta{Name: "api.cache_state", Method: http.MethodGet, Pattern: "/api/cache_state"},
		http.HandlerFunc(s.handleCacheState)))
	mux.Handle("POST /api/simulate", s.route(observe.RouteMeta{Name: "api.simulate", Method: http.MethodPost, Pattern: "/api/simulate"},
		http.HandlerFunc(s.handleSimulate)))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(mux)
}

func (s *Server) route(meta observe.RouteMeta, next http.Handler) http.Handler {
	if s.mw == nil {
		return next
	}
	return s.mw.Wrap(meta, next)
}
