package httpapi

import (
	"net/http"

	"github.com/MrEthical07/idrelay"
	"github.com/MrEthical07/idrelay/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Options configures the HTTP surface around a Relay.
type Options struct {
	// AllowedOrigins are the browser origins allowed to call with credentials.
	AllowedOrigins []string
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that sets them.
	TrustProxyHeaders bool
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	Logger  zerolog.Logger
}

// Server serves the relay routes.
type Server struct {
	relay *idrelay.Relay
	opts  Options
}

// NewServer binds relay to opts. Call Routes for the handler.
func NewServer(relay *idrelay.Relay, opts Options) *Server {
	return &Server{relay: relay, opts: opts}
}

// Routes returns the full handler with middleware applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	if s.opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(correlationMiddleware)
	r.Use(loggingMiddleware(s.opts.Logger))
	r.Use(recoverMiddleware)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", CorrelationIDHeader},
			ExposedHeaders:   []string{CorrelationIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get(HealthRoute, s.handleHealth)
	r.Get(AuthorizeRoute, s.handleAuthorize)
	r.Get(CallbackRoute, s.handleCallback)
	r.Post(LogoutRoute, s.handleLogout)
	r.With(middleware.Guard(s.relay)).Get(UserRoute, s.handleUser)

	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, MetricsRoute, s.opts.Metrics)
	}

	return r
}
