package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Database  HealthChecker // optional
	Backlog   BacklogProvider
	Snapshots SnapshotReader // nil disables the snapshot endpoints
	Limits    Limits

	AllowedOrigins []string
	AllowAnyOrigin bool
}

// RouterResult holds the router and resources that need cleanup
type RouterResult struct {
	Router       *chi.Mux
	RateLimiters *RateLimiters
}

// NewRouter creates and configures the HTTP router.
// Caller must call result.RateLimiters.Stop() on shutdown.
func NewRouter(cfg *RouterConfig) *RouterResult {
	r := chi.NewRouter()

	limits := cfg.Limits.withDefaults()
	rateLimiters := NewRateLimiters(limits)
	sortGuard := NewSortGuard(rateLimiters.Sort, limits.ConcurrentSorts)

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.AllowedOrigins, cfg.AllowAnyOrigin))
	r.Use(rateLimiters.Global.Middleware)

	r.Get("/api/health", NewHealthHandler(cfg.Database, cfg.Backlog))

	backlogHandler := NewBacklogHandler(cfg.Backlog, cfg.Snapshots)
	r.Route("/api/backlog", func(r chi.Router) {
		r.With(sortGuard.Middleware).Get("/", backlogHandler.List)
		r.Get("/strategies", backlogHandler.Strategies)
		r.Get("/status", backlogHandler.Status)
	})
	r.Get("/api/sponsors", backlogHandler.Sponsors)

	if cfg.Snapshots != nil {
		r.Route("/api/snapshots", func(r chi.Router) {
			r.Get("/", backlogHandler.ListSnapshots)
			r.Get("/{id}", backlogHandler.GetSnapshot)
		})
	}

	return &RouterResult{
		Router:       r,
		RateLimiters: rateLimiters,
	}
}
