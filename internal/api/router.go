package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/api/handlers"
	mw "github.com/Harshitk-cp/dreamlog/internal/api/middleware"
	"github.com/Harshitk-cp/dreamlog/internal/buildconfig"
	"github.com/Harshitk-cp/dreamlog/internal/cache"
	"github.com/Harshitk-cp/dreamlog/internal/config"
	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/metrics"
	"github.com/Harshitk-cp/dreamlog/internal/service"
	"github.com/Harshitk-cp/dreamlog/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the services behind the HTTP API.
type Services struct {
	Users    domain.UserStore
	Dreams   *service.DreamService
	Patterns *service.PatternService
	Stats    *service.StatsService
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Services  Services
	Refresher *service.RefresherService
}

// NewApp wires stores, caches and services from config. rdb may be nil, in
// which case stats are recomputed on every request.
func NewApp(db *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) *App {
	m := metrics.New()

	// Stores
	userStore := store.NewUserStore(db)
	dreamStore := store.NewDreamStore(db)
	patternStore := store.NewPatternStore(db)

	var statsCache domain.StatsCache = cache.NoopStatsCache{}
	if rdb != nil {
		statsCache = cache.NewRedisStatsCache(rdb)
	}

	svcs := NewServices(userStore, dreamStore, patternStore, statsCache, m, logger)

	refresher := service.NewRefresherService(dreamStore, svcs.Patterns, logger)
	refresher.SetInterval(config.PatternRefreshInterval())

	return &App{
		Router:    NewRouter(svcs, db, m, logger),
		Services:  svcs,
		Refresher: refresher,
	}
}

// NewServices builds the services over the given stores using config for
// policy, location and cache TTL.
func NewServices(users domain.UserStore, dreams domain.DreamStore, patterns domain.PatternStore, statsCache domain.StatsCache, m *metrics.Metrics, logger *zap.Logger) Services {
	loc := config.PatternLocation()

	patternSvc := service.NewPatternService(dreams, patterns, config.PatternPolicy(), logger)
	patternSvc.SetMetrics(m)
	patternSvc.SetLocation(loc)

	statsSvc := service.NewStatsService(dreams, statsCache, logger)
	statsSvc.SetMetrics(m)
	statsSvc.SetLocation(loc)
	statsSvc.SetTTL(config.StatsCacheTTL())

	return Services{
		Users:    users,
		Dreams:   service.NewDreamService(dreams, statsSvc, patternSvc, logger),
		Patterns: patternSvc,
		Stats:    statsSvc,
	}
}

// NewRouter mounts the HTTP API on a fresh chi router.
func NewRouter(svcs Services, db Pinger, m *metrics.Metrics, logger *zap.Logger) *chi.Mux {
	dreamHandler := handlers.NewDreamHandler(svcs.Dreams)
	patternHandler := handlers.NewPatternHandler(svcs.Patterns)
	statsHandler := handlers.NewStatsHandler(svcs.Stats)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(mw.Metrics(m))                                                // Count requests
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(db))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(svcs.Users))

		r.Route("/dreams", func(r chi.Router) {
			r.Get("/", dreamHandler.List)
			r.Post("/", dreamHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", dreamHandler.GetByID)
				r.Put("/analysis", dreamHandler.RecordAnalysis)
			})
		})

		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", patternHandler.List)
			r.Post("/refresh", patternHandler.Refresh)
		})

		r.Get("/stats", statsHandler.Get)
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
			"commit":  buildconfig.Commit(),
		})
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.UserStore    = (*store.UserStore)(nil)
	_ domain.DreamStore   = (*store.DreamStore)(nil)
	_ domain.PatternStore = (*store.PatternStore)(nil)
	_ domain.StatsCache   = (*cache.RedisStatsCache)(nil)
	_ domain.StatsCache   = cache.NoopStatsCache{}
)
