package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/avickers/ttsgate/internal/api/handlers"
	"github.com/avickers/ttsgate/internal/api/middleware"
	"github.com/avickers/ttsgate/internal/auth"
	"github.com/avickers/ttsgate/internal/config"
	"github.com/avickers/ttsgate/internal/queue"
	"github.com/avickers/ttsgate/internal/tts"
	"github.com/avickers/ttsgate/internal/usage"
)

type Router struct {
	mux        *chi.Mux
	db         *pgxpool.Pool
	redis      *redis.Client
	cfg        *config.Config
	dispatcher *tts.Dispatcher
	usageSvc   *usage.Service
	apikey     *auth.APIKeyMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, d *tts.Dispatcher, us *usage.Service) *Router {
	return &Router{
		mux:        chi.NewRouter(),
		db:         db,
		redis:      rdb,
		cfg:        cfg,
		dispatcher: d,
		usageSvc:   us,
		apikey:     auth.NewAPIKeyMiddleware(cfg.Auth.Key),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware. No rate limiting: the gateway is a pure fan-out.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	// Unauthenticated surface
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	ttsH := handlers.NewTTSHandler(rt.dispatcher)
	r.Get("/voices", ttsH.Voices)
	r.Get("/modes", ttsH.Modes)

	// Gateway key required (no-op when AUTH_KEY is unset)
	r.Group(func(r chi.Router) {
		r.Use(rt.apikey.Authenticate)

		r.Get("/tts", ttsH.Synthesize)

		var queueClient *queue.Client
		if rt.redis != nil {
			queueClient = queue.NewClient(rt.cfg.Redis)
		}
		adminH := handlers.NewAdminHandler(queueClient, rt.usageSvc)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/prewarm", adminH.Prewarm)
			r.Get("/usage", adminH.Usage)
		})
	})

	return r
}
