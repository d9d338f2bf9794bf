// Package server wires the HTTP router, its middleware and the listener
// lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/handler"
	"loyalty-ledger/internal/notify"
	"loyalty-ledger/internal/pkg/auth"
	"loyalty-ledger/internal/pkg/metrics"
	"loyalty-ledger/internal/service"
)

// Dependencies holds everything the HTTP surface needs.
type Dependencies struct {
	Config   *config.Config
	Tokens   *auth.Service
	Accounts *service.AccountService
	Ledger   *service.LedgerService
	Awards   *service.AwardService
	Ranking  *service.RankingService
	Hub      *notify.Hub
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTP
	// Ping reports storage health for /healthz; nil means always healthy.
	Ping func(ctx context.Context) error
}

// Server is the HTTP server.
type Server struct {
	cfg  *config.Config
	http *http.Server
}

// New builds the router and the underlying http.Server.
func New(deps *Dependencies) *Server {
	cfg := deps.Config
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      NewRouter(deps),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// NewRouter registers all routes. CORS wraps the router instead of being
// route middleware since preflight OPTIONS requests match no route.
func NewRouter(deps *Dependencies) http.Handler {
	cfg := deps.Config

	accountHandler := handler.NewAccountHandler(deps.Ranking, deps.Ledger, deps.Awards)
	rankingHandler := handler.NewRankingHandler(deps.Ranking)
	adminHandler := handler.NewAdminHandler(deps.Awards, deps.Ledger)

	r := mux.NewRouter()
	r.Use(RequestLogger(deps.Metrics))
	r.Use(Recovery)
	if cfg.Server.RateLimit > 0 {
		r.Use(RateLimit(NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), max(1, cfg.Server.RateBurst))))
	}

	r.HandleFunc("/healthz", healthz(deps.Ping)).Methods(http.MethodGet)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if deps.Hub != nil {
		r.HandleFunc("/ws/leaderboard", deps.Hub.ServeWS).Methods(http.MethodGet)
	}

	// Public read boundary
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ranking/levels", rankingHandler.Levels).Methods(http.MethodGet)
	api.HandleFunc("/ranking/top", rankingHandler.Top).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", rankingHandler.Leaderboard).Methods(http.MethodGet)

	// Authenticated
	authed := api.NewRoute().Subrouter()
	authed.Use(Authenticate(deps.Tokens, deps.Accounts))
	authed.HandleFunc("/me", accountHandler.Me).Methods(http.MethodGet)
	authed.HandleFunc("/me/history", accountHandler.History).Methods(http.MethodGet)
	authed.HandleFunc("/me/profile-completed", accountHandler.ProfileCompleted).Methods(http.MethodPost)
	authed.HandleFunc("/me/daily-login", accountHandler.DailyLogin).Methods(http.MethodPost)
	authed.HandleFunc("/accounts/{id:[0-9]+}/standing", rankingHandler.Standing).Methods(http.MethodGet)

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(Authenticate(deps.Tokens, deps.Accounts))
	admin.Use(RequireAdmin(cfg))
	admin.HandleFunc("/accounts/{id:[0-9]+}/grant", adminHandler.Grant).Methods(http.MethodPost)
	admin.HandleFunc("/accounts/{id:[0-9]+}/correction", adminHandler.Correction).Methods(http.MethodPost)
	admin.HandleFunc("/accounts/{id:[0-9]+}/coin-correction", adminHandler.CoinCorrection).Methods(http.MethodPost)
	admin.HandleFunc("/accounts/{id:[0-9]+}/bc-verified", adminHandler.BCVerified).Methods(http.MethodPost)
	admin.HandleFunc("/tasks/{submission}/approve", adminHandler.ApproveTask).Methods(http.MethodPost)
	admin.HandleFunc("/audit", adminHandler.Audit).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Error(w, http.StatusNotFound, "not found")
	})
	return CORS(cfg.Server.AllowedOrigins)(r)
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				log.Warn().Err(err).Msg("Health check failed")
				handler.Error(w, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		handler.Success(w, map[string]string{"status": "ok"})
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("Starting http server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping http server")
	return s.http.Shutdown(ctx)
}
