// Package routes mounts the HTTP surface of a money-market node.
package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"orchai/core"
	"orchai/core/events"
	"orchai/core/genesis"
	"orchai/core/host"
	"orchai/crypto"
	"orchai/gateway/config"
	"orchai/gateway/middleware"
)

// BlocksPerYear annualises per-block rates.
const BlocksPerYear = 4_656_810

// Backend is the node surface served over HTTP.
type Backend interface {
	Submit(ctx context.Context, sender, contract crypto.Address, msg json.RawMessage) (*host.Result, error)
	Query(ctx context.Context, contract crypto.Address, req json.RawMessage) (json.RawMessage, error)
	Snapshot(ctx context.Context) (core.MarketSnapshot, error)
	Deployment() genesis.Deployment
	Block() host.BlockInfo
	Events() *events.Fanout
}

type Config struct {
	Backend       Backend
	Logger        *slog.Logger
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Websocket     config.WebsocketConfig
	// History serves /v1/events when set.
	History History
	// MaxBody caps request bodies. Zero means 1 MiB.
	MaxBody int64
}

type server struct {
	backend   Backend
	logger    *slog.Logger
	maxBody   int64
	blockRate decimal.Decimal
	streams   *streamHub
	history   History
}

func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	s := &server{
		backend:   cfg.Backend,
		logger:    logger.With(slog.String("component", "gateway")),
		maxBody:   maxBody,
		blockRate: decimal.NewFromInt(BlocksPerYear),
		streams:   newStreamHub(cfg.Websocket),
		history:   cfg.History,
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, logger)
	}
	limit := func(key string) func(http.Handler) http.Handler {
		if cfg.RateLimiter == nil {
			return passthrough
		}
		return cfg.RateLimiter.Middleware(key)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", obs.MetricsHandler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(tx chi.Router) {
			tx.Use(obs.Middleware("tx"), limit("execute"))
			if cfg.Authenticator != nil {
				tx.Use(cfg.Authenticator.Middleware(config.ScopeExecute))
			}
			tx.Post("/tx/execute", s.handleExecute)
		})
		v1.Group(func(q chi.Router) {
			q.Use(obs.Middleware("query"), limit("query"))
			q.Get("/contracts/{address}/query", s.handleContractQuery)
			q.Post("/contracts/{address}/query", s.handleContractQuery)
			q.Get("/market/state", s.handleMarketState)
			q.Get("/market/borrowers/{address}", s.handleBorrower)
			q.Get("/overseer/borrow-limit/{address}", s.handleBorrowLimit)
			q.Get("/blocks/latest", s.handleLatestBlock)
			q.Get("/deployment", s.handleDeployment)
			if s.history != nil {
				q.Get("/events", s.handleEventHistory)
			}
		})
		v1.With(obs.Middleware("events")).Get("/events/ws", s.handleEventsWS)
	})
	return r
}

func passthrough(next http.Handler) http.Handler { return next }

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
