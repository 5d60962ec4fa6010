// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	sloghttp "github.com/samber/slog-http"

	"github.com/danielhkuo/quick-poll/cliparse"
	"github.com/danielhkuo/quick-poll/handlers"
	"github.com/danielhkuo/quick-poll/live"
	"github.com/danielhkuo/quick-poll/middleware"
	"github.com/danielhkuo/quick-poll/store"
	"github.com/danielhkuo/quick-poll/verify"
	"github.com/danielhkuo/quick-poll/vote"
)

// Per-client limiter cache
const (
	limiterCacheSize = 10000
	limiterTTL       = 10 * time.Minute
)

const Banner = "quick-poll API v1"

func NewRouter(s store.PollStore, v verify.Verifier, b *live.Broadcaster, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	engine := vote.NewEngine(s, v, b)
	pollHandler := handlers.NewPollHandler(s, v, b, cfg)
	votingHandler := handlers.NewVotingHandler(engine, cfg)
	liveHandler := handlers.NewLiveHandler(s, b, cfg.AllowedOrigins)
	statsHandler := handlers.NewStatsHandler(s)

	limit := middleware.RateLimit(cfg.TrustProxyHeaders, cfg.RateLimitInterval, cfg.RateLimitBurst, limiterCacheSize, limiterTTL)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.Handle("POST /api/polls", limit(middleware.WithLogging(pollHandler.CreatePoll)))
	mux.HandleFunc("GET /api/polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("GET /api/polls/{id}/results", middleware.WithLogging(pollHandler.GetResults))
	mux.HandleFunc("DELETE /api/polls/{id}", middleware.WithLogging(pollHandler.DeletePoll))

	// Voting
	mux.Handle("POST /api/polls/{id}/vote", limit(middleware.WithLogging(votingHandler.CastVote)))

	// Live results (WebSocket)
	mux.HandleFunc("GET /api/ws/polls/{id}/results", middleware.WithLogging(liveHandler.Subscribe))

	mux.HandleFunc("GET /api/stats", middleware.WithLogging(statsHandler.GetStats))

	mux.Handle("GET /metrics", promhttp.Handler())

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(Banner))
	})

	return sloghttp.Recovery(middleware.CORS(cfg.AllowedOrigins)(mux))
}
