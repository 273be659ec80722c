// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/pollchain/chain"
	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/handlers"
	"github.com/danielhkuo/pollchain/middleware"
)

func NewRouter(db *sql.DB, c *chain.Chain, cfg cliparse.Config, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	txHandler := handlers.NewTxHandler(c)
	pollHandler := handlers.NewPollHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Transactions
	mux.HandleFunc("POST /tx", middleware.WithLogging(txHandler.SubmitTx))
	mux.HandleFunc("GET /tx/{hash}", middleware.WithLogging(txHandler.GetTx))

	// Confirmed state
	mux.HandleFunc("GET /polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("GET /polls/{id}/tallies", middleware.WithLogging(resultsHandler.GetTallies))
	mux.HandleFunc("GET /polls/{id}/voters/{account}", middleware.WithLogging(resultsHandler.HasVoted))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pollchain node v1"))
	})

	return mux
}
