// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/middleware"
	"github.com/danielhkuo/pollchain/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetTallies handles GET /polls/{id}/tallies
// Counts reflect confirmed votes only and are readable at any phase.
func (h *ResultsHandler) GetTallies(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}
	ctx := r.Context()

	if !h.pollExists(w, r, pollID) {
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT votes FROM candidate WHERE poll_id = $1 ORDER BY idx
	`, pollID)
	if err != nil {
		slog.Error("failed to query tallies", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	counts := []uint64{}
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			slog.Error("failed to scan tally", "poll_id", pollID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		counts = append(counts, uint64(n))
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate tallies", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TalliesResponse{
		PollID: pollID,
		Counts: counts,
	})
}

// HasVoted handles GET /polls/{id}/voters/{account}
func (h *ResultsHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	account := r.PathValue("account")
	if pollID == "" || account == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id and account are required")
		return
	}

	if !h.pollExists(w, r, pollID) {
		return
	}

	var count int
	err := h.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FROM vote WHERE poll_id = $1 AND voter = $2
	`, pollID, account).Scan(&count)
	if err != nil {
		slog.Error("failed to query vote", "poll_id", pollID, "account", account, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.HasVotedResponse{
		PollID:  pollID,
		Account: account,
		Voted:   count > 0,
	})
}

// pollExists writes the error response itself when it returns false.
func (h *ResultsHandler) pollExists(w http.ResponseWriter, r *http.Request, pollID string) bool {
	var id string
	err := h.db.QueryRowContext(r.Context(), "SELECT id FROM poll WHERE id = $1", pollID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, "Poll not found", models.ReasonPollNotFound)
		return false
	}
	if err != nil {
		slog.Error("failed to query poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}
	return true
}
