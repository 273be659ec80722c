// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/middleware"
	"github.com/danielhkuo/pollchain/models"
)

// Page size limits for GET /polls
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var errPollNotFound = errors.New("poll not found")

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// ListPolls handles GET /polls?offset=&limit=
// Polls come back in creation order.
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", DefaultPageLimit)
	if err != nil || limit < 1 || limit > MaxPageLimit {
		middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	ctx := r.Context()

	var total int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM poll").Scan(&total); err != nil {
		slog.Error("failed to count polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, title, creator, start_time, end_time
		FROM poll
		ORDER BY seq
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		slog.Error("failed to query polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	polls := []models.Poll{}
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Title, &p.Creator, &p.StartTime, &p.EndTime); err != nil {
			rows.Close()
			slog.Error("failed to scan poll", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		polls = append(polls, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		slog.Error("failed to iterate polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Candidates are loaded after the poll rows are closed; sqlite runs on a
	// single connection.
	for i := range polls {
		polls[i].Candidates, err = loadCandidates(ctx, h.db, polls[i].ID)
		if err != nil {
			slog.Error("failed to query candidates", "poll_id", polls[i].ID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollPage{
		Polls:  polls,
		Offset: offset,
		Total:  total,
	})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	poll, err := loadPoll(r.Context(), h.db, pollID)
	if errors.Is(err, errPollNotFound) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, "Poll not found", models.ReasonPollNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to load poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll)
}

func loadPoll(ctx context.Context, db *sql.DB, pollID string) (models.Poll, error) {
	var p models.Poll
	err := db.QueryRowContext(ctx, `
		SELECT id, title, creator, start_time, end_time
		FROM poll
		WHERE id = $1
	`, pollID).Scan(&p.ID, &p.Title, &p.Creator, &p.StartTime, &p.EndTime)
	if err == sql.ErrNoRows {
		return models.Poll{}, errPollNotFound
	}
	if err != nil {
		return models.Poll{}, err
	}

	p.Candidates, err = loadCandidates(ctx, db, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

func loadCandidates(ctx context.Context, db *sql.DB, pollID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM candidate WHERE poll_id = $1 ORDER BY idx
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		candidates = append(candidates, name)
	}
	return candidates, rows.Err()
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
