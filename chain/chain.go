// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/models"
)

var (
	ErrUnknownKind  = errors.New("unknown transaction kind")
	ErrBadSignature = errors.New("invalid transaction signature")
	ErrTxNotFound   = errors.New("transaction not found")
)

// Chain is a single-node ledger backed by SQL.
type Chain struct {
	db      *sql.DB
	metrics *Metrics
	now     func() time.Time

	mineMu sync.Mutex

	arrivalMu   sync.Mutex
	lastArrival int64
}

type Option func(*Chain)

// WithClock sets the clock used for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

func New(ctx context.Context, db *sql.DB, metrics *Metrics, opts ...Option) (*Chain, error) {
	c := &Chain{db: db, metrics: metrics, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	height, _, err := latestBlock(ctx, db)
	if err != nil {
		return nil, err
	}
	var pending int64
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx WHERE status = $1", models.StatusPending).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("failed to count mempool: %w", err)
	}
	c.metrics.height.Set(float64(height))
	c.metrics.mempool.Set(float64(pending))
	return c, nil
}

// Submit verifies stx and adds it to the mempool. Submitting the same
// transaction twice returns the same hash and stores it once.
func (c *Chain) Submit(ctx context.Context, stx models.SignedTx) (string, error) {
	if stx.Kind != models.KindCreatePoll && stx.Kind != models.KindVote {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, stx.Kind)
	}
	if err := auth.VerifySignature(stx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	hash, err := auth.TxHash(stx)
	if err != nil {
		return "", err
	}

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO tx (hash, kind, sender, nonce, body, signature, status, received_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (hash) DO NOTHING
	`, hash, stx.Kind, stx.From, stx.Nonce, string(stx.Body), stx.Signature, models.StatusPending, c.arrival())
	if err != nil {
		return "", fmt.Errorf("failed to store transaction: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		c.metrics.submitted.Inc()
		c.metrics.mempool.Inc()
		slog.Info("transaction received", "tx_hash", hash, "kind", stx.Kind, "from", auth.ShortenAccount(stx.From))
	}
	return hash, nil
}

// arrival returns a strictly increasing wall-clock stamp for mempool ordering.
func (c *Chain) arrival() int64 {
	c.arrivalMu.Lock()
	defer c.arrivalMu.Unlock()
	ns := time.Now().UnixNano()
	if ns <= c.lastArrival {
		ns = c.lastArrival + 1
	}
	c.lastArrival = ns
	return ns
}

// Receipt returns the current receipt of a transaction.
func (c *Chain) Receipt(ctx context.Context, hash string) (models.TxReceipt, error) {
	var (
		r      = models.TxReceipt{TxHash: hash}
		reason sql.NullString
		pollID sql.NullString
		block  sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT kind, status, reason, poll_id, block_height FROM tx WHERE hash = $1
	`, hash).Scan(&r.Kind, &r.Status, &reason, &pollID, &block)
	if err == sql.ErrNoRows {
		return models.TxReceipt{}, fmt.Errorf("%w: %s", ErrTxNotFound, hash)
	}
	if err != nil {
		return models.TxReceipt{}, fmt.Errorf("failed to query transaction: %w", err)
	}

	r.Reason = reason.String
	r.PollID = pollID.String
	if block.Valid {
		h := block.Int64
		r.Block = &h
	}
	return r, nil
}

// Height returns the latest block height, -1 before the first block.
func (c *Chain) Height(ctx context.Context) (int64, error) {
	height, _, err := latestBlock(ctx, c.db)
	return height, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func latestBlock(ctx context.Context, q queryer) (int64, string, error) {
	var (
		height int64
		hash   string
	)
	err := q.QueryRowContext(ctx, "SELECT height, hash FROM block ORDER BY height DESC LIMIT 1").Scan(&height, &hash)
	if err == sql.ErrNoRows {
		return -1, genesisPrevHash, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to query latest block: %w", err)
	}
	return height, hash, nil
}
