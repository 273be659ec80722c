// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/danielhkuo/pollchain/ledger"
	"github.com/danielhkuo/pollchain/models"
)

const genesisPrevHash = "0"

var ErrBrokenChain = errors.New("block chain does not verify")

// Block is a batch of transactions linked to its predecessor by hash.
type Block struct {
	Height   int64    `json:"height"`
	PrevHash string   `json:"prev_hash"`
	MinedAt  int64    `json:"mined_at"`
	TxHashes []string `json:"tx_hashes"`
	Hash     string   `json:"-"`
}

func calculateHash(b Block) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type pendingTx struct {
	hash   string
	kind   string
	sender string
	body   string
}

// MineBlock applies every pending transaction, in arrival order, in one
// database transaction and seals them in a new block. It returns nil when
// the mempool is empty.
func (c *Chain) MineBlock(ctx context.Context) (*Block, error) {
	c.mineMu.Lock()
	defer c.mineMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin block: %w", err)
	}
	defer tx.Rollback()

	pending, err := loadPending(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	prevHeight, prevHash, err := latestBlock(ctx, tx)
	if err != nil {
		return nil, err
	}

	block := Block{
		Height:   prevHeight + 1,
		PrevHash: prevHash,
		MinedAt:  c.now().Unix(),
	}
	for _, p := range pending {
		block.TxHashes = append(block.TxHashes, p.hash)
	}
	if block.Hash, err = calculateHash(block); err != nil {
		return nil, fmt.Errorf("failed to calculate block hash: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO block (height, hash, prev_hash, tx_count, mined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, block.Height, block.Hash, block.PrevHash, len(pending), block.MinedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert block: %w", err)
	}

	type outcome struct {
		kind   string
		reason string
	}
	outcomes := make([]outcome, 0, len(pending))
	for _, p := range pending {
		pollID, reason, err := c.apply(ctx, tx, p, block)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", p.hash, err)
		}

		status := models.StatusConfirmed
		if reason != "" {
			status = models.StatusRejected
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tx SET status = $1, reason = $2, poll_id = $3, block_height = $4
			WHERE hash = $5
		`, status, nullString(reason), nullString(pollID), block.Height, p.hash)
		if err != nil {
			return nil, fmt.Errorf("failed to write receipt: %w", err)
		}
		outcomes = append(outcomes, outcome{kind: p.kind, reason: reason})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit block: %w", err)
	}

	for _, o := range outcomes {
		if o.reason == "" {
			c.metrics.confirmed.WithLabelValues(o.kind).Inc()
		} else {
			c.metrics.rejected.WithLabelValues(o.reason).Inc()
		}
	}
	c.metrics.blocks.Inc()
	c.metrics.height.Set(float64(block.Height))
	c.metrics.mempool.Sub(float64(len(pending)))

	slog.Info("block mined", "height", block.Height, "hash", block.Hash, "txs", len(pending))
	return &block, nil
}

func loadPending(ctx context.Context, tx *sql.Tx) ([]pendingTx, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT hash, kind, sender, body FROM tx
		WHERE status = $1
		ORDER BY received_ns, hash
	`, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load mempool: %w", err)
	}
	defer rows.Close()

	var pending []pendingTx
	for rows.Next() {
		var p pendingTx
		if err := rows.Scan(&p.hash, &p.kind, &p.sender, &p.body); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// apply runs the contract rules for one transaction. A non-empty reason
// rejects the transaction; err aborts the whole block.
func (c *Chain) apply(ctx context.Context, tx *sql.Tx, p pendingTx, b Block) (pollID, reason string, err error) {
	switch p.kind {
	case models.KindCreatePoll:
		return c.applyCreatePoll(ctx, tx, p, b)
	case models.KindVote:
		return c.applyVote(ctx, tx, p, b)
	}
	return "", models.ReasonMalformedTx, nil
}

func (c *Chain) applyCreatePoll(ctx context.Context, tx *sql.Tx, p pendingTx, b Block) (string, string, error) {
	var body models.CreatePollPayload
	if err := json.Unmarshal([]byte(p.body), &body); err != nil {
		return "", models.ReasonMalformedTx, nil
	}
	if err := ledger.ValidatePollSpec(body.Title, body.Candidates, body.DurationMinutes); err != nil {
		return "", models.ReasonInvalidPoll, nil
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM poll").Scan(&seq); err != nil {
		return "", "", err
	}
	pollID := strconv.FormatInt(seq, 10)
	end := b.MinedAt + int64(body.DurationMinutes)*int64(time.Minute/time.Second)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO poll (id, seq, title, creator, start_time, end_time, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, pollID, seq, body.Title, p.sender, b.MinedAt, end, p.hash)
	if err != nil {
		return "", "", err
	}
	for i, name := range body.Candidates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO candidate (poll_id, idx, name) VALUES ($1, $2, $3)
		`, pollID, i, name)
		if err != nil {
			return "", "", err
		}
	}

	slog.Info("poll created", "poll_id", pollID, "title", body.Title, "candidates", len(body.Candidates))
	return pollID, "", nil
}

func (c *Chain) applyVote(ctx context.Context, tx *sql.Tx, p pendingTx, b Block) (string, string, error) {
	var body models.VotePayload
	if err := json.Unmarshal([]byte(p.body), &body); err != nil {
		return "", models.ReasonMalformedTx, nil
	}

	var start, end int64
	err := tx.QueryRowContext(ctx, "SELECT start_time, end_time FROM poll WHERE id = $1", body.PollID).Scan(&start, &end)
	if err == sql.ErrNoRows {
		return "", models.ReasonPollNotFound, nil
	}
	if err != nil {
		return "", "", err
	}
	switch {
	case b.MinedAt < start:
		return body.PollID, models.ReasonPollNotStarted, nil
	case b.MinedAt >= end:
		return body.PollID, models.ReasonPollClosed, nil
	}

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM candidate WHERE poll_id = $1", body.PollID).Scan(&n); err != nil {
		return "", "", err
	}
	if ledger.ValidateCandidateIndex(body.CandidateIndex, n) != nil {
		return body.PollID, models.ReasonInvalidCandidate, nil
	}

	var voted int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM vote WHERE poll_id = $1 AND voter = $2", body.PollID, p.sender).Scan(&voted)
	if err != nil {
		return "", "", err
	}
	if voted > 0 {
		return body.PollID, models.ReasonAlreadyVoted, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (poll_id, voter, candidate_idx, tx_hash, block_height)
		VALUES ($1, $2, $3, $4, $5)
	`, body.PollID, p.sender, body.CandidateIndex, p.hash, b.Height)
	if err != nil {
		return "", "", err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE candidate SET votes = votes + 1 WHERE poll_id = $1 AND idx = $2
	`, body.PollID, body.CandidateIndex)
	if err != nil {
		return "", "", err
	}
	return body.PollID, "", nil
}

// Run mines a block every interval until ctx ends.
func (c *Chain) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.MineBlock(ctx); err != nil && ctx.Err() == nil {
				slog.Error("mining failed", "error", err)
			}
		}
	}
}

// Verify walks the chain from the first block and checks every hash link.
func (c *Chain) Verify(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, "SELECT height, hash, prev_hash, mined_at FROM block ORDER BY height")
	if err != nil {
		return fmt.Errorf("failed to load blocks: %w", err)
	}
	var blocks []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.Height, &b.Hash, &b.PrevHash, &b.MinedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	prev := Block{Height: -1, Hash: genesisPrevHash}
	for _, b := range blocks {
		if b.Height != prev.Height+1 {
			return fmt.Errorf("%w: height %d follows %d", ErrBrokenChain, b.Height, prev.Height)
		}
		if b.PrevHash != prev.Hash {
			return fmt.Errorf("%w: block %d does not link to its predecessor", ErrBrokenChain, b.Height)
		}
		if b.TxHashes, err = c.blockTxs(ctx, b.Height); err != nil {
			return err
		}
		want, err := calculateHash(b)
		if err != nil {
			return err
		}
		if want != b.Hash {
			return fmt.Errorf("%w: block %d hash mismatch", ErrBrokenChain, b.Height)
		}
		prev = b
	}
	return nil
}

func (c *Chain) blockTxs(ctx context.Context, height int64) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT hash FROM tx WHERE block_height = $1 ORDER BY received_ns, hash
	`, height)
	if err != nil {
		return nil, fmt.Errorf("failed to load block transactions: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
