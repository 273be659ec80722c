// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/txn"
)

var (
	ErrNodeUnreachable  = errors.New("ledger node unreachable")
	ErrUnexpectedStatus = errors.New("unexpected ledger node response")
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTxTimeout    = 60 * time.Second
)

// NodeClient speaks HTTP to a chain node. It broadcasts signed
// transactions and follows their receipts.
type NodeClient struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
	txTimeout    time.Duration
}

// NodeOption configures a NodeClient.
type NodeOption func(*NodeClient)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(c *http.Client) NodeOption {
	return func(n *NodeClient) { n.http = c }
}

// WithTracking sets how often receipts are polled and how long a
// transaction may stay unacknowledged before it is reported Dropped.
func WithTracking(pollInterval, txTimeout time.Duration) NodeOption {
	return func(n *NodeClient) {
		if pollInterval > 0 {
			n.pollInterval = pollInterval
		}
		if txTimeout > 0 {
			n.txTimeout = txTimeout
		}
	}
}

// NewNodeClient creates a client for the node at baseURL.
func NewNodeClient(baseURL string, opts ...NodeOption) *NodeClient {
	n := &NodeClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 10 * time.Second},
		pollInterval: DefaultPollInterval,
		txTimeout:    DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Broadcast posts stx and starts tracking it. The returned Pending is
// followed on a detached context; cancelling ctx only affects the post.
func (n *NodeClient) Broadcast(ctx context.Context, stx models.SignedTx) (*txn.Pending[models.TxReceipt], error) {
	hash, err := auth.TxHash(stx)
	if err != nil {
		return nil, err
	}
	pending := txn.New[models.TxReceipt](hash)

	body, err := json.Marshal(stx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/tx", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		// The node may still have received it; the hash is ours, so keep looking.
		slog.Warn("transaction post failed, tracking anyway", "tx_hash", hash, "error", err)
	} else {
		defer resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			e := decodeError(resp)
			if e.Code == "" {
				// Nothing from the ledger itself; the transaction was never accepted.
				return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, e.Message)
			}
			pending.Reject(ReasonError(e.Code))
			return pending, nil
		}
		pending.Notify(txn.Progress{Stage: "submitted"})
	}

	go n.track(pending)
	return pending, nil
}

func (n *NodeClient) track(pending *txn.Pending[models.TxReceipt]) {
	ctx, cancel := context.WithTimeout(context.Background(), n.txTimeout)
	defer cancel()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		var receipt models.TxReceipt
		err := n.getJSON(ctx, "/tx/"+url.PathEscape(pending.Hash()), &receipt)
		switch {
		case err == nil && receipt.Status == models.StatusConfirmed:
			pending.Confirm(receipt)
			return
		case err == nil && receipt.Status == models.StatusRejected:
			pending.Reject(ReasonError(receipt.Reason))
			return
		case err == nil:
			pending.Notify(txn.Progress{Stage: receipt.Status, Attempt: attempt})
		default:
			slog.Debug("receipt not available", "tx_hash", pending.Hash(), "attempt", attempt, "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Warn("transaction dropped", "tx_hash", pending.Hash(), "timeout", n.txTimeout)
			pending.Drop()
			return
		case <-ticker.C:
		}
	}
}

func (n *NodeClient) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNodeUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e := decodeError(resp)
		if e.Code != "" {
			return ReasonError(e.Code)
		}
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, e.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) models.ErrorResponse {
	var e models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &e)
	return e
}
