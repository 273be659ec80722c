// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/ledger"
	"github.com/danielhkuo/pollchain/lifecycle"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/store"
	"github.com/danielhkuo/pollchain/tally"
	"github.com/danielhkuo/pollchain/txn"
	"github.com/danielhkuo/pollchain/voting"
	"github.com/danielhkuo/pollchain/wallet"
)

var ErrPollNotEnded = errors.New("poll has not ended")

// Page sizes for ListPolls. MaxPageSize is the largest limit a node serves.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// requestTimeout bounds a single HTTP request to the node.
const requestTimeout = 10 * time.Second

// AppName is shown by wallets when asking to connect.
const AppName = "pollchain"

// Client is the entry point for applications: one wallet session, one ledger.
type Client struct {
	session *wallet.Session
	gateway ledger.Gateway
	store   *store.Store
	votes   *voting.Orchestrator

	now       func() time.Time
	pageSize  int
	reconcile time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock used for poll phases.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithPageSize sets how many polls ListPolls fetches per request, capped
// at MaxPageSize.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = min(n, MaxPageSize)
		}
	}
}

// WithReconcileInterval sets how often RunReconciler checks unresolved votes.
func WithReconcileInterval(d time.Duration) Option {
	return func(c *Client) { c.reconcile = d }
}

// New wires a Client from its parts. Open builds one from configuration.
func New(session *wallet.Session, gateway ledger.Gateway, st *store.Store, opts ...Option) *Client {
	c := &Client{
		session:   session,
		gateway:   gateway,
		store:     st,
		now:       time.Now,
		pageSize:  DefaultPageSize,
		reconcile: cliparse.DefaultReconcile,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.votes = voting.New(gateway, session, st,
		voting.WithClock(c.now),
		voting.WithLogger(slog.Default().With("component", "voting")),
	)
	return c
}

// Open wires a client to the chain node and keystore named in cfg.
func Open(cfg cliparse.ClientConfig, prompter wallet.Prompter) (*Client, error) {
	node := ledger.NewNodeClient(cfg.NodeURL,
		ledger.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		ledger.WithTracking(cfg.TxPollInterval, cfg.TxTimeout),
	)

	keys := wallet.NewKeystore(AppName, prompter, node)
	n, err := keys.LoadDir(cfg.KeystoreDir)
	if err != nil {
		return nil, err
	}
	slog.Debug("keystore loaded", "dir", cfg.KeystoreDir, "keys", n)

	st, err := store.New(cfg.PollCacheSize)
	if err != nil {
		return nil, err
	}

	session := wallet.NewSession(keys)
	return New(session, ledger.NewClient(node, session), st, WithReconcileInterval(cfg.ReconcileInterval)), nil
}

// Connect asks the wallet for an account.
func (c *Client) Connect(ctx context.Context) (wallet.Identity, error) {
	return c.session.Connect(ctx)
}

// Disconnect forgets the connected account.
func (c *Client) Disconnect() {
	c.session.Disconnect()
}

// Identity returns the connected account, if any.
func (c *Client) Identity() (wallet.Identity, bool) {
	return c.session.CurrentIdentity()
}

// ListPolls pages through every poll on the ledger. Each iteration starts
// from the first page again; polls seen are refreshed in the local store.
func (c *Client) ListPolls(ctx context.Context) iter.Seq2[models.Poll, error] {
	return func(yield func(models.Poll, error) bool) {
		for offset := 0; ; {
			page, err := c.gateway.ListPolls(ctx, offset, c.pageSize)
			if err != nil {
				yield(models.Poll{}, fmt.Errorf("failed to list polls at offset %d: %w", offset, err))
				return
			}
			for _, p := range page {
				c.store.PutPoll(p)
				if !yield(p, nil) {
					return
				}
			}
			if len(page) < c.pageSize {
				return
			}
			offset += len(page)
		}
	}
}

// Poll fetches poll metadata from the ledger.
func (c *Client) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	p, err := c.gateway.GetPollDetails(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	c.store.PutPoll(p)
	return p, nil
}

// Classify reports the poll's phase at the client's current time.
func (c *Client) Classify(poll models.Poll) lifecycle.Phase {
	return lifecycle.Of(poll, c.now())
}

// Tallies fetches the current counts for a poll.
func (c *Client) Tallies(ctx context.Context, pollID string) (models.TallySnapshot, error) {
	t, err := c.gateway.GetTallies(ctx, pollID)
	if err != nil {
		return models.TallySnapshot{}, err
	}
	c.store.PutTallies(t)
	return t, nil
}

// CastVote votes on pollID for the connected account. Cached poll
// metadata is used when present.
func (c *Client) CastVote(ctx context.Context, pollID string, candidateIndex int) (voting.Result, error) {
	poll, ok := c.store.Poll(pollID)
	if !ok {
		var err error
		if poll, err = c.Poll(ctx, pollID); err != nil {
			return voting.Result{State: c.votes.State(pollID)}, err
		}
	}

	res, err := c.votes.CastVote(ctx, poll, candidateIndex)
	if err == nil && res.State == voting.Confirmed {
		if _, terr := c.Tallies(ctx, pollID); terr != nil {
			slog.Warn("failed to refresh tallies after vote", "poll_id", pollID, "error", terr)
		}
	}
	return res, err
}

// VoteState reports the connected account's vote state on a poll.
func (c *Client) VoteState(pollID string) voting.State {
	return c.votes.State(pollID)
}

// Reconcile asks the ledger whether an unresolved vote landed.
func (c *Client) Reconcile(ctx context.Context, pollID string) (voting.State, error) {
	return c.votes.Reconcile(ctx, pollID)
}

// RunReconciler reconciles indeterminate votes in the background until ctx ends.
func (c *Client) RunReconciler(ctx context.Context) {
	if c.reconcile <= 0 {
		return
	}
	go c.votes.RunReconciler(ctx, c.reconcile)
}

// ResolveWinner fetches fresh tallies for an ended poll and resolves the winner.
func (c *Client) ResolveWinner(ctx context.Context, poll models.Poll) (models.WinnerResult, error) {
	if phase := c.Classify(poll); phase != lifecycle.Ended {
		return models.WinnerResult{}, fmt.Errorf("%w: poll %s is %s", ErrPollNotEnded, poll.ID, phase)
	}
	t, err := c.Tallies(ctx, poll.ID)
	if err != nil {
		return models.WinnerResult{}, err
	}
	return tally.Resolve(poll, t), nil
}

// CreatePoll submits a new poll. The pending value is the poll id.
func (c *Client) CreatePoll(ctx context.Context, title string, candidates []string, durationMinutes int) (*txn.Pending[string], error) {
	return c.gateway.CreatePoll(ctx, title, candidates, durationMinutes)
}

// Wait blocks until background vote observations have finished.
func (c *Client) Wait() {
	c.votes.Wait()
}
