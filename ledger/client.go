// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/txn"
)

// Gateway is the only channel to the ledger.
type Gateway interface {
	CreatePoll(ctx context.Context, title string, candidates []string, durationMinutes int) (*txn.Pending[string], error)
	SubmitVote(ctx context.Context, pollID string, candidateIndex int) (*txn.Pending[struct{}], error)
	GetPollDetails(ctx context.Context, pollID string) (models.Poll, error)
	GetTallies(ctx context.Context, pollID string) (models.TallySnapshot, error)
	HasVoted(ctx context.Context, pollID, account string) (bool, error)
	ListPolls(ctx context.Context, offset, limit int) ([]models.Poll, error)
}

// Signer signs and submits on behalf of the connected account.
// *wallet.Session implements it.
type Signer interface {
	SignAndSubmit(ctx context.Context, tx models.UnsignedTx) (*txn.Pending[models.TxReceipt], error)
}

var _ Gateway = (*Client)(nil)

// Client is the Gateway backed by a chain node and a wallet.
type Client struct {
	node   *NodeClient
	signer Signer
	now    func() time.Time
}

// NewClient creates a Gateway that signs with signer and talks to node.
func NewClient(node *NodeClient, signer Signer) *Client {
	return &Client{node: node, signer: signer, now: time.Now}
}

func (c *Client) CreatePoll(ctx context.Context, title string, candidates []string, durationMinutes int) (*txn.Pending[string], error) {
	if err := ValidatePollSpec(title, candidates, durationMinutes); err != nil {
		return nil, err
	}

	pending, err := c.submit(ctx, models.KindCreatePoll, models.CreatePollPayload{
		Title:           title,
		Candidates:      candidates,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("poll creation submitted", "tx_hash", pending.Hash(), "title", title)

	return txn.Map(pending, func(r models.TxReceipt) (string, error) {
		if r.PollID == "" {
			return "", fmt.Errorf("confirmed receipt %s carries no poll id", r.TxHash)
		}
		return r.PollID, nil
	}), nil
}

// SubmitVote checks the index against the poll and submits the vote.
func (c *Client) SubmitVote(ctx context.Context, pollID string, candidateIndex int) (*txn.Pending[struct{}], error) {
	if candidateIndex < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCandidateIndex, candidateIndex)
	}
	poll, err := c.GetPollDetails(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := ValidateCandidateIndex(candidateIndex, len(poll.Candidates)); err != nil {
		return nil, err
	}

	pending, err := c.submit(ctx, models.KindVote, models.VotePayload{
		PollID:         pollID,
		CandidateIndex: candidateIndex,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("vote submitted", "tx_hash", pending.Hash(), "poll_id", pollID)

	return txn.Map(pending, func(models.TxReceipt) (struct{}, error) {
		return struct{}{}, nil
	}), nil
}

func (c *Client) submit(ctx context.Context, kind string, payload interface{}) (*txn.Pending[models.TxReceipt], error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	nonce, err := auth.GenerateID(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.signer.SignAndSubmit(ctx, models.UnsignedTx{
		Kind:  kind,
		Nonce: nonce,
		Body:  body,
	})
}

func (c *Client) GetPollDetails(ctx context.Context, pollID string) (models.Poll, error) {
	var poll models.Poll
	if err := c.node.getJSON(ctx, "/polls/"+url.PathEscape(pollID), &poll); err != nil {
		return models.Poll{}, err
	}
	return poll, nil
}

// GetTallies reads fresh vote counts from the node.
func (c *Client) GetTallies(ctx context.Context, pollID string) (models.TallySnapshot, error) {
	var resp models.TalliesResponse
	if err := c.node.getJSON(ctx, "/polls/"+url.PathEscape(pollID)+"/tallies", &resp); err != nil {
		return models.TallySnapshot{}, err
	}
	snapshot := models.TallySnapshot{
		PollID:    pollID,
		Counts:    make(map[int]uint64, len(resp.Counts)),
		FetchedAt: c.now(),
	}
	for i, n := range resp.Counts {
		snapshot.Counts[i] = n
	}
	return snapshot, nil
}

func (c *Client) HasVoted(ctx context.Context, pollID, account string) (bool, error) {
	var resp models.HasVotedResponse
	path := "/polls/" + url.PathEscape(pollID) + "/voters/" + url.PathEscape(account)
	if err := c.node.getJSON(ctx, path, &resp); err != nil {
		return false, err
	}
	return resp.Voted, nil
}

func (c *Client) ListPolls(ctx context.Context, offset, limit int) ([]models.Poll, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var page models.PollPage
	if err := c.node.getJSON(ctx, "/polls?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return page.Polls, nil
}
