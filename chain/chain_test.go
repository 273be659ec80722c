// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/testutil"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	chain   *Chain
	db      *sql.DB
	clock   *clock
	metrics *Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	m, err := NewMetrics("pollchain", prometheus.NewRegistry())
	require.NoError(t, err)
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	c, err := New(context.Background(), conn, m, WithClock(clk.Now))
	require.NoError(t, err)
	return &harness{chain: c, db: conn, clock: clk, metrics: m}
}

func (h *harness) submit(t *testing.T, priv ed25519.PrivateKey, kind string, payload interface{}) string {
	t.Helper()
	hash, err := h.chain.Submit(context.Background(), testutil.SignTestTx(t, priv, kind, payload))
	require.NoError(t, err)
	return hash
}

func (h *harness) mine(t *testing.T) *Block {
	t.Helper()
	b, err := h.chain.MineBlock(context.Background())
	require.NoError(t, err)
	return b
}

func (h *harness) receipt(t *testing.T, hash string) models.TxReceipt {
	t.Helper()
	r, err := h.chain.Receipt(context.Background(), hash)
	require.NoError(t, err)
	return r
}

func (h *harness) createPoll(t *testing.T, creator ed25519.PrivateKey, minutes int) string {
	t.Helper()
	hash := h.submit(t, creator, models.KindCreatePoll, models.CreatePollPayload{
		Title:           "Best L2",
		Candidates:      []string{"Arbitrum", "Optimism", "zkSync"},
		DurationMinutes: minutes,
	})
	h.mine(t)
	r := h.receipt(t, hash)
	require.Equal(t, models.StatusConfirmed, r.Status, r.Reason)
	return r.PollID
}

func TestSubmitRejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	stx := testutil.SignTestTx(t, testutil.NewTestKey(t), models.KindVote, models.VotePayload{PollID: "0"})
	stx.Body = json.RawMessage(`{"poll_id":"0","candidate_index":1}`)

	_, err := h.chain.Submit(context.Background(), stx)
	assert.ErrorIs(t, err, ErrBadSignature)

	stx = testutil.SignTestTx(t, testutil.NewTestKey(t), "transfer", map[string]int{"amount": 1})
	_, err = h.chain.Submit(context.Background(), stx)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSubmitIsIdempotent(t *testing.T) {
	h := newHarness(t)
	stx := testutil.SignTestTx(t, testutil.NewTestKey(t), models.KindVote, models.VotePayload{PollID: "0"})

	first, err := h.chain.Submit(context.Background(), stx)
	require.NoError(t, err)
	second, err := h.chain.Submit(context.Background(), stx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var n int
	require.NoError(t, h.db.QueryRow("SELECT COUNT(*) FROM tx").Scan(&n))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.mempool))

	r := h.receipt(t, first)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Nil(t, r.Block)
}

func TestMineEmptyMempool(t *testing.T) {
	h := newHarness(t)
	assert.Nil(t, h.mine(t))

	height, err := h.chain.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(-1), height)
}

func TestCreatePollAndVote(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	bob := testutil.NewTestKey(t)

	pollID := h.createPoll(t, alice, 60)
	assert.Equal(t, "0", pollID)

	var start, end int64
	require.NoError(t, h.db.QueryRow("SELECT start_time, end_time FROM poll WHERE id = $1", pollID).Scan(&start, &end))
	assert.Equal(t, h.clock.Now().Unix(), start)
	assert.Equal(t, start+3600, end)

	aliceVote := h.submit(t, alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 1})
	bobVote := h.submit(t, bob, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 1})
	b := h.mine(t)
	require.NotNil(t, b)
	assert.Equal(t, int64(1), b.Height)
	assert.Equal(t, []string{aliceVote, bobVote}, b.TxHashes)

	for _, hash := range []string{aliceVote, bobVote} {
		r := h.receipt(t, hash)
		assert.Equal(t, models.StatusConfirmed, r.Status)
		assert.Equal(t, pollID, r.PollID)
		require.NotNil(t, r.Block)
		assert.Equal(t, int64(1), *r.Block)
	}

	var votes int
	require.NoError(t, h.db.QueryRow("SELECT votes FROM candidate WHERE poll_id = $1 AND idx = 1", pollID).Scan(&votes))
	assert.Equal(t, 2, votes)

	assert.Equal(t, 2.0, promtest.ToFloat64(h.metrics.confirmed.WithLabelValues(models.KindVote)))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.height))
	assert.Equal(t, 0.0, promtest.ToFloat64(h.metrics.mempool))
}

func TestPollIDsAreSequential(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)

	assert.Equal(t, "0", h.createPoll(t, alice, 5))
	assert.Equal(t, "1", h.createPoll(t, alice, 5))
	assert.Equal(t, "2", h.createPoll(t, alice, 5))
}

func TestContractRejections(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	bob := testutil.NewTestKey(t)
	pollID := h.createPoll(t, alice, 10)

	tests := []struct {
		name    string
		signer  ed25519.PrivateKey
		kind    string
		payload interface{}
		reason  string
	}{
		{"unknown poll", bob, models.KindVote, models.VotePayload{PollID: "42"}, models.ReasonPollNotFound},
		{"candidate too high", bob, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 3}, models.ReasonInvalidCandidate},
		{"negative candidate", bob, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: -1}, models.ReasonInvalidCandidate},
		{"one candidate", bob, models.KindCreatePoll, models.CreatePollPayload{Title: "x", Candidates: []string{"a"}, DurationMinutes: 5}, models.ReasonInvalidPoll},
		{"blank candidate", bob, models.KindCreatePoll, models.CreatePollPayload{Title: "x", Candidates: []string{"a", "  "}, DurationMinutes: 5}, models.ReasonInvalidPoll},
		{"zero duration", bob, models.KindCreatePoll, models.CreatePollPayload{Title: "x", Candidates: []string{"a", "b"}, DurationMinutes: 0}, models.ReasonInvalidPoll},
		{"malformed body", bob, models.KindVote, []string{"not", "a", "vote"}, models.ReasonMalformedTx},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := h.submit(t, tt.signer, tt.kind, tt.payload)
			h.mine(t)
			r := h.receipt(t, hash)
			assert.Equal(t, models.StatusRejected, r.Status)
			assert.Equal(t, tt.reason, r.Reason)
		})
	}
}

func TestDoubleVoteInOneBlock(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	pollID := h.createPoll(t, alice, 10)

	first := h.submit(t, alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 0})
	second := h.submit(t, alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 2})
	h.mine(t)

	assert.Equal(t, models.StatusConfirmed, h.receipt(t, first).Status)
	r := h.receipt(t, second)
	assert.Equal(t, models.StatusRejected, r.Status)
	assert.Equal(t, models.ReasonAlreadyVoted, r.Reason)
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.rejected.WithLabelValues(models.ReasonAlreadyVoted)))
}

func TestVoteWindow(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	pollID := h.createPoll(t, alice, 1)

	h.clock.Advance(59 * time.Second)
	inTime := h.submit(t, alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 0})
	h.mine(t)
	assert.Equal(t, models.StatusConfirmed, h.receipt(t, inTime).Status)

	h.clock.Advance(time.Second)
	late := h.submit(t, testutil.NewTestKey(t), models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 0})
	h.mine(t)
	r := h.receipt(t, late)
	assert.Equal(t, models.StatusRejected, r.Status)
	assert.Equal(t, models.ReasonPollClosed, r.Reason)
}

func TestReceiptNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.chain.Receipt(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestVerifyDetectsTampering(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	pollID := h.createPoll(t, alice, 10)
	h.submit(t, alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 0})
	h.mine(t)

	require.NoError(t, h.chain.Verify(context.Background()))

	_, err := h.db.Exec("UPDATE block SET mined_at = mined_at + 1 WHERE height = 0")
	require.NoError(t, err)
	assert.ErrorIs(t, h.chain.Verify(context.Background()), ErrBrokenChain)
}

func TestNewRestoresMetrics(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	h.createPoll(t, alice, 10)
	h.submit(t, alice, models.KindVote, models.VotePayload{PollID: "0"})

	m, err := NewMetrics("pollchain", prometheus.NewRegistry())
	require.NoError(t, err)
	_, err = New(context.Background(), h.db, m)
	require.NoError(t, err)

	assert.Equal(t, 0.0, promtest.ToFloat64(m.height))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.mempool))
}

func TestDuplicateMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics("pollchain", reg)
	require.NoError(t, err)
	_, err = NewMetrics("pollchain", reg)
	assert.Error(t, err)
}

func TestRunMinesOnInterval(t *testing.T) {
	h := newHarness(t)
	alice := testutil.NewTestKey(t)
	hash := h.submit(t, alice, models.KindCreatePoll, models.CreatePollPayload{
		Title:           "Lunch",
		Candidates:      []string{"ramen", "tacos"},
		DurationMinutes: 30,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.chain.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		r, err := h.chain.Receipt(context.Background(), hash)
		return err == nil && r.Status == models.StatusConfirmed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
