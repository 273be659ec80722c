// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/chain"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/testutil"
)

type testNode struct {
	t     *testing.T
	chain *chain.Chain
	mux   *http.ServeMux
}

func newTestNode(t *testing.T) *testNode {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	c := newTestChain(t, db)

	txHandler := NewTxHandler(c)
	pollHandler := NewPollHandler(db, cfg)
	resultsHandler := NewResultsHandler(db, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tx", txHandler.SubmitTx)
	mux.HandleFunc("GET /tx/{hash}", txHandler.GetTx)
	mux.HandleFunc("GET /polls", pollHandler.ListPolls)
	mux.HandleFunc("GET /polls/{id}", pollHandler.GetPoll)
	mux.HandleFunc("GET /polls/{id}/tallies", resultsHandler.GetTallies)
	mux.HandleFunc("GET /polls/{id}/voters/{account}", resultsHandler.HasVoted)

	return &testNode{t: t, chain: c, mux: mux}
}

func (n *testNode) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	n.mux.ServeHTTP(w, req)
	return w
}

func (n *testNode) send(priv ed25519.PrivateKey, kind string, payload interface{}) string {
	n.t.Helper()
	w := n.do(testutil.MakeRequest("POST", "/tx", testutil.SignTestTx(n.t, priv, kind, payload), nil))
	testutil.AssertStatus(n.t, w, http.StatusAccepted)
	var resp models.SubmitTxResponse
	testutil.AssertJSON(n.t, w, &resp)
	return resp.TxHash
}

func (n *testNode) mine() {
	n.t.Helper()
	if _, err := n.chain.MineBlock(context.Background()); err != nil {
		n.t.Fatalf("Failed to mine block: %v", err)
	}
}

func (n *testNode) receipt(hash string) models.TxReceipt {
	n.t.Helper()
	w := n.do(httptest.NewRequest("GET", "/tx/"+hash, nil))
	testutil.AssertStatus(n.t, w, http.StatusOK)
	var r models.TxReceipt
	testutil.AssertJSON(n.t, w, &r)
	return r
}

func (n *testNode) tallies(pollID string) []uint64 {
	n.t.Helper()
	w := n.do(httptest.NewRequest("GET", "/polls/"+pollID+"/tallies", nil))
	testutil.AssertStatus(n.t, w, http.StatusOK)
	var resp models.TalliesResponse
	testutil.AssertJSON(n.t, w, &resp)
	return resp.Counts
}

func (n *testNode) hasVoted(pollID, account string) bool {
	n.t.Helper()
	w := n.do(httptest.NewRequest("GET", "/polls/"+pollID+"/voters/"+account, nil))
	testutil.AssertStatus(n.t, w, http.StatusOK)
	var resp models.HasVotedResponse
	testutil.AssertJSON(n.t, w, &resp)
	return resp.Voted
}

// TestFullVotingWorkflow walks a poll from creation through confirmed votes
// and contract rejections, all over HTTP.
func TestFullVotingWorkflow(t *testing.T) {
	node := newTestNode(t)
	creator := testutil.NewTestKey(t)
	alice := testutil.NewTestKey(t)
	bob := testutil.NewTestKey(t)

	// Step 1: create the poll
	createHash := node.send(creator, models.KindCreatePoll, models.CreatePollPayload{
		Title:           "Best L2",
		Candidates:      []string{"Arbitrum", "Optimism", "zkSync"},
		DurationMinutes: 60,
	})
	if r := node.receipt(createHash); r.Status != models.StatusPending {
		t.Fatalf("Expected pending before mining, got %s", r.Status)
	}
	node.mine()

	created := node.receipt(createHash)
	if created.Status != models.StatusConfirmed {
		t.Fatalf("Expected poll creation to confirm, got %+v", created)
	}
	pollID := created.PollID

	// Step 2: the poll is listed and readable
	w := node.do(httptest.NewRequest("GET", "/polls", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var page models.PollPage
	testutil.AssertJSON(t, w, &page)
	if page.Total != 1 || page.Polls[0].ID != pollID {
		t.Fatalf("Expected the new poll in the listing, got %+v", page)
	}
	poll := page.Polls[0]
	if poll.Creator != auth.AccountOf(creator) {
		t.Errorf("Expected creator %s, got %s", auth.AccountOf(creator), poll.Creator)
	}
	if poll.EndTime-poll.StartTime != 3600 {
		t.Errorf("Expected a one hour window, got %d seconds", poll.EndTime-poll.StartTime)
	}

	// Step 3: two votes in one block
	aliceHash := node.send(alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 1})
	bobHash := node.send(bob, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 1})
	if node.hasVoted(pollID, auth.AccountOf(alice)) {
		t.Error("Expected pending vote to be invisible before mining")
	}
	node.mine()

	for _, h := range []string{aliceHash, bobHash} {
		if r := node.receipt(h); r.Status != models.StatusConfirmed {
			t.Errorf("Expected vote %s to confirm, got %+v", h, r)
		}
	}
	if !node.hasVoted(pollID, auth.AccountOf(alice)) {
		t.Error("Expected alice to have voted")
	}

	// Step 4: rejections carry reason codes
	again := node.send(alice, models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 0})
	badIdx := node.send(testutil.NewTestKey(t), models.KindVote, models.VotePayload{PollID: pollID, CandidateIndex: 3})
	noPoll := node.send(testutil.NewTestKey(t), models.KindVote, models.VotePayload{PollID: "42", CandidateIndex: 0})
	node.mine()

	rejections := map[string]string{
		again:  models.ReasonAlreadyVoted,
		badIdx: models.ReasonInvalidCandidate,
		noPoll: models.ReasonPollNotFound,
	}
	for hash, reason := range rejections {
		r := node.receipt(hash)
		if r.Status != models.StatusRejected || r.Reason != reason {
			t.Errorf("Expected %s rejected with %s, got %+v", hash, reason, r)
		}
	}

	// Step 5: tallies count confirmed votes only
	counts := node.tallies(pollID)
	expected := []uint64{0, 2, 0}
	for i, n := range expected {
		if counts[i] != n {
			t.Errorf("Expected candidate %d to have %d votes, got %d", i, n, counts[i])
		}
	}

	// The chain is intact after all of it
	if err := node.chain.Verify(context.Background()); err != nil {
		t.Errorf("Expected chain to verify, got %v", err)
	}
}

func TestInvalidPollIsRejected(t *testing.T) {
	node := newTestNode(t)
	creator := testutil.NewTestKey(t)

	testCases := []struct {
		name    string
		payload models.CreatePollPayload
	}{
		{"blank title", models.CreatePollPayload{Title: "  ", Candidates: []string{"A", "B"}, DurationMinutes: 5}},
		{"one candidate", models.CreatePollPayload{Title: "T", Candidates: []string{"A"}, DurationMinutes: 5}},
		{"blank candidate", models.CreatePollPayload{Title: "T", Candidates: []string{"A", ""}, DurationMinutes: 5}},
		{"zero duration", models.CreatePollPayload{Title: "T", Candidates: []string{"A", "B"}, DurationMinutes: 0}},
	}

	hashes := make([]string, len(testCases))
	for i, tc := range testCases {
		hashes[i] = node.send(creator, models.KindCreatePoll, tc.payload)
	}
	node.mine()

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := node.receipt(hashes[i])
			if r.Status != models.StatusRejected || r.Reason != models.ReasonInvalidPoll {
				t.Errorf("Expected rejection with %s, got %+v", models.ReasonInvalidPoll, r)
			}
		})
	}

	w := node.do(httptest.NewRequest("GET", "/polls", nil))
	var page models.PollPage
	testutil.AssertJSON(t, w, &page)
	if page.Total != 0 {
		t.Errorf("Expected no polls, got %d", page.Total)
	}
}
