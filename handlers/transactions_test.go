// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/chain"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/testutil"
)

func newTestChain(t *testing.T, db *sql.DB) *chain.Chain {
	t.Helper()
	metrics, err := chain.NewMetrics("pollchain", prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	c, err := chain.New(context.Background(), db, metrics)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	return c
}

func TestSubmitTx(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewTxHandler(newTestChain(t, db))

	stx := testutil.SignTestTx(t, testutil.NewTestKey(t), models.KindCreatePoll, models.CreatePollPayload{
		Title:           "Lunch",
		Candidates:      []string{"Pizza", "Tacos"},
		DurationMinutes: 30,
	})

	w := httptest.NewRecorder()
	handler.SubmitTx(w, testutil.MakeRequest("POST", "/tx", stx, nil))

	testutil.AssertStatus(t, w, http.StatusAccepted)
	var resp models.SubmitTxResponse
	testutil.AssertJSON(t, w, &resp)

	expected, err := auth.TxHash(stx)
	if err != nil {
		t.Fatalf("Failed to hash transaction: %v", err)
	}
	if resp.TxHash != expected {
		t.Errorf("Expected tx hash '%s', got '%s'", expected, resp.TxHash)
	}
}

func TestSubmitTxRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewTxHandler(newTestChain(t, db))
	key := testutil.NewTestKey(t)

	tampered := testutil.SignTestTx(t, key, models.KindVote, models.VotePayload{PollID: "0", CandidateIndex: 0})
	tampered.Body = json.RawMessage(`{"poll_id":"0","candidate_index":1}`)

	unknownKind := testutil.SignTestTx(t, key, "transfer", map[string]int{"amount": 5})

	testCases := []struct {
		name         string
		body         string
		expectedCode string
	}{
		{"invalid JSON", `{not json`, models.ReasonMalformedTx},
		{"unknown field", `{"kind":"vote","fee":1}`, models.ReasonMalformedTx},
		{"tampered body", mustJSON(t, tampered), models.ReasonBadSignature},
		{"unknown kind", mustJSON(t, unknownKind), models.ReasonMalformedTx},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/tx", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			handler.SubmitTx(w, req)

			testutil.AssertStatus(t, w, http.StatusBadRequest)
			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Code != tc.expectedCode {
				t.Errorf("Expected code '%s', got '%s'", tc.expectedCode, resp.Code)
			}
		})
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM tx").Scan(&n); err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no stored transactions, got %d", n)
	}
}

func TestGetTx(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := newTestChain(t, db)
	handler := NewTxHandler(c)

	stx := testutil.SignTestTx(t, testutil.NewTestKey(t), models.KindCreatePoll, models.CreatePollPayload{
		Title:           "Lunch",
		Candidates:      []string{"Pizza", "Tacos"},
		DurationMinutes: 30,
	})
	hash, err := c.Submit(context.Background(), stx)
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	get := func() models.TxReceipt {
		req := httptest.NewRequest("GET", "/tx/"+hash, nil)
		req.SetPathValue("hash", hash)
		w := httptest.NewRecorder()
		handler.GetTx(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var receipt models.TxReceipt
		testutil.AssertJSON(t, w, &receipt)
		return receipt
	}

	if r := get(); r.Status != models.StatusPending || r.Block != nil {
		t.Errorf("Expected pending receipt with no block, got %+v", r)
	}

	if _, err := c.MineBlock(context.Background()); err != nil {
		t.Fatalf("Failed to mine: %v", err)
	}

	r := get()
	if r.Status != models.StatusConfirmed {
		t.Errorf("Expected confirmed, got %+v", r)
	}
	if r.PollID != "0" {
		t.Errorf("Expected poll id '0', got '%s'", r.PollID)
	}
	if r.Block == nil || *r.Block != 0 {
		t.Errorf("Expected block 0, got %v", r.Block)
	}
}

func TestGetTxNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewTxHandler(newTestChain(t, db))

	req := httptest.NewRequest("GET", "/tx/0xdead", nil)
	req.SetPathValue("hash", "0xdead")
	w := httptest.NewRecorder()

	handler.GetTx(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != "" {
		t.Errorf("Expected no code for an unknown transaction, got '%s'", resp.Code)
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	return string(b)
}
