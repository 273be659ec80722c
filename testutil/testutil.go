// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"crypto/ed25519"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/db"
	"github.com/danielhkuo/pollchain/models"
)

// TestDBURL is an in-memory sqlite database, private to one *sql.DB.
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   TestDBURL,
		DatabaseType:  "sqlite",
		BlockInterval: 50 * time.Millisecond,
	}
}

// NewTestKey generates a fresh account key
func NewTestKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	priv, err := auth.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return priv
}

// SignTestTx signs a transaction of the given kind carrying payload
func SignTestTx(t *testing.T, priv ed25519.PrivateKey, kind string, payload interface{}) models.SignedTx {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to encode payload: %v", err)
	}
	stx, err := auth.Sign(priv, models.UnsignedTx{Kind: kind, Nonce: uuid.NewString(), Body: body})
	if err != nil {
		t.Fatalf("Failed to sign transaction: %v", err)
	}
	return stx
}

// CreateTestPoll inserts a confirmed poll directly, bypassing the mempool,
// and returns its ID. Poll IDs follow insertion order.
func CreateTestPoll(t *testing.T, conn *sql.DB, title string, candidates []string, start, end int64) string {
	t.Helper()

	var seq int64
	if err := conn.QueryRow("SELECT COUNT(*) FROM poll").Scan(&seq); err != nil {
		t.Fatalf("Failed to count polls: %v", err)
	}
	pollID := strconv.FormatInt(seq, 10)
	txHash := insertTestTx(t, conn, models.KindCreatePoll, "0xcreator", pollID)

	_, err := conn.Exec(`
		INSERT INTO poll (id, seq, title, creator, start_time, end_time, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, pollID, seq, title, "0xcreator", start, end, txHash)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	for i, name := range candidates {
		_, err := conn.Exec(`
			INSERT INTO candidate (poll_id, idx, name) VALUES ($1, $2, $3)
		`, pollID, i, name)
		if err != nil {
			t.Fatalf("Failed to create test candidate: %v", err)
		}
	}

	return pollID
}

// CastTestVote records a confirmed vote directly
func CastTestVote(t *testing.T, conn *sql.DB, pollID, voter string, candidateIdx int) {
	t.Helper()

	txHash := insertTestTx(t, conn, models.KindVote, voter, pollID)
	_, err := conn.Exec(`
		INSERT INTO vote (poll_id, voter, candidate_idx, tx_hash, block_height)
		VALUES ($1, $2, $3, $4, 0)
	`, pollID, voter, candidateIdx, txHash)
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
	_, err = conn.Exec(`
		UPDATE candidate SET votes = votes + 1 WHERE poll_id = $1 AND idx = $2
	`, pollID, candidateIdx)
	if err != nil {
		t.Fatalf("Failed to update tally: %v", err)
	}
}

func insertTestTx(t *testing.T, conn *sql.DB, kind, sender, pollID string) string {
	t.Helper()

	hash := "0x" + uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO tx (hash, kind, sender, nonce, body, signature, status, poll_id, received_ns)
		VALUES ($1, $2, $3, $4, '{}', '', $5, $6, $7)
	`, hash, kind, sender, uuid.NewString(), models.StatusConfirmed, pollID, time.Now().UnixNano())
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	return hash
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
