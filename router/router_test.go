// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/pollchain/chain"
	"github.com/danielhkuo/pollchain/testutil"
)

func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	db := testutil.SetupTestDB(t)

	reg := prometheus.NewRegistry()
	metrics, err := chain.NewMetrics("pollchain", reg)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	c, err := chain.New(context.Background(), db, metrics)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	return NewRouter(db, c, testutil.GetTestConfig(), reg)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "pollchain node v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	for _, name := range []string{"pollchain_block_height", "pollchain_mempool_size"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("Expected metric %s in output", name)
		}
	}
}

func TestRouteExistence(t *testing.T) {
	mux := newTestRouter(t)

	// Routes respond with the handler's own status; 404 from a handler
	// carries a JSON body, the mux's own 404 does not.
	testCases := []struct {
		method   string
		path     string
		expected int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},

		{"POST", "/tx", http.StatusBadRequest},
		{"GET", "/tx/0xabc", http.StatusNotFound},

		{"GET", "/polls", http.StatusOK},
		{"GET", "/polls/0", http.StatusNotFound},
		{"GET", "/polls/0/tallies", http.StatusNotFound},
		{"GET", "/polls/0/voters/0xabc", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tc.expected {
				t.Errorf("Expected status %d, got %d. Body: %s", tc.expected, w.Code, w.Body.String())
			}
			if w.Code == http.StatusNotFound && w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Route %s %s was not matched", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"DELETE", "/tx"},
		{"PUT", "/polls"},
		{"POST", "/polls/0/tallies"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected status 405, got %d", w.Code)
			}
		})
	}
}
