// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/testutil"
)

func TestListPolls(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewPollHandler(db, testutil.GetTestConfig())

	for i := 0; i < 5; i++ {
		testutil.CreateTestPoll(t, db, fmt.Sprintf("Poll %d", i), []string{"Yes", "No"}, 100, 200)
	}

	testCases := []struct {
		name        string
		query       string
		expectedIDs []string
	}{
		{"defaults", "", []string{"0", "1", "2", "3", "4"}},
		{"first page", "?offset=0&limit=2", []string{"0", "1"}},
		{"second page", "?offset=2&limit=2", []string{"2", "3"}},
		{"short last page", "?offset=4&limit=2", []string{"4"}},
		{"past the end", "?offset=10&limit=2", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/polls"+tc.query, nil)
			w := httptest.NewRecorder()

			handler.ListPolls(w, req)

			testutil.AssertStatus(t, w, http.StatusOK)
			var page models.PollPage
			testutil.AssertJSON(t, w, &page)

			if page.Total != 5 {
				t.Errorf("Expected total 5, got %d", page.Total)
			}
			if len(page.Polls) != len(tc.expectedIDs) {
				t.Fatalf("Expected %d polls, got %d", len(tc.expectedIDs), len(page.Polls))
			}
			for i, id := range tc.expectedIDs {
				if page.Polls[i].ID != id {
					t.Errorf("Expected poll %d to be '%s', got '%s'", i, id, page.Polls[i].ID)
				}
				if len(page.Polls[i].Candidates) != 2 {
					t.Errorf("Expected 2 candidates on poll %s, got %v", id, page.Polls[i].Candidates)
				}
			}
		})
	}
}

func TestListPollsEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewPollHandler(db, testutil.GetTestConfig())

	w := httptest.NewRecorder()
	handler.ListPolls(w, httptest.NewRequest("GET", "/polls", nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var page models.PollPage
	testutil.AssertJSON(t, w, &page)
	if page.Polls == nil || len(page.Polls) != 0 {
		t.Errorf("Expected an empty list, got %v", page.Polls)
	}
}

func TestListPollsBadQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewPollHandler(db, testutil.GetTestConfig())

	queries := []string{
		"?offset=-1",
		"?offset=abc",
		"?limit=0",
		"?limit=101",
		"?limit=ten",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ListPolls(w, httptest.NewRequest("GET", "/polls"+q, nil))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestGetPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewPollHandler(db, testutil.GetTestConfig())

	pollID := testutil.CreateTestPoll(t, db, "Best L2", []string{"Arbitrum", "Optimism", "zkSync"}, 1000, 4600)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/"+pollID, nil)
		req.SetPathValue("id", pollID)
		w := httptest.NewRecorder()

		handler.GetPoll(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		var poll models.Poll
		testutil.AssertJSON(t, w, &poll)

		if poll.Title != "Best L2" {
			t.Errorf("Expected title 'Best L2', got '%s'", poll.Title)
		}
		if poll.StartTime != 1000 || poll.EndTime != 4600 {
			t.Errorf("Expected window [1000, 4600), got [%d, %d)", poll.StartTime, poll.EndTime)
		}
		if len(poll.Candidates) != 3 || poll.Candidates[2] != "zkSync" {
			t.Errorf("Expected candidates in index order, got %v", poll.Candidates)
		}
		if poll.Creator != "0xcreator" {
			t.Errorf("Expected creator '0xcreator', got '%s'", poll.Creator)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/99", nil)
		req.SetPathValue("id", "99")
		w := httptest.NewRecorder()

		handler.GetPoll(w, req)

		testutil.AssertStatus(t, w, http.StatusNotFound)
		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Code != models.ReasonPollNotFound {
			t.Errorf("Expected code '%s', got '%s'", models.ReasonPollNotFound, resp.Code)
		}
	})
}
