// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/danielhkuo/pollchain/models"
)

var (
	ErrUnknownPoll  = errors.New("poll not in store")
	ErrTerminalVote = errors.New("vote record is already terminal")
)

const DefaultSize = 512

// Entry is everything the client knows about one poll. Entries handed
// out by the store are copies.
type Entry struct {
	Poll        models.Poll
	Tallies     *models.TallySnapshot
	Votes       map[string]models.VoteRecord // keyed by voter account
	RefreshedAt time.Time
}

func (e Entry) clone() Entry {
	out := e
	out.Poll.Candidates = append([]string(nil), e.Poll.Candidates...)
	if e.Tallies != nil {
		t := *e.Tallies
		t.Counts = make(map[int]uint64, len(e.Tallies.Counts))
		for k, v := range e.Tallies.Counts {
			t.Counts[k] = v
		}
		out.Tallies = &t
	}
	out.Votes = make(map[string]models.VoteRecord, len(e.Votes))
	for k, v := range e.Votes {
		out.Votes[k] = v
	}
	return out
}

// Store caches polls by id. Updates to one entry are applied to a copy
// and swapped in whole, so readers never observe a partial update.
type Store struct {
	mu      sync.Mutex
	entries *lru.Cache
	now     func() time.Time
}

// New creates a store holding at most size polls.
func New(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll cache: %w", err)
	}
	return &Store{entries: cache, now: time.Now}, nil
}

func (s *Store) get(pollID string) (Entry, bool) {
	v, ok := s.entries.Get(pollID)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Entry returns a copy of the entry for pollID.
func (s *Store) Entry(pollID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(pollID)
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Update applies fn to a copy of the entry and stores the result unless
// fn returns an error. A missing entry is created only when create is set.
func (s *Store) Update(pollID string, create bool, fn func(*Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(pollID)
	if !ok {
		if !create {
			return fmt.Errorf("%w: %s", ErrUnknownPoll, pollID)
		}
		e = Entry{Poll: models.Poll{ID: pollID}}
	}
	next := e.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.entries.Add(pollID, next)
	return nil
}

// PutPoll records ledger-confirmed poll metadata, keeping local vote and tally state.
func (s *Store) PutPoll(p models.Poll) {
	_ = s.Update(p.ID, true, func(e *Entry) error {
		e.Poll = p
		e.Poll.Candidates = append([]string(nil), p.Candidates...)
		e.RefreshedAt = s.now()
		return nil
	})
}

// Poll returns the cached poll.
func (s *Store) Poll(pollID string) (models.Poll, bool) {
	e, ok := s.Entry(pollID)
	if !ok || len(e.Poll.Candidates) == 0 {
		return models.Poll{}, false
	}
	return e.Poll, true
}

// Polls returns cached polls from least to most recently used.
func (s *Store) Polls() []models.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Poll
	for _, k := range s.entries.Keys() {
		v, ok := s.entries.Peek(k)
		if !ok {
			continue
		}
		e := v.(Entry)
		if len(e.Poll.Candidates) == 0 {
			continue
		}
		out = append(out, e.clone().Poll)
	}
	return out
}

// PutTallies replaces the tally snapshot wholesale.
func (s *Store) PutTallies(t models.TallySnapshot) {
	_ = s.Update(t.PollID, true, func(e *Entry) error {
		counts := make(map[int]uint64, len(t.Counts))
		for k, v := range t.Counts {
			counts[k] = v
		}
		t.Counts = counts
		e.Tallies = &t
		return nil
	})
}

// Tallies returns the last snapshot stored for a poll.
func (s *Store) Tallies(pollID string) (models.TallySnapshot, bool) {
	e, ok := s.Entry(pollID)
	if !ok || e.Tallies == nil {
		return models.TallySnapshot{}, false
	}
	return *e.Tallies, true
}

// PutVote writes a vote record. A terminal record is never replaced.
func (s *Store) PutVote(rec models.VoteRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}
	return s.Update(rec.PollID, true, func(e *Entry) error {
		if cur, ok := e.Votes[rec.Voter]; ok && cur.State.Terminal() {
			return fmt.Errorf("%w: %s for %s on poll %s", ErrTerminalVote, cur.State, rec.Voter, rec.PollID)
		}
		e.Votes[rec.Voter] = rec
		return nil
	})
}

// Vote returns the voter's record on a poll.
func (s *Store) Vote(pollID, voter string) (models.VoteRecord, bool) {
	e, ok := s.Entry(pollID)
	if !ok {
		return models.VoteRecord{}, false
	}
	rec, ok := e.Votes[voter]
	return rec, ok
}

// ClearVote drops a pending record, e.g. after reconciliation shows an
// unacknowledged vote never landed.
func (s *Store) ClearVote(pollID, voter string) error {
	err := s.Update(pollID, false, func(e *Entry) error {
		if cur, ok := e.Votes[voter]; ok && cur.State.Terminal() {
			return fmt.Errorf("%w: %s vote cannot be cleared", ErrTerminalVote, cur.State)
		}
		delete(e.Votes, voter)
		return nil
	})
	if errors.Is(err, ErrUnknownPoll) {
		return nil
	}
	return err
}

// PendingVotes lists every unresolved vote record.
func (s *Store) PendingVotes() []models.VoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.VoteRecord
	for _, k := range s.entries.Keys() {
		v, ok := s.entries.Peek(k)
		if !ok {
			continue
		}
		for _, rec := range v.(Entry).Votes {
			if rec.State == models.TxPending {
				out = append(out, rec)
			}
		}
	}
	return out
}

// Len reports how many polls are cached.
func (s *Store) Len() int {
	return s.entries.Len()
}
