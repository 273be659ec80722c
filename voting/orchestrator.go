// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/pollchain/ledger"
	"github.com/danielhkuo/pollchain/lifecycle"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/store"
	"github.com/danielhkuo/pollchain/txn"
	"github.com/danielhkuo/pollchain/wallet"
)

var (
	ErrPollNotOpen          = errors.New("poll is not open for voting")
	ErrSubmissionInProgress = errors.New("a vote submission is already in progress")
)

// State is the local voting state of one (poll, voter) pair.
type State int

const (
	Unvoted State = iota
	Submitting
	Confirmed
	Rejected
	Indeterminate
)

func (s State) String() string {
	switch s {
	case Unvoted:
		return "unvoted"
	case Submitting:
		return "submitting"
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	case Indeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// Ledger is the part of ledger.Gateway the orchestrator needs.
type Ledger interface {
	SubmitVote(ctx context.Context, pollID string, candidateIndex int) (*txn.Pending[struct{}], error)
	HasVoted(ctx context.Context, pollID, account string) (bool, error)
}

// Identities reports the connected account. *wallet.Session implements it.
type Identities interface {
	CurrentIdentity() (wallet.Identity, bool)
}

// Result is the outcome of a CastVote call.
type Result struct {
	State  State
	TxHash string
	Reason error // set when Rejected
}

type key struct {
	pollID string
	voter  string
}

// Orchestrator drives one vote at a time per (poll, voter) pair.
type Orchestrator struct {
	ledger     Ledger
	identities Identities
	store      *store.Store
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[key]struct{}
	wg       sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used to classify polls and stamp records.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator that records votes in st.
func New(l Ledger, ids Identities, st *store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:     l,
		identities: ids,
		store:      st,
		now:        time.Now,
		logger:     slog.Default(),
		inflight:   make(map[key]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) acquire(k key) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[k]; busy {
		return false
	}
	o.inflight[k] = struct{}{}
	return true
}

func (o *Orchestrator) release(k key) {
	o.mu.Lock()
	delete(o.inflight, k)
	o.mu.Unlock()
}

func (o *Orchestrator) busy(k key) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[k]
	return ok
}

// CastVote submits a vote for the connected account and waits for the
// ledger's verdict.
//
// If ctx ends first, CastVote returns ctx.Err() with state Submitting. The
// transaction keeps being observed and its outcome is recorded when it
// arrives; until then further votes on the same poll fail with
// ErrSubmissionInProgress.
func (o *Orchestrator) CastVote(ctx context.Context, poll models.Poll, candidateIndex int) (Result, error) {
	if phase := lifecycle.Of(poll, o.now()); phase != lifecycle.Ongoing {
		return Result{State: o.State(poll.ID)}, fmt.Errorf("%w: poll %s is %s", ErrPollNotOpen, poll.ID, phase)
	}
	id, ok := o.identities.CurrentIdentity()
	if !ok {
		return Result{State: Unvoted}, wallet.ErrNotConnected
	}

	k := key{pollID: poll.ID, voter: id.Account}
	if !o.acquire(k) {
		return Result{State: Submitting}, ErrSubmissionInProgress
	}
	handedOff := false
	defer func() {
		if !handedOff {
			o.release(k)
		}
	}()

	if rec, ok := o.store.Vote(poll.ID, id.Account); ok {
		switch rec.State {
		case models.TxConfirmed:
			return Result{State: Confirmed, TxHash: rec.TxHash}, ledger.ErrAlreadyVoted
		case models.TxFailed:
			reason := ledger.ReasonError(rec.Reason)
			return Result{State: Rejected, TxHash: rec.TxHash, Reason: reason}, reason
		case models.TxPending:
			state, err := o.reconcile(ctx, k)
			if err != nil {
				return Result{State: state, TxHash: rec.TxHash}, fmt.Errorf("failed to reconcile earlier vote: %w", err)
			}
			if state == Confirmed {
				return Result{State: Confirmed, TxHash: rec.TxHash}, ledger.ErrAlreadyVoted
			}
		}
	}

	if err := ledger.ValidateCandidateIndex(candidateIndex, len(poll.Candidates)); err != nil {
		return Result{State: Unvoted}, err
	}

	rec := models.VoteRecord{
		PollID:         poll.ID,
		Voter:          id.Account,
		CandidateIndex: candidateIndex,
		State:          models.TxPending,
	}
	if err := o.store.PutVote(rec); err != nil {
		return Result{State: o.stateOf(k)}, err
	}

	pending, err := o.ledger.SubmitVote(ctx, poll.ID, candidateIndex)
	if err != nil {
		if cerr := o.store.ClearVote(poll.ID, id.Account); cerr != nil {
			o.logger.Error("failed to clear vote after submit error", "poll_id", poll.ID, "error", cerr)
		}
		return Result{State: Unvoted}, err
	}

	rec.TxHash = pending.Hash()
	if err := o.store.PutVote(rec); err != nil {
		o.logger.Error("failed to record vote hash", "poll_id", poll.ID, "tx_hash", rec.TxHash, "error", err)
	}
	o.logger.Info("vote submitted", "poll_id", poll.ID, "voter", id.Account, "tx_hash", rec.TxHash)

	type settled struct {
		res Result
		err error
	}
	done := make(chan settled, 1)
	handedOff = true
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		res, err := o.settle(k, rec, pending)
		done <- settled{res, err}
	}()

	select {
	case s := <-done:
		return s.res, s.err
	case <-ctx.Done():
		o.logger.Info("stopped waiting for vote", "poll_id", poll.ID, "tx_hash", rec.TxHash)
		return Result{State: Submitting, TxHash: rec.TxHash}, ctx.Err()
	}
}

// settle records the outcome of a submitted vote and frees the pair.
func (o *Orchestrator) settle(k key, rec models.VoteRecord, pending *txn.Pending[struct{}]) (Result, error) {
	defer o.release(k)

	<-pending.Done()
	out, _ := pending.Outcome()
	rec.UpdatedAt = o.now()

	switch out.Status {
	case txn.StatusConfirmed:
		rec.State = models.TxConfirmed
		o.put(rec)
		o.logger.Info("vote confirmed", "poll_id", rec.PollID, "tx_hash", rec.TxHash)
		return Result{State: Confirmed, TxHash: rec.TxHash}, nil

	case txn.StatusRejected:
		rec.State = models.TxFailed
		rec.Reason = ledger.ReasonCode(out.Reason)
		o.put(rec)
		o.logger.Warn("vote rejected", "poll_id", rec.PollID, "tx_hash", rec.TxHash, "reason", out.Reason)
		return Result{State: Rejected, TxHash: rec.TxHash, Reason: out.Reason}, out.Reason

	default:
		o.logger.Warn("vote dropped", "poll_id", rec.PollID, "tx_hash", rec.TxHash)
		return Result{State: Indeterminate, TxHash: rec.TxHash}, txn.ErrDropped
	}
}

func (o *Orchestrator) put(rec models.VoteRecord) {
	if err := o.store.PutVote(rec); err != nil {
		o.logger.Error("failed to record vote outcome", "poll_id", rec.PollID, "tx_hash", rec.TxHash, "error", err)
	}
}

// State reports the connected account's state on a poll.
func (o *Orchestrator) State(pollID string) State {
	id, ok := o.identities.CurrentIdentity()
	if !ok {
		return Unvoted
	}
	return o.stateOf(key{pollID: pollID, voter: id.Account})
}

func (o *Orchestrator) stateOf(k key) State {
	if o.busy(k) {
		return Submitting
	}
	rec, ok := o.store.Vote(k.pollID, k.voter)
	if !ok {
		return Unvoted
	}
	return stateOfRecord(rec)
}

func stateOfRecord(rec models.VoteRecord) State {
	switch rec.State {
	case models.TxConfirmed:
		return Confirmed
	case models.TxFailed:
		return Rejected
	default:
		return Indeterminate
	}
}

// Reconcile asks the ledger whether the connected account has voted on
// pollID and updates the local record to match.
func (o *Orchestrator) Reconcile(ctx context.Context, pollID string) (State, error) {
	id, ok := o.identities.CurrentIdentity()
	if !ok {
		return Unvoted, wallet.ErrNotConnected
	}
	k := key{pollID: pollID, voter: id.Account}
	if !o.acquire(k) {
		return Submitting, ErrSubmissionInProgress
	}
	defer o.release(k)
	return o.reconcile(ctx, k)
}

// reconcile must be called with k held.
func (o *Orchestrator) reconcile(ctx context.Context, k key) (State, error) {
	rec, known := o.store.Vote(k.pollID, k.voter)
	if known && rec.State.Terminal() {
		return stateOfRecord(rec), nil
	}

	voted, err := o.ledger.HasVoted(ctx, k.pollID, k.voter)
	if err != nil {
		if known {
			return Indeterminate, err
		}
		return Unvoted, err
	}

	if voted {
		if !known {
			rec = models.VoteRecord{PollID: k.pollID, Voter: k.voter, CandidateIndex: -1}
		}
		rec.State = models.TxConfirmed
		rec.UpdatedAt = o.now()
		if err := o.store.PutVote(rec); err != nil {
			return o.stateOf(k), err
		}
		if known {
			o.logger.Info("pending vote reconciled as confirmed", "poll_id", k.pollID, "tx_hash", rec.TxHash)
		}
		return Confirmed, nil
	}

	if known {
		if err := o.store.ClearVote(k.pollID, k.voter); err != nil {
			return o.stateOf(k), err
		}
		o.logger.Info("pending vote never reached the ledger", "poll_id", k.pollID, "tx_hash", rec.TxHash)
	}
	return Unvoted, nil
}

// RunReconciler periodically reconciles every indeterminate vote until ctx
// ends. Pairs with a submission in flight are skipped.
func (o *Orchestrator) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.reconcilePending(ctx)
		}
	}
}

func (o *Orchestrator) reconcilePending(ctx context.Context) {
	for _, rec := range o.store.PendingVotes() {
		k := key{pollID: rec.PollID, voter: rec.Voter}
		if !o.acquire(k) {
			continue
		}
		state, err := o.reconcile(ctx, k)
		o.release(k)
		if err != nil {
			o.logger.Warn("reconcile failed", "poll_id", rec.PollID, "voter", rec.Voter, "error", err)
			continue
		}
		o.logger.Debug("reconciled vote", "poll_id", rec.PollID, "voter", rec.Voter, "state", state)
	}
}

// Wait blocks until every background observation has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
