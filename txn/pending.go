// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package txn models an in-flight ledger write.
//
// A Pending resolves exactly once to Confirmed, Rejected or Dropped. Dropped
// means the ledger never acknowledged the write inside the timeout; the
// ledger state must be queried again before anything is assumed.
package txn

import (
	"context"
	"errors"
	"sync"
)

// ErrDropped reports a transaction with no ledger acknowledgment.
var ErrDropped = errors.New("transaction dropped without ledger acknowledgment")

type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusRejected
	StatusDropped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	case StatusDropped:
		return "dropped"
	}
	return "unknown"
}

// Progress is an intermediate notification.
type Progress struct {
	TxHash  string
	Stage   string
	Attempt int
}

type Outcome[T any] struct {
	Status Status
	Value  T
	Reason error
}

// Err returns nil for a confirmed outcome, the rejection reason, or ErrDropped.
func (o Outcome[T]) Err() error {
	switch o.Status {
	case StatusConfirmed:
		return nil
	case StatusRejected:
		return o.Reason
	default:
		return ErrDropped
	}
}

const progressBuffer = 16

type Pending[T any] struct {
	hash     string
	progress chan Progress
	done     chan struct{}

	mu       sync.Mutex
	resolved bool
	outcome  Outcome[T]
}

func New[T any](hash string) *Pending[T] {
	return &Pending[T]{
		hash:     hash,
		progress: make(chan Progress, progressBuffer),
		done:     make(chan struct{}),
	}
}

func (p *Pending[T]) Hash() string {
	return p.hash
}

// Progress delivers intermediate notifications. Notifications are dropped
// when nobody reads them; the channel is closed on resolution.
func (p *Pending[T]) Progress() <-chan Progress {
	return p.progress
}

// Done is closed once the outcome is known.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Outcome returns the terminal outcome if resolved.
func (p *Pending[T]) Outcome() (Outcome[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome, p.resolved
}

// Wait blocks until the outcome is known or ctx ends. Abandoning the wait
// does not affect the transaction.
func (p *Pending[T]) Wait(ctx context.Context) (Outcome[T], error) {
	select {
	case <-p.done:
		out, _ := p.Outcome()
		return out, nil
	case <-ctx.Done():
		return Outcome[T]{Status: StatusPending}, ctx.Err()
	}
}

func (p *Pending[T]) Notify(pr Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return
	}
	if pr.TxHash == "" {
		pr.TxHash = p.hash
	}
	select {
	case p.progress <- pr:
	default:
	}
}

func (p *Pending[T]) Confirm(v T) bool {
	return p.resolve(Outcome[T]{Status: StatusConfirmed, Value: v})
}

func (p *Pending[T]) Reject(reason error) bool {
	return p.resolve(Outcome[T]{Status: StatusRejected, Reason: reason})
}

func (p *Pending[T]) Drop() bool {
	return p.resolve(Outcome[T]{Status: StatusDropped, Reason: ErrDropped})
}

// resolve records the first terminal outcome; later calls are ignored.
func (p *Pending[T]) resolve(out Outcome[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return false
	}
	p.resolved = true
	p.outcome = out
	close(p.progress)
	close(p.done)
	return true
}

// Map follows src and resolves a new Pending with the converted value.
// A conversion error rejects the result.
func Map[S, T any](src *Pending[S], convert func(S) (T, error)) *Pending[T] {
	dst := New[T](src.Hash())
	go func() {
		for pr := range src.Progress() {
			dst.Notify(pr)
		}
		out, _ := src.Outcome()
		switch out.Status {
		case StatusConfirmed:
			v, err := convert(out.Value)
			if err != nil {
				dst.Reject(err)
				return
			}
			dst.Confirm(v)
		case StatusRejected:
			dst.Reject(out.Reason)
		default:
			dst.Drop()
		}
	}()
	return dst
}
