// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/txn"
)

var (
	ErrNoProviderFound     = errors.New("no wallet provider found")
	ErrNoIdentityAvailable = errors.New("wallet has no accounts available")
	ErrUserCancelled       = errors.New("wallet request cancelled by user")
	ErrNotConnected        = errors.New("wallet not connected")
)

type Identity struct {
	Account string `json:"account"`
	Name    string `json:"name,omitempty"`
}

// Provider is the external wallet.
type Provider interface {
	// Accounts may prompt a human and block until they respond.
	Accounts(ctx context.Context) ([]Identity, error)
	SignAndSubmit(ctx context.Context, tx models.UnsignedTx, id Identity) (*txn.Pending[models.TxReceipt], error)
}

// Session is the process-wide connection to a wallet. It is created on
// Connect and torn down by Disconnect; it never reconnects on its own.
type Session struct {
	provider Provider

	mu       sync.RWMutex
	identity *Identity
}

func NewSession(provider Provider) *Session {
	return &Session{provider: provider}
}

// Connect asks the provider for its accounts and selects the first one.
// A connected session returns its identity without prompting again.
func (s *Session) Connect(ctx context.Context) (Identity, error) {
	if id, ok := s.CurrentIdentity(); ok {
		return id, nil
	}
	if s.provider == nil {
		return Identity{}, ErrNoProviderFound
	}

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Identity{}, fmt.Errorf("%w: %v", ErrUserCancelled, err)
		}
		return Identity{}, err
	}
	if len(accounts) == 0 {
		return Identity{}, ErrNoIdentityAvailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		selected := accounts[0]
		s.identity = &selected
		slog.Info("wallet connected", "account", selected.Account)
	}
	return *s.identity, nil
}

// CurrentIdentity never blocks on the provider.
func (s *Session) CurrentIdentity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil {
		slog.Info("wallet disconnected", "account", s.identity.Account)
	}
	s.identity = nil
}

// SignAndSubmit hands tx to the provider under the current identity.
func (s *Session) SignAndSubmit(ctx context.Context, tx models.UnsignedTx) (*txn.Pending[models.TxReceipt], error) {
	id, ok := s.CurrentIdentity()
	if !ok {
		return nil, ErrNotConnected
	}
	if s.provider == nil {
		return nil, ErrNoProviderFound
	}
	p, err := s.provider.SignAndSubmit(ctx, tx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrUserCancelled, err)
		}
		return nil, err
	}
	return p, nil
}
