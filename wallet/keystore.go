// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/txn"
)

const keyExt = ".key"

// Prompter stands in for the wallet popup.
type Prompter interface {
	ApproveConnect(ctx context.Context, app string, accounts []Identity) (bool, error)
	ApproveTx(ctx context.Context, tx models.UnsignedTx, id Identity) (bool, error)
}

// Broadcaster delivers signed transactions to the ledger.
type Broadcaster interface {
	Broadcast(ctx context.Context, stx models.SignedTx) (*txn.Pending[models.TxReceipt], error)
}

// AutoApprove approves every request.
type AutoApprove struct{}

func (AutoApprove) ApproveConnect(context.Context, string, []Identity) (bool, error) {
	return true, nil
}

func (AutoApprove) ApproveTx(context.Context, models.UnsignedTx, Identity) (bool, error) {
	return true, nil
}

// Keystore is a development wallet holding ed25519 keys in memory.
type Keystore struct {
	app         string
	prompter    Prompter
	broadcaster Broadcaster

	mu    sync.RWMutex
	keys  map[string]ed25519.PrivateKey
	names map[string]string
	order []string
}

func NewKeystore(app string, prompter Prompter, broadcaster Broadcaster) *Keystore {
	if prompter == nil {
		prompter = AutoApprove{}
	}
	return &Keystore{
		app:         app,
		prompter:    prompter,
		broadcaster: broadcaster,
		keys:        make(map[string]ed25519.PrivateKey),
		names:       make(map[string]string),
	}
}

// Add registers a key under a display name and returns its identity.
func (k *Keystore) Add(name string, priv ed25519.PrivateKey) Identity {
	account := auth.AccountOf(priv)

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[account]; !ok {
		k.order = append(k.order, account)
	}
	k.keys[account] = priv
	k.names[account] = name
	return Identity{Account: account, Name: name}
}

// LoadDir adds every *.key file in dir, sorted by file name.
func (k *Keystore) LoadDir(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+keyExt))
	if err != nil {
		return 0, fmt.Errorf("failed to list keystore: %w", err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read key %s: %w", path, err)
		}
		priv, err := auth.KeyFromSeed(string(raw))
		if err != nil {
			return 0, fmt.Errorf("invalid key %s: %w", path, err)
		}
		k.Add(strings.TrimSuffix(filepath.Base(path), keyExt), priv)
	}
	return len(matches), nil
}

// SaveKey writes a new key named name into dir.
func SaveKey(dir, name string, priv ed25519.PrivateKey) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create keystore: %w", err)
	}
	path := filepath.Join(dir, name+keyExt)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("key %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(auth.SeedHex(priv)+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write key: %w", err)
	}
	return path, nil
}

func (k *Keystore) identities() []Identity {
	k.mu.RLock()
	defer k.mu.RUnlock()
	ids := make([]Identity, 0, len(k.order))
	for _, account := range k.order {
		ids = append(ids, Identity{Account: account, Name: k.names[account]})
	}
	return ids
}

func (k *Keystore) Accounts(ctx context.Context) ([]Identity, error) {
	ids := k.identities()
	if len(ids) == 0 {
		return nil, nil
	}
	ok, err := k.prompter.ApproveConnect(ctx, k.app, ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserCancelled
	}
	return ids, nil
}

func (k *Keystore) SignAndSubmit(ctx context.Context, tx models.UnsignedTx, id Identity) (*txn.Pending[models.TxReceipt], error) {
	k.mu.RLock()
	priv, ok := k.keys[id.Account]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown account %s", ErrNoIdentityAvailable, id.Account)
	}
	if k.broadcaster == nil {
		return nil, ErrNoProviderFound
	}

	approved, err := k.prompter.ApproveTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrUserCancelled, err)
		}
		return nil, err
	}
	if !approved {
		return nil, ErrUserCancelled
	}

	stx, err := auth.Sign(priv, tx)
	if err != nil {
		return nil, err
	}
	slog.Debug("transaction signed", "kind", tx.Kind, "from", stx.From)
	return k.broadcaster.Broadcast(ctx, stx)
}
