// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/danielhkuo/pollchain/models"
)

var (
	ErrInvalidAccount   = errors.New("invalid account format")
	ErrInvalidSignature = errors.New("invalid signature")
)

const accountPrefix = "0x"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateKey creates a fresh ed25519 signing key
func GenerateKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return priv, nil
}

// KeyFromSeed restores a private key from its hex encoded seed
func KeyFromSeed(seedHex string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(seedHex))
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// SeedHex is the inverse of KeyFromSeed
func SeedHex(priv ed25519.PrivateKey) string {
	return hex.EncodeToString(priv.Seed())
}

// AccountOf derives the account identifier (0x + hex public key)
func AccountOf(priv ed25519.PrivateKey) string {
	return accountPrefix + hex.EncodeToString(priv.Public().(ed25519.PublicKey))
}

// PublicKeyOf parses an account identifier back into a public key
func PublicKeyOf(account string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(account, accountPrefix) {
		return nil, ErrInvalidAccount
	}
	raw, err := hex.DecodeString(account[len(accountPrefix):])
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidAccount
	}
	return ed25519.PublicKey(raw), nil
}

// SigningBytes is the canonical message a sender signs for a transaction
func SigningBytes(tx models.UnsignedTx, from string) ([]byte, error) {
	var body bytes.Buffer
	if len(tx.Body) > 0 {
		if err := json.Compact(&body, tx.Body); err != nil {
			return nil, fmt.Errorf("failed to compact body: %w", err)
		}
	}
	msg, err := json.Marshal(struct {
		Kind  string          `json:"kind"`
		From  string          `json:"from"`
		Nonce string          `json:"nonce"`
		Body  json.RawMessage `json:"body"`
	}{tx.Kind, from, tx.Nonce, json.RawMessage(body.Bytes())})
	if err != nil {
		return nil, fmt.Errorf("failed to encode signing bytes: %w", err)
	}
	return msg, nil
}

// Sign signs tx as the account owning priv
func Sign(priv ed25519.PrivateKey, tx models.UnsignedTx) (models.SignedTx, error) {
	from := AccountOf(priv)
	msg, err := SigningBytes(tx, from)
	if err != nil {
		return models.SignedTx{}, err
	}
	sig := ed25519.Sign(priv, msg)
	return models.SignedTx{
		Kind:      tx.Kind,
		From:      from,
		Nonce:     tx.Nonce,
		Body:      tx.Body,
		Signature: base64.RawURLEncoding.EncodeToString(sig),
	}, nil
}

// VerifySignature checks that stx was signed by stx.From
func VerifySignature(stx models.SignedTx) error {
	pub, err := PublicKeyOf(stx.From)
	if err != nil {
		return err
	}
	sig, err := base64.RawURLEncoding.DecodeString(stx.Signature)
	if err != nil {
		return ErrInvalidSignature
	}
	msg, err := SigningBytes(unsigned(stx), stx.From)
	if err != nil {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(pub, msg, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// TxHash identifies a signed transaction. Both the sender and the ledger
// derive it, so a submission whose response is lost can still be tracked.
func TxHash(stx models.SignedTx) (string, error) {
	msg, err := SigningBytes(unsigned(stx), stx.From)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(msg)
	h.Write([]byte(stx.Signature))
	return accountPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ShortenAccount abbreviates an account for display, e.g. 0x5E9...aF3
func ShortenAccount(account string) string {
	if len(account) <= 10 {
		return account
	}
	return account[:5] + "..." + account[len(account)-3:]
}

func unsigned(stx models.SignedTx) models.UnsignedTx {
	return models.UnsignedTx{Kind: stx.Kind, Nonce: stx.Nonce, Body: stx.Body}
}
