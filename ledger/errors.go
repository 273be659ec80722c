// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/pollchain/models"
)

var (
	ErrInvalidPollSpec       = errors.New("invalid poll specification")
	ErrInvalidCandidateIndex = errors.New("candidate index out of range")
	ErrAlreadyVoted          = errors.New("account has already voted on this poll")
	ErrPollClosed            = errors.New("poll is closed")
	ErrPollNotStarted        = errors.New("poll has not started")
	ErrPollNotFound          = errors.New("poll not found")
	ErrBadSignature          = errors.New("ledger rejected the transaction signature")
	ErrMalformedTx           = errors.New("ledger could not decode the transaction")
)

// RejectionError carries a rejection code this client does not know.
type RejectionError struct {
	Code string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("ledger rejected transaction: %s", e.Code)
}

var reasons = map[string]error{
	models.ReasonAlreadyVoted:     ErrAlreadyVoted,
	models.ReasonPollClosed:       ErrPollClosed,
	models.ReasonPollNotStarted:   ErrPollNotStarted,
	models.ReasonPollNotFound:     ErrPollNotFound,
	models.ReasonInvalidCandidate: ErrInvalidCandidateIndex,
	models.ReasonInvalidPoll:      ErrInvalidPollSpec,
	models.ReasonBadSignature:     ErrBadSignature,
	models.ReasonMalformedTx:      ErrMalformedTx,
}

// ReasonError maps a ledger rejection code to its error.
func ReasonError(code string) error {
	if err, ok := reasons[code]; ok {
		return err
	}
	return &RejectionError{Code: code}
}

// ReasonCode is the inverse of ReasonError.
func ReasonCode(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Code
	}
	for code, known := range reasons {
		if errors.Is(err, known) {
			return code
		}
	}
	return ""
}
