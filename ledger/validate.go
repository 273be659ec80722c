// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"strings"
)

// ValidatePollSpec checks a poll before it is sent anywhere.
func ValidatePollSpec(title string, candidates []string, durationMinutes int) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPollSpec)
	}
	if len(candidates) < 2 {
		return fmt.Errorf("%w: at least 2 candidates required, got %d", ErrInvalidPollSpec, len(candidates))
	}
	for i, c := range candidates {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: candidate %d is empty", ErrInvalidPollSpec, i)
		}
	}
	if durationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d minutes", ErrInvalidPollSpec, durationMinutes)
	}
	return nil
}

// ValidateCandidateIndex checks idx against a poll with n candidates.
func ValidateCandidateIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidCandidateIndex, idx, n)
	}
	return nil
}
