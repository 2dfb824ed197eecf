package lock

import (
	"context"
	"fmt"
)

// SuggestionMargin is added to the latest block timestamp to suggest a
// valid unlock time.
const SuggestionMargin = 100

// CheckUnlockTime reports whether candidate is strictly later than the
// latest block timestamp. The check is advisory; the contract enforces the
// same rule on deployment.
func (s *Service) CheckUnlockTime(ctx context.Context, candidate uint64) (Validity, error) {
	latest, err := s.reader.LatestBlockTimestamp(ctx)
	if err != nil {
		return Validity{}, fmt.Errorf("reading latest block: %w", err)
	}
	return validate(candidate, latest), nil
}

func validate(candidate, latest uint64) Validity {
	v := Validity{
		Valid:              candidate > latest,
		Candidate:          candidate,
		ReferenceTimestamp: latest,
	}
	if !v.Valid {
		v.Suggested = latest + SuggestionMargin
	}
	return v
}
