package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gamedict/internal/repository"
)

// Reputation is the only writer of users.total_rating. Every call must run
// inside the same store transaction as the rating change it mirrors.
type Reputation struct{}

// ApplyRatingDelta atomically adds delta to the author's total_rating. A zero
// delta writes nothing but still requires the author to exist.
func (Reputation) ApplyRatingDelta(ctx context.Context, tx repository.Store, authorID uint, delta int) error {
	var err error
	if delta == 0 {
		_, err = tx.FindUserByID(ctx, authorID)
	} else {
		err = tx.IncrementUserRating(ctx, authorID, delta)
	}
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("❌ INTEGRITY: author %d missing while applying rating delta %+d", authorID, delta)
		return fmt.Errorf("%w: author %d does not exist", ErrIntegrity, authorID)
	}
	if err != nil {
		return fmt.Errorf("failed to apply rating delta to user %d: %w", authorID, err)
	}
	return nil
}
