package service

import (
	"context"
	"errors"
	"testing"

	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/testutil"
)

func TestApplyRatingDelta(t *testing.T) {
	tests := []struct {
		name      string
		missing   bool
		delta     int
		wantErr   error
		wantTotal int
	}{
		{"credit", false, 2, nil, 2},
		{"debit", false, -3, nil, -3},
		{"zero delta", false, 0, nil, 0},
		{"missing author", true, 2, ErrIntegrity, 0},
		{"missing author zero delta", true, 0, ErrIntegrity, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			ctx := context.Background()
			author := testutil.MustUser(t, store, "author", models.RoleRegular)
			id := author.ID
			if tt.missing {
				id = 404
			}

			err := Reputation{}.ApplyRatingDelta(ctx, store, id, tt.delta)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			got, _ := store.FindUserByID(ctx, author.ID)
			if got.TotalRating != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, got.TotalRating)
			}
		})
	}
}

func TestTermDeleteZeroRatedOrphan(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()

	orphan := &models.Term{Header: "ORPHAN", GameID: f.game.ID, SubmittedBy: 404, Rating: 0, UpvotedBy: []int64{}, DownvotedBy: []int64{}}
	if err := f.store.CreateTerm(ctx, orphan); err != nil {
		t.Fatalf("CreateTerm failed: %v", err)
	}

	if _, err := f.terms.Delete(ctx, testutil.ActorOf(f.admin), orphan.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("Expected ErrIntegrity, got %v", err)
	}
	if _, err := f.store.FindTermByID(ctx, orphan.ID); err != nil {
		t.Errorf("Failed delete must leave the term in place: %v", err)
	}
}
