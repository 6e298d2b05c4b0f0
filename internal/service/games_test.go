package service

import (
	"context"
	"errors"
	"testing"

	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/testutil"
	"gamedict/internal/vote"
)

func TestGameCreateRequiresAdmin(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewGameService(store, nil)
	user := testutil.MustUser(t, store, "player", models.RoleRegular)

	tests := []struct {
		name    string
		actor   *models.Actor
		wantErr error
	}{
		{"anonymous", nil, ErrUnauthenticated},
		{"regular user", testutil.ActorOf(user), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.actor, GameInput{Name: "Tekken 8"}); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if games, _ := svc.List(context.Background()); len(games) != 0 {
		t.Error("Unauthorized creates must not insert")
	}
}

func TestGameCreateAndConflict(t *testing.T) {
	store := repository.NewMemoryStore()
	kv := repository.NewMemoryKV()
	svc := NewGameService(store, kv)
	admin := testutil.ActorOf(testutil.MustUser(t, store, "root", models.RoleAdmin))
	ctx := context.Background()

	game, err := svc.Create(ctx, admin, GameInput{Name: " Street Fighter 6 ", Icon: "sf6.png"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if game.Name != "Street Fighter 6" || game.Slug != "street-fighter-6" {
		t.Errorf("Unexpected game: %+v", game)
	}

	for _, name := range []string{"street fighter 6", "STREET FIGHTER 6"} {
		if _, err := svc.Create(ctx, admin, GameInput{Name: name}); !errors.Is(err, ErrConflict) {
			t.Errorf("%q: expected ErrConflict, got %v", name, err)
		}
	}
	if _, err := svc.Create(ctx, admin, GameInput{Name: "!!!"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	_, _ = svc.Create(ctx, admin, GameInput{Name: "Dead or Alive 6"})
	games, _ := svc.List(ctx)
	if len(games) != 2 || games[0].Name != "Dead or Alive 6" {
		t.Errorf("Games should be sorted by name: %+v", games)
	}
	if v, _ := kv.GetGlossaryVersion(ctx); v != 2 {
		t.Errorf("Expected 2 version bumps, got %d", v)
	}
}

func TestGameUpdate(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewGameService(store, nil)
	admin := testutil.ActorOf(testutil.MustUser(t, store, "root", models.RoleAdmin))
	ctx := context.Background()
	sf := testutil.MustGame(t, store, "Street Fighter 5")
	testutil.MustGame(t, store, "Tekken 8")

	updated, err := svc.Update(ctx, admin, sf.ID, GameInput{Name: "Street Fighter 6", Version: sf.Version})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Slug != "street-fighter-6" || updated.Version != sf.Version+1 {
		t.Errorf("Unexpected updated game: %+v", updated)
	}

	if _, err := svc.Update(ctx, admin, sf.ID, GameInput{Name: "Street Fighter 7", Version: sf.Version}); !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale, got %v", err)
	}
	if _, err := svc.Update(ctx, admin, sf.ID, GameInput{Name: "tekken 8"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict renaming onto another game, got %v", err)
	}
	if _, err := svc.Update(ctx, admin, 999, GameInput{Name: "Nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGameDeleteCascades(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewGameService(store, nil)
	votes := NewVoteService(store, nil, nil, true)
	ctx := context.Background()

	admin := testutil.MustUser(t, store, "root", models.RoleAdmin)
	alice := testutil.MustUser(t, store, "alice", models.RoleRegular)
	bob := testutil.MustUser(t, store, "bob", models.RoleRegular)
	doomed := testutil.MustGame(t, store, "MultiVersus")
	kept := testutil.MustGame(t, store, "Tekken 8")

	t1 := testutil.MustTerm(t, store, alice, doomed, "RING OUT")
	testutil.MustTerm(t, store, alice, doomed, "DODGE")
	testutil.MustTerm(t, store, bob, doomed, "PERK")
	testutil.MustTerm(t, store, alice, kept, "HEAT")
	_, _ = votes.Vote(ctx, testutil.ActorOf(bob), t1.ID, vote.Upvote)

	before, _ := store.ListTerms(ctx, models.TermQuery{})

	removed, err := svc.Delete(ctx, testutil.ActorOf(admin), doomed.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 removed terms, got %d", removed)
	}

	after, _ := store.ListTerms(ctx, models.TermQuery{})
	if len(before)-len(after) != 3 {
		t.Errorf("Term count should drop by exactly 3: %d -> %d", len(before), len(after))
	}
	left, _ := store.ListTerms(ctx, models.TermQuery{GameID: doomed.ID})
	if len(left) != 0 {
		t.Errorf("Expected no terms referencing the deleted game, got %d", len(left))
	}
	if _, err := store.FindGameByID(ctx, doomed.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Error("Game should be gone")
	}

	a, _ := store.FindUserByID(ctx, alice.ID)
	b, _ := store.FindUserByID(ctx, bob.ID)
	if a.TotalRating != 1 || b.TotalRating != 0 {
		t.Errorf("Expected totals alice=1 bob=0, got %d %d", a.TotalRating, b.TotalRating)
	}
	testutil.AssertConsistent(t, store)

	if _, err := svc.Delete(ctx, testutil.ActorOf(alice), kept.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Delete(ctx, testutil.ActorOf(admin), doomed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}
