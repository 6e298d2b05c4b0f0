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

type termsFixture struct {
	store *repository.MemoryStore
	terms *TermService
	votes *VoteService
	alice *models.User
	bob   *models.User
	admin *models.User
	game  *models.Game
}

func newTermsFixture(t *testing.T) *termsFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	return &termsFixture{
		store: store,
		terms: NewTermService(store, nil),
		votes: NewVoteService(store, nil, nil, true),
		alice: testutil.MustUser(t, store, "alice", models.RoleRegular),
		bob:   testutil.MustUser(t, store, "bob", models.RoleRegular),
		admin: testutil.MustUser(t, store, "root", models.RoleAdmin),
		game:  testutil.MustGame(t, store, "Tekken 8"),
	}
}

func (f *termsFixture) total(t *testing.T, u *models.User) int {
	t.Helper()
	got, err := f.store.FindUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	return got.TotalRating
}

func TestTermCreate(t *testing.T) {
	f := newTermsFixture(t)

	term, err := f.terms.Create(context.Background(), testutil.ActorOf(f.alice), TermInput{
		Header:          "  hellsweep ",
		GameName:        "tekken 8",
		ShortDefinition: "A low launcher",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if term.Header != "HELLSWEEP" || term.Rating != 1 || term.GameID != f.game.ID {
		t.Errorf("Unexpected term: %+v", term)
	}
	if len(term.UpvotedBy) != 1 || term.UpvotedBy[0] != int64(f.alice.ID) {
		t.Errorf("Author should be auto-upvoted, got %v", term.UpvotedBy)
	}
	if f.total(t, f.alice) != 1 {
		t.Errorf("Author should be credited 1, got %d", f.total(t, f.alice))
	}
	testutil.AssertConsistent(t, f.store)
}

func TestTermCreateErrors(t *testing.T) {
	f := newTermsFixture(t)

	tests := []struct {
		name    string
		actor   *models.Actor
		in      TermInput
		wantErr error
	}{
		{"anonymous", nil, TermInput{Header: "X", GameName: "Tekken 8", ShortDefinition: "y"}, ErrUnauthenticated},
		{"unsupported game", testutil.ActorOf(f.alice), TermInput{Header: "X", GameName: "Pong", ShortDefinition: "y"}, ErrNotFound},
		{"blank header", testutil.ActorOf(f.alice), TermInput{Header: "  ", GameName: "Tekken 8", ShortDefinition: "y"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.terms.Create(context.Background(), tt.actor, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if f.total(t, f.alice) != 0 {
		t.Error("Failed creates must not credit the author")
	}
}

func TestTermUpdatePreservesVotes(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	term := testutil.MustTerm(t, f.store, f.alice, f.game, "KBD")

	if _, err := f.votes.Vote(ctx, testutil.ActorOf(f.bob), term.ID, vote.Downvote); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}

	updated, err := f.terms.Update(ctx, testutil.ActorOf(f.alice), term.ID, TermInput{
		Header:          "korean backdash",
		GameName:        "Tekken 8",
		ShortDefinition: "Backdash cancelled into backdash",
		Version:         term.Version,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Header != "KOREAN BACKDASH" || updated.Rating != 0 {
		t.Errorf("Unexpected updated term: %+v", updated)
	}
	if updated.SubmittedBy != f.alice.ID || !updated.SubmittedAt.Equal(term.SubmittedAt) {
		t.Error("Author and submission date must be preserved")
	}
	if len(updated.DownvotedBy) != 1 || updated.DownvotedBy[0] != int64(f.bob.ID) {
		t.Errorf("Vote sets must be preserved, got down=%v", updated.DownvotedBy)
	}
	testutil.AssertConsistent(t, f.store)
}

func TestTermUpdateAuthorization(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	term := testutil.MustTerm(t, f.store, f.alice, f.game, "EWGF")
	in := TermInput{Header: "EWGF", GameName: "Tekken 8", ShortDefinition: "Electric"}

	if _, err := f.terms.Update(ctx, testutil.ActorOf(f.bob), term.ID, in); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-owner, got %v", err)
	}
	if _, err := f.terms.Update(ctx, testutil.ActorOf(f.admin), term.ID, in); err != nil {
		t.Errorf("Admin should be able to edit: %v", err)
	}
	if _, err := f.terms.Update(ctx, testutil.ActorOf(f.alice), 999, in); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTermUpdateRejectsStaleVersion(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	term := testutil.MustTerm(t, f.store, f.alice, f.game, "WAVEDASH")
	in := TermInput{Header: "WAVEDASH", GameName: "Tekken 8", ShortDefinition: "first", Version: term.Version}

	if _, err := f.terms.Update(ctx, testutil.ActorOf(f.alice), term.ID, in); err != nil {
		t.Fatalf("First update failed: %v", err)
	}
	in.ShortDefinition = "second"
	if _, err := f.terms.Update(ctx, testutil.ActorOf(f.admin), term.ID, in); !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale, got %v", err)
	}
	got, _ := f.store.FindTermByID(ctx, term.ID)
	if got.ShortDefinition != "first" {
		t.Errorf("Stale write overwrote content: %q", got.ShortDefinition)
	}
}

func TestTermDeleteRollsBackRating(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	keep := testutil.MustTerm(t, f.store, f.alice, f.game, "KEEP")
	term := testutil.MustTerm(t, f.store, f.alice, f.game, "DOOMED")

	carol := testutil.MustUser(t, f.store, "carol", models.RoleRegular)
	for _, u := range []*models.User{f.bob, carol} {
		if _, err := f.votes.Vote(ctx, testutil.ActorOf(u), term.ID, vote.Upvote); err != nil {
			t.Fatalf("Vote failed: %v", err)
		}
	}
	if f.total(t, f.alice) != 4 {
		t.Fatalf("Expected alice total 4 before delete, got %d", f.total(t, f.alice))
	}

	if _, err := f.terms.Delete(ctx, testutil.ActorOf(f.bob), term.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden for non-owner, got %v", err)
	}
	if f.total(t, f.alice) != 4 {
		t.Fatal("Forbidden delete must not mutate")
	}

	deleted, err := f.terms.Delete(ctx, testutil.ActorOf(f.alice), term.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.Rating != 3 {
		t.Errorf("Expected deleted rating 3, got %d", deleted.Rating)
	}
	if f.total(t, f.alice) != 1 {
		t.Errorf("Expected alice total 1 after delete, got %d", f.total(t, f.alice))
	}
	if _, err := f.store.FindTermByID(ctx, term.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Error("Term should be gone")
	}
	if _, err := f.store.FindTermByID(ctx, keep.ID); err != nil {
		t.Error("Other terms must survive")
	}
	testutil.AssertConsistent(t, f.store)
}

func TestTermDeleteNegativeRating(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	term := testutil.MustTerm(t, f.store, f.alice, f.game, "SCRUB")

	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.alice), term.ID, vote.Downvote)
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.bob), term.ID, vote.Downvote)
	if f.total(t, f.alice) != -2 {
		t.Fatalf("Expected alice total -2, got %d", f.total(t, f.alice))
	}

	if _, err := f.terms.Delete(ctx, testutil.ActorOf(f.admin), term.ID); err != nil {
		t.Fatalf("Admin delete failed: %v", err)
	}
	if f.total(t, f.alice) != 0 {
		t.Errorf("Expected alice total 0, got %d", f.total(t, f.alice))
	}
}

func TestListVisibleThreshold(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	term := testutil.MustTerm(t, f.store, f.alice, f.game, "PUNISH")
	carol := testutil.MustUser(t, f.store, "carol", models.RoleRegular)

	visible := func() bool {
		resp, err := f.terms.ListVisible(ctx, nil, TermFilter{})
		if err != nil {
			t.Fatalf("ListVisible failed: %v", err)
		}
		return len(resp.Terms) == 1
	}

	// 1 -> -1 (alice flips to DOWN) -> -2 (bob DOWN): hidden at -2
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.alice), term.ID, vote.Downvote)
	if !visible() {
		t.Error("Term at -1 should be visible")
	}
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.bob), term.ID, vote.Downvote)
	if visible() {
		t.Error("Term at -2 should be hidden")
	}
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(carol), term.ID, vote.Downvote)
	if visible() {
		t.Error("Term at -3 should be hidden")
	}

	// carol retracts: back to -2, still hidden; bob retracts: -1, visible again
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(carol), term.ID, vote.Downvote)
	if visible() {
		t.Error("Term at -2 should be hidden")
	}
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.bob), term.ID, vote.Downvote)
	if !visible() {
		t.Error("Term should reappear once rating rises above -2")
	}

	profile, err := f.terms.Profile(ctx, nil, "alice")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if len(profile.Terms) != 1 {
		t.Error("Profile lists all of the author's terms")
	}
}

func TestListVisibleFiltersAndViews(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	other := testutil.MustGame(t, f.store, "Guilty Gear Strive")
	testutil.MustTerm(t, f.store, f.alice, f.game, "BNB")
	rc := testutil.MustTerm(t, f.store, f.alice, other, "ROMAN CANCEL")
	testutil.MustTerm(t, f.store, f.bob, other, "BURST")

	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.bob), rc.ID, vote.Upvote)

	resp, err := f.terms.ListVisible(ctx, testutil.ActorOf(f.bob), TermFilter{})
	if err != nil {
		t.Fatalf("ListVisible failed: %v", err)
	}
	if len(resp.Games) != 2 || resp.Games[0].Name != "Guilty Gear Strive" {
		t.Errorf("Games should be sorted by name: %+v", resp.Games)
	}
	headers := []string{}
	for _, v := range resp.Terms {
		headers = append(headers, v.Header)
	}
	if len(headers) != 3 || headers[0] != "BNB" || headers[1] != "BURST" || headers[2] != "ROMAN CANCEL" {
		t.Errorf("Unexpected order: %v", headers)
	}
	rcView := resp.Terms[2]
	if rcView.AuthorName != "alice" || rcView.GameName != "Guilty Gear Strive" || rcView.MyVote != "up" || rcView.CanEdit {
		t.Errorf("Unexpected view: %+v", rcView)
	}
	if !resp.Terms[1].CanEdit {
		t.Error("bob should be able to edit his own term")
	}

	byGame, _ := f.terms.ListVisible(ctx, nil, TermFilter{GameSlug: "guilty-gear-strive"})
	if len(byGame.Terms) != 2 {
		t.Errorf("Expected 2 terms for the slug filter, got %d", len(byGame.Terms))
	}
	byLetter, _ := f.terms.ListVisible(ctx, nil, TermFilter{Letter: "b"})
	if len(byLetter.Terms) != 2 {
		t.Errorf("Expected 2 terms starting with B, got %d", len(byLetter.Terms))
	}
	unknown, _ := f.terms.ListVisible(ctx, nil, TermFilter{GameSlug: "pong"})
	if len(unknown.Terms) != 0 {
		t.Error("Unknown game slug should list nothing")
	}
}

func TestProfileOrderings(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	a := testutil.MustTerm(t, f.store, f.alice, f.game, "ALPHA")
	z := testutil.MustTerm(t, f.store, f.alice, f.game, "ZETA")
	testutil.MustTerm(t, f.store, f.bob, f.game, "OTHER")

	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.bob), z.ID, vote.Upvote)
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.bob), a.ID, vote.Downvote)
	_, _ = f.votes.Vote(ctx, testutil.ActorOf(f.admin), a.ID, vote.Downvote)

	p, err := f.terms.Profile(ctx, nil, "ALICE")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.TotalRating != 1 {
		t.Errorf("Expected total 1 (ALPHA -1, ZETA 2), got %d", p.TotalRating)
	}
	if len(p.Terms) != 2 || p.Terms[0].Header != "ALPHA" {
		t.Errorf("Alphabetical ordering wrong: %+v", p.Terms)
	}
	if len(p.TopRated) != 2 || p.TopRated[0].Header != "ZETA" {
		t.Errorf("Top-rated ordering wrong: %+v", p.TopRated)
	}

	if _, err := f.terms.Profile(ctx, nil, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
