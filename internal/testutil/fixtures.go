// Package testutil holds fixtures shared by package tests
package testutil

import (
	"context"
	"testing"
	"time"

	"gamedict/internal/models"
	"gamedict/internal/repository"

	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plain-text password of every fixture user
const Password = "password123"

// MustUser creates a user with Password and the given role
func MustUser(t *testing.T, store repository.Store, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash fixture password: %v", err)
	}
	user := &models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %q: %v", username, err)
	}
	return user
}

// MustGame creates a game
func MustGame(t *testing.T, store repository.Store, name string) *models.Game {
	t.Helper()
	game := &models.Game{Name: name, Slug: slug.Make(name)}
	if err := store.CreateGame(context.Background(), game); err != nil {
		t.Fatalf("failed to create game %q: %v", name, err)
	}
	return game
}

// MustTerm stores a freshly submitted term the way a real submission leaves
// it: rating 1, author auto-upvoted and credited
func MustTerm(t *testing.T, store repository.Store, author *models.User, game *models.Game, header string) *models.Term {
	t.Helper()
	ctx := context.Background()
	term := &models.Term{
		Header:          header,
		GameID:          game.ID,
		ShortDefinition: "definition of " + header,
		SubmittedBy:     author.ID,
		SubmittedAt:     time.Now().UTC(),
		Rating:          1,
		UpvotedBy:       []int64{int64(author.ID)},
		DownvotedBy:     []int64{},
	}
	if err := store.CreateTerm(ctx, term); err != nil {
		t.Fatalf("failed to create term %q: %v", header, err)
	}
	if err := store.IncrementUserRating(ctx, author.ID, 1); err != nil {
		t.Fatalf("failed to credit author: %v", err)
	}
	return term
}

// ActorOf returns the request identity of user
func ActorOf(user *models.User) *models.Actor {
	a := models.ActorOf(user)
	return &a
}

// AssertConsistent checks the rating invariants across the whole store:
// disjoint vote sets, ratings in lockstep with membership, and every user's
// total equal to the sum of their terms' ratings
func AssertConsistent(t *testing.T, store repository.Store) {
	t.Helper()
	ctx := context.Background()

	terms, err := store.ListTerms(ctx, models.TermQuery{})
	if err != nil {
		t.Fatalf("ListTerms failed: %v", err)
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}

	sums := make(map[uint]int)
	for _, term := range terms {
		up := make(map[int64]bool, len(term.UpvotedBy))
		for _, id := range term.UpvotedBy {
			if up[id] {
				t.Errorf("term %d: user %d upvoted twice", term.ID, id)
			}
			up[id] = true
		}
		for _, id := range term.DownvotedBy {
			if up[id] {
				t.Errorf("term %d: user %d is in both vote sets", term.ID, id)
			}
		}
		if want := len(term.UpvotedBy) - len(term.DownvotedBy); term.Rating != want {
			t.Errorf("term %d: rating %d drifted from membership %d", term.ID, term.Rating, want)
		}
		sums[term.SubmittedBy] += term.Rating
	}
	for _, u := range users {
		if u.TotalRating != sums[u.ID] {
			t.Errorf("user %q: total_rating %d, terms sum to %d", u.Username, u.TotalRating, sums[u.ID])
		}
	}
}
