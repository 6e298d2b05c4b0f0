package service

import (
	"context"
	"errors"
	"testing"

	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

func newAccounts() (*repository.MemoryStore, *AccountService) {
	store := repository.NewMemoryStore()
	return store, NewAccountService(store, NewProfanityFilter(), bcrypt.MinCost)
}

func TestRegisterAndLogin(t *testing.T) {
	_, svc := newAccounts()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "Daigo", Password: "parry-ev0", FavGames: "SF3"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Role != models.RoleRegular || user.TotalRating != 0 || user.PasswordHash == "parry-ev0" {
		t.Errorf("Unexpected user: %+v", user)
	}

	if _, err := svc.Login(ctx, "daigo", "parry-ev0"); err != nil {
		t.Errorf("Case-insensitive login failed: %v", err)
	}
	for _, tt := range []struct{ username, password string }{
		{"daigo", "wrong"},
		{"nobody", "parry-ev0"},
	} {
		if _, err := svc.Login(ctx, tt.username, tt.password); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("%s/%s: expected ErrBadCredentials, got %v", tt.username, tt.password, err)
		}
	}
}

func TestRegisterRejections(t *testing.T) {
	_, svc := newAccounts()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Username: "Justin", Password: "password1"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{"duplicate any case", "JUSTIN", ErrConflict},
		{"filtered word", "xXsh1tXx", ErrNameRejected},
		{"impersonation", "Adm1n", ErrNameRejected},
		{"blank", "   ", ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, RegisterInput{Username: tt.username, Password: "password1"}); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	store, svc := newAccounts()
	ctx := context.Background()
	alice := testutil.MustUser(t, store, "alice", models.RoleRegular)
	bob := testutil.MustUser(t, store, "bob", models.RoleRegular)
	_ = store.IncrementUserRating(ctx, alice.ID, 7)

	if _, err := svc.UpdateProfile(ctx, testutil.ActorOf(bob), alice.ID, ProfileInput{Username: "x", CurrentPassword: testutil.Password}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden editing another user, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, testutil.ActorOf(alice), alice.ID, ProfileInput{Username: "alice", CurrentPassword: "nope"}); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, testutil.ActorOf(alice), alice.ID, ProfileInput{Username: "BOB", CurrentPassword: testutil.Password}); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, testutil.ActorOf(alice), alice.ID, ProfileInput{
		Username:        "Alice",
		CurrentPassword: testutil.Password,
		NewPassword:     "new-password",
		FavCompetitors:  "Arslan Ash",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Username != "Alice" || updated.TotalRating != 7 || updated.Role != models.RoleRegular {
		t.Errorf("Unexpected updated user: %+v", updated)
	}
	if _, err := svc.Login(ctx, "alice", "new-password"); err != nil {
		t.Errorf("Login with new password failed: %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	_, svc := newAccounts()
	ctx := context.Background()

	admin, created, err := svc.EnsureAdmin(ctx, "admin", "supersecret")
	if err != nil || !created || !admin.IsAdmin() {
		t.Fatalf("EnsureAdmin failed: %+v %v %v", admin, created, err)
	}
	again, created, err := svc.EnsureAdmin(ctx, "admin", "other")
	if err != nil || created || again.ID != admin.ID {
		t.Errorf("Second EnsureAdmin should be a no-op: %+v %v %v", again, created, err)
	}
}

func TestProfanityFilter(t *testing.T) {
	f := NewProfanityFilter()
	tests := []struct {
		name string
		want bool
	}{
		{"player1", true},
		{"badmintonfan", true},
		{"Scunthorpe", true},
		{"shitake", true},
		{"SonicFox5000", true},
		{"b1tch", false},
		{"fuck_this", false},
		{"admin", false},
		{"The_Admin", false},
		{"m0derat0r", false},
	}
	for _, tt := range tests {
		if got := f.Allowed(tt.name); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProfanityFilterCustomReserved(t *testing.T) {
	f := NewProfanityFilter("staff")
	if f.Allowed("staff-member") {
		t.Error("custom reserved word should be rejected")
	}
	if !f.Allowed("admin") {
		t.Error("custom list replaces the default reserved words")
	}
}
