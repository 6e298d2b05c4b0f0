package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gamedict/internal/models"
	"gamedict/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is a validated registration request
type RegisterInput struct {
	Username       string
	Password       string
	FavGames       string
	FavCompetitors string
}

// ProfileInput is a validated account edit. An empty NewPassword keeps the
// current one.
type ProfileInput struct {
	Username        string
	CurrentPassword string
	NewPassword     string
	FavGames        string
	FavCompetitors  string
}

// AccountService handles registration, login and account edits
type AccountService struct {
	store      repository.Store
	filter     NameFilter
	bcryptCost int
}

// NewAccountService creates a new account service. A zero cost uses bcrypt.DefaultCost.
func NewAccountService(store repository.Store, filter NameFilter, bcryptCost int) *AccountService {
	if filter == nil {
		filter = NewProfanityFilter()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{store: store, filter: filter, bcryptCost: bcryptCost}
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// checkUsername rejects filtered names and names owned by anyone but selfID
func (s *AccountService) checkUsername(ctx context.Context, username string, selfID uint) error {
	if !s.filter.Allowed(username) {
		return ErrNameRejected
	}
	existing, err := s.store.FindUserByUsername(ctx, username)
	if err == nil && existing.ID != selfID {
		return fmt.Errorf("%w: username already exists, please choose another", ErrConflict)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}
	return nil
}

// Register creates a regular user with zero reputation
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleRegular, true)
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, role models.Role, filtered bool) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if filtered {
		if err := s.checkUsername(ctx, username, 0); err != nil {
			return nil, err
		}
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:       username,
		PasswordHash:   hash,
		Role:           role,
		FavGames:       strings.TrimSpace(in.FavGames),
		FavCompetitors: strings.TrimSpace(in.FavCompetitors),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, translate(err))
	}
	return user, nil
}

// Login verifies credentials. Unknown users and wrong passwords are indistinguishable.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// Get returns a user by id
func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, translate(err))
	}
	return user, nil
}

// UpdateProfile edits the actor's own account after re-checking their
// current password. Role and total_rating are never touched.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *models.Actor, userID uint, in ProfileInput) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.UserID != userID {
		return nil, fmt.Errorf("%w: you do not have permission to edit this user's details", ErrForbidden)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return nil, ErrBadCredentials
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if username != user.Username {
		if err := s.checkUsername(ctx, username, user.ID); err != nil {
			return nil, err
		}
	}
	if in.NewPassword != "" {
		if user.PasswordHash, err = s.hash(in.NewPassword); err != nil {
			return nil, err
		}
	}
	user.Username = username
	user.FavGames = strings.TrimSpace(in.FavGames)
	user.FavCompetitors = strings.TrimSpace(in.FavCompetitors)

	if err := s.store.UpdateUserProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", userID, translate(err))
	}
	return user, nil
}

// EnsureAdmin creates the admin account. It reports false and leaves the
// user untouched when the username is already taken.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (*models.User, bool, error) {
	existing, err := s.store.FindUserByUsername(ctx, username)
	if err == nil {
		if !existing.IsAdmin() {
			log.Printf("⚠️ User %q exists but is not an admin", username)
		}
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to check admin user: %w", err)
	}

	user, err := s.create(ctx, RegisterInput{Username: username, Password: password}, models.RoleAdmin, false)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
