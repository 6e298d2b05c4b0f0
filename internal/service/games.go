package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gamedict/internal/models"
	"gamedict/internal/repository"

	"github.com/gosimple/slug"
)

// GameInput carries the admin game form. Version 0 skips the optimistic
// concurrency check on update.
type GameInput struct {
	Name    string
	Icon    string
	Version uint
}

// GameService handles the admin-curated list of supported games
type GameService struct {
	store      repository.Store
	reputation Reputation
	notifier   Notifier
}

// NewGameService creates a new game service. notifier may be nil.
func NewGameService(store repository.Store, notifier Notifier) *GameService {
	return &GameService{
		store:    store,
		notifier: orNopNotifier(notifier),
	}
}

func (in GameInput) normalize() (name, gameSlug, icon string, err error) {
	name = strings.TrimSpace(in.Name)
	gameSlug = slug.Make(name)
	if name == "" || gameSlug == "" {
		return "", "", "", fmt.Errorf("%w: game name must contain letters or digits", ErrInvalidInput)
	}
	return name, gameSlug, strings.TrimSpace(in.Icon), nil
}

// List returns every game sorted by name
func (s *GameService) List(ctx context.Context) ([]models.Game, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Get returns a game by id
func (s *GameService) Get(ctx context.Context, id uint) (*models.Game, error) {
	game, err := s.store.FindGameByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", id, translate(err))
	}
	return game, nil
}

// Create adds a supported game, rejecting names that already exist in any case
func (s *GameService) Create(ctx context.Context, actor *models.Actor, in GameInput) (*models.Game, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, gameSlug, icon, err := in.normalize()
	if err != nil {
		return nil, err
	}

	if _, err := s.store.FindGameByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: game %q is currently supported", ErrConflict, name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check game %q: %w", name, err)
	}

	game := &models.Game{Name: name, Slug: gameSlug, Icon: icon}
	if err := s.store.CreateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game %q: %w", name, translate(err))
	}

	notify(ctx, s.notifier)
	return game, nil
}

// Update renames a game or changes its icon
func (s *GameService) Update(ctx context.Context, actor *models.Actor, id uint, in GameInput) (*models.Game, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, gameSlug, icon, err := in.normalize()
	if err != nil {
		return nil, err
	}

	game, err := s.store.FindGameByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", id, translate(err))
	}
	if in.Version != 0 {
		game.Version = in.Version
	}
	game.Name, game.Slug, game.Icon = name, gameSlug, icon

	if err := s.store.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game %d: %w", id, translate(err))
	}

	notify(ctx, s.notifier)
	return game, nil
}

// Delete removes a game and every term filed under it, rolling each removed
// term's rating back from its author. It returns the number of removed terms.
func (s *GameService) Delete(ctx context.Context, actor *models.Actor, id uint) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}

	var removed int64
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.FindGameByID(ctx, id); err != nil {
			return fmt.Errorf("failed to load game %d: %w", id, translate(err))
		}

		// Locked so no vote can move a rating between rollback and delete
		terms, err := tx.LockTermsByGame(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to lock terms of game %d: %w", id, err)
		}
		rollback := make(map[uint]int)
		order := make([]uint, 0)
		for _, t := range terms {
			if _, ok := rollback[t.SubmittedBy]; !ok {
				order = append(order, t.SubmittedBy)
			}
			rollback[t.SubmittedBy] -= t.Rating
		}
		for _, authorID := range order {
			if err := s.reputation.ApplyRatingDelta(ctx, tx, authorID, rollback[authorID]); err != nil {
				return err
			}
		}

		if removed, err = tx.DeleteTermsByGame(ctx, id); err != nil {
			return fmt.Errorf("failed to delete terms of game %d: %w", id, err)
		}
		if removed != int64(len(terms)) {
			return fmt.Errorf("%w: terms of game %d changed during delete", ErrStale, id)
		}
		if err := tx.DeleteGame(ctx, id); err != nil {
			return fmt.Errorf("failed to delete game %d: %w", id, translate(err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("🗑️ Game %d deleted with %d terms", id, removed)
	notify(ctx, s.notifier)
	return removed, nil
}
