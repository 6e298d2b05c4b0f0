package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/vote"
)

// TermInput carries the editable fields of a term. Version 0 skips the
// optimistic concurrency check.
type TermInput struct {
	Header          string
	GameName        string
	ShortDefinition string
	LongDescription string
	VideoLink       string
	Version         uint
}

// TermFilter narrows the public listing
type TermFilter struct {
	GameSlug string
	Letter   string
}

// TermService handles the term catalog
type TermService struct {
	store      repository.Store
	reputation Reputation
	notifier   Notifier
}

// NewTermService creates a new term service. notifier may be nil.
func NewTermService(store repository.Store, notifier Notifier) *TermService {
	return &TermService{
		store:    store,
		notifier: orNopNotifier(notifier),
	}
}

func normalizeHeader(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

func (in TermInput) content(gameID uint) (models.TermContent, error) {
	c := models.TermContent{
		Header:          normalizeHeader(in.Header),
		GameID:          gameID,
		ShortDefinition: strings.TrimSpace(in.ShortDefinition),
		LongDescription: strings.TrimSpace(in.LongDescription),
		VideoLink:       strings.TrimSpace(in.VideoLink),
	}
	if c.Header == "" || c.ShortDefinition == "" {
		return c, fmt.Errorf("%w: term header and short definition are required", ErrInvalidInput)
	}
	return c, nil
}

func resolveGame(ctx context.Context, store repository.Store, name string) (*models.Game, error) {
	game, err := store.FindGameByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %q: %w", name, err)
	}
	return game, nil
}

// Create inserts a term authored by actor. The author starts as its only
// upvoter, so the term opens at rating 1 and the author is credited 1.
func (s *TermService) Create(ctx context.Context, actor *models.Actor, in TermInput) (*models.Term, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var term *models.Term
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		game, err := resolveGame(ctx, tx, in.GameName)
		if err != nil {
			return err
		}
		content, err := in.content(game.ID)
		if err != nil {
			return err
		}

		term = &models.Term{
			Header:          content.Header,
			GameID:          content.GameID,
			ShortDefinition: content.ShortDefinition,
			LongDescription: content.LongDescription,
			VideoLink:       content.VideoLink,
			SubmittedBy:     actor.UserID,
			SubmittedAt:     time.Now().UTC(),
			Rating:          1,
			UpvotedBy:       []int64{int64(actor.UserID)},
			DownvotedBy:     []int64{},
		}
		if err := tx.CreateTerm(ctx, term); err != nil {
			return fmt.Errorf("failed to create term: %w", translate(err))
		}
		return s.reputation.ApplyRatingDelta(ctx, tx, actor.UserID, term.Rating)
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier)
	return term, nil
}

// Update replaces the content fields of a term. Rating, vote sets, author
// and submission date are left as stored.
func (s *TermService) Update(ctx context.Context, actor *models.Actor, id uint, in TermInput) (*models.Term, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var updated *models.Term
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		term, err := tx.LockTerm(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load term %d: %w", id, translate(err))
		}
		if !actor.CanModify(term.SubmittedBy) {
			return fmt.Errorf("%w: you cannot edit a term that you did not submit", ErrForbidden)
		}

		game, err := resolveGame(ctx, tx, in.GameName)
		if err != nil {
			return err
		}
		content, err := in.content(game.ID)
		if err != nil {
			return err
		}

		version := in.Version
		if version == 0 {
			version = term.Version
		}
		updated, err = tx.UpdateTermContent(ctx, id, version, content)
		if err != nil {
			return fmt.Errorf("failed to update term %d: %w", id, translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier)
	return updated, nil
}

// Delete removes a term after rolling its whole rating back from the author
func (s *TermService) Delete(ctx context.Context, actor *models.Actor, id uint) (*models.Term, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var deleted *models.Term
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		term, err := tx.LockTerm(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load term %d: %w", id, translate(err))
		}
		if !actor.CanModify(term.SubmittedBy) {
			return fmt.Errorf("%w: you cannot delete a term that you did not submit", ErrForbidden)
		}
		if err := s.reputation.ApplyRatingDelta(ctx, tx, term.SubmittedBy, -term.Rating); err != nil {
			return err
		}
		if err := tx.DeleteTerm(ctx, id); err != nil {
			return fmt.Errorf("failed to delete term %d: %w", id, translate(err))
		}
		deleted = term
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier)
	return deleted, nil
}

// Get returns a term by id
func (s *TermService) Get(ctx context.Context, id uint) (*models.Term, error) {
	term, err := s.store.FindTermByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load term %d: %w", id, translate(err))
	}
	return term, nil
}

// ListVisible returns the public listing: terms rated above the visibility
// threshold, by header then rating descending, with the game list.
func (s *TermService) ListVisible(ctx context.Context, viewer *models.Actor, f TermFilter) (*models.TermListResponse, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	q := models.TermQuery{OnlyShown: true, Order: models.OrderAlphabetical}
	if f.Letter != "" {
		r, _ := utf8.DecodeRuneInString(f.Letter)
		q.Prefix = string(unicode.ToUpper(r))
	}

	resp := &models.TermListResponse{Terms: []models.TermView{}, Games: games, User: viewer}
	if f.GameSlug != "" {
		game, err := s.store.FindGameBySlug(ctx, f.GameSlug)
		if errors.Is(err, repository.ErrNotFound) {
			return resp, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load game %q: %w", f.GameSlug, err)
		}
		q.GameID = game.ID
	}

	terms, err := s.store.ListTerms(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list terms: %w", err)
	}
	resp.Terms, err = s.views(ctx, viewer, terms, games)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListByAuthor returns every term by the author, hidden ones included
func (s *TermService) ListByAuthor(ctx context.Context, authorID uint, order models.TermOrder) ([]models.Term, error) {
	terms, err := s.store.ListTerms(ctx, models.TermQuery{AuthorID: authorID, Order: order})
	if err != nil {
		return nil, fmt.Errorf("failed to list terms by user %d: %w", authorID, err)
	}
	return terms, nil
}

// Profile builds the public profile of username with both orderings of their terms
func (s *TermService) Profile(ctx context.Context, viewer *models.Actor, username string) (*models.ProfileResponse, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", username, translate(err))
	}

	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	alpha, err := s.ListByAuthor(ctx, user.ID, models.OrderAlphabetical)
	if err != nil {
		return nil, err
	}
	top, err := s.ListByAuthor(ctx, user.ID, models.OrderTopRated)
	if err != nil {
		return nil, err
	}

	resp := &models.ProfileResponse{
		UserID:         user.ID,
		Username:       user.Username,
		TotalRating:    user.TotalRating,
		FavGames:       user.FavGames,
		FavCompetitors: user.FavCompetitors,
	}
	if resp.Terms, err = s.views(ctx, viewer, alpha, games); err != nil {
		return nil, err
	}
	if resp.TopRated, err = s.views(ctx, viewer, top, games); err != nil {
		return nil, err
	}
	return resp, nil
}

// views decorates terms with game and author names and the viewer's vote
func (s *TermService) views(ctx context.Context, viewer *models.Actor, terms []models.Term, games []models.Game) ([]models.TermView, error) {
	gameNames := make(map[uint]string, len(games))
	for _, g := range games {
		gameNames[g.ID] = g.Name
	}

	authorIDs := make([]uint, 0, len(terms))
	seen := make(map[uint]bool, len(terms))
	for _, t := range terms {
		if !seen[t.SubmittedBy] {
			seen[t.SubmittedBy] = true
			authorIDs = append(authorIDs, t.SubmittedBy)
		}
	}
	authors, err := s.store.FindUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}

	out := make([]models.TermView, 0, len(terms))
	for _, t := range terms {
		v := models.TermView{
			ID:              t.ID,
			Header:          t.Header,
			GameID:          t.GameID,
			GameName:        gameNames[t.GameID],
			ShortDefinition: t.ShortDefinition,
			LongDescription: t.LongDescription,
			VideoLink:       t.VideoLink,
			SubmittedBy:     t.SubmittedBy,
			AuthorName:      authors[t.SubmittedBy].Username,
			SubmittedAt:     t.SubmittedAt,
			Rating:          t.Rating,
			Version:         t.Version,
		}
		if viewer != nil {
			if state := vote.StateOf(t.UpvotedBy, t.DownvotedBy, int64(viewer.UserID)); state != vote.None {
				v.MyVote = state.String()
			}
			v.CanEdit = viewer.CanModify(t.SubmittedBy)
		}
		out = append(out, v)
	}
	return out, nil
}
