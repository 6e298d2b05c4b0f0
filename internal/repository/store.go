package repository

import (
	"context"
	"database/sql"
	"errors"

	"gamedict/internal/models"
	"gamedict/internal/vote"
)

var (
	// ErrNotFound is returned when a keyed document does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate key")
	// ErrStale is returned when an update carries an outdated version
	ErrStale = errors.New("stale version")
)

// Store is the document store the glossary core runs against.
// Every method is safe for concurrent use; Transaction runs fn against a
// Store whose writes commit together or not at all. opts sets the isolation
// level of an outermost transaction and is ignored when already inside one.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error, opts ...*sql.TxOptions) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUserProfile replaces username, password hash and favorites only
	UpdateUserProfile(ctx context.Context, user *models.User) error
	// IncrementUserRating atomically adds delta to the user's total_rating
	IncrementUserRating(ctx context.Context, id uint, delta int) error

	CreateGame(ctx context.Context, game *models.Game) error
	FindGameByID(ctx context.Context, id uint) (*models.Game, error)
	FindGameByName(ctx context.Context, name string) (*models.Game, error)
	FindGameBySlug(ctx context.Context, slug string) (*models.Game, error)
	ListGames(ctx context.Context) ([]models.Game, error)
	// UpdateGame replaces name, slug and icon when game.Version matches the stored version
	UpdateGame(ctx context.Context, game *models.Game) error
	DeleteGame(ctx context.Context, id uint) error

	CreateTerm(ctx context.Context, term *models.Term) error
	FindTermByID(ctx context.Context, id uint) (*models.Term, error)
	// LockTerm loads a term and holds a write lock on it for the rest of the transaction
	LockTerm(ctx context.Context, id uint) (*models.Term, error)
	// LockTermsByGame loads every term of a game in id order, write-locking each
	LockTermsByGame(ctx context.Context, gameID uint) ([]models.Term, error)
	ListTerms(ctx context.Context, q models.TermQuery) ([]models.Term, error)
	// UpdateTermContent replaces content fields when version matches, bumping the version
	UpdateTermContent(ctx context.Context, id, version uint, content models.TermContent) (*models.Term, error)
	// ApplyTermVote atomically applies the outcome's rating delta and membership ops for voter
	ApplyTermVote(ctx context.Context, id, voter uint, out vote.Outcome) (*models.Term, error)
	DeleteTerm(ctx context.Context, id uint) error
	DeleteTermsByGame(ctx context.Context, gameID uint) (int64, error)

	Ping(ctx context.Context) error
}
