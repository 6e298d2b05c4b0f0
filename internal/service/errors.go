package service

import (
	"errors"
	"fmt"

	"gamedict/internal/repository"
)

var (
	ErrUnauthenticated = errors.New("login required")
	ErrForbidden       = errors.New("permission denied")
	ErrConflict        = errors.New("already exists")
	ErrStale           = errors.New("modified by someone else")
	ErrNotFound        = errors.New("not found")
	ErrBadCredentials  = errors.New("username and/or password incorrect")
	ErrNameRejected    = errors.New("username unavailable")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrUnknownGame is the ErrNotFound of a game named in a term form
	ErrUnknownGame = fmt.Errorf("%w: game is not supported", ErrNotFound)

	// ErrIntegrity marks stored state that contradicts an invariant.
	// It is an operator problem, never a user error.
	ErrIntegrity = errors.New("data integrity violation")
)

// translate maps repository errors onto service errors, leaving others untouched
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, repository.ErrStale):
		return ErrStale
	}
	return err
}
