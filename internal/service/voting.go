package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/vote"

	"github.com/google/uuid"
)

// VoteService applies vote transitions to terms and their authors' reputation
type VoteService struct {
	store         repository.Store
	reputation    Reputation
	notifier      Notifier
	events        EventRecorder
	allowSelfVote bool
}

// NewVoteService creates a new vote service. notifier and events may be nil.
func NewVoteService(store repository.Store, notifier Notifier, events EventRecorder, allowSelfVote bool) *VoteService {
	return &VoteService{
		store:         store,
		notifier:      orNopNotifier(notifier),
		events:        orNopRecorder(events),
		allowSelfVote: allowSelfVote,
	}
}

// VoteResult is the committed outcome of one vote
type VoteResult struct {
	Term    *models.Term
	Outcome vote.Outcome
}

// Vote runs one upvote/downvote transition for actor on the term.
// The rating delta, the membership ops and the author's reputation delta
// commit in one transaction with the term row locked.
func (s *VoteService) Vote(ctx context.Context, actor *models.Actor, termID uint, action vote.Action) (*VoteResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var result VoteResult
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		term, err := tx.LockTerm(ctx, termID)
		if err != nil {
			return fmt.Errorf("failed to load term %d: %w", termID, translate(err))
		}
		if !s.allowSelfVote && term.SubmittedBy == actor.UserID {
			return fmt.Errorf("%w: authors cannot vote on their own terms", ErrForbidden)
		}

		from := vote.StateOf(term.UpvotedBy, term.DownvotedBy, int64(actor.UserID))
		out := vote.Transition(from, action)

		updated, err := tx.ApplyTermVote(ctx, termID, actor.UserID, out)
		if err != nil {
			return fmt.Errorf("failed to apply %s to term %d: %w", action, termID, translate(err))
		}
		if err := s.reputation.ApplyRatingDelta(ctx, tx, term.SubmittedBy, out.Delta); err != nil {
			return err
		}

		result = VoteResult{Term: updated, Outcome: out}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier)
	if err := s.events.Submit(models.VoteEvent{
		ID:        uuid.New(),
		TermID:    termID,
		VoterID:   actor.UserID,
		AuthorID:  result.Term.SubmittedBy,
		Action:    action.String(),
		FromState: result.Outcome.From.String(),
		ToState:   result.Outcome.To.String(),
		Delta:     result.Outcome.Delta,
		CreatedAt: time.Now(),
	}); err != nil {
		log.Printf("⚠️ Vote on term %d committed but its event was not recorded: %v", termID, err)
	}

	return &result, nil
}
