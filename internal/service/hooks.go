package service

import (
	"context"
	"log"

	"gamedict/internal/models"
)

// Notifier is told after a change that alters listings or ratings commits
type Notifier interface {
	BumpGlossaryVersion(ctx context.Context) error
}

// EventRecorder accepts vote events for the append-only audit log
type EventRecorder interface {
	Submit(event models.VoteEvent) error
}

type nopNotifier struct{}

func (nopNotifier) BumpGlossaryVersion(ctx context.Context) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Submit(models.VoteEvent) error { return nil }

func orNopNotifier(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func orNopRecorder(r EventRecorder) EventRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// notify bumps the change feed; a failure only delays client refreshes
func notify(ctx context.Context, n Notifier) {
	if err := n.BumpGlossaryVersion(ctx); err != nil {
		log.Printf("⚠️ Failed to bump glossary version: %v", err)
	}
}

func requireActor(actor *models.Actor) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(actor *models.Actor) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
