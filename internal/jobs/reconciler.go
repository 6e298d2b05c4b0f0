package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gamedict/internal/models"
	"gamedict/internal/repository"
	"gamedict/internal/service"
)

// TermDrift is a term whose stored rating disagrees with its vote sets
type TermDrift struct {
	TermID     uint    `json:"term_id"`
	Rating     int     `json:"rating"`
	Membership int     `json:"membership"`
	Overlap    []int64 `json:"overlap,omitempty"`
}

// UserDrift is a user whose total_rating disagrees with their terms
type UserDrift struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Total    int    `json:"total_rating"`
	Expected int    `json:"expected"`
}

// Report is the outcome of one reconciliation pass
type Report struct {
	Terms     int         `json:"terms_checked"`
	Users     int         `json:"users_checked"`
	TermDrift []TermDrift `json:"term_drift"`
	UserDrift []UserDrift `json:"user_drift"`
	Repaired  int         `json:"users_repaired"`
}

// Clean reports whether no drift was found
func (r Report) Clean() bool {
	return len(r.TermDrift) == 0 && len(r.UserDrift) == 0
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	Interval time.Duration
	Repair   bool
}

// Reconciler periodically verifies the rating invariants across the store.
// Term drift is only reported. With Repair set, user totals are corrected
// through the reputation aggregator.
type Reconciler struct {
	store      repository.Store
	reputation service.Reputation
	interval   time.Duration
	repair     bool

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	runs  atomic.Int64
	drift atomic.Int64
}

// NewReconciler creates a new reconciler
func NewReconciler(store repository.Store, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	return &Reconciler{
		store:    store,
		interval: config.Interval,
		repair:   config.Repair,
	}
}

// RunOnce performs a single pass inside one REPEATABLE READ transaction.
// Terms and users are read from the same snapshot, and a repair that races a
// committed vote on the same user fails to serialize instead of writing a
// stale total.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	err := r.store.Transaction(ctx, func(tx repository.Store) error {
		terms, err := tx.ListTerms(ctx, models.TermQuery{})
		if err != nil {
			return fmt.Errorf("failed to list terms: %w", err)
		}
		users, err := tx.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		report = Report{Terms: len(terms), Users: len(users), TermDrift: []TermDrift{}, UserDrift: []UserDrift{}}
		sums := make(map[uint]int, len(users))
		for _, t := range terms {
			if d, ok := checkTerm(t); !ok {
				report.TermDrift = append(report.TermDrift, d)
			}
			sums[t.SubmittedBy] += t.Rating
		}

		for _, u := range users {
			if u.TotalRating == sums[u.ID] {
				continue
			}
			report.UserDrift = append(report.UserDrift, UserDrift{
				UserID:   u.ID,
				Username: u.Username,
				Total:    u.TotalRating,
				Expected: sums[u.ID],
			})
			if !r.repair {
				continue
			}
			if err := r.reputation.ApplyRatingDelta(ctx, tx, u.ID, sums[u.ID]-u.TotalRating); err != nil {
				return err
			}
			report.Repaired++
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return Report{}, err
	}

	r.runs.Add(1)
	r.drift.Add(int64(len(report.TermDrift) + len(report.UserDrift)))
	for _, d := range report.TermDrift {
		log.Printf("❌ INTEGRITY: term %d rating %d, membership %d, overlap %v", d.TermID, d.Rating, d.Membership, d.Overlap)
	}
	for _, d := range report.UserDrift {
		log.Printf("❌ INTEGRITY: user %q total_rating %d, terms sum to %d", d.Username, d.Total, d.Expected)
	}
	return report, nil
}

func checkTerm(t models.Term) (TermDrift, bool) {
	up := make(map[int64]bool, len(t.UpvotedBy))
	for _, id := range t.UpvotedBy {
		up[id] = true
	}
	var overlap []int64
	for _, id := range t.DownvotedBy {
		if up[id] {
			overlap = append(overlap, id)
		}
	}

	membership := len(t.UpvotedBy) - len(t.DownvotedBy)
	d := TermDrift{TermID: t.ID, Rating: t.Rating, Membership: membership, Overlap: overlap}
	return d, t.Rating == membership && len(overlap) == 0 && len(up) == len(t.UpvotedBy)
}

// Start begins the reconciliation loop
func (r *Reconciler) Start(ctx context.Context) error {
	if r.running.Load() {
		return fmt.Errorf("reconciler already running")
	}
	r.running.Store(true)
	r.stopCh = make(chan struct{})

	log.Printf("🔍 Reconciler started (interval %v, repair %t)", r.interval, r.repair)

	r.wg.Add(1)
	go r.loop(ctx, r.stopCh)
	return nil
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	if !r.running.Load() {
		return
	}

	log.Println("⏹️ Stopping reconciler...")
	r.running.Store(false)
	close(r.stopCh)
	r.wg.Wait()

	log.Printf("✅ Reconciler stopped after %d runs, %d drift findings", r.runs.Load(), r.drift.Load())
}

// IsRunning returns whether the loop is active
func (r *Reconciler) IsRunning() bool {
	return r.running.Load()
}

func (r *Reconciler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			report, err := r.RunOnce(runCtx)
			cancel()
			if err != nil {
				log.Printf("⚠️ Reconciliation failed: %v", err)
				continue
			}
			log.Printf("📊 Reconciled %d terms, %d users: %d drifted, %d repaired",
				report.Terms, report.Users, len(report.TermDrift)+len(report.UserDrift), report.Repaired)
		}
	}
}
