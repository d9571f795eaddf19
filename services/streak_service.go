package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Nopalinto/discord-profile-card/internal/streak"
)

var (
	// ErrInvalidTitle rejects empty, oversized-after-trim, or reserved
	// activity names before they can become store keys.
	ErrInvalidTitle = errors.New("invalid activity title")

	// ErrTooManyActivities enforces the per-user distinct-title cap.
	ErrTooManyActivities = errors.New("too many activities tracked for this user")
)

// StreakStore is the slice of the store the streak service needs.
type StreakStore interface {
	GetStreaks(ctx context.Context, userID string) (streak.Table, error)
	SetStreaks(ctx context.Context, userID string, table streak.Table) error
}

// StreakService owns all streak record transitions. Every call site
// (request handler, sweep) goes through RecordObservation; the update
// rules live in exactly one place, internal/streak.
type StreakService struct {
	store StreakStore
	now   func() time.Time
}

func NewStreakService(store StreakStore) *StreakService {
	return &StreakService{store: store, now: time.Now}
}

// GetStreaks returns the user's whole streak table. A missing table or an
// unavailable store reads as empty; streak display must keep working
// without persistence.
func (s *StreakService) GetStreaks(ctx context.Context, userID string) streak.Table {
	table, err := s.store.GetStreaks(ctx, userID)
	if err != nil {
		log.Printf("Streak read failed for user %s, serving empty table: %v", userID, err)
		return streak.Table{}
	}
	if table == nil {
		return streak.Table{}
	}
	return table
}

// GetStreak returns one activity's record and whether it exists.
func (s *StreakService) GetStreak(ctx context.Context, userID, activityName string) (streak.Record, bool) {
	title, ok := streak.SanitizeTitle(activityName)
	if !ok {
		return streak.Record{}, false
	}
	rec, found := s.GetStreaks(ctx, userID)[title]
	return rec, found
}

// RecordObservation applies one poll observation to the named activity's
// record and persists the table. startTimestamp is the epoch-ms session
// start, or 0 when no session is active.
//
// The table is read, modified, and rewritten as one value with no
// cross-request locking; the monotonic minutes mark and the idempotent
// day-boundary check make lost updates self-correct on the next poll.
func (s *StreakService) RecordObservation(ctx context.Context, userID, activityName string, startTimestamp int64) (streak.Record, error) {
	title, ok := streak.SanitizeTitle(activityName)
	if !ok {
		return streak.Record{}, ErrInvalidTitle
	}

	table, err := s.store.GetStreaks(ctx, userID)
	if err != nil {
		return streak.Record{}, fmt.Errorf("failed to load streaks: %w", err)
	}
	if table == nil {
		table = streak.Table{}
	}

	rec, exists := table[title]
	if !exists && len(table) >= streak.MaxActivitiesPerUser {
		return streak.Record{}, ErrTooManyActivities
	}

	rec = streak.Update(rec, startTimestamp, s.now())
	table[title] = rec

	if err := s.store.SetStreaks(ctx, userID, table); err != nil {
		return streak.Record{}, fmt.Errorf("failed to persist streaks: %w", err)
	}
	return rec, nil
}
