package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/internal/streak"
	"github.com/Nopalinto/discord-profile-card/middleware"
	"github.com/Nopalinto/discord-profile-card/utils"
)

const (
	sweepBatchSize = 5
	sweepPause     = time.Second
)

// SweepStore is the slice of the store the sweep needs.
type SweepStore interface {
	TrackedUsers(ctx context.Context) ([]string, error)
	SetSnapshot(ctx context.Context, userID string, snap *presence.Snapshot) error
	GetStreaks(ctx context.Context, userID string) (streak.Table, error)
	SetStreaks(ctx context.Context, userID string, table streak.Table) error
}

type SweepResult struct {
	UserID  string `json:"userId"`
	Success bool   `json:"success"`
}

type SweepReport struct {
	RunID   string        `json:"runId"`
	Updated int           `json:"updated"`
	Total   int           `json:"total"`
	Results []SweepResult `json:"results"`
}

// SweepService refreshes activity caches and streaks for every tracked
// user. It is a backup for users nobody is currently viewing; the primary
// freshness mechanism is the always-fetch-fresh read path.
type SweepService struct {
	store    SweepStore
	provider presence.Provider
	now      func() time.Time
}

func NewSweepService(store SweepStore, provider presence.Provider) *SweepService {
	return &SweepService{store: store, provider: provider, now: time.Now}
}

// Sweep walks the tracked-user registry in fixed-size concurrent batches
// with a pause between batches to bound upstream load. One user's failure
// never aborts the batch or the sweep.
func (s *SweepService) Sweep(ctx context.Context) (*SweepReport, error) {
	users, err := s.store.TrackedUsers(ctx)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{
		RunID:   uuid.New().String(),
		Total:   len(users),
		Results: make([]SweepResult, len(users)),
	}
	if len(users) == 0 {
		return report, nil
	}

	log.Printf("Sweep %s: refreshing %d tracked users", report.RunID, len(users))

	for i := 0; i < len(users); i += sweepBatchSize {
		end := i + sweepBatchSize
		if end > len(users) {
			end = len(users)
		}

		var wg sync.WaitGroup
		for j := i; j < end; j++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				userID := users[idx]
				success := utils.IsValidDiscordID(userID) && s.refreshUser(ctx, userID)
				report.Results[idx] = SweepResult{UserID: userID, Success: success}
			}(j)
		}
		wg.Wait()

		if end < len(users) {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(sweepPause):
			}
		}
	}

	for _, r := range report.Results {
		if r.Success {
			report.Updated++
			middleware.SweepUsers.WithLabelValues("ok").Inc()
		} else {
			middleware.SweepUsers.WithLabelValues("failed").Inc()
		}
	}

	log.Printf("Sweep %s: updated %d of %d users", report.RunID, report.Updated, report.Total)
	return report, nil
}

// refreshUser fetches one user's live presence, persists a non-empty
// snapshot, and runs the streak update for each playing/competing
// activity with a known session start.
func (s *SweepService) refreshUser(ctx context.Context, userID string) bool {
	fresh, err := s.provider.Fetch(ctx, userID)
	if err != nil {
		middleware.UpstreamFetches.WithLabelValues("error").Inc()
		log.Printf("Sweep fetch failed for user %s: %v", userID, err)
		return false
	}
	middleware.UpstreamFetches.WithLabelValues("ok").Inc()

	if !fresh.Empty() {
		fresh.UpdatedAt = s.now().UnixMilli()
		if err := s.store.SetSnapshot(ctx, userID, fresh); err != nil {
			log.Printf("Sweep cache write failed for user %s: %v", userID, err)
			return false
		}
	}

	if len(fresh.Activities) > 0 {
		if err := s.updateStreaks(ctx, userID, fresh.Activities); err != nil {
			log.Printf("Sweep streak update failed for user %s: %v", userID, err)
			return false
		}
	}
	return true
}

func (s *SweepService) updateStreaks(ctx context.Context, userID string, activities []presence.Activity) error {
	table, err := s.store.GetStreaks(ctx, userID)
	if err != nil {
		return err
	}
	if table == nil {
		table = streak.Table{}
	}

	now := s.now()
	updated := false
	for _, a := range activities {
		if !streak.TrackableType(a.Type) || a.SessionStart() == 0 {
			continue
		}
		title, ok := streak.SanitizeTitle(a.Name)
		if !ok {
			continue
		}
		rec, exists := table[title]
		if !exists && len(table) >= streak.MaxActivitiesPerUser {
			continue
		}
		table[title] = streak.Update(rec, a.SessionStart(), now)
		updated = true
	}

	if !updated {
		return nil
	}
	return s.store.SetStreaks(ctx, userID, table)
}
