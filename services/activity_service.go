package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/middleware"
)

// Cached snapshots younger than this still stand in for an upstream
// "nothing running" answer, so a brief offline blip does not blank the
// card.
const cacheGraceWindow = 30 * time.Minute

// ActivityStore is the slice of the store the reconciler needs.
type ActivityStore interface {
	GetSnapshot(ctx context.Context, userID string) (*presence.Snapshot, error)
	SetSnapshot(ctx context.Context, userID string, snap *presence.Snapshot) error
	TrackUser(ctx context.Context, userID string) error
}

// ActivityService reconciles cached activity snapshots with live upstream
// presence data.
type ActivityService struct {
	store    ActivityStore
	provider presence.Provider
	now      func() time.Time
}

func NewActivityService(store ActivityStore, provider presence.Provider) *ActivityService {
	return &ActivityService{
		store:    store,
		provider: provider,
		now:      time.Now,
	}
}

// GetActivities returns the best-known snapshot for a user.
//
// Freshness is never assumed from cache alone: a live fetch is always
// attempted first. A fresh snapshot with content replaces the cache. An
// empty fresh answer defers to a non-empty cache younger than the grace
// window, otherwise an explicit empty snapshot is persisted so "checked,
// nothing running" is remembered. A failed fetch falls back to the cache
// at any age, and to an empty result when there is none. Upstream failure
// is never surfaced as an error.
func (s *ActivityService) GetActivities(ctx context.Context, userID string) (*presence.Snapshot, error) {
	now := s.now().UnixMilli()

	cached, err := s.store.GetSnapshot(ctx, userID)
	if err != nil {
		log.Printf("Activity cache read failed for user %s, continuing with live fetch: %v", userID, err)
		cached = nil
	}

	fresh, err := s.provider.Fetch(ctx, userID)
	if err != nil {
		middleware.UpstreamFetches.WithLabelValues("error").Inc()
		log.Printf("Upstream fetch failed for user %s: %v", userID, err)
		if cached != nil {
			return cached, nil
		}
		return &presence.Snapshot{}, nil
	}
	middleware.UpstreamFetches.WithLabelValues("ok").Inc()

	if !fresh.Empty() {
		fresh.UpdatedAt = now
		if err := s.store.SetSnapshot(ctx, userID, fresh); err != nil {
			log.Printf("Failed to cache fresh snapshot for user %s: %v", userID, err)
		}
		return fresh, nil
	}

	// Upstream says idle/offline. A recently written non-empty cache is
	// not yet overruled.
	if cached != nil && !cached.Empty() {
		if now-cached.UpdatedAt < cacheGraceWindow.Milliseconds() {
			return cached, nil
		}
	}

	empty := &presence.Snapshot{Activities: []presence.Activity{}, UpdatedAt: now}
	if err := s.store.SetSnapshot(ctx, userID, empty); err != nil {
		log.Printf("Failed to persist empty snapshot for user %s: %v", userID, err)
	}
	return empty, nil
}

// StoreActivities persists a client-reported snapshot and registers the
// user for the background sweep. Unlike reads, a store failure here is
// surfaced so the caller knows nothing was saved.
func (s *ActivityService) StoreActivities(ctx context.Context, userID string, activities []presence.Activity, spotify *presence.Spotify) error {
	snap := &presence.Snapshot{
		Activities: activities,
		Spotify:    spotify,
		UpdatedAt:  s.now().UnixMilli(),
	}
	if snap.Activities == nil {
		snap.Activities = []presence.Activity{}
	}

	if err := s.store.SetSnapshot(ctx, userID, snap); err != nil {
		return fmt.Errorf("failed to store activities: %w", err)
	}
	if err := s.store.TrackUser(ctx, userID); err != nil {
		log.Printf("Failed to register user %s for sweep: %v", userID, err)
	}
	return nil
}
