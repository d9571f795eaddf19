package services

import (
	"context"
	"errors"
	"sync"

	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/internal/streak"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory stand-in for the Redis store, implementing
// every store interface the services consume.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string]*presence.Snapshot
	streaks   map[string]streak.Table
	tracked   map[string]bool
	apiKeys   map[string]string

	failReads  bool
	failWrites bool
	// nilStreaks makes GetStreaks return a nil table with a nil error,
	// the shape a stored JSON "null" produces.
	nilStreaks bool

	snapshotWrites int
	streakWrites   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: make(map[string]*presence.Snapshot),
		streaks:   make(map[string]streak.Table),
		tracked:   make(map[string]bool),
		apiKeys:   make(map[string]string),
	}
}

func (f *fakeStore) GetSnapshot(_ context.Context, userID string) (*presence.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	snap, ok := f.snapshots[userID]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (f *fakeStore) SetSnapshot(_ context.Context, userID string, snap *presence.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	cp := *snap
	f.snapshots[userID] = &cp
	f.snapshotWrites++
	return nil
}

func (f *fakeStore) TrackUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	f.tracked[userID] = true
	return nil
}

func (f *fakeStore) TrackedUsers(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	var ids []string
	for id := range f.tracked {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) GetStreaks(_ context.Context, userID string) (streak.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	if f.nilStreaks {
		return nil, nil
	}
	table := streak.Table{}
	for k, v := range f.streaks[userID] {
		table[k] = v
	}
	return table, nil
}

func (f *fakeStore) SetStreaks(_ context.Context, userID string, table streak.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	f.streaks[userID] = table
	f.streakWrites++
	return nil
}

func (f *fakeStore) GetAPIKey(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return "", errStoreDown
	}
	return f.apiKeys[userID], nil
}

func (f *fakeStore) SetAPIKey(_ context.Context, userID, encrypted string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	f.apiKeys[userID] = encrypted
	return nil
}

func (f *fakeStore) DeleteAPIKey(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	delete(f.apiKeys, userID)
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	delete(f.tracked, userID)
	delete(f.snapshots, userID)
	delete(f.streaks, userID)
	delete(f.apiKeys, userID)
	return nil
}

// fakeProvider serves canned snapshots per user, or a global error.
type fakeProvider struct {
	mu        sync.Mutex
	snapshots map[string]*presence.Snapshot
	err       error
	fetches   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{snapshots: make(map[string]*presence.Snapshot)}
}

func (f *fakeProvider) Fetch(_ context.Context, userID string) (*presence.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	if snap, ok := f.snapshots[userID]; ok {
		cp := *snap
		return &cp, nil
	}
	return &presence.Snapshot{}, nil
}

func playingActivity(name string, startMillis int64) presence.Activity {
	return presence.Activity{
		Name:       name,
		Type:       presence.TypePlaying,
		Timestamps: &presence.Timestamps{Start: startMillis},
	}
}
