package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/internal/streak"
)

func newSweepFixture(t *testing.T) (*SweepService, *fakeStore, *fakeProvider, time.Time) {
	t.Helper()
	st := newFakeStore()
	provider := newFakeProvider()
	svc := NewSweepService(st, provider)
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return now }
	return svc, st, provider, now
}

func TestSweepEmptyRegistry(t *testing.T) {
	svc, _, provider, _ := newSweepFixture(t)

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, provider.fetches)
}

func TestSweepRefreshesSnapshotAndStreaks(t *testing.T) {
	svc, st, provider, now := newSweepFixture(t)

	st.tracked[testUserID] = true
	provider.snapshots[testUserID] = &presence.Snapshot{
		Activities: []presence.Activity{
			playingActivity("Factorio", now.Add(-45*time.Minute).UnixMilli()),
			{Name: "Spotify", Type: presence.TypeListening},
		},
	}

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, now.UnixMilli(), st.snapshots[testUserID].UpdatedAt)

	table := st.streaks[testUserID]
	require.Contains(t, table, "Factorio")
	assert.Equal(t, 1, table["Factorio"].Days)
	// Listening activities never enter the streak table.
	assert.NotContains(t, table, "Spotify")
}

func TestSweepSkipsInvalidUserIDs(t *testing.T) {
	svc, st, provider, _ := newSweepFixture(t)

	st.tracked["not-a-snowflake"] = true
	st.tracked[testUserID] = true

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Updated)
	// The invalid ID never reaches the upstream.
	assert.Equal(t, 1, provider.fetches)

	for _, r := range report.Results {
		if r.UserID == "not-a-snowflake" {
			assert.False(t, r.Success)
		}
	}
}

func TestSweepFetchFailureIsolatedPerUser(t *testing.T) {
	svc, st, provider, _ := newSweepFixture(t)
	st.tracked[testUserID] = true
	provider.err = errors.New("upstream down")

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 1, report.Total)
}

func TestSweepEmptySnapshotWritesNothing(t *testing.T) {
	svc, st, provider, _ := newSweepFixture(t)
	st.tracked[testUserID] = true
	provider.snapshots[testUserID] = &presence.Snapshot{}

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	// Fetch succeeded, so the user counts as updated, but an empty
	// snapshot is not persisted by the sweep.
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, st.snapshotWrites)
	assert.Equal(t, 0, st.streakWrites)
}

func TestSweepToleratesNullStoredTable(t *testing.T) {
	svc, st, provider, now := newSweepFixture(t)

	st.tracked[testUserID] = true
	st.nilStreaks = true
	provider.snapshots[testUserID] = &presence.Snapshot{
		Activities: []presence.Activity{playingActivity("Factorio", now.Add(-45*time.Minute).UnixMilli())},
	}

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Contains(t, st.streaks[testUserID], "Factorio")
}

func TestSweepRespectsActivityCap(t *testing.T) {
	svc, st, provider, now := newSweepFixture(t)

	table := streak.Table{}
	for i := 0; i < streak.MaxActivitiesPerUser; i++ {
		table[fmt.Sprintf("Game %d", i)] = streak.Record{LastDate: "2024-05-19", Days: 1}
	}
	st.streaks[testUserID] = table
	st.tracked[testUserID] = true
	provider.snapshots[testUserID] = &presence.Snapshot{
		Activities: []presence.Activity{playingActivity("Brand New Game", now.Add(-time.Hour).UnixMilli())},
	}

	_, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, st.streaks[testUserID], "Brand New Game")
}

func TestSweepProcessesMoreThanOneBatch(t *testing.T) {
	svc, st, provider, now := newSweepFixture(t)

	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("10000000000000000%d", i)
		st.tracked[id] = true
		provider.snapshots[id] = &presence.Snapshot{
			Activities: []presence.Activity{playingActivity("Game", now.Add(-time.Hour).UnixMilli())},
		}
	}

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, report.Total)
	assert.Equal(t, 7, report.Updated)
	assert.Equal(t, 7, provider.fetches)
}
