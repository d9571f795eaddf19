package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nopalinto/discord-profile-card/internal/store"
	"github.com/Nopalinto/discord-profile-card/internal/streak"
	"github.com/Nopalinto/discord-profile-card/middleware"
	"github.com/Nopalinto/discord-profile-card/services"
)

const testUserID = "123456789012345678"

// memStreakStore keeps streak tables in memory for handler tests.
type memStreakStore struct {
	tables map[string]streak.Table
}

func (m *memStreakStore) GetStreaks(_ context.Context, userID string) (streak.Table, error) {
	table := streak.Table{}
	for k, v := range m.tables[userID] {
		table[k] = v
	}
	return table, nil
}

func (m *memStreakStore) SetStreaks(_ context.Context, userID string, table streak.Table) error {
	m.tables[userID] = table
	return nil
}

func newStreakHandler() (*StreakHandler, *memStreakStore) {
	st := &memStreakStore{tables: make(map[string]streak.Table)}
	return NewStreakHandler(services.NewStreakService(st)), st
}

// asUser simulates a request that passed the auth middleware.
func asUser(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.SessionUserKey, userID)
	return r.WithContext(ctx)
}

func TestGetStreaksRejectsInvalidUserID(t *testing.T) {
	h, _ := newStreakHandler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/streaks?userId=nope", nil)
	w := httptest.NewRecorder()
	h.GetStreaks(w, asUser(r, "nope"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStreaksForbiddenForOtherUsers(t *testing.T) {
	h, _ := newStreakHandler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/streaks?userId="+testUserID, nil)
	w := httptest.NewRecorder()
	h.GetStreaks(w, asUser(r, "999999999999999999"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetStreaksFloorsDaysToOne(t *testing.T) {
	h, st := newStreakHandler()
	st.tables[testUserID] = streak.Table{
		"Fresh Game": {LastDate: "2024-05-20", Days: 0, MinutesToday: 3},
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/streaks?userId="+testUserID, nil)
	w := httptest.NewRecorder()
	h.GetStreaks(w, asUser(r, testUserID))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Streaks map[string]struct {
			Days int `json:"days"`
		} `json:"streaks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Streaks["Fresh Game"].Days)
}

func TestUpdateStreakHappyPath(t *testing.T) {
	h, st := newStreakHandler()

	body := `{"userId":"` + testUserID + `","activityName":"Factorio","startTimestamp":0}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/streaks", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateStreak(w, asUser(r, testUserID))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, st.tables[testUserID], "Factorio")

	var resp struct {
		Success bool `json:"success"`
		Streak  struct {
			Days int `json:"days"`
		} `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Streak.Days)
}

func TestUpdateStreakRejectsForbiddenTitle(t *testing.T) {
	h, st := newStreakHandler()

	body := `{"userId":"` + testUserID + `","activityName":"constructor"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/streaks", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateStreak(w, asUser(r, testUserID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, st.tables[testUserID])
}

func TestUpdateStreakStoreUnavailableReturns503Marker(t *testing.T) {
	// A nil redis client is the "storage not configured" state.
	h := NewStreakHandler(services.NewStreakService(store.New(nil)))

	body := `{"userId":"` + testUserID + `","activityName":"Factorio"}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/streaks", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.UpdateStreak(w, asUser(r, testUserID))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "REDIS_NOT_CONFIGURED")
}
