package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Nopalinto/discord-profile-card/internal/streak"
	"github.com/Nopalinto/discord-profile-card/middleware"
	"github.com/Nopalinto/discord-profile-card/services"
	"github.com/Nopalinto/discord-profile-card/utils"
)

type StreakHandler struct {
	streakService *services.StreakService
}

func NewStreakHandler(streakService *services.StreakService) *StreakHandler {
	return &StreakHandler{
		streakService: streakService,
	}
}

// streakView is the consumer-facing record: days is floored to 1, a
// brand-new streak is always shown as at least one day.
type streakView struct {
	LastDate     string `json:"lastDate"`
	Days         int    `json:"days"`
	MinutesToday int    `json:"minutesToday"`
}

func viewOf(rec streak.Record) streakView {
	return streakView{
		LastDate:     rec.LastDate,
		Days:         streak.DisplayDays(rec),
		MinutesToday: rec.MinutesToday,
	}
}

// GetStreaks returns all streaks for a user, or one activity's streak
// when activityName is given. Owner-gated: streak tables are the user's
// own configuration data.
func (h *StreakHandler) GetStreaks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := r.URL.Query().Get("userId")
	if !utils.IsValidDiscordID(userID) {
		respondWithError(w, http.StatusBadRequest, "Invalid or missing userId")
		return
	}
	if !middleware.IsOwner(ctx, userID) {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if activityName := r.URL.Query().Get("activityName"); activityName != "" {
		rec, found := h.streakService.GetStreak(ctx, userID, activityName)
		if !found {
			respondWithJSON(w, http.StatusOK, map[string]any{"streak": nil})
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{"streak": viewOf(rec)})
		return
	}

	table := h.streakService.GetStreaks(ctx, userID)
	views := make(map[string]streakView, len(table))
	for title, rec := range table {
		views[title] = viewOf(rec)
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"streaks": views})
}

// UpdateStreak applies one observation to an activity's streak record.
func (h *StreakHandler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		UserID         string `json:"userId"`
		ActivityName   string `json:"activityName"`
		StartTimestamp int64  `json:"startTimestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !utils.IsValidDiscordID(req.UserID) {
		respondWithError(w, http.StatusBadRequest, "Invalid or missing userId")
		return
	}
	if !middleware.IsOwner(ctx, req.UserID) {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	rec, err := h.streakService.RecordObservation(ctx, req.UserID, req.ActivityName, req.StartTimestamp)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTitle):
			respondWithError(w, http.StatusBadRequest, "Invalid or missing activityName")
		case errors.Is(err, services.ErrTooManyActivities):
			respondWithError(w, http.StatusBadRequest, "Too many activities tracked for this user")
		default:
			respondNotPersisted(w)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"streak":  viewOf(rec),
		"message": "Streak updated successfully",
	})
}
