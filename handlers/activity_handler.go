package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nopalinto/discord-profile-card/internal/presence"
	"github.com/Nopalinto/discord-profile-card/middleware"
	"github.com/Nopalinto/discord-profile-card/services"
	"github.com/Nopalinto/discord-profile-card/utils"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// GetActivities serves the card's activity list: live data when upstream
// has it, cached data otherwise. Public; reads are not owner-gated.
func (h *ActivityHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID := r.URL.Query().Get("userId")
	if !utils.IsValidDiscordID(userID) {
		respondWithError(w, http.StatusBadRequest, "Invalid or missing userId")
		return
	}

	snap, err := h.activityService.GetActivities(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve activities")
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

// StoreActivities persists a snapshot reported by the user's own polling
// session and registers the user for the background sweep.
func (h *ActivityHandler) StoreActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		UserID     string              `json:"userId"`
		Activities []presence.Activity `json:"activities"`
		Spotify    *presence.Spotify   `json:"spotify"`
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

	if err := h.activityService.StoreActivities(ctx, req.UserID, req.Activities, req.Spotify); err != nil {
		respondNotPersisted(w)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Activities stored successfully",
	})
}
