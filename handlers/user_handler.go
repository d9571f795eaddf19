package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nopalinto/discord-profile-card/middleware"
	"github.com/Nopalinto/discord-profile-card/services"
	"github.com/Nopalinto/discord-profile-card/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// DeleteUser removes every persisted trace of a user: the sweep registry
// entry, the activity cache, the streak table, and any stored API key.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
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

	if err := h.userService.RemoveUser(ctx, userID); err != nil {
		respondNotPersisted(w)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User data removed",
	})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondNotPersisted tells callers a write did not land, so they know
// streaks/cache are not being saved rather than silently succeeding.
func respondNotPersisted(w http.ResponseWriter) {
	respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{
		"success": false,
		"message": "Storage not available. Please configure Redis/KV.",
		"error":   "REDIS_NOT_CONFIGURED",
	})
}
