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

type SecretsHandler struct {
	secretsService *services.SecretsService
}

func NewSecretsHandler(secretsService *services.SecretsService) *SecretsHandler {
	return &SecretsHandler{
		secretsService: secretsService,
	}
}

// GetAPIKey reports whether a RAWG API key is configured. Only a masked
// form is ever returned; the plaintext stays server-side.
func (h *SecretsHandler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
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

	masked, exists, err := h.secretsService.GetMaskedKey(ctx, userID)
	if err != nil {
		respondWithJSON(w, http.StatusOK, map[string]any{"apiKey": nil, "exists": false})
		return
	}
	if !exists {
		respondWithJSON(w, http.StatusOK, map[string]any{"apiKey": nil, "exists": false})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"apiKey": masked, "exists": true})
}

// SetAPIKey stores (or, when empty, deletes) the user's RAWG API key.
func (h *SecretsHandler) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		UserID string `json:"userId"`
		APIKey string `json:"apiKey"`
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

	if err := h.secretsService.SetKey(ctx, req.UserID, req.APIKey); err != nil {
		respondNotPersisted(w)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "API key stored successfully",
	})
}
