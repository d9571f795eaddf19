package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/Nopalinto/discord-profile-card/internal/store"
	"github.com/Nopalinto/discord-profile-card/services"
)

type SweepHandler struct {
	sweepService *services.SweepService
}

func NewSweepHandler(sweepService *services.SweepService) *SweepHandler {
	return &SweepHandler{
		sweepService: sweepService,
	}
}

// RunSweep refreshes all tracked users. Called by an external scheduler
// on a coarse cadence; when CRON_SECRET is set the caller must present it
// as a bearer token.
func (h *SweepHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		if r.Header.Get("Authorization") != "Bearer "+secret {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	report, err := h.sweepService.Sweep(ctx)
	if err != nil {
		// REDIS_NOT_CONFIGURED is reserved for storage being down.
		if errors.Is(err, store.ErrUnavailable) {
			respondNotPersisted(w)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Sweep failed")
		return
	}

	if report.Total == 0 {
		respondWithJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "No tracked users to update",
			"updated": 0,
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"runId":   report.RunID,
		"updated": report.Updated,
		"total":   report.Total,
	})
}
