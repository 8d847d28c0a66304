package handlers

import (
	"context"
	"deepFocusAPI/middleware"
	"deepFocusAPI/services"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
	statsService       *services.StatsService
}

func NewAchievementHandler(achievementService *services.AchievementService, statsService *services.StatsService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
		statsService:       statsService,
	}
}

func achievementID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["achievementID"])
	return id, err == nil
}

func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	snap, err := h.statsService.GetSnapshot(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error loading stats")
		return
	}

	achievements, err := h.achievementService.ListCatalog(ctx, clerkID, snap)
	if err != nil {
		respondWithServiceError(w, err, "Error getting achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) GetAchievement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := achievementID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid achievement id")
		return
	}

	snap, err := h.statsService.GetSnapshot(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error loading stats")
		return
	}

	achievement, err := h.achievementService.GetAchievement(ctx, clerkID, id, snap)
	if err != nil {
		respondWithServiceError(w, err, "Error getting achievement")
		return
	}

	respondWithJSON(w, http.StatusOK, achievement)
}

func (h *AchievementHandler) CheckAchievement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := achievementID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid achievement id")
		return
	}

	snap, err := h.statsService.GetSnapshot(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error loading stats")
		return
	}

	check, err := h.achievementService.CheckUnlockable(ctx, clerkID, id, snap)
	if err != nil {
		respondWithServiceError(w, err, "Error checking achievement")
		return
	}

	respondWithJSON(w, http.StatusOK, check)
}

type setFavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (h *AchievementHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := achievementID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid achievement id")
		return
	}

	var req setFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.achievementService.SetFavorite(ctx, clerkID, id, req.Favorite); err != nil {
		respondWithServiceError(w, err, "Error updating favorite")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"favorite": req.Favorite})
}

func (h *AchievementHandler) ShareAchievement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := achievementID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid achievement id")
		return
	}

	count, err := h.achievementService.Share(ctx, clerkID, id)
	if err != nil {
		respondWithServiceError(w, err, "Error sharing achievement")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"shared_count": count})
}
