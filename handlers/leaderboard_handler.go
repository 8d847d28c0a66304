package handlers

import (
	"context"
	"deepFocusAPI/middleware"
	"deepFocusAPI/services"
	"net/http"
	"strconv"
	"time"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := competitionID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid competition id")
		return
	}

	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	board, err := h.leaderboardService.GetLeaderboard(ctx, id, limit, offset)
	if err != nil {
		respondWithServiceError(w, err, "Error getting leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func (h *LeaderboardHandler) GetMyStanding(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := competitionID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid competition id")
		return
	}

	standing, err := h.leaderboardService.UserStanding(ctx, id, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error getting standing")
		return
	}
	if standing == nil {
		respondWithError(w, http.StatusNotFound, "User is not on this leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, standing)
}
