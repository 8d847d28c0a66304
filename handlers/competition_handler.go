package handlers

import (
	"context"
	"deepFocusAPI/internal/competition"
	"deepFocusAPI/middleware"
	"deepFocusAPI/services"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type CompetitionHandler struct {
	competitionService *services.CompetitionService
	leaderboardService *services.LeaderboardService
}

func NewCompetitionHandler(competitionService *services.CompetitionService, leaderboardService *services.LeaderboardService) *CompetitionHandler {
	return &CompetitionHandler{
		competitionService: competitionService,
		leaderboardService: leaderboardService,
	}
}

func competitionID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["competitionID"])
	return id, err == nil
}

func (h *CompetitionHandler) CreateCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var comp competition.Competition
	if err := json.NewDecoder(r.Body).Decode(&comp); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	comp.CreatorID = clerkID

	created, err := h.competitionService.CreateCompetition(ctx, &comp)
	if err != nil {
		respondWithServiceError(w, err, "Error creating competition")
		return
	}

	log.Printf("CreateCompetition Handler: %s created competition %s", clerkID, created.ID)
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CompetitionHandler) GetCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var filter competition.Filter
	query := r.URL.Query()
	if raw := query.Get("status"); raw != "" {
		status := competition.Status(raw)
		filter.Status = &status
	}
	if raw := query.Get("scope"); raw != "" {
		scope := competition.Scope(raw)
		filter.Scope = &scope
	}
	if raw := query.Get("class_id"); raw != "" {
		filter.ClassID = &raw
	}
	if query.Get("mine") == "true" {
		filter.CreatorID = &clerkID
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	comps, err := h.competitionService.ListCompetitions(ctx, filter)
	if err != nil {
		respondWithServiceError(w, err, "Error listing competitions")
		return
	}

	respondWithJSON(w, http.StatusOK, comps)
}

func (h *CompetitionHandler) GetCompetition(w http.ResponseWriter, r *http.Request) {
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

	comp, err := h.competitionService.GetCompetition(ctx, id)
	if err != nil {
		respondWithServiceError(w, err, "Error getting competition")
		return
	}

	respondWithJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) UpdateCompetition(w http.ResponseWriter, r *http.Request) {
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

	var comp competition.Competition
	if err := json.NewDecoder(r.Body).Decode(&comp); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	comp.ID = id

	updated, err := h.competitionService.UpdateCompetition(ctx, clerkID, &comp)
	if err != nil {
		respondWithServiceError(w, err, "Error updating competition")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CompetitionHandler) PublishCompetition(w http.ResponseWriter, r *http.Request) {
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

	comp, err := h.competitionService.Publish(ctx, clerkID, id)
	if err != nil {
		respondWithServiceError(w, err, "Error publishing competition")
		return
	}

	respondWithJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) CancelCompetition(w http.ResponseWriter, r *http.Request) {
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

	if err := h.competitionService.Cancel(ctx, clerkID, id); err != nil {
		respondWithServiceError(w, err, "Error cancelling competition")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *CompetitionHandler) EndCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
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

	if err := h.competitionService.End(ctx, clerkID, id); err != nil {
		respondWithServiceError(w, err, "Error ending competition")
		return
	}
	h.leaderboardService.Invalidate(ctx, id)

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

type joinCompetitionRequest struct {
	TeamID *string `json:"team_id,omitempty"`
}

func (h *CompetitionHandler) JoinCompetition(w http.ResponseWriter, r *http.Request) {
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

	var req joinCompetitionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	entry, err := h.competitionService.Join(ctx, id, clerkID, req.TeamID)
	if err != nil {
		respondWithServiceError(w, err, "Error joining competition")
		return
	}

	log.Printf("JoinCompetition Handler: %s joined %s", clerkID, id)
	respondWithJSON(w, http.StatusCreated, entry)
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

func (h *CompetitionHandler) WithdrawEntry(w http.ResponseWriter, r *http.Request) {
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

	var req withdrawRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if err := h.competitionService.WithdrawEntry(ctx, id, clerkID, req.Reason); err != nil {
		respondWithServiceError(w, err, "Error withdrawing from competition")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *CompetitionHandler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
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

	userID := mux.Vars(r)["userID"]
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing user id")
		return
	}

	if err := h.competitionService.ApproveEntry(ctx, id, clerkID, userID); err != nil {
		respondWithServiceError(w, err, "Error approving entry")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *CompetitionHandler) GetMyEntry(w http.ResponseWriter, r *http.Request) {
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

	entry, err := h.competitionService.GetEntry(ctx, id, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error getting entry")
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

func (h *CompetitionHandler) GetMyCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	entries, err := h.competitionService.ListUserEntries(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error listing entries")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *CompetitionHandler) ClaimPrize(w http.ResponseWriter, r *http.Request) {
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

	prize, err := h.competitionService.ClaimPrize(ctx, id, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error claiming prize")
		return
	}

	log.Printf("ClaimPrize Handler: %s claimed rank %d prize in %s", clerkID, prize.Rank, id)
	respondWithJSON(w, http.StatusOK, prize)
}
