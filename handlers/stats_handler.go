package handlers

import (
	"context"
	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/middleware"
	"deepFocusAPI/services"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

type recordSessionRequest struct {
	Minutes       int        `json:"minutes"`
	TaskCompleted bool       `json:"task_completed"`
	TaskID        *uuid.UUID `json:"task_id,omitempty"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

func (h *StatsHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req recordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	rec, err := h.statsService.RecordSession(ctx, clerkID, req.Minutes, req.TaskCompleted, req.TaskID, occurredAt)
	if err != nil {
		log.Printf("RecordSession Handler: failed for %s: %v", clerkID, err)
		respondWithServiceError(w, err, "Error recording session")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rec, err := h.statsService.GetStats(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Error getting stats")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// anchorDate reads an optional ?date=YYYY-MM-DD query parameter, defaulting
// to today.
func anchorDate(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now().UTC(), true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func (h *StatsHandler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	date, ok := anchorDate(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'date' must be YYYY-MM-DD")
		return
	}

	period, err := h.statsService.GetDailyStats(ctx, clerkID, date)
	if err != nil {
		respondWithServiceError(w, err, "Error getting daily stats")
		return
	}

	respondWithJSON(w, http.StatusOK, period)
}

func (h *StatsHandler) GetWeeklyStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	date, ok := anchorDate(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'date' must be YYYY-MM-DD")
		return
	}

	period, err := h.statsService.GetWeeklyStats(ctx, clerkID, date)
	if err != nil {
		respondWithServiceError(w, err, "Error getting weekly stats")
		return
	}

	respondWithJSON(w, http.StatusOK, period)
}

func (h *StatsHandler) GetMonthlyStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	date, ok := anchorDate(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'date' must be YYYY-MM-DD")
		return
	}

	period, err := h.statsService.GetMonthlyStats(ctx, clerkID, date)
	if err != nil {
		respondWithServiceError(w, err, "Error getting monthly stats")
		return
	}

	respondWithJSON(w, http.StatusOK, period)
}

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

// respondWithServiceError translates the error taxonomy into HTTP statuses
// and surfaces the machine-readable reason alongside the message.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		code = http.StatusBadRequest
	case apperrors.KindNotFound:
		code = http.StatusNotFound
	case apperrors.KindStateConflict, apperrors.KindCapacity:
		code = http.StatusConflict
	case apperrors.KindAuthorization:
		code = http.StatusForbidden
	}

	payload := map[string]string{"error": fallback}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		payload["error"] = appErr.Message
		payload["reason"] = appErr.Reason
	}
	respondWithJSON(w, code, payload)
}
