// Package memory holds in-memory repository implementations used by the
// service tests. They honor the same conditional-write contracts as the
// postgres implementations.
package memory

import (
	"context"
	"sync"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/stats"
)

type StatsRepo struct {
	mu      sync.Mutex
	records map[string]*stats.StatsRecord
}

func NewStatsRepo() *StatsRepo {
	return &StatsRepo{records: make(map[string]*stats.StatsRecord)}
}

func (r *StatsRepo) Get(ctx context.Context, userID string) (*stats.StatsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, apperrors.NotFound("stats_not_found", "no stats record for user")
	}
	return rec.Clone(), nil
}

func (r *StatsRepo) Create(ctx context.Context, rec *stats.StatsRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.UserID]; ok {
		return false, nil
	}
	r.records[rec.UserID] = rec.Clone()
	return true, nil
}

func (r *StatsRepo) SaveSession(ctx context.Context, rec *stats.StatsRecord, res *stats.ApplyResult) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[rec.UserID]
	if !ok || stored.Version != rec.Version {
		return false, nil
	}
	saved := rec.Clone()
	saved.Version++
	r.records[rec.UserID] = saved
	rec.Version++
	return true, nil
}

func (r *StatsRepo) AddRewardPoints(ctx context.Context, userID string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return apperrors.NotFound("stats_not_found", "no stats record for user")
	}
	rec.RewardPoints += points
	return nil
}

func (r *StatsRepo) IncrementCompetitionsWon(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return apperrors.NotFound("stats_not_found", "no stats record for user")
	}
	rec.CompetitionsWon++
	return nil
}

var _ stats.Repository = (*StatsRepo)(nil)
