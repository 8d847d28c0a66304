package services

import (
	"context"
	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/metrics"
	"deepFocusAPI/internal/stats"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// saveRetries bounds the optimistic-concurrency loop in RecordSession. Two
// devices finishing a pomodoro at the same instant is the common contention
// case, so a handful of attempts is plenty.
const saveRetries = 5

type StatsService struct {
	repo         stats.Repository
	achievements *AchievementService
	competitions *CompetitionService
}

func NewStatsService(repo stats.Repository, achievements *AchievementService, competitions *CompetitionService) *StatsService {
	return &StatsService{
		repo:         repo,
		achievements: achievements,
		competitions: competitions,
	}
}

// RecordSession folds one completed pomodoro into the user's record and fans
// the new totals out to achievements and active competition entries. The
// fan-out is best effort; a broken evaluation never loses the session itself.
func (s *StatsService) RecordSession(ctx context.Context, userID string, minutes int, taskCompleted bool, taskID *uuid.UUID, occurredAt time.Time) (*stats.StatsRecord, error) {
	// Reject bad input before the loop; a first-time user must not gain a
	// record from a request that is going to fail.
	if minutes < 0 {
		return nil, apperrors.Validation("negative_minutes", "session minutes must not be negative")
	}

	var rec *stats.StatsRecord

	for attempt := 0; attempt < saveRetries; attempt++ {
		var err error
		rec, err = s.repo.Get(ctx, userID)
		if err != nil {
			if !apperrors.IsKind(err, apperrors.KindNotFound) {
				return nil, fmt.Errorf("failed to load stats: %w", err)
			}
			rec = stats.NewRecord(userID)
			created, err := s.repo.Create(ctx, rec)
			if err != nil {
				return nil, fmt.Errorf("failed to create stats record: %w", err)
			}
			if !created {
				// Lost the first-session race; reload and apply on top.
				continue
			}
		}

		res, err := rec.ApplySession(minutes, taskCompleted, taskID, occurredAt)
		if err != nil {
			return nil, err
		}

		saved, err := s.repo.SaveSession(ctx, rec, res)
		if err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		if saved {
			metrics.SessionsRecorded.Inc()
			s.fanOut(ctx, rec, occurredAt)
			return rec, nil
		}
	}

	return nil, apperrors.StateConflict("stats_contention", "stats record is being updated concurrently, retry the session")
}

func (s *StatsService) fanOut(ctx context.Context, rec *stats.StatsRecord, now time.Time) {
	if s.achievements != nil {
		if _, err := s.achievements.Evaluate(ctx, rec.UserID, rec.Snapshot(), now); err != nil {
			log.Printf("StatsService: achievement evaluation failed for %s: %v", rec.UserID, err)
		}
	}
	if s.competitions != nil {
		if err := s.competitions.SyncProgress(ctx, rec.UserID, rec, now); err != nil {
			log.Printf("StatsService: competition sync failed for %s: %v", rec.UserID, err)
		}
	}
}

// GetStats returns the user's record, or a zeroed one for users who have
// never completed a session.
func (s *StatsService) GetStats(ctx context.Context, userID string) (*stats.StatsRecord, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return stats.NewRecord(userID), nil
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return rec, nil
}

func (s *StatsService) GetSnapshot(ctx context.Context, userID string) (stats.Snapshot, error) {
	rec, err := s.GetStats(ctx, userID)
	if err != nil {
		return stats.Snapshot{}, err
	}
	return rec.Snapshot(), nil
}

func (s *StatsService) GetDailyStats(ctx context.Context, userID string, date time.Time) (stats.PeriodStats, error) {
	rec, err := s.GetStats(ctx, userID)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	return rec.StatsForDate(date), nil
}

func (s *StatsService) GetWeeklyStats(ctx context.Context, userID string, anchor time.Time) (stats.PeriodStats, error) {
	rec, err := s.GetStats(ctx, userID)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	return rec.StatsForWeek(anchor), nil
}

func (s *StatsService) GetMonthlyStats(ctx context.Context, userID string, anchor time.Time) (stats.PeriodStats, error) {
	rec, err := s.GetStats(ctx, userID)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	return rec.StatsForMonth(anchor), nil
}

// creditRewardPoints retries a reward credit a few times before giving up.
// Callers invoke it after a conditional one-shot write has already consumed
// the unlock or claim, so dropping the credit on a transient storage error
// would eat the points for good.
func creditRewardPoints(ctx context.Context, repo stats.Repository, userID string, points int) error {
	var err error
	for attempt := 0; attempt < saveRetries; attempt++ {
		if err = repo.AddRewardPoints(ctx, userID, points); err == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to credit %d points after %d attempts: %w", points, saveRetries, err)
}
