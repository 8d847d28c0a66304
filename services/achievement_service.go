package services

import (
	"context"
	"deepFocusAPI/internal/achievement"
	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/metrics"
	"deepFocusAPI/internal/stats"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type AchievementService struct {
	repo  achievement.Repository
	stats stats.Repository
}

func NewAchievementService(repo achievement.Repository, statsRepo stats.Repository) *AchievementService {
	return &AchievementService{repo: repo, stats: statsRepo}
}

// Evaluate runs the catalog against a stats snapshot and unlocks everything
// that qualifies, looping until a pass unlocks nothing so that a single big
// session can clear a whole prerequisite chain. Unlocks are monotonic: the
// conditional MarkUnlocked write means a concurrent evaluation for the same
// user awards each achievement exactly once.
func (s *AchievementService) Evaluate(ctx context.Context, userID string, snap stats.Snapshot, now time.Time) ([]*achievement.Definition, error) {
	defs, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	// A broken prerequisite graph is refused outright rather than leaving
	// the achievements on the cycle silently un-unlockable.
	if err := achievement.ValidateCatalog(defs); err != nil {
		return nil, err
	}

	progByID, unlocked, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	var newly []*achievement.Definition
	for changed := true; changed; {
		changed = false
		for _, def := range defs {
			if !def.IsActive || progByID[def.ID].Unlocked() {
				continue
			}

			prog := progByID[def.ID]
			if prog == nil {
				prog = achievement.NewProgress(userID, def)
				if err := s.repo.CreateProgress(ctx, prog); err != nil {
					return newly, fmt.Errorf("failed to create progress: %w", err)
				}
				progByID[def.ID] = prog
			}

			check := achievement.CheckUnlock(def, prog, snap, unlocked, now)
			if check.CurrentValue != prog.CurrentValue {
				if err := s.repo.UpdateProgressValue(ctx, userID, def.ID, check.CurrentValue); err != nil {
					log.Printf("AchievementService: failed to update progress for %s/%s: %v", userID, def.ID, err)
				} else {
					prog.CurrentValue = check.CurrentValue
				}
			}
			if !check.Unlockable {
				continue
			}

			applied, err := s.repo.MarkUnlocked(ctx, userID, def.ID, now)
			if err != nil {
				return newly, fmt.Errorf("failed to unlock achievement: %w", err)
			}
			unlockedAt := now
			prog.UnlockedAt = &unlockedAt
			unlocked[def.ID] = true
			changed = true
			if !applied {
				// Another evaluation got there first; it owns the side effects.
				continue
			}

			newly = append(newly, def)
			metrics.AchievementsUnlocked.Inc()
			if err := s.repo.IncrementTotalUnlocked(ctx, def.ID); err != nil {
				log.Printf("AchievementService: failed to bump unlock counter for %s: %v", def.ID, err)
			}
			if def.RewardPoints > 0 {
				if err := creditRewardPoints(ctx, s.stats, userID, def.RewardPoints); err != nil {
					log.Printf("AchievementService: unlock of %s for %s kept but credit failed: %v", def.ID, userID, err)
				}
			}
		}
	}

	return newly, nil
}

func (s *AchievementService) loadProgress(ctx context.Context, userID string) (map[uuid.UUID]*achievement.Progress, map[uuid.UUID]bool, error) {
	progress, err := s.repo.ListProgress(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list progress: %w", err)
	}

	progByID := make(map[uuid.UUID]*achievement.Progress, len(progress))
	unlocked := make(map[uuid.UUID]bool)
	for _, p := range progress {
		progByID[p.AchievementID] = p
		if p.Unlocked() {
			unlocked[p.AchievementID] = true
		}
	}
	return progByID, unlocked, nil
}

// ListCatalog merges the catalog with the caller's progress. Hidden
// achievements stay invisible until unlocked.
func (s *AchievementService) ListCatalog(ctx context.Context, userID string, snap stats.Snapshot) ([]*achievement.AchievementWithStatus, error) {
	defs, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	achievement.SortDefinitions(defs)

	progByID, _, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*achievement.AchievementWithStatus, 0, len(defs))
	for _, def := range defs {
		prog := progByID[def.ID]
		if def.IsHidden && !prog.Unlocked() {
			continue
		}

		status := &achievement.AchievementWithStatus{Definition: *def}
		value := achievement.MetricValue(snap, def.Metric)
		if prog != nil {
			status.IsFavorite = prog.IsFavorite
			if prog.CurrentValue > value {
				value = prog.CurrentValue
			}
		}
		status.CurrentValue = value
		status.ProgressPercent = achievement.ProgressPercent(value, def.Threshold)
		if prog.Unlocked() {
			status.Unlocked = true
			status.UnlockedAt = prog.UnlockedAt
			status.ProgressPercent = 100
		}
		out = append(out, status)
	}
	return out, nil
}

// GetAchievement returns one catalog entry with the caller's progress and
// records the view.
func (s *AchievementService) GetAchievement(ctx context.Context, userID string, achievementID uuid.UUID, snap stats.Snapshot) (*achievement.AchievementWithStatus, error) {
	def, err := s.repo.GetDefinition(ctx, achievementID)
	if err != nil {
		return nil, err
	}

	prog, err := s.repo.GetProgress(ctx, userID, achievementID)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}
	if def.IsHidden && !prog.Unlocked() {
		return nil, apperrors.NotFound("achievement_not_found", "achievement does not exist")
	}

	if prog != nil {
		if err := s.repo.MarkViewed(ctx, userID, achievementID, time.Now().UTC()); err != nil {
			log.Printf("AchievementService: failed to mark %s viewed: %v", achievementID, err)
		}
	}

	status := &achievement.AchievementWithStatus{Definition: *def}
	value := achievement.MetricValue(snap, def.Metric)
	if prog != nil {
		status.IsFavorite = prog.IsFavorite
		if prog.CurrentValue > value {
			value = prog.CurrentValue
		}
	}
	status.CurrentValue = value
	status.ProgressPercent = achievement.ProgressPercent(value, def.Threshold)
	if prog.Unlocked() {
		status.Unlocked = true
		status.UnlockedAt = prog.UnlockedAt
		status.ProgressPercent = 100
	}
	return status, nil
}

// CheckUnlockable reports whether a single achievement could unlock right
// now, and if not, why. Nothing is written.
func (s *AchievementService) CheckUnlockable(ctx context.Context, userID string, achievementID uuid.UUID, snap stats.Snapshot) (*achievement.UnlockCheck, error) {
	def, err := s.repo.GetDefinition(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	prog, err := s.repo.GetProgress(ctx, userID, achievementID)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}
	if def.IsHidden && !prog.Unlocked() {
		return nil, apperrors.NotFound("achievement_not_found", "achievement does not exist")
	}

	_, unlocked, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	check := achievement.CheckUnlock(def, prog, snap, unlocked, time.Now().UTC())
	return &check, nil
}

// SetFavorite pins or unpins an achievement on the user's profile. A
// progress row is materialized on first touch so locked achievements can be
// favorited too.
func (s *AchievementService) SetFavorite(ctx context.Context, userID string, achievementID uuid.UUID, favorite bool) error {
	if err := s.ensureProgress(ctx, userID, achievementID); err != nil {
		return err
	}
	return s.repo.SetFavorite(ctx, userID, achievementID, favorite)
}

// Share bumps the share counter for an unlocked achievement and returns the
// new count.
func (s *AchievementService) Share(ctx context.Context, userID string, achievementID uuid.UUID) (int, error) {
	prog, err := s.repo.GetProgress(ctx, userID, achievementID)
	if err != nil {
		return 0, err
	}
	if !prog.Unlocked() {
		return 0, apperrors.StateConflict("achievement_locked", "only unlocked achievements can be shared")
	}
	return s.repo.IncrementShareCount(ctx, userID, achievementID)
}

func (s *AchievementService) ensureProgress(ctx context.Context, userID string, achievementID uuid.UUID) error {
	def, err := s.repo.GetDefinition(ctx, achievementID)
	if err != nil {
		return err
	}
	return s.repo.CreateProgress(ctx, achievement.NewProgress(userID, def))
}
