package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deepFocusAPI/internal/achievement"
	"deepFocusAPI/internal/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementRepo struct {
	db *pgxpool.Pool
}

func NewAchievementRepo(db *pgxpool.Pool) *AchievementRepo {
	return &AchievementRepo{db: db}
}

const definitionColumns = `
	id, name, description, icon, metric, threshold, timeframe, prerequisites,
	rarity, reward_points, is_active, is_hidden, available_from, available_until,
	total_unlocked, created_at`

func scanDefinition(row pgx.Row) (*achievement.Definition, error) {
	def := &achievement.Definition{}
	var prereqs []uuid.UUID
	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Description,
		&def.Icon,
		&def.Metric,
		&def.Threshold,
		&def.Timeframe,
		&prereqs,
		&def.Rarity,
		&def.RewardPoints,
		&def.IsActive,
		&def.IsHidden,
		&def.AvailableFrom,
		&def.AvailableUntil,
		&def.TotalUnlocked,
		&def.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	def.Prerequisites = prereqs
	return def, nil
}

func (r *AchievementRepo) ListDefinitions(ctx context.Context) ([]*achievement.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM achievements ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var defs []*achievement.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		defs = append(defs, def)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return defs, nil
}

func (r *AchievementRepo) GetDefinition(ctx context.Context, id uuid.UUID) (*achievement.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM achievements WHERE id = $1`

	def, err := scanDefinition(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("achievement_not_found", "achievement does not exist")
		}
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	return def, nil
}

func (r *AchievementRepo) IncrementTotalUnlocked(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE achievements SET total_unlocked = total_unlocked + 1 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment total unlocked: %w", err)
	}
	return nil
}

const progressColumns = `
	id, user_id, achievement_id, current_value, threshold, unlocked_at,
	is_favorite, viewed_at, shared_count, created_at, updated_at`

func scanProgress(row pgx.Row) (*achievement.Progress, error) {
	p := &achievement.Progress{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.AchievementID,
		&p.CurrentValue,
		&p.Threshold,
		&p.UnlockedAt,
		&p.IsFavorite,
		&p.ViewedAt,
		&p.SharedCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *AchievementRepo) ListProgress(ctx context.Context, userID string) ([]*achievement.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_achievement_progress WHERE user_id = $1`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievement progress: %w", err)
	}
	defer rows.Close()

	var progress []*achievement.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement progress: %w", err)
		}
		progress = append(progress, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement progress: %w", err)
	}

	return progress, nil
}

func (r *AchievementRepo) GetProgress(ctx context.Context, userID string, achievementID uuid.UUID) (*achievement.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_achievement_progress
	WHERE user_id = $1 AND achievement_id = $2`

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, achievementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("progress_not_found", "no progress record for this achievement")
		}
		return nil, fmt.Errorf("failed to get achievement progress: %w", err)
	}
	return p, nil
}

func (r *AchievementRepo) CreateProgress(ctx context.Context, prog *achievement.Progress) error {
	query := `
	INSERT INTO user_achievement_progress
		(id, user_id, achievement_id, current_value, threshold, is_favorite,
		 shared_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, false, 0, NOW(), NOW())
	ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		prog.ID, prog.UserID, prog.AchievementID, prog.CurrentValue, prog.Threshold)
	if err != nil {
		return fmt.Errorf("failed to create achievement progress: %w", err)
	}
	return nil
}

func (r *AchievementRepo) UpdateProgressValue(ctx context.Context, userID string, achievementID uuid.UUID, value int) error {
	query := `
	UPDATE user_achievement_progress
	SET current_value = $3, updated_at = NOW()
	WHERE user_id = $1 AND achievement_id = $2
	`

	if _, err := r.db.Exec(ctx, query, userID, achievementID, value); err != nil {
		return fmt.Errorf("failed to update progress value: %w", err)
	}
	return nil
}

// MarkUnlocked is the single-shot unlock: the WHERE clause only matches a
// row that is still locked, so two racing evaluators see exactly one true.
func (r *AchievementRepo) MarkUnlocked(ctx context.Context, userID string, achievementID uuid.UUID, at time.Time) (bool, error) {
	query := `
	UPDATE user_achievement_progress
	SET unlocked_at = $3, updated_at = NOW()
	WHERE user_id = $1 AND achievement_id = $2 AND unlocked_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, userID, achievementID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark achievement unlocked: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *AchievementRepo) SetFavorite(ctx context.Context, userID string, achievementID uuid.UUID, favorite bool) error {
	query := `
	UPDATE user_achievement_progress
	SET is_favorite = $3, updated_at = NOW()
	WHERE user_id = $1 AND achievement_id = $2
	`

	result, err := r.db.Exec(ctx, query, userID, achievementID, favorite)
	if err != nil {
		return fmt.Errorf("failed to set favorite: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("progress_not_found", "no progress record for this achievement")
	}
	return nil
}

func (r *AchievementRepo) MarkViewed(ctx context.Context, userID string, achievementID uuid.UUID, at time.Time) error {
	query := `
	UPDATE user_achievement_progress
	SET viewed_at = $3, updated_at = NOW()
	WHERE user_id = $1 AND achievement_id = $2
	`

	if _, err := r.db.Exec(ctx, query, userID, achievementID, at); err != nil {
		return fmt.Errorf("failed to mark viewed: %w", err)
	}
	return nil
}

func (r *AchievementRepo) IncrementShareCount(ctx context.Context, userID string, achievementID uuid.UUID) (int, error) {
	query := `
	UPDATE user_achievement_progress
	SET shared_count = shared_count + 1, updated_at = NOW()
	WHERE user_id = $1 AND achievement_id = $2
	RETURNING shared_count
	`

	var count int
	err := r.db.QueryRow(ctx, query, userID, achievementID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("progress_not_found", "no progress record for this achievement")
		}
		return 0, fmt.Errorf("failed to increment share count: %w", err)
	}
	return count, nil
}

var _ achievement.Repository = (*AchievementRepo)(nil)
