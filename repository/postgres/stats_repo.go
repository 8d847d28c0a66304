package postgres

import (
	"context"
	"errors"
	"fmt"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/stats"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepo struct {
	db *pgxpool.Pool
}

func NewStatsRepo(db *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Get(ctx context.Context, userID string) (*stats.StatsRecord, error) {
	query := `
	SELECT user_id, total_sessions, total_minutes, total_tasks, competitions_won,
	       reward_points, current_streak, longest_streak, last_active_date,
	       version, created_at, updated_at
	FROM user_stats
	WHERE user_id = $1
	`

	rec := &stats.StatsRecord{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.TotalSessions,
		&rec.TotalMinutes,
		&rec.TotalTasks,
		&rec.CompetitionsWon,
		&rec.RewardPoints,
		&rec.CurrentStreak,
		&rec.LongestStreak,
		&rec.LastActiveDate,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("stats_not_found", "no stats record for user")
		}
		return nil, fmt.Errorf("failed to get stats record: %w", err)
	}

	bucketQuery := `
	SELECT date, sessions, minutes, tasks
	FROM daily_buckets
	WHERE user_id = $1
	ORDER BY date DESC
	`

	rows, err := r.db.Query(ctx, bucketQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily buckets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b stats.DailyBucket
		if err := rows.Scan(&b.Date, &b.Sessions, &b.Minutes, &b.Tasks); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		rec.Buckets = append(rec.Buckets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}

	return rec, nil
}

func (r *StatsRepo) Create(ctx context.Context, rec *stats.StatsRecord) (bool, error) {
	query := `
	INSERT INTO user_stats (user_id, total_sessions, total_minutes, total_tasks,
	                        competitions_won, reward_points, current_streak,
	                        longest_streak, last_active_date, version, created_at, updated_at)
	VALUES ($1, 0, 0, 0, 0, 0, 0, 0, NULL, 0, NOW(), NOW())
	ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, rec.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to create stats record: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// SaveSession writes the whole per-session mutation in one transaction:
// a version-guarded update of the counters row, an upsert of the touched
// bucket, the session detail row, and the retention prune. When the version
// guard misses the transaction is rolled back and (false, nil) returned.
func (r *StatsRepo) SaveSession(ctx context.Context, rec *stats.StatsRecord, res *stats.ApplyResult) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
	UPDATE user_stats
	SET total_sessions = $2,
	    total_minutes = $3,
	    total_tasks = $4,
	    current_streak = $5,
	    longest_streak = $6,
	    last_active_date = $7,
	    version = version + 1,
	    updated_at = NOW()
	WHERE user_id = $1 AND version = $8
	`

	result, err := tx.Exec(ctx, update,
		rec.UserID,
		rec.TotalSessions,
		rec.TotalMinutes,
		rec.TotalTasks,
		rec.CurrentStreak,
		rec.LongestStreak,
		rec.LastActiveDate,
		rec.Version,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update stats record: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Stale version; a concurrent RecordSession won the race.
		return false, nil
	}

	bucketUpsert := `
	INSERT INTO daily_buckets (user_id, date, sessions, minutes, tasks)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, date)
	DO UPDATE SET sessions = $3, minutes = $4, tasks = $5
	`

	_, err = tx.Exec(ctx, bucketUpsert,
		rec.UserID, res.Day, res.Bucket.Sessions, res.Bucket.Minutes, res.Bucket.Tasks)
	if err != nil {
		return false, fmt.Errorf("failed to upsert daily bucket: %w", err)
	}

	detailInsert := `
	INSERT INTO session_log (user_id, date, task_id, minutes, task_completed, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.Exec(ctx, detailInsert,
		rec.UserID, res.Day, res.Detail.TaskID, res.Detail.Minutes,
		res.Detail.TaskCompleted, res.Detail.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert session detail: %w", err)
	}

	prune := `DELETE FROM daily_buckets WHERE user_id = $1 AND date < $2`
	cutoff := res.Day.AddDate(0, 0, -stats.RetentionDays)
	if _, err = tx.Exec(ctx, prune, rec.UserID, cutoff); err != nil {
		return false, fmt.Errorf("failed to prune buckets: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit session: %w", err)
	}

	rec.Version++
	return true, nil
}

func (r *StatsRepo) AddRewardPoints(ctx context.Context, userID string, points int) error {
	query := `
	UPDATE user_stats
	SET reward_points = reward_points + $2, updated_at = NOW()
	WHERE user_id = $1
	`

	result, err := r.db.Exec(ctx, query, userID, points)
	if err != nil {
		return fmt.Errorf("failed to add reward points: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("stats_not_found", "no stats record for user")
	}
	return nil
}

func (r *StatsRepo) IncrementCompetitionsWon(ctx context.Context, userID string) error {
	query := `
	UPDATE user_stats
	SET competitions_won = competitions_won + 1, updated_at = NOW()
	WHERE user_id = $1
	`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to increment competitions won: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("stats_not_found", "no stats record for user")
	}
	return nil
}

var _ stats.Repository = (*StatsRepo)(nil)
