package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/competition"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntryRepo struct {
	db *pgxpool.Pool
}

func NewEntryRepo(db *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{db: db}
}

const entryColumns = `
	id, competition_id, user_id, team_id,
	current_value, target, percent,
	rank_current, rank_previous, rank_best, rank_trend,
	stat_sessions, stat_focus_minutes, stat_streak_days, stat_avg_session_minutes,
	status,
	prize_rank, prize_title, prize_points, prize_badge,
	prize_claimed, prize_claimed_at, prize_awarded_at,
	joined_at, last_active_at, updated_at, withdrawn_at, withdraw_reason`

func scanEntry(row pgx.Row) (*competition.Entry, error) {
	e := &competition.Entry{}
	var prizeRank, prizePoints *int
	var prizeTitle, prizeBadge *string
	var prizeClaimed *bool
	var prizeClaimedAt, prizeAwardedAt *time.Time
	err := row.Scan(
		&e.ID,
		&e.CompetitionID,
		&e.UserID,
		&e.TeamID,
		&e.Progress.CurrentValue,
		&e.Progress.Target,
		&e.Progress.Percent,
		&e.Rank.Current,
		&e.Rank.Previous,
		&e.Rank.Best,
		&e.Rank.Trend,
		&e.Stats.Sessions,
		&e.Stats.FocusMinutes,
		&e.Stats.StreakDays,
		&e.Stats.AvgSessionMinutes,
		&e.Status,
		&prizeRank,
		&prizeTitle,
		&prizePoints,
		&prizeBadge,
		&prizeClaimed,
		&prizeClaimedAt,
		&prizeAwardedAt,
		&e.JoinedAt,
		&e.LastActiveAt,
		&e.UpdatedAt,
		&e.WithdrawnAt,
		&e.WithdrawReason,
	)
	if err != nil {
		return nil, err
	}
	if prizeRank != nil {
		e.Prize = &competition.AwardedPrize{
			Rank:      *prizeRank,
			ClaimedAt: prizeClaimedAt,
		}
		if prizeTitle != nil {
			e.Prize.Title = *prizeTitle
		}
		if prizePoints != nil {
			e.Prize.Points = *prizePoints
		}
		if prizeBadge != nil {
			e.Prize.Badge = *prizeBadge
		}
		if prizeClaimed != nil {
			e.Prize.Claimed = *prizeClaimed
		}
		if prizeAwardedAt != nil {
			e.Prize.AwardedAt = *prizeAwardedAt
		}
	}
	return e, nil
}

func (r *EntryRepo) loadMilestones(ctx context.Context, entryID uuid.UUID) ([]competition.Milestone, error) {
	query := `SELECT value, reached_at FROM competition_milestones WHERE entry_id = $1 ORDER BY value`

	rows, err := r.db.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load milestones: %w", err)
	}
	defer rows.Close()

	milestones := []competition.Milestone{}
	for rows.Next() {
		var m competition.Milestone
		if err := rows.Scan(&m.Value, &m.ReachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func (r *EntryRepo) Create(ctx context.Context, e *competition.Entry) error {
	query := `
	INSERT INTO competition_entries
		(id, competition_id, user_id, team_id,
		 current_value, target, percent,
		 rank_current, rank_previous, rank_best, rank_trend,
		 stat_sessions, stat_focus_minutes, stat_streak_days, stat_avg_session_minutes,
		 status, joined_at, last_active_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, 'new', 0, 0, 0, 0, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		e.ID, e.CompetitionID, e.UserID, e.TeamID,
		e.Progress.CurrentValue, e.Progress.Target, e.Progress.Percent,
		e.Status, e.JoinedAt, e.LastActiveAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

func (r *EntryRepo) Get(ctx context.Context, competitionID uuid.UUID, userID string) (*competition.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM competition_entries
	WHERE competition_id = $1 AND user_id = $2`

	e, err := scanEntry(r.db.QueryRow(ctx, query, competitionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("entry_not_found", "user has not joined this competition")
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	e.Milestones, err = r.loadMilestones(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EntryRepo) ListByCompetition(ctx context.Context, competitionID uuid.UUID) ([]*competition.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM competition_entries
	WHERE competition_id = $1
	ORDER BY current_value DESC, updated_at ASC`

	rows, err := r.db.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*competition.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	for _, e := range entries {
		e.Milestones, err = r.loadMilestones(ctx, e.ID)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *EntryRepo) ListActiveByUser(ctx context.Context, userID string) ([]*competition.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM competition_entries
	WHERE user_id = $1 AND status = 'active'
	ORDER BY joined_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user entries: %w", err)
	}
	defer rows.Close()

	var entries []*competition.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	for _, e := range entries {
		e.Milestones, err = r.loadMilestones(ctx, e.ID)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// CountByCompetition counts everyone occupying a slot, withdrawn entries
// excluded so their seats free up.
func (r *EntryRepo) CountByCompetition(ctx context.Context, competitionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM competition_entries WHERE competition_id = $1 AND status != 'withdrawn'`,
		competitionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

func (r *EntryRepo) UpdateProgress(ctx context.Context, e *competition.Entry) (bool, error) {
	query := `
	UPDATE competition_entries
	SET current_value = $3, percent = $4,
	    stat_sessions = $5, stat_focus_minutes = $6, stat_streak_days = $7,
	    stat_avg_session_minutes = $8,
	    last_active_at = $9, updated_at = $10
	WHERE competition_id = $1 AND user_id = $2 AND status = 'active'
	`

	result, err := r.db.Exec(ctx, query,
		e.CompetitionID, e.UserID,
		e.Progress.CurrentValue, e.Progress.Percent,
		e.Stats.Sessions, e.Stats.FocusMinutes, e.Stats.StreakDays,
		e.Stats.AvgSessionMinutes,
		e.LastActiveAt, e.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update entry progress: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *EntryRepo) AddMilestone(ctx context.Context, entryID uuid.UUID, m competition.Milestone) (bool, error) {
	query := `
	INSERT INTO competition_milestones (entry_id, value, reached_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (entry_id, value) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, entryID, m.Value, m.ReachedAt)
	if err != nil {
		return false, fmt.Errorf("failed to add milestone: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *EntryRepo) SaveRank(ctx context.Context, entryID uuid.UUID, rank competition.RankInfo) error {
	query := `
	UPDATE competition_entries
	SET rank_current = $2, rank_previous = $3, rank_best = $4, rank_trend = $5
	WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, entryID, rank.Current, rank.Previous, rank.Best, rank.Trend)
	if err != nil {
		return fmt.Errorf("failed to save rank: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("entry_not_found", "entry does not exist")
	}
	return nil
}

func (r *EntryRepo) Withdraw(ctx context.Context, competitionID uuid.UUID, userID, reason string, at time.Time) (bool, error) {
	query := `
	UPDATE competition_entries
	SET status = 'withdrawn', withdrawn_at = $3, withdraw_reason = $4, updated_at = $3
	WHERE competition_id = $1 AND user_id = $2 AND status != 'withdrawn'
	`

	result, err := r.db.Exec(ctx, query, competitionID, userID, at, reason)
	if err != nil {
		return false, fmt.Errorf("failed to withdraw entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *EntryRepo) Reactivate(ctx context.Context, competitionID uuid.UUID, userID string, target int, at time.Time) (bool, error) {
	query := `
	UPDATE competition_entries
	SET status = 'active', target = $3,
	    withdrawn_at = NULL, withdraw_reason = '',
	    last_active_at = $4, updated_at = $4
	WHERE competition_id = $1 AND user_id = $2 AND status = 'withdrawn'
	`

	result, err := r.db.Exec(ctx, query, competitionID, userID, target, at)
	if err != nil {
		return false, fmt.Errorf("failed to reactivate entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *EntryRepo) SetStatus(ctx context.Context, competitionID uuid.UUID, userID string, status competition.EntryStatus) error {
	query := `
	UPDATE competition_entries
	SET status = $3, updated_at = NOW()
	WHERE competition_id = $1 AND user_id = $2
	`

	result, err := r.db.Exec(ctx, query, competitionID, userID, status)
	if err != nil {
		return fmt.Errorf("failed to set entry status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("entry_not_found", "user has not joined this competition")
	}
	return nil
}

func (r *EntryRepo) AssignPrize(ctx context.Context, entryID uuid.UUID, prize competition.AwardedPrize) (bool, error) {
	query := `
	UPDATE competition_entries
	SET prize_rank = $2, prize_title = $3, prize_points = $4, prize_badge = $5,
	    prize_claimed = false, prize_awarded_at = $6, updated_at = NOW()
	WHERE id = $1 AND prize_rank IS NULL
	`

	result, err := r.db.Exec(ctx, query, entryID,
		prize.Rank, prize.Title, prize.Points, prize.Badge, prize.AwardedAt)
	if err != nil {
		return false, fmt.Errorf("failed to assign prize: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *EntryRepo) ClaimPrize(ctx context.Context, competitionID uuid.UUID, userID string, at time.Time) (*competition.AwardedPrize, error) {
	query := `
	UPDATE competition_entries
	SET prize_claimed = true, prize_claimed_at = $3, updated_at = $3
	WHERE competition_id = $1 AND user_id = $2
	  AND prize_rank IS NOT NULL AND prize_claimed = false
	RETURNING prize_rank, prize_title, prize_points, prize_badge, prize_awarded_at
	`

	prize := &competition.AwardedPrize{Claimed: true, ClaimedAt: &at}
	err := r.db.QueryRow(ctx, query, competitionID, userID, at).Scan(
		&prize.Rank, &prize.Title, &prize.Points, &prize.Badge, &prize.AwardedAt)
	if err == nil {
		return prize, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim prize: %w", err)
	}

	// Nothing claimable. Distinguish no-prize from already-claimed.
	var claimed *bool
	err = r.db.QueryRow(ctx,
		`SELECT prize_claimed FROM competition_entries WHERE competition_id = $1 AND user_id = $2 AND prize_rank IS NOT NULL`,
		competitionID, userID).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("prize_not_found", "no prize was awarded to this entry")
		}
		return nil, fmt.Errorf("failed to inspect prize: %w", err)
	}
	return nil, apperrors.StateConflict("prize_already_claimed", "prize has already been claimed")
}

var _ competition.EntryRepository = (*EntryRepo)(nil)
