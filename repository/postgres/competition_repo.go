package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/competition"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompetitionRepo struct {
	db *pgxpool.Pool
}

func NewCompetitionRepo(db *pgxpool.Pool) *CompetitionRepo {
	return &CompetitionRepo{db: db}
}

const competitionColumns = `
	id, creator_id, title, description, type, scope, class_id, visibility,
	goal_metric, goal_target, goal_unit,
	start_date, end_date, registration_deadline,
	max_participants, min_participants, team_size, allow_late_join,
	late_join_deadline, requires_approval,
	prizes, status, invited_user_ids, settled_at, created_at, updated_at`

func scanCompetition(row pgx.Row) (*competition.Competition, error) {
	c := &competition.Competition{}
	var prizesJSON []byte
	var invited []string
	err := row.Scan(
		&c.ID,
		&c.CreatorID,
		&c.Title,
		&c.Description,
		&c.Type,
		&c.Scope,
		&c.ClassID,
		&c.Visibility,
		&c.Goal.Metric,
		&c.Goal.Target,
		&c.Goal.Unit,
		&c.Timing.StartDate,
		&c.Timing.EndDate,
		&c.Timing.RegistrationDeadline,
		&c.Rules.MaxParticipants,
		&c.Rules.MinParticipants,
		&c.Rules.TeamSize,
		&c.Rules.AllowLateJoin,
		&c.Rules.LateJoinDeadline,
		&c.Rules.RequiresApproval,
		&prizesJSON,
		&c.Status,
		&invited,
		&c.SettledAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(prizesJSON) > 0 {
		if err := json.Unmarshal(prizesJSON, &c.Prizes); err != nil {
			return nil, fmt.Errorf("failed to decode prizes: %w", err)
		}
	}
	c.InvitedUserIDs = invited
	return c, nil
}

func (r *CompetitionRepo) Create(ctx context.Context, c *competition.Competition) error {
	prizesJSON, err := json.Marshal(c.Prizes)
	if err != nil {
		return fmt.Errorf("failed to encode prizes: %w", err)
	}

	query := `
	INSERT INTO competitions
		(id, creator_id, title, description, type, scope, class_id, visibility,
		 goal_metric, goal_target, goal_unit,
		 start_date, end_date, registration_deadline,
		 max_participants, min_participants, team_size, allow_late_join,
		 late_join_deadline, requires_approval,
		 prizes, status, invited_user_ids, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	        $15, $16, $17, $18, $19, $20, $21, $22, $23, NOW(), NOW())
	`

	_, err = r.db.Exec(ctx, query,
		c.ID, c.CreatorID, c.Title, c.Description, c.Type, c.Scope, c.ClassID, c.Visibility,
		c.Goal.Metric, c.Goal.Target, c.Goal.Unit,
		c.Timing.StartDate, c.Timing.EndDate, c.Timing.RegistrationDeadline,
		c.Rules.MaxParticipants, c.Rules.MinParticipants, c.Rules.TeamSize, c.Rules.AllowLateJoin,
		c.Rules.LateJoinDeadline, c.Rules.RequiresApproval,
		prizesJSON, c.Status, c.InvitedUserIDs)
	if err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

func (r *CompetitionRepo) Get(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions WHERE id = $1`

	c, err := scanCompetition(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("competition_not_found", "competition does not exist")
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

func (r *CompetitionRepo) Update(ctx context.Context, c *competition.Competition) error {
	prizesJSON, err := json.Marshal(c.Prizes)
	if err != nil {
		return fmt.Errorf("failed to encode prizes: %w", err)
	}

	query := `
	UPDATE competitions
	SET title = $2, description = $3, type = $4, scope = $5, class_id = $6,
	    visibility = $7, goal_metric = $8, goal_target = $9, goal_unit = $10,
	    start_date = $11, end_date = $12, registration_deadline = $13,
	    max_participants = $14, min_participants = $15, team_size = $16,
	    allow_late_join = $17, late_join_deadline = $18, requires_approval = $19,
	    prizes = $20, status = $21, invited_user_ids = $22, updated_at = NOW()
	WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		c.ID, c.Title, c.Description, c.Type, c.Scope, c.ClassID,
		c.Visibility, c.Goal.Metric, c.Goal.Target, c.Goal.Unit,
		c.Timing.StartDate, c.Timing.EndDate, c.Timing.RegistrationDeadline,
		c.Rules.MaxParticipants, c.Rules.MinParticipants, c.Rules.TeamSize,
		c.Rules.AllowLateJoin, c.Rules.LateJoinDeadline, c.Rules.RequiresApproval,
		prizesJSON, c.Status, c.InvitedUserIDs)
	if err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("competition_not_found", "competition does not exist")
	}
	return nil
}

func (r *CompetitionRepo) List(ctx context.Context, f competition.Filter) ([]*competition.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions WHERE 1=1`
	args := []interface{}{}

	if f.Status != nil {
		args = append(args, *f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Scope != nil {
		args = append(args, *f.Scope)
		query += fmt.Sprintf(" AND scope = $%d", len(args))
	}
	if f.ClassID != nil {
		args = append(args, *f.ClassID)
		query += fmt.Sprintf(" AND class_id = $%d", len(args))
	}
	if f.CreatorID != nil {
		args = append(args, *f.CreatorID)
		query += fmt.Sprintf(" AND creator_id = $%d", len(args))
	}

	query += " ORDER BY start_date DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	var comps []*competition.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		comps = append(comps, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitions: %w", err)
	}

	return comps, nil
}

func (r *CompetitionRepo) ListEndedUnsettled(ctx context.Context, now time.Time) ([]*competition.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions
	WHERE end_date < $1
	  AND settled_at IS NULL
	  AND status NOT IN ('cancelled', 'draft')
	ORDER BY end_date
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled competitions: %w", err)
	}
	defer rows.Close()

	var comps []*competition.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		comps = append(comps, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitions: %w", err)
	}

	return comps, nil
}

// MarkSettled is the settle-once guard: only one caller ever flips the
// settled timestamp from null.
func (r *CompetitionRepo) MarkSettled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
	UPDATE competitions
	SET settled_at = $2, status = 'completed', updated_at = NOW()
	WHERE id = $1 AND settled_at IS NULL AND status != 'cancelled'
	`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark competition settled: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

var _ competition.Repository = (*CompetitionRepo)(nil)
