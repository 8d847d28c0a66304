package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/competition"

	"github.com/google/uuid"
)

type CompetitionRepo struct {
	mu           sync.Mutex
	competitions map[uuid.UUID]*competition.Competition
}

func NewCompetitionRepo() *CompetitionRepo {
	return &CompetitionRepo{competitions: make(map[uuid.UUID]*competition.Competition)}
}

func cloneCompetition(c *competition.Competition) *competition.Competition {
	cp := *c
	cp.Prizes = append([]competition.Prize(nil), c.Prizes...)
	cp.InvitedUserIDs = append([]string(nil), c.InvitedUserIDs...)
	return &cp
}

func (r *CompetitionRepo) Create(ctx context.Context, c *competition.Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.competitions[c.ID] = cloneCompetition(c)
	return nil
}

func (r *CompetitionRepo) Get(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.competitions[id]
	if !ok {
		return nil, apperrors.NotFound("competition_not_found", "competition does not exist")
	}
	return cloneCompetition(c), nil
}

func (r *CompetitionRepo) Update(ctx context.Context, c *competition.Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.competitions[c.ID]
	if !ok {
		return apperrors.NotFound("competition_not_found", "competition does not exist")
	}
	cp := cloneCompetition(c)
	// settled_at is owned by MarkSettled, never by a plain update.
	cp.SettledAt = existing.SettledAt
	r.competitions[c.ID] = cp
	return nil
}

func (r *CompetitionRepo) List(ctx context.Context, f competition.Filter) ([]*competition.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*competition.Competition
	for _, c := range r.competitions {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Scope != nil && c.Scope != *f.Scope {
			continue
		}
		if f.ClassID != nil && (c.ClassID == nil || *c.ClassID != *f.ClassID) {
			continue
		}
		if f.CreatorID != nil && c.CreatorID != *f.CreatorID {
			continue
		}
		out = append(out, cloneCompetition(c))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timing.StartDate.After(out[j].Timing.StartDate)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *CompetitionRepo) ListEndedUnsettled(ctx context.Context, now time.Time) ([]*competition.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*competition.Competition
	for _, c := range r.competitions {
		if c.Status == competition.StatusCancelled || c.Status == competition.StatusDraft {
			continue
		}
		if c.SettledAt != nil || !c.Timing.EndDate.Before(now) {
			continue
		}
		out = append(out, cloneCompetition(c))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timing.EndDate.Before(out[j].Timing.EndDate)
	})
	return out, nil
}

func (r *CompetitionRepo) MarkSettled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.competitions[id]
	if !ok {
		return false, apperrors.NotFound("competition_not_found", "competition does not exist")
	}
	if c.SettledAt != nil || c.Status == competition.StatusCancelled {
		return false, nil
	}
	settledAt := at
	c.SettledAt = &settledAt
	c.Status = competition.StatusCompleted
	c.UpdatedAt = at
	return true, nil
}

var _ competition.Repository = (*CompetitionRepo)(nil)
