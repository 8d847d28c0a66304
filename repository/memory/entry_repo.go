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

type entryKey struct {
	competitionID uuid.UUID
	userID        string
}

type EntryRepo struct {
	mu      sync.Mutex
	entries map[entryKey]*competition.Entry
}

func NewEntryRepo() *EntryRepo {
	return &EntryRepo{entries: make(map[entryKey]*competition.Entry)}
}

func cloneEntry(e *competition.Entry) *competition.Entry {
	cp := *e
	cp.Milestones = append([]competition.Milestone(nil), e.Milestones...)
	if e.Prize != nil {
		prize := *e.Prize
		cp.Prize = &prize
	}
	return &cp
}

func (r *EntryRepo) byID(entryID uuid.UUID) *competition.Entry {
	for _, e := range r.entries {
		if e.ID == entryID {
			return e
		}
	}
	return nil
}

func (r *EntryRepo) Create(ctx context.Context, e *competition.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entryKey{e.CompetitionID, e.UserID}] = cloneEntry(e)
	return nil
}

func (r *EntryRepo) Get(ctx context.Context, competitionID uuid.UUID, userID string) (*competition.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryKey{competitionID, userID}]
	if !ok {
		return nil, apperrors.NotFound("entry_not_found", "user has not joined this competition")
	}
	return cloneEntry(e), nil
}

func (r *EntryRepo) ListByCompetition(ctx context.Context, competitionID uuid.UUID) ([]*competition.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*competition.Entry
	for key, e := range r.entries {
		if key.competitionID == competitionID {
			out = append(out, cloneEntry(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Progress.CurrentValue != out[j].Progress.CurrentValue {
			return out[i].Progress.CurrentValue > out[j].Progress.CurrentValue
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *EntryRepo) ListActiveByUser(ctx context.Context, userID string) ([]*competition.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*competition.Entry
	for key, e := range r.entries {
		if key.userID == userID && e.Status == competition.EntryStatusActive {
			out = append(out, cloneEntry(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.After(out[j].JoinedAt)
	})
	return out, nil
}

func (r *EntryRepo) CountByCompetition(ctx context.Context, competitionID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key, e := range r.entries {
		if key.competitionID == competitionID && e.Status != competition.EntryStatusWithdrawn {
			count++
		}
	}
	return count, nil
}

func (r *EntryRepo) UpdateProgress(ctx context.Context, e *competition.Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[entryKey{e.CompetitionID, e.UserID}]
	if !ok || stored.Status != competition.EntryStatusActive {
		return false, nil
	}
	stored.Progress = e.Progress
	stored.Stats = e.Stats
	stored.LastActiveAt = e.LastActiveAt
	stored.UpdatedAt = e.UpdatedAt
	return true, nil
}

func (r *EntryRepo) AddMilestone(ctx context.Context, entryID uuid.UUID, m competition.Milestone) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.byID(entryID)
	if e == nil {
		return false, apperrors.NotFound("entry_not_found", "entry does not exist")
	}
	for _, existing := range e.Milestones {
		if existing.Value == m.Value {
			return false, nil
		}
	}
	e.Milestones = append(e.Milestones, m)
	return true, nil
}

func (r *EntryRepo) SaveRank(ctx context.Context, entryID uuid.UUID, rank competition.RankInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.byID(entryID)
	if e == nil {
		return apperrors.NotFound("entry_not_found", "entry does not exist")
	}
	e.Rank = rank
	return nil
}

func (r *EntryRepo) Withdraw(ctx context.Context, competitionID uuid.UUID, userID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryKey{competitionID, userID}]
	if !ok || e.Status == competition.EntryStatusWithdrawn {
		return false, nil
	}
	withdrawnAt := at
	e.Status = competition.EntryStatusWithdrawn
	e.WithdrawnAt = &withdrawnAt
	e.WithdrawReason = reason
	e.UpdatedAt = at
	return true, nil
}

func (r *EntryRepo) Reactivate(ctx context.Context, competitionID uuid.UUID, userID string, target int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryKey{competitionID, userID}]
	if !ok || e.Status != competition.EntryStatusWithdrawn {
		return false, nil
	}
	e.Status = competition.EntryStatusActive
	e.Progress.Target = target
	e.WithdrawnAt = nil
	e.WithdrawReason = ""
	e.LastActiveAt = at
	e.UpdatedAt = at
	return true, nil
}

func (r *EntryRepo) SetStatus(ctx context.Context, competitionID uuid.UUID, userID string, status competition.EntryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryKey{competitionID, userID}]
	if !ok {
		return apperrors.NotFound("entry_not_found", "user has not joined this competition")
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *EntryRepo) AssignPrize(ctx context.Context, entryID uuid.UUID, prize competition.AwardedPrize) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.byID(entryID)
	if e == nil {
		return false, apperrors.NotFound("entry_not_found", "entry does not exist")
	}
	if e.Prize != nil {
		return false, nil
	}
	p := prize
	p.Claimed = false
	p.ClaimedAt = nil
	e.Prize = &p
	return true, nil
}

func (r *EntryRepo) ClaimPrize(ctx context.Context, competitionID uuid.UUID, userID string, at time.Time) (*competition.AwardedPrize, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[entryKey{competitionID, userID}]
	if !ok || e.Prize == nil {
		return nil, apperrors.NotFound("prize_not_found", "no prize was awarded to this entry")
	}
	if e.Prize.Claimed {
		return nil, apperrors.StateConflict("prize_already_claimed", "prize has already been claimed")
	}
	claimedAt := at
	e.Prize.Claimed = true
	e.Prize.ClaimedAt = &claimedAt
	e.UpdatedAt = at

	prize := *e.Prize
	return &prize, nil
}

var _ competition.EntryRepository = (*EntryRepo)(nil)
