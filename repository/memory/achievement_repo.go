package memory

import (
	"context"
	"sync"
	"time"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/achievement"

	"github.com/google/uuid"
)

type progressKey struct {
	userID        string
	achievementID uuid.UUID
}

type AchievementRepo struct {
	mu          sync.Mutex
	definitions map[uuid.UUID]*achievement.Definition
	progress    map[progressKey]*achievement.Progress
}

func NewAchievementRepo(defs ...*achievement.Definition) *AchievementRepo {
	r := &AchievementRepo{
		definitions: make(map[uuid.UUID]*achievement.Definition),
		progress:    make(map[progressKey]*achievement.Progress),
	}
	for _, d := range defs {
		r.definitions[d.ID] = cloneDefinition(d)
	}
	return r
}

func cloneDefinition(d *achievement.Definition) *achievement.Definition {
	cp := *d
	cp.Prerequisites = append([]uuid.UUID(nil), d.Prerequisites...)
	return &cp
}

func cloneProgress(p *achievement.Progress) *achievement.Progress {
	cp := *p
	return &cp
}

func (r *AchievementRepo) ListDefinitions(ctx context.Context) ([]*achievement.Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]*achievement.Definition, 0, len(r.definitions))
	for _, d := range r.definitions {
		defs = append(defs, cloneDefinition(d))
	}
	return defs, nil
}

func (r *AchievementRepo) GetDefinition(ctx context.Context, id uuid.UUID) (*achievement.Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.definitions[id]
	if !ok {
		return nil, apperrors.NotFound("achievement_not_found", "achievement does not exist")
	}
	return cloneDefinition(d), nil
}

func (r *AchievementRepo) IncrementTotalUnlocked(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.definitions[id]
	if !ok {
		return apperrors.NotFound("achievement_not_found", "achievement does not exist")
	}
	d.TotalUnlocked++
	return nil
}

func (r *AchievementRepo) ListProgress(ctx context.Context, userID string) ([]*achievement.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*achievement.Progress
	for key, p := range r.progress {
		if key.userID == userID {
			out = append(out, cloneProgress(p))
		}
	}
	return out, nil
}

func (r *AchievementRepo) GetProgress(ctx context.Context, userID string, achievementID uuid.UUID) (*achievement.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[progressKey{userID, achievementID}]
	if !ok {
		return nil, apperrors.NotFound("progress_not_found", "no progress for this achievement")
	}
	return cloneProgress(p), nil
}

func (r *AchievementRepo) CreateProgress(ctx context.Context, prog *achievement.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := progressKey{prog.UserID, prog.AchievementID}
	if _, ok := r.progress[key]; ok {
		return nil
	}
	r.progress[key] = cloneProgress(prog)
	return nil
}

func (r *AchievementRepo) UpdateProgressValue(ctx context.Context, userID string, achievementID uuid.UUID, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[progressKey{userID, achievementID}]
	if !ok {
		return apperrors.NotFound("progress_not_found", "no progress for this achievement")
	}
	p.CurrentValue = value
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AchievementRepo) MarkUnlocked(ctx context.Context, userID string, achievementID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[progressKey{userID, achievementID}]
	if !ok {
		return false, apperrors.NotFound("progress_not_found", "no progress for this achievement")
	}
	if p.UnlockedAt != nil {
		return false, nil
	}
	unlockedAt := at
	p.UnlockedAt = &unlockedAt
	p.UpdatedAt = at
	return true, nil
}

func (r *AchievementRepo) SetFavorite(ctx context.Context, userID string, achievementID uuid.UUID, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[progressKey{userID, achievementID}]
	if !ok {
		return apperrors.NotFound("progress_not_found", "no progress for this achievement")
	}
	p.IsFavorite = favorite
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AchievementRepo) MarkViewed(ctx context.Context, userID string, achievementID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[progressKey{userID, achievementID}]
	if !ok {
		return apperrors.NotFound("progress_not_found", "no progress for this achievement")
	}
	viewedAt := at
	p.ViewedAt = &viewedAt
	return nil
}

func (r *AchievementRepo) IncrementShareCount(ctx context.Context, userID string, achievementID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[progressKey{userID, achievementID}]
	if !ok {
		return 0, apperrors.NotFound("progress_not_found", "no progress for this achievement")
	}
	p.SharedCount++
	return p.SharedCount, nil
}

var _ achievement.Repository = (*AchievementRepo)(nil)
