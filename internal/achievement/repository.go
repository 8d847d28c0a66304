package achievement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists the catalog and per-user progress. Unlocks and the
// global counters are conditional/atomic writes, never read-modify-write.
type Repository interface {
	ListDefinitions(ctx context.Context) ([]*Definition, error)
	GetDefinition(ctx context.Context, id uuid.UUID) (*Definition, error)

	// IncrementTotalUnlocked atomically bumps the definition's global
	// unlock counter; eventual consistency is fine for this number.
	IncrementTotalUnlocked(ctx context.Context, id uuid.UUID) error

	ListProgress(ctx context.Context, userID string) ([]*Progress, error)
	GetProgress(ctx context.Context, userID string, achievementID uuid.UUID) (*Progress, error)

	// CreateProgress inserts the row if absent; an existing row is left
	// untouched (progress is materialized lazily, possibly concurrently).
	CreateProgress(ctx context.Context, prog *Progress) error

	UpdateProgressValue(ctx context.Context, userID string, achievementID uuid.UUID, value int) error

	// MarkUnlocked sets unlocked_at only when it is currently null.
	// Returns false when someone else already unlocked it.
	MarkUnlocked(ctx context.Context, userID string, achievementID uuid.UUID, at time.Time) (bool, error)

	SetFavorite(ctx context.Context, userID string, achievementID uuid.UUID, favorite bool) error
	MarkViewed(ctx context.Context, userID string, achievementID uuid.UUID, at time.Time) error
	IncrementShareCount(ctx context.Context, userID string, achievementID uuid.UUID) (int, error)
}
