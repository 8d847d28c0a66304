package stats

import "context"

// Repository persists stats records. Implementations must make SaveSession a
// compare-and-swap on the record's version so concurrent RecordSession calls
// for the same user never lose a streak update.
type Repository interface {
	// Get returns the record for userID, or a not_found error.
	Get(ctx context.Context, userID string) (*StatsRecord, error)

	// Create inserts a fresh record. Returns false when a record for the
	// user already exists (a concurrent first-session race); the caller
	// reloads and retries.
	Create(ctx context.Context, rec *StatsRecord) (bool, error)

	// SaveSession writes the mutated record plus the touched bucket and
	// session detail in one transaction, guarded by rec.Version. Returns
	// false when the version is stale.
	SaveSession(ctx context.Context, rec *StatsRecord, res *ApplyResult) (bool, error)

	// AddRewardPoints atomically credits points to the user's record.
	AddRewardPoints(ctx context.Context, userID string, points int) error

	// IncrementCompetitionsWon atomically bumps the lifetime win counter.
	IncrementCompetitionsWon(ctx context.Context, userID string) error
}
