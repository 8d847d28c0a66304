package leaderboard

import (
	"testing"
	"time"

	"deepFocusAPI/internal/competition"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(userID string, value int, updatedAt time.Time) *competition.Entry {
	return &competition.Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Progress:  competition.EntryProgress{CurrentValue: value, Target: 100},
		Status:    competition.EntryStatusActive,
		UpdatedAt: updatedAt,
	}
}

func TestRankOrdering(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	entries := []*competition.Entry{
		entry("user_late_100", 100, base.Add(time.Hour)),
		entry("user_150", 150, base.Add(2*time.Hour)),
		entry("user_early_100", 100, base),
	}

	standings := Rank(entries)
	require.Len(t, standings, 3)

	assert.Equal(t, "user_150", standings[0].UserID)
	assert.Equal(t, 1, standings[0].Rank)
	// Ties go to whoever reached the value first.
	assert.Equal(t, "user_early_100", standings[1].UserID)
	assert.Equal(t, 2, standings[1].Rank)
	assert.Equal(t, "user_late_100", standings[2].UserID)
	assert.Equal(t, 3, standings[2].Rank)
}

func TestRankExcludesWithdrawn(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	withdrawn := entry("user_gone", 500, base)
	withdrawn.Status = competition.EntryStatusWithdrawn
	pending := entry("user_pending", 10, base)
	pending.Status = competition.EntryStatusInactive

	standings := Rank([]*competition.Entry{withdrawn, entry("user_a", 50, base), pending})
	require.Len(t, standings, 2)
	assert.Equal(t, "user_a", standings[0].UserID)
	// Pending entries stay visible, just without progress from syncs.
	assert.Equal(t, "user_pending", standings[1].UserID)
}

func TestRankIsFixedPoint(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []*competition.Entry{
		entry("user_a", 30, base),
		entry("user_b", 70, base.Add(time.Minute)),
	}

	first := Rank(entries)
	second := Rank(entries)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].UserID, second[i].UserID)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}
}

func TestRankTrends(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	climber := entry("user_climber", 90, base)
	climber.Rank = competition.RankInfo{Current: 3, Best: 3}
	faller := entry("user_faller", 40, base)
	faller.Rank = competition.RankInfo{Current: 1, Best: 1}
	steady := entry("user_steady", 60, base)
	steady.Rank = competition.RankInfo{Current: 2, Best: 2}
	fresh := entry("user_fresh", 10, base)

	standings := Rank([]*competition.Entry{climber, faller, steady, fresh})
	byUser := map[string]*Standing{}
	for _, s := range standings {
		byUser[s.UserID] = s
	}

	assert.Equal(t, competition.TrendUp, byUser["user_climber"].Trend)
	assert.Equal(t, 1, byUser["user_climber"].BestRank)
	assert.Equal(t, competition.TrendDown, byUser["user_faller"].Trend)
	assert.Equal(t, 1, byUser["user_faller"].BestRank) // best never regresses
	assert.Equal(t, competition.TrendSame, byUser["user_steady"].Trend)
	assert.Equal(t, competition.TrendNew, byUser["user_fresh"].Trend)
}

func TestRankInfoFor(t *testing.T) {
	s := &Standing{Rank: 2, BestRank: 1, Trend: competition.TrendDown}

	// Rank changed: previous becomes the old current.
	info := RankInfoFor(s, competition.RankInfo{Current: 1, Previous: 4, Best: 1})
	assert.Equal(t, 2, info.Current)
	assert.Equal(t, 1, info.Previous)

	// Rank unchanged: previous is preserved.
	info = RankInfoFor(s, competition.RankInfo{Current: 2, Previous: 5, Best: 1})
	assert.Equal(t, 5, info.Previous)

	// First ranking: no previous to preserve.
	info = RankInfoFor(s, competition.RankInfo{})
	assert.Equal(t, 0, info.Previous)
}

func TestPage(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var entries []*competition.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry("user", 100-i, base))
	}
	standings := Rank(entries)

	page := Page(standings, 2, 0)
	require.Len(t, page, 2)
	assert.Equal(t, 1, page[0].Rank)

	page = Page(standings, 2, 2)
	require.Len(t, page, 2)
	// Ranks stay absolute across pages.
	assert.Equal(t, 3, page[0].Rank)

	page = Page(standings, 2, 4)
	require.Len(t, page, 1)
	assert.Equal(t, 5, page[0].Rank)

	assert.Empty(t, Page(standings, 2, 10))
	assert.Len(t, Page(standings, 0, 0), 5) // zero limit means everything
}
