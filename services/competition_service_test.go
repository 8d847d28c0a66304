package services

import (
	"context"
	"testing"
	"time"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/competition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompetition(now time.Time) *competition.Competition {
	return &competition.Competition{
		CreatorID:  "user_creator",
		Title:      "Focus Sprint",
		Type:       competition.TypeIndividual,
		Scope:      competition.ScopeGlobal,
		Visibility: competition.VisibilityPublic,
		Goal:       competition.Goal{Metric: competition.GoalSessions, Target: 10},
		Timing: competition.Timing{
			StartDate: now.Add(-time.Hour),
			EndDate:   now.Add(48 * time.Hour),
		},
		Rules: competition.Rules{AllowLateJoin: true},
		Prizes: []competition.Prize{
			{Rank: 1, Title: "Champion", Points: 500, Badge: "gold"},
			{Rank: 2, Title: "Runner-up", Points: 250, Badge: "silver"},
		},
	}
}

func TestCreateCompetitionAutoEnrollsCreator(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)
	assert.Equal(t, competition.StatusActive, comp.Status)

	entry, err := stack.entryRepo.Get(ctx, comp.ID, "user_creator")
	require.NoError(t, err)
	assert.Equal(t, competition.EntryStatusActive, entry.Status)
	assert.Equal(t, 10, entry.Progress.Target)
}

func TestCreateCompetitionRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	c := newCompetition(now)
	c.Goal.Target = 0
	_, err := stack.competitions.CreateCompetition(ctx, c)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestJoinCapacityAndRejoin(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	c := newCompetition(now)
	c.Rules.MaxParticipants = 2
	comp, err := stack.competitions.CreateCompetition(ctx, c)
	require.NoError(t, err)

	// The creator holds one of the two seats.
	_, err = stack.competitions.Join(ctx, comp.ID, "user_a", nil)
	require.NoError(t, err)

	_, err = stack.competitions.Join(ctx, comp.ID, "user_b", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCapacity))

	// Joining twice conflicts.
	_, err = stack.competitions.Join(ctx, comp.ID, "user_a", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))

	// Withdrawing frees the seat and allows re-joining, on the same entry.
	require.NoError(t, stack.competitions.WithdrawEntry(ctx, comp.ID, "user_a", "break"))
	_, err = stack.competitions.Join(ctx, comp.ID, "user_b", nil)
	require.NoError(t, err)

	require.NoError(t, stack.competitions.WithdrawEntry(ctx, comp.ID, "user_b", ""))
	entry, err := stack.competitions.Join(ctx, comp.ID, "user_b", nil)
	require.NoError(t, err)
	assert.Equal(t, competition.EntryStatusActive, entry.Status)
	assert.Nil(t, entry.WithdrawnAt)
}

func TestJoinInviteOnly(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	c := newCompetition(now)
	c.Visibility = competition.VisibilityInviteOnly
	c.InvitedUserIDs = []string{"user_vip"}
	comp, err := stack.competitions.CreateCompetition(ctx, c)
	require.NoError(t, err)

	_, err = stack.competitions.Join(ctx, comp.ID, "user_stranger", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	_, err = stack.competitions.Join(ctx, comp.ID, "user_vip", nil)
	require.NoError(t, err)
}

func TestApprovalFlow(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	c := newCompetition(now)
	c.Rules.RequiresApproval = true
	comp, err := stack.competitions.CreateCompetition(ctx, c)
	require.NoError(t, err)

	entry, err := stack.competitions.Join(ctx, comp.ID, "user_a", nil)
	require.NoError(t, err)
	assert.Equal(t, competition.EntryStatusInactive, entry.Status)

	// Only the creator can approve.
	err = stack.competitions.ApproveEntry(ctx, comp.ID, "user_b", "user_a")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	require.NoError(t, stack.competitions.ApproveEntry(ctx, comp.ID, "user_creator", "user_a"))

	entry, err = stack.entryRepo.Get(ctx, comp.ID, "user_a")
	require.NoError(t, err)
	assert.Equal(t, competition.EntryStatusActive, entry.Status)

	// Approving an already active entry conflicts.
	err = stack.competitions.ApproveEntry(ctx, comp.ID, "user_creator", "user_a")
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))
}

func TestUpdateCompetitionOnlyBeforeStart(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	c := newCompetition(now) // already started
	comp, err := stack.competitions.CreateCompetition(ctx, c)
	require.NoError(t, err)

	edit := newCompetition(now)
	edit.ID = comp.ID
	edit.Title = "Renamed"
	_, err = stack.competitions.UpdateCompetition(ctx, "user_creator", edit)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))

	// An upcoming competition can still be edited, but not by others.
	upcoming := newCompetition(now)
	upcoming.Timing.StartDate = now.Add(time.Hour)
	comp2, err := stack.competitions.CreateCompetition(ctx, upcoming)
	require.NoError(t, err)

	edit2 := newCompetition(now)
	edit2.ID = comp2.ID
	edit2.Timing.StartDate = now.Add(time.Hour)
	edit2.Title = "Renamed"

	_, err = stack.competitions.UpdateCompetition(ctx, "user_other", edit2)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	updated, err := stack.competitions.UpdateCompetition(ctx, "user_creator", edit2)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateCompetitionPreservesLifecycleState(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	draft := newCompetition(now)
	draft.Timing.StartDate = now.Add(time.Hour)
	draft.Status = competition.StatusDraft
	comp, err := stack.competitions.CreateCompetition(ctx, draft)
	require.NoError(t, err)
	require.Equal(t, competition.StatusDraft, comp.Status)

	// An edit payload cannot move the lifecycle: status and settled_at
	// from the body are discarded, and an omitted status keeps the draft
	// a draft.
	settledAt := now
	edit := newCompetition(now)
	edit.ID = comp.ID
	edit.Title = "Renamed"
	edit.Timing.StartDate = now.Add(time.Hour)
	edit.Status = competition.StatusCompleted
	edit.SettledAt = &settledAt

	updated, err := stack.competitions.UpdateCompetition(ctx, "user_creator", edit)
	require.NoError(t, err)
	assert.Equal(t, competition.StatusDraft, updated.Status)
	assert.Nil(t, updated.SettledAt)

	stored, err := stack.competitionRepo.Get(ctx, comp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, competition.StatusDraft, stored.Status)
	assert.Nil(t, stored.SettledAt)
	assert.False(t, stored.Settled())
}

func settleFixture(t *testing.T, stack *testStack, now time.Time) *competition.Competition {
	t.Helper()
	ctx := context.Background()

	comp, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)

	for _, join := range []struct {
		user  string
		value int
	}{{"user_second", 8}, {"user_first", 9}} {
		entry, err := stack.competitions.Join(ctx, comp.ID, join.user, nil)
		require.NoError(t, err)
		_, err = entry.ApplyProgress(join.value, nil, now)
		require.NoError(t, err)
		applied, err := stack.entryRepo.UpdateProgress(ctx, entry)
		require.NoError(t, err)
		require.True(t, applied)
	}

	// Close the window so the competition reads as completed.
	stored, err := stack.competitionRepo.Get(ctx, comp.ID)
	require.NoError(t, err)
	stored.Timing.EndDate = now.Add(-time.Minute)
	require.NoError(t, stack.competitionRepo.Update(ctx, stored))
	return stored
}

func TestSettleAwardsPrizesAndWins(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp := settleFixture(t, stack, now)
	require.NoError(t, stack.competitions.Settle(ctx, comp.ID, now))

	first, err := stack.entryRepo.Get(ctx, comp.ID, "user_first")
	require.NoError(t, err)
	require.NotNil(t, first.Prize)
	assert.Equal(t, 1, first.Prize.Rank)
	assert.Equal(t, 500, first.Prize.Points)
	assert.False(t, first.Prize.Claimed)
	assert.Equal(t, 1, first.Rank.Current)

	second, err := stack.entryRepo.Get(ctx, comp.ID, "user_second")
	require.NoError(t, err)
	require.NotNil(t, second.Prize)
	assert.Equal(t, 2, second.Prize.Rank)

	// The creator finished third with no progress; no prize for rank 3.
	creator, err := stack.entryRepo.Get(ctx, comp.ID, "user_creator")
	require.NoError(t, err)
	assert.Nil(t, creator.Prize)

	settled, err := stack.competitionRepo.Get(ctx, comp.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled())
}

func TestSettleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp := settleFixture(t, stack, now)

	// Seed a stats record so the win counter is visible.
	_, err := stack.stats.RecordSession(ctx, "user_first", 25, false, nil, now)
	require.NoError(t, err)

	require.NoError(t, stack.competitions.Settle(ctx, comp.ID, now))
	require.NoError(t, stack.competitions.Settle(ctx, comp.ID, now.Add(time.Minute)))

	rec, err := stack.statsRepo.Get(ctx, "user_first")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CompetitionsWon, "a repeat settle must not double-count the win")

	first, err := stack.entryRepo.Get(ctx, comp.ID, "user_first")
	require.NoError(t, err)
	assert.Equal(t, 500, first.Prize.Points)
}

func TestSettleRejectsRunningAndCancelled(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	running, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)
	err = stack.competitions.Settle(ctx, running.ID, now)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))

	cancelled, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)
	require.NoError(t, stack.competitions.Cancel(ctx, "user_creator", cancelled.ID))
	err = stack.competitions.Settle(ctx, cancelled.ID, now.Add(72*time.Hour))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))
}

func TestEndSettlesEarly(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)

	err = stack.competitions.End(ctx, "user_other", comp.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	require.NoError(t, stack.competitions.End(ctx, "user_creator", comp.ID))

	stored, err := stack.competitionRepo.Get(ctx, comp.ID)
	require.NoError(t, err)
	assert.True(t, stored.Settled())
	assert.Equal(t, competition.StatusCompleted, stored.Status)

	// Cancelled competitions cannot be ended.
	other, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)
	require.NoError(t, stack.competitions.Cancel(ctx, "user_creator", other.ID))
	err = stack.competitions.End(ctx, "user_creator", other.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))
}

func TestClaimPrizeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp := settleFixture(t, stack, now)

	// Claims before settlement are refused.
	_, err := stack.competitions.ClaimPrize(ctx, comp.ID, "user_first")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))

	_, err = stack.stats.RecordSession(ctx, "user_first", 25, false, nil, now)
	require.NoError(t, err)
	require.NoError(t, stack.competitions.Settle(ctx, comp.ID, now))

	prize, err := stack.competitions.ClaimPrize(ctx, comp.ID, "user_first")
	require.NoError(t, err)
	assert.Equal(t, 500, prize.Points)
	assert.True(t, prize.Claimed)

	rec, err := stack.statsRepo.Get(ctx, "user_first")
	require.NoError(t, err)
	assert.Equal(t, 500, rec.RewardPoints)

	// Second claim conflicts and credits nothing.
	_, err = stack.competitions.ClaimPrize(ctx, comp.ID, "user_first")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))

	rec, err = stack.statsRepo.Get(ctx, "user_first")
	require.NoError(t, err)
	assert.Equal(t, 500, rec.RewardPoints)

	// No prize for the creator's rank.
	_, err = stack.competitions.ClaimPrize(ctx, comp.ID, "user_creator")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSettlementWorkerSweep(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp := settleFixture(t, stack, now)

	worker := NewSettlementWorker(stack.competitionRepo, stack.competitions, stack.leaderboards, time.Minute)
	worker.sweep(ctx)

	stored, err := stack.competitionRepo.Get(ctx, comp.ID)
	require.NoError(t, err)
	assert.True(t, stored.Settled())

	// A second sweep finds nothing left to settle.
	worker.sweep(ctx)
}

func TestLeaderboardServiceRanksAndPages(t *testing.T) {
	ctx := context.Background()
	stack := newTestStack()
	now := time.Now().UTC()

	comp, err := stack.competitions.CreateCompetition(ctx, newCompetition(now))
	require.NoError(t, err)

	for _, join := range []struct {
		user  string
		value int
	}{{"user_a", 3}, {"user_b", 7}, {"user_c", 5}} {
		entry, err := stack.competitions.Join(ctx, comp.ID, join.user, nil)
		require.NoError(t, err)
		_, err = entry.ApplyProgress(join.value, nil, now)
		require.NoError(t, err)
		applied, err := stack.entryRepo.UpdateProgress(ctx, entry)
		require.NoError(t, err)
		require.True(t, applied)
	}

	board, err := stack.leaderboards.GetLeaderboard(ctx, comp.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, board.TotalEntries) // includes the creator
	require.Len(t, board.Standings, 2)
	assert.Equal(t, "user_b", board.Standings[0].UserID)
	assert.Equal(t, 1, board.Standings[0].Rank)
	assert.Equal(t, "user_c", board.Standings[1].UserID)

	standing, err := stack.leaderboards.UserStanding(ctx, comp.ID, "user_a")
	require.NoError(t, err)
	require.NotNil(t, standing)
	assert.Equal(t, 3, standing.Rank)

	// Ranks were persisted back onto the entries.
	entry, err := stack.entryRepo.Get(ctx, comp.ID, "user_b")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Rank.Current)
	assert.Equal(t, competition.TrendNew, entry.Rank.Trend)
}
