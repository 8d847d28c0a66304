package competition

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testCompetition(start, end time.Time) *Competition {
	return &Competition{
		ID:         uuid.New(),
		CreatorID:  "user_creator",
		Title:      "March Focus Sprint",
		Type:       TypeIndividual,
		Scope:      ScopeGlobal,
		Visibility: VisibilityPublic,
		Goal:       Goal{Metric: GoalSessions, Target: 50, Unit: "sessions"},
		Timing:     Timing{StartDate: start, EndDate: end},
		Rules:      Rules{AllowLateJoin: true},
		Status:     StatusUpcoming,
	}
}

func TestValidate(t *testing.T) {
	now := time.Now().UTC()
	valid := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
	require.NoError(t, valid.Validate())

	t.Run("missing title", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Title = "   "
		assert.Error(t, c.Validate())
	})

	t.Run("bad metric", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Goal.Metric = "steps"
		assert.Error(t, c.Validate())
	})

	t.Run("non-positive target", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Goal.Target = 0
		assert.Error(t, c.Validate())
	})

	t.Run("end before start", func(t *testing.T) {
		c := testCompetition(now.Add(48*time.Hour), now.Add(time.Hour))
		assert.Error(t, c.Validate())
	})

	t.Run("team without team size", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Type = TypeTeam
		assert.Error(t, c.Validate())
	})

	t.Run("duplicate prize rank", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Prizes = []Prize{{Rank: 1, Points: 100}, {Rank: 1, Points: 50}}
		assert.Error(t, c.Validate())
	})
}

func TestDeriveStatus(t *testing.T) {
	now := time.Now().UTC()
	timing := Timing{StartDate: now.Add(time.Hour), EndDate: now.Add(48 * time.Hour)}

	assert.Equal(t, StatusUpcoming, DeriveStatus(timing, now, StatusUpcoming))
	assert.Equal(t, StatusActive, DeriveStatus(timing, now.Add(2*time.Hour), StatusUpcoming))
	assert.Equal(t, StatusCompleted, DeriveStatus(timing, now.Add(72*time.Hour), StatusActive))

	// Both window boundaries are inclusive: the competition is live from
	// the start instant through the end instant.
	assert.Equal(t, StatusActive, DeriveStatus(timing, timing.EndDate, StatusUpcoming))
	assert.Equal(t, StatusActive, DeriveStatus(timing, timing.StartDate, StatusUpcoming))

	// Sticky statuses ignore the clock.
	assert.Equal(t, StatusDraft, DeriveStatus(timing, now.Add(2*time.Hour), StatusDraft))
	assert.Equal(t, StatusCancelled, DeriveStatus(timing, now.Add(2*time.Hour), StatusCancelled))
	assert.Equal(t, StatusCompleted, DeriveStatus(timing, now, StatusCompleted))
}

func TestCanJoin(t *testing.T) {
	now := time.Now().UTC()

	t.Run("joinable before start", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		d := CanJoin(c, "user_a", 0, nil, now)
		assert.True(t, d.Allowed)
		assert.Equal(t, ReasonJoinable, d.Reason)
	})

	t.Run("ended competition", func(t *testing.T) {
		c := testCompetition(now.Add(-48*time.Hour), now.Add(-time.Hour))
		d := CanJoin(c, "user_a", 0, nil, now)
		assert.Equal(t, ReasonCompetitionNotOpen, d.Reason)
	})

	t.Run("late join disallowed after start", func(t *testing.T) {
		c := testCompetition(now.Add(-time.Hour), now.Add(48*time.Hour))
		c.Rules.AllowLateJoin = false
		d := CanJoin(c, "user_a", 0, nil, now)
		assert.Equal(t, ReasonLateJoinNotAllowed, d.Reason)
	})

	t.Run("late join deadline passed", func(t *testing.T) {
		c := testCompetition(now.Add(-3*time.Hour), now.Add(48*time.Hour))
		deadline := now.Add(-time.Hour)
		c.Rules.LateJoinDeadline = &deadline
		d := CanJoin(c, "user_a", 0, nil, now)
		assert.Equal(t, ReasonLateJoinDeadlinePassed, d.Reason)
	})

	t.Run("registration deadline passed", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		deadline := now.Add(-time.Minute)
		c.Timing.RegistrationDeadline = &deadline
		d := CanJoin(c, "user_a", 0, nil, now)
		assert.Equal(t, ReasonRegistrationDeadlinePassed, d.Reason)
	})

	t.Run("full", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Rules.MaxParticipants = 2
		d := CanJoin(c, "user_a", 2, nil, now)
		assert.Equal(t, ReasonCompetitionFull, d.Reason)
	})

	t.Run("unlimited when max is zero", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		d := CanJoin(c, "user_a", 100000, nil, now)
		assert.True(t, d.Allowed)
	})

	t.Run("invite only rejects strangers", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		c.Visibility = VisibilityInviteOnly
		c.InvitedUserIDs = []string{"user_b"}

		d := CanJoin(c, "user_a", 0, nil, now)
		assert.Equal(t, ReasonInviteOnly, d.Reason)

		assert.True(t, CanJoin(c, "user_b", 0, nil, now).Allowed)
		// The creator is always invited.
		assert.True(t, CanJoin(c, "user_creator", 0, nil, now).Allowed)
	})

	t.Run("already joined", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		existing := NewEntry(c, "user_a", nil, now)
		d := CanJoin(c, "user_a", 1, existing, now)
		assert.Equal(t, ReasonAlreadyJoined, d.Reason)
	})

	t.Run("withdrawn entry can re-join", func(t *testing.T) {
		c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
		existing := NewEntry(c, "user_a", nil, now)
		require.NoError(t, existing.Withdraw("busy month", now))
		d := CanJoin(c, "user_a", 0, existing, now)
		assert.True(t, d.Allowed)
	})
}

func TestNewEntryApproval(t *testing.T) {
	now := time.Now().UTC()
	c := testCompetition(now.Add(time.Hour), now.Add(48*time.Hour))
	c.Rules.RequiresApproval = true

	assert.Equal(t, EntryStatusInactive, NewEntry(c, "user_a", nil, now).Status)
	// The creator never waits for their own approval.
	assert.Equal(t, EntryStatusActive, NewEntry(c, "user_creator", nil, now).Status)
}

func TestApplyProgressMilestones(t *testing.T) {
	now := time.Now().UTC()
	c := testCompetition(now.Add(-time.Hour), now.Add(48*time.Hour))
	entry := NewEntry(c, "user_a", nil, now)

	added, err := entry.ApplyProgress(13, nil, now) // 26%
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, 25, added[0].Value)

	// A jump straight past several thresholds records each once.
	added, err = entry.ApplyProgress(50, nil, now) // 100%
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, 50, added[0].Value)
	assert.Equal(t, 75, added[1].Value)
	assert.Equal(t, 100, added[2].Value)

	// Re-applying the same value adds nothing.
	added, err = entry.ApplyProgress(50, nil, now)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Len(t, entry.Milestones, 4)
	assert.InDelta(t, 100, entry.Progress.Percent, 0.01)
}

func TestApplyProgressRejections(t *testing.T) {
	now := time.Now().UTC()
	c := testCompetition(now.Add(-time.Hour), now.Add(48*time.Hour))

	entry := NewEntry(c, "user_a", nil, now)
	_, err := entry.ApplyProgress(-1, nil, now)
	assert.Error(t, err)

	require.NoError(t, entry.Withdraw("", now))
	_, err = entry.ApplyProgress(10, nil, now)
	assert.Error(t, err)
}

func TestWithdrawTwice(t *testing.T) {
	now := time.Now().UTC()
	c := testCompetition(now.Add(-time.Hour), now.Add(48*time.Hour))
	entry := NewEntry(c, "user_a", nil, now)

	require.NoError(t, entry.Withdraw("done", now))
	assert.Error(t, entry.Withdraw("again", now))
	assert.Equal(t, "done", entry.WithdrawReason)
}

// Property: however progress moves, each milestone value appears at most
// once and the set matches the highest percent ever reached.
func TestApplyProgressMilestoneInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Now().UTC()
		c := testCompetition(now.Add(-time.Hour), now.Add(48*time.Hour))
		entry := NewEntry(c, "user_a", nil, now)

		maxPercent := 0.0
		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			value := rapid.IntRange(0, 120).Draw(t, "value")
			if _, err := entry.ApplyProgress(value, nil, now); err != nil {
				t.Fatalf("ApplyProgress: %v", err)
			}
			if entry.Progress.Percent > maxPercent {
				maxPercent = entry.Progress.Percent
			}
		}

		seen := map[int]int{}
		for _, m := range entry.Milestones {
			seen[m.Value]++
		}
		for _, value := range MilestoneValues {
			if seen[value] > 1 {
				t.Fatalf("milestone %d recorded %d times", value, seen[value])
			}
			crossed := maxPercent >= float64(value)
			if crossed != (seen[value] == 1) {
				t.Fatalf("milestone %d: crossed=%v recorded=%d (max %.1f%%)", value, crossed, seen[value], maxPercent)
			}
		}
	})
}
