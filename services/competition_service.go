package services

import (
	"context"
	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/competition"
	"deepFocusAPI/internal/leaderboard"
	"deepFocusAPI/internal/metrics"
	"deepFocusAPI/internal/stats"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type CompetitionService struct {
	comps   competition.Repository
	entries competition.EntryRepository
	stats   stats.Repository
}

func NewCompetitionService(comps competition.Repository, entries competition.EntryRepository, statsRepo stats.Repository) *CompetitionService {
	return &CompetitionService{
		comps:   comps,
		entries: entries,
		stats:   statsRepo,
	}
}

// CreateCompetition validates and stores a new competition. The creator
// joins automatically unless the competition is created as a draft.
func (s *CompetitionService) CreateCompetition(ctx context.Context, c *competition.Competition) (*competition.Competition, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c.ID = uuid.New()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status != competition.StatusDraft {
		c.Status = competition.DeriveStatus(c.Timing, now, "")
	}

	if err := s.comps.Create(ctx, c); err != nil {
		return nil, err
	}

	if c.Status != competition.StatusDraft {
		entry := competition.NewEntry(c, c.CreatorID, nil, now)
		if err := s.entries.Create(ctx, entry); err != nil {
			log.Printf("CompetitionService: failed to auto-enroll creator %s in %s: %v", c.CreatorID, c.ID, err)
		}
	}
	return c, nil
}

// GetCompetition returns the competition with its status derived from the
// clock, so an "upcoming" row reads as active once its window opens.
func (s *CompetitionService) GetCompetition(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	c, err := s.comps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Status = c.StatusAt(time.Now().UTC())
	return c, nil
}

func (s *CompetitionService) ListCompetitions(ctx context.Context, f competition.Filter) ([]*competition.Competition, error) {
	comps, err := s.comps.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, c := range comps {
		c.Status = c.StatusAt(now)
	}
	return comps, nil
}

// UpdateCompetition lets the creator edit a competition before it starts.
// Edits never move the bar for entrants who already joined; their targets
// were copied at join time.
func (s *CompetitionService) UpdateCompetition(ctx context.Context, userID string, c *competition.Competition) (*competition.Competition, error) {
	existing, err := s.comps.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if existing.CreatorID != userID {
		return nil, apperrors.Authorization("not_creator", "only the creator can edit a competition")
	}
	switch existing.StatusAt(time.Now().UTC()) {
	case competition.StatusDraft, competition.StatusUpcoming:
	default:
		return nil, apperrors.StateConflict("competition_started", "a running or finished competition cannot be edited")
	}

	// Lifecycle state only moves through Publish/Cancel/Settle; whatever
	// the edit payload carried for it is discarded.
	c.CreatorID = existing.CreatorID
	c.CreatedAt = existing.CreatedAt
	c.Status = existing.Status
	c.SettledAt = existing.SettledAt
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	if err := s.comps.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Publish moves a draft into the live lifecycle.
func (s *CompetitionService) Publish(ctx context.Context, userID string, id uuid.UUID) (*competition.Competition, error) {
	c, err := s.comps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != userID {
		return nil, apperrors.Authorization("not_creator", "only the creator can publish a competition")
	}
	if c.Status != competition.StatusDraft {
		return nil, apperrors.StateConflict("not_a_draft", "competition is already published")
	}

	now := time.Now().UTC()
	c.Status = competition.DeriveStatus(c.Timing, now, "")
	c.UpdatedAt = now
	if err := s.comps.Update(ctx, c); err != nil {
		return nil, err
	}

	entry := competition.NewEntry(c, c.CreatorID, nil, now)
	if err := s.entries.Create(ctx, entry); err != nil {
		log.Printf("CompetitionService: failed to auto-enroll creator %s in %s: %v", c.CreatorID, c.ID, err)
	}
	return c, nil
}

// Cancel is terminal: a cancelled competition is never settled and awards no
// prizes.
func (s *CompetitionService) Cancel(ctx context.Context, userID string, id uuid.UUID) error {
	c, err := s.comps.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.CreatorID != userID {
		return apperrors.Authorization("not_creator", "only the creator can cancel a competition")
	}
	if c.Settled() {
		return apperrors.StateConflict("already_settled", "a settled competition cannot be cancelled")
	}
	if c.Status == competition.StatusCancelled {
		return apperrors.StateConflict("already_cancelled", "competition is already cancelled")
	}

	c.Status = competition.StatusCancelled
	c.UpdatedAt = time.Now().UTC()
	return s.comps.Update(ctx, c)
}

// Join enrolls the caller, re-activating a previously withdrawn entry rather
// than minting a second one so the one-entry-per-user invariant holds.
func (s *CompetitionService) Join(ctx context.Context, competitionID uuid.UUID, userID string, teamID *string) (*competition.Entry, error) {
	c, err := s.comps.Get(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.entries.Get(ctx, competitionID, userID)
	if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}

	count, err := s.entries.CountByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	decision := competition.CanJoin(c, userID, count, existing, now)
	if !decision.Allowed {
		return nil, joinError(decision.Reason)
	}

	if existing != nil {
		reactivated, err := s.entries.Reactivate(ctx, competitionID, userID, c.Goal.Target, now)
		if err != nil {
			return nil, err
		}
		if !reactivated {
			return nil, apperrors.StateConflict(competition.ReasonAlreadyJoined, "user already has an entry in this competition")
		}
		return s.entries.Get(ctx, competitionID, userID)
	}

	entry := competition.NewEntry(c, userID, teamID, now)
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return entry, nil
}

func joinError(reason string) error {
	switch reason {
	case competition.ReasonCompetitionFull:
		return apperrors.Capacity(reason, "competition has reached its participant limit")
	case competition.ReasonInviteOnly:
		return apperrors.Authorization(reason, "competition is invite only")
	default:
		return apperrors.StateConflict(reason, "competition cannot be joined")
	}
}

// ApproveEntry lets the creator admit a pending entrant when the competition
// requires approval.
func (s *CompetitionService) ApproveEntry(ctx context.Context, competitionID uuid.UUID, creatorID, userID string) error {
	c, err := s.comps.Get(ctx, competitionID)
	if err != nil {
		return err
	}
	if c.CreatorID != creatorID {
		return apperrors.Authorization("not_creator", "only the creator can approve entries")
	}

	entry, err := s.entries.Get(ctx, competitionID, userID)
	if err != nil {
		return err
	}
	if entry.Status != competition.EntryStatusInactive {
		return apperrors.StateConflict("entry_not_pending", "entry is not awaiting approval")
	}
	return s.entries.SetStatus(ctx, competitionID, userID, competition.EntryStatusActive)
}

// WithdrawEntry removes the caller from the running order; the entry row and
// its history are kept.
func (s *CompetitionService) WithdrawEntry(ctx context.Context, competitionID uuid.UUID, userID, reason string) error {
	applied, err := s.entries.Withdraw(ctx, competitionID, userID, reason, time.Now().UTC())
	if err != nil {
		return err
	}
	if !applied {
		entry, err := s.entries.Get(ctx, competitionID, userID)
		if err != nil {
			return err
		}
		if entry.Status == competition.EntryStatusWithdrawn {
			return apperrors.StateConflict("already_withdrawn", "entry is already withdrawn")
		}
		return fmt.Errorf("failed to withdraw entry %s/%s", competitionID, userID)
	}
	return nil
}

func (s *CompetitionService) GetEntry(ctx context.Context, competitionID uuid.UUID, userID string) (*competition.Entry, error) {
	return s.entries.Get(ctx, competitionID, userID)
}

func (s *CompetitionService) ListUserEntries(ctx context.Context, userID string) ([]*competition.Entry, error) {
	return s.entries.ListActiveByUser(ctx, userID)
}

// SyncProgress recomputes the caller's progress in every competition they
// are actively entered in, from the stats record's daily buckets clipped to
// each competition's window.
func (s *CompetitionService) SyncProgress(ctx context.Context, userID string, rec *stats.StatsRecord, now time.Time) error {
	entries, err := s.entries.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		c, err := s.comps.Get(ctx, entry.CompetitionID)
		if err != nil {
			log.Printf("CompetitionService: failed to load competition %s: %v", entry.CompetitionID, err)
			continue
		}
		if c.StatusAt(now) != competition.StatusActive {
			continue
		}

		value, entryStats := progressInWindow(rec, c)
		added, err := entry.ApplyProgress(value, &entryStats, now)
		if err != nil {
			log.Printf("CompetitionService: failed to apply progress for %s/%s: %v", entry.CompetitionID, userID, err)
			continue
		}

		applied, err := s.entries.UpdateProgress(ctx, entry)
		if err != nil {
			return fmt.Errorf("failed to persist progress: %w", err)
		}
		if !applied {
			continue
		}
		for _, m := range added {
			if _, err := s.entries.AddMilestone(ctx, entry.ID, m); err != nil {
				log.Printf("CompetitionService: failed to record milestone %d for %s: %v", m.Value, entry.ID, err)
			}
		}
	}
	return nil
}

// progressInWindow sums the record's daily buckets that fall inside the
// competition's window and maps them onto the goal metric. Streak goals use
// the live streak instead, since a streak is not a windowed sum.
func progressInWindow(rec *stats.StatsRecord, c *competition.Competition) (int, competition.EntryStats) {
	from := stats.DayOf(c.Timing.StartDate)
	to := stats.DayOf(c.Timing.EndDate)

	var entryStats competition.EntryStats
	for _, b := range rec.Buckets {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		entryStats.Sessions += b.Sessions
		entryStats.FocusMinutes += b.Minutes
	}
	entryStats.StreakDays = rec.CurrentStreak
	if entryStats.Sessions > 0 {
		entryStats.AvgSessionMinutes = float64(entryStats.FocusMinutes) / float64(entryStats.Sessions)
	}

	var value int
	switch c.Goal.Metric {
	case competition.GoalSessions:
		value = entryStats.Sessions
	case competition.GoalFocusMinutes:
		value = entryStats.FocusMinutes
	case competition.GoalStreakDays:
		value = rec.CurrentStreak
	case competition.GoalTasks:
		for _, b := range rec.Buckets {
			if !b.Date.Before(from) && !b.Date.After(to) {
				value += b.Tasks
			}
		}
	}
	return value, entryStats
}

// End lets the creator finish a competition ahead of schedule and settle it
// immediately.
func (s *CompetitionService) End(ctx context.Context, userID string, id uuid.UUID) error {
	c, err := s.comps.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.CreatorID != userID {
		return apperrors.Authorization("not_creator", "only the creator can end a competition")
	}

	now := time.Now().UTC()
	switch c.StatusAt(now) {
	case competition.StatusCancelled:
		return apperrors.StateConflict("competition_cancelled", "a cancelled competition cannot be ended")
	case competition.StatusDraft:
		return apperrors.StateConflict("competition_draft", "a draft competition cannot be ended")
	}

	// Ending early closes the window and pins the sticky status, so the
	// settle below sees a completed competition regardless of the clock.
	if c.Status != competition.StatusCompleted {
		if c.Timing.EndDate.After(now) {
			c.Timing.EndDate = now
		}
		c.Status = competition.StatusCompleted
		c.UpdatedAt = now
		if err := s.comps.Update(ctx, c); err != nil {
			return err
		}
	}
	return s.Settle(ctx, id, now)
}

// Settle closes the books on an ended competition: final ranks, prizes for
// the podium, a win for first place. The settled_at guard makes the whole
// operation run its side effects at most once even when the creator's End
// races the background worker; prize assignment itself is conditional, so a
// repeat pass after a mid-settle crash finishes the job without doubling
// anything.
func (s *CompetitionService) Settle(ctx context.Context, id uuid.UUID, now time.Time) error {
	c, err := s.comps.Get(ctx, id)
	if err != nil {
		return err
	}
	switch c.StatusAt(now) {
	case competition.StatusCancelled:
		return apperrors.StateConflict("competition_cancelled", "a cancelled competition is not settled")
	case competition.StatusCompleted:
	default:
		return apperrors.StateConflict("competition_not_ended", "competition has not ended yet")
	}

	applied, err := s.comps.MarkSettled(ctx, id, now)
	if err != nil {
		return err
	}

	entries, err := s.entries.ListByCompetition(ctx, id)
	if err != nil {
		return err
	}
	standings := leaderboard.Rank(entries)

	entryByID := make(map[uuid.UUID]*competition.Entry, len(entries))
	for _, e := range entries {
		entryByID[e.ID] = e
	}

	for _, standing := range standings {
		entry := entryByID[standing.EntryID]
		rank := leaderboard.RankInfoFor(standing, entry.Rank)
		if err := s.entries.SaveRank(ctx, standing.EntryID, rank); err != nil {
			log.Printf("CompetitionService: failed to save final rank for %s: %v", standing.EntryID, err)
		}

		if applied && standing.Rank == 1 {
			if err := s.stats.IncrementCompetitionsWon(ctx, standing.UserID); err != nil {
				log.Printf("CompetitionService: failed to count win for %s: %v", standing.UserID, err)
			}
		}

		prize := c.PrizeForRank(standing.Rank)
		if prize == nil {
			continue
		}
		if _, err := s.entries.AssignPrize(ctx, standing.EntryID, competition.AwardedPrize{
			Rank:      prize.Rank,
			Title:     prize.Title,
			Points:    prize.Points,
			Badge:     prize.Badge,
			AwardedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to assign prize: %w", err)
		}
	}

	if applied {
		metrics.CompetitionsSettled.Inc()
		log.Printf("CompetitionService: settled competition %s with %d entries", id, len(entries))
	}
	return nil
}

// ClaimPrize exchanges an awarded prize for its reward points, exactly once.
func (s *CompetitionService) ClaimPrize(ctx context.Context, competitionID uuid.UUID, userID string) (*competition.AwardedPrize, error) {
	c, err := s.comps.Get(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !c.Settled() {
		return nil, apperrors.StateConflict("competition_not_settled", "prizes can be claimed after settlement")
	}

	prize, err := s.entries.ClaimPrize(ctx, competitionID, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.PrizesClaimed.Inc()
	if prize.Points > 0 {
		if err := creditRewardPoints(ctx, s.stats, userID, prize.Points); err != nil {
			log.Printf("CompetitionService: claim of %s's prize in %s kept but credit failed: %v", userID, competitionID, err)
		}
	}
	return prize, nil
}
