package services

import (
	"context"
	"deepFocusAPI/internal/competition"
	"deepFocusAPI/internal/leaderboard"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// leaderboardTTL keeps a busy board from being re-ranked on every poll; a
// standing is allowed to be this stale.
const leaderboardTTL = 30 * time.Second

type LeaderboardService struct {
	entries competition.EntryRepository
	cache   *redis.Client
}

// NewLeaderboardService builds the ranker. cache may be nil, in which case
// every request ranks from the store.
func NewLeaderboardService(entries competition.EntryRepository, cache *redis.Client) *LeaderboardService {
	return &LeaderboardService{entries: entries, cache: cache}
}

func leaderboardKey(competitionID uuid.UUID) string {
	return fmt.Sprintf("leaderboard:%s", competitionID)
}

// GetLeaderboard returns the current standings, cached for a short window.
// Ranking also persists each entry's rank transition so trend arrows survive
// across refreshes.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, competitionID uuid.UUID, limit, offset int) (*leaderboard.Leaderboard, error) {
	if cached := s.fromCache(ctx, competitionID); cached != nil {
		return s.page(cached, limit, offset), nil
	}

	entries, err := s.entries.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	standings := leaderboard.Rank(entries)

	entryByID := make(map[uuid.UUID]*competition.Entry, len(entries))
	for _, e := range entries {
		entryByID[e.ID] = e
	}
	for _, standing := range standings {
		entry := entryByID[standing.EntryID]
		rank := leaderboard.RankInfoFor(standing, entry.Rank)
		standing.PreviousRank = rank.Previous
		standing.BestRank = rank.Best
		standing.Trend = rank.Trend
		if rank == entry.Rank {
			continue
		}
		if err := s.entries.SaveRank(ctx, standing.EntryID, rank); err != nil {
			log.Printf("LeaderboardService: failed to save rank for %s: %v", standing.EntryID, err)
		}
	}

	board := &leaderboard.Leaderboard{
		CompetitionID: competitionID,
		Standings:     standings,
		TotalEntries:  len(standings),
		GeneratedAt:   time.Now().UTC(),
	}
	s.toCache(ctx, board)

	return s.page(board, limit, offset), nil
}

// UserStanding returns one entrant's row without paging through the board.
func (s *LeaderboardService) UserStanding(ctx context.Context, competitionID uuid.UUID, userID string) (*leaderboard.Standing, error) {
	board, err := s.GetLeaderboard(ctx, competitionID, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, standing := range board.Standings {
		if standing.UserID == userID {
			return standing, nil
		}
	}
	return nil, nil
}

// Invalidate drops the cached board, used after settlement so clients see
// final ranks immediately.
func (s *LeaderboardService) Invalidate(ctx context.Context, competitionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, leaderboardKey(competitionID)).Err(); err != nil {
		log.Printf("LeaderboardService: failed to invalidate cache for %s: %v", competitionID, err)
	}
}

func (s *LeaderboardService) page(board *leaderboard.Leaderboard, limit, offset int) *leaderboard.Leaderboard {
	paged := *board
	paged.Standings = leaderboard.Page(board.Standings, limit, offset)
	return &paged
}

func (s *LeaderboardService) fromCache(ctx context.Context, competitionID uuid.UUID) *leaderboard.Leaderboard {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, leaderboardKey(competitionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("LeaderboardService: cache read failed for %s: %v", competitionID, err)
		}
		return nil
	}

	var board leaderboard.Leaderboard
	if err := json.Unmarshal(data, &board); err != nil {
		log.Printf("LeaderboardService: dropping corrupt cache entry for %s: %v", competitionID, err)
		return nil
	}
	return &board
}

func (s *LeaderboardService) toCache(ctx context.Context, board *leaderboard.Leaderboard) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(board)
	if err != nil {
		log.Printf("LeaderboardService: failed to encode board for %s: %v", board.CompetitionID, err)
		return
	}
	if err := s.cache.Set(ctx, leaderboardKey(board.CompetitionID), data, leaderboardTTL).Err(); err != nil {
		log.Printf("LeaderboardService: cache write failed for %s: %v", board.CompetitionID, err)
	}
}
