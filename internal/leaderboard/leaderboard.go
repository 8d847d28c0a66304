package leaderboard

import (
	"sort"
	"time"

	"deepFocusAPI/internal/competition"

	"github.com/google/uuid"
)

// Standing is one row of a ranked leaderboard.
type Standing struct {
	EntryID      uuid.UUID         `json:"entry_id"`
	UserID       string            `json:"user_id"`
	CurrentValue int               `json:"current_value"`
	Percent      float64           `json:"percent"`
	Rank         int               `json:"rank"`
	PreviousRank int               `json:"previous_rank"`
	BestRank     int               `json:"best_rank"`
	Trend        competition.Trend `json:"trend"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Leaderboard struct {
	CompetitionID uuid.UUID   `json:"competition_id"`
	Standings     []*Standing `json:"standings"`
	TotalEntries  int         `json:"total_entries"`
	GeneratedAt   time.Time   `json:"generated_at"`
}

// Rank produces a total order over the non-withdrawn entries: progress value
// descending, ties broken by earliest update first (consistency beats luck).
// It is a full recompute from stored state, so running it twice with no
// intervening progress change is a fixed point.
func Rank(entries []*competition.Entry) []*Standing {
	ranked := make([]*competition.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Status == competition.EntryStatusWithdrawn {
			continue
		}
		ranked = append(ranked, e)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Progress.CurrentValue != ranked[j].Progress.CurrentValue {
			return ranked[i].Progress.CurrentValue > ranked[j].Progress.CurrentValue
		}
		return ranked[i].UpdatedAt.Before(ranked[j].UpdatedAt)
	})

	standings := make([]*Standing, len(ranked))
	for i, e := range ranked {
		rank := i + 1
		standings[i] = &Standing{
			EntryID:      e.ID,
			UserID:       e.UserID,
			CurrentValue: e.Progress.CurrentValue,
			Percent:      e.Progress.Percent,
			Rank:         rank,
			PreviousRank: e.Rank.Current,
			BestRank:     bestRank(e.Rank.Best, rank),
			Trend:        trend(e.Rank.Current, rank),
			UpdatedAt:    e.UpdatedAt,
		}
	}
	return standings
}

// RankInfoFor translates a standing back into the per-entry persisted rank
// state. The previous rank only shifts when the rank actually changed.
func RankInfoFor(s *Standing, stored competition.RankInfo) competition.RankInfo {
	info := competition.RankInfo{
		Current:  s.Rank,
		Previous: stored.Previous,
		Best:     s.BestRank,
		Trend:    s.Trend,
	}
	if stored.Current != 0 && stored.Current != s.Rank {
		info.Previous = stored.Current
	}
	return info
}

// Page slices standings by limit/offset; ranks stay absolute.
func Page(standings []*Standing, limit, offset int) []*Standing {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(standings) {
		return []*Standing{}
	}
	end := len(standings)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return standings[offset:end]
}

func trend(previous, current int) competition.Trend {
	switch {
	case previous == 0:
		return competition.TrendNew
	case current < previous:
		return competition.TrendUp
	case current > previous:
		return competition.TrendDown
	default:
		return competition.TrendSame
	}
}

func bestRank(storedBest, current int) int {
	if storedBest == 0 || current < storedBest {
		return current
	}
	return storedBest
}
