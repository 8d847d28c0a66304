package services

import (
	"context"
	"deepFocusAPI/internal/competition"
	"log"
	"time"
)

// SettlementWorker sweeps for competitions whose window has closed and
// settles them. It is safe to run alongside creator-triggered settlement;
// the settle-once guard in the repository resolves the race.
type SettlementWorker struct {
	comps        competition.Repository
	competitions *CompetitionService
	leaderboards *LeaderboardService
	interval     time.Duration
}

func NewSettlementWorker(comps competition.Repository, competitions *CompetitionService, leaderboards *LeaderboardService, interval time.Duration) *SettlementWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SettlementWorker{
		comps:        comps,
		competitions: competitions,
		leaderboards: leaderboards,
		interval:     interval,
	}
}

// Run blocks until ctx is cancelled.
func (w *SettlementWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("SettlementWorker: sweeping every %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("SettlementWorker: stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SettlementWorker) sweep(ctx context.Context) {
	now := time.Now().UTC()
	ended, err := w.comps.ListEndedUnsettled(ctx, now)
	if err != nil {
		log.Printf("SettlementWorker: failed to list ended competitions: %v", err)
		return
	}

	for _, c := range ended {
		if err := w.competitions.Settle(ctx, c.ID, now); err != nil {
			log.Printf("SettlementWorker: failed to settle %s: %v", c.ID, err)
			continue
		}
		if w.leaderboards != nil {
			w.leaderboards.Invalidate(ctx, c.ID)
		}
	}
}
