package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SessionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfocus_sessions_recorded_total",
			Help: "Total number of focus sessions recorded",
		},
	)
	AchievementsUnlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfocus_achievements_unlocked_total",
			Help: "Total number of achievement unlocks",
		},
	)
	CompetitionsSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfocus_competitions_settled_total",
			Help: "Total number of competitions settled",
		},
	)
	PrizesClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfocus_prizes_claimed_total",
			Help: "Total number of prizes claimed",
		},
	)
)

// Register hooks the engine counters into the default registry. Call once
// from main.go next to middleware.InitPrometheus.
func Register() {
	prometheus.MustRegister(SessionsRecorded)
	prometheus.MustRegister(AchievementsUnlocked)
	prometheus.MustRegister(CompetitionsSettled)
	prometheus.MustRegister(PrizesClaimed)
}
