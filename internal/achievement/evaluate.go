package achievement

import (
	"sort"
	"time"

	"deepFocusAPI/internal/apperrors"
	"deepFocusAPI/internal/stats"

	"github.com/google/uuid"
)

// Unlock-check reasons, surfaced verbatim to clients.
const (
	ReasonUnlockable           = "unlockable"
	ReasonAlreadyUnlocked      = "already_unlocked"
	ReasonInactive             = "achievement_inactive"
	ReasonNotYetAvailable      = "not_yet_available"
	ReasonAvailabilityEnded    = "availability_ended"
	ReasonPrerequisitesLocked  = "prerequisites_locked"
	ReasonThresholdNotMet      = "threshold_not_met"
	ReasonTimeframeUnsupported = "timeframe_not_supported"
)

// MetricValue maps a criterion metric onto the stats snapshot. The mapping
// is closed: an unknown metric evaluates to zero, never to a guess.
func MetricValue(snap stats.Snapshot, m Metric) int {
	switch m {
	case MetricPomodorosCompleted:
		return snap.SessionsCompleted
	case MetricStreakDays:
		return snap.CurrentStreak
	case MetricFocusHours:
		return snap.TotalMinutes / 60
	case MetricTasksCompleted:
		return snap.TasksCompleted
	case MetricCompetitionsWon:
		return snap.CompetitionsWon
	default:
		return 0
	}
}

// UnlockCheck is the side-effect-free answer to "could this unlock now?".
type UnlockCheck struct {
	Unlockable      bool    `json:"unlockable"`
	CurrentValue    int     `json:"current_value"`
	Threshold       int     `json:"threshold"`
	ProgressPercent float64 `json:"progress_percent"`
	Reason          string  `json:"reason"`
}

// CheckUnlock evaluates one definition against a snapshot without mutating
// anything. Gates run in order: already unlocked, active, availability
// window, timeframe, prerequisites, threshold. unlocked is the set of
// achievement IDs the user has already unlocked.
func CheckUnlock(def *Definition, prog *Progress, snap stats.Snapshot, unlocked map[uuid.UUID]bool, now time.Time) UnlockCheck {
	value := MetricValue(snap, def.Metric)
	check := UnlockCheck{
		CurrentValue:    value,
		Threshold:       def.Threshold,
		ProgressPercent: ProgressPercent(value, def.Threshold),
	}

	switch {
	case prog.Unlocked():
		check.Reason = ReasonAlreadyUnlocked
		check.ProgressPercent = 100
	case !def.IsActive:
		check.Reason = ReasonInactive
	case def.AvailableFrom != nil && now.Before(*def.AvailableFrom):
		check.Reason = ReasonNotYetAvailable
	case def.AvailableUntil != nil && now.After(*def.AvailableUntil):
		check.Reason = ReasonAvailabilityEnded
	case def.Timeframe != "" && def.Timeframe != TimeframeLifetime:
		check.Reason = ReasonTimeframeUnsupported
	case !prerequisitesMet(def, unlocked):
		check.Reason = ReasonPrerequisitesLocked
	case value < def.Threshold:
		check.Reason = ReasonThresholdNotMet
	default:
		check.Unlockable = true
		check.Reason = ReasonUnlockable
	}

	return check
}

func prerequisitesMet(def *Definition, unlocked map[uuid.UUID]bool) bool {
	for _, prereq := range def.Prerequisites {
		if !unlocked[prereq] {
			return false
		}
	}
	return true
}

// SortDefinitions orders a catalog listing by rarity descending, then reward
// points descending, then name for a stable output.
func SortDefinitions(defs []*Definition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Rarity.Order() != defs[j].Rarity.Order() {
			return defs[i].Rarity.Order() > defs[j].Rarity.Order()
		}
		if defs[i].RewardPoints != defs[j].RewardPoints {
			return defs[i].RewardPoints > defs[j].RewardPoints
		}
		return defs[i].Name < defs[j].Name
	})
}

// ValidateCatalog rejects catalogs whose prerequisite graph has unknown
// references or cycles. The graph must stay a DAG or evaluation could spin.
func ValidateCatalog(defs []*Definition) error {
	byID := make(map[uuid.UUID]*Definition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[uuid.UUID]int, len(defs))

	var visit func(id uuid.UUID) error
	visit = func(id uuid.UUID) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return apperrors.Validation("prerequisite_cycle", "achievement prerequisites contain a cycle")
		}
		state[id] = visiting
		def := byID[id]
		for _, prereq := range def.Prerequisites {
			if _, ok := byID[prereq]; !ok {
				return apperrors.Validation("unknown_prerequisite", "achievement references a prerequisite that is not in the catalog")
			}
			if err := visit(prereq); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, def := range defs {
		if err := visit(def.ID); err != nil {
			return err
		}
	}
	return nil
}
