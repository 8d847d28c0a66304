package stats

import "time"

type PeriodStats struct {
	Period     string    `json:"period"` // "day", "week", "month"
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Sessions   int       `json:"sessions"`
	Minutes    int       `json:"minutes"`
	Tasks      int       `json:"tasks"`
	ActiveDays int       `json:"active_days"`
}

// StatsForDate aggregates the single bucket of the given UTC day.
func (r *StatsRecord) StatsForDate(date time.Time) PeriodStats {
	day := DayOf(date)
	return r.aggregateRange("day", day, day)
}

// StatsForWeek aggregates the Monday-to-Sunday UTC week containing anchor.
func (r *StatsRecord) StatsForWeek(anchor time.Time) PeriodStats {
	day := DayOf(anchor)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	from := day.AddDate(0, 0, -offset)
	return r.aggregateRange("week", from, from.AddDate(0, 0, 6))
}

// StatsForMonth aggregates the UTC calendar month containing anchor.
func (r *StatsRecord) StatsForMonth(anchor time.Time) PeriodStats {
	u := anchor.UTC()
	from := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return r.aggregateRange("month", from, from.AddDate(0, 1, -1))
}

// aggregateRange is a pure fold over the stored buckets; no side effects.
func (r *StatsRecord) aggregateRange(period string, from, to time.Time) PeriodStats {
	agg := PeriodStats{Period: period, From: from, To: to}
	for _, b := range r.Buckets {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		agg.Sessions += b.Sessions
		agg.Minutes += b.Minutes
		agg.Tasks += b.Tasks
		if b.Sessions > 0 {
			agg.ActiveDays++
		}
	}
	return agg
}
