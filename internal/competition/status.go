package competition

import "time"

// DeriveStatus computes the temporal status from timing. Draft and cancelled
// are sticky until an explicit action clears them; completed is terminal.
// Everything else is a pure function of now versus the window, so the read
// path never needs to persist upcoming/active flips.
func DeriveStatus(t Timing, now time.Time, sticky Status) Status {
	switch sticky {
	case StatusDraft, StatusCancelled, StatusCompleted:
		return sticky
	}

	switch {
	case now.Before(t.StartDate):
		return StatusUpcoming
	case !now.After(t.EndDate):
		return StatusActive
	default:
		return StatusCompleted
	}
}

// StatusAt is DeriveStatus over the competition's own sticky status.
func (c *Competition) StatusAt(now time.Time) Status {
	return DeriveStatus(c.Timing, now, c.Status)
}
