// Package status derives the maintenance state of a site from its newest log.
package status

import (
	"time"

	"go-maintdash/internal/models"
)

type Status string

const (
	Pending   Status = "Pending"
	Completed Status = "Completed"
	Due       Status = "Due"
)

// NeedsAttention reports whether the site must be maintained. Pending and Due
// alert the same way; they only differ in what the UI shows.
func (s Status) NeedsAttention() bool { return s != Completed }

// PeriodStart returns the start of the cadence window containing now, in now's
// location: Monday 00:00 for WordPress, the 1st of the month 00:00 for SupportPal.
func PeriodStart(kind models.Kind, now time.Time) time.Time {
	y, m, d := now.Date()
	if kind == models.KindSupportPal {
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
	back := (int(now.Weekday()) + 6) % 7
	return time.Date(y, m, d-back, 0, 0, 0, 0, now.Location())
}

// Evaluate maps the check date of a site's newest log to a status. A nil
// checkedAt, or one at or before the Unix epoch, is the never-checked state.
func Evaluate(kind models.Kind, checkedAt *time.Time, now time.Time) Status {
	if checkedAt == nil || checkedAt.Unix() <= 0 {
		return Pending
	}
	if checkedAt.Before(PeriodStart(kind, now)) {
		return Due
	}
	return Completed
}

func ForSite(site models.Site, now time.Time) Status {
	latest := site.Latest()
	if latest == nil {
		return Pending
	}
	return Evaluate(site.Kind, latest.CheckedAt, now)
}
