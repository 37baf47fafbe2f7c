package reviewcycle

import (
	"fmt"
	"time"

	"routinekeeper/internal/errs"
)

// Cycle is the cadence at which a continuously-tracked goal is revisited
// instead of pursued toward a fixed deadline.
type Cycle string

const (
	CycleWeekly    Cycle = "weekly"
	CycleMonthly   Cycle = "monthly"
	CycleQuarterly Cycle = "quarterly"
	CycleBiannual  Cycle = "biannual"
	CycleYearly    Cycle = "yearly"
)

// Valid reports whether c is a known cycle.
func (c Cycle) Valid() bool {
	switch c {
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleBiannual, CycleYearly:
		return true
	}
	return false
}

// NextReviewDate computes the review instant one cycle after from.
// Month-based cycles preserve the day of month, clamped to the target
// month's length, so a January 31 monthly review lands on the last day of
// February rather than an invalid date. Every cycle value is handled
// explicitly; an unknown value is a validation error, never a silent
// pass-through.
func NextReviewDate(cycle Cycle, from time.Time) (time.Time, error) {
	switch cycle {
	case CycleWeekly:
		return from.AddDate(0, 0, 7), nil
	case CycleMonthly:
		return addMonthsClamped(from, 1), nil
	case CycleQuarterly:
		return addMonthsClamped(from, 3), nil
	case CycleBiannual:
		return addMonthsClamped(from, 6), nil
	case CycleYearly:
		return addMonthsClamped(from, 12), nil
	default:
		return time.Time{}, errs.NewValidation("cycle", fmt.Sprintf("unknown review cycle %q", cycle))
	}
}

// addMonthsClamped adds months keeping the day of month, clamped to the
// target month's length. time.AddDate alone would normalize Jan 31 + 1
// month into March 2/3.
func addMonthsClamped(from time.Time, months int) time.Time {
	y, m, d := from.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	last := target.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}
