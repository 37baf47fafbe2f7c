package schedule

import (
	"sort"
	"time"
)

// Occurrence is one concrete due instant implied by a schedule. AssignedTo
// is carried over from the weekly slot that produced it, when set.
type Occurrence struct {
	At         time.Time `json:"at"`
	AssignedTo string    `json:"assigned_to,omitempty"`
}

// Occurrences expands the schedule into the ordered, finite sequence of due
// instants within the closed range [from, to]. Generation is deterministic:
// the same schedule and range always produce the same sequence. Occurrences
// past EndDate are never emitted, even inside the range.
func (s Schedule) Occurrences(from, to time.Time) ([]Occurrence, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, nil
	}

	var out []Occurrence
	switch s.Frequency {
	case FrequencyDaily:
		out = s.dailyOccurrences(from, to)
	case FrequencyWeekly:
		out = s.weeklyOccurrences(from, to)
	case FrequencyMonthly:
		out = s.monthlyOccurrences(from, to)
	case FrequencyQuarterly, FrequencyYearly:
		out = s.monthListOccurrences(from, to)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (s Schedule) emittable(t, from, to time.Time) bool {
	if t.Before(from) || t.After(to) {
		return false
	}
	if s.EndDate != nil && t.After(*s.EndDate) {
		return false
	}
	return true
}

func (s Schedule) dailyOccurrences(from, to time.Time) []Occurrence {
	tod := s.timeOfDayOrDefault()
	var out []Occurrence
	for d := startOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		t := atTime(d, tod)
		if s.emittable(t, from, to) {
			out = append(out, Occurrence{At: t})
		}
	}
	return out
}

func (s Schedule) weeklyOccurrences(from, to time.Time) []Occurrence {
	var out []Occurrence
	for w := startOfWeek(from); !w.After(to); w = w.AddDate(0, 0, 7) {
		for _, entry := range s.WeekdayOccurrences {
			t := s.slotInWeek(entry, w)
			if s.emittable(t, from, to) {
				out = append(out, Occurrence{At: t, AssignedTo: entry.AssignedTo})
			}
		}
	}
	return out
}

// slotInWeek resolves one weekly slot for the week starting at weekStart.
// When the slot carries an override dated inside this week, the override
// date replaces the recurring weekday; every other week keeps the weekday.
func (s Schedule) slotInWeek(entry WeekdayOccurrence, weekStart time.Time) time.Time {
	if entry.SpecificDateOverride != nil {
		ov := *entry.SpecificDateOverride
		if startOfWeek(ov).Equal(weekStart) {
			return atTime(startOfDay(ov), entry.Time)
		}
	}
	return atTime(weekStart.AddDate(0, 0, daysFromMonday(entry.Day)), entry.Time)
}

func (s Schedule) monthlyOccurrences(from, to time.Time) []Occurrence {
	tod := s.timeOfDayOrDefault()
	var out []Occurrence
	for m := startOfMonth(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		day := clampDay(s.DayOfMonth, m)
		t := atTime(m.AddDate(0, 0, day-1), tod)
		if s.emittable(t, from, to) {
			out = append(out, Occurrence{At: t})
		}
	}
	return out
}

func (s Schedule) monthListOccurrences(from, to time.Time) []Occurrence {
	tod := s.timeOfDayOrDefault()
	dom := s.dayOfMonthOrDefault()
	var out []Occurrence
	for year := from.Year(); year <= to.Year(); year++ {
		for _, m := range s.MonthsOfYear {
			monthStart := time.Date(year, time.Month(m), 1, 0, 0, 0, 0, from.Location())
			day := clampDay(dom, monthStart)
			t := atTime(monthStart.AddDate(0, 0, day-1), tod)
			if s.emittable(t, from, to) {
				out = append(out, Occurrence{At: t})
			}
		}
	}
	return out
}

// NextAfter returns the first occurrence strictly after t, or false when the
// schedule produces none (for example past its end date).
func (s Schedule) NextAfter(t time.Time) (Occurrence, bool) {
	from := t.Add(time.Nanosecond)
	// Two years covers the sparsest valid schedule (yearly, single month).
	horizon := from.AddDate(2, 0, 0)
	if s.EndDate != nil && s.EndDate.Before(horizon) {
		horizon = *s.EndDate
	}
	occs, err := s.Occurrences(from, horizon)
	if err != nil || len(occs) == 0 {
		return Occurrence{}, false
	}
	return occs[0], true
}

// PeriodOf returns the half-open expected-occurrence period [start, end)
// containing t: the day for daily schedules, the week for weekly ones, and
// the calendar month otherwise.
func (s Schedule) PeriodOf(t time.Time) (time.Time, time.Time) {
	switch s.Frequency {
	case FrequencyDaily:
		start := startOfDay(t)
		return start, start.AddDate(0, 0, 1)
	case FrequencyWeekly:
		start := startOfWeek(t)
		return start, start.AddDate(0, 0, 7)
	default:
		start := startOfMonth(t)
		return start, start.AddDate(0, 1, 0)
	}
}

// ExpectedInPeriod returns the occurrences expected within the period
// containing t.
func (s Schedule) ExpectedInPeriod(t time.Time) ([]Occurrence, error) {
	start, end := s.PeriodOf(t)
	return s.Occurrences(start, end.Add(-time.Nanosecond))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of the week containing t.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	return d.AddDate(0, 0, -daysFromMonday(d.Weekday()))
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// daysFromMonday maps a weekday onto its offset in a Monday-started week.
func daysFromMonday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func atTime(day time.Time, tod TimeOfDay) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, tod.Hour, tod.Minute, 0, 0, day.Location())
}

// clampDay clamps a day-of-month to the length of the month starting at
// monthStart.
func clampDay(day int, monthStart time.Time) int {
	last := monthStart.AddDate(0, 1, -1).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}
