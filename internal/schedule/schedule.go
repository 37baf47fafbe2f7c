package schedule

import (
	"fmt"
	"time"

	"routinekeeper/internal/errs"
)

// Frequency is the recurrence cadence of a routine schedule.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) validate(field string) error {
	if t.Hour < 0 || t.Hour > 23 {
		return errs.NewValidation(field+".hour", fmt.Sprintf("must be in 0..23, got %d", t.Hour))
	}
	if t.Minute < 0 || t.Minute > 59 {
		return errs.NewValidation(field+".minute", fmt.Sprintf("must be in 0..59, got %d", t.Minute))
	}
	return nil
}

// WeekdayOccurrence is one fixed weekly slot of a weekly schedule. A
// SpecificDateOverride replaces the recurring slot only for the week
// containing the override date; the slot applies normally in every other
// week. AssignedTo is carried on emitted occurrences as metadata and is not
// interpreted by the scheduler.
type WeekdayOccurrence struct {
	Day                  time.Weekday `json:"day"`
	Time                 TimeOfDay    `json:"time"`
	SpecificDateOverride *time.Time   `json:"specific_date_override,omitempty"`
	AssignedTo           string       `json:"assigned_to,omitempty"`
}

// Schedule is the declarative recurrence rule of a routine. Exactly one of
// WeekdayOccurrences (weekly), DayOfMonth (monthly), MonthsOfYear
// (quarterly/yearly) is meaningful, selected by Frequency.
type Schedule struct {
	Frequency          Frequency           `json:"frequency"`
	TargetCount        int                 `json:"target_count"`
	TimeOfDay          *TimeOfDay          `json:"time_of_day,omitempty"`
	WeekdayOccurrences []WeekdayOccurrence `json:"weekday_occurrences,omitempty"`
	DayOfMonth         int                 `json:"day_of_month,omitempty"`
	MonthsOfYear       []int               `json:"months_of_year,omitempty"`
	EndDate            *time.Time          `json:"end_date,omitempty"`
}

// Validate checks the schedule's structural invariants. It must pass before
// the schedule is persisted or expanded; a failure names the offending field.
func (s Schedule) Validate() error {
	if !s.Frequency.Valid() {
		return errs.NewValidation("frequency", fmt.Sprintf("unknown frequency %q", s.Frequency))
	}
	if s.TargetCount < 1 {
		return errs.NewValidation("target_count", fmt.Sprintf("must be >= 1, got %d", s.TargetCount))
	}
	if s.TimeOfDay != nil {
		if err := s.TimeOfDay.validate("time_of_day"); err != nil {
			return err
		}
	}

	switch s.Frequency {
	case FrequencyWeekly:
		if len(s.WeekdayOccurrences) != s.TargetCount {
			return errs.NewValidation("weekday_occurrences",
				fmt.Sprintf("must have exactly target_count (%d) entries, got %d",
					s.TargetCount, len(s.WeekdayOccurrences)))
		}
		for i, occ := range s.WeekdayOccurrences {
			if occ.Day < time.Sunday || occ.Day > time.Saturday {
				return errs.NewValidation(
					fmt.Sprintf("weekday_occurrences[%d].day", i),
					fmt.Sprintf("invalid weekday %d", occ.Day))
			}
			if err := occ.Time.validate(fmt.Sprintf("weekday_occurrences[%d].time", i)); err != nil {
				return err
			}
		}
	case FrequencyMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return errs.NewValidation("day_of_month",
				fmt.Sprintf("must be in 1..31, got %d", s.DayOfMonth))
		}
	case FrequencyQuarterly, FrequencyYearly:
		if len(s.MonthsOfYear) == 0 {
			return errs.NewValidation("months_of_year", "must not be empty")
		}
		for i, m := range s.MonthsOfYear {
			if m < 1 || m > 12 {
				return errs.NewValidation(
					fmt.Sprintf("months_of_year[%d]", i),
					fmt.Sprintf("must be in 1..12, got %d", m))
			}
		}
		if s.DayOfMonth != 0 && (s.DayOfMonth < 1 || s.DayOfMonth > 31) {
			return errs.NewValidation("day_of_month",
				fmt.Sprintf("must be in 1..31, got %d", s.DayOfMonth))
		}
	}
	return nil
}

// timeOfDayOrDefault returns the configured time of day, or start of day.
func (s Schedule) timeOfDayOrDefault() TimeOfDay {
	if s.TimeOfDay != nil {
		return *s.TimeOfDay
	}
	return TimeOfDay{}
}

// dayOfMonthOrDefault returns the configured day of month, defaulting to 1
// for quarterly/yearly schedules that leave it unset.
func (s Schedule) dayOfMonthOrDefault() int {
	if s.DayOfMonth >= 1 {
		return s.DayOfMonth
	}
	return 1
}
