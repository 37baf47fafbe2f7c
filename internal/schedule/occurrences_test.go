package schedule

import (
	"testing"
	"time"
)

func date(t *testing.T, y int, m time.Month, d, hour, min int) time.Time {
	t.Helper()
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func atTimes(occs []Occurrence) []time.Time {
	out := make([]time.Time, len(occs))
	for i, o := range occs {
		out[i] = o.At
	}
	return out
}

func assertInstants(t *testing.T, got []Occurrence, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d %v", len(got), atTimes(got), len(want), want)
	}
	for i := range want {
		if !got[i].At.Equal(want[i]) {
			t.Errorf("occurrence[%d] = %v, want %v", i, got[i].At, want[i])
		}
	}
}

func TestOccurrences_Daily(t *testing.T) {
	s := Schedule{
		Frequency:   FrequencyDaily,
		TargetCount: 1,
		TimeOfDay:   &TimeOfDay{Hour: 8},
	}

	got, err := s.Occurrences(date(t, 2024, 3, 11, 0, 0), date(t, 2024, 3, 13, 23, 59))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	assertInstants(t, got, []time.Time{
		date(t, 2024, 3, 11, 8, 0),
		date(t, 2024, 3, 12, 8, 0),
		date(t, 2024, 3, 13, 8, 0),
	})
}

func TestOccurrences_WeeklyOverrideOnlyItsWeek(t *testing.T) {
	// Monday 9:00, with a one-off move to Friday March 15. The week of
	// March 11 emits the Friday instant instead of the Monday one; the
	// surrounding weeks keep their Mondays.
	override := date(t, 2024, 3, 15, 0, 0)
	s := Schedule{
		Frequency:   FrequencyWeekly,
		TargetCount: 1,
		WeekdayOccurrences: []WeekdayOccurrence{
			{Day: time.Monday, Time: TimeOfDay{Hour: 9}, SpecificDateOverride: &override},
		},
	}

	got, err := s.Occurrences(date(t, 2024, 3, 4, 0, 0), date(t, 2024, 3, 24, 23, 59))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	assertInstants(t, got, []time.Time{
		date(t, 2024, 3, 4, 9, 0),
		date(t, 2024, 3, 15, 9, 0),
		date(t, 2024, 3, 18, 9, 0),
	})
}

func TestOccurrences_WeeklyCarriesAssignment(t *testing.T) {
	s := Schedule{
		Frequency:   FrequencyWeekly,
		TargetCount: 2,
		WeekdayOccurrences: []WeekdayOccurrence{
			{Day: time.Monday, Time: TimeOfDay{Hour: 9}, AssignedTo: "user-a"},
			{Day: time.Wednesday, Time: TimeOfDay{Hour: 9}, AssignedTo: "user-b"},
		},
	}

	got, err := s.Occurrences(date(t, 2024, 3, 11, 0, 0), date(t, 2024, 3, 17, 23, 59))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d occurrences, want 2", len(got))
	}
	if got[0].AssignedTo != "user-a" || got[1].AssignedTo != "user-b" {
		t.Errorf("assignments = %q, %q, want user-a, user-b", got[0].AssignedTo, got[1].AssignedTo)
	}
}

func TestOccurrences_MonthlyClampsShortMonths(t *testing.T) {
	s := Schedule{
		Frequency:   FrequencyMonthly,
		TargetCount: 1,
		DayOfMonth:  31,
	}

	got, err := s.Occurrences(date(t, 2024, 1, 1, 0, 0), date(t, 2024, 3, 31, 23, 59))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	assertInstants(t, got, []time.Time{
		date(t, 2024, 1, 31, 0, 0),
		date(t, 2024, 2, 29, 0, 0), // leap February
		date(t, 2024, 3, 31, 0, 0),
	})
}

func TestOccurrences_QuarterlyMonths(t *testing.T) {
	s := Schedule{
		Frequency:    FrequencyQuarterly,
		TargetCount:  1,
		MonthsOfYear: []int{1, 4, 7, 10},
		DayOfMonth:   15,
	}

	got, err := s.Occurrences(date(t, 2024, 1, 1, 0, 0), date(t, 2024, 12, 31, 23, 59))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	assertInstants(t, got, []time.Time{
		date(t, 2024, 1, 15, 0, 0),
		date(t, 2024, 4, 15, 0, 0),
		date(t, 2024, 7, 15, 0, 0),
		date(t, 2024, 10, 15, 0, 0),
	})
}

func TestOccurrences_EndDateCutsOff(t *testing.T) {
	end := date(t, 2024, 3, 12, 12, 0)
	s := Schedule{
		Frequency:   FrequencyDaily,
		TargetCount: 1,
		TimeOfDay:   &TimeOfDay{Hour: 8},
		EndDate:     &end,
	}

	got, err := s.Occurrences(date(t, 2024, 3, 11, 0, 0), date(t, 2024, 3, 14, 23, 59))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	assertInstants(t, got, []time.Time{
		date(t, 2024, 3, 11, 8, 0),
		date(t, 2024, 3, 12, 8, 0),
	})
}

func TestOccurrences_InvalidScheduleRejected(t *testing.T) {
	s := Schedule{Frequency: FrequencyWeekly, TargetCount: 2}
	if _, err := s.Occurrences(date(t, 2024, 3, 11, 0, 0), date(t, 2024, 3, 17, 0, 0)); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestOccurrences_Deterministic(t *testing.T) {
	s := Schedule{
		Frequency:   FrequencyWeekly,
		TargetCount: 2,
		WeekdayOccurrences: []WeekdayOccurrence{
			{Day: time.Friday, Time: TimeOfDay{Hour: 17}},
			{Day: time.Monday, Time: TimeOfDay{Hour: 9}},
		},
	}
	from, to := date(t, 2024, 3, 1, 0, 0), date(t, 2024, 4, 30, 23, 59)

	first, err := s.Occurrences(from, to)
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	second, err := s.Occurrences(from, to)
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	assertInstants(t, second, atTimes(first))

	for i := 1; i < len(first); i++ {
		if first[i].At.Before(first[i-1].At) {
			t.Fatalf("occurrences out of order at %d: %v before %v", i, first[i].At, first[i-1].At)
		}
	}
}

func TestNextAfter(t *testing.T) {
	s := Schedule{Frequency: FrequencyMonthly, TargetCount: 1, DayOfMonth: 15}

	occ, ok := s.NextAfter(date(t, 2024, 3, 16, 0, 0))
	if !ok {
		t.Fatal("NextAfter returned no occurrence")
	}
	if want := date(t, 2024, 4, 15, 0, 0); !occ.At.Equal(want) {
		t.Errorf("NextAfter = %v, want %v", occ.At, want)
	}
}

func TestNextAfter_PastEndDate(t *testing.T) {
	end := date(t, 2024, 3, 31, 0, 0)
	s := Schedule{Frequency: FrequencyDaily, TargetCount: 1, EndDate: &end}

	if _, ok := s.NextAfter(date(t, 2024, 4, 1, 0, 0)); ok {
		t.Fatal("expected no occurrence past the end date")
	}
}

func TestPeriodOf_WeekStartsMonday(t *testing.T) {
	s := Schedule{Frequency: FrequencyWeekly, TargetCount: 1,
		WeekdayOccurrences: []WeekdayOccurrence{{Day: time.Wednesday}}}

	start, end := s.PeriodOf(date(t, 2024, 3, 13, 15, 0)) // a Wednesday
	if want := date(t, 2024, 3, 11, 0, 0); !start.Equal(want) {
		t.Errorf("period start = %v, want %v", start, want)
	}
	if want := date(t, 2024, 3, 18, 0, 0); !end.Equal(want) {
		t.Errorf("period end = %v, want %v", end, want)
	}
}
