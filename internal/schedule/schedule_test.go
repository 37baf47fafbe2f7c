package schedule

import (
	"errors"
	"testing"
	"time"

	"routinekeeper/internal/errs"
)

func TestValidate_Valid(t *testing.T) {
	cases := []struct {
		name string
		s    Schedule
	}{
		{
			name: "daily",
			s:    Schedule{Frequency: FrequencyDaily, TargetCount: 1},
		},
		{
			name: "daily with time of day",
			s: Schedule{
				Frequency:   FrequencyDaily,
				TargetCount: 1,
				TimeOfDay:   &TimeOfDay{Hour: 8, Minute: 30},
			},
		},
		{
			name: "weekly with matching slots",
			s: Schedule{
				Frequency:   FrequencyWeekly,
				TargetCount: 2,
				WeekdayOccurrences: []WeekdayOccurrence{
					{Day: time.Monday, Time: TimeOfDay{Hour: 9}},
					{Day: time.Thursday, Time: TimeOfDay{Hour: 18}},
				},
			},
		},
		{
			name: "monthly",
			s:    Schedule{Frequency: FrequencyMonthly, TargetCount: 1, DayOfMonth: 15},
		},
		{
			name: "quarterly",
			s: Schedule{
				Frequency:    FrequencyQuarterly,
				TargetCount:  1,
				MonthsOfYear: []int{1, 4, 7, 10},
			},
		},
		{
			name: "yearly with day of month",
			s: Schedule{
				Frequency:    FrequencyYearly,
				TargetCount:  1,
				MonthsOfYear: []int{6},
				DayOfMonth:   30,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.s.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		s         Schedule
		wantField string
	}{
		{
			name:      "unknown frequency",
			s:         Schedule{Frequency: "fortnightly", TargetCount: 1},
			wantField: "frequency",
		},
		{
			name:      "zero target count",
			s:         Schedule{Frequency: FrequencyDaily, TargetCount: 0},
			wantField: "target_count",
		},
		{
			name: "time of day out of range",
			s: Schedule{
				Frequency:   FrequencyDaily,
				TargetCount: 1,
				TimeOfDay:   &TimeOfDay{Hour: 24},
			},
			wantField: "time_of_day.hour",
		},
		{
			name: "weekly slot count mismatch",
			s: Schedule{
				Frequency:   FrequencyWeekly,
				TargetCount: 3,
				WeekdayOccurrences: []WeekdayOccurrence{
					{Day: time.Monday},
				},
			},
			wantField: "weekday_occurrences",
		},
		{
			name:      "monthly day out of range",
			s:         Schedule{Frequency: FrequencyMonthly, TargetCount: 1, DayOfMonth: 32},
			wantField: "day_of_month",
		},
		{
			name:      "monthly day missing",
			s:         Schedule{Frequency: FrequencyMonthly, TargetCount: 1},
			wantField: "day_of_month",
		},
		{
			name:      "quarterly without months",
			s:         Schedule{Frequency: FrequencyQuarterly, TargetCount: 1},
			wantField: "months_of_year",
		},
		{
			name: "yearly month out of range",
			s: Schedule{
				Frequency:    FrequencyYearly,
				TargetCount:  1,
				MonthsOfYear: []int{13},
			},
			wantField: "months_of_year[0]",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var verr *errs.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tc.wantField)
			}
		})
	}
}
