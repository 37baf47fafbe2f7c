package tracker

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"routinekeeper/internal/clock"
	"routinekeeper/internal/model"
	"routinekeeper/pkg/metrics"
)

// Tracker records routine completions and rederives streak and adherence
// metrics from the full history. Metrics are never updated incrementally;
// every mutation recomputes from source so in-memory deltas cannot drift
// from the persisted history.
type Tracker struct {
	clock  clock.Clock
	window int // trailing expected occurrences for adherence; 0 means all
	logger *zap.Logger
}

func New(clk clock.Clock, adherenceWindow int, logger *zap.Logger) *Tracker {
	return &Tracker{
		clock:  clk,
		window: adherenceWindow,
		logger: logger,
	}
}

// RecordCompletion inserts the instant into the routine's completion
// history and recomputes derived metrics. Recording an instant already
// present has no additional effect. Returns whether the instant was new.
func (t *Tracker) RecordCompletion(r *model.Routine, at time.Time) (bool, error) {
	for _, c := range r.CompletionDates {
		if c.Equal(at) {
			t.logger.Debug("Completion already recorded",
				zap.String("routine_id", r.ID),
				zap.Time("at", at),
			)
			metrics.CompletionsRecorded.WithLabelValues("duplicate").Inc()
			return false, nil
		}
	}

	r.CompletionDates = append(r.CompletionDates, at)
	sort.Slice(r.CompletionDates, func(i, j int) bool {
		return r.CompletionDates[i].Before(r.CompletionDates[j])
	})

	if err := t.Recompute(r); err != nil {
		return false, err
	}

	t.logger.Info("Completion recorded",
		zap.String("routine_id", r.ID),
		zap.Time("at", at),
		zap.Int("current_streak", r.StreakData.CurrentStreak),
		zap.Float64("adherence_rate", r.AdherenceRate),
	)
	metrics.CompletionsRecorded.WithLabelValues("recorded").Inc()
	return true, nil
}

// RemoveCompletion removes the instant from the history, if present, and
// recomputes both metrics from the resulting history.
func (t *Tracker) RemoveCompletion(r *model.Routine, at time.Time) (bool, error) {
	idx := -1
	for i, c := range r.CompletionDates {
		if c.Equal(at) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	r.CompletionDates = append(r.CompletionDates[:idx], r.CompletionDates[idx+1:]...)
	if err := t.Recompute(r); err != nil {
		return false, err
	}

	t.logger.Info("Completion removed",
		zap.String("routine_id", r.ID),
		zap.Time("at", at),
	)
	return true, nil
}

// Recompute rederives StreakData and AdherenceRate from the routine's
// schedule and full completion history.
func (t *Tracker) Recompute(r *model.Routine) error {
	now := t.clock.Now()

	periods, err := t.expectedPeriods(r, now)
	if err != nil {
		return err
	}

	current, longest := streaks(r, periods, now)
	r.StreakData.CurrentStreak = current
	r.StreakData.LongestStreak = longest
	r.StreakData.LastCompletedDate = lastCompletion(r)

	rate, err := t.adherence(r, now)
	if err != nil {
		return err
	}
	r.AdherenceRate = rate
	return nil
}

type period struct {
	start time.Time
	end   time.Time
}

// expectedPeriods expands the schedule from the routine's origin to now and
// collapses the occurrences into their distinct expected periods, in
// chronological order. A weekly schedule with three slots yields one period
// per week.
func (t *Tracker) expectedPeriods(r *model.Routine, now time.Time) ([]period, error) {
	origin := t.origin(r)
	if origin.IsZero() || origin.After(now) {
		return nil, nil
	}

	occs, err := r.Schedule.Occurrences(origin, now)
	if err != nil {
		return nil, err
	}

	var periods []period
	for _, occ := range occs {
		start, end := r.Schedule.PeriodOf(occ.At)
		if len(periods) > 0 && periods[len(periods)-1].start.Equal(start) {
			continue
		}
		periods = append(periods, period{start: start, end: end})
	}
	return periods, nil
}

// origin is the instant history is judged from: routine creation, or the
// first completion when that predates creation (backfilled history).
func (t *Tracker) origin(r *model.Routine) time.Time {
	origin := r.CreatedAt
	if len(r.CompletionDates) > 0 && (origin.IsZero() || r.CompletionDates[0].Before(origin)) {
		origin = r.CompletionDates[0]
	}
	return origin
}

// streaks walks the expected periods and derives the current and longest
// runs of consecutive completed periods. The period containing now is
// skipped, not broken, while it is still in progress without a completion.
func streaks(r *model.Routine, periods []period, now time.Time) (current, longest int) {
	run := 0
	for _, p := range periods {
		if r.CompletedIn(p.start, p.end) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	for i := len(periods) - 1; i >= 0; i-- {
		p := periods[i]
		if r.CompletedIn(p.start, p.end) {
			current++
			continue
		}
		inProgress := !now.Before(p.start) && now.Before(p.end)
		if inProgress && current == 0 {
			continue
		}
		break
	}
	return current, longest
}

// adherence computes completions / expected occurrences over the trailing
// window, clamped to [0,1].
func (t *Tracker) adherence(r *model.Routine, now time.Time) (float64, error) {
	origin := t.origin(r)
	if origin.IsZero() || origin.After(now) {
		return 0, nil
	}

	occs, err := r.Schedule.Occurrences(origin, now)
	if err != nil {
		return 0, err
	}
	if len(occs) == 0 {
		return 0, nil
	}

	if t.window > 0 && len(occs) > t.window {
		occs = occs[len(occs)-t.window:]
	}

	windowStart, _ := r.Schedule.PeriodOf(occs[0].At)
	completed := 0
	for _, c := range r.CompletionDates {
		if !c.Before(windowStart) && !c.After(now) {
			completed++
		}
	}

	rate := float64(completed) / float64(len(occs))
	if rate > 1 {
		rate = 1
	}
	return rate, nil
}

func lastCompletion(r *model.Routine) *time.Time {
	if len(r.CompletionDates) == 0 {
		return nil
	}
	last := r.CompletionDates[len(r.CompletionDates)-1]
	return &last
}
