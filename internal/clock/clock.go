package clock

import "time"

// Clock supplies the current instant. Schedule and streak computations take
// a Clock instead of calling time.Now so they stay deterministic under test.
type Clock interface {
	Now() time.Time
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always reports the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// Manual is a settable clock for tests.
type Manual struct {
	T time.Time
}

func (m *Manual) Now() time.Time { return m.T }

func (m *Manual) Advance(d time.Duration) { m.T = m.T.Add(d) }

func (m *Manual) Set(t time.Time) { m.T = t }
