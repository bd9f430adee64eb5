// Package clock derives period identity and timing from wall-clock time.
// Everything here is pure and deterministic: two processes calling PeriodAt
// with the same instant and config compute the identical period, which is
// what lets the scheduler and broadcast processes agree without locks.
package clock

import (
	"fmt"
	"time"
)

// Info describes the period an instant falls into.
type Info struct {
	PeriodID string
	Sequence int64
	Start    time.Time
	End      time.Time
	// Remaining is whole seconds until the period ends, always clamped to
	// [0, duration]. Clock skew between processes can otherwise produce
	// remaining values exceeding the round length.
	Remaining int
}

// PeriodAt maps now to its period for a round length of duration seconds.
// The daily anchor is midnight in loc; sequence numbers are zero-based from
// the anchor (sequence = floor(secondsSinceAnchor / duration)). Periods are
// half-open [start, end): an instant exactly on a boundary belongs to the
// new period.
//
// The period id is the anchor date plus the zero-padded sequence, e.g.
// duration=60 at 00:47 local -> "202608310047".
func PeriodAt(now time.Time, loc *time.Location, duration int) Info {
	if duration <= 0 {
		panic(fmt.Sprintf("clock: non-positive duration %d", duration))
	}

	local := now.In(loc)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	elapsed := local.Sub(anchor)
	seq := int64(elapsed / (time.Duration(duration) * time.Second))

	start := anchor.Add(time.Duration(seq) * time.Duration(duration) * time.Second)
	end := start.Add(time.Duration(duration) * time.Second)

	return Info{
		PeriodID:  fmt.Sprintf("%s%04d", anchor.Format("20060102"), seq),
		Sequence:  seq,
		Start:     start,
		End:       end,
		Remaining: remaining(now, end, duration),
	}
}

// remaining computes ceil((end-now)/1s) clamped to [0, duration]. The clamp
// is mandatory: small clock or rounding differences between processes must
// never yield a countdown exceeding the round length.
func remaining(now, end time.Time, duration int) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs > duration {
		return duration
	}
	return secs
}

// NextBoundary returns the instant the current period for duration ends,
// which is when the next period begins. Orchestrators sleep toward this
// boundary instead of busy-polling.
func NextBoundary(now time.Time, loc *time.Location, duration int) time.Time {
	return PeriodAt(now, loc, duration).End
}
