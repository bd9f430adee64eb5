package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodKey identifies one betting round. Every lookup against the ledger,
// registry, result store, or coordination bus must carry the full tuple;
// downstream code never reassembles keys from partial strings.
type PeriodKey struct {
	GameType string
	Duration int // seconds
	Timeline string
	PeriodID string
}

// String renders the key in its canonical colon-delimited form, e.g.
// "wingo:60:a:202608310047".
func (k PeriodKey) String() string {
	return fmt.Sprintf("%s:%d:%s:%s", k.GameType, k.Duration, k.Timeline, k.PeriodID)
}

// ParsePeriodKey parses the canonical form produced by String.
func ParsePeriodKey(s string) (PeriodKey, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return PeriodKey{}, fmt.Errorf("parse period key %q: want 4 fields", s)
	}
	dur, err := strconv.Atoi(parts[1])
	if err != nil {
		return PeriodKey{}, fmt.Errorf("parse period key %q: duration: %w", s, err)
	}
	return PeriodKey{
		GameType: parts[0],
		Duration: dur,
		Timeline: parts[2],
		PeriodID: parts[3],
	}, nil
}

// WindowState is the lifecycle state of a betting window.
type WindowState string

const (
	WindowOpen      WindowState = "open"
	WindowFrozen    WindowState = "frozen"
	WindowClosed    WindowState = "closed"
	WindowResolving WindowState = "resolving"
	WindowSettled   WindowState = "settled"
)

// PeriodSnapshot is the broadcast view of a live period. Snapshots are
// idempotent overwrites keyed by PeriodID, never deltas; subscribers that
// receive the same snapshot twice simply replace their local copy.
type PeriodSnapshot struct {
	GameType      string      `json:"game_type"`
	Duration      int         `json:"duration"`
	Timeline      string      `json:"timeline"`
	PeriodID      string      `json:"period_id"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       time.Time   `json:"end_time"`
	TimeRemaining int         `json:"time_remaining"`
	State         WindowState `json:"state"`
}

// Key returns the PeriodKey embedded in the snapshot.
func (s PeriodSnapshot) Key() PeriodKey {
	return PeriodKey{
		GameType: s.GameType,
		Duration: s.Duration,
		Timeline: s.Timeline,
		PeriodID: s.PeriodID,
	}
}
