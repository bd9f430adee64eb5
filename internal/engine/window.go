// Package engine contains the period lifecycle core: the betting window
// state machine, the outcome selector, the per-pair round orchestrator, and
// the bet ingestion service.
package engine

import (
	"sync"

	"github.com/harborplay/roundengine/internal/domain"
)

// StateFor maps a clamped time-remaining value to the betting window state.
// The freeze is inclusive: remaining == freezeMargin already rejects bets.
func StateFor(remaining, freezeMargin int) domain.WindowState {
	switch {
	case remaining <= 0:
		return domain.WindowClosed
	case remaining <= freezeMargin:
		return domain.WindowFrozen
	default:
		return domain.WindowOpen
	}
}

// windowRank orders lifecycle states so a window never moves backwards, even
// if clock readings jitter across ticks.
var windowRank = map[domain.WindowState]int{
	domain.WindowOpen:      0,
	domain.WindowFrozen:    1,
	domain.WindowClosed:    2,
	domain.WindowResolving: 3,
	domain.WindowSettled:   4,
}

// Window tracks the lifecycle of one live period. Each period gets a fresh
// Window; periods do not chain into each other, the next one is computed
// from wall time. The CLOSED transition is reported exactly once so the
// selector runs exactly once per period.
type Window struct {
	mu           sync.Mutex
	key          domain.PeriodKey
	freezeMargin int
	state        domain.WindowState
	closeFired   bool
}

// NewWindow creates a Window in the OPEN state for the given period.
func NewWindow(key domain.PeriodKey, freezeMargin int) *Window {
	return &Window{
		key:          key,
		freezeMargin: freezeMargin,
		state:        domain.WindowOpen,
	}
}

// Key returns the period this window belongs to.
func (w *Window) Key() domain.PeriodKey { return w.key }

// State returns the current lifecycle state.
func (w *Window) State() domain.WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Observe feeds the latest time-remaining reading into the state machine and
// returns the resulting state plus fireClose, which is true exactly once:
// on the tick that transitions the window to CLOSED. The caller triggers
// resolution when fireClose is set.
func (w *Window) Observe(remaining int) (state domain.WindowState, fireClose bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := StateFor(remaining, w.freezeMargin)
	if windowRank[next] > windowRank[w.state] {
		w.state = next
	}

	if w.state == domain.WindowClosed && !w.closeFired {
		w.closeFired = true
		return w.state, true
	}
	return w.state, false
}

// MarkResolving records that selection and persistence are in flight.
func (w *Window) MarkResolving() {
	w.advance(domain.WindowResolving)
}

// MarkSettled records that the result was persisted and published. Terminal.
func (w *Window) MarkSettled() {
	w.advance(domain.WindowSettled)
}

func (w *Window) advance(s domain.WindowState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if windowRank[s] > windowRank[w.state] {
		w.state = s
	}
}
