package engine

import (
	"testing"

	"github.com/harborplay/roundengine/internal/domain"
)

func testKey() domain.PeriodKey {
	return domain.PeriodKey{GameType: "wingo", Duration: 60, Timeline: "a", PeriodID: "202608310047"}
}

func TestStateFor(t *testing.T) {
	tests := []struct {
		remaining, margin int
		want              domain.WindowState
	}{
		{60, 5, domain.WindowOpen},
		{6, 5, domain.WindowOpen},
		// Freeze is inclusive: remaining == margin already rejects bets.
		{5, 5, domain.WindowFrozen},
		{1, 5, domain.WindowFrozen},
		{0, 5, domain.WindowClosed},
		{-1, 5, domain.WindowClosed},
		// Zero margin: open until the boundary.
		{1, 0, domain.WindowOpen},
		{0, 0, domain.WindowClosed},
	}

	for _, tt := range tests {
		if got := StateFor(tt.remaining, tt.margin); got != tt.want {
			t.Errorf("StateFor(%d, %d) = %q, want %q", tt.remaining, tt.margin, got, tt.want)
		}
	}
}

func TestWindowLifecycle(t *testing.T) {
	w := NewWindow(testKey(), 5)

	if got := w.State(); got != domain.WindowOpen {
		t.Fatalf("initial state = %q, want open", got)
	}

	state, fire := w.Observe(30)
	if state != domain.WindowOpen || fire {
		t.Fatalf("Observe(30) = (%q, %v), want (open, false)", state, fire)
	}

	state, fire = w.Observe(5)
	if state != domain.WindowFrozen || fire {
		t.Fatalf("Observe(5) = (%q, %v), want (frozen, false)", state, fire)
	}

	state, fire = w.Observe(0)
	if state != domain.WindowClosed || !fire {
		t.Fatalf("Observe(0) = (%q, %v), want (closed, true)", state, fire)
	}

	// fireClose reports exactly once.
	state, fire = w.Observe(0)
	if state != domain.WindowClosed || fire {
		t.Fatalf("second Observe(0) = (%q, %v), want (closed, false)", state, fire)
	}

	w.MarkResolving()
	if got := w.State(); got != domain.WindowResolving {
		t.Fatalf("after MarkResolving state = %q", got)
	}
	w.MarkSettled()
	if got := w.State(); got != domain.WindowSettled {
		t.Fatalf("after MarkSettled state = %q", got)
	}
}

func TestWindowNeverMovesBackwards(t *testing.T) {
	w := NewWindow(testKey(), 5)

	w.Observe(0) // closed
	// A jittery clock reading showing time remaining must not reopen betting.
	state, fire := w.Observe(12)
	if state != domain.WindowClosed || fire {
		t.Fatalf("Observe(12) after close = (%q, %v), want (closed, false)", state, fire)
	}

	w.MarkSettled()
	w.MarkResolving() // stale transition, ignored
	if got := w.State(); got != domain.WindowSettled {
		t.Fatalf("settled window regressed to %q", got)
	}
}

func TestWindowSkipsFrozenOnCoarseTicks(t *testing.T) {
	// A tick cadence coarser than the freeze margin can jump straight from
	// open to closed; the close must still fire.
	w := NewWindow(testKey(), 2)
	w.Observe(10)
	state, fire := w.Observe(0)
	if state != domain.WindowClosed || !fire {
		t.Fatalf("Observe(0) = (%q, %v), want (closed, true)", state, fire)
	}
}
