package engine

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harborplay/roundengine/internal/domain"
	"github.com/harborplay/roundengine/internal/game"
)

func newTestOrchestrator(ledger *memLedger, registry *memRegistry, results *memResults, bus *memBus, locks *memLocks) *Orchestrator {
	cfg := OrchestratorConfig{
		Location:       time.UTC,
		FreezeMargin:   5,
		ResolveTimeout: 100 * time.Millisecond,
		ResolveRetries: 2,
		RetryBackoff:   time.Millisecond,
		GraceWindow:    time.Minute,
		ResultSecret:   "test-secret",
	}
	selector := NewSelector(ledger, registry, 100, testLogger())
	return NewOrchestrator(
		game.NewWingo(), 60, "a", cfg,
		selector, ledger, registry, results, bus, locks,
		nil, nil, testLogger(),
	)
}

func closedWindow(key domain.PeriodKey) *Window {
	w := NewWindow(key, 5)
	w.Observe(0)
	w.MarkResolving()
	return w
}

func TestResolveSettlesPeriod(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	results := newMemResults()
	bus := &memBus{}
	key := testKey()

	o := newTestOrchestrator(ledger, registry, results, bus, newMemLocks())
	w := closedWindow(key)
	o.resolve(context.Background(), w)

	if w.State() != domain.WindowSettled {
		t.Fatalf("window state = %q, want settled", w.State())
	}

	stored, err := results.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("result not committed: %v", err)
	}
	if want := domain.VerificationHash("test-secret", key, stored.Outcome); stored.VerificationHash != want {
		t.Errorf("verification hash mismatch")
	}
	if stored.Display["number"] != stored.Outcome {
		t.Errorf("display not derived from outcome: %v", stored.Display)
	}

	published := bus.published()
	if len(published) != 1 {
		t.Fatalf("published %d results, want 1", len(published))
	}
	if published[0].Outcome != stored.Outcome {
		t.Errorf("published outcome %q differs from stored %q", published[0].Outcome, stored.Outcome)
	}
}

func TestResolveAdoptsExistingResult(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	results := newMemResults()
	bus := &memBus{}
	key := testKey()

	// Another writer already settled this period.
	prior := domain.Result{
		GameType: key.GameType, Duration: key.Duration,
		Timeline: key.Timeline, PeriodID: key.PeriodID,
		Outcome:          "3",
		VerificationHash: domain.VerificationHash("test-secret", key, "3"),
		CreatedAt:        time.Now().UTC(),
	}
	if _, fresh, err := results.Commit(context.Background(), prior); err != nil || !fresh {
		t.Fatalf("seed commit: fresh=%v err=%v", fresh, err)
	}

	o := newTestOrchestrator(ledger, registry, results, bus, newMemLocks())
	o.resolve(context.Background(), closedWindow(key))

	published := bus.published()
	if len(published) != 1 {
		t.Fatalf("published %d results, want 1", len(published))
	}
	if published[0].Outcome != "3" {
		t.Errorf("published %q, want the adopted outcome 3", published[0].Outcome)
	}
	if stored, _ := results.Get(context.Background(), key); stored.Outcome != "3" {
		t.Errorf("stored outcome overwritten to %q", stored.Outcome)
	}
}

func TestConcurrentCommitsStoreExactlyOneResult(t *testing.T) {
	results := newMemResults()
	key := testKey()

	// Replicas racing the same period with different candidate outcomes:
	// exactly one commit wins and every loser adopts the winning row.
	const writers = 16
	var wg sync.WaitGroup
	var fresh atomic.Int32
	adopted := make([]domain.Result, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := domain.Result{
				GameType: key.GameType, Duration: key.Duration,
				Timeline: key.Timeline, PeriodID: key.PeriodID,
				Outcome:   strconv.Itoa(i % 10),
				CreatedAt: time.Now().UTC(),
			}
			got, isFresh, err := results.Commit(context.Background(), candidate)
			if err != nil {
				t.Errorf("Commit: %v", err)
				return
			}
			if isFresh {
				fresh.Add(1)
			}
			adopted[i] = got
		}(i)
	}
	wg.Wait()

	if n := fresh.Load(); n != 1 {
		t.Fatalf("fresh commits = %d, want exactly 1", n)
	}
	stored, err := results.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, got := range adopted {
		if got.Outcome != stored.Outcome {
			t.Errorf("writer %d returned outcome %q, want the stored %q", i, got.Outcome, stored.Outcome)
		}
	}
}

func TestResolveYieldsWhenLockHeld(t *testing.T) {
	results := newMemResults()
	bus := &memBus{}
	locks := newMemLocks()
	key := testKey()

	// Another replica holds the resolve lock.
	if _, err := locks.Acquire(context.Background(), "resolve:"+key.String(), time.Minute); err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}

	o := newTestOrchestrator(newMemLedger(), newMemRegistry(), results, bus, locks)
	o.resolve(context.Background(), closedWindow(key))

	if len(bus.published()) != 0 {
		t.Error("yielding resolver still published a result")
	}
	if _, err := results.Get(context.Background(), key); err == nil {
		t.Error("yielding resolver still committed a result")
	}
}

func TestResolveFallsBackWhenStateUnreadable(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	results := newMemResults()
	bus := &memBus{}
	key := testKey()

	// Every selector read fails; the round must still settle with the
	// deterministic fallback outcome.
	ledger.err = context.DeadlineExceeded
	registry.err = context.DeadlineExceeded

	o := newTestOrchestrator(ledger, registry, results, bus, newMemLocks())
	w := closedWindow(key)
	o.resolve(context.Background(), w)

	if w.State() != domain.WindowSettled {
		t.Fatalf("window state = %q, want settled", w.State())
	}
	stored, err := results.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("result not committed: %v", err)
	}
	if want := FallbackOutcome("test-secret", key, game.NewWingo()); stored.Outcome != want {
		t.Errorf("outcome = %q, want fallback %q", stored.Outcome, want)
	}
}

func TestResolvePublishesDespiteCommitFailure(t *testing.T) {
	results := newMemResults()
	results.err = context.DeadlineExceeded
	bus := &memBus{}
	key := testKey()

	o := newTestOrchestrator(newMemLedger(), newMemRegistry(), results, bus, newMemLocks())
	w := closedWindow(key)
	o.resolve(context.Background(), w)

	// Clients still get an outcome; reconciliation happens out of band.
	if len(bus.published()) != 1 {
		t.Fatalf("published %d results, want 1", len(bus.published()))
	}
	if w.State() != domain.WindowSettled {
		t.Errorf("window state = %q, want settled", w.State())
	}
}

func TestTickPublishesSnapshots(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	bus := &memBus{}

	o := newTestOrchestrator(ledger, registry, newMemResults(), bus, newMemLocks())

	// Mid-period tick: snapshot published, nothing resolves.
	now := time.Date(2026, 8, 31, 0, 47, 10, 0, time.UTC)
	o.tick(context.Background(), now)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.snapshots) != 1 {
		t.Fatalf("published %d snapshots, want 1", len(bus.snapshots))
	}
	snap := bus.snapshots[0]
	if snap.PeriodID != "202608310047" || snap.TimeRemaining != 50 || snap.State != domain.WindowOpen {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(bus.results) != 0 {
		t.Error("mid-period tick resolved a result")
	}
}
