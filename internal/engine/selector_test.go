package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/harborplay/roundengine/internal/domain"
	"github.com/harborplay/roundengine/internal/game"
)

func TestSelectNormalModeAboveThreshold(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	key := testKey()
	registry.addN(key, 100)

	// Heavy exposure on a single number must not matter in normal mode, but
	// we verify mode, not distribution, here.
	ledger.set(key, map[string]int64{"num:7": 1_000_000})

	s := NewSelector(ledger, registry, 100, testLogger())
	outcome, branch, err := s.Select(context.Background(), key, game.NewWingo())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if branch != domain.BranchNormal {
		t.Errorf("branch = %q, want %q", branch, domain.BranchNormal)
	}
	if len(outcome) != 1 || outcome[0] < '0' || outcome[0] > '9' {
		t.Errorf("outcome %q outside the wingo space", outcome)
	}
}

func TestSelectNormalModeUniformity(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	key := testKey()
	registry.addN(key, 100)

	// Lopsided exposure must not bias normal-mode draws toward or away from
	// the heavy bucket.
	ledger.set(key, map[string]int64{"num:7": 1_000_000})

	s := NewSelector(ledger, registry, 100, testLogger())

	const draws = 10_000
	counts := make(map[string]int, 10)
	for i := 0; i < draws; i++ {
		outcome, branch, err := s.Select(context.Background(), key, game.NewWingo())
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if branch != domain.BranchNormal {
			t.Fatalf("branch = %q, want %q", branch, domain.BranchNormal)
		}
		counts[outcome]++
	}

	// Each digit expects 1000 hits with sigma = sqrt(n*p*(1-p)) ≈ 30. A
	// ±5-sigma band keeps spurious failures negligible while catching any
	// systematic skew.
	const want, slack = draws / 10, 150
	for d := '0'; d <= '9'; d++ {
		got := counts[string(d)]
		if got < want-slack || got > want+slack {
			t.Errorf("outcome %q drawn %d times, want %d±%d", d, got, want, slack)
		}
	}
}

func TestSelectNoBetsIsNormal(t *testing.T) {
	s := NewSelector(newMemLedger(), newMemRegistry(), 100, testLogger())
	_, branch, err := s.Select(context.Background(), testKey(), game.NewWingo())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if branch != domain.BranchNormal {
		t.Errorf("branch = %q, want %q for an empty period", branch, domain.BranchNormal)
	}
}

func TestSelectPrefersZeroExposure(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	key := testKey()
	registry.addN(key, 3)

	// Bets on numbers 0-8 leave 9 as the only zero-exposure outcome: a bet
	// on num:N pays only when N wins, and no cross-cutting category bet is
	// placed.
	buckets := map[string]int64{}
	for n := '0'; n <= '8'; n++ {
		buckets["num:"+string(n)] = 100
	}
	ledger.set(key, buckets)

	s := NewSelector(ledger, registry, 100, testLogger())
	for i := 0; i < 20; i++ {
		outcome, branch, err := s.Select(context.Background(), key, game.NewWingo())
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if branch != domain.BranchZeroExposure {
			t.Fatalf("branch = %q, want %q", branch, domain.BranchZeroExposure)
		}
		if outcome != "9" {
			t.Fatalf("outcome = %q, want the only zero-exposure outcome 9", outcome)
		}
	}
}

func TestSelectZeroExposureHonoursCategoryBets(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	key := testKey()
	registry.addN(key, 1)

	// A single size:big bet covers 5-9; every small outcome is safe.
	ledger.set(key, map[string]int64{"size:big": 200})

	s := NewSelector(ledger, registry, 100, testLogger())
	for i := 0; i < 20; i++ {
		outcome, branch, err := s.Select(context.Background(), key, game.NewWingo())
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if branch != domain.BranchZeroExposure {
			t.Fatalf("branch = %q, want %q", branch, domain.BranchZeroExposure)
		}
		if outcome[0] >= '5' {
			t.Fatalf("outcome %q pays the size:big bet", outcome)
		}
	}
}

func TestSelectMinExposureWhenAllCovered(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	key := testKey()
	registry.addN(key, 2)

	// Every outcome pays something: parity bets cover all ten digits. The
	// odd side carries less exposure, so only odd digits are eligible.
	ledger.set(key, map[string]int64{
		"parity:even": 500,
		"parity:odd":  100,
	})

	s := NewSelector(ledger, registry, 100, testLogger())
	for i := 0; i < 20; i++ {
		outcome, branch, err := s.Select(context.Background(), key, game.NewWingo())
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if branch != domain.BranchMinExposure {
			t.Fatalf("branch = %q, want %q", branch, domain.BranchMinExposure)
		}
		if (outcome[0]-'0')%2 == 0 {
			t.Fatalf("outcome %q is not in the minimum-exposure set", outcome)
		}
	}
}

func TestSelectCombinatorialExpansion(t *testing.T) {
	ledger := newMemLedger()
	registry := newMemRegistry()
	key := domain.PeriodKey{GameType: "k3", Duration: 60, Timeline: "a", PeriodID: "202608310001"}
	registry.addN(key, 1)

	// One bet on sum:10. Exposure must attach to all 27 triples summing to
	// 10 and nothing else.
	ledger.set(key, map[string]int64{"sum:10": 768})

	s := NewSelector(ledger, registry, 100, testLogger())
	for i := 0; i < 20; i++ {
		outcome, branch, err := s.Select(context.Background(), key, game.NewK3())
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if branch != domain.BranchZeroExposure {
			t.Fatalf("branch = %q, want %q", branch, domain.BranchZeroExposure)
		}
		sum := int(outcome[0]-'0') + int(outcome[2]-'0') + int(outcome[4]-'0')
		if sum == 10 {
			t.Fatalf("outcome %q pays the sum:10 bet", outcome)
		}
	}
}

func TestSelectErrorsPropagate(t *testing.T) {
	boom := errors.New("redis down")

	registry := newMemRegistry()
	registry.err = boom
	s := NewSelector(newMemLedger(), registry, 100, testLogger())
	if _, _, err := s.Select(context.Background(), testKey(), game.NewWingo()); !errors.Is(err, boom) {
		t.Errorf("registry error not propagated: %v", err)
	}

	ledger := newMemLedger()
	ledger.err = boom
	s = NewSelector(ledger, newMemRegistry(), 100, testLogger())
	if _, _, err := s.Select(context.Background(), testKey(), game.NewWingo()); !errors.Is(err, boom) {
		t.Errorf("ledger error not propagated: %v", err)
	}
}

func TestFallbackOutcome(t *testing.T) {
	key := testKey()
	g := game.NewWingo()

	a := FallbackOutcome("secret", key, g)
	b := FallbackOutcome("secret", key, g)
	if a != b {
		t.Error("fallback outcome not deterministic")
	}
	if len(a) != 1 || a[0] < '0' || a[0] > '9' {
		t.Errorf("fallback outcome %q outside the wingo space", a)
	}

	// The derivation is keyed: sweeping periods must not produce a constant.
	seen := map[string]bool{}
	for seq := 0; seq < 64; seq++ {
		k := key
		k.PeriodID = fmt.Sprintf("20260831%04d", seq)
		seen[FallbackOutcome("secret", k, g)] = true
	}
	if len(seen) < 2 {
		t.Error("fallback outcome constant across periods")
	}
}
