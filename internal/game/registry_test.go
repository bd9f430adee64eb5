package game

import (
	"errors"
	"testing"

	"github.com/harborplay/roundengine/internal/domain"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(NewWingo(), []int{30, 60}, []string{"a", "b"}); err != nil {
		t.Fatalf("register wingo: %v", err)
	}
	if err := reg.Register(NewK3(), []int{60}, nil); err != nil {
		t.Fatalf("register k3: %v", err)
	}
	return reg
}

func TestRegistryLookup(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name     string
		game     string
		duration int
		timeline string
		wantErr  error
	}{
		{"enabled pair", "wingo", 60, "a", nil},
		{"second timeline", "wingo", 30, "b", nil},
		{"default timeline", "k3", 60, "a", nil},
		{"unknown game", "roulette", 60, "a", domain.ErrUnknownGame},
		{"disabled duration", "wingo", 300, "a", domain.ErrUnknownDuration},
		{"disabled timeline", "k3", 60, "b", domain.ErrUnknownDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := reg.Lookup(tt.game, tt.duration, tt.timeline)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Lookup error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if g.Name() != tt.game {
				t.Errorf("Lookup returned game %q, want %q", g.Name(), tt.game)
			}
		})
	}
}

func TestRegistryPairs(t *testing.T) {
	reg := newTestRegistry(t)

	pairs := reg.Pairs()
	// wingo: 2 durations x 2 timelines, k3: 1 x 1 (default timeline "a").
	if len(pairs) != 5 {
		t.Fatalf("len(Pairs) = %d, want 5", len(pairs))
	}
	// Deterministic order: game names sorted.
	if pairs[0].Game.Name() != "k3" {
		t.Errorf("first pair game = %q, want k3", pairs[0].Game.Name())
	}

	again := reg.Pairs()
	for i := range pairs {
		if pairs[i] != again[i] {
			t.Fatalf("Pairs() enumeration not deterministic at index %d", i)
		}
	}
}

func TestRegistryRejectsInvalidGame(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&brokenGame{}, []int{60}, nil); err == nil {
		t.Fatal("Register accepted a game failing validation")
	}
}

// brokenGame maps its only outcome to a category with no odds.
type brokenGame struct{}

func (b *brokenGame) Name() string                        { return "broken" }
func (b *brokenGame) Outcomes() []string                  { return []string{"x"} }
func (b *brokenGame) Categories(string) []string          { return []string{"nope"} }
func (b *brokenGame) Odds(string) (int64, bool)           { return 0, false }
func (b *brokenGame) Display(string) map[string]string    { return nil }
func (b *brokenGame) Validate() error {
	return validate(b, []string{"nope"})
}
