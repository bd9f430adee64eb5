// Package game defines the built-in game types: their outcome spaces,
// bettable categories, win-condition mapping, and odds tables. Game configs
// are immutable after startup; Validate runs once at boot and misconfigured
// games are fatal there, never at round time.
package game

import (
	"fmt"
	"strconv"
)

// Game describes one game type. An outcome is one concrete result value in
// the game's finite outcome space (a digit, a dice triple, a five-digit
// draw), encoded as a string. A category is a bettable proposition that some
// set of outcomes satisfies.
type Game interface {
	// Name returns the game type identifier, e.g. "wingo".
	Name() string

	// Outcomes enumerates the full outcome space.
	Outcomes() []string

	// Categories returns every bettable category the given outcome
	// satisfies. This is the win-condition function: a bet on category c
	// pays out when c is in Categories(result).
	Categories(outcome string) []string

	// Odds returns the fixed-point payout odds for a category
	// (domain.OddsScale basis, 200 = 2.00x) and whether the category is
	// bettable at all.
	Odds(category string) (int64, bool)

	// Display derives presentation fields for a settled outcome.
	Display(outcome string) map[string]string

	// Validate checks the game definition for internal consistency.
	Validate() error
}

// parseCanonicalInt parses a decimal integer, rejecting every spelling that
// Categories never emits (leading zeros, signs, whitespace). Structural odds
// parsers use it so a bettable category string is always the exact form a
// winning outcome maps back to; otherwise a bet like "sum:010" would take a
// stake into a bucket no result can ever pay.
func parseCanonicalInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}

// validate runs the structural checks shared by all game definitions: a
// non-empty outcome space, every outcome satisfying at least one category,
// every known category reachable by at least one outcome, and positive odds
// for every category.
func validate(g Game, knownCategories []string) error {
	outcomes := g.Outcomes()
	if len(outcomes) == 0 {
		return fmt.Errorf("game %s: empty outcome space", g.Name())
	}

	reachable := make(map[string]bool, len(knownCategories))
	for _, o := range outcomes {
		cats := g.Categories(o)
		if len(cats) == 0 {
			return fmt.Errorf("game %s: outcome %q satisfies no category", g.Name(), o)
		}
		for _, c := range cats {
			if _, ok := g.Odds(c); !ok {
				return fmt.Errorf("game %s: outcome %q maps to category %q with no odds", g.Name(), o, c)
			}
			reachable[c] = true
		}
	}

	for _, c := range knownCategories {
		odds, ok := g.Odds(c)
		if !ok {
			return fmt.Errorf("game %s: category %q missing from odds table", g.Name(), c)
		}
		if odds <= 0 {
			return fmt.Errorf("game %s: category %q has non-positive odds %d", g.Name(), c, odds)
		}
		if !reachable[c] {
			return fmt.Errorf("game %s: category %q matched by no outcome", g.Name(), c)
		}
	}

	return nil
}
