package game

import (
	"fmt"
	"strconv"
	"strings"
)

// K3 is the three-dice game: the outcome is an ordered triple of dice 1-6
// encoded "a-b-c", 216 outcomes in total. Sum bets span all three dice
// jointly, so win conditions are evaluated over the full combinatorial
// space, never per die.
type K3 struct{}

// NewK3 returns the k3 game definition.
func NewK3() *K3 { return &K3{} }

func (k *K3) Name() string { return "k3" }

// k3SumOdds pays more for the rarer sums at the edges of the distribution.
var k3SumOdds = map[int]int64{
	3: 20736, 18: 20736,
	4: 6912, 17: 6912,
	5: 3456, 16: 3456,
	6: 2074, 15: 2074,
	7: 1383, 14: 1383,
	8: 1037, 13: 1037,
	9: 864, 12: 864,
	10: 768, 11: 768,
}

func (k *K3) Outcomes() []string {
	out := make([]string, 0, 216)
	for a := 1; a <= 6; a++ {
		for b := 1; b <= 6; b++ {
			for c := 1; c <= 6; c++ {
				out = append(out, fmt.Sprintf("%d-%d-%d", a, b, c))
			}
		}
	}
	return out
}

// parseDice decodes an "a-b-c" outcome. Returns ok=false for malformed or
// out-of-range encodings.
func parseDice(outcome string) (dice [3]int, ok bool) {
	parts := strings.Split(outcome, "-")
	if len(parts) != 3 {
		return dice, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 6 {
			return dice, false
		}
		dice[i] = n
	}
	return dice, true
}

func (k *K3) Categories(outcome string) []string {
	dice, ok := parseDice(outcome)
	if !ok {
		return nil
	}
	sum := dice[0] + dice[1] + dice[2]

	cats := make([]string, 0, 8)
	cats = append(cats, "sum:"+strconv.Itoa(sum))

	if sum >= 11 {
		cats = append(cats, "size:big")
	} else {
		cats = append(cats, "size:small")
	}
	if sum%2 == 0 {
		cats = append(cats, "parity:even")
	} else {
		cats = append(cats, "parity:odd")
	}

	if dice[0] == dice[1] && dice[1] == dice[2] {
		cats = append(cats, "triple:any", "triple:"+strconv.Itoa(dice[0]))
	}

	// pair:N pays when at least two dice show N; a triple of N also pays
	// the pair bet on N.
	counts := map[int]int{}
	for _, d := range dice {
		counts[d]++
	}
	for face, c := range counts {
		if c >= 2 {
			cats = append(cats, "pair:"+strconv.Itoa(face))
		}
	}

	return cats
}

func (k *K3) Odds(category string) (int64, bool) {
	switch category {
	case "size:big", "size:small", "parity:odd", "parity:even":
		return 192, true
	case "triple:any":
		return 3456, true
	}

	if rest, ok := strings.CutPrefix(category, "sum:"); ok {
		n, ok := parseCanonicalInt(rest)
		if !ok {
			return 0, false
		}
		odds, ok := k3SumOdds[n]
		return odds, ok
	}
	if rest, ok := strings.CutPrefix(category, "triple:"); ok {
		n, ok := parseCanonicalInt(rest)
		if !ok || n < 1 || n > 6 {
			return 0, false
		}
		return 20736, true
	}
	if rest, ok := strings.CutPrefix(category, "pair:"); ok {
		n, ok := parseCanonicalInt(rest)
		if !ok || n < 1 || n > 6 {
			return 0, false
		}
		return 1388, true
	}

	return 0, false
}

func (k *K3) Display(outcome string) map[string]string {
	dice, ok := parseDice(outcome)
	if !ok {
		return nil
	}
	sum := dice[0] + dice[1] + dice[2]

	size := "small"
	if sum >= 11 {
		size = "big"
	}
	parity := "even"
	if sum%2 == 1 {
		parity = "odd"
	}

	return map[string]string{
		"dice":   outcome,
		"sum":    strconv.Itoa(sum),
		"size":   size,
		"parity": parity,
	}
}

func (k *K3) Validate() error {
	known := []string{"size:big", "size:small", "parity:odd", "parity:even", "triple:any"}
	for s := 3; s <= 18; s++ {
		known = append(known, "sum:"+strconv.Itoa(s))
	}
	for f := 1; f <= 6; f++ {
		known = append(known, "triple:"+strconv.Itoa(f), "pair:"+strconv.Itoa(f))
	}
	if err := validate(k, known); err != nil {
		return err
	}
	if got := len(k.Outcomes()); got != 216 {
		return fmt.Errorf("k3: want 216 outcomes, got %d", got)
	}
	return nil
}
