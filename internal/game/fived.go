package game

import (
	"fmt"
	"strconv"
	"strings"
)

// fivedPositions names the five dice, left to right.
var fivedPositions = [5]string{"a", "b", "c", "d", "e"}

// FiveD is the five-dice game: each die draws a digit 0-9, giving an outcome
// space of 100,000 five-digit strings. Position bets target a single die;
// sum bets span all five digits jointly, so protection-mode selection runs
// over the full combinatorial space.
type FiveD struct{}

// NewFiveD returns the 5d game definition.
func NewFiveD() *FiveD { return &FiveD{} }

func (f *FiveD) Name() string { return "5d" }

func (f *FiveD) Outcomes() []string {
	out := make([]string, 0, 100000)
	for n := 0; n < 100000; n++ {
		out = append(out, fmt.Sprintf("%05d", n))
	}
	return out
}

// parseDigits decodes a five-digit outcome string.
func parseDigits(outcome string) (digits [5]int, ok bool) {
	if len(outcome) != 5 {
		return digits, false
	}
	for i := 0; i < 5; i++ {
		c := outcome[i]
		if c < '0' || c > '9' {
			return digits, false
		}
		digits[i] = int(c - '0')
	}
	return digits, true
}

func (f *FiveD) Categories(outcome string) []string {
	digits, ok := parseDigits(outcome)
	if !ok {
		return nil
	}

	cats := make([]string, 0, 18)
	sum := 0
	for i, d := range digits {
		sum += d
		pos := fivedPositions[i]
		cats = append(cats, fmt.Sprintf("pos:%s:num:%d", pos, d))
		if d >= 5 {
			cats = append(cats, "pos:"+pos+":size:big")
		} else {
			cats = append(cats, "pos:"+pos+":size:small")
		}
		if d%2 == 0 {
			cats = append(cats, "pos:"+pos+":parity:even")
		} else {
			cats = append(cats, "pos:"+pos+":parity:odd")
		}
	}

	if sum >= 23 {
		cats = append(cats, "sum:size:big")
	} else {
		cats = append(cats, "sum:size:small")
	}
	if sum%2 == 0 {
		cats = append(cats, "sum:parity:even")
	} else {
		cats = append(cats, "sum:parity:odd")
	}

	return cats
}

// Odds resolves odds structurally instead of from a materialized table:
// position number bets pay 9.00x, everything else pays 2.00x.
func (f *FiveD) Odds(category string) (int64, bool) {
	switch category {
	case "sum:size:big", "sum:size:small", "sum:parity:odd", "sum:parity:even":
		return 200, true
	}

	parts := strings.Split(category, ":")
	if len(parts) != 4 || parts[0] != "pos" || !validPosition(parts[1]) {
		return 0, false
	}

	switch parts[2] {
	case "num":
		d, ok := parseCanonicalInt(parts[3])
		if !ok || d < 0 || d > 9 {
			return 0, false
		}
		return 900, true
	case "size":
		if parts[3] != "big" && parts[3] != "small" {
			return 0, false
		}
		return 200, true
	case "parity":
		if parts[3] != "odd" && parts[3] != "even" {
			return 0, false
		}
		return 200, true
	}

	return 0, false
}

func validPosition(p string) bool {
	for _, v := range fivedPositions {
		if p == v {
			return true
		}
	}
	return false
}

func (f *FiveD) Display(outcome string) map[string]string {
	digits, ok := parseDigits(outcome)
	if !ok {
		return nil
	}
	sum := 0
	disp := map[string]string{"draw": outcome}
	for i, d := range digits {
		sum += d
		disp[fivedPositions[i]] = strconv.Itoa(d)
	}
	disp["sum"] = strconv.Itoa(sum)
	return disp
}

func (f *FiveD) Validate() error {
	known := []string{"sum:size:big", "sum:size:small", "sum:parity:odd", "sum:parity:even"}
	for _, pos := range fivedPositions {
		for d := 0; d <= 9; d++ {
			known = append(known, fmt.Sprintf("pos:%s:num:%d", pos, d))
		}
		known = append(known,
			"pos:"+pos+":size:big", "pos:"+pos+":size:small",
			"pos:"+pos+":parity:odd", "pos:"+pos+":parity:even",
		)
	}
	if err := validate(f, known); err != nil {
		return err
	}
	if got := len(f.Outcomes()); got != 100000 {
		return fmt.Errorf("fived: want 100000 outcomes, got %d", got)
	}
	return nil
}
