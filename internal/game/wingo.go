package game

import (
	"fmt"
	"strconv"
)

// Wingo is the color/number game: a single winning digit 0-9. Red covers the
// even digits, green the odd digits, and violet additionally covers 0 and 5.
// Big is 5-9, small is 0-4.
type Wingo struct{}

// NewWingo returns the wingo game definition.
func NewWingo() *Wingo { return &Wingo{} }

func (w *Wingo) Name() string { return "wingo" }

var wingoOdds = map[string]int64{
	"num:0": 900, "num:1": 900, "num:2": 900, "num:3": 900, "num:4": 900,
	"num:5": 900, "num:6": 900, "num:7": 900, "num:8": 900, "num:9": 900,
	"color:red":    200,
	"color:green":  200,
	"color:violet": 450,
	"size:big":     200,
	"size:small":   200,
	"parity:odd":   200,
	"parity:even":  200,
}

func (w *Wingo) Outcomes() []string {
	out := make([]string, 10)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func (w *Wingo) Categories(outcome string) []string {
	n, err := strconv.Atoi(outcome)
	if err != nil || n < 0 || n > 9 {
		return nil
	}

	cats := make([]string, 0, 5)
	cats = append(cats, "num:"+outcome)

	if n%2 == 0 {
		cats = append(cats, "color:red", "parity:even")
	} else {
		cats = append(cats, "color:green", "parity:odd")
	}
	if n == 0 || n == 5 {
		cats = append(cats, "color:violet")
	}
	if n >= 5 {
		cats = append(cats, "size:big")
	} else {
		cats = append(cats, "size:small")
	}
	return cats
}

func (w *Wingo) Odds(category string) (int64, bool) {
	odds, ok := wingoOdds[category]
	return odds, ok
}

func (w *Wingo) Display(outcome string) map[string]string {
	n, err := strconv.Atoi(outcome)
	if err != nil || n < 0 || n > 9 {
		return nil
	}

	color := "red"
	parity := "even"
	if n%2 == 1 {
		color = "green"
		parity = "odd"
	}
	if n == 0 || n == 5 {
		color += ",violet"
	}
	size := "small"
	if n >= 5 {
		size = "big"
	}

	return map[string]string{
		"number": outcome,
		"color":  color,
		"size":   size,
		"parity": parity,
	}
}

func (w *Wingo) Validate() error {
	known := make([]string, 0, len(wingoOdds))
	for c := range wingoOdds {
		known = append(known, c)
	}
	if err := validate(w, known); err != nil {
		return err
	}
	if len(w.Outcomes()) != 10 {
		return fmt.Errorf("wingo: want 10 outcomes, got %d", len(w.Outcomes()))
	}
	return nil
}
