package domain

import "time"

// OddsScale is the fixed-point scale for payout odds: an odds value of 200
// means the category pays 2.00x the stake. Stakes and payouts are int64
// minor currency units; exposures never use floating point.
const OddsScale int64 = 100

// Bet is an accepted wager on a single category within one period. Immutable
// once accepted.
type Bet struct {
	ID              string    `json:"id"`
	GameType        string    `json:"game_type"`
	Duration        int       `json:"duration"`
	Timeline        string    `json:"timeline"`
	PeriodID        string    `json:"period_id"`
	BettorID        string    `json:"bettor_id"`
	Category        string    `json:"category"`
	Stake           int64     `json:"stake"` // minor currency units
	PotentialPayout int64     `json:"potential_payout"`
	CreatedAt       time.Time `json:"created_at"`
}

// Key returns the PeriodKey the bet belongs to.
func (b Bet) Key() PeriodKey {
	return PeriodKey{
		GameType: b.GameType,
		Duration: b.Duration,
		Timeline: b.Timeline,
		PeriodID: b.PeriodID,
	}
}

// Payout computes a fixed-point potential payout for a stake at the given
// odds. Odds use OddsScale (200 = 2.00x).
func Payout(stake, odds int64) int64 {
	return stake * odds / OddsScale
}
