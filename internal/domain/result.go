package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SelectionBranch records which path of the outcome selector produced a
// result. It is persisted for observability and audit but never included in
// payloads published before settlement.
type SelectionBranch string

const (
	// BranchNormal is uniform random selection over the full outcome space.
	BranchNormal SelectionBranch = "normal"
	// BranchZeroExposure picked an outcome that pays no placed bet.
	BranchZeroExposure SelectionBranch = "protect_zero"
	// BranchMinExposure picked among the minimum-exposure outcomes because
	// every outcome was covered by at least one bet.
	BranchMinExposure SelectionBranch = "protect_min"
	// BranchFallback is the deterministic pseudo-random outcome used when
	// resolution state could not be read in time.
	BranchFallback SelectionBranch = "fallback"
)

// Result is the settled outcome of one period. Exactly one Result row exists
// per (gameType, duration, timeline, periodId); a second commit attempt
// adopts the stored row instead of overwriting it.
type Result struct {
	GameType         string            `json:"game_type"`
	Duration         int               `json:"duration"`
	Timeline         string            `json:"timeline"`
	PeriodID         string            `json:"period_id"`
	Outcome          string            `json:"outcome"`
	Display          map[string]string `json:"display,omitempty"`
	VerificationHash string            `json:"verification_hash"`
	Branch           SelectionBranch   `json:"-"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Key returns the PeriodKey the result belongs to.
func (r Result) Key() PeriodKey {
	return PeriodKey{
		GameType: r.GameType,
		Duration: r.Duration,
		Timeline: r.Timeline,
		PeriodID: r.PeriodID,
	}
}

// VerificationHash computes the externally auditable proof hash for a
// result: HMAC-SHA256 over "periodKey|outcome" keyed by the server secret.
// Anyone holding the secret (or given it after rotation) can verify that a
// published result was not altered after the fact.
func VerificationHash(secret string, key PeriodKey, outcome string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(key.String() + "|" + outcome))
	return hex.EncodeToString(mac.Sum(nil))
}
