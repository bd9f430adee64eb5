package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/harborplay/roundengine/internal/engine"
)

// betRequest is the POST /api/bets payload. Stake is in minor currency
// units; timeline defaults to "a" when omitted.
type betRequest struct {
	GameType string `json:"gameType"`
	Duration int    `json:"duration"`
	Timeline string `json:"timeline"`
	BettorID string `json:"bettorId"`
	Category string `json:"category"`
	Stake    int64  `json:"stake"`
}

// BetHandler accepts wagers on the current open period.
type BetHandler struct {
	ingest *engine.Ingest
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(ingest *engine.Ingest, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		ingest: ingest,
		logger: logger.With(slog.String("handler", "bet")),
	}
}

// Place handles POST /api/bets. A 409 means the window froze before the bet
// arrived; clients should retry on the next period.
func (h *BetHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Timeline == "" {
		req.Timeline = "a"
	}

	bet, err := h.ingest.AcceptBet(r.Context(), req.GameType, req.Duration, req.Timeline, req.BettorID, req.Category, req.Stake)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("bet accepted",
		slog.String("bet_id", bet.ID),
		slog.String("game", bet.GameType),
		slog.String("period", bet.PeriodID),
		slog.String("category", bet.Category),
		slog.Int64("stake", bet.Stake),
	)
	writeJSON(w, http.StatusCreated, bet)
}
