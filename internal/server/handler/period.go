package handler

import (
	"log/slog"
	"net/http"

	"github.com/harborplay/roundengine/internal/engine"
	"github.com/harborplay/roundengine/internal/game"
)

// PeriodHandler serves current-period snapshots. The snapshot is computed
// from the wall clock on every request, so any replica answers identically
// without consulting shared state.
type PeriodHandler struct {
	ingest *engine.Ingest
	games  *game.Registry
	logger *slog.Logger
}

// NewPeriodHandler creates a PeriodHandler.
func NewPeriodHandler(ingest *engine.Ingest, games *game.Registry, logger *slog.Logger) *PeriodHandler {
	return &PeriodHandler{
		ingest: ingest,
		games:  games,
		logger: logger.With(slog.String("handler", "period")),
	}
}

// Current handles GET /api/periods/{game}/{duration} and
// GET /api/periods/{game}/{duration}/{timeline}.
func (h *PeriodHandler) Current(w http.ResponseWriter, r *http.Request) {
	gameType, duration, timeline, err := pairParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.ingest.PeriodInfo(gameType, duration, timeline)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// pairInfo is the serialized form of one enabled game combination.
type pairInfo struct {
	Game     string `json:"game"`
	Duration int    `json:"duration"`
	Timeline string `json:"timeline"`
}

// Games handles GET /api/games: the configured game/duration/timeline pairs.
func (h *PeriodHandler) Games(w http.ResponseWriter, r *http.Request) {
	pairs := h.games.Pairs()
	out := make([]pairInfo, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairInfo{
			Game:     p.Game.Name(),
			Duration: p.Duration,
			Timeline: p.Timeline,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": out})
}
