package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/harborplay/roundengine/internal/domain"
)

const maxResultLimit = 100

// ResultHandler serves settled results from the result store.
type ResultHandler struct {
	results domain.ResultStore
	logger  *slog.Logger
}

// NewResultHandler creates a ResultHandler.
func NewResultHandler(results domain.ResultStore, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		logger:  logger.With(slog.String("handler", "result")),
	}
}

// Recent handles GET /api/results/{game}/{duration} and
// GET /api/results/{game}/{duration}/{timeline}. The optional ?limit=
// query caps the page size at 100.
func (h *ResultHandler) Recent(w http.ResponseWriter, r *http.Request) {
	gameType, duration, timeline, err := pairParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxResultLimit {
			limit = maxResultLimit
		}
	}

	results, err := h.results.ListRecent(r.Context(), gameType, duration, timeline, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// Get handles GET /api/results/{game}/{duration}/{timeline}/{period}:
// one settled result by period id.
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameType, duration, timeline, err := pairParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	periodID := r.PathValue("period")
	if periodID == "" {
		writeError(w, http.StatusBadRequest, "period id is required")
		return
	}

	key := domain.PeriodKey{
		GameType: gameType,
		Duration: duration,
		Timeline: timeline,
		PeriodID: periodID,
	}
	res, err := h.results.Get(r.Context(), key)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
