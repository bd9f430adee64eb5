package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/harborplay/roundengine/internal/domain"
)

// errorResponse is the JSON body for every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.String("error", err.Error()))
	}
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes. Any
// unrecognised error becomes a 500 with a generic message so internals never
// leak to clients.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownGame),
		errors.Is(err, domain.ErrUnknownDuration):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidStake):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrBettingClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pairParams extracts the {game}/{duration}/{timeline} path segments common
// to the period and result routes. The timeline segment is optional and
// defaults to "a".
func pairParams(r *http.Request) (gameType string, duration int, timeline string, err error) {
	gameType = r.PathValue("game")
	timeline = r.PathValue("timeline")
	if timeline == "" {
		timeline = "a"
	}
	duration, err = strconv.Atoi(r.PathValue("duration"))
	if err != nil || duration <= 0 {
		return "", 0, "", errors.New("duration must be a positive integer of seconds")
	}
	return gameType, duration, timeline, nil
}
