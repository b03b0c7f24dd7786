package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/service"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps service and engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrUnknownAction):
		// checked before the IllegalMove kind it shares
		return http.StatusBadRequest
	case errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, risk.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotHost),
		errors.Is(err, service.ErrNotInMatch),
		errors.Is(err, risk.ErrIllegalTurn):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRoomNotWaiting),
		errors.Is(err, service.ErrRoomFull),
		errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, risk.ErrIllegalPhase):
		return http.StatusConflict
	case errors.Is(err, risk.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotEnoughPlayers),
		errors.Is(err, service.ErrInvalidRoomSize),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidDifficulty):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Engine rejections
// also carry their kind so clients can branch without parsing the message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	var rerr *risk.Error
	if errors.As(err, &rerr) {
		writeJSON(w, status, map[string]string{"error": rerr.Message, "kind": rerr.Kind.String()})
		return
	}
	writeError(w, status, err.Error())
}
