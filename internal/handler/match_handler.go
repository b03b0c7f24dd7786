package handler

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/conquest/api/internal/auth"
	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/service"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// MatchHandler handles match queries and action submission.
type MatchHandler struct {
	matches *service.MatchService
	actions *service.ActionService
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matches *service.MatchService, actions *service.ActionService) *MatchHandler {
	return &MatchHandler{matches: matches, actions: actions}
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	view, err := h.matches.GetMatchState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetCards handles GET /api/v1/matches/{id}/cards and returns only the
// caller's hand.
func (h *MatchHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	cards, err := h.matches.GetPlayerCards(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// ListActions handles GET /api/v1/matches/{id}/actions
func (h *MatchHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.matches.ListActions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if actions == nil {
		actions = []model.Action{}
	}
	writeJSON(w, http.StatusOK, actions)
}

type actionRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type actionResponse struct {
	Outcome *risk.Outcome `json:"outcome"`
}

// SubmitAction handles POST /api/v1/matches/{id}/actions
//
// Body: {"type": "attack", "payload": {"from": "...", "to": "...", "dice": 3}}
func (h *MatchHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	out, err := h.actions.ExecuteRaw(r.Context(), r.PathValue("id"), playerID, req.Type, req.Payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Outcome: out})
}
