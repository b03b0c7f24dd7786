package handler

import (
	"net/http"

	"github.com/freeeve/conquest/api/internal/auth"
	"github.com/freeeve/conquest/api/internal/service"
)

// RoomHandler handles the lobby endpoints: create, join, seat bots, start.
type RoomHandler struct {
	matches *service.MatchService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(matches *service.MatchService) *RoomHandler {
	return &RoomHandler{matches: matches}
}

// CreateRoom handles POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req struct {
		MaxPlayers int    `json:"max_players,omitempty"`
		Mode       string `json:"mode,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.matches.CreateRoom(r.Context(), playerID, req.MaxPlayers, req.Mode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// GetRoom handles GET /api/v1/rooms/{id}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.matches.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// JoinRoom handles POST /api/v1/rooms/{id}/join
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	room, err := h.matches.JoinRoom(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// AddBot handles POST /api/v1/rooms/{id}/bots
func (h *RoomHandler) AddBot(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req struct {
		Difficulty string `json:"difficulty,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.matches.AddBot(r.Context(), r.PathValue("id"), playerID, req.Difficulty)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// StartMatch handles POST /api/v1/rooms/{id}/start
func (h *RoomHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	view, err := h.matches.StartMatch(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}
