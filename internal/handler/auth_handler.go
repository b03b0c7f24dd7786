package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/auth"
)

var devPlayerID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// AuthHandler issues and refreshes player tokens. Identity proper is
// delegated to whatever fronts this service; the dev login exists for
// local play and tests.
type AuthHandler struct {
	jwtMgr  *auth.JWTManager
	devAuth bool
}

// NewAuthHandler creates an AuthHandler. devAuth enables DevLogin.
func NewAuthHandler(jwtMgr *auth.JWTManager, devAuth bool) *AuthHandler {
	return &AuthHandler{jwtMgr: jwtMgr, devAuth: devAuth}
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.jwtMgr.Refresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// DevLogin returns a token pair for any well-formed player id.
// Only available when DEV_AUTH is enabled.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devAuth {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	playerID := r.URL.Query().Get("player")
	if !devPlayerID.MatchString(playerID) {
		writeError(w, http.StatusBadRequest, "player must be 1-64 letters, digits, '-' or '_'")
		return
	}
	if strings.HasPrefix(playerID, "bot-") {
		writeError(w, http.StatusBadRequest, "bot ids are reserved")
		return
	}

	tokens, err := h.jwtMgr.GenerateTokenPair(playerID)
	if err != nil {
		log.Error().Err(err).Str("playerId", playerID).Msg("Failed to issue dev tokens")
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
