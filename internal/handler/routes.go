package handler

import (
	"net/http"

	"github.com/freeeve/conquest/api/internal/auth"
)

// Routes bundles the handlers mounted by Register.
type Routes struct {
	JWT     *auth.JWTManager
	Auth    *AuthHandler
	Rooms   *RoomHandler
	Matches *MatchHandler
	WS      *WSHandler // optional
}

// Register mounts the public and authenticated endpoints on mux.
func (rt Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth (public)
	mux.HandleFunc("POST /auth/refresh", rt.Auth.RefreshToken)
	mux.HandleFunc("GET /auth/dev", rt.Auth.DevLogin)

	api := http.NewServeMux()
	api.HandleFunc("POST /rooms", rt.Rooms.CreateRoom)
	api.HandleFunc("GET /rooms/{id}", rt.Rooms.GetRoom)
	api.HandleFunc("POST /rooms/{id}/join", rt.Rooms.JoinRoom)
	api.HandleFunc("POST /rooms/{id}/bots", rt.Rooms.AddBot)
	api.HandleFunc("POST /rooms/{id}/start", rt.Rooms.StartMatch)
	api.HandleFunc("GET /matches/{id}", rt.Matches.GetMatch)
	api.HandleFunc("GET /matches/{id}/cards", rt.Matches.GetCards)
	api.HandleFunc("GET /matches/{id}/actions", rt.Matches.ListActions)
	api.HandleFunc("POST /matches/{id}/actions", rt.Matches.SubmitAction)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", auth.Middleware(rt.JWT)(api)))

	// WebSocket (auth via query param, not middleware)
	if rt.WS != nil {
		mux.HandleFunc("GET /api/v1/ws", rt.WS.ServeWS)
	}
}
