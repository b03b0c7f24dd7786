package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/conquest/api/internal/auth"
	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository/memory"
	"github.com/freeeve/conquest/api/internal/service"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// --- Test server ---

type testServer struct {
	handler http.Handler
	jwt     *auth.JWTManager
	hub     *Hub
}

func newTestServer(t *testing.T, devAuth bool) *testServer {
	t.Helper()
	store := memory.NewStore()
	cache := memory.NewCache()
	hub := NewHub()
	jwtMgr := auth.NewJWTManager("test-secret")

	engine := risk.NewEngine(risk.StandardMap(), risk.NewSeededRand(1))
	matches := service.NewMatchService(store, store, cache, hub, risk.NewSeededRand(2))
	actions := service.NewActionService(store, cache, memory.NewLocker(), engine, hub, time.Second)

	mux := http.NewServeMux()
	Routes{
		JWT:     jwtMgr,
		Auth:    NewAuthHandler(jwtMgr, devAuth),
		Rooms:   NewRoomHandler(matches),
		Matches: NewMatchHandler(matches, actions),
	}.Register(mux)
	return &testServer{handler: mux, jwt: jwtMgr, hub: hub}
}

// do sends a request as player (no Authorization header when player is empty).
func (s *testServer) do(t *testing.T, method, path, player, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if player != "" {
		token, err := s.jwt.GenerateAccessToken(player)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// startMatch creates a room hosted by players[0], seats the rest and starts it.
func (s *testServer) startMatch(t *testing.T, players ...string) service.MatchView {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/rooms", players[0], `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room: %d %s", rec.Code, rec.Body.String())
	}
	room := decodeBody[model.Room](t, rec)
	for _, p := range players[1:] {
		if rec := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/join", p, ""); rec.Code != http.StatusOK {
			t.Fatalf("join %s: %d %s", p, rec.Code, rec.Body.String())
		}
	}
	rec = s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/start", players[0], "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	return decodeBody[service.MatchView](t, rec)
}

func firstOwned(v service.MatchView, player string) string {
	for _, terr := range v.Territories {
		if terr.Owner == player {
			return terr.ID
		}
	}
	return ""
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodPost, "/api/v1/rooms", "", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRoomLifecycle(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/rooms", "alice", `{"max_players":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	room := decodeBody[model.Room](t, rec)
	if room.HostID != "alice" || room.MaxPlayers != 3 || len(room.Players) != 1 {
		t.Fatalf("unexpected room: %+v", room)
	}
	base := "/api/v1/rooms/" + room.ID

	if rec := s.do(t, http.MethodPost, base+"/join", "bob", ""); rec.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/join", "bob", ""); rec.Code != http.StatusConflict {
		t.Errorf("rejoin: expected 409, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/bots", "alice", `{"difficulty":"hard"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add bot: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	room = decodeBody[model.Room](t, rec)
	if len(room.Players) != 3 || !room.Players[2].IsBot || room.Players[2].BotDifficulty != "hard" {
		t.Errorf("unexpected roster: %+v", room.Players)
	}

	if rec := s.do(t, http.MethodPost, base+"/join", "carol", ""); rec.Code != http.StatusConflict {
		t.Errorf("full room: expected 409, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/start", "bob", ""); rec.Code != http.StatusForbidden {
		t.Errorf("non-host start: expected 403, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/start", "alice", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	view := decodeBody[service.MatchView](t, rec)
	if view.Phase != risk.PhaseReinforce || view.CurrentPlayer != "alice" || len(view.Territories) != 42 {
		t.Errorf("unexpected initial view: phase=%s current=%s territories=%d", view.Phase, view.CurrentPlayer, len(view.Territories))
	}

	if rec := s.do(t, http.MethodPost, base+"/start", "alice", ""); rec.Code != http.StatusConflict {
		t.Errorf("restart: expected 409, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, base, "carol", "")
	if got := decodeBody[model.Room](t, rec); got.Status != model.RoomPlaying || got.MatchID != view.MatchID {
		t.Errorf("expected playing room linked to %s, got %+v", view.MatchID, got)
	}
}

func TestRoomValidation(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad size", http.MethodPost, "/api/v1/rooms", `{"max_players":7}`, http.StatusBadRequest},
		{"bad mode", http.MethodPost, "/api/v1/rooms", `{"mode":"capture"}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/v1/rooms", `not json`, http.StatusBadRequest},
		{"unknown room", http.MethodGet, "/api/v1/rooms/nope", "", http.StatusNotFound},
		{"join unknown room", http.MethodPost, "/api/v1/rooms/nope/join", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "alice", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStartWithOnePlayer(t *testing.T) {
	s := newTestServer(t, false)
	room := decodeBody[model.Room](t, s.do(t, http.MethodPost, "/api/v1/rooms", "alice", `{}`))
	rec := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/start", "alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAddBotInvalidDifficulty(t *testing.T) {
	s := newTestServer(t, false)
	room := decodeBody[model.Room](t, s.do(t, http.MethodPost, "/api/v1/rooms", "alice", `{}`))
	rec := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/bots", "alice", `{"difficulty":"nightmare"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitAction(t *testing.T) {
	s := newTestServer(t, false)
	view := s.startMatch(t, "alice", "bob")
	path := "/api/v1/matches/" + view.MatchID + "/actions"
	mine := firstOwned(view, "alice")
	theirs := firstOwned(view, "bob")

	rec := s.do(t, http.MethodPost, path, "alice", fmt.Sprintf(`{"type":"reinforce","payload":{"territoryId":%q,"amount":1}}`, mine))
	if rec.Code != http.StatusOK {
		t.Fatalf("reinforce: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome struct {
			Type string `json:"type"`
		} `json:"outcome"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Outcome.Type != "reinforce" {
		t.Errorf("unexpected response %s (%v)", rec.Body.String(), err)
	}

	tests := []struct {
		name   string
		player string
		body   string
		want   int
		kind   string
	}{
		{"not your turn", "bob", `{"type":"endTurn"}`, http.StatusForbidden, "illegal_turn"},
		{"not in match", "mallory", `{"type":"endTurn"}`, http.StatusNotFound, "not_found"},
		{"wrong phase", "alice", fmt.Sprintf(`{"type":"attack","payload":{"from":%q,"to":%q,"dice":1}}`, mine, theirs), http.StatusConflict, "illegal_phase"},
		{"not your territory", "alice", fmt.Sprintf(`{"type":"reinforce","payload":{"territoryId":%q,"amount":1}}`, theirs), http.StatusUnprocessableEntity, "illegal_move"},
		{"malformed payload", "alice", `{"type":"reinforce","payload":{"amount":"x"}}`, http.StatusUnprocessableEntity, "illegal_move"},
		{"unknown action", "alice", `{"type":"surrender"}`, http.StatusBadRequest, "illegal_move"},
		{"missing type", "alice", `{}`, http.StatusBadRequest, ""},
		{"bad body", "alice", `{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, path, tt.player, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.kind != "" {
				if got := decodeBody[map[string]string](t, rec)["kind"]; got != tt.kind {
					t.Errorf("expected kind %s, got %s", tt.kind, got)
				}
			}
		})
	}

	rec = s.do(t, http.MethodGet, "/api/v1/matches/"+view.MatchID, "bob", "")
	after := decodeBody[service.MatchView](t, rec)
	if after.ReinforcementsLeft != view.ReinforcementsLeft-1 {
		t.Errorf("expected %d reinforcements left, got %d", view.ReinforcementsLeft-1, after.ReinforcementsLeft)
	}
}

func TestSubmitActionUnknownMatch(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodPost, "/api/v1/matches/nope/actions", "alice", `{"type":"endTurn"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetCardsAndActions(t *testing.T) {
	s := newTestServer(t, false)
	view := s.startMatch(t, "alice", "bob")
	base := "/api/v1/matches/" + view.MatchID

	rec := s.do(t, http.MethodGet, base+"/cards", "bob", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty hand, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, base+"/cards", "mallory", ""); rec.Code != http.StatusForbidden {
		t.Errorf("outsider cards: expected 403, got %d", rec.Code)
	}

	s.do(t, http.MethodPost, base+"/actions", "alice", `{"type":"endTurn"}`)
	rec = s.do(t, http.MethodGet, base+"/actions", "mallory", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	actions := decodeBody[[]model.Action](t, rec)
	if len(actions) != 2 || actions[0].Type != "start" || actions[1].Type != "endTurn" || actions[1].PlayerID != "alice" {
		t.Errorf("unexpected action log: %+v", actions)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/matches/nope", "alice", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown match: expected 404, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/matches/nope/actions", "alice", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown match actions: expected 404, got %d", rec.Code)
	}
}

func TestActionsReachSubscribers(t *testing.T) {
	s := newTestServer(t, false)
	view := s.startMatch(t, "alice", "bob")

	c := newTestConn("bob")
	s.hub.Register(c)
	defer s.hub.Unregister(c)
	s.hub.Subscribe(c, view.MatchID)

	rec := s.do(t, http.MethodPost, "/api/v1/matches/"+view.MatchID+"/actions", "alice", `{"type":"endTurn"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("endTurn: %d %s", rec.Code, rec.Body.String())
	}

	var types []string
	for len(c.send) > 0 {
		var event WSEvent
		if err := json.Unmarshal(<-c.send, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.MatchID != view.MatchID {
			t.Errorf("event for wrong match: %s", event.MatchID)
		}
		types = append(types, event.Type)
	}
	if len(types) != 2 || types[0] != service.EventActionApplied || types[1] != service.EventTurnChanged {
		t.Errorf("expected action_applied then turn_changed, got %v", types)
	}
}

func TestDevLogin(t *testing.T) {
	if rec := newTestServer(t, false).do(t, http.MethodGet, "/auth/dev?player=alice", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("disabled: expected 404, got %d", rec.Code)
	}

	s := newTestServer(t, true)
	for _, bad := range []string{"", "bot-1", "a%20b"} {
		if rec := s.do(t, http.MethodGet, "/auth/dev?player="+bad, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("player %q: expected 400, got %d", bad, rec.Code)
		}
	}

	rec := s.do(t, http.MethodGet, "/auth/dev?player=alice", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	pair := decodeBody[auth.TokenPair](t, rec)
	claims, err := s.jwt.ValidateToken(pair.AccessToken, auth.TokenAccess)
	if err != nil || claims.PlayerID != "alice" {
		t.Fatalf("dev token invalid: %v", err)
	}

	rec = s.do(t, http.MethodPost, "/auth/refresh", "", fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken))
	if rec.Code != http.StatusOK {
		t.Errorf("refresh: expected 200, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/auth/refresh", "", fmt.Sprintf(`{"refresh_token":%q}`, pair.AccessToken))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh with access token: expected 401, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("load: %w", service.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{service.ErrMatchNotFound, http.StatusNotFound},
		{service.ErrRoomNotFound, http.StatusNotFound},
		{&risk.Error{Kind: risk.KindNotFound, Message: "x"}, http.StatusNotFound},
		{service.ErrNotHost, http.StatusForbidden},
		{&risk.Error{Kind: risk.KindIllegalTurn}, http.StatusForbidden},
		{service.ErrRoomFull, http.StatusConflict},
		{service.ErrMatchFinished, http.StatusConflict},
		{&risk.Error{Kind: risk.KindIllegalMove, Message: "x"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%q: %w", "nope", service.ErrUnknownAction), http.StatusBadRequest},
		{service.ErrNotEnoughPlayers, http.StatusBadRequest},
		{&risk.Error{Kind: risk.KindInvariantViolation}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
