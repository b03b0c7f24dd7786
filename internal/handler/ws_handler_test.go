package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/conquest/api/internal/auth"
)

func newWSServer(t *testing.T, origins string) (*httptest.Server, *Hub, *auth.JWTManager) {
	t.Helper()
	hub := NewHub()
	jwtMgr := auth.NewJWTManager("ws-secret")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/ws", NewWSHandler(hub, jwtMgr, origins).ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hub, jwtMgr
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
}

func readEvent(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event WSEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("decode %q: %v", msg, err)
	}
	return event
}

func TestServeWSSubscribeAndReceive(t *testing.T) {
	srv, hub, jwtMgr := newWSServer(t, "*")
	token, _ := jwtMgr.GenerateAccessToken("alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if event := readEvent(t, conn); event.Type != "connected" {
		t.Fatalf("expected connected, got %s", event.Type)
	}
	if err := conn.WriteJSON(ClientMessage{Action: "subscribe", MatchID: "match-1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.MatchSubscriberCount("match-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastMatchEvent("match-1", "turn_changed", map[string]string{"to": "bob"})
	event := readEvent(t, conn)
	if event.Type != "turn_changed" || event.MatchID != "match-1" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestServeWSRejectsBadTokens(t *testing.T) {
	srv, _, jwtMgr := newWSServer(t, "*")
	refresh, _ := jwtMgr.GenerateRefreshToken("alice")

	for name, token := range map[string]string{"missing": "", "garbage": "abc", "refresh": refresh} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
		if err == nil {
			t.Errorf("%s: expected dial to fail", name)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %v", name, resp)
		}
	}
}

func TestServeWSOriginCheck(t *testing.T) {
	srv, _, jwtMgr := newWSServer(t, "https://play.example.com")
	token, _ := jwtMgr.GenerateAccessToken("alice")

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), header); err == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected foreign origin to be refused, got err=%v", err)
	}

	header.Set("Origin", "https://play.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), header)
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	conn.Close()
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		allowed string
		origin  string
		want    bool
	}{
		{"", "https://anything.test", true},
		{"*", "https://anything.test", true},
		{"https://a.test, https://b.test", "https://b.test", true},
		{"https://a.test", "https://c.test", false},
		{"https://a.test", "", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := originChecker(tt.allowed)(req); got != tt.want {
			t.Errorf("originChecker(%q)(%q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
		}
	}
}
