package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/pkg/risk"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type    string         `json:"type"`
	MatchID string         `json:"match_id"`
	Data    map[string]any `json:"data"`
}

// Client is an HTTP+WebSocket client for a single remote bot player.
type Client struct {
	name     string
	baseURL  string
	token    string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a new bot client targeting the given server URL. name
// becomes the player id through the dev login.
func NewClient(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 256),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the bot's player id.
func (c *Client) Name() string { return c.name }

// Login authenticates via the dev login endpoint.
func (c *Client) Login(ctx context.Context) error {
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/dev?player="+url.QueryEscape(c.name), nil, &tokens); err != nil {
		return fmt.Errorf("dev login: %w", err)
	}
	c.token = tokens.AccessToken
	log.Debug().Str("bot", c.name).Msg("Bot logged in")
	return nil
}

// CreateRoom opens a classic room for maxPlayers and returns its id.
func (c *Client) CreateRoom(ctx context.Context, maxPlayers int) (string, error) {
	var room struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/rooms", map[string]any{"max_players": maxPlayers}, &room)
	return room.ID, err
}

// JoinRoom takes a seat in a waiting room.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", nil, nil)
}

// StartMatch starts the room (host only) and returns the match id.
func (c *Client) StartMatch(ctx context.Context, roomID string) (string, error) {
	var view struct {
		MatchID string `json:"matchId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/rooms/"+roomID+"/start", nil, &view)
	return view.MatchID, err
}

// remoteView is the subset of the server's match view a bot needs.
type remoteView struct {
	MatchID              string           `json:"matchId"`
	RoomID               string           `json:"roomId"`
	Phase                risk.Phase       `json:"phase"`
	TurnNumber           int              `json:"turnNumber"`
	CurrentPlayerIndex   int              `json:"currentPlayerIndex"`
	ReinforcementsLeft   int              `json:"reinforcementsLeft"`
	HasConqueredThisTurn bool             `json:"hasConqueredThisTurn"`
	HasFortifiedThisTurn bool             `json:"hasFortifiedThisTurn"`
	CardTradeCount       int              `json:"cardTradeCount"`
	WinnerID             string           `json:"winnerId"`
	Players              []risk.Player    `json:"players"`
	Territories          []risk.Territory `json:"territories"`
}

// State fetches the public view of a match plus this player's own hand and
// rebuilds a MatchState from them. Other players' cards are not visible.
func (c *Client) State(ctx context.Context, matchID string) (*risk.MatchState, error) {
	var v remoteView
	if err := c.do(ctx, http.MethodGet, "/api/v1/matches/"+matchID, nil, &v); err != nil {
		return nil, err
	}
	var hand []risk.Card
	if err := c.do(ctx, http.MethodGet, "/api/v1/matches/"+matchID+"/cards", nil, &hand); err != nil {
		return nil, err
	}

	s := &risk.MatchState{
		MatchID:              v.MatchID,
		RoomID:               v.RoomID,
		Players:              v.Players,
		CurrentPlayerIndex:   v.CurrentPlayerIndex,
		Phase:                v.Phase,
		TurnNumber:           v.TurnNumber,
		ReinforcementsLeft:   v.ReinforcementsLeft,
		HasConqueredThisTurn: v.HasConqueredThisTurn,
		HasFortifiedThisTurn: v.HasFortifiedThisTurn,
		CardTradeCount:       v.CardTradeCount,
		WinnerID:             v.WinnerID,
		Territories:          make(map[string]*risk.Territory, len(v.Territories)),
		Cards:                hand,
	}
	for i := range v.Territories {
		t := v.Territories[i]
		s.Territories[t.ID] = &t
	}
	return s, nil
}

// Submit posts one action and returns what it did.
func (c *Client) Submit(ctx context.Context, matchID string, action risk.Action) (*risk.Outcome, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Outcome struct {
			Type   risk.ActionType    `json:"type"`
			Attack *risk.AttackResult `json:"attack"`
			Trade  *risk.TradeResult  `json:"trade"`
			Events []risk.Event       `json:"events"`
		} `json:"outcome"`
	}
	body := map[string]any{"type": action.Type(), "payload": json.RawMessage(payload)}
	if err := c.do(ctx, http.MethodPost, "/api/v1/matches/"+matchID+"/actions", body, &resp); err != nil {
		return nil, err
	}
	o := resp.Outcome
	return &risk.Outcome{Type: o.Type, Action: action, Attack: o.Attack, Trade: o.Trade, Events: o.Events}, nil
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// Subscribe sends a subscribe message for the given match.
func (c *Client) Subscribe(matchID string) error {
	msg := map[string]string{"action": "subscribe", "match_id": matchID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("bot", c.name).Msg("WS read error")
			}
			return
		}
		// the server batches queued events into one frame, one per line
		for _, line := range bytes.Split(msg, []byte("\n")) {
			var event WSEvent
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			c.events <- event
		}
	}
}

// do sends a request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if method == http.MethodPost {
		data := []byte("{}")
		if payload != nil {
			var err error
			if data, err = json.Marshal(payload); err != nil {
				return err
			}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
