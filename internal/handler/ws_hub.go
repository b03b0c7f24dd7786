package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is what the server pushes; Type is a service event name such as
// action_applied or card_received.
type WSEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Data    any    `json:"data"`
}

// ClientMessage is a watch request from the client: action is "subscribe"
// or "unsubscribe".
type ClientMessage struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id"`
}

// WSConn is one socket of one authenticated player.
type WSConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte

	// guarded by Hub.mu
	watching map[string]struct{}
	gone     bool
}

type connSet map[*WSConn]struct{}

// Hub routes match events to the sockets watching a match and private
// events to every socket of a single player.
type Hub struct {
	mu       sync.RWMutex
	players  map[string]connSet // player id -> that player's sockets
	watchers map[string]connSet // match id -> sockets watching it
	total    int
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		players:  make(map[string]connSet),
		watchers: make(map[string]connSet),
	}
}

// Register makes c reachable by its player id.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.watching = make(map[string]struct{})
	add(h.players, c.playerID, c)
	h.total++
}

// Unregister drops c from its player and every match it watched, then
// closes its send queue. Calling it twice is harmless.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.gone || c.watching == nil {
		return
	}
	c.gone = true
	for matchID := range c.watching {
		remove(h.watchers, matchID, c)
	}
	remove(h.players, c.playerID, c)
	h.total--
	close(c.send)
}

// Subscribe starts delivering matchID's events to c.
func (h *Hub) Subscribe(c *WSConn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.gone || c.watching == nil {
		return
	}
	c.watching[matchID] = struct{}{}
	add(h.watchers, matchID, c)
}

// Unsubscribe stops delivering matchID's events to c.
func (h *Hub) Unsubscribe(c *WSConn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.watching == nil {
		return
	}
	delete(c.watching, matchID)
	remove(h.watchers, matchID, c)
}

// BroadcastToMatch queues event for every socket watching matchID.
func (h *Hub) BroadcastToMatch(matchID string, event WSEvent) {
	h.deliver(event, func() connSet { return h.watchers[matchID] })
}

// BroadcastToPlayer queues event for every socket of playerID, whatever
// they watch.
func (h *Hub) BroadcastToPlayer(playerID string, event WSEvent) {
	h.deliver(event, func() connSet { return h.players[playerID] })
}

// deliver never blocks: a socket whose queue is full misses the event and
// catches up from the next state it receives.
func (h *Hub) deliver(event WSEvent, targets func() connSet) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", event.MatchID).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range targets() {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("playerId", c.playerID).Str("matchId", event.MatchID).Str("type", event.Type).Msg("WebSocket queue full, event dropped")
		}
	}
}

// ConnectionCount returns the number of open sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// MatchSubscriberCount returns how many sockets watch matchID.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[matchID])
}

func add(index map[string]connSet, key string, c *WSConn) {
	if index[key] == nil {
		index[key] = make(connSet)
	}
	index[key][c] = struct{}{}
}

func remove(index map[string]connSet, key string, c *WSConn) {
	if set, ok := index[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(index, key)
		}
	}
}
