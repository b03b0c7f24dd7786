package service

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub and the NATS publisher.
type Broadcaster interface {
	BroadcastMatchEvent(matchID string, eventType string, data any)
}

// PlayerNotifier is implemented by broadcasters that can reach a single
// player privately. Hidden information such as a drawn card only goes here.
type PlayerNotifier interface {
	NotifyPlayer(matchID, playerID, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastMatchEvent(string, string, any) {}

// MultiBroadcaster fans every event out to each of its members in order.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) BroadcastMatchEvent(matchID string, eventType string, data any) {
	for _, b := range m {
		if b != nil {
			b.BroadcastMatchEvent(matchID, eventType, data)
		}
	}
}

func (m MultiBroadcaster) NotifyPlayer(matchID, playerID, eventType string, data any) {
	for _, b := range m {
		if n, ok := b.(PlayerNotifier); ok {
			n.NotifyPlayer(matchID, playerID, eventType, data)
		}
	}
}

// Event types sent to clients.
const (
	EventMatchStarted     = "match_started"
	EventActionApplied    = "action_applied"
	EventTurnChanged      = "turn_changed"
	EventCardDrawn        = "card_drawn"
	EventCardReceived     = "card_received" // private to the drawing player
	EventPlayerEliminated = "player_eliminated"
	EventMatchEnded       = "match_ended"
)
