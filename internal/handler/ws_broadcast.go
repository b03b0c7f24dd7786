package handler

// BroadcastMatchEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastMatchEvent(matchID string, eventType string, data any) {
	h.BroadcastToMatch(matchID, WSEvent{
		Type:    eventType,
		MatchID: matchID,
		Data:    data,
	})
}

// NotifyPlayer implements service.PlayerNotifier; only the player's own
// connections receive the event.
func (h *Hub) NotifyPlayer(matchID, playerID, eventType string, data any) {
	h.BroadcastToPlayer(playerID, WSEvent{
		Type:    eventType,
		MatchID: matchID,
		Data:    data,
	})
}
