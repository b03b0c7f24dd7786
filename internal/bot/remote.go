package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/pkg/risk"
)

// RemoteExecutor plays through a server's HTTP API instead of a local
// engine. The returned state is re-read after every action.
type RemoteExecutor struct {
	Client  *Client
	MatchID string
}

func (e RemoteExecutor) Execute(ctx context.Context, playerID string, action risk.Action) (*risk.MatchState, *risk.Outcome, error) {
	if playerID != e.Client.Name() {
		return nil, nil, fmt.Errorf("client %s cannot act for %s", e.Client.Name(), playerID)
	}
	out, err := e.Client.Submit(ctx, e.MatchID, action)
	if err != nil {
		return nil, nil, err
	}
	s, err := e.Client.State(ctx, e.MatchID)
	if err != nil {
		return nil, nil, err
	}
	return s, out, nil
}

// RemoteMatch plays a whole match on a running server with one remote
// client per seat, all seated as human players.
type RemoteMatch struct {
	BaseURL      string
	Difficulties []string      // one entry per seat, in turn order
	Names        []string      // player ids; defaults to cpu-1, cpu-2, ...
	MaxTurns     int           // stop after this turn; 0 = play to the end
	EventTimeout time.Duration // wait for the turn_changed broadcast
	Pace         bool          // per-difficulty delays before each phase
}

type remoteSeat struct {
	client   *Client
	strategy Strategy
	pace     time.Duration
}

// Run logs every seat in, has the first one create and start a room, then
// plays turns until the match ends or the turn cap is hit. It returns the
// final state as seen by the first seat.
func (r *RemoteMatch) Run(ctx context.Context) (*risk.MatchState, error) {
	if len(r.Difficulties) < risk.MinPlayers || len(r.Difficulties) > risk.MaxPlayers {
		return nil, fmt.Errorf("remote match needs %d to %d seats, got %d", risk.MinPlayers, risk.MaxPlayers, len(r.Difficulties))
	}
	if r.EventTimeout == 0 {
		r.EventTimeout = 10 * time.Second
	}

	seats := make(map[string]*remoteSeat, len(r.Difficulties))
	var clients []*Client
	for i, d := range r.Difficulties {
		name := fmt.Sprintf("cpu-%d", i+1)
		if i < len(r.Names) {
			name = r.Names[i]
		}
		c := NewClient(name, r.BaseURL)
		if err := c.Login(ctx); err != nil {
			return nil, fmt.Errorf("login %s: %w", name, err)
		}
		seat := &remoteSeat{client: c, strategy: StrategyForDifficulty(d)}
		if r.Pace {
			seat.pace = PaceFor(d)
		}
		seats[name] = seat
		clients = append(clients, c)
	}
	host := clients[0]

	roomID, err := host.CreateRoom(ctx, len(clients))
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	for _, c := range clients[1:] {
		if err := c.JoinRoom(ctx, roomID); err != nil {
			return nil, fmt.Errorf("join %s: %w", c.Name(), err)
		}
	}

	// the host watches the match so each turn can wait for its broadcast
	if err := host.ConnectWS(ctx); err != nil {
		return nil, err
	}
	defer host.CloseWS()

	matchID, err := host.StartMatch(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	if err := host.Subscribe(matchID); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	log.Info().Str("roomId", roomID).Str("matchId", matchID).Int("seats", len(clients)).Msg("Remote match started")

	m := risk.StandardMap()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := host.State(ctx, matchID)
		if err != nil {
			return nil, fmt.Errorf("get state: %w", err)
		}
		if s.Finished() || (r.MaxTurns > 0 && s.TurnNumber > r.MaxTurns) {
			log.Info().Str("matchId", matchID).Str("winner", s.WinnerID).Int("turn", s.TurnNumber).Msg("Remote match over")
			return s, nil
		}

		player := s.CurrentPlayer()
		seat := seats[player]
		if seat == nil {
			return nil, fmt.Errorf("turn belongs to unknown player %q", player)
		}
		own, err := seat.client.State(ctx, matchID)
		if err != nil {
			return nil, fmt.Errorf("get state for %s: %w", player, err)
		}
		exec := RemoteExecutor{Client: seat.client, MatchID: matchID}
		if _, err := PlayTurn(ctx, exec, own, m, player, seat.strategy, seat.pace); err != nil {
			return nil, fmt.Errorf("turn %d (%s): %w", s.TurnNumber, player, err)
		}
		if _, err := r.waitForEvent(ctx, host, "turn_changed", "match_ended"); err != nil {
			if errors.Is(err, errEventTimeout) {
				// the state read at the top of the loop is authoritative
				log.Warn().Str("matchId", matchID).Msg("No turn broadcast received, continuing")
				continue
			}
			return nil, err
		}
	}
}

var errEventTimeout = errors.New("timed out waiting for event")

// waitForEvent blocks until one of the given event types is received.
func (r *RemoteMatch) waitForEvent(ctx context.Context, c *Client, eventTypes ...string) (WSEvent, error) {
	typeSet := make(map[string]bool)
	for _, t := range eventTypes {
		typeSet[t] = true
	}

	timeout := time.After(r.EventTimeout)
	for {
		select {
		case <-ctx.Done():
			return WSEvent{}, ctx.Err()
		case <-timeout:
			return WSEvent{}, errEventTimeout
		case event, ok := <-c.Events():
			if !ok {
				return WSEvent{}, errors.New("websocket closed")
			}
			if typeSet[event.Type] {
				return event, nil
			}
		}
	}
}
