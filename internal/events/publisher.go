// Package events publishes committed match events to NATS so other services
// can follow matches without polling the API.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultSubjectPrefix is prepended to every subject.
const DefaultSubjectPrefix = "conquest.match"

// Envelope is the message body published for each event.
type Envelope struct {
	MatchID string    `json:"matchId"`
	Type    string    `json:"type"`
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher implements service.Broadcaster on top of NATS.
type Publisher struct {
	conn   Conn
	prefix string
	now    func() time.Time
}

// NewPublisher creates a Publisher. An empty prefix uses DefaultSubjectPrefix.
func NewPublisher(conn Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix, now: time.Now}
}

// Connect dials NATS with reconnect handling logged through zerolog.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("conquest-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
}

// Subject returns the subject for an event, e.g. conquest.match.<id>.turn_changed.
// Tokens are sanitised so ids cannot introduce wildcards or extra levels.
func (p *Publisher) Subject(matchID, eventType string) string {
	return p.prefix + "." + token(matchID) + "." + token(eventType)
}

func token(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// BroadcastMatchEvent publishes one event. Failures are logged; the action
// has already been committed.
func (p *Publisher) BroadcastMatchEvent(matchID string, eventType string, data any) {
	body, err := json.Marshal(Envelope{MatchID: matchID, Type: eventType, Data: data, At: p.now().UTC()})
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Str("type", eventType).Msg("Failed to marshal match event")
		return
	}
	subject := p.Subject(matchID, eventType)
	if err := p.conn.Publish(subject, body); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish match event")
		return
	}
	log.Debug().Str("subject", subject).Msg("Published match event")
}
