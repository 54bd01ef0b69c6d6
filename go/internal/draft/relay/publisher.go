// Package relay carries draft events between server instances over
// NATS. The state machine publishes envelopes to
// draft.events.<divisionID>; each instance's relay feeds its local
// broker. Single-process deployments skip the relay entirely and hand
// the broker to the state machine as the broadcaster.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultSubjectPrefix is the NATS subject root for draft events.
const DefaultSubjectPrefix = "draft.events"

// Connect dials NATS with reconnect handling wired to the log.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Publisher implements the state machine's broadcast trigger on NATS.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewPublisher creates a NATS-backed event publisher.
func NewPublisher(nc *nats.Conn, subjectPrefix string) *Publisher {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &Publisher{nc: nc, subjectPrefix: subjectPrefix}
}

// Broadcast publishes the event envelope, fire-and-forget. Publish
// failures are logged; a draft action never fails on a lost
// notification.
func (p *Publisher) Broadcast(ctx context.Context, eventType events.Type, divisionID uuid.UUID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event payload")
		return
	}

	envelope := events.Envelope{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		DivisionID: divisionID.String(),
		Timestamp:  time.Now(),
		Payload:    data,
	}
	msg, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event envelope")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, divisionID)
	if err := p.nc.Publish(subject, msg); err != nil {
		log.Error().
			Err(err).
			Str("subject", subject).
			Str("event_type", string(eventType)).
			Msg("failed to publish event")
		return
	}

	log.Debug().
		Str("subject", subject).
		Str("event_type", string(eventType)).
		Msg("event published to NATS")
}
