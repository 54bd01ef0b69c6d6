package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Relay consumes draft event envelopes from NATS and feeds the local
// broker, so every instance's subscribers see events regardless of
// which instance committed the action. Replay buffers remain
// per-instance.
type Relay struct {
	nc            *nats.Conn
	broker        *gateway.Broker
	subjectPrefix string
}

// NewRelay creates a relay feeding the given broker.
func NewRelay(nc *nats.Conn, broker *gateway.Broker, subjectPrefix string) *Relay {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &Relay{nc: nc, broker: broker, subjectPrefix: subjectPrefix}
}

// Start subscribes to the draft event subjects and blocks until ctx is
// canceled.
func (r *Relay) Start(ctx context.Context) error {
	subject := fmt.Sprintf("%s.>", r.subjectPrefix)
	sub, err := r.nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := r.process(msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to process relay message")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	log.Info().Str("subject", subject).Msg("relay started")
	<-ctx.Done()
	log.Info().Msg("relay shutting down")
	return nil
}

func (r *Relay) process(msg *nats.Msg) error {
	var envelope events.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	divisionID, err := uuid.Parse(envelope.DivisionID)
	if err != nil {
		return fmt.Errorf("parse division id: %w", err)
	}

	r.broker.Publish(envelope.EventType, divisionID, envelope.Payload)
	return nil
}
