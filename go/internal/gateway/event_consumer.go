package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/classroom/go/internal/bus"
	"github.com/mcdev12/classroom/go/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string        // e.g., "classroom.events.>"
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "CLASSROOM_EVENTS",
		ConsumerName:  "classroom-gateway",
		SubjectFilter: "classroom.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// EventConsumer consumes session events from JetStream and broadcasts them
// to WebSocket clients
type EventConsumer struct {
	publisher events.Publisher
	nc        *nats.Conn
	js        jetstream.JetStream
	consumer  jetstream.Consumer
	config    JetStreamConsumerConfig
}

// NewEventConsumer creates a new JetStream event consumer delivering to publisher
func NewEventConsumer(ctx context.Context, publisher events.Publisher, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, js, err := bus.Connect(config.URL, config.MaxReconnects, config.ReconnectWait)
	if err != nil {
		return nil, err
	}

	ec := &EventConsumer{
		publisher: publisher,
		nc:        nc,
		js:        js,
		config:    config,
	}

	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	// Dashboards only care about what happens from now on.
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Classroom gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("JetStream consumer ready")

	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is cancelled
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.handleMessage(ctx, msg)
		}
	}
}

func (ec *EventConsumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	event, err := decodeEvent(msg.Data())
	if err != nil {
		// A malformed message will never decode; redelivering it is pointless.
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping undecodable message")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
		return
	}

	if err := ec.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject()).
			Msg("failed to broadcast event")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		log.Error().Err(ackErr).Msg("failed to ACK message")
	}
}

// decodeEvent parses a bus message into a session event
func decodeEvent(data []byte) (events.Event, error) {
	var event events.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	switch event.Type {
	case events.EventTypeQuestionCreated,
		events.EventTypeSessionStarted,
		events.EventTypeAnswerSubmitted,
		events.EventTypeAllResponded,
		events.EventTypeSessionEnded,
		events.EventTypeQuestionDeleted:
	default:
		return events.Event{}, fmt.Errorf("unknown event type: %q", event.Type)
	}
	return event, nil
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")

	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
