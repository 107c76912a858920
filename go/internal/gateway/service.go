package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/classroom/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Service pushes session events to WebSocket clients. Events arrive either
// directly through Publish or, when a bus is configured, from JetStream.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// UseJetStream makes the gateway read events from the bus instead of
	// receiving them in process.
	UseJetStream bool
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new gateway service
func NewService(ctx context.Context, config Config) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig)
	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
	}

	if config.UseJetStream {
		consumer, err := NewEventConsumer(ctx, cm, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Start runs the gateway until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("gateway service shutting down")
	return s.Stop()
}

// Stop shuts down the event consumer. The connection manager stops with the
// context passed to Start.
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("gateway service stopped")
	return nil
}

// Publisher returns where in-process session events should go, or nil when
// the gateway reads them from the bus.
func (s *Service) Publisher() events.Publisher {
	if s.eventConsumer != nil {
		return nil
	}
	return s.connectionManager
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}
