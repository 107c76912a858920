package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/api"
	"github.com/mcdev12/classroom/go/internal/bus"
	"github.com/mcdev12/classroom/go/internal/events"
	"github.com/mcdev12/classroom/go/internal/gateway"
	"github.com/mcdev12/classroom/go/internal/questions"
	"github.com/mcdev12/classroom/go/internal/runner"
	"github.com/mcdev12/classroom/go/internal/session"
	"github.com/rs/zerolog/log"
)

type Services struct {
	API      *api.Handler
	Gateway  *gateway.Service
	Sessions *session.Manager

	closers []func() error
}

func setupServices(ctx context.Context, config *Config, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Storage → Questions app → Session manager → HTTP handler
	s := &Services{}

	repo, err := setupRepository(ctx, config, clock, s)
	if err != nil {
		return nil, err
	}
	questionsApp := questions.NewApp(repo, config.Session.MaxDurationSec)

	useBus := config.Events.NATSURL != ""
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.UseJetStream = useBus
	gatewayConfig.JetStreamConfig.URL = config.Events.NATSURL
	gatewayConfig.JetStreamConfig.StreamName = config.Events.Stream
	gatewayConfig.JetStreamConfig.SubjectFilter = config.Events.SubjectPrefix + ".>"

	publishers := []events.Publisher{events.NewLogPublisher()}
	if useBus {
		// The stream must exist before the gateway attaches its consumer.
		busConfig := bus.DefaultJetStreamConfig()
		busConfig.URL = config.Events.NATSURL
		busConfig.StreamName = config.Events.Stream
		busConfig.SubjectPrefix = config.Events.SubjectPrefix

		publisher, err := bus.NewJetStreamPublisher(ctx, busConfig)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.closers = append(s.closers, publisher.Close)
		publishers = append(publishers, publisher)
		log.Info().Str("nats_url", busConfig.URL).Str("stream", busConfig.StreamName).Msg("publishing session events to JetStream")
	}

	gw, err := gateway.NewService(ctx, gatewayConfig)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	if p := gw.Publisher(); p != nil {
		publishers = append(publishers, p)
	}

	s.Gateway = gw
	s.Sessions = session.NewManager(questionsApp, events.NewMultiPublisher(publishers...), clock, session.Config{
		DefaultExpectedStudents: config.Session.DefaultExpectedStudents,
		EndGrace:                config.EndGrace(),
	})
	s.API = api.NewHandler(s.Sessions)
	if config.Runner.Enabled {
		s.API = s.API.WithCodeRunner(runner.New(config.RunnerConfig()))
		log.Warn().Str("interpreter", config.Runner.Interpreter).Msg("submitCode enabled - student code runs unsandboxed on this host")
	}
	return s, nil
}

func setupRepository(ctx context.Context, config *Config, clock clockwork.Clock, s *Services) (questions.QuestionsRepository, error) {
	if config.Storage.Driver != "postgres" {
		log.Info().Msg("using in-memory question storage")
		return questions.NewMemoryRepository(clock), nil
	}

	database, err := setupDatabase(ctx)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, database.Close)

	repo := questions.NewPostgresRepository(database)
	if err := repo.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return repo, nil
}

// Close releases everything setupServices opened, newest first
func (s *Services) Close() {
	if s.Sessions != nil {
		s.Sessions.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
	s.closers = nil
}
