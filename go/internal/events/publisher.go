package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// LogPublisher only logs events. It is used when no bus is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("question_id", event.QuestionID.String()).
		Msg("publishing event")
	return nil
}

// MultiPublisher fans an event out to several publishers. Every publisher is
// tried; the joined error reports the ones that failed.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (p *MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
