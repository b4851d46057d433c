package events

import (
	"context"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
)

// LogSink writes events to the application log. Used when NATS is not configured.
type LogSink struct {
	logger ports.LoggerPort
}

func NewLogSink(logger ports.LoggerPort) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, event domain.Event) error {
	s.logger.Info("Domain event", map[string]interface{}{
		"event_id":   event.ID.String(),
		"event_type": string(event.Type),
		"actor_id":   event.ActorID,
		"subject_id": event.SubjectID,
	})
	return nil
}
