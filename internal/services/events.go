package services

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event channels published by the services.
const (
	ChannelUserRegistered = "users.registered"
	ChannelPostPublished  = "posts.published"
)

// EventPublisher sends domain events to the message broker. It is
// satisfied by mq.MQ. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// publishEvent emits a JSON event. Broker failures are logged and never
// fail the originating request.
func publishEvent(ctx context.Context, logger *slog.Logger, publisher EventPublisher, channel string, payload any) {
	if publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "failed to encode event", "channel", channel, "error", err)
		}
		return
	}
	if _, err := publisher.Publish(ctx, channel, data, map[string]string{"content-type": "application/json"}); err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "failed to publish event", "channel", channel, "error", err)
		}
	}
}
