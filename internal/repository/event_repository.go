package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SergeiKhy/tinylink/internal/models"
)

// EventRepository publishes link events to a Redis channel and lets
// presentation layers subscribe to them.
type EventRepository interface {
	Publish(ctx context.Context, event *models.LinkEvent) error
	// Subscribe delivers decoded events until ctx is cancelled. The returned
	// channel is closed when the subscription ends.
	Subscribe(ctx context.Context) (<-chan *models.LinkEvent, error)
}

type eventRepository struct {
	redis   *RedisDB
	channel string
}

func NewEventRepository(redis *RedisDB, channel string) EventRepository {
	return &eventRepository{redis: redis, channel: channel}
}

func (r *eventRepository) Publish(ctx context.Context, event *models.LinkEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.redis.Client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (r *eventRepository) Subscribe(ctx context.Context) (<-chan *models.LinkEvent, error) {
	pubsub := r.redis.Client.Subscribe(ctx, r.channel)

	// Ждём подтверждения подписки, иначе ранние события теряются
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *models.LinkEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event models.LinkEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
