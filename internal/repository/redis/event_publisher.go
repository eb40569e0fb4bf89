package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

// AnswerRecordedChannel - канал pub/sub для событий ответа
const AnswerRecordedChannel = "stats.answer_recorded"

// eventEnvelope - формат сообщения в канале
type eventEnvelope struct {
	Type      string             `json:"type"`
	Data      entity.AnswerEvent `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

// EventPublisher реализует repository.EventPublisher через Redis Pub/Sub
type EventPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewEventPublisher создает издателя событий
func NewEventPublisher(client redis.UniversalClient) (*EventPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for EventPublisher")
	}
	return &EventPublisher{client: client, channel: AnswerRecordedChannel}, nil
}

// PublishAnswer публикует событие об ответе пользователя
func (p *EventPublisher) PublishAnswer(ctx context.Context, event entity.AnswerEvent) error {
	payload, err := json.Marshal(eventEnvelope{
		Type:      AnswerRecordedChannel,
		Data:      event,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal answer event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish answer event: %w", err)
	}
	return nil
}
