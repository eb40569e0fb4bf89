package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

const (
	pendingKeyPrefix = "questions:pending:"
	// DefaultPendingTTL - сколько хранится вопрос, не попавший в пул
	DefaultPendingTTL = 24 * time.Hour
)

// pendingRecord - полное представление вопроса, включая ответ и объяснение,
// которые скрыты в JSON-представлении entity.QuestionRecord
type pendingRecord struct {
	entity.QuestionRecord
	AnswerKey   string `json:"answer_key"`
	Explanation string `json:"explanation"`
}

// PendingRecordRepo реализует repository.PendingRecordStore поверх Redis
type PendingRecordRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPendingRecordRepo создает репозиторий отложенных вопросов
func NewPendingRecordRepo(client redis.UniversalClient, ttl time.Duration) (*PendingRecordRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for PendingRecordRepo")
	}
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingRecordRepo{client: client, ttl: ttl}, nil
}

// Park сохраняет вопрос, который не удалось записать в пул
func (r *PendingRecordRepo) Park(ctx context.Context, record *entity.QuestionRecord) error {
	data, err := json.Marshal(pendingRecord{
		QuestionRecord: *record,
		AnswerKey:      record.AnswerKey,
		Explanation:    record.Explanation,
	})
	if err != nil {
		return fmt.Errorf("marshal pending record: %w", err)
	}
	if err := r.client.Set(ctx, pendingKeyPrefix+record.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: park record: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Fetch возвращает отложенный вопрос
func (r *PendingRecordRepo) Fetch(ctx context.Context, id string) (*entity.QuestionRecord, error) {
	data, err := r.client.Get(ctx, pendingKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetch pending record: %v", apperrors.ErrStoreUnavailable, err)
	}
	var rec pendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal pending record: %w", err)
	}
	q := rec.QuestionRecord
	q.AnswerKey = rec.AnswerKey
	q.Explanation = rec.Explanation
	return &q, nil
}
