package repository

import (
	"context"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

// UserStatsRepository хранит агрегированную статистику пользователей
type UserStatsRepository interface {
	// ApplyAnswer атомарно учитывает один ответ пользователя
	ApplyAnswer(ctx context.Context, userID string, correct bool, at time.Time) error
	// Get возвращает apperrors.ErrNotFound, если пользователь еще не отвечал
	Get(ctx context.Context, userID string) (*entity.UserStats, error)
}

// EventPublisher публикует события для внешних потребителей (рейтинг, дашборды)
type EventPublisher interface {
	PublishAnswer(ctx context.Context, event entity.AnswerEvent) error
}

// PendingRecordStore временно хранит вопросы, которые не удалось записать в пул,
// чтобы по ним все равно можно было принять ответ
type PendingRecordStore interface {
	Park(ctx context.Context, record *entity.QuestionRecord) error
	// Fetch возвращает apperrors.ErrNotFound, если записи нет
	Fetch(ctx context.Context, id string) (*entity.QuestionRecord, error)
}
