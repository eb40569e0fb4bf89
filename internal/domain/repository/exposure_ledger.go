package repository

import (
	"context"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

// ExposureLedger - журнал показов вопросов пользователям.
// Не более одной записи на пару (userID, questionID); записи не удаляются.
type ExposureLedger interface {
	// SeenIDs возвращает все вопросы, когда-либо показанные пользователю (без учета фильтра)
	SeenIDs(ctx context.Context, userID string) ([]string, error)
	// MarkSeen вставляет запись, только если ее еще нет. Иначе возвращает ErrAlreadySeen.
	MarkSeen(ctx context.Context, userID, questionID string) error
	// MarkAnswered переводит запись в answered=true ровно один раз.
	// ErrNotSeen - если показа не было, ErrAlreadyAnswered - если ответ уже записан.
	MarkAnswered(ctx context.Context, userID, questionID string, correct bool, responseTime time.Duration) error
	// History возвращает показы пользователя (новые первыми) и общее количество
	History(ctx context.Context, userID string, limit, offset int) ([]entity.HistoryEntry, int64, error)
	Ping(ctx context.Context) error
}
