package repository

import (
	"context"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

// PoolStats - агрегированная статистика пула вопросов
type PoolStats struct {
	Total        int64                       `json:"total"`
	Placeholders int64                       `json:"placeholders"`
	ByDifficulty map[entity.Difficulty]int64 `json:"by_difficulty"`
	TotalReuse   int64                       `json:"total_reuse"`
}

// ContentStore определяет методы для работы с пулом вопросов.
// Записи неизменяемы после вставки: метода обновления текста, вариантов или ответа нет.
type ContentStore interface {
	// QueryAvailable возвращает не больше limit случайных подходящих под фильтр вопросов, кроме excludeIDs.
	// Пустой результат не является ошибкой. Заглушки не возвращаются никогда.
	QueryAvailable(ctx context.Context, filter entity.ContentFilter, excludeIDs []string, limit int) ([]entity.QuestionRecord, error)
	Insert(ctx context.Context, record *entity.QuestionRecord) (string, error)
	// IncrementReuse увеличивает reuse_count и обновляет last_used_at (best-effort)
	IncrementReuse(ctx context.Context, id string) error
	// Lookup возвращает apperrors.ErrNotFound, если вопрос неизвестен
	Lookup(ctx context.Context, id string) (*entity.QuestionRecord, error)
	Ping(ctx context.Context) error
	PoolStats(ctx context.Context) (*PoolStats, error)
}
