package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
)

// ExposureRepo реализует repository.ExposureLedger
type ExposureRepo struct {
	db *gorm.DB
}

// NewExposureRepo создает новый репозиторий журнала показов
func NewExposureRepo(db *gorm.DB) *ExposureRepo {
	return &ExposureRepo{db: db}
}

// SeenIDs возвращает ID всех вопросов, показанных пользователю
func (r *ExposureRepo) SeenIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.ExposureRecord{}).
		Where("user_id = ?", userID).
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, classifyError("seen ids", err)
	}
	return ids, nil
}

// MarkSeen - INSERT ... ON CONFLICT (user_id, question_id) DO NOTHING.
// Если строка не вставлена, значит показ уже был: ErrAlreadySeen.
func (r *ExposureRepo) MarkSeen(ctx context.Context, userID, questionID string) error {
	record := entity.ExposureRecord{
		UserID:     userID,
		QuestionID: questionID,
		SeenAt:     time.Now().UTC(),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
			DoNothing: true,
		}).
		Create(&record)
	if result.Error != nil {
		return classifyError("mark seen", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAlreadySeen
	}
	return nil
}

// MarkAnswered переводит показ в answered=true условным UPDATE.
// При 0 затронутых строк различаем "не показывали" и "уже ответили".
func (r *ExposureRepo) MarkAnswered(ctx context.Context, userID, questionID string, correct bool, responseTime time.Duration) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&entity.ExposureRecord{}).
		Where("user_id = ? AND question_id = ? AND answered = ?", userID, questionID, false).
		Updates(map[string]interface{}{
			"answered":         true,
			"correct":          correct,
			"response_time_ms": responseTime.Milliseconds(),
			"answered_at":      now,
		})
	if result.Error != nil {
		return classifyError("mark answered", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ExposureRecord{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&count).Error
	if err != nil {
		return classifyError("mark answered", err)
	}
	if count == 0 {
		return repository.ErrNotSeen
	}
	return repository.ErrAlreadyAnswered
}

// History возвращает показы пользователя вместе с кратким описанием вопросов
func (r *ExposureRepo) History(ctx context.Context, userID string, limit, offset int) ([]entity.HistoryEntry, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.ExposureRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, classifyError("history count", err)
	}

	entries := make([]entity.HistoryEntry, 0)
	query := r.db.WithContext(ctx).
		Table("questions_exposure AS e").
		Select("e.question_id, COALESCE(q.cargo, '') AS cargo, COALESCE(q.bloco, '') AS bloco, " +
			"COALESCE(q.topic, '') AS topic, COALESCE(q.body, '') AS body, " +
			"COALESCE(q.kind, '') AS kind, COALESCE(q.difficulty, '') AS difficulty, " +
			"e.seen_at, e.answered, e.correct, e.response_time_ms, e.answered_at").
		Joins("LEFT JOIN questions_pool AS q ON q.id = e.question_id").
		Where("e.user_id = ?", userID).
		Order("e.seen_at DESC, e.id DESC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&entries).Error; err != nil {
		return nil, 0, classifyError("history", err)
	}
	return entries, total, nil
}

// Ping проверяет соединение с базой
func (r *ExposureRepo) Ping(ctx context.Context) error {
	return pingDB(ctx, r.db)
}
