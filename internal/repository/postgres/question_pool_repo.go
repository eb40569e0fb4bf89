package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
)

// defaultCandidateLimit - размер выборки кандидатов, если limit не задан
const defaultCandidateLimit = 20

// QuestionPoolRepo реализует repository.ContentStore
type QuestionPoolRepo struct {
	db *gorm.DB
}

// NewQuestionPoolRepo создает новый репозиторий пула вопросов
func NewQuestionPoolRepo(db *gorm.DB) *QuestionPoolRepo {
	return &QuestionPoolRepo{db: db}
}

// QueryAvailable возвращает до limit случайных подходящих вопросов, исключая уже показанные пользователю
func (r *QuestionPoolRepo) QueryAvailable(ctx context.Context, filter entity.ContentFilter, excludeIDs []string, limit int) ([]entity.QuestionRecord, error) {
	var questions []entity.QuestionRecord
	if err := r.availableQuery(ctx, filter, excludeIDs, limit).Find(&questions).Error; err != nil {
		return nil, classifyError("query available questions", err)
	}
	return questions, nil
}

func (r *QuestionPoolRepo) availableQuery(ctx context.Context, filter entity.ContentFilter, excludeIDs []string, limit int) *gorm.DB {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := r.db.WithContext(ctx).
		Where("cargo = ? AND bloco = ? AND placeholder = ?", filter.Cargo, filter.Bloco, false)

	if filter.KnowledgeType != "" && filter.KnowledgeType != entity.KnowledgeAny {
		query = query.Where("knowledge_type = ?", filter.KnowledgeType)
	}
	if filter.IsFocused() {
		query = query.Where("topic = ?", filter.FocusTopic)
	}
	// Исключенные ID передаются одним параметром-массивом: список "NOT IN" упирается в лимит 65535 параметров
	if len(excludeIDs) > 0 {
		query = query.Where("id <> ALL(?::text[])", pq.Array(excludeIDs))
	}

	return query.Order("RANDOM()").Limit(limit)
}

// Insert добавляет неизменяемую запись в пул
func (r *QuestionPoolRepo) Insert(ctx context.Context, record *entity.QuestionRecord) (string, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", classifyError("insert question", err)
	}
	return record.ID, nil
}

// IncrementReuse атомарно увеличивает reuse_count
func (r *QuestionPoolRepo) IncrementReuse(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&entity.QuestionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reuse_count":  gorm.Expr("reuse_count + 1"),
			"last_used_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return classifyError("increment reuse", result.Error)
	}
	if result.RowsAffected == 0 {
		return classifyError("increment reuse", gorm.ErrRecordNotFound)
	}
	return nil
}

// Lookup возвращает вопрос по ID
func (r *QuestionPoolRepo) Lookup(ctx context.Context, id string) (*entity.QuestionRecord, error) {
	var question entity.QuestionRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&question).Error; err != nil {
		return nil, classifyError("lookup question", err)
	}
	return &question, nil
}

// Ping проверяет соединение с базой
func (r *QuestionPoolRepo) Ping(ctx context.Context) error {
	return pingDB(ctx, r.db)
}

// PoolStats возвращает статистику пула вопросов
func (r *QuestionPoolRepo) PoolStats(ctx context.Context) (*repository.PoolStats, error) {
	stats := &repository.PoolStats{ByDifficulty: make(map[entity.Difficulty]int64)}
	db := r.db.WithContext(ctx).Model(&entity.QuestionRecord{})

	var totals struct {
		Total        int64
		Placeholders int64
		TotalReuse   int64
	}
	err := db.Select(
		"COUNT(*) AS total, " +
			"COUNT(*) FILTER (WHERE placeholder) AS placeholders, " +
			"COALESCE(SUM(reuse_count), 0) AS total_reuse",
	).Scan(&totals).Error
	if err != nil {
		return nil, classifyError("pool stats", err)
	}
	stats.Total = totals.Total
	stats.Placeholders = totals.Placeholders
	stats.TotalReuse = totals.TotalReuse

	var rows []struct {
		Difficulty entity.Difficulty
		Count      int64
	}
	err = r.db.WithContext(ctx).Model(&entity.QuestionRecord{}).
		Select("difficulty, COUNT(*) AS count").
		Group("difficulty").
		Scan(&rows).Error
	if err != nil {
		return nil, classifyError("pool stats by difficulty", err)
	}
	for _, row := range rows {
		stats.ByDifficulty[row.Difficulty] = row.Count
	}
	return stats, nil
}
