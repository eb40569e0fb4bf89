package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

// UserStatsRepo реализует repository.UserStatsRepository
type UserStatsRepo struct {
	db *gorm.DB
}

// NewUserStatsRepo создает новый репозиторий статистики
func NewUserStatsRepo(db *gorm.DB) *UserStatsRepo {
	return &UserStatsRepo{db: db}
}

// ApplyAnswer делает upsert одним запросом: все счетчики считаются выражениями SQL,
// поэтому параллельные ответы не теряют инкременты
func (r *UserStatsRepo) ApplyAnswer(ctx context.Context, userID string, correct bool, at time.Time) error {
	xp := entity.XPForAnswer(correct)
	initial := entity.UserStats{UserID: userID, Level: 1}
	initial.Apply(correct, at)

	var streakExpr, bestExpr, correctExpr clause.Expr
	if correct {
		correctExpr = gorm.Expr("user_stats.correct + 1")
		streakExpr = gorm.Expr("user_stats.current_streak + 1")
		bestExpr = gorm.Expr("GREATEST(user_stats.best_streak, user_stats.current_streak + 1)")
	} else {
		correctExpr = gorm.Expr("user_stats.correct")
		streakExpr = gorm.Expr("0")
		bestExpr = gorm.Expr("user_stats.best_streak")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"answered":         gorm.Expr("user_stats.answered + 1"),
				"correct":          correctExpr,
				"current_streak":   streakExpr,
				"best_streak":      bestExpr,
				"xp":               gorm.Expr("user_stats.xp + ?", xp),
				"level":            gorm.Expr("(user_stats.xp + ?) / ? + 1", xp, entity.XPPerLevel),
				"last_activity_at": at,
				"updated_at":       at,
			}),
		}).
		Create(&initial).Error
	return classifyError("apply answer", err)
}

// Get возвращает статистику пользователя
func (r *UserStatsRepo) Get(ctx context.Context, userID string) (*entity.UserStats, error) {
	var stats entity.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, classifyError("get user stats", err)
	}
	return &stats, nil
}
