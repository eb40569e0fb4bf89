package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
	"github.com/yourusername/gabarita-api/internal/service/questionpool"
)

// StatsCacheTTL - время жизни кэша статистики пользователя
const StatsCacheTTL = 60 * time.Second

// StatsService предоставляет статистику пользователя с кэшированием в Redis
type StatsService struct {
	statsRepo repository.UserStatsRepository
	cacheRepo repository.CacheRepository // может быть nil
}

// NewStatsService создает новый сервис статистики
func NewStatsService(statsRepo repository.UserStatsRepository, cacheRepo repository.CacheRepository) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		cacheRepo: cacheRepo,
	}
}

// GetUserStats возвращает статистику пользователя.
// Пользователь без ответов получает нулевую статистику первого уровня.
func (s *StatsService) GetUserStats(ctx context.Context, userID string) (*entity.UserStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrValidation)
	}
	cacheKey := questionpool.StatsCacheKey(userID)

	if s.cacheRepo != nil {
		var cached entity.UserStats
		err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[StatsService] Ошибка чтения кэша статистики %s: %v", userID, err)
		}
	}

	stats, err := s.statsRepo.Get(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		stats = &entity.UserStats{UserID: userID, Level: entity.LevelForXP(0)}
	} else if err != nil {
		return nil, fmt.Errorf("get stats for %s: %w", userID, err)
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(ctx, cacheKey, stats, StatsCacheTTL); err != nil {
			log.Printf("[StatsService] Не удалось закэшировать статистику %s: %v", userID, err)
		}
	}
	return stats, nil
}
