package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// PoolService отдает статистику пула и состояние хранилищ
type PoolService struct {
	content repository.ContentStore
	ledger  repository.ExposureLedger
}

// NewPoolService создает новый сервис пула
func NewPoolService(content repository.ContentStore, ledger repository.ExposureLedger) *PoolService {
	return &PoolService{content: content, ledger: ledger}
}

// GetPoolStats возвращает агрегированную статистику пула вопросов
func (s *PoolService) GetPoolStats(ctx context.Context) (*repository.PoolStats, error) {
	stats, err := s.content.PoolStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pool stats: %w", err)
	}
	return stats, nil
}

// HealthStatus - состояние хранилищ
type HealthStatus struct {
	ContentStore string `json:"content_store"`
	Ledger       string `json:"exposure_ledger"`
}

// Health проверяет оба хранилища. ErrServiceUnavailable - только если недоступны оба:
// при одном живом хранилище сервис продолжает выдавать вопросы.
func (s *PoolService) Health(ctx context.Context) (*HealthStatus, error) {
	contentErr := s.content.Ping(ctx)
	ledgerErr := s.ledger.Ping(ctx)

	status := &HealthStatus{ContentStore: "ok", Ledger: "ok"}
	if contentErr != nil {
		status.ContentStore = "unavailable"
	}
	if ledgerErr != nil {
		status.Ledger = "unavailable"
	}
	if contentErr != nil && ledgerErr != nil {
		return status, fmt.Errorf("%w: %w", apperrors.ErrServiceUnavailable, errors.Join(contentErr, ledgerErr))
	}
	return status, nil
}
