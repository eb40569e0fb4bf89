package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// Ограничения пагинации и экспорта истории
const (
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 100
	MaxHistoryExportRows   = 5000
	historyExportBatch     = 500
)

// HistoryService предоставляет историю показов вопросов пользователю
type HistoryService struct {
	ledger repository.ExposureLedger
}

// NewHistoryService создает новый сервис истории
func NewHistoryService(ledger repository.ExposureLedger) *HistoryService {
	return &HistoryService{ledger: ledger}
}

// GetHistory возвращает страницу истории (page с 1) и общее количество записей
func (s *HistoryService) GetHistory(ctx context.Context, userID string, page, pageSize int) ([]entity.HistoryEntry, int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, 0, fmt.Errorf("%w: user_id is required", apperrors.ErrValidation)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}

	entries, total, err := s.ledger.History(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("get history for %s: %w", userID, err)
	}
	return entries, total, nil
}

// GetHistoryAll возвращает всю историю для экспорта (не более MaxHistoryExportRows записей)
func (s *HistoryService) GetHistoryAll(ctx context.Context, userID string) ([]entity.HistoryEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrValidation)
	}

	all := make([]entity.HistoryEntry, 0, historyExportBatch)
	for offset := 0; offset < MaxHistoryExportRows; offset += historyExportBatch {
		batch, total, err := s.ledger.History(ctx, userID, historyExportBatch, offset)
		if err != nil {
			return nil, fmt.Errorf("export history for %s: %w", userID, err)
		}
		all = append(all, batch...)
		if len(batch) < historyExportBatch || int64(len(all)) >= total {
			break
		}
	}
	return all, nil
}
