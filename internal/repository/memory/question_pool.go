package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// QuestionPool - in-memory реализация ContentStore.
// Используется в dev-режиме (storage.driver=memory) и в тестах.
type QuestionPool struct {
	mu        sync.RWMutex
	questions map[string]*entity.QuestionRecord
	order     []string // порядок вставки, чтобы выдача была детерминированной
	failure   error
}

// NewQuestionPool создает пустой пул
func NewQuestionPool() *QuestionPool {
	return &QuestionPool{
		questions: make(map[string]*entity.QuestionRecord),
		order:     make([]string, 0),
	}
}

// Fail переводит хранилище в режим отказа: все операции возвращают err (nil - восстановить)
func (p *QuestionPool) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failure = err
}

func (p *QuestionPool) check() error {
	if p.failure != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, p.failure)
	}
	return nil
}

// QueryAvailable возвращает копии подходящих записей. Если их больше limit, выдается случайная выборка.
func (p *QuestionPool) QueryAvailable(ctx context.Context, filter entity.ContentFilter, excludeIDs []string, limit int) ([]entity.QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(); err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	result := make([]entity.QuestionRecord, 0)
	for _, id := range p.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		q := p.questions[id]
		if filter.Matches(q) {
			result = append(result, cloneRecord(q))
		}
	}
	if limit > 0 && len(result) > limit {
		rand.Shuffle(len(result), func(i, j int) { result[i], result[j] = result[j], result[i] })
		result = result[:limit]
	}
	return result, nil
}

// Insert добавляет запись. Повторная вставка того же ID - ErrConflict.
func (p *QuestionPool) Insert(ctx context.Context, record *entity.QuestionRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return "", err
	}
	if _, exists := p.questions[record.ID]; exists {
		return "", fmt.Errorf("%w: question %s already exists", apperrors.ErrConflict, record.ID)
	}
	stored := cloneRecord(record)
	p.questions[record.ID] = &stored
	p.order = append(p.order, record.ID)
	return record.ID, nil
}

// IncrementReuse увеличивает счетчик переиспользования
func (p *QuestionPool) IncrementReuse(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return err
	}
	q, ok := p.questions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now().UTC()
	q.ReuseCount++
	q.LastUsedAt = &now
	return nil
}

// Lookup возвращает копию записи по ID
func (p *QuestionPool) Lookup(ctx context.Context, id string) (*entity.QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	q, ok := p.questions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := cloneRecord(q)
	return &c, nil
}

// Ping сообщает о доступности хранилища
func (p *QuestionPool) Ping(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.check()
}

// PoolStats считает статистику пула
func (p *QuestionPool) PoolStats(ctx context.Context) (*repository.PoolStats, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	stats := &repository.PoolStats{ByDifficulty: make(map[entity.Difficulty]int64)}
	for _, q := range p.questions {
		stats.Total++
		if q.Placeholder {
			stats.Placeholders++
		}
		stats.ByDifficulty[q.Difficulty]++
		stats.TotalReuse += int64(q.ReuseCount)
	}
	return stats, nil
}

// Len возвращает количество записей в пуле
func (p *QuestionPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.questions)
}

// IDs возвращает ID всех записей в порядке вставки
func (p *QuestionPool) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, len(p.order))
	copy(ids, p.order)
	return ids
}

func cloneRecord(q *entity.QuestionRecord) entity.QuestionRecord {
	c := *q
	c.Options = make(entity.OptionArray, len(q.Options))
	copy(c.Options, q.Options)
	if q.LastUsedAt != nil {
		t := *q.LastUsedAt
		c.LastUsedAt = &t
	}
	return c
}
