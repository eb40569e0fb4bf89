package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// ExposureLedger - in-memory журнал показов.
// Ключ карты (userID, questionID) гарантирует не более одной записи на пару.
type ExposureLedger struct {
	mu      sync.Mutex
	byUser  map[string]map[string]*entity.ExposureRecord
	pool    *QuestionPool // опционально, для краткого описания вопроса в истории
	nextID  uint
	failure error
}

// NewExposureLedger создает журнал. pool может быть nil.
func NewExposureLedger(pool *QuestionPool) *ExposureLedger {
	return &ExposureLedger{
		byUser: make(map[string]map[string]*entity.ExposureRecord),
		pool:   pool,
	}
}

// Fail переводит журнал в режим отказа (nil - восстановить)
func (l *ExposureLedger) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failure = err
}

func (l *ExposureLedger) check() error {
	if l.failure != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, l.failure)
	}
	return nil
}

// SeenIDs возвращает все показанные пользователю вопросы
func (l *ExposureLedger) SeenIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(); err != nil {
		return nil, err
	}
	return sortedKeys(l.byUser[userID]), nil
}

// MarkSeen - insert-if-absent под мьютексом
func (l *ExposureLedger) MarkSeen(ctx context.Context, userID, questionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(); err != nil {
		return err
	}
	records, ok := l.byUser[userID]
	if !ok {
		records = make(map[string]*entity.ExposureRecord)
		l.byUser[userID] = records
	}
	if _, exists := records[questionID]; exists {
		return repository.ErrAlreadySeen
	}
	l.nextID++
	records[questionID] = &entity.ExposureRecord{
		ID:         l.nextID,
		UserID:     userID,
		QuestionID: questionID,
		SeenAt:     time.Now().UTC(),
	}
	return nil
}

// MarkAnswered переводит запись в answered=true один раз
func (l *ExposureLedger) MarkAnswered(ctx context.Context, userID, questionID string, correct bool, responseTime time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(); err != nil {
		return err
	}
	rec, ok := l.byUser[userID][questionID]
	if !ok {
		return repository.ErrNotSeen
	}
	if rec.Answered {
		return repository.ErrAlreadyAnswered
	}
	now := time.Now().UTC()
	rec.Answered = true
	rec.Correct = correct
	rec.ResponseTimeMs = responseTime.Milliseconds()
	rec.AnsweredAt = &now
	return nil
}

// History возвращает показы пользователя, новые первыми
func (l *ExposureLedger) History(ctx context.Context, userID string, limit, offset int) ([]entity.HistoryEntry, int64, error) {
	l.mu.Lock()
	records := make([]entity.ExposureRecord, 0, len(l.byUser[userID]))
	if err := l.check(); err != nil {
		l.mu.Unlock()
		return nil, 0, err
	}
	for _, rec := range l.byUser[userID] {
		records = append(records, *rec)
	}
	l.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	total := int64(len(records))

	if offset >= len(records) {
		return []entity.HistoryEntry{}, total, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	entries := make([]entity.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := entity.HistoryEntry{
			QuestionID:     rec.QuestionID,
			SeenAt:         rec.SeenAt,
			Answered:       rec.Answered,
			Correct:        rec.Correct,
			ResponseTimeMs: rec.ResponseTimeMs,
			AnsweredAt:     rec.AnsweredAt,
		}
		if l.pool != nil {
			if q, err := l.pool.Lookup(ctx, rec.QuestionID); err == nil {
				entry.Cargo = q.Cargo
				entry.Bloco = q.Bloco
				entry.Topic = q.Topic
				entry.Body = q.Body
				entry.Kind = q.Kind
				entry.Difficulty = q.Difficulty
			}
		}
		entries = append(entries, entry)
	}
	return entries, total, nil
}

// Ping сообщает о доступности журнала
func (l *ExposureLedger) Ping(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check()
}

// Record возвращает копию записи показа (для тестов и отладки)
func (l *ExposureLedger) Record(userID, questionID string) (entity.ExposureRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byUser[userID][questionID]
	if !ok {
		return entity.ExposureRecord{}, false
	}
	return *rec, true
}

// Count возвращает количество записей показа пользователя
func (l *ExposureLedger) Count(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byUser[userID])
}

// sortedKeys используется для стабильной выдачи SeenIDs
func sortedKeys(m map[string]*entity.ExposureRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
