package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// StatsStore - in-memory реализация UserStatsRepository
type StatsStore struct {
	mu    sync.Mutex
	stats map[string]*entity.UserStats
}

// NewStatsStore создает пустое хранилище статистики
func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]*entity.UserStats)}
}

// ApplyAnswer учитывает ответ пользователя
func (s *StatsStore) ApplyAnswer(ctx context.Context, userID string, correct bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[userID]
	if !ok {
		st = &entity.UserStats{UserID: userID, Level: 1}
		s.stats[userID] = st
	}
	st.Apply(correct, at)
	return nil
}

// Get возвращает копию статистики пользователя
func (s *StatsStore) Get(ctx context.Context, userID string) (*entity.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *st
	return &c, nil
}

// PendingStore - in-memory реализация PendingRecordStore
type PendingStore struct {
	mu      sync.Mutex
	records map[string]entity.QuestionRecord
}

// NewPendingStore создает пустое хранилище отложенных записей
func NewPendingStore() *PendingStore {
	return &PendingStore{records: make(map[string]entity.QuestionRecord)}
}

// Park сохраняет запись
func (s *PendingStore) Park(ctx context.Context, record *entity.QuestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Fetch возвращает сохраненную запись
func (s *PendingStore) Fetch(ctx context.Context, id string) (*entity.QuestionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := cloneRecord(&rec)
	return &c, nil
}

// EventRecorder - in-memory EventPublisher, запоминает опубликованные события
type EventRecorder struct {
	mu     sync.Mutex
	events []entity.AnswerEvent
}

// NewEventRecorder создает пустой EventRecorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// PublishAnswer запоминает событие
func (r *EventRecorder) PublishAnswer(ctx context.Context, event entity.AnswerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events возвращает копию опубликованных событий
func (r *EventRecorder) Events() []entity.AnswerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.AnswerEvent, len(r.events))
	copy(out, r.events)
	return out
}
