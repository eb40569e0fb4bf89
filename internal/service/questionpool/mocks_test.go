package questionpool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/repository/memory"
	"github.com/yourusername/gabarita-api/internal/service/generator"
)

// ============================================================================
// Тестовые двойники
// ============================================================================

// sequenceGenerator выдает новый валидный вопрос на каждый вызов: gen-1, gen-2, ...
type sequenceGenerator struct {
	mu    sync.Mutex
	n     int
	input []generator.GenerateInput
}

func (g *sequenceGenerator) Generate(ctx context.Context, in generator.GenerateInput) (*entity.QuestionRecord, error) {
	g.mu.Lock()
	g.n++
	n := g.n
	g.input = append(g.input, in)
	g.mu.Unlock()

	topic := "Geral"
	switch {
	case in.Filter.IsFocused():
		topic = in.Filter.FocusTopic
	case len(in.Topics) > 0:
		topic = in.Topics[0]
	}

	return entity.NewQuestionRecord(entity.QuestionDraft{
		ID:            fmt.Sprintf("gen-%d", n),
		Cargo:         in.Filter.Cargo,
		Bloco:         in.Filter.Bloco,
		KnowledgeType: in.Filter.KnowledgeType,
		Topic:         topic,
		Body:          fmt.Sprintf("Questão gerada %d", n),
		Kind:          in.Kind,
		Options: []entity.QuestionOption{
			{ID: "A", Text: "um"},
			{ID: "B", Text: "dois"},
			{ID: "C", Text: "três"},
			{ID: "D", Text: "quatro"},
		},
		AnswerKey:   "C",
		Explanation: "Explicação gerada.",
		CreatedBy:   in.CreatedBy,
	})
}

func (g *sequenceGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func (g *sequenceGenerator) LastInput() generator.GenerateInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.input[len(g.input)-1]
}

// MockGenerator реализует QuestionGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, in generator.GenerateInput) (*entity.QuestionRecord, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionRecord), args.Error(1)
}

// MockLedger реализует repository.ExposureLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) SeenIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedger) MarkSeen(ctx context.Context, userID, questionID string) error {
	args := m.Called(ctx, userID, questionID)
	return args.Error(0)
}

func (m *MockLedger) MarkAnswered(ctx context.Context, userID, questionID string, correct bool, responseTime time.Duration) error {
	args := m.Called(ctx, userID, questionID, correct, responseTime)
	return args.Error(0)
}

func (m *MockLedger) History(ctx context.Context, userID string, limit, offset int) ([]entity.HistoryEntry, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.HistoryEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type staticTopics []string

func (s staticTopics) PickTopics(cargo, bloco string, kt entity.KnowledgeType, n int) []string {
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// ============================================================================
// Окружение
// ============================================================================

type testEnv struct {
	pool    *memory.QuestionPool
	ledger  *memory.ExposureLedger
	pending *memory.PendingStore
	stats   *memory.StatsStore
	events  *memory.EventRecorder
	cache   *memory.CacheStore
	gen     *sequenceGenerator
	deps    *Dependencies
}

func newTestEnv() *testEnv {
	env := &testEnv{
		pool:    memory.NewQuestionPool(),
		pending: memory.NewPendingStore(),
		stats:   memory.NewStatsStore(),
		events:  memory.NewEventRecorder(),
		cache:   memory.NewCacheStore(),
		gen:     &sequenceGenerator{},
	}
	env.ledger = memory.NewExposureLedger(env.pool)
	env.deps = &Dependencies{
		Content:   env.pool,
		Ledger:    env.ledger,
		Generator: env.gen,
		Topics:    staticTopics{"Lei 8.080/90", "Lei 8.142/90", "Ética"},
		Pending:   env.pending,
		Stats:     env.stats,
		Events:    env.events,
		Cache:     env.cache,
	}
	return env
}

func (env *testEnv) engine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil, env.deps)
	require.NoError(t, err)
	return e
}

func (env *testEnv) recorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(nil, env.deps)
	require.NoError(t, err)
	return r
}

func (env *testEnv) seed(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		q, err := entity.NewQuestionRecord(entity.QuestionDraft{
			ID:            id,
			Cargo:         "Enfermeiro",
			Bloco:         "Bloco 1",
			KnowledgeType: entity.KnowledgeSpecific,
			Topic:         "Lei 8.080/90",
			Body:          "Pergunta " + id,
			Options: []entity.QuestionOption{
				{ID: "A", Text: "um"},
				{ID: "B", Text: "dois"},
			},
			AnswerKey:   "B",
			Explanation: "Porque B.",
		})
		require.NoError(t, err)
		_, err = env.pool.Insert(context.Background(), q)
		require.NoError(t, err)
	}
}

func enfermeiroRequest(userID string) SelectRequest {
	return SelectRequest{
		UserID: userID,
		Filter: entity.ContentFilter{
			Cargo:         "Enfermeiro",
			Bloco:         "Bloco 1",
			KnowledgeType: entity.KnowledgeSpecific,
		},
	}
}
