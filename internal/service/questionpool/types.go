package questionpool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
	"github.com/yourusername/gabarita-api/internal/service/generator"
)

// ErrUnknownQuestion - ответ пришел на вопрос, которого нет ни в пуле, ни в кэше ожидающих записей
var ErrUnknownQuestion = fmt.Errorf("%w: unknown question", apperrors.ErrNotFound)

// Source - откуда взят выданный вопрос
type Source string

const (
	SourcePool      Source = "pool"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Config содержит таймауты и лимиты движка выбора
type Config struct {
	GenerateTimeout time.Duration // Верхняя граница на один вызов LLM
	WriteTimeout    time.Duration // Таймаут отвязанных от запроса записей (Insert, MarkSeen, IncrementReuse)
	MaxPoolAttempts int           // Сколько раз повторять выбор из пула при конфликте MarkSeen
	PoolCandidates  int           // Сколько случайных кандидатов читать из пула за одну попытку
	StatsTimeout    time.Duration // Таймаут асинхронного обновления статистики
	TopicsPerPrompt int           // Сколько тем edital передавать в промпт
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		GenerateTimeout: 30 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxPoolAttempts: 3,
		PoolCandidates:  20,
		StatsTimeout:    5 * time.Second,
		TopicsPerPrompt: 3,
	}
}

// withDefaults заполняет нулевые значения значениями по умолчанию
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.GenerateTimeout <= 0 {
		out.GenerateTimeout = def.GenerateTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.MaxPoolAttempts <= 0 {
		out.MaxPoolAttempts = def.MaxPoolAttempts
	}
	if out.PoolCandidates <= 0 {
		out.PoolCandidates = def.PoolCandidates
	}
	if out.StatsTimeout <= 0 {
		out.StatsTimeout = def.StatsTimeout
	}
	if out.TopicsPerPrompt <= 0 {
		out.TopicsPerPrompt = def.TopicsPerPrompt
	}
	return &out
}

// QuestionGenerator создает новый вопрос через LLM.
// Ошибка всегда *generator.GenerationError.
type QuestionGenerator interface {
	Generate(ctx context.Context, in generator.GenerateInput) (*entity.QuestionRecord, error)
}

// TopicSource выдает темы edital для промпта
type TopicSource interface {
	PickTopics(cargo, bloco string, kt entity.KnowledgeType, n int) []string
}

// StatsCacheKey - ключ кэша статистики пользователя
func StatsCacheKey(userID string) string {
	return "stats:user:" + userID
}

// Dependencies содержит зависимости движка и регистратора ответов
type Dependencies struct {
	Content   repository.ContentStore
	Ledger    repository.ExposureLedger
	Generator QuestionGenerator
	Topics    TopicSource

	// Необязательные зависимости
	Pending repository.PendingRecordStore
	Stats   repository.UserStatsRepository
	Events  repository.EventPublisher
	Cache   repository.CacheRepository
}

func (d *Dependencies) validate() error {
	if d == nil {
		return errors.New("dependencies are required")
	}
	if d.Content == nil {
		return errors.New("content store is required")
	}
	if d.Ledger == nil {
		return errors.New("exposure ledger is required")
	}
	return nil
}

// writeContext отвязывает запись от отмены клиентского запроса
func writeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
