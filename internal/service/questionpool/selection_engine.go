package questionpool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/gabarita-api/internal/catalog"
	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
	"github.com/yourusername/gabarita-api/internal/service/generator"
)

// SelectRequest - запрос на выдачу вопроса
type SelectRequest struct {
	UserID string
	Filter entity.ContentFilter
	Kind   entity.QuestionKind
}

// Selection - выданный вопрос без gabarito и объяснения
type Selection struct {
	Question entity.PublicQuestion
	Source   Source
}

// Engine решает, взять вопрос из пула или сгенерировать новый,
// и гарантирует, что пользователь не увидит один вопрос дважды
type Engine struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	newID func() string
}

// NewEngine создает движок выбора вопросов
func NewEngine(config *Config, deps *Dependencies) (*Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Generator == nil {
		return nil, errors.New("question generator is required")
	}
	return &Engine{
		config: config.withDefaults(),
		deps:   deps,
		newID:  uuid.NewString,
	}, nil
}

// Select выдает пользователю вопрос, который он еще не видел.
// Единственная ошибка, кроме ошибок валидации и отмены контекста, - apperrors.ErrServiceUnavailable.
func (e *Engine) Select(ctx context.Context, req SelectRequest) (*Selection, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	// 1. Пул
	record, err := e.fromPool(ctx, req)
	if err != nil {
		return nil, err
	}
	if record != nil {
		log.Printf("[SelectionEngine] Пользователь %s получил вопрос %s из пула (тема: %s)", req.UserID, record.ID, record.Topic)
		return &Selection{Question: record.Sanitize(), Source: SourcePool}, nil
	}

	// 2. Генерация или заглушка
	record, source, err := e.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	// Показ записывается до вставки в пул, иначе параллельный запрос того же пользователя
	// может успеть выбрать этот вопрос из пула. Новый ID не может быть повтором,
	// поэтому ошибка MarkSeen только логируется.
	wctx, cancel := writeContext(ctx, e.config.WriteTimeout)
	defer cancel()
	if err := e.deps.Ledger.MarkSeen(wctx, req.UserID, record.ID); err != nil {
		log.Printf("[SelectionEngine] WARNING: Не удалось записать показ нового вопроса %s пользователю %s: %v", record.ID, req.UserID, err)
	}
	e.persist(ctx, record)

	log.Printf("[SelectionEngine] Пользователь %s получил вопрос %s (источник: %s)", req.UserID, record.ID, source)
	return &Selection{Question: record.Sanitize(), Source: source}, nil
}

func normalizeRequest(req SelectRequest) (SelectRequest, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Filter.Cargo = strings.TrimSpace(req.Filter.Cargo)
	req.Filter.Bloco = catalog.NormalizeBloco(req.Filter.Bloco)
	req.Filter.FocusTopic = strings.TrimSpace(req.Filter.FocusTopic)

	if req.UserID == "" {
		return req, fmt.Errorf("%w: user_id is required", apperrors.ErrValidation)
	}
	if req.Filter.Cargo == "" || req.Filter.Bloco == "" {
		return req, fmt.Errorf("%w: cargo and bloco are required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(req.Filter.Cargo) > entity.MaxCargoLength || utf8.RuneCountInString(req.Filter.Bloco) > entity.MaxBlocoLength {
		return req, fmt.Errorf("%w: cargo and bloco must be at most %d characters", apperrors.ErrValidation, entity.MaxBlocoLength)
	}
	if utf8.RuneCountInString(req.Filter.FocusTopic) > entity.MaxTopicLength {
		return req, fmt.Errorf("%w: focus topic must be at most %d characters", apperrors.ErrValidation, entity.MaxTopicLength)
	}
	if req.Filter.KnowledgeType == "" {
		req.Filter.KnowledgeType = entity.KnowledgeAny
	}
	if !req.Filter.KnowledgeType.IsValid() {
		return req, fmt.Errorf("%w: unknown knowledge type %q", apperrors.ErrValidation, req.Filter.KnowledgeType)
	}
	if req.Kind == "" {
		req.Kind = entity.KindMultipleChoice
	}
	if !req.Kind.IsValid() {
		return req, fmt.Errorf("%w: unknown question kind %q", apperrors.ErrValidation, req.Kind)
	}
	return req, nil
}

// fromPool возвращает вопрос из пула, уже записанный в журнал показов, или nil, если нужно генерировать
func (e *Engine) fromPool(ctx context.Context, req SelectRequest) (*entity.QuestionRecord, error) {
	seen, err := e.deps.Ledger.SeenIDs(ctx, req.UserID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Без журнала повтор нельзя исключить: пул пропускаем
		log.Printf("[SelectionEngine] WARNING: Журнал показов недоступен для пользователя %s: %v", req.UserID, err)
		if pingErr := e.deps.Content.Ping(ctx); pingErr != nil {
			log.Printf("[SelectionEngine] CRITICAL: Пул вопросов тоже недоступен: %v", pingErr)
			return nil, fmt.Errorf("%w: exposure ledger and content store are unreachable", apperrors.ErrServiceUnavailable)
		}
		return nil, nil
	}

	exclude := seen
	for attempt := 1; attempt <= e.config.MaxPoolAttempts; attempt++ {
		candidates, err := e.deps.Content.QueryAvailable(ctx, req.Filter, exclude, e.config.PoolCandidates)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Printf("[SelectionEngine] WARNING: Пул вопросов недоступен, считаем его пустым: %v", err)
			return nil, nil
		}
		if len(candidates) == 0 {
			return nil, nil
		}

		candidate := candidates[rand.IntN(len(candidates))]

		wctx, cancel := writeContext(ctx, e.config.WriteTimeout)
		err = e.deps.Ledger.MarkSeen(wctx, req.UserID, candidate.ID)
		cancel()

		switch {
		case err == nil:
			e.touchReuse(ctx, candidate.ID)
			return &candidate, nil
		case errors.Is(err, repository.ErrAlreadySeen):
			// Параллельный запрос того же пользователя успел выдать этот вопрос
			log.Printf("[SelectionEngine] Вопрос %s уже показан пользователю %s (попытка %d/%d)",
				candidate.ID, req.UserID, attempt, e.config.MaxPoolAttempts)
			exclude = e.refreshExclusions(ctx, req.UserID, exclude, candidate.ID)
		default:
			log.Printf("[SelectionEngine] WARNING: Не удалось записать показ вопроса %s пользователю %s, переходим к генерации: %v",
				candidate.ID, req.UserID, err)
			return nil, nil
		}
	}

	log.Printf("[SelectionEngine] Исчерпаны попытки выбора из пула для пользователя %s", req.UserID)
	return nil, nil
}

func (e *Engine) refreshExclusions(ctx context.Context, userID string, current []string, conflicted string) []string {
	seen, err := e.deps.Ledger.SeenIDs(ctx, userID)
	if err != nil {
		seen = current
	}
	out := make([]string, 0, len(seen)+1)
	out = append(out, seen...)
	return append(out, conflicted)
}

func (e *Engine) touchReuse(ctx context.Context, id string) {
	wctx, cancel := writeContext(ctx, e.config.WriteTimeout)
	defer cancel()
	if err := e.deps.Content.IncrementReuse(wctx, id); err != nil {
		log.Printf("[SelectionEngine] Не удалось обновить счетчик переиспользования вопроса %s: %v", id, err)
	}
}

// generate вызывает LLM, а при неудаче строит заглушку
func (e *Engine) generate(ctx context.Context, req SelectRequest) (*entity.QuestionRecord, Source, error) {
	var topics []string
	if !req.Filter.IsFocused() && e.deps.Topics != nil {
		topics = e.deps.Topics.PickTopics(req.Filter.Cargo, req.Filter.Bloco, req.Filter.KnowledgeType, e.config.TopicsPerPrompt)
	}

	genCtx, cancel := context.WithTimeout(ctx, e.config.GenerateTimeout)
	record, err := e.deps.Generator.Generate(genCtx, generator.GenerateInput{
		Filter:    req.Filter,
		Topics:    topics,
		Kind:      req.Kind,
		CreatedBy: req.UserID,
	})
	cancel()
	if err == nil {
		return record, SourceGenerated, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", ctxErr
	}
	log.Printf("[SelectionEngine] Генерация вопроса для %s / %s не удалась, выдаем заглушку: %v",
		req.Filter.Cargo, req.Filter.Bloco, err)

	record, err = newFallbackRecord(e.newID(), req.Filter, req.Kind, topics)
	if err != nil {
		log.Printf("[SelectionEngine] CRITICAL: Не удалось построить заглушку: %v", err)
		return nil, "", fmt.Errorf("build fallback question: %w", err)
	}
	return record, SourceFallback, nil
}

// persist сохраняет новую запись; при ошибке записи кладет ее в кэш ожидающих,
// чтобы ответ на вопрос все равно можно было оценить
func (e *Engine) persist(ctx context.Context, record *entity.QuestionRecord) {
	wctx, cancel := writeContext(ctx, e.config.WriteTimeout)
	defer cancel()

	_, err := e.deps.Content.Insert(wctx, record)
	if err == nil {
		return
	}
	log.Printf("[SelectionEngine] WARNING: Не удалось сохранить вопрос %s в пул: %v", record.ID, err)

	if e.deps.Pending == nil {
		log.Printf("[SelectionEngine] CRITICAL: Вопрос %s не сохранен, ответ на него не будет оценен", record.ID)
		return
	}
	if err := e.deps.Pending.Park(wctx, record); err != nil {
		log.Printf("[SelectionEngine] CRITICAL: Вопрос %s не сохранен ни в пул, ни в кэш: %v", record.ID, err)
	}
}
