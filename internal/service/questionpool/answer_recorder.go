package questionpool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// AnswerRequest - ответ пользователя на выданный вопрос
type AnswerRequest struct {
	UserID         string
	QuestionID     string
	ChosenOptionID string
	ResponseTime   time.Duration
}

// Feedback - результат проверки ответа
type Feedback struct {
	Correct        bool   `json:"correct"`
	AnswerKey      string `json:"answer_key"`
	Explanation    string `json:"explanation"`
	ChosenOptionID string `json:"chosen_option_id"`
}

// Recorder проверяет ответы, отмечает их в журнале показов и обновляет статистику
type Recorder struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	// Фоновые обновления статистики
	wg  sync.WaitGroup
	now func() time.Time
}

// NewRecorder создает регистратор ответов
func NewRecorder(config *Config, deps *Dependencies) (*Recorder, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Recorder{
		config: config.withDefaults(),
		deps:   deps,
		now:    time.Now,
	}, nil
}

// Record проверяет ответ. Нарушения целостности журнала (ответ без показа, повторный ответ)
// только логируются: пользователь все равно получает результат.
func (r *Recorder) Record(ctx context.Context, req AnswerRequest) (*Feedback, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.QuestionID = strings.TrimSpace(req.QuestionID)
	if req.UserID == "" || req.QuestionID == "" {
		return nil, fmt.Errorf("%w: user_id and question_id are required", apperrors.ErrValidation)
	}
	if entity.NormalizeOptionID(req.ChosenOptionID) == "" {
		return nil, fmt.Errorf("%w: chosen_option_id is required", apperrors.ErrValidation)
	}
	if req.ResponseTime < 0 {
		req.ResponseTime = 0
	}

	record, err := r.lookup(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}

	if !record.HasOption(req.ChosenOptionID) {
		return nil, fmt.Errorf("%w: unknown option %q for question %s", apperrors.ErrValidation, req.ChosenOptionID, record.ID)
	}

	correct := record.IsCorrect(req.ChosenOptionID)

	wctx, cancel := writeContext(ctx, r.config.WriteTimeout)
	err = r.deps.Ledger.MarkAnswered(wctx, req.UserID, req.QuestionID, correct, req.ResponseTime)
	cancel()

	countStats := true
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotSeen):
		log.Printf("[AnswerRecorder] WARNING: Пользователь %s ответил на вопрос %s, который ему не показывали", req.UserID, req.QuestionID)
		countStats = false
	case errors.Is(err, repository.ErrAlreadyAnswered):
		log.Printf("[AnswerRecorder] WARNING: Пользователь %s повторно ответил на вопрос %s", req.UserID, req.QuestionID)
		countStats = false
	default:
		log.Printf("[AnswerRecorder] WARNING: Не удалось записать ответ пользователя %s на вопрос %s: %v", req.UserID, req.QuestionID, err)
	}

	if countStats {
		r.emitAsync(ctx, entity.AnswerEvent{
			UserID:         req.UserID,
			QuestionID:     req.QuestionID,
			Topic:          record.Topic,
			Correct:        correct,
			ResponseTimeMs: req.ResponseTime.Milliseconds(),
			AnsweredAt:     r.now(),
		})
	}

	return &Feedback{
		Correct:        correct,
		AnswerKey:      record.AnswerKey,
		Explanation:    record.Explanation,
		ChosenOptionID: entity.NormalizeOptionID(req.ChosenOptionID),
	}, nil
}

// lookup ищет вопрос в пуле, затем в кэше ожидающих записей
func (r *Recorder) lookup(ctx context.Context, questionID string) (*entity.QuestionRecord, error) {
	record, err := r.deps.Content.Lookup(ctx, questionID)
	if err == nil {
		return record, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	storeDown := !errors.Is(err, apperrors.ErrNotFound)
	if storeDown {
		log.Printf("[AnswerRecorder] WARNING: Пул вопросов недоступен при поиске %s: %v", questionID, err)
	}

	if r.deps.Pending != nil {
		pending, pErr := r.deps.Pending.Fetch(ctx, questionID)
		if pErr == nil {
			return pending, nil
		}
		if !errors.Is(pErr, apperrors.ErrNotFound) {
			log.Printf("[AnswerRecorder] WARNING: Кэш ожидающих вопросов недоступен: %v", pErr)
		}
	}

	if storeDown {
		return nil, fmt.Errorf("%w: content store is unreachable", apperrors.ErrServiceUnavailable)
	}
	log.Printf("[AnswerRecorder] WARNING: Ответ на неизвестный вопрос %s", questionID)
	return nil, ErrUnknownQuestion
}

// emitAsync обновляет статистику в фоне; ошибки только логируются
func (r *Recorder) emitAsync(ctx context.Context, event entity.AnswerEvent) {
	if r.deps.Stats == nil && r.deps.Events == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		sctx, cancel := writeContext(ctx, r.config.StatsTimeout)
		defer cancel()

		if r.deps.Stats != nil {
			if err := r.deps.Stats.ApplyAnswer(sctx, event.UserID, event.Correct, event.AnsweredAt); err != nil {
				log.Printf("[AnswerRecorder] Ошибка обновления статистики пользователя %s: %v", event.UserID, err)
			} else if r.deps.Cache != nil {
				if err := r.deps.Cache.Delete(sctx, StatsCacheKey(event.UserID)); err != nil {
					log.Printf("[AnswerRecorder] Не удалось сбросить кэш статистики пользователя %s: %v", event.UserID, err)
				}
			}
		}

		if r.deps.Events != nil {
			if err := r.deps.Events.PublishAnswer(sctx, event); err != nil {
				log.Printf("[AnswerRecorder] Ошибка публикации события ответа пользователя %s: %v", event.UserID, err)
			}
		}
	}()
}

// Wait дожидается завершения фоновых обновлений статистики
func (r *Recorder) Wait() {
	r.wg.Wait()
}
