package dto

import (
	"time"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	"github.com/yourusername/gabarita-api/internal/service/questionpool"
)

// GenerateQuestionRequest - запрос на выдачу вопроса
type GenerateQuestionRequest struct {
	UserID        string `json:"user_id" binding:"required,max=128"`
	Cargo         string `json:"cargo" binding:"required,max=200"`
	Bloco         string `json:"bloco" binding:"required,max=500"` // метка с описанием после ':'; после нормализации не длиннее 200
	KnowledgeType string `json:"knowledge_type,omitempty"` // specific | general | any (также значения фронтенда)
	FocusTopic    string `json:"focus_topic,omitempty" binding:"omitempty,max=500"`
	QuestionKind  string `json:"question_kind,omitempty"` // по умолчанию multiple_choice
}

// AnswerRequest - ответ пользователя на вопрос
type AnswerRequest struct {
	UserID         string `json:"user_id" binding:"required,max=128"`
	QuestionID     string `json:"question_id" binding:"required,max=128"`
	ChosenOptionID string `json:"chosen_option_id" binding:"required,max=10"`
	ResponseTimeMs int64  `json:"response_time" binding:"min=0,max=86400000"` // миллисекунды, не больше суток
}

// ResponseTime возвращает время ответа как Duration
func (r AnswerRequest) ResponseTime() time.Duration {
	return time.Duration(r.ResponseTimeMs) * time.Millisecond
}

// QuestionResponse - выданный вопрос (без gabarito и объяснения)
type QuestionResponse struct {
	ID         string                  `json:"id"`
	Body       string                  `json:"body"`
	Kind       entity.QuestionKind     `json:"kind"`
	Options    []entity.QuestionOption `json:"options"`
	Topic      string                  `json:"topic"`
	Difficulty entity.Difficulty       `json:"difficulty"`
	Cargo      string                  `json:"cargo"`
	Bloco      string                  `json:"bloco"`
	Source     questionpool.Source     `json:"source"`
}

// NewQuestionResponse создает DTO для выданного вопроса
func NewQuestionResponse(s *questionpool.Selection) *QuestionResponse {
	q := s.Question
	return &QuestionResponse{
		ID:         q.ID,
		Body:       q.Body,
		Kind:       q.Kind,
		Options:    q.Options,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
		Cargo:      q.Cargo,
		Bloco:      q.Bloco,
		Source:     s.Source,
	}
}

// PaginatedHistoryResponse - страница истории показов
type PaginatedHistoryResponse struct {
	Entries  []entity.HistoryEntry `json:"entries"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// NewPaginatedHistoryResponse создает DTO страницы истории
func NewPaginatedHistoryResponse(entries []entity.HistoryEntry, total int64, page, pageSize int) *PaginatedHistoryResponse {
	if entries == nil {
		entries = []entity.HistoryEntry{}
	}
	return &PaginatedHistoryResponse{Entries: entries, Total: total, Page: page, PageSize: pageSize}
}

// UserStatsResponse - статистика пользователя
type UserStatsResponse struct {
	UserID         string     `json:"user_id"`
	Answered       int        `json:"answered"`
	Correct        int        `json:"correct"`
	Accuracy       float64    `json:"accuracy"`
	CurrentStreak  int        `json:"current_streak"`
	BestStreak     int        `json:"best_streak"`
	XP             int        `json:"xp"`
	Level          int        `json:"level"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

// NewUserStatsResponse создает DTO статистики
func NewUserStatsResponse(s *entity.UserStats) *UserStatsResponse {
	return &UserStatsResponse{
		UserID:         s.UserID,
		Answered:       s.Answered,
		Correct:        s.Correct,
		Accuracy:       s.Accuracy(),
		CurrentStreak:  s.CurrentStreak,
		BestStreak:     s.BestStreak,
		XP:             s.XP,
		Level:          s.Level,
		LastActivityAt: s.LastActivityAt,
	}
}

// PoolStatsResponse - статистика пула вопросов
type PoolStatsResponse struct {
	Total        int64                       `json:"total"`
	Reusable     int64                       `json:"reusable"`
	Placeholders int64                       `json:"placeholders"`
	ByDifficulty map[entity.Difficulty]int64 `json:"by_difficulty"`
	TotalReuse   int64                       `json:"total_reuse"`
}

// NewPoolStatsResponse создает DTO статистики пула
func NewPoolStatsResponse(s *repository.PoolStats) *PoolStatsResponse {
	byDifficulty := s.ByDifficulty
	if byDifficulty == nil {
		byDifficulty = map[entity.Difficulty]int64{}
	}
	return &PoolStatsResponse{
		Total:        s.Total,
		Reusable:     s.Total - s.Placeholders,
		Placeholders: s.Placeholders,
		ByDifficulty: byDifficulty,
		TotalReuse:   s.TotalReuse,
	}
}
