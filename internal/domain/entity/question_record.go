package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// QuestionKind - формат вопроса
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindFillBlank      QuestionKind = "fill_blank"
	KindOrdering       QuestionKind = "ordering"
)

// IsValid проверяет, что формат вопроса известен
func (k QuestionKind) IsValid() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindFillBlank, KindOrdering:
		return true
	}
	return false
}

// Difficulty - уровень сложности вопроса
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid проверяет, что уровень сложности известен
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// CreatedBySystem - автор записей, созданных самим сервисом (импорт, fallback)
const CreatedBySystem = "system"

// Ограничения на количество вариантов ответа
const (
	MinOptions = 2
	MaxOptions = 5
)

// Длины строковых колонок questions_pool (в символах)
const (
	MaxCargoLength = 200
	MaxBlocoLength = 200
	MaxTopicLength = 500
)

// QuestionOption - вариант ответа
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptionArray - пользовательский тип для хранения вариантов в JSONB
type OptionArray []QuestionOption

// Scan реализует интерфейс sql.Scanner для OptionArray
func (o *OptionArray) Scan(value interface{}) error {
	if value == nil {
		*o = OptionArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*o = OptionArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionArray
func (o OptionArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// QuestionRecord - единица переиспользуемого контента в пуле.
// После вставки Body, Options и AnswerKey не меняются: на них ссылается история показов.
type QuestionRecord struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	Cargo         string        `gorm:"size:200;not null;index:idx_questions_pool_filter,priority:1" json:"cargo"`
	Bloco         string        `gorm:"size:200;not null;index:idx_questions_pool_filter,priority:2" json:"bloco"`
	KnowledgeType KnowledgeType `gorm:"size:20;not null;index:idx_questions_pool_filter,priority:3" json:"knowledge_type"`
	Topic         string        `gorm:"size:500;not null;index" json:"topic"`
	Body          string        `gorm:"type:text;not null" json:"body"`
	Kind          QuestionKind  `gorm:"size:30;not null" json:"kind"`
	Options       OptionArray   `gorm:"type:jsonb;not null" json:"options"`
	AnswerKey     string        `gorm:"size:10;not null" json:"-"` // Скрыто от клиента
	Explanation   string        `gorm:"type:text" json:"-"`        // Отдается только после ответа
	Difficulty    Difficulty    `gorm:"size:10;not null" json:"difficulty"`
	Placeholder   bool          `gorm:"not null;default:false" json:"placeholder"`
	CreatedAt     time.Time     `json:"created_at"`
	CreatedBy     string        `gorm:"size:128;not null" json:"created_by"`
	ReuseCount    int           `gorm:"not null;default:0" json:"reuse_count"`
	LastUsedAt    *time.Time    `json:"last_used_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (QuestionRecord) TableName() string {
	return "questions_pool"
}

// QuestionDraft - входные данные для построения QuestionRecord
type QuestionDraft struct {
	ID            string
	Cargo         string
	Bloco         string
	KnowledgeType KnowledgeType
	Topic         string
	Body          string
	Kind          QuestionKind
	Options       []QuestionOption
	AnswerKey     string
	Explanation   string
	Difficulty    Difficulty
	Placeholder   bool
	CreatedBy     string
	CreatedAt     time.Time
}

// NewQuestionRecord строит запись и проверяет инварианты:
// варианты непусты (2..5), их ID уникальны, AnswerKey входит в множество ID вариантов.
func NewQuestionRecord(d QuestionDraft) (*QuestionRecord, error) {
	if strings.TrimSpace(d.ID) == "" {
		return nil, fmt.Errorf("%w: question id is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(d.Body) == "" {
		return nil, fmt.Errorf("%w: question body is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(d.Cargo) == "" || strings.TrimSpace(d.Bloco) == "" {
		return nil, fmt.Errorf("%w: cargo and bloco are required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Cargo)) > MaxCargoLength || utf8.RuneCountInString(strings.TrimSpace(d.Bloco)) > MaxBlocoLength {
		return nil, fmt.Errorf("%w: cargo or bloco is too long", apperrors.ErrValidation)
	}
	if len(d.Options) < MinOptions || len(d.Options) > MaxOptions {
		return nil, fmt.Errorf("%w: expected %d..%d options, got %d", apperrors.ErrValidation, MinOptions, MaxOptions, len(d.Options))
	}

	options := make(OptionArray, 0, len(d.Options))
	ids := make(map[string]struct{}, len(d.Options))
	for _, opt := range d.Options {
		id := NormalizeOptionID(opt.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: option id is empty", apperrors.ErrValidation)
		}
		if _, dup := ids[id]; dup {
			return nil, fmt.Errorf("%w: duplicate option id %q", apperrors.ErrValidation, id)
		}
		if strings.TrimSpace(opt.Text) == "" {
			return nil, fmt.Errorf("%w: option %q has no text", apperrors.ErrValidation, id)
		}
		ids[id] = struct{}{}
		options = append(options, QuestionOption{ID: id, Text: strings.TrimSpace(opt.Text)})
	}

	answerKey := NormalizeOptionID(d.AnswerKey)
	if _, ok := ids[answerKey]; !ok {
		return nil, fmt.Errorf("%w: answer key %q is not among the options", apperrors.ErrValidation, d.AnswerKey)
	}

	kind := d.Kind
	if !kind.IsValid() {
		kind = KindMultipleChoice
	}
	difficulty := d.Difficulty
	if !difficulty.IsValid() {
		difficulty = DifficultyMedium
	}
	knowledgeType := d.KnowledgeType
	if !knowledgeType.IsValid() {
		knowledgeType = KnowledgeAny
	}
	createdBy := d.CreatedBy
	if createdBy == "" {
		createdBy = CreatedBySystem
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &QuestionRecord{
		ID:            d.ID,
		Cargo:         strings.TrimSpace(d.Cargo),
		Bloco:         strings.TrimSpace(d.Bloco),
		KnowledgeType: knowledgeType,
		Topic:         truncateRunes(strings.TrimSpace(d.Topic), MaxTopicLength),
		Body:          strings.TrimSpace(d.Body),
		Kind:          kind,
		Options:       options,
		AnswerKey:     answerKey,
		Explanation:   strings.TrimSpace(d.Explanation),
		Difficulty:    difficulty,
		Placeholder:   d.Placeholder,
		CreatedAt:     createdAt,
		CreatedBy:     createdBy,
	}, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}

// NormalizeOptionID приводит идентификатор варианта к каноническому виду ("b)" -> "B")
func NormalizeOptionID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.Trim(id, "()[].:- ")
	return strings.ToUpper(id)
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *QuestionRecord) IsCorrect(chosenOptionID string) bool {
	return NormalizeOptionID(chosenOptionID) == q.AnswerKey
}

// HasOption проверяет, существует ли вариант с указанным ID
func (q *QuestionRecord) HasOption(optionID string) bool {
	id := NormalizeOptionID(optionID)
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// OptionsCount возвращает количество вариантов ответа
func (q *QuestionRecord) OptionsCount() int {
	return len(q.Options)
}

// Sanitize возвращает копию вопроса без ответа и объяснения для отправки клиенту
func (q *QuestionRecord) Sanitize() PublicQuestion {
	options := make([]QuestionOption, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{
		ID:         q.ID,
		Cargo:      q.Cargo,
		Bloco:      q.Bloco,
		Topic:      q.Topic,
		Body:       q.Body,
		Kind:       q.Kind,
		Options:    options,
		Difficulty: q.Difficulty,
	}
}

// PublicQuestion - вопрос без gabarito (правильного ответа) и объяснения
type PublicQuestion struct {
	ID         string           `json:"id"`
	Cargo      string           `json:"cargo"`
	Bloco      string           `json:"bloco"`
	Topic      string           `json:"topic"`
	Body       string           `json:"body"`
	Kind       QuestionKind     `json:"kind"`
	Options    []QuestionOption `json:"options"`
	Difficulty Difficulty       `json:"difficulty"`
}
