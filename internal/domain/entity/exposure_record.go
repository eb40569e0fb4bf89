package entity

import "time"

// ExposureRecord фиксирует факт показа вопроса пользователю.
// Одна запись на пару (user_id, question_id); переходит в answered=true ровно один раз и не удаляется.
type ExposureRecord struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"size:128;not null;uniqueIndex:idx_exposure_user_question,priority:1" json:"user_id"`
	QuestionID     string     `gorm:"size:36;not null;uniqueIndex:idx_exposure_user_question,priority:2;index" json:"question_id"`
	SeenAt         time.Time  `gorm:"not null" json:"seen_at"`
	Answered       bool       `gorm:"not null;default:false" json:"answered"`
	Correct        bool       `gorm:"not null;default:false" json:"correct"` // Имеет смысл только при Answered
	ResponseTimeMs int64      `gorm:"not null;default:0" json:"response_time_ms"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (ExposureRecord) TableName() string {
	return "questions_exposure"
}

// HistoryEntry - запись истории: показ + краткое описание вопроса
type HistoryEntry struct {
	QuestionID     string       `json:"question_id"`
	Cargo          string       `json:"cargo"`
	Bloco          string       `json:"bloco"`
	Topic          string       `json:"topic"`
	Body           string       `json:"body"`
	Kind           QuestionKind `json:"kind"`
	Difficulty     Difficulty   `json:"difficulty"`
	SeenAt         time.Time    `json:"seen_at"`
	Answered       bool         `json:"answered"`
	Correct        bool         `json:"correct"`
	ResponseTimeMs int64        `json:"response_time_ms"`
	AnsweredAt     *time.Time   `json:"answered_at,omitempty"`
}
