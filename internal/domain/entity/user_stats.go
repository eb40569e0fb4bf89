package entity

import "time"

// Очки опыта за ответ
const (
	XPCorrectAnswer = 10
	XPWrongAnswer   = 3
	XPPerLevel      = 100
)

// UserStats - агрегированная статистика пользователя по ответам
type UserStats struct {
	UserID         string     `gorm:"primaryKey;size:128" json:"user_id"`
	Answered       int        `gorm:"not null;default:0" json:"answered"`
	Correct        int        `gorm:"not null;default:0" json:"correct"`
	CurrentStreak  int        `gorm:"not null;default:0" json:"current_streak"`
	BestStreak     int        `gorm:"not null;default:0" json:"best_streak"`
	XP             int        `gorm:"not null;default:0" json:"xp"`
	Level          int        `gorm:"not null;default:1" json:"level"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (UserStats) TableName() string {
	return "user_stats"
}

// XPForAnswer возвращает количество опыта за ответ
func XPForAnswer(correct bool) int {
	if correct {
		return XPCorrectAnswer
	}
	return XPWrongAnswer
}

// LevelForXP вычисляет уровень по накопленному опыту
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// Apply применяет результат ответа к статистике
func (s *UserStats) Apply(correct bool, at time.Time) {
	s.Answered++
	if correct {
		s.Correct++
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	} else {
		s.CurrentStreak = 0
	}
	s.XP += XPForAnswer(correct)
	s.Level = LevelForXP(s.XP)
	s.LastActivityAt = &at
	s.UpdatedAt = at
}

// Accuracy возвращает долю правильных ответов (0..1)
func (s *UserStats) Accuracy() float64 {
	if s.Answered == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Answered)
}

// AnswerEvent - событие, которое получает внешний сборщик статистики
type AnswerEvent struct {
	UserID         string    `json:"user_id"`
	QuestionID     string    `json:"question_id"`
	Topic          string    `json:"topic"`
	Correct        bool      `json:"correct"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	AnsweredAt     time.Time `json:"answered_at"`
}
