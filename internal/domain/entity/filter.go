package entity

import "strings"

// KnowledgeType - тип знаний внутри блока (специальные / общие)
type KnowledgeType string

const (
	KnowledgeSpecific KnowledgeType = "specific"
	KnowledgeGeneral  KnowledgeType = "general"
	KnowledgeAny      KnowledgeType = "any"
)

// IsValid проверяет, что тип знаний известен
func (k KnowledgeType) IsValid() bool {
	switch k {
	case KnowledgeSpecific, KnowledgeGeneral, KnowledgeAny:
		return true
	}
	return false
}

// ParseKnowledgeType разбирает тип знаний, включая значения, которые присылает фронтенд
// ("conhecimentos_especificos", "conhecimentos_gerais", "todos"). Пустая строка = any.
func ParseKnowledgeType(s string) (KnowledgeType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "todos":
		return KnowledgeAny, true
	case "specific", "conhecimentos_especificos", "especificos":
		return KnowledgeSpecific, true
	case "general", "conhecimentos_gerais", "gerais":
		return KnowledgeGeneral, true
	}
	return "", false
}

// ContentFilter - критерии подбора вопроса из пула
type ContentFilter struct {
	Cargo         string
	Bloco         string
	KnowledgeType KnowledgeType
	// FocusTopic - если задан, подходят только вопросы с точно таким же topic (режим фокуса)
	FocusTopic string
}

// IsFocused сообщает, включен ли режим фокуса
func (f ContentFilter) IsFocused() bool {
	return strings.TrimSpace(f.FocusTopic) != ""
}

// Matches проверяет, подходит ли запись под фильтр.
// Используется in-memory хранилищем; Postgres делает то же самое в WHERE.
func (f ContentFilter) Matches(q *QuestionRecord) bool {
	if q.Placeholder {
		return false
	}
	if q.Cargo != f.Cargo || q.Bloco != f.Bloco {
		return false
	}
	if f.KnowledgeType != "" && f.KnowledgeType != KnowledgeAny && q.KnowledgeType != f.KnowledgeType {
		return false
	}
	if f.IsFocused() && q.Topic != strings.TrimSpace(f.FocusTopic) {
		return false
	}
	return true
}
