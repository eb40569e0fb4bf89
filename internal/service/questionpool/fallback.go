package questionpool

import (
	"fmt"

	"github.com/yourusername/gabarita-api/internal/catalog"
	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

const (
	fallbackAnswerKey   = "A"
	fallbackExplanation = "Esta é uma questão de exemplo para teste do sistema."
)

// newFallbackRecord строит статичную заглушку для случая, когда генерация не удалась.
// Заглушка помечена Placeholder=true: ее можно оценить, но в пул для повторной выдачи она не попадает.
// Для certo/errado выдаются два варианта, для остальных форматов - четыре.
func newFallbackRecord(id string, filter entity.ContentFilter, kind entity.QuestionKind, topics []string) (*entity.QuestionRecord, error) {
	topic := catalog.GenericTopic
	switch {
	case filter.IsFocused():
		topic = filter.FocusTopic
	case len(topics) > 0:
		topic = topics[0]
	}

	var options []entity.QuestionOption
	if kind == entity.KindTrueFalse {
		options = []entity.QuestionOption{
			{ID: "A", Text: "Certo"},
			{ID: "B", Text: "Errado"},
		}
	} else {
		kind = entity.KindMultipleChoice
		options = make([]entity.QuestionOption, 0, 4)
		for _, letter := range []string{"A", "B", "C", "D"} {
			options = append(options, entity.QuestionOption{
				ID:   letter,
				Text: fmt.Sprintf("Alternativa %s - Exemplo", letter),
			})
		}
	}

	return entity.NewQuestionRecord(entity.QuestionDraft{
		ID:            id,
		Cargo:         filter.Cargo,
		Bloco:         filter.Bloco,
		KnowledgeType: filter.KnowledgeType,
		Topic:         topic,
		Body:          fmt.Sprintf("[Questão de exemplo] Questão sobre %s para %s", topic, filter.Cargo),
		Kind:          kind,
		Options:       options,
		AnswerKey:     fallbackAnswerKey,
		Explanation:   fallbackExplanation,
		Difficulty:    entity.DifficultyMedium,
		Placeholder:   true,
		CreatedBy:     entity.CreatedBySystem,
	})
}
