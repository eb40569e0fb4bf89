package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

var (
	errNoJSONObject = errors.New("no JSON object in response")
	errNoOptions    = errors.New("no option lines found")
	errNoAnswerKey  = errors.New("no answer key found")
)

var (
	// "A) texto", "A. texto", "(A) texto"
	optionLineRe  = regexp.MustCompile(`^(?:\(([A-E])\)|([A-E])[\).])\s*(.*)$`)
	// "Gabarito: C", "Resposta correta: letra B", "Answer: (D)"
	answerLineRe  = regexp.MustCompile(`^[^A-Za-z]*(?i:gabarito|resposta(?:\s+correta)?|answer)[^A-Za-z]*(?:(?i:letra|alternativa)\s+)?\(?([A-E])\b`)
	explanationRe = regexp.MustCompile(`^[^A-Za-z]*(?i:explicação|explicacao|justificativa|explanation)`)
	bodyLabelRe   = regexp.MustCompile(`(?i)^(?:\*\*)?(?:questão|questao|enunciado|question)(?:\s*\d+)?\s*[:.\-]\s*(?:\*\*)?`)
)

// parsedQuestion - промежуточный результат разбора ответа LLM
type parsedQuestion struct {
	Body        string
	Kind        string
	Options     []entity.QuestionOption
	AnswerKey   string
	Explanation string
	Topic       string
	Difficulty  string
}

// parseStructured - первый уровень разбора: найти JSON-объект, проверить схемой, декодировать
func parseStructured(schema *jsonschema.Schema, raw string) (*parsedQuestion, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, errNoJSONObject
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(obj))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var wire wireQuestion
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}

	options := make([]entity.QuestionOption, 0, len(wire.Alternativas))
	for i, alt := range wire.Alternativas {
		id := alt.ID
		if id == "" {
			id = string(rune('A' + i))
		}
		options = append(options, entity.QuestionOption{ID: id, Text: alt.Texto})
	}

	return &parsedQuestion{
		Body:        strings.TrimSpace(wire.Questao),
		Kind:        wire.Tipo,
		Options:     options,
		AnswerKey:   wire.Gabarito,
		Explanation: strings.TrimSpace(wire.Explicacao),
		Topic:       strings.TrimSpace(wire.Tema),
		Difficulty:  wire.Dificuldade,
	}, nil
}

// extractJSONObject возвращает текст от первой '{' до последней '}'
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// parseLines - второй уровень разбора: построчная эвристика для ответа в свободной форме
func parseLines(raw string) (*parsedQuestion, error) {
	var (
		bodyLines   []string
		options     []entity.QuestionOption
		answerKey   string
		explanation []string
		inExplain   bool
		firstFree   string
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "`"))
		if line == "" {
			continue
		}

		if m := answerLineRe.FindStringSubmatch(line); m != nil && !isOptionLine(line) {
			answerKey = m[1]
			continue
		}

		if inExplain {
			explanation = append(explanation, line)
			continue
		}

		if explanationRe.MatchString(line) && !isOptionLine(line) {
			inExplain = true
			if rest := afterLabel(line); rest != "" {
				explanation = append(explanation, rest)
			}
			continue
		}

		if m := optionLineRe.FindStringSubmatch(line); m != nil {
			id := m[1]
			if id == "" {
				id = m[2]
			}
			options = append(options, entity.QuestionOption{ID: id, Text: strings.TrimSpace(m[3])})
			continue
		}

		// Текст до первого варианта - это тело вопроса
		if len(options) == 0 {
			bodyLines = append(bodyLines, bodyLabelRe.ReplaceAllString(line, ""))
		} else if firstFree == "" {
			firstFree = bodyLabelRe.ReplaceAllString(line, "")
		}
	}
	if len(bodyLines) == 0 && firstFree != "" {
		bodyLines = []string{firstFree}
	}

	if len(options) == 0 {
		return nil, errNoOptions
	}
	if answerKey == "" {
		return nil, errNoAnswerKey
	}

	return &parsedQuestion{
		Body:        strings.TrimSpace(strings.Join(bodyLines, "\n")),
		Options:     options,
		AnswerKey:   answerKey,
		Explanation: strings.Join(explanation, " "),
	}, nil
}

func isOptionLine(line string) bool {
	return optionLineRe.MatchString(line)
}

// afterLabel возвращает текст после "Explicação:" в той же строке
func afterLabel(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(strings.Trim(line[i+1:], "* "))
	}
	return ""
}

// splitOptionMarker разбирает "B) texto" на ("B", "texto"); без маркера ID пустой
func splitOptionMarker(s string) (string, string) {
	s = strings.TrimSpace(s)
	if m := optionLineRe.FindStringSubmatch(s); m != nil {
		id := m[1]
		if id == "" {
			id = m[2]
		}
		return id, strings.TrimSpace(m[3])
	}
	return "", s
}

// kindFromWire приводит тип вопроса к QuestionKind
func kindFromWire(s string) entity.QuestionKind {
	switch normalizeWord(s) {
	case "multipla_escolha", "multiple_choice":
		return entity.KindMultipleChoice
	case "verdadeiro_falso", "certo_errado", "true_false":
		return entity.KindTrueFalse
	case "completar_lacuna", "fill_blank":
		return entity.KindFillBlank
	case "ordenacao", "ordering":
		return entity.KindOrdering
	}
	return ""
}

// difficultyFromWire приводит сложность к Difficulty
func difficultyFromWire(s string) entity.Difficulty {
	switch normalizeWord(s) {
	case "facil", "easy":
		return entity.DifficultyEasy
	case "medio", "media", "medium":
		return entity.DifficultyMedium
	case "dificil", "hard":
		return entity.DifficultyHard
	}
	return ""
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

func normalizeWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentReplacer.Replace(s)
	return strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(s)
}
