package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/llm"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

const fencedJSON = "Aqui está a questão solicitada:\n```json\n" + `{
  "questao": "Qual lei dispõe sobre as condições para a promoção da saúde no SUS?",
  "tipo": "multipla_escolha",
  "alternativas": ["A) Lei 8.080/90", "B) Lei 8.112/90", "C) Lei 9.784/99", "D) Lei 8.666/93"],
  "gabarito": "A",
  "explicacao": "A Lei 8.080/90 é a Lei Orgânica da Saúde.",
  "tema": "Lei Orgânica da Saúde",
  "dificuldade": "médio"
}` + "\n```"

const freeText = `**Questão:** Sobre o controle social no SUS, assinale a alternativa correta.
A) As conferências de saúde ocorrem a cada dois anos.
B) Os conselhos de saúde têm caráter permanente e deliberativo.
C) A participação da comunidade é facultativa.
D) Os usuários não integram os conselhos.
**Gabarito:** B
Explicação: A Lei 8.142/90 define os conselhos como permanentes e deliberativos.
Eles atuam na formulação de estratégias.`

func newTestGenerator(t *testing.T, responses ...llm.MockResponse) (*Generator, *llm.MockProvider) {
	t.Helper()
	provider := llm.NewMockProvider(responses...)
	g, err := New(provider, Config{})
	require.NoError(t, err)
	g.newID = func() string { return "fixed-id" }
	return g, provider
}

func enfermeiroInput() GenerateInput {
	return GenerateInput{
		Filter: entity.ContentFilter{
			Cargo:         "Enfermeiro",
			Bloco:         "Bloco 1",
			KnowledgeType: entity.KnowledgeSpecific,
		},
		Topics:    []string{"Lei 8.080/90", "Lei 8.142/90"},
		Kind:      entity.KindMultipleChoice,
		CreatedBy: "user-1",
	}
}

func TestGenerate_StructuredJSON(t *testing.T) {
	// Arrange
	g, provider := newTestGenerator(t, llm.MockResponse{Text: fencedJSON})

	// Act
	q, err := g.Generate(context.Background(), enfermeiroInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", q.ID)
	assert.Equal(t, "Enfermeiro", q.Cargo)
	assert.Equal(t, entity.KnowledgeSpecific, q.KnowledgeType)
	assert.Equal(t, "Lei Orgânica da Saúde", q.Topic, "Тема берется из ответа модели")
	assert.Equal(t, entity.KindMultipleChoice, q.Kind)
	assert.Equal(t, entity.DifficultyMedium, q.Difficulty)
	assert.Equal(t, "A", q.AnswerKey)
	require.Len(t, q.Options, 4)
	assert.Equal(t, entity.QuestionOption{ID: "A", Text: "Lei 8.080/90"}, q.Options[0])
	assert.Equal(t, "user-1", q.CreatedBy)
	assert.NotEmpty(t, q.Explanation)

	req, ok := provider.LastRequest()
	require.True(t, ok)
	assert.True(t, req.JSONMode)
	assert.Equal(t, 1500, req.MaxTokens, "Значение по умолчанию")
	assert.Contains(t, req.Prompt, "Cargo do aluno: Enfermeiro")
	assert.Contains(t, req.Prompt, "Lei 8.080/90; Lei 8.142/90")
	assert.Contains(t, req.System, "FGV")
}

func TestGenerate_StructuredObjectOptions(t *testing.T) {
	// Arrange
	raw := `{"questao": "O SUS é universal?", "tipo": "verdadeiro_falso",
		"alternativas": [{"id": "A", "texto": "Certo"}, {"id": "B", "texto": "Errado"}],
		"gabarito": "(a)", "dificuldade": "fácil"}`
	g, _ := newTestGenerator(t, llm.MockResponse{Text: raw})

	// Act
	q, err := g.Generate(context.Background(), enfermeiroInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.KindTrueFalse, q.Kind)
	assert.Equal(t, entity.DifficultyEasy, q.Difficulty)
	assert.Equal(t, "A", q.AnswerKey, "Gabarito нормализуется")
	assert.Equal(t, "Lei 8.080/90", q.Topic, "Без темы в ответе берется первая тема из запроса")
}

func TestGenerate_LineHeuristicFallback(t *testing.T) {
	// Arrange
	g, _ := newTestGenerator(t, llm.MockResponse{Text: freeText})

	// Act
	q, err := g.Generate(context.Background(), enfermeiroInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Sobre o controle social no SUS, assinale a alternativa correta.", q.Body)
	require.Len(t, q.Options, 4)
	assert.Equal(t, "B", q.AnswerKey)
	assert.Equal(t, "Os conselhos de saúde têm caráter permanente e deliberativo.", q.Options[1].Text)
	assert.Contains(t, q.Explanation, "Lei 8.142/90")
	assert.Contains(t, q.Explanation, "formulação de estratégias")
	assert.Equal(t, entity.DifficultyMedium, q.Difficulty, "Сложность по умолчанию")
}

func TestGenerate_FocusTopicWins(t *testing.T) {
	// Arrange
	g, provider := newTestGenerator(t, llm.MockResponse{Text: fencedJSON})
	in := enfermeiroInput()
	in.Filter.FocusTopic = "Lei 8.142/90"

	// Act
	q, err := g.Generate(context.Background(), in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Lei 8.142/90", q.Topic, "В режиме фокуса тема записи совпадает с фокусом")
	req, _ := provider.LastRequest()
	assert.Contains(t, req.Prompt, "exclusivamente")
	assert.NotContains(t, req.Prompt, "Lei 8.080/90; Lei 8.142/90")
}

func TestGenerate_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		response  llm.MockResponse
		wantStage string
		wantRaw   bool
		check     func(t *testing.T, err error)
	}{
		{
			name:      "ошибка провайдера",
			response:  llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}},
			wantStage: StageProvider,
			check: func(t *testing.T, err error) {
				var rl *llm.ErrRateLimit
				assert.True(t, errors.As(err, &rl))
			},
		},
		{
			name:      "пустой ответ",
			response:  llm.MockResponse{Text: "   "},
			wantStage: StageParse,
		},
		{
			name:      "ответ без вопроса",
			response:  llm.MockResponse{Text: "Desculpe, não posso ajudar com isso."},
			wantStage: StageParse,
			wantRaw:   true,
		},
		{
			name:      "ответ вне вариантов",
			response:  llm.MockResponse{Text: `{"questao": "Pergunta", "alternativas": ["A) um", "B) dois"], "gabarito": "E"}`},
			wantStage: StageValidate,
			wantRaw:   true,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			g, _ := newTestGenerator(t, tc.response)

			// Act
			q, err := g.Generate(context.Background(), enfermeiroInput())

			// Assert
			assert.Nil(t, q, "Запись не должна выдумываться")
			var genErr *GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tc.wantStage, genErr.Stage)
			assert.Equal(t, tc.wantRaw, genErr.Raw != "")
			if tc.check != nil {
				tc.check(t, err)
			}
		})
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	// Arrange
	g, _ := newTestGenerator(t, llm.MockResponse{Text: fencedJSON})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := g.Generate(ctx, enfermeiroInput())

	// Assert
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_RawIsTruncated(t *testing.T) {
	// Arrange
	raw := strings.Repeat("ç", 1000)
	g, _ := newTestGenerator(t, llm.MockResponse{Text: raw})

	// Act
	_, err := g.Generate(context.Background(), enfermeiroInput())

	// Assert
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Len(t, []rune(genErr.Raw), MaxRawLogRunes+3)
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}

func TestParseLines(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		wantErr error
		wantIDs []string
		wantKey string
	}{
		{
			name:    "маркеры с точкой",
			raw:     "Enunciado\nA. um\nB. dois\nC. três\nResposta correta: letra C",
			wantIDs: []string{"A", "B", "C"},
			wantKey: "C",
		},
		{
			name:    "маркеры в скобках",
			raw:     "Enunciado\n(A) um\n(B) dois\nAnswer: (B)",
			wantIDs: []string{"A", "B"},
			wantKey: "B",
		},
		{
			name:    "без вариантов",
			raw:     "Enunciado\nGabarito: A",
			wantErr: errNoOptions,
		},
		{
			name:    "без ответа",
			raw:     "Enunciado\nA) um\nB) dois",
			wantErr: errNoAnswerKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := parseLines(tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(p.Options))
			for _, o := range p.Options {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, tc.wantKey, p.AnswerKey)
			assert.Equal(t, "Enunciado", p.Body)
		})
	}
}

func TestWireMappings(t *testing.T) {
	assert.Equal(t, entity.KindFillBlank, kindFromWire("Completar Lacuna"))
	assert.Equal(t, entity.KindOrdering, kindFromWire("ordenação"))
	assert.Equal(t, entity.QuestionKind(""), kindFromWire("dissertativa"))
	assert.Equal(t, entity.DifficultyHard, difficultyFromWire("Difícil"))
	assert.Equal(t, entity.Difficulty(""), difficultyFromWire("?"))

	id, text := splitOptionMarker("(C) texto")
	assert.Equal(t, "C", id)
	assert.Equal(t, "texto", text)
	id, text = splitOptionMarker("sem marcador")
	assert.Empty(t, id)
	assert.Equal(t, "sem marcador", text)
}
