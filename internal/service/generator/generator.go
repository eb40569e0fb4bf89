package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/yourusername/gabarita-api/internal/catalog"
	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/llm"
)

// MaxRawLogRunes - сколько символов сырого ответа LLM попадает в логи и ошибки
const MaxRawLogRunes = 300

// Этапы, на которых может сломаться генерация
const (
	StageProvider = "provider"
	StageParse    = "parse"
	StageValidate = "validate"
)

// GenerationError - генерация не дала валидной записи
type GenerationError struct {
	Stage string
	Raw   string // усеченный сырой ответ LLM
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("question generation failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("question generation failed at %s: %v (raw: %q)", e.Stage, e.Err, e.Raw)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// GenerateInput - параметры одной генерации
type GenerateInput struct {
	Filter    entity.ContentFilter
	Topics    []string // темы из edital; игнорируются в режиме фокуса
	Kind      entity.QuestionKind
	CreatedBy string
}

// Config содержит параметры запроса к LLM
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1500,
		Temperature: 0.7,
	}
}

// Generator превращает ответ LLM в QuestionRecord
type Generator struct {
	provider llm.Provider
	config   Config
	schema   *jsonschema.Schema
	newID    func() string
}

// New создает генератор и компилирует схему ответа
func New(provider llm.Provider, cfg Config) (*Generator, error) {
	if provider == nil {
		return nil, errors.New("llm provider is required")
	}
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = def.Temperature
	}

	schema, err := compileQuestionSchema()
	if err != nil {
		return nil, err
	}

	return &Generator{
		provider: provider,
		config:   cfg,
		schema:   schema,
		newID:    uuid.NewString,
	}, nil
}

// Generate запрашивает вопрос у LLM, разбирает и проверяет его.
// Любая неудача возвращается как *GenerationError; запись никогда не выдумывается.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*entity.QuestionRecord, error) {
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(in),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, &GenerationError{Stage: StageProvider, Err: err}
	}

	raw := strings.TrimSpace(resp.Text)
	if raw == "" {
		return nil, &GenerationError{Stage: StageParse, Err: &llm.ErrEmptyResponse{Model: g.provider.ModelID()}}
	}
	if resp.StopReason == "max_tokens" {
		log.Printf("[Generator] Ответ модели %s обрезан по max_tokens, пробую разобрать как есть", resp.Model)
	}

	parsed, err := parseStructured(g.schema, raw)
	if err != nil {
		var lineErr error
		parsed, lineErr = parseLines(raw)
		if lineErr != nil {
			return nil, &GenerationError{
				Stage: StageParse,
				Raw:   Truncate(raw, MaxRawLogRunes),
				Err:   errors.Join(err, lineErr),
			}
		}
		log.Printf("[Generator] JSON не прошел проверку (%v), вопрос разобран построчно", err)
	}

	record, err := entity.NewQuestionRecord(g.draft(in, parsed))
	if err != nil {
		return nil, &GenerationError{Stage: StageValidate, Raw: Truncate(raw, MaxRawLogRunes), Err: err}
	}
	return record, nil
}

func (g *Generator) draft(in GenerateInput, p *parsedQuestion) entity.QuestionDraft {
	kind := kindFromWire(p.Kind)
	if !kind.IsValid() {
		kind = in.Kind
	}

	return entity.QuestionDraft{
		ID:            g.newID(),
		Cargo:         in.Filter.Cargo,
		Bloco:         in.Filter.Bloco,
		KnowledgeType: in.Filter.KnowledgeType,
		Topic:         recordTopic(in, p.Topic),
		Body:          p.Body,
		Kind:          kind,
		Options:       p.Options,
		AnswerKey:     p.AnswerKey,
		Explanation:   p.Explanation,
		Difficulty:    difficultyFromWire(p.Difficulty),
		CreatedBy:     in.CreatedBy,
	}
}

// recordTopic: в режиме фокуса тема фиксирована, иначе берем тему из ответа модели
func recordTopic(in GenerateInput, llmTopic string) string {
	if in.Filter.IsFocused() {
		return in.Filter.FocusTopic
	}
	if llmTopic != "" {
		return llmTopic
	}
	if len(in.Topics) > 0 {
		return in.Topics[0]
	}
	return catalog.GenericTopic
}

// Truncate обрезает строку до n символов (рун)
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
