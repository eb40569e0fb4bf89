package llm

import "context"

// Provider - абстракция над LLM. Возвращает сырой текст ответа;
// разбор и валидация выполняются вызывающей стороной.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request описывает запрос к LLM
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSONMode просит провайдера вернуть JSON-объект, если он это поддерживает
	JSONMode bool
}

// Response - ответ LLM
type Response struct {
	Text       string
	Model      string
	StopReason string // "end", "max_tokens"
	Usage      Usage
}

// Usage - расход токенов на один запрос
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
