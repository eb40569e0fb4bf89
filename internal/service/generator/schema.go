package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const questionSchemaURL = "schema://gabarita-question.json"

// questionSchemaJSON - контракт ответа LLM (поля на португальском, как в промпте)
const questionSchemaJSON = `{
  "type": "object",
  "properties": {
    "questao":      {"type": "string", "minLength": 1},
    "tipo":         {"type": "string"},
    "alternativas": {
      "type": "array",
      "minItems": 2,
      "maxItems": 5,
      "items": {
        "oneOf": [
          {"type": "string", "minLength": 1},
          {
            "type": "object",
            "properties": {
              "id":    {"type": "string", "minLength": 1},
              "texto": {"type": "string", "minLength": 1}
            },
            "required": ["id", "texto"]
          }
        ]
      }
    },
    "gabarito":    {"type": "string", "pattern": "^\\s*\\(?[A-Ea-e]\\)?\\s*$"},
    "explicacao":  {"type": "string"},
    "tema":        {"type": "string"},
    "dificuldade": {"type": "string"}
  },
  "required": ["questao", "alternativas", "gabarito"]
}`

// compileQuestionSchema компилирует схему ответа
func compileQuestionSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(questionSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse question schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(questionSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add question schema: %w", err)
	}
	return c.Compile(questionSchemaURL)
}

// wireQuestion - ответ LLM после валидации схемой
type wireQuestion struct {
	Questao      string       `json:"questao"`
	Tipo         string       `json:"tipo"`
	Alternativas []wireOption `json:"alternativas"`
	Gabarito     string       `json:"gabarito"`
	Explicacao   string       `json:"explicacao"`
	Tema         string       `json:"tema"`
	Dificuldade  string       `json:"dificuldade"`
}

// wireOption принимает и строку "A) texto", и объект {"id": "A", "texto": "..."}
type wireOption struct {
	ID    string
	Texto string
}

// UnmarshalJSON реализует json.Unmarshaler
func (o *wireOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.ID, o.Texto = splitOptionMarker(s)
		return nil
	}
	var obj struct {
		ID    string `json:"id"`
		Texto string `json:"texto"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	o.ID, o.Texto = obj.ID, obj.Texto
	return nil
}
