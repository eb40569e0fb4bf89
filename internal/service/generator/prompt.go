package generator

import (
	"fmt"
	"strings"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

const systemPrompt = "Você é um especialista em elaboração de questões para concursos públicos da banca FGV. " +
	"Responda apenas com um objeto JSON válido, sem texto adicional."

// formatInstructions описывает формат ответа; поля совпадают с questionSchemaJSON
const formatInstructions = `Retorne a questão no seguinte formato JSON:
{
  "questao": "enunciado completo da questão",
  "tipo": "multipla_escolha",
  "alternativas": ["A) ...", "B) ...", "C) ...", "D) ...", "E) ..."],
  "gabarito": "A",
  "explicacao": "explicação detalhada da resposta correta",
  "tema": "tema específico abordado",
  "dificuldade": "facil | medio | dificil"
}`

var kindLabels = map[entity.QuestionKind]string{
	entity.KindMultipleChoice: "múltipla escolha (5 alternativas, apenas uma correta)",
	entity.KindTrueFalse:      "certo ou errado (alternativas A) Certo e B) Errado)",
	entity.KindFillBlank:      "completar lacuna (enunciado com lacuna e alternativas para preenchê-la)",
	entity.KindOrdering:       "ordenação (alternativas com sequências possíveis)",
}

var knowledgeLabels = map[entity.KnowledgeType]string{
	entity.KnowledgeSpecific: "conhecimentos específicos",
	entity.KnowledgeGeneral:  "conhecimentos gerais",
}

// buildPrompt формирует пользовательскую часть запроса к LLM
func buildPrompt(in GenerateInput) string {
	kind := in.Kind
	if !kind.IsValid() {
		kind = entity.KindMultipleChoice
	}

	var b strings.Builder
	b.WriteString("Elabore uma questão inédita no estilo da banca FGV.\n\n")
	fmt.Fprintf(&b, "Cargo do aluno: %s\n", in.Filter.Cargo)
	fmt.Fprintf(&b, "Bloco: %s\n", in.Filter.Bloco)
	if label, ok := knowledgeLabels[in.Filter.KnowledgeType]; ok {
		fmt.Fprintf(&b, "Tipo de conhecimento: %s\n", label)
	}

	if in.Filter.IsFocused() {
		fmt.Fprintf(&b, "Conteúdo do edital a ser cobrado: %s\n", in.Filter.FocusTopic)
		b.WriteString("A questão deve tratar exclusivamente desse conteúdo.\n")
	} else {
		fmt.Fprintf(&b, "Conteúdo do edital a ser cobrado: %s\n", strings.Join(in.Topics, "; "))
	}
	fmt.Fprintf(&b, "Tipo de questão desejada: %s\n\n", kindLabels[kind])

	b.WriteString("Regras:\n")
	b.WriteString("- O enunciado deve ser contextualizado e compatível com o nível do cargo.\n")
	b.WriteString("- Apenas uma alternativa pode estar correta.\n")
	b.WriteString("- O gabarito deve ser a letra da alternativa correta.\n\n")
	b.WriteString(formatInstructions)
	return b.String()
}
