package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

func TestLoad_Embedded(t *testing.T) {
	// Act
	c, err := Load()

	// Assert
	require.NoError(t, err)
	assert.Contains(t, c.Cargos(), "Enfermeiro")
	assert.Contains(t, c.Cargos(), "Arquiteto")
}

func TestNormalizeBloco(t *testing.T) {
	assert.Equal(t, "Bloco 1 - Seguridade Social", NormalizeBloco("Bloco 1 - Seguridade Social: Saúde, Assistência Social e Previdência Social"))
	assert.Equal(t, "Bloco 5 - Administração", NormalizeBloco(" Bloco 5 - Administração "))
}

func TestTopics_SpecificThenGeneral(t *testing.T) {
	// Arrange
	c, err := Load()
	require.NoError(t, err)

	// Act
	topics := c.Topics("Enfermeiro", "Bloco 1 - Seguridade Social: Saúde")

	// Assert
	require.NotEmpty(t, topics)
	assert.Equal(t, entity.KnowledgeSpecific, topics[0].KnowledgeType)
	assert.Equal(t, entity.KnowledgeGeneral, topics[len(topics)-1].KnowledgeType)
	assert.Empty(t, c.Topics("Astronauta", "Bloco 9"))
}

func TestTopicNames_ByKnowledgeType(t *testing.T) {
	c, err := Parse([]byte(`
cargos:
  "Enfermeiro":
    "Bloco 1":
      specific: ["SUS", "LOAS"]
      general: ["Ética"]
  "Arquiteto":
    "Bloco 4":
      specific: ["Urbanismo"]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"SUS", "LOAS"}, c.TopicNames("Enfermeiro", "Bloco 1", entity.KnowledgeSpecific))
	assert.Equal(t, []string{"Ética"}, c.TopicNames("Enfermeiro", "Bloco 1", entity.KnowledgeGeneral))
	assert.Equal(t, []string{"SUS", "LOAS", "Ética"}, c.TopicNames("Enfermeiro", "Bloco 1", entity.KnowledgeAny))
	assert.Equal(t, []string{"Urbanismo"}, c.TopicNames("Arquiteto", "Bloco 4", entity.KnowledgeGeneral), "Без деления возвращается весь список")
}

func TestPickTopics(t *testing.T) {
	// Arrange
	c, err := Load()
	require.NoError(t, err)

	// Act
	picked := c.PickTopics("Enfermeiro", "Bloco 1 - Seguridade Social", entity.KnowledgeAny, DefaultTopicsPerPrompt)
	unknown := c.PickTopics("Astronauta", "Bloco 9", entity.KnowledgeAny, DefaultTopicsPerPrompt)

	// Assert
	assert.Len(t, picked, 3)
	seen := map[string]bool{}
	for _, p := range picked {
		assert.False(t, seen[p], "Темы не должны повторяться")
		seen[p] = true
	}
	assert.Equal(t, []string{GenericTopic}, unknown)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("cargos: {}"))
	assert.Error(t, err)

	_, err = Parse([]byte("cargos: [unterminated"))
	assert.Error(t, err)
}
