// Package catalog содержит справочник тем edital по cargo и bloco.
package catalog

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
)

// GenericTopic используется, когда для cargo/bloco нет тем в каталоге
const GenericTopic = "Conhecimentos específicos do cargo conforme edital"

// DefaultTopicsPerPrompt - сколько тем отдается в промпт генерации
const DefaultTopicsPerPrompt = 3

//go:embed edital.yaml
var editalYAML []byte

// Topic - тема с типом знаний
type Topic struct {
	Name          string               `json:"name"`
	KnowledgeType entity.KnowledgeType `json:"knowledge_type"`
}

type blocoContent struct {
	Specific []string `yaml:"specific"`
	General  []string `yaml:"general"`
}

type catalogFile struct {
	Cargos map[string]map[string]blocoContent `yaml:"cargos"`
}

// Catalog - неизменяемый после загрузки справочник тем, безопасен для конкурентного чтения
type Catalog struct {
	cargos map[string]map[string]blocoContent
}

// Load загружает встроенный каталог
func Load() (*Catalog, error) {
	return Parse(editalYAML)
}

// Parse разбирает каталог из YAML
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse edital catalog: %w", err)
	}
	if len(f.Cargos) == 0 {
		return nil, fmt.Errorf("parse edital catalog: no cargos defined")
	}
	return &Catalog{cargos: f.Cargos}, nil
}

// NormalizeBloco отрезает описание после ':' ("Bloco 1 - Seguridade Social: Saúde..." -> "Bloco 1 - Seguridade Social")
func NormalizeBloco(bloco string) string {
	if i := strings.Index(bloco, ":"); i >= 0 {
		bloco = bloco[:i]
	}
	return strings.TrimSpace(bloco)
}

func (c *Catalog) lookup(cargo, bloco string) (blocoContent, bool) {
	blocos, ok := c.cargos[strings.TrimSpace(cargo)]
	if !ok {
		return blocoContent{}, false
	}
	content, ok := blocos[NormalizeBloco(bloco)]
	return content, ok
}

// Topics возвращает все темы cargo/bloco: сначала специальные, затем общие
func (c *Catalog) Topics(cargo, bloco string) []Topic {
	content, ok := c.lookup(cargo, bloco)
	if !ok {
		return []Topic{}
	}
	topics := make([]Topic, 0, len(content.Specific)+len(content.General))
	for _, name := range content.Specific {
		topics = append(topics, Topic{Name: name, KnowledgeType: entity.KnowledgeSpecific})
	}
	for _, name := range content.General {
		topics = append(topics, Topic{Name: name, KnowledgeType: entity.KnowledgeGeneral})
	}
	return topics
}

// TopicNames возвращает названия тем с учетом типа знаний.
// Если у блока нет деления на общие/специальные, возвращается весь список.
func (c *Catalog) TopicNames(cargo, bloco string, kt entity.KnowledgeType) []string {
	content, ok := c.lookup(cargo, bloco)
	if !ok {
		return nil
	}
	if len(content.General) == 0 {
		return content.Specific
	}
	switch kt {
	case entity.KnowledgeSpecific:
		return content.Specific
	case entity.KnowledgeGeneral:
		return content.General
	default:
		all := make([]string, 0, len(content.Specific)+len(content.General))
		all = append(all, content.Specific...)
		return append(all, content.General...)
	}
}

// PickTopics выбирает до n случайных тем без повторов; для неизвестных cargo/bloco - GenericTopic
func (c *Catalog) PickTopics(cargo, bloco string, kt entity.KnowledgeType, n int) []string {
	names := c.TopicNames(cargo, bloco, kt)
	if len(names) == 0 {
		return []string{GenericTopic}
	}
	if n <= 0 || n > len(names) {
		n = len(names)
	}
	picked := make([]string, 0, n)
	for _, i := range rand.Perm(len(names))[:n] {
		picked = append(picked, names[i])
	}
	return picked
}

// Cargos возвращает отсортированный список cargos
func (c *Catalog) Cargos() []string {
	cargos := make([]string, 0, len(c.cargos))
	for cargo := range c.cargos {
		cargos = append(cargos, cargo)
	}
	sort.Strings(cargos)
	return cargos
}
