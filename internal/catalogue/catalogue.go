package catalogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"ClauseScanner/internal/domain"
)

// recordSchema only pins the shape; usability of each record is checked in code.
const recordSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "category":       {"type": "string"},
      "nli_hypothesis": {"type": "string"},
      "hypothesis":     {"type": "string"}
    }
  }
}`

var schema = jsonschema.MustCompileString("catalogue.schema.json", recordSchema)

// Catalogue is an ordered, immutable set of risk definitions keyed by category.
// It is safe for concurrent reads.
type Catalogue struct {
	defs  []domain.RiskDefinition
	index map[string]int
}

// New builds a catalogue from definitions in order; the first definition of a category wins
// and entries with a blank category or hypothesis are skipped.
func New(defs ...domain.RiskDefinition) *Catalogue {
	c := &Catalogue{index: make(map[string]int, len(defs))}
	for _, def := range defs {
		category := strings.TrimSpace(def.Category)
		hypothesis := strings.TrimSpace(def.Hypothesis)
		if category == "" || hypothesis == "" {
			continue
		}
		if _, ok := c.index[category]; ok {
			continue
		}
		c.index[category] = len(c.defs)
		c.defs = append(c.defs, domain.RiskDefinition{Category: category, Hypothesis: hypothesis})
	}
	return c
}

// Len reports the number of categories.
func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// Definitions returns a copy of the definitions in insertion order.
func (c *Catalogue) Definitions() []domain.RiskDefinition {
	if c == nil {
		return nil
	}
	out := make([]domain.RiskDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup returns the definition recorded for category.
func (c *Catalogue) Lookup(category string) (domain.RiskDefinition, bool) {
	if c == nil {
		return domain.RiskDefinition{}, false
	}
	i, ok := c.index[category]
	if !ok {
		return domain.RiskDefinition{}, false
	}
	return c.defs[i], true
}

// Order returns the insertion position of category, or -1.
func (c *Catalogue) Order(category string) int {
	if c == nil {
		return -1
	}
	if i, ok := c.index[category]; ok {
		return i
	}
	return -1
}

type record struct {
	Category      string `json:"category" yaml:"category"`
	NLIHypothesis string `json:"nli_hypothesis" yaml:"nli_hypothesis"`
	Hypothesis    string `json:"hypothesis" yaml:"hypothesis"`
}

func (r record) hypothesis() string {
	if strings.TrimSpace(r.NLIHypothesis) != "" {
		return r.NLIHypothesis
	}
	return r.Hypothesis
}

// Load reads a JSON or YAML catalogue file. Format is chosen by extension; anything that is
// not .yaml/.yml is treated as JSON.
func Load(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCatalogueNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCatalogueMalformed, path, err)
	}

	records, err := decode(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCatalogueMalformed, path, err)
	}

	defs := make([]domain.RiskDefinition, 0, len(records))
	for _, r := range records {
		defs = append(defs, domain.RiskDefinition{Category: r.Category, Hypothesis: r.hypothesis()})
	}

	cat := New(defs...)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no usable entries", domain.ErrCatalogueMalformed, path)
	}
	return cat, nil
}

func decode(raw []byte, ext string) ([]record, error) {
	var doc any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("unexpected shape: %w", err)
	}

	// Round-trip through JSON so both formats share one typed decode.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var records []record
	if err := json.Unmarshal(normalized, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
