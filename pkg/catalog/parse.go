package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxTemperature is the highest temperature a category may declare.
const MaxTemperature = 2.0

type promptEngineeringDoc struct {
	Principles      []string `json:"principles" yaml:"principles"`
	SafetyProtocols []string `json:"safety_protocols" yaml:"safety_protocols"`
}

type metaDoc struct {
	PromptEngineering promptEngineeringDoc `json:"prompt_engineering" yaml:"prompt_engineering"`
	ResponseTemplate  ResponseTemplate     `json:"response_template" yaml:"response_template"`
	Temperature       *float64             `json:"temperature" yaml:"temperature"`
}

type categoryDoc struct {
	Name            string  `json:"name" yaml:"name"`
	Preamble        string  `json:"preamble" yaml:"preamble"`
	InteractionFlow []Step  `json:"interaction_flow" yaml:"interaction_flow"`
	Meta            metaDoc `json:"meta" yaml:"meta"`
}

type entry struct {
	key string
	doc categoryDoc
}

// Parse decodes a catalog document. Documents whose first non-blank byte is
// '{' are read as JSON, anything else as YAML. Missing optional fields
// default to empty values and an empty document yields an empty catalog.
// Every error wraps ErrCatalogLoad.
func Parse(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Empty(), nil
	}

	var (
		entries []entry
		global  GlobalMeta
		err     error
	)

	if trimmed[0] == '{' {
		entries, global, err = parseJSON(trimmed)
	} else {
		entries, global, err = parseYAML(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}

	c := Empty()
	c.Global = global

	for _, e := range entries {
		cat, err := e.doc.category(e.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
		}
		if err := c.add(e.key, cat); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
		}
	}

	return c, nil
}

// parseJSON walks the categories object token by token so that the mapping
// order of the document survives decoding.
func parseJSON(data []byte) ([]entry, GlobalMeta, error) {
	var doc struct {
		Categories json.RawMessage `json:"categories"`
		GlobalMeta GlobalMeta      `json:"global_meta"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, GlobalMeta{}, fmt.Errorf("parse json: %w", err)
	}

	raw := bytes.TrimSpace(doc.Categories)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, doc.GlobalMeta, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, GlobalMeta{}, fmt.Errorf("parse categories: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, GlobalMeta{}, errors.New("categories must be an object")
	}

	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, GlobalMeta{}, fmt.Errorf("parse categories: %w", err)
		}
		key, _ := tok.(string)

		var cd categoryDoc
		if err := dec.Decode(&cd); err != nil {
			return nil, GlobalMeta{}, fmt.Errorf("category %q: %w", key, err)
		}
		entries = append(entries, entry{key: key, doc: cd})
	}

	return entries, doc.GlobalMeta, nil
}

func parseYAML(data []byte) ([]entry, GlobalMeta, error) {
	var doc struct {
		Categories yaml.Node  `yaml:"categories"`
		GlobalMeta GlobalMeta `yaml:"global_meta"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, GlobalMeta{}, fmt.Errorf("parse yaml: %w", err)
	}

	n := &doc.Categories
	if n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil, doc.GlobalMeta, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, GlobalMeta{}, fmt.Errorf("categories must be a mapping (line %d)", n.Line)
	}

	entries := make([]entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value

		var cd categoryDoc
		if err := n.Content[i+1].Decode(&cd); err != nil {
			return nil, GlobalMeta{}, fmt.Errorf("category %q: %w", key, err)
		}
		entries = append(entries, entry{key: key, doc: cd})
	}

	return entries, doc.GlobalMeta, nil
}

func (d categoryDoc) category(key string) (Category, error) {
	if strings.TrimSpace(key) == "" {
		return Category{}, errors.New("category key is required")
	}

	for i, s := range d.InteractionFlow {
		if strings.TrimSpace(s.Action) == "" && strings.TrimSpace(s.Prompt) == "" {
			return Category{}, fmt.Errorf("category %q: step %d: action or prompt is required", key, i)
		}
	}

	var temp float64
	if d.Meta.Temperature != nil {
		temp = *d.Meta.Temperature
		if !(temp > 0 && temp <= MaxTemperature) {
			return Category{}, fmt.Errorf("category %q: temperature %v out of range (0, %v]", key, temp, MaxTemperature)
		}
	}

	name := d.Name
	if name == "" {
		name = key
	}

	return Category{
		Name:            name,
		Preamble:        d.Preamble,
		Steps:           d.InteractionFlow,
		Principles:      d.Meta.PromptEngineering.Principles,
		SafetyProtocols: d.Meta.PromptEngineering.SafetyProtocols,
		Response:        d.Meta.ResponseTemplate,
		Temperature:     temp,
	}, nil
}
