// Package registry holds the static catalog of node type templates that the
// laboratory palette offers. The catalog is embedded at build time and never
// mutated; every accessor hands out copies.
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/aihub/pkg/workflow"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Template is an immutable catalog entry describing a node type's defaults
type Template struct {
	Key         string            `yaml:"key" json:"key"`
	Type        workflow.NodeType `yaml:"type" json:"type"`
	Category    string            `yaml:"category" json:"category"`
	Label       string            `yaml:"label" json:"label"`
	Icon        string            `yaml:"icon" json:"icon"`
	Color       string            `yaml:"color" json:"color"`
	Description string            `yaml:"description" json:"description"`
	Config      map[string]any    `yaml:"config" json:"config"`
}

// Instantiate creates a new node from the template at pos with a fresh id
func (t Template) Instantiate(pos workflow.Position) *workflow.Node {
	return workflow.NewNode(t.Type, pos, workflow.NodeData{
		Label:       t.Label,
		Icon:        t.Icon,
		Color:       t.Color,
		Description: t.Description,
		Config:      workflow.CloneConfig(t.Config),
	})
}

func (t Template) clone() Template {
	t.Config = workflow.CloneConfig(t.Config)
	return t
}

// Category is a palette group
type Category struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

type catalogFile struct {
	Categories []Category `yaml:"categories"`
	Templates  []Template `yaml:"templates"`
}

// Registry is a read-only catalog of templates
type Registry struct {
	categories []Category
	templates  []Template
	byKey      map[string]int
}

// Load parses a YAML catalog
func Load(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse node catalog: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, errors.New("node catalog has no templates")
	}

	known := make(map[string]bool, len(file.Categories))
	for _, c := range file.Categories {
		if c.Key == "" {
			return nil, errors.New("node catalog: category with empty key")
		}
		known[c.Key] = true
	}

	reg := &Registry{
		categories: file.Categories,
		templates:  file.Templates,
		byKey:      make(map[string]int, len(file.Templates)),
	}
	for i, t := range file.Templates {
		if t.Key == "" || t.Label == "" {
			return nil, fmt.Errorf("node catalog: template %d needs key and label", i)
		}
		if !t.Type.IsValid() {
			return nil, fmt.Errorf("node catalog: template %s has unknown type %q", t.Key, t.Type)
		}
		if !known[t.Category] {
			return nil, fmt.Errorf("node catalog: template %s has unknown category %q", t.Key, t.Category)
		}
		if _, dup := reg.byKey[t.Key]; dup {
			return nil, fmt.Errorf("node catalog: duplicate template key %s", t.Key)
		}
		config, err := jsonConfig(t.Config)
		if err != nil {
			return nil, fmt.Errorf("node catalog: template %s: %w", t.Key, err)
		}
		reg.templates[i].Config = config
		reg.byKey[t.Key] = i
	}

	return reg, nil
}

// jsonConfig re-decodes a YAML config through JSON so numbers are float64
// and nested values use the same types a saved workflow comes back with.
func jsonConfig(config map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(config))
	if len(config) == 0 {
		return out, nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("config is not JSON-compatible: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("config is not JSON-compatible: %w", err)
	}
	return out, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded catalog
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("embedded node catalog is invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Categories returns the palette groups in catalog order
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

// Templates returns every template in catalog order
func (r *Registry) Templates() []Template {
	out := make([]Template, len(r.templates))
	for i, t := range r.templates {
		out[i] = t.clone()
	}
	return out
}

// Lookup finds a template by key
func (r *Registry) Lookup(key string) (Template, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return Template{}, false
	}
	return r.templates[i].clone(), true
}

// CategoryLabel returns the display label for a category key
func (r *Registry) CategoryLabel(key string) string {
	for _, c := range r.categories {
		if c.Key == key {
			return c.Label
		}
	}
	return key
}

// Matches reports whether the template's label, description or category
// contains q, ignoring case. categoryLabel is the display name of the
// template's category.
func (t Template) Matches(categoryLabel, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(t.Label), q) ||
		strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(categoryLabel), q) ||
		strings.Contains(strings.ToLower(t.Category), q)
}

// Search returns the templates matching q in catalog order
func (r *Registry) Search(q string) []Template {
	out := make([]Template, 0)
	for _, t := range r.templates {
		if t.Matches(r.CategoryLabel(t.Category), q) {
			out = append(out, t.clone())
		}
	}
	return out
}
