// Package catalog loads prompt catalogs: documents that declare global
// guidance plus an ordered mapping of named reasoning categories, each with
// an ordered list of steps.
//
// A catalog is immutable once loaded. Category order follows the document's
// mapping order.
package catalog

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrCategoryNotFound is returned when a category name is not present in
	// the catalog.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCatalogLoad wraps every failure to read, parse, or validate a
	// catalog document.
	ErrCatalogLoad = errors.New("catalog load failed")
)

// GlobalMeta holds guidance shared by every conversation.
type GlobalMeta struct {
	CorePrinciples      []string `json:"core_principles" yaml:"core_principles"`
	UniversalSafeguards []string `json:"universal_safeguards" yaml:"universal_safeguards"`
	PerformanceMetrics  []string `json:"performance_metrics" yaml:"performance_metrics"`
}

// Step is one action of a category's interaction flow.
type Step struct {
	Action     string   `json:"action" yaml:"action"`
	Prompt     string   `json:"prompt" yaml:"prompt"`
	Examples   []string `json:"examples,omitempty" yaml:"examples,omitempty"`
	Templates  []string `json:"templates,omitempty" yaml:"templates,omitempty"`
	Dimensions []string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Techniques []string `json:"techniques,omitempty" yaml:"techniques,omitempty"`
}

// ResponseTemplate shapes the final user-facing answer of a reasoning run.
type ResponseTemplate struct {
	Header   string   `json:"header" yaml:"header"`
	Sections []string `json:"sections" yaml:"sections"`
	Closing  string   `json:"closing" yaml:"closing"`
}

// Category is a named reasoning method.
type Category struct {
	Name            string
	Preamble        string
	Steps           []Step
	Principles      []string
	SafetyProtocols []string
	Response        ResponseTemplate

	// Temperature is the sampling temperature the category asks for.
	// Zero means the category does not declare one.
	Temperature float64
}

// Catalog is an immutable, ordered set of categories plus global guidance.
// The zero value is an empty catalog.
type Catalog struct {
	Global GlobalMeta

	names      []string
	categories map[string]Category
}

// Empty returns a catalog with no categories and no global guidance.
func Empty() *Catalog {
	return &Catalog{categories: map[string]Category{}}
}

// Load reads and parses the catalog document at path. Every error wraps
// ErrCatalogLoad.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("catalog: %w: %w", ErrCatalogLoad, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}

	return c, nil
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Names returns the category names in document order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether the catalog declares a category with the given name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.categories[name]
	return ok
}

// Category returns the named category or an error wrapping
// ErrCategoryNotFound.
func (c *Catalog) Category(name string) (Category, error) {
	cat, ok := c.categories[name]
	if !ok || name == "" {
		return Category{}, fmt.Errorf("catalog: %q: %w", name, ErrCategoryNotFound)
	}
	return cat, nil
}

// Steps returns the rendered directive of every step of the named category,
// in order.
func (c *Catalog) Steps(name string) ([]string, error) {
	cat, err := c.Category(name)
	if err != nil {
		return nil, err
	}
	return cat.Directives(), nil
}

func (c *Catalog) add(key string, cat Category) error {
	if c.categories == nil {
		c.categories = map[string]Category{}
	}
	if _, dup := c.categories[key]; dup {
		return fmt.Errorf("duplicate category %q", key)
	}
	c.names = append(c.names, key)
	c.categories[key] = cat
	return nil
}
