// Package fixtures holds the static placeholder content the public site
// shows when the database is unreachable.  The records are embedded YAML,
// decoded once and then converted through each entity's JSON tags so the
// same field names and date handling apply as in the HTTP API.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/testimonial"
)

//go:embed fixtures.yaml
var raw []byte

// Set is one copy of every fixture list.
type Set struct {
	Categories   []event.Category          `json:"categories"`
	Events       []event.Event             `json:"events"`
	Recipes      []recipe.Recipe           `json:"recipes"`
	BlogPosts    []blog.Post               `json:"blog_posts"`
	Testimonials []testimonial.Testimonial `json:"testimonials"`
}

// Parse decodes a fixture document.
func Parse(doc []byte) (*Set, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(doc, &tree); err != nil {
		return nil, fmt.Errorf("fixtures: yaml: %w", err)
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	var s Set
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	return &s, nil
}

var (
	once   sync.Once
	loaded *Set
	errLd  error
)

// Load returns the embedded fixtures.  The document is decoded once.
func Load() (*Set, error) {
	once.Do(func() { loaded, errLd = Parse(raw) })
	return loaded, errLd
}

// Must is Load that panics on a broken embedded document.
func Must() *Set {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}
