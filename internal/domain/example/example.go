// Package example holds the reference workflow example aggregate.
package example

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/wfassist/internal/domain/value"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// MaxIDLength is the maximum example identifier length.
const MaxIDLength = 256

// Example is one reference workflow (immutable value object).
type Example struct {
	id          string
	title       string
	description string
	config      value.Value
}

// New validates and creates an Example.
// ID: ^[a-zA-Z0-9_.-]+$, 1-256 chars. Config, when present, must be an object.
func New(id, title, description string, config value.Value) (Example, error) {
	if id == "" {
		return Example{}, fmt.Errorf("example ID is required")
	}
	if len(id) > MaxIDLength {
		return Example{}, fmt.Errorf("example ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return Example{}, fmt.Errorf("example ID %q must be alphanumeric with dots, underscores and hyphens", id)
	}
	if config.Kind() != value.Object && !config.IsNull() {
		return Example{}, fmt.Errorf("example %q: config must be an object, got %s", id, config.Kind())
	}
	if config.IsNull() {
		config = value.FromObject(nil)
	}
	return Example{id: id, title: title, description: description, config: config}, nil
}

// Reconstruct creates an Example without validation.
func Reconstruct(id, title, description string, config value.Value) Example {
	return Example{id: id, title: title, description: description, config: config}
}

// ID returns the example identifier.
func (e Example) ID() string { return e.id }

// Title returns the short title.
func (e Example) Title() string { return e.title }

// Description returns the free-text description.
func (e Example) Description() string { return e.description }

// Config returns the workflow configuration tree.
func (e Example) Config() value.Value { return e.config }

// Text is the searchable rendering: title, description and compact config JSON.
func (e Example) Text() string {
	return strings.Join([]string{e.title, e.description, e.config.Compact()}, " ")
}
