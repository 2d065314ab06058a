// Package validation checks candidate values against a parsed schema and scores
// how many required fields a candidate carries.
package validation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
)

// MsgMissingRequired is reported for each absent required property.
const MsgMissingRequired = "missing required property"

// Validate checks candidate against root and collects every violation in
// depth-first order. It never panics: internal faults become a single generic
// violation appended to whatever was collected so far.
func Validate(candidate value.Value, root *schema.Node) (res verdict.Result) {
	w := &walker{}
	defer func() {
		if r := recover(); r != nil {
			w.add(nil, fmt.Sprintf("unexpected validation fault: %v", r))
			res = verdict.Result{Valid: false, Violations: w.violations}
		}
	}()

	if root == nil {
		panic("nil schema")
	}
	w.walk(candidate, root, nil)
	return verdict.Result{Valid: len(w.violations) == 0, Violations: w.violations}
}

type walker struct {
	violations []verdict.Violation
}

func (w *walker) add(path verdict.Path, msg string) {
	w.violations = append(w.violations, verdict.Violation{Path: path, Message: msg})
}

func (w *walker) walk(c value.Value, n *schema.Node, path verdict.Path) {
	if !kindMatches(c, n.Kind()) {
		w.add(path, fmt.Sprintf("expected %s, got %s", n.Kind(), describe(c)))
		return
	}

	if enum := n.Enum(); enum != nil && !contains(enum, c) {
		w.add(path, fmt.Sprintf("value %s is not one of the allowed values [%s]", c.Compact(), joinValues(enum)))
	}

	switch c.Kind() {
	case value.Object:
		w.walkObject(c, n, path)
	case value.Array:
		if items := n.Items(); items != nil {
			for i, elem := range c.Items() {
				w.walk(elem, items, path.Child(verdict.Index(i)))
			}
		}
	}
}

func (w *walker) walkObject(c value.Value, n *schema.Node, path verdict.Path) {
	for _, name := range n.Required() {
		if !c.Has(name) {
			w.add(path.Child(verdict.Key(name)), MsgMissingRequired)
		}
	}
	for _, name := range n.PropertyNames() {
		field, ok := c.Field(name)
		if !ok {
			continue
		}
		child, _ := n.Property(name)
		w.walk(field, child, path.Child(verdict.Key(name)))
	}
}

func kindMatches(c value.Value, k schema.Kind) bool {
	switch k {
	case schema.KindAny:
		return true
	case schema.KindObject:
		return c.Kind() == value.Object
	case schema.KindArray:
		return c.Kind() == value.Array
	case schema.KindString:
		return c.Kind() == value.String
	case schema.KindNumber:
		return c.Kind() == value.Number
	case schema.KindInteger:
		return c.IsInteger()
	case schema.KindBoolean:
		return c.Kind() == value.Bool
	case schema.KindNull:
		return c.Kind() == value.Null
	default:
		panic(fmt.Sprintf("unhandled schema kind %q", string(k)))
	}
}

func describe(c value.Value) string {
	if c.Kind() == value.Number && c.IsInteger() {
		return "integer"
	}
	return c.Kind().String()
}

func contains(allowed []value.Value, c value.Value) bool {
	for _, a := range allowed {
		if a.Equal(c) {
			return true
		}
	}
	return false
}

func joinValues(vals []value.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Compact()
	}
	return strings.Join(parts, ", ")
}
