// Package schema holds the parsed, read-only form of a declarative output schema.
package schema

import (
	"fmt"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
)

// Kind is the declared value kind of a schema node.
type Kind string

// Supported kinds. KindAny accepts every candidate.
const (
	KindAny     Kind = ""
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
)

var knownKinds = map[string]Kind{
	"object":  KindObject,
	"array":   KindArray,
	"string":  KindString,
	"number":  KindNumber,
	"integer": KindInteger,
	"boolean": KindBoolean,
	"null":    KindNull,
}

// Composition and reference keywords are not evaluated; a schema carrying them is rejected
// instead of being silently treated as permissive.
var unsupportedKeywords = []string{"$ref", "allOf", "anyOf", "oneOf", "not"}

// Node is one constraint unit of the schema tree.
type Node struct {
	kind       Kind
	properties map[string]*Node
	propOrder  []string
	required   []string
	enum       []value.Value
	items      *Node
	raw        value.Value
}

// Kind returns the declared kind.
func (n *Node) Kind() Kind { return n.kind }

// Property returns the child node for a declared property.
func (n *Node) Property(name string) (*Node, bool) {
	c, ok := n.properties[name]
	return c, ok
}

// PropertyNames returns declared property names in sorted order.
func (n *Node) PropertyNames() []string { return n.propOrder }

// Required returns the required property names in declaration order.
func (n *Node) Required() []string { return n.required }

// Enum returns the allowed literal values, nil when unconstrained.
func (n *Node) Enum() []value.Value { return n.enum }

// Items returns the element schema for arrays, nil when undeclared.
func (n *Node) Items() *Node { return n.items }

// Raw returns the schema document the node was parsed from.
func (n *Node) Raw() value.Value { return n.raw }

// Parse builds a schema tree from a JSON-like document.
// Structural problems are reported as *domain.SchemaError.
func Parse(doc value.Value) (*Node, error) {
	return parseNode(doc, nil)
}

// ParseJSON parses raw JSON bytes into a schema tree.
func ParseJSON(data []byte) (*Node, error) {
	doc, err := value.ParseJSON(data)
	if err != nil {
		return nil, domain.NewSchemaError(nil, fmt.Sprintf("not valid JSON: %v", err))
	}
	return Parse(doc)
}

// MustParse panics on a malformed schema. Intended for built-in literals.
func MustParse(doc value.Value) *Node {
	n, err := Parse(doc)
	if err != nil {
		panic(err)
	}
	return n
}

func parseNode(doc value.Value, path []string) (*Node, error) {
	if doc.Kind() != value.Object {
		return nil, domain.NewSchemaError(path, fmt.Sprintf("schema node must be an object, got %s", doc.Kind()))
	}
	for _, kw := range unsupportedKeywords {
		if doc.Has(kw) {
			return nil, domain.NewSchemaError(path, fmt.Sprintf("unsupported keyword %q", kw))
		}
	}

	n := &Node{raw: doc}

	if t, ok := doc.Field("type"); ok {
		name, isStr := t.AsString()
		if !isStr {
			return nil, domain.NewSchemaError(append(path, "type"), "type must be a string")
		}
		k, known := knownKinds[name]
		if !known {
			return nil, domain.NewSchemaError(append(path, "type"), fmt.Sprintf("unknown type %q", name))
		}
		n.kind = k
	}

	if props, ok := doc.Field("properties"); ok {
		if props.Kind() != value.Object {
			return nil, domain.NewSchemaError(append(path, "properties"), "properties must be an object")
		}
		n.properties = make(map[string]*Node, props.Len())
		for _, name := range props.Keys() {
			sub, _ := props.Field(name)
			child, err := parseNode(sub, appendPath(path, "properties", name))
			if err != nil {
				return nil, err
			}
			n.properties[name] = child
		}
		n.propOrder = props.Keys()
	}

	if req, ok := doc.Field("required"); ok {
		names, err := parseRequired(req, append(path, "required"))
		if err != nil {
			return nil, err
		}
		n.required = names
	}

	if e, ok := doc.Field("enum"); ok {
		if e.Kind() != value.Array {
			return nil, domain.NewSchemaError(append(path, "enum"), "enum must be an array")
		}
		if e.Len() == 0 {
			return nil, domain.NewSchemaError(append(path, "enum"), "enum must not be empty")
		}
		n.enum = e.Items()
	}

	if it, ok := doc.Field("items"); ok {
		child, err := parseNode(it, append(path, "items"))
		if err != nil {
			return nil, err
		}
		n.items = child
	}

	return n, nil
}

func parseRequired(req value.Value, path []string) ([]string, error) {
	if req.Kind() != value.Array {
		return nil, domain.NewSchemaError(path, "required must be an array of strings")
	}
	seen := make(map[string]bool, req.Len())
	names := make([]string, 0, req.Len())
	for i, item := range req.Items() {
		s, ok := item.AsString()
		if !ok {
			return nil, domain.NewSchemaError(path, fmt.Sprintf("required[%d] must be a string", i))
		}
		if seen[s] {
			return nil, domain.NewSchemaError(path, fmt.Sprintf("duplicate required property %q", s))
		}
		seen[s] = true
		names = append(names, s)
	}
	return names, nil
}

func appendPath(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}
