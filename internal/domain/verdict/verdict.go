// Package verdict holds validation outcomes.
package verdict

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Segment is one step of a violation path: an object property or an array index.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Key creates a property segment.
func Key(name string) Segment { return Segment{name: name} }

// Index creates an array index segment.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether the segment addresses an array element.
func (s Segment) IsIndex() bool { return s.isIndex }

// Name returns the property name of a key segment.
func (s Segment) Name() string { return s.name }

// Position returns the array index of an index segment.
func (s Segment) Position() int { return s.index }

// MarshalJSON renders keys as strings and indices as numbers.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.isIndex {
		return []byte(strconv.Itoa(s.index)), nil
	}
	return json.Marshal(s.name)
}

// Path is the ordered sequence of segments from the schema root.
type Path []Segment

// Child returns a new path extended by seg; p is never modified.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// String renders the path as dotted keys with bracketed indices, e.g. action.recipients[0].
func (p Path) String() string {
	if len(p) == 0 {
		return "(root)"
	}
	var b strings.Builder
	for i, s := range p {
		if s.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.name)
	}
	return b.String()
}

// Pointer renders the path as an RFC 6901 JSON pointer.
func (p Path) Pointer() string {
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		if s.isIndex {
			b.WriteString(strconv.Itoa(s.index))
			continue
		}
		b.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(s.name))
	}
	return b.String()
}

// Violation is a single validation problem.
type Violation struct {
	Path    Path
	Message string
}

func (v Violation) String() string { return v.Path.String() + ": " + v.Message }

// Result is the verdict of one validation call.
type Result struct {
	Valid      bool
	Violations []Violation
}

// Messages renders violations as "path: message" strings in order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.String()
	}
	return out
}

// Report bundles a verdict with the coverage score.
type Report struct {
	Result
	Coverage float64
}
