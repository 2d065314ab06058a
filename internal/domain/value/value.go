// Package value models arbitrary JSON-like trees as a tagged variant.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	// Null is the zero kind.
	Null Kind = iota
	// Bool holds a boolean.
	Bool
	// Number holds a float64.
	Number
	// String holds a string.
	String
	// Array holds an ordered list of values.
	Array
	// Object holds a string-keyed mapping of values.
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable JSON-like value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// FromBool wraps a boolean.
func FromBool(b bool) Value { return Value{kind: Bool, b: b} }

// FromNumber wraps a number.
func FromNumber(n float64) Value { return Value{kind: Number, n: n} }

// FromString wraps a string.
func FromString(s string) Value { return Value{kind: String, s: s} }

// FromArray wraps a list of values. The slice is copied.
func FromArray(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: Array, arr: cp}
}

// FromObject wraps a mapping of values. The map is copied.
func FromObject(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: Object, obj: cp}
}

// FromAny converts decoded JSON or YAML data into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case bool:
		return FromBool(t), nil
	case string:
		return FromString(t), nil
	case time.Time:
		// yaml.v3 decodes unquoted timestamps to time.Time.
		return FromString(t.Format(time.RFC3339Nano)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", t.String(), err)
		}
		return FromNumber(f), nil
	case float64:
		return FromNumber(t), nil
	case float32:
		return FromNumber(float64(t)), nil
	case int:
		return FromNumber(float64(t)), nil
	case int32:
		return FromNumber(float64(t)), nil
	case int64:
		return FromNumber(float64(t)), nil
	case uint:
		return FromNumber(float64(t)), nil
	case uint64:
		return FromNumber(float64(t)), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: Array, arr: items}, nil
	case []Value:
		return FromArray(t), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = v
		}
		return Value{kind: Object, obj: fields}, nil
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			key := fmt.Sprint(k)
			v, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			fields[key] = v
		}
		return Value{kind: Object, obj: fields}, nil
	case map[string]Value:
		return FromObject(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %s", reflect.TypeOf(x))
	}
}

// MustFromAny is FromAny for literals known to be convertible.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseJSON decodes a single JSON document.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("unexpected data after top-level value")
	}
	return FromAny(raw)
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == Number }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// IsInteger reports whether v is a number without a fractional part.
func (v Value) IsInteger() bool {
	return v.kind == Number && !math.IsInf(v.n, 0) && v.n == math.Trunc(v.n)
}

// Len returns the element count of an array or the field count of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	default:
		return 0
	}
}

// Items returns a copy of the array elements, or nil for non-arrays.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp
}

// Index returns the i-th array element.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Field returns the named object field.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Has reports whether an object carries the named key.
func (v Value) Has(name string) bool {
	_, ok := v.Field(name)
	return ok
}

// Keys returns object keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality. Numbers compare by value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		return v.n == o.n
	case String:
		return v.s == o.s
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := o.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// ToAny converts v back into plain Go data (map[string]any, []any, float64...).
func (v Value) ToAny() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v with object keys sorted.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes arbitrary JSON into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compact returns the compact JSON rendering of v.
func (v Value) Compact() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "null"
	}
	return string(b)
}

// Pretty returns the indented JSON rendering of v.
func (v Value) Pretty() string {
	b, err := json.MarshalIndent(v.ToAny(), "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

// String renders scalars as JSON literals and containers as compact JSON.
func (v Value) String() string { return v.Compact() }
