package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind enumerates the closed set of value types a Meta entry can hold.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueList
	ValueBag
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	case ValueList:
		return "list"
	case ValueBag:
		return "bag"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is one entry of a Meta bag. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	lit  string // number as decoded, re-emitted verbatim
	b    bool
	list []Value
	bag  Meta
}

// Meta carries provider-specific model metadata without the core needing
// to know its shape. Keys are strings, values are a closed union of
// primitives, lists and nested bags.
type Meta map[string]Value

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value { return Value{kind: ValueNumber, num: n} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// ListValue returns a list Value.
func ListValue(items ...Value) Value { return Value{kind: ValueList, list: items} }

// BagValue returns a nested bag Value.
func BagValue(m Meta) Value { return Value{kind: ValueBag, bag: m} }

// Kind reports which member of the union v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == ValueNumber }

// Literal returns the number held by v as it was decoded. Numbers built
// with NumberValue are formatted from their float64.
func (v Value) Literal() (json.Number, bool) {
	if v.kind != ValueNumber {
		return "", false
	}
	if v.lit != "" {
		return json.Number(v.lit), true
	}
	b, _ := json.Marshal(v.num)
	return json.Number(b), true
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsList returns the list held by v.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == ValueList }

// AsBag returns the nested bag held by v.
func (v Value) AsBag() (Meta, bool) { return v.bag, v.kind == ValueBag }

// ValueOf converts a decoded JSON value (as produced by encoding/json into
// an interface{}) into a Value. Unsupported Go types yield an error.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		return NumberValue(t), nil
	case float32:
		return NumberValue(float64(t)), nil
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		if !json.Valid([]byte(t)) {
			return Value{}, fmt.Errorf("invalid number %q", t)
		}
		return Value{kind: ValueNumber, num: n, lit: t.String()}, nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return ListValue(items...), nil
	case map[string]any:
		m, err := MetaOf(t)
		if err != nil {
			return Value{}, err
		}
		return BagValue(m), nil
	}
	return Value{}, fmt.Errorf("unsupported meta value of type %T", x)
}

// MetaOf converts a decoded JSON object into a Meta bag.
func MetaOf(obj map[string]any) (Meta, error) {
	m := make(Meta, len(obj))
	for k, x := range obj {
		v, err := ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m[k] = v
	}
	return m, nil
}

// ParseMeta decodes a raw JSON object into a Meta bag.
func ParseMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Interface converts v back into plain Go values (string, float64, bool,
// []any, map[string]any or nil).
func (v Value) Interface() any {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	case ValueList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case ValueBag:
		return v.bag.Interface()
	}
	return nil
}

// Interface converts the bag into a plain map.
func (m Meta) Interface() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// String returns the string stored under key, or "" when absent or not a string.
func (m Meta) String(key string) string {
	s, _ := m[key].AsString()
	return s
}

// Keys returns the bag keys in sorted order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the bag.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	switch v.kind {
	case ValueList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.clone()
		}
		return ListValue(items...)
	case ValueBag:
		return BagValue(v.bag.Clone())
	}
	return v
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		if v.lit != "" {
			return []byte(v.lit), nil
		}
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueBag:
		if v.bag == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.bag)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	parsed, err := ValueOf(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
