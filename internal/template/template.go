// Package template substitutes ${key} placeholders in webhook URLs,
// headers and bodies from a flat event payload. Expansion is pure and
// total: unknown keys are left in place, never reported as errors.
package template

import (
	"encoding/json"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\$\{(\w+)\}`)

type kind int

const (
	kindString kind = iota
	kindObject
	kindArray
	kindRaw
)

// Value is a tagged variant over the shapes a body template can take:
// a string (the only shape placeholders live in), an object or array of
// nested values, or a raw scalar (number, bool, null) passed through
// untouched.
type Value struct {
	kind kind
	str  string
	obj  map[string]Value
	arr  []Value
	raw  json.RawMessage
}

func String(s string) Value           { return Value{kind: kindString, str: s} }
func Object(m map[string]Value) Value { return Value{kind: kindObject, obj: m} }
func Array(vs []Value) Value          { return Value{kind: kindArray, arr: vs} }
func Raw(raw json.RawMessage) Value   { return Value{kind: kindRaw, raw: raw} }

func (v Value) IsString() bool { return v.kind == kindString }

// StringValue returns the underlying string, or "" for non-string values.
func (v Value) StringValue() string { return v.str }

func (v *Value) UnmarshalJSON(data []byte) error {
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case len(data) > 0 && data[0] == '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*v = Object(m)
	case len(data) > 0 && data[0] == '[':
		var vs []Value
		if err := json.Unmarshal(data, &vs); err != nil {
			return err
		}
		*v = Array(vs)
	default:
		*v = Raw(append(json.RawMessage(nil), data...))
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindObject:
		return json.Marshal(v.obj)
	case kindArray:
		return json.Marshal(v.arr)
	default:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return v.raw, nil
	}
}

// Expand substitutes every ${key} present in payload, preserving the
// value's structure. Keys absent from the payload keep their placeholder
// text verbatim.
func Expand(v Value, payload map[string]string) Value {
	switch v.kind {
	case kindString:
		return String(ExpandString(v.str, payload))
	case kindObject:
		out := make(map[string]Value, len(v.obj))
		for k, child := range v.obj {
			out[k] = Expand(child, payload)
		}
		return Object(out)
	case kindArray:
		out := make([]Value, len(v.arr))
		for i, child := range v.arr {
			out[i] = Expand(child, payload)
		}
		return Array(out)
	default:
		return v
	}
}

// ExpandString substitutes placeholders in a single string, left to
// right, non-overlapping.
func ExpandString(s string, payload map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := payload[key]; ok {
			return val
		}
		return match
	})
}

// ExpandMap substitutes placeholders in every value of a flat map.
// Used for webhook header templates.
func ExpandMap(m map[string]string, payload map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = ExpandString(v, payload)
	}
	return out
}

// ExpandJSON parses raw as a template value, expands it, and re-encodes.
// Raw bytes that are not valid JSON are treated as a plain string
// template so expansion stays total over stored bodies.
func ExpandJSON(raw json.RawMessage, payload map[string]string) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var v Value
	if err := json.Unmarshal(raw, &v); err != nil {
		expanded, _ := json.Marshal(ExpandString(string(raw), payload))
		return expanded
	}
	out, err := json.Marshal(Expand(v, payload))
	if err != nil {
		return raw
	}
	return out
}
