package core

import (
	"bytes"
	"encoding/json"
)

// Kind discriminates the JSON value union.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged JSON value. Fields like scale, uncertainty sources and
// misc carry heterogeneous JSON; narrowing happens here, once, instead of
// type probing scattered through evaluation code. The raw bytes are kept so
// opaque blocks (tool, settings, misc) round-trip untouched.
type Value struct {
	kind Kind
	raw  json.RawMessage

	boolVal bool
	numVal  float64
	strVal  string
	arr     []Value
	obj     map[string]Value
	keys    []string // object key order as written
}

// UnmarshalJSON decodes into the tagged representation.
func (v *Value) UnmarshalJSON(data []byte) error {
	v.raw = append(json.RawMessage(nil), data...)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		v.kind = KindAbsent
		return nil
	}
	switch trimmed[0] {
	case 'n':
		v.kind = KindNull
		return nil
	case 't', 'f':
		v.kind = KindBool
		return json.Unmarshal(trimmed, &v.boolVal)
	case '"':
		v.kind = KindString
		return json.Unmarshal(trimmed, &v.strVal)
	case '[':
		v.kind = KindArray
		return json.Unmarshal(trimmed, &v.arr)
	case '{':
		v.kind = KindObject
		if err := json.Unmarshal(trimmed, &v.obj); err != nil {
			return err
		}
		v.keys = objectKeyOrder(trimmed)
		return nil
	default:
		v.kind = KindNumber
		return json.Unmarshal(trimmed, &v.numVal)
	}
}

// MarshalJSON emits the original bytes, preserving opaque blocks verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

func (v Value) Kind() Kind          { return v.kind }
func (v Value) IsAbsent() bool      { return v.kind == KindAbsent }
func (v Value) Raw() json.RawMessage { return v.raw }

func (v Value) AsBool() (bool, bool) {
	return v.boolVal, v.kind == KindBool
}

func (v Value) AsNumber() (float64, bool) {
	return v.numVal, v.kind == KindNumber
}

func (v Value) AsString() (string, bool) {
	return v.strVal, v.kind == KindString
}

func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

func (v Value) AsObject() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// ObjectKeys returns the object's keys in document order.
func (v Value) ObjectKeys() []string {
	return v.keys
}

// Field returns the named member of an object value, or an absent Value when
// the receiver is not an object or lacks the field.
func (v Value) Field(name string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	f, ok := v.obj[name]
	if !ok {
		return Value{}
	}
	return f
}

// AsNumberSlice narrows an array of numbers; fails if any element is not a
// number.
func (v Value) AsNumberSlice() ([]float64, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]float64, len(v.arr))
	for i, el := range v.arr {
		n, ok := el.AsNumber()
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// AsStringSlice narrows an array of strings.
func (v Value) AsStringSlice() ([]string, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]string, len(v.arr))
	for i, el := range v.arr {
		s, ok := el.AsString()
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// objectKeyOrder re-scans an object literal for its key order. encoding/json
// maps lose it, and uncertainty sources should be reported in author order.
func objectKeyOrder(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))
	var keys []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return keys
				}
			}
		case string:
			// A string token at depth 1 that is followed by a value is a key;
			// json.Decoder alternates key/value at object level, so track parity.
			if depth == 1 {
				keys = append(keys, t)
				// skip the value
				skipValue(dec)
			}
		}
	}
}

func skipValue(dec *json.Decoder) {
	tok, err := dec.Token()
	if err != nil {
		return
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		depth := 1
		for depth > 0 {
			tok, err := dec.Token()
			if err != nil {
				return
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
}
