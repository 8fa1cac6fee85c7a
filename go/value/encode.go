package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromAny converts a decoded Go value (as produced by encoding/json, using
// json.Number for numbers) into a Value tree. It is the bridge between the
// wire format used by the external map/transport and the engine's internal
// model.
func FromAny(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("decoding number %q: %w", t, err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]*Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = Ptr(v)
		}
		return FromArray(&Array{items: items}), nil
	case map[string]interface{}:
		// encoding/json does not preserve key order; FromAny over a raw
		// map is therefore only used for ad hoc construction (tests,
		// CLI input), never for re-deriving canonical document state.
		o := &Object{vals: make(map[string]*Value, len(t))}
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			o.SetSlot(k, Ptr(v))
		}
		return FromObject(o), nil
	default:
		return Value{}, fmt.Errorf("value.FromAny: unsupported type %T", x)
	}
}

// ToAny converts a Value tree into plain Go values suitable for
// encoding/json.Marshal. Undefined holes encode as null, matching how a
// sparse array round-trips through JSON (JSON has no "hole" concept).
func ToAny(v Value) interface{} {
	switch v.kind {
	case KindNull, KindUndefined:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.arr.items))
		for i, p := range v.arr.items {
			out[i] = ToAny(Deref(p))
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj.vals))
		for _, k := range v.obj.keys {
			out[k] = ToAny(Deref(v.obj.vals[k]))
		}
		return out
	default:
		return nil
	}
}

// Marshal encodes v as JSON.
func Marshal(v Value) ([]byte, error) {
	return json.Marshal(ToAny(v))
}

// Parse decodes JSON data into a Value tree, preserving object key order
// via a token-level decode rather than a plain map[string]interface{}
// unmarshal.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var parse func() (Value, error)
	parse = func() (Value, error) {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				o := &Object{vals: make(map[string]*Value)}
				for dec.More() {
					keyTok, err := dec.Token()
					if err != nil {
						return Value{}, err
					}
					key, _ := keyTok.(string)
					v, err := parse()
					if err != nil {
						return Value{}, err
					}
					o.SetSlot(key, Ptr(v))
				}
				if _, err := dec.Token(); err != nil { // consume '}'
					return Value{}, err
				}
				return FromObject(o), nil
			case '[':
				var items []*Value
				for dec.More() {
					v, err := parse()
					if err != nil {
						return Value{}, err
					}
					items = append(items, Ptr(v))
				}
				if _, err := dec.Token(); err != nil { // consume ']'
					return Value{}, err
				}
				return FromArray(&Array{items: items}), nil
			}
			return Value{}, fmt.Errorf("value.Parse: unexpected delimiter %v", t)
		case nil:
			return Null(), nil
		case bool:
			return Bool(t), nil
		case json.Number:
			f, err := t.Float64()
			if err != nil {
				return Value{}, err
			}
			return Number(f), nil
		case string:
			return String(t), nil
		default:
			return Value{}, fmt.Errorf("value.Parse: unexpected token %T", t)
		}
	}
	return parse()
}
