package flags

import (
	"encoding/json"
	"strconv"
)

// Value is a tagged variant over the four flag value kinds. Exactly one of
// the payload fields is meaningful, selected by Type; the switch in each
// method is exhaustive so adding a FlagType fails loudly here.
type Value struct {
	Type FlagType
	Bool bool
	Str  string
	Num  float64
	JSON any
}

// ZeroValue returns the type-appropriate safe default: false, empty string,
// zero, or an empty structure.
func ZeroValue(t FlagType) Value {
	v := Value{Type: t}
	if t == TypeJSON {
		v.JSON = map[string]any{}
	}
	return v
}

// DecodeValue deserializes a stored variation value per the flag's declared
// type. It fails closed: any mismatch or parse error yields ok=false and the
// variation is treated as absent, never an error on the evaluation path.
func DecodeValue(t FlagType, raw json.RawMessage) (Value, bool) {
	if len(raw) == 0 {
		return Value{}, false
	}

	switch t {
	case TypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, false
		}
		return Value{Type: t, Bool: b}, true
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, false
		}
		return Value{Type: t, Str: s}, true
	case TypeNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, false
		}
		return Value{Type: t, Num: n}, true
	case TypeJSON:
		var j any
		if err := json.Unmarshal(raw, &j); err != nil || j == nil {
			return Value{}, false
		}
		return Value{Type: t, JSON: j}, true
	default:
		return Value{}, false
	}
}

// Any returns the untyped payload, e.g. for structured logging.
func (v Value) Any() any {
	switch v.Type {
	case TypeBoolean:
		return v.Bool
	case TypeString:
		return v.Str
	case TypeNumber:
		return v.Num
	case TypeJSON:
		return v.JSON
	default:
		return nil
	}
}

// String renders the payload for human-facing output (CLI tables).
func (v Value) String() string {
	switch v.Type {
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeString:
		return v.Str
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeJSON:
		b, err := json.Marshal(v.JSON)
		if err != nil {
			return "{}"
		}
		return string(b)
	default:
		return ""
	}
}

// MarshalJSON emits the bare payload, so evaluation results carry the value
// itself rather than the tagged wrapper.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}
