package value

import "fmt"

// FromAny converts a decoded encoding/json tree (map[string]any, []any,
// string, float64, bool, nil) into a Value tree. Go int, int64, float32
// and values that are already a Value are accepted too; json.Number is
// not.
// It is the boundary adapter between the host process's transport decoding
// and the engine's internal representation; nothing in the core imports
// encoding/json directly for this purpose.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return Str(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case float32:
		return FromAny(float64(val))
	case []any:
		items := make([]Value, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = converted
		}
		return &Array{Items: items}, nil
	case map[string]any:
		obj := NewObject()
		for k, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj.setField(k, converted)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("value: cannot convert %T to Value", v)
	}
}

// MustFromAny is FromAny for callers that have already validated the shape
// is convertible (e.g. output of encoding/json.Unmarshal into any).
func MustFromAny(v any) Value {
	out, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return out
}

// ToAny converts a Value tree back into the plain any shapes
// encoding/json.Marshal understands, for hosts that need to re-serialize a
// snapshot value.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null, Undefined:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Str:
		return string(val)
	case *Array:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = ToAny(val.At(i))
		}
		return out
	case *Object:
		out := make(map[string]any, val.Len())
		for _, k := range val.SortedKeys() {
			out[k] = ToAny(val.Get(k))
		}
		return out
	default:
		return nil
	}
}
