package starvm

import (
	"fmt"
	"math"
	"sort"

	"go.starlark.net/starlark"
)

// toStarlark converts a value decoded from the boundary encoding.
func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case float64:
		return starlark.Float(val), nil
	case float32:
		return starlark.Float(val), nil
	case []byte:
		return starlark.Bytes(val), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[any]any:
		keys := make([]string, 0, len(val))
		byName := make(map[string]any, len(val))
		for k, item := range val {
			name, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("map key must be string, got %T", k)
			}
			keys = append(keys, name)
			byName[name] = item
		}
		return stringDict(keys, byName)

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		return stringDict(keys, val)

	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

func stringDict(keys []string, values map[string]any) (*starlark.Dict, error) {
	sort.Strings(keys)
	dict := starlark.NewDict(len(keys))
	for _, k := range keys {
		sv, err := toStarlark(values[k])
		if err != nil {
			return nil, fmt.Errorf("dict key %q: %w", k, err)
		}
		if err := dict.SetKey(starlark.String(k), sv); err != nil {
			return nil, fmt.Errorf("dict setkey %q: %w", k, err)
		}
	}
	return dict, nil
}

// fromStarlark converts a Starlark value into a Go value the boundary
// encoding accepts.
func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Bytes:
		return []byte(val), nil
	case starlark.Bool:
		return bool(val), nil

	case starlark.Int:
		if i64, ok := val.Int64(); ok {
			return i64, nil
		}
		if u64, ok := val.Uint64(); ok && u64 > math.MaxInt64 {
			return u64, nil
		}
		return nil, fmt.Errorf("integer %s out of range", val)

	case starlark.Float:
		return float64(val), nil

	case *starlark.List:
		return sequence(val)
	case starlark.Tuple:
		return sequence(val)

	case *starlark.Dict:
		result := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := fromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	default:
		return nil, fmt.Errorf("cannot pass %s across the boundary", v.Type())
	}
}

func sequence(seq starlark.Indexable) ([]any, error) {
	result := make([]any, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		gv, err := fromStarlark(seq.Index(i))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		result[i] = gv
	}
	return result, nil
}
