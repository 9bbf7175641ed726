package starhook

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/speakeasy-api/schemafaker/schemagen"
)

// toStarlark converts JSON-like Go values. Values with no Starlark
// counterpart, such as functions, become None.
func toStarlark(v any) starlark.Value {
	switch val := v.(type) {
	case nil:
		return starlark.None
	case string:
		return starlark.String(val)
	case bool:
		return starlark.Bool(val)
	case int:
		return starlark.MakeInt(val)
	case int64:
		return starlark.MakeInt64(val)
	case uint64:
		return starlark.MakeUint64(val)
	case float64:
		return starlark.Float(val)
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			list[i] = toStarlark(item)
		}
		return starlark.NewList(list)
	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list)
	case schemagen.Schema:
		return toStarlark(map[string]any(val))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			_ = dict.SetKey(starlark.String(k), toStarlark(val[k]))
		}
		return dict
	}
	return starlark.None
}

// toGo converts a Starlark result back to JSON-like Go values.
func toGo(v starlark.Value) any {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.String:
		return string(val)
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i
		}
		f, _ := starlark.AsFloat(val)
		return f
	case starlark.Float:
		return float64(val)
	case starlark.Indexable:
		out := make([]any, val.Len())
		for i := range out {
			out[i] = toGo(val.Index(i))
		}
		return out
	case starlark.IterableMapping:
		out := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				out[item[0].String()] = toGo(item[1])
				continue
			}
			out[string(key)] = toGo(item[1])
		}
		return out
	}
	return fmt.Sprint(v)
}
