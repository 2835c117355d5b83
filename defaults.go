package goforma

import (
	"github.com/samber/mo"

	"github.com/reoring/goforma/rules"
)

// ResolveDefault returns f's default when v is empty (absent, null or the
// empty string) and f declares one; otherwise v. Falsy defaults such as
// false, 0 or "" are honored.
func ResolveDefault(v mo.Option[any], f *Field) mo.Option[any] {
	if f == nil || f.Default.IsAbsent() {
		return v
	}
	if rules.IsEmpty(v) {
		return mo.Some(cloneValue(f.Default.MustGet()))
	}
	return v
}

// ResolveDefaults defaults every key of data declared by m, descending into
// nested object models. data is modified in place and returned; callers own
// copy-on-write.
func ResolveDefaults(data map[string]any, m *Model) map[string]any {
	if data == nil || m == nil {
		return data
	}
	for i := range m.fields {
		f := &m.fields[i]
		v := ResolveDefault(optionAt(data, f.Key), f)
		x, ok := v.Get()
		if !ok {
			continue
		}
		if sub, isModel := f.Model.(*Model); isModel {
			if obj, isObj := x.(map[string]any); isObj {
				x = ResolveDefaults(obj, sub)
			}
		}
		data[f.Key] = x
	}
	return data
}

// CreateFrom synthesizes a fresh value from the defaults declared by model,
// resolving references through the default engine.
func CreateFrom(model Node) (any, error) { return Default().CreateFrom(model) }

// CreateFrom synthesizes a fresh value from the defaults declared by model:
// an object for Models, the default (or an empty array for array fields) for
// a Field. Nested object models contribute their own defaults.
func (e *Engine) CreateFrom(model Node) (any, error) {
	return e.createFrom(model, 0)
}

func (e *Engine) createFrom(model Node, depth int) (any, error) {
	if err := e.depthExceeded(depth); err != nil {
		return nil, err
	}
	n, err := e.resolve(model)
	if err != nil {
		return nil, err
	}
	switch t := n.(type) {
	case *Model:
		out := make(map[string]any, t.Len())
		for i := range t.fields {
			f := &t.fields[i]
			if d, ok := f.Default.Get(); ok {
				out[f.Key] = cloneValue(d)
				continue
			}
			if f.Model == nil || f.Type == "array" {
				continue
			}
			sub, err := e.resolve(f.Model)
			if err != nil {
				return nil, err
			}
			if _, isModel := sub.(*Model); !isModel {
				continue
			}
			v, err := e.createFrom(sub, depth+1)
			if err != nil {
				return nil, err
			}
			if obj, ok := v.(map[string]any); ok && len(obj) > 0 {
				out[f.Key] = obj
			}
		}
		return out, nil
	case *Field:
		if d, ok := t.Default.Get(); ok {
			return cloneValue(d), nil
		}
		if t.Type == "array" {
			return []any{}, nil
		}
		if t.Model != nil {
			return e.createFrom(t.Model, depth+1)
		}
		return nil, nil
	}
	return nil, nil
}

// ---- shape helpers ----

func optionAt(m map[string]any, key string) mo.Option[any] {
	v, ok := m[key]
	if !ok {
		return mo.None[any]()
	}
	return mo.Some(v)
}

func optionOf(v any) mo.Option[any] {
	if v == nil {
		return mo.None[any]()
	}
	return mo.Some(v)
}

func asObject(v mo.Option[any]) (map[string]any, bool) {
	x, ok := v.Get()
	if !ok {
		return nil, false
	}
	m, ok := x.(map[string]any)
	return m, ok && m != nil
}

func asArray(v mo.Option[any]) ([]any, bool) {
	x, ok := v.Get()
	if !ok {
		return nil, false
	}
	a, ok := x.([]any)
	return a, ok
}

// cloneValue deep-copies maps and slices so defaults handed out never alias
// the model.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}
