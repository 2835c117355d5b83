package goforma

import (
	"fmt"
	"reflect"

	"github.com/samber/mo"

	"github.com/reoring/goforma/typecheck"
)

// Format normalizes data according to model and returns a new value. data is
// never written to. A nil data synthesizes a value from the model's defaults
// and formats it with Once set, so one-shot generators fire on creation.
//
// The returned error is always a configuration error (unresolvable model,
// failing transform or generator, depth limit); bad data is not an error.
func (e *Engine) Format(model Node, data any, opts ...FormatOptions) (out any, err error) {
	defer func() { e.observer.FormatDone(err) }()

	opt := lastOpt(opts)
	if data == nil {
		created, err := e.createFrom(model, 0)
		if err != nil {
			return nil, err
		}
		data = created
		opt.Once = true
	}

	f := &formatter{e: e, opt: opt}
	v, err := f.dive(model, optionOf(data), NewContext(data), 0)
	if err != nil {
		return nil, err
	}
	out = v.OrEmpty()

	if opt.MapIDFrom != "" {
		if err := f.mapID(model, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type formatter struct {
	e   *Engine
	opt FormatOptions
}

// dive walks model and payload in lock-step.
func (f *formatter) dive(model Node, payload mo.Option[any], ctx Context, depth int) (mo.Option[any], error) {
	if err := f.e.depthExceeded(depth); err != nil {
		return payload, err
	}
	n, err := f.e.resolve(model)
	if err != nil {
		return payload, err
	}
	switch t := n.(type) {
	case *Model:
		obj, ok := asObject(payload)
		if !ok {
			return payload, nil
		}
		return f.object(t, obj, ctx, depth)
	case *Field:
		return f.field(t, payload, ctx, depth)
	}
	return payload, nil
}

func (f *formatter) object(m *Model, in map[string]any, ctx Context, depth int) (mo.Option[any], error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if f.opt.Strict && !m.Has(k) {
			continue
		}
		out[k] = v
	}

	for i := range m.fields {
		fld := &m.fields[i]
		_, present := in[fld.Key]
		if f.opt.Sparse && !present {
			continue
		}
		if !f.opt.Unscope && !ScopesAllow(fld.Show, f.opt.Scopes) {
			delete(out, fld.Key)
			continue
		}
		cur := optionAt(out, fld.Key)
		if fld.Lock && !f.opt.Unlock {
			delete(out, fld.Key)
			cur = mo.None[any]()
		}

		v, err := f.field(fld, cur, ctx, depth)
		if err != nil {
			return mo.Some[any](out), err
		}
		if x, ok := v.Get(); ok {
			out[fld.Key] = x
		} else {
			delete(out, fld.Key)
		}
	}

	f.strip(out)
	return mo.Some[any](out), nil
}

// field runs one field: arrays descend elementwise, everything else goes
// through the leaf pipeline and, for objects with a nested model, recurses.
func (f *formatter) field(fld *Field, cur mo.Option[any], ctx Context, depth int) (mo.Option[any], error) {
	if _, isArr := asArray(cur); isArr || fld.Type == "array" {
		return f.array(fld, cur, ctx, depth)
	}
	v, err := f.leaf(fld, cur, ctx)
	if err != nil {
		return v, err
	}
	if fld.Model == nil {
		return v, nil
	}
	if _, isObj := asObject(v); !isObj {
		return v, nil
	}
	return f.dive(fld.Model, v, ctx, depth+1)
}

func (f *formatter) array(fld *Field, cur mo.Option[any], ctx Context, depth int) (mo.Option[any], error) {
	if in, ok := asArray(cur); ok {
		out := make([]any, len(in))
		copy(out, in)
		if fld.Model != nil {
			elem, err := f.e.resolve(fld.Model)
			if err != nil {
				return cur, err
			}
			for i, el := range in {
				var v mo.Option[any]
				if _, isObj := el.(map[string]any); isObj {
					v, err = f.dive(elem, mo.Some(el), NewContext(el), depth+1)
				} else if ef, isField := elem.(*Field); isField {
					v, err = f.leaf(ef, mo.Some(el), ctx)
				} else {
					continue
				}
				if err != nil {
					return cur, err
				}
				out[i] = v.OrEmpty()
			}
		}
		cur = mo.Some[any](out)
	}
	return f.leaf(fld, cur, ctx)
}

// leaf applies default, generator and transform to a single value.
func (f *formatter) leaf(fld *Field, v mo.Option[any], ctx Context) (mo.Option[any], error) {
	if !f.opt.SkipDefaults {
		v = ResolveDefault(v, fld)
	}
	if !f.opt.SkipGenerate && fld.Generate != nil {
		var err error
		v, err = ComputeValue(fld, ctx, mo.Some(f.opt.Once), v)
		if err != nil {
			return v, fmt.Errorf("field %q: %w", fld.Key, err)
		}
	}
	if !f.opt.SkipTransform && fld.Transform != nil {
		if x, ok := v.Get(); ok && x != nil {
			y, err := fld.Transform(x, ctx)
			if err != nil {
				return v, fmt.Errorf("%w: field %q: %w", ErrTransform, fld.Key, err)
			}
			v = mo.Some(y)
		}
	}
	return v, nil
}

func (f *formatter) strip(out map[string]any) {
	if len(f.opt.Strip) == 0 {
		return
	}
	for k, v := range out {
		for _, s := range f.opt.Strip {
			if sameValue(v, s) {
				delete(out, k)
				break
			}
		}
	}
}

// mapID renames the external id key to the model's primary key.
func (f *formatter) mapID(model Node, out any) error {
	n, err := f.e.resolve(model)
	if err != nil {
		return err
	}
	m, ok := n.(*Model)
	if !ok {
		return nil
	}
	obj, ok := out.(map[string]any)
	if !ok {
		return nil
	}
	pk, ok := m.PrimaryKey()
	if !ok || pk.Generate != nil || pk.Key == f.opt.MapIDFrom {
		return nil
	}
	if v, present := obj[f.opt.MapIDFrom]; present {
		obj[pk.Key] = v
		delete(obj, f.opt.MapIDFrom)
	}
	return nil
}

// sameValue matches strip sentinels: nil against nil, numbers by value,
// comparable values with ==, and maps, slices and funcs by identity.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := typecheck.ToFloat(a); ok {
		fb, ok := typecheck.ToFloat(b)
		return ok && fa == fb
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Pointer:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if ta.Kind() == reflect.Slice && va.Len() != vb.Len() {
			return false
		}
		return va.Pointer() == vb.Pointer()
	}
	return false
}
