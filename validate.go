package goforma

import (
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/samber/mo"

	"github.com/reoring/goforma/rules"
)

// maxKeyLen bounds unknown key names echoed back by key-only validation.
const maxKeyLen = 64

// Validate checks data against model. Object data yields a per-key error tree
// in Result.Errors; scalar data validated against a Field yields a flat
// Result.List. A non-nil error is a configuration fault, never bad data.
func (e *Engine) Validate(model Node, data any, opts ...ValidateOptions) (res Result, err error) {
	defer func() { e.observer.ValidateDone(res, err) }()

	opt := lastOpt(opts)
	n, err := e.resolve(model)
	if err != nil {
		return Result{}, err
	}
	if opt.KeyCheckOnly {
		return keyCheck(n, data), nil
	}

	v := &validator{e: e, opt: opt}
	switch t := n.(type) {
	case *Model:
		var obj map[string]any
		switch d := data.(type) {
		case nil:
			obj = map[string]any{}
		case map[string]any:
			obj = d
		default:
			list := []string{WrongType("object")}
			return Result{List: list}, nil
		}
		errs, err := v.object(t, obj, 0)
		if err != nil {
			return Result{}, err
		}
		return Result{Valid: errs == nil, Errors: errs}, nil
	case *Field:
		fe, err := v.value(t, optionOf(data), NewContext(data), 0)
		if err != nil {
			return Result{}, err
		}
		if fe == nil {
			return Result{Valid: true}, nil
		}
		return Result{Errors: fe.Fields, List: fe.Codes}, nil
	}
	return Result{Valid: true}, nil
}

type validator struct {
	e   *Engine
	opt ValidateOptions
}

func (v *validator) checkOpts() CheckOptions {
	return CheckOptions{Unscope: v.opt.Unscope, Scopes: v.opt.Scopes}
}

func (v *validator) object(m *Model, obj map[string]any, depth int) (Errors, error) {
	if err := v.e.depthExceeded(depth); err != nil {
		return nil, err
	}
	ctx := NewContext(obj)
	out := Errors{}
	for i := range m.fields {
		f := &m.fields[i]
		raw := optionAt(obj, f.Key)
		if v.opt.Sparse && raw.IsAbsent() {
			continue
		}
		val := ResolveDefault(raw, f)
		if !v.opt.Sparse && !f.Required && f.AllowNull != NullForbid && rules.IsEmpty(val) {
			continue
		}
		fe, err := v.value(f, val, ctx, depth)
		if err != nil {
			return nil, err
		}
		if fe != nil {
			out[f.Key] = fe
		}
	}
	if v.opt.Strict {
		for k := range obj {
			if !m.Has(k) {
				out[k] = &FieldErrors{Codes: []string{CodeInvalidKey}}
			}
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// value validates one value against f, descending into f's nested model.
func (v *validator) value(f *Field, val mo.Option[any], ctx Context, depth int) (*FieldErrors, error) {
	if f.Model == nil {
		return codes(v.e.CheckValue(val, f, ctx, v.checkOpts())), nil
	}
	sub, err := v.e.resolve(f.Model)
	if err != nil {
		return nil, err
	}
	x, _ := val.Get()
	switch t := x.(type) {
	case []any:
		return v.elements(sub, t, ctx, depth)
	case map[string]any:
		if f.Type != "" && f.Type != "object" {
			return codes(v.e.CheckValue(val, f, ctx, v.checkOpts())), nil
		}
		return v.node(sub, t, ctx, depth+1)
	}
	found := v.e.CheckValue(val, f, ctx, v.checkOpts())
	if len(found) == 0 && x != nil && f.Type != "array" {
		if _, isModel := sub.(*Model); isModel {
			found = []string{WrongType("object")}
		}
	}
	return codes(found), nil
}

// elements validates every array element against the element schema. Object
// elements report a nested tree under their index.
func (v *validator) elements(sub Node, arr []any, ctx Context, depth int) (*FieldErrors, error) {
	if err := v.e.depthExceeded(depth); err != nil {
		return nil, err
	}
	out := Errors{}
	for i, el := range arr {
		fe, err := v.node(sub, el, ctx, depth+1)
		if err != nil {
			return nil, err
		}
		if fe != nil {
			out[strconv.Itoa(i)] = fe
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &FieldErrors{Fields: out}, nil
}

// node validates x against a resolved schema node.
func (v *validator) node(sub Node, x any, ctx Context, depth int) (*FieldErrors, error) {
	switch t := sub.(type) {
	case *Model:
		obj, ok := x.(map[string]any)
		if !ok {
			return codes([]string{WrongType("object")}), nil
		}
		errs, err := v.object(t, obj, depth)
		if err != nil || errs == nil {
			return nil, err
		}
		return &FieldErrors{Fields: errs}, nil
	case *Field:
		return v.value(t, mo.Some(x), ctx, depth)
	}
	return nil, nil
}

func codes(list []string) *FieldErrors {
	if len(list) == 0 {
		return nil
	}
	return &FieldErrors{Codes: list}
}

// keyCheck reports every data key the model does not declare.
func keyCheck(n Node, data any) Result {
	obj, ok := data.(map[string]any)
	if !ok {
		return Result{Errors: Errors{"data": {Codes: []string{CodeInvalidObject}}}}
	}
	m, _ := n.(*Model)
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if m == nil || !m.Has(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Result{Valid: true}
	}
	sort.Strings(keys)
	out := make(Errors, len(keys))
	for _, k := range keys {
		out[truncateKey(k)] = &FieldErrors{Codes: []string{CodeInvalidKey}}
	}
	return Result{Errors: out}
}

func truncateKey(k string) string {
	if len(k) <= maxKeyLen {
		return k
	}
	cut := maxKeyLen
	for cut > 0 && !utf8.RuneStart(k[cut]) {
		cut--
	}
	return k[:cut] + "..."
}
