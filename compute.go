package goforma

import (
	"fmt"
	"reflect"

	"github.com/samber/mo"
)

// CanCompute reports whether f's generator should run.
//
// once is the caller's opt-in for generators flagged Once; provided is the
// value currently held by the field.
func CanCompute(f *Field, once mo.Option[bool], provided mo.Option[any]) bool {
	if f == nil || f.Generate == nil {
		return false
	}
	g := f.Generate
	if g.Func != nil {
		return true
	}
	if g.Once && !once.OrEmpty() {
		return false
	}
	if provided.IsPresent() && g.Preserve {
		return false
	}
	if g.Require && provided.IsAbsent() {
		return false
	}
	return true
}

// ComputeValue runs f's generator when CanCompute allows it and passes
// provided through unchanged otherwise. A generator yielding nil produces no
// value.
func ComputeValue(f *Field, ctx Context, once mo.Option[bool], provided mo.Option[any]) (mo.Option[any], error) {
	if !CanCompute(f, once, provided) {
		return provided, nil
	}
	v, err := RunGenerator(f.Generate, ctx, once, provided)
	if err != nil {
		return provided, err
	}
	if v == nil {
		return mo.None[any](), nil
	}
	return mo.Some(v), nil
}

// RunGenerator executes g without any gating. A provided value is appended to
// the first op's arguments; each later op receives the previous non-nil
// result as its first argument.
func RunGenerator(g *Generator, ctx Context, once mo.Option[bool], provided mo.Option[any]) (any, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil generator", ErrOpNotCallable)
	}
	if g.Func != nil {
		v, err := g.Func(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
		}
		return v, nil
	}
	if g.Once && once.IsAbsent() {
		return nil, ErrOnceUnset
	}
	if len(g.Ops) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", ErrOpNotCallable)
	}

	var prev any
	for i, op := range g.Ops {
		if op.Fn == nil {
			return nil, fmt.Errorf("%w: op %d", ErrOpNotCallable, i)
		}
		args := make([]any, 0, len(op.Args)+1)
		if i > 0 && prev != nil {
			args = append(args, prev)
		}
		for _, a := range op.Args {
			args = append(args, resolveArg(a, ctx))
		}
		if i == 0 {
			if pv, ok := provided.Get(); ok {
				args = append(args, pv)
			}
		}
		v, err := op.Fn(args...)
		if err != nil {
			return nil, fmt.Errorf("%w: op %d: %w", ErrGenerate, i, err)
		}
		prev = v
	}
	return prev, nil
}

// resolveArg evaluates late-bound arguments: any function taking no
// arguments, or only a Context, and returning a single value.
func resolveArg(a any, ctx Context) any {
	switch fn := a.(type) {
	case func() any:
		return fn()
	case func(Context) any:
		return fn(ctx)
	}
	rv := reflect.ValueOf(a)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return a
	}
	t := rv.Type()
	if t.NumOut() != 1 || t.IsVariadic() {
		return a
	}
	switch {
	case t.NumIn() == 0:
		return rv.Call(nil)[0].Interface()
	case t.NumIn() == 1 && t.In(0) == reflect.TypeOf(ctx):
		return rv.Call([]reflect.Value{reflect.ValueOf(ctx)})[0].Interface()
	}
	return a
}
