// Package generator keeps the named generator ops that model definitions can
// chain into pipelines, e.g. ops: [uuid, uppercase].
//
// Every transform filter is also usable as a single-argument op.
package generator

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/tidwall/gjson"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/transform"
	"github.com/reoring/goforma/typecheck"
)

// Registry maps op names to functions. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	ops        map[string]goforma.OpFunc
	transforms *transform.Registry
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTransforms sets the filter registry consulted for names that are not
// ops.
func WithTransforms(t *transform.Registry) Option {
	return func(r *Registry) {
		if t != nil {
			r.transforms = t
		}
	}
}

// WithClock overrides the clock behind the now op.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry returns a registry seeded with the built-in ops.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		ops:        map[string]goforma.OpFunc{},
		transforms: transform.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.ops["uuid"] = func(...any) (any, error) { return uuid.NewString(), nil }
	r.ops["now"] = func(...any) (any, error) { return r.now().UTC().Format(time.RFC3339), nil }
	r.ops["value"] = Value
	r.ops["concat"] = Concat
	r.ops["increment"] = Increment
	r.ops["pluck"] = Pluck
	return r
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the shared registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Register adds or replaces a named op.
func (r *Registry) Register(name string, fn goforma.OpFunc) {
	r.mu.Lock()
	r.ops[name] = fn
	r.mu.Unlock()
}

// Lookup returns the op registered under name, falling back to a transform
// filter of the same name applied to the op's first argument.
func (r *Registry) Lookup(name string) mo.Option[goforma.OpFunc] {
	r.mu.RLock()
	fn, ok := r.ops[name]
	r.mu.RUnlock()
	if ok && fn != nil {
		return mo.Some(fn)
	}
	tf, ok := r.transforms.Lookup(name).Get()
	if !ok {
		return mo.None[goforma.OpFunc]()
	}
	return mo.Some[goforma.OpFunc](func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, nil
		}
		return tf(args[0])
	})
}

// Names lists op names in ascending order, excluding transform fallbacks.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.ops))
	for k := range r.ops {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Op binds the named op to args.
func (r *Registry) Op(name string, args ...any) (goforma.Op, error) {
	fn, ok := r.Lookup(name).Get()
	if !ok {
		return goforma.Op{}, fmt.Errorf("%w: unknown op %q", goforma.ErrOpNotCallable, name)
	}
	return goforma.Op{Fn: fn, Args: args}, nil
}

// Pipeline builds a generator running the named ops without arguments.
func (r *Registry) Pipeline(names ...string) (*goforma.Generator, error) {
	ops := make([]goforma.Op, 0, len(names))
	for _, n := range names {
		op, err := r.Op(n)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return goforma.Pipeline(ops...), nil
}

// Value returns its first argument.
func Value(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], nil
}

// Concat joins the string forms of its non-nil arguments.
func Concat(args ...any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		if a == nil {
			continue
		}
		s, _ := transform.ToString(a).(string)
		b.WriteString(s)
	}
	return b.String(), nil
}

// Increment adds a step (second argument, default 1) to the first argument.
// A missing or non-numeric first argument counts as zero. Integer inputs stay
// integers.
func Increment(args ...any) (any, error) {
	step := 1.0
	if len(args) > 1 {
		f, ok := typecheck.ToFloat(args[1])
		if !ok {
			return nil, fmt.Errorf("increment: step %v is not a number", args[1])
		}
		step = f
	}
	var base any
	if len(args) > 0 {
		base = args[0]
	}
	if n, ok := base.(int); ok && step == float64(int(step)) {
		return n + int(step), nil
	}
	f, _ := typecheck.ToFloat(base)
	return f + step, nil
}

// Pluck reads a gjson path (second argument) out of the JSON form of its
// first argument. A missing path yields nil.
func Pluck(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("pluck: want source and path, got %d args", len(args))
	}
	path, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("pluck: path must be a string, got %T", args[1])
	}
	b, err := json.Marshal(args[0])
	if err != nil {
		return nil, fmt.Errorf("pluck: %w", err)
	}
	res := gjson.GetBytes(b, path)
	if !res.Exists() {
		return nil, nil
	}
	return res.Value(), nil
}
