// Package transform keeps the named value-rewriting functions (filters) that
// model definitions refer to by name.
//
// Built-in conversions never fail on odd input: a value that cannot be
// converted passes through unchanged so validation can reject it later.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/reoring/goforma/typecheck"
)

// Func rewrites a value.
type Func func(v any) (any, error)

// Registry maps filter names to functions. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	fns    map[string]Func
	logger *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes unknown-name diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns a registry seeded with the built-in filters.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{fns: make(map[string]Func, len(builtins)), logger: zap.NewNop()}
	for k, f := range builtins {
		r.fns[k] = f
	}
	for _, o := range opts {
		o(r)
	}
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

// Register adds or replaces a named filter.
func (r *Registry) Register(name string, f Func) {
	r.mu.Lock()
	r.fns[name] = f
	r.mu.Unlock()
}

// Lookup returns the filter registered under name.
func (r *Registry) Lookup(name string) mo.Option[Func] {
	r.mu.RLock()
	f, ok := r.fns[name]
	r.mu.RUnlock()
	if !ok || f == nil {
		return mo.None[Func]()
	}
	return mo.Some(f)
}

// Names lists registered filter names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.fns))
	for k := range r.fns {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Apply runs the named filter. Unknown names leave v untouched and emit a
// warning.
func (r *Registry) Apply(name string, v any) (any, error) {
	f, ok := r.Lookup(name).Get()
	if !ok {
		r.logger.Warn("unknown transform", zap.String("transform", name))
		return v, nil
	}
	return f(v)
}

// Chain resolves names eagerly and returns a filter running them in order.
// It fails when a name is not registered.
func (r *Registry) Chain(names ...string) (Func, error) {
	fns := make([]Func, 0, len(names))
	for _, n := range names {
		f, ok := r.Lookup(n).Get()
		if !ok {
			return nil, fmt.Errorf("transform: unknown filter %q", n)
		}
		fns = append(fns, f)
	}
	return func(v any) (any, error) {
		var err error
		for i, f := range fns {
			if v, err = f(v); err != nil {
				return nil, fmt.Errorf("transform %s: %w", names[i], err)
			}
		}
		return v, nil
	}, nil
}

var builtins = map[string]Func{
	"trim":      stringFunc(strings.TrimSpace),
	"lowercase": stringFunc(strings.ToLower),
	"uppercase": stringFunc(strings.ToUpper),
	"toString":  lift(ToString),
	"toNumber":  lift(ToNumber),
	"toInteger": lift(ToInteger),
	"toBoolean": lift(ToBoolean),
	"toDate":    lift(ToDate),
	"toArray":   lift(ToArray),
	"compact":   lift(Compact),
}

func stringFunc(fn func(string) string) Func {
	return func(v any) (any, error) {
		if s, ok := v.(string); ok {
			return fn(s), nil
		}
		return v, nil
	}
}

func lift(fn func(any) any) Func {
	return func(v any) (any, error) { return fn(v), nil }
}

func ToString(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func ToNumber(v any) any {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return lo.Ternary[any](err == nil, f, v)
	case bool:
		return lo.Ternary(t, 1.0, 0.0)
	case time.Time:
		return float64(t.UnixMilli())
	}
	if f, ok := typecheck.ToFloat(v); ok {
		return f
	}
	return v
}

func ToInteger(v any) any {
	n := ToNumber(v)
	f, ok := n.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return int64(math.Trunc(f))
}

func ToBoolean(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off", "":
			return false
		}
		return v
	}
	if f, ok := typecheck.ToFloat(v); ok {
		return f != 0
	}
	return v
}

// DateLayouts are tried in order when converting strings to dates.
var DateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func ToDate(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range DateLayouts {
			if d, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return d
			}
		}
		return v
	}
	if f, ok := typecheck.ToFloat(v); ok {
		return time.UnixMilli(int64(f)).UTC()
	}
	return v
}

func ToArray(v any) any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		return t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// Compact drops null elements from arrays.
func Compact(v any) any {
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	return lo.Filter(arr, func(x any, _ int) bool { return x != nil })
}
