// Package typecheck answers "is this value of type T" for the type names a
// field may declare, and offers deep equality and raw type reflection over
// plain tree-shaped data.
package typecheck

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"
)

// Check reports whether v belongs to a type.
type Check func(v any) bool

// Registry maps type names to checks. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewRegistry returns a registry seeded with the built-in type names.
func NewRegistry() *Registry {
	r := &Registry{checks: make(map[string]Check, len(builtins))}
	for k, c := range builtins {
		r.checks[k] = c
	}
	return r
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the shared registry used by the default engine.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Register adds or replaces a named check.
func (r *Registry) Register(name string, c Check) {
	r.mu.Lock()
	r.checks[name] = c
	r.mu.Unlock()
}

// Lookup returns the check registered under name.
func (r *Registry) Lookup(name string) mo.Option[Check] {
	r.mu.RLock()
	c, ok := r.checks[name]
	r.mu.RUnlock()
	if !ok || c == nil {
		return mo.None[Check]()
	}
	return mo.Some(c)
}

// Is reports whether v is of the named type. Unknown names have nothing to
// check and report true.
func (r *Registry) Is(name string, v any) bool {
	c, ok := r.Lookup(name).Get()
	if !ok {
		return true
	}
	return c(v)
}

// Names lists registered type names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.checks))
	for k := range r.checks {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

var builtins = map[string]Check{
	"string":    IsString,
	"integer":   IsInteger,
	"number":    IsNumber,
	"array":     IsArray,
	"boolean":   IsBoolean,
	"object":    IsObject,
	"date":      IsDate,
	"function":  IsFunction,
	"undefined": IsNull,
	"null":      IsNull,
	"any":       func(any) bool { return true },
}

func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

func IsBoolean(v any) bool {
	_, ok := v.(bool)
	return ok
}

func IsNull(v any) bool { return v == nil }

// IsNumber accepts Go integer and float kinds (finite only) and json.Number.
func IsNumber(v any) bool {
	f, ok := ToFloat(v)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsInteger accepts integer kinds, integral floats and integral json.Number.
func IsInteger(v any) bool {
	switch n := v.(type) {
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return true
		}
		f, err := n.Float64()
		return err == nil && f == math.Trunc(f) && !math.IsInf(f, 0)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == math.Trunc(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

func IsArray(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// IsObject accepts maps keyed by strings.
func IsObject(v any) bool {
	if _, ok := v.(map[string]any); ok {
		return true
	}
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String
}

func IsDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	default:
		return false
	}
}

func IsFunction(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// ToFloat widens any numeric value (including json.Number) to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// RawType names the shape of v the way a JSON document would see it.
func RawType(v any) string {
	switch {
	case v == nil:
		return "null"
	case IsString(v):
		return "string"
	case IsBoolean(v):
		return "boolean"
	case IsDate(v):
		return "date"
	}
	if _, ok := ToFloat(v); ok {
		return "number"
	}
	switch {
	case IsArray(v):
		return "array"
	case IsObject(v):
		return "object"
	case IsFunction(v):
		return "function"
	}
	return reflect.TypeOf(v).Kind().String()
}

// Equal is a deep equality that treats numbers of different Go types as equal
// when they hold the same value.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}
