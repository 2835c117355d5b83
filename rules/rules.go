// Package rules holds the named predicates a field's rules refer to.
//
// A predicate receives the value under test followed by the rule parameters
// declared on the field. Predicates never panic on odd input on purpose; a
// value of the wrong shape simply fails the rule.
package rules

import (
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tidwall/match"

	"github.com/reoring/goforma/typecheck"
)

// Predicate tests v against the rule parameters.
type Predicate func(v any, params ...any) bool

// Registry maps rule names to predicates. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

// NewRegistry returns a registry seeded with the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{preds: make(map[string]Predicate, len(builtins))}
	for k, p := range builtins {
		r.preds[k] = p
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

// Register adds or replaces a named predicate.
func (r *Registry) Register(name string, p Predicate) {
	r.mu.Lock()
	r.preds[name] = p
	r.mu.Unlock()
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) mo.Option[Predicate] {
	r.mu.RLock()
	p, ok := r.preds[name]
	r.mu.RUnlock()
	if !ok || p == nil {
		return mo.None[Predicate]()
	}
	return mo.Some(p)
}

// Names lists registered rule names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.preds))
	for k := range r.preds {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

var builtins = map[string]Predicate{
	"required":  func(v any, _ ...any) bool { return Required(mo.Some(v)) },
	"minLength": MinLength,
	"maxLength": MaxLength,
	"min":       Min,
	"max":       Max,
	"isEmail":   IsEmail,
	"isUrl":     IsURL,
	"isUUID":    IsUUID,
	"match":     Match,
	"notMatch":  Not(Match),
	"like":      Like,
	"notLike":   Not(Like),
	"oneOf":     OneOf,
	"equals":    Equals,
}

// Required reports whether v was provided and is neither null nor the empty
// string.
func Required(v mo.Option[any]) bool {
	x, ok := v.Get()
	if !ok || x == nil {
		return false
	}
	if s, isStr := x.(string); isStr && s == "" {
		return false
	}
	return true
}

// IsEmpty is the complement of Required.
func IsEmpty(v mo.Option[any]) bool { return !Required(v) }

func MinLength(v any, params ...any) bool {
	n, ok := length(v)
	lim, okLim := intParam(params, 0)
	return ok && okLim && n >= lim
}

func MaxLength(v any, params ...any) bool {
	n, ok := length(v)
	lim, okLim := intParam(params, 0)
	return ok && okLim && n <= lim
}

func Min(v any, params ...any) bool {
	a, ok := typecheck.ToFloat(v)
	if !ok || len(params) == 0 {
		return false
	}
	b, ok := typecheck.ToFloat(params[0])
	return ok && a >= b
}

func Max(v any, params ...any) bool {
	a, ok := typecheck.ToFloat(v)
	if !ok || len(params) == 0 {
		return false
	}
	b, ok := typecheck.ToFloat(params[0])
	return ok && a <= b
}

// IsEmail accepts a bare RFC 5322 address without a display name.
func IsEmail(v any, _ ...any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	res := mo.TupleToResult[*mail.Address](mail.ParseAddress(s))
	return !res.IsError() && res.MustGet().Address == s
}

// IsURL accepts absolute URLs with a scheme and a host.
func IsURL(v any, _ ...any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	res := mo.TupleToResult[*url.URL](url.Parse(s))
	return !res.IsError() && res.MustGet().Scheme != "" && res.MustGet().Host != ""
}

func IsUUID(v any, _ ...any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Match tests v against a regular expression. An optional second parameter
// carries flags; "i" makes the match case-insensitive.
func Match(v any, params ...any) bool {
	s, ok := v.(string)
	if !ok || len(params) == 0 {
		return false
	}
	pattern, ok := params[0].(string)
	if !ok {
		return false
	}
	if len(params) > 1 {
		if flags, _ := params[1].(string); flags != "" {
			pattern = "(?" + flags + ")" + pattern
		}
	}
	re, err := compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// Like tests v against a wildcard pattern where '*' matches any run of
// characters and '?' exactly one.
func Like(v any, params ...any) bool {
	s, ok := v.(string)
	if !ok || len(params) == 0 {
		return false
	}
	pattern, ok := params[0].(string)
	return ok && match.Match(s, pattern)
}

// OneOf accepts v when it equals any parameter.
func OneOf(v any, params ...any) bool {
	return lo.ContainsBy(params, func(p any) bool { return typecheck.Equal(v, p) })
}

// Equals accepts v when it deep-equals the first parameter.
func Equals(v any, params ...any) bool {
	return len(params) > 0 && typecheck.Equal(v, params[0])
}

// ---------- combinators ----------

// Not inverts p. A value p cannot evaluate (wrong shape) still fails.
func Not(p Predicate) Predicate {
	return func(v any, params ...any) bool {
		if _, ok := v.(string); !ok {
			return false
		}
		return !p(v, params...)
	}
}

// All succeeds when every predicate succeeds with the same parameters.
func All(preds ...Predicate) Predicate {
	return func(v any, params ...any) bool {
		for _, p := range preds {
			if p != nil && !p(v, params...) {
				return false
			}
		}
		return true
	}
}

// Any succeeds when at least one predicate succeeds.
func Any(preds ...Predicate) Predicate {
	return func(v any, params ...any) bool {
		return lo.SomeBy(preds, func(p Predicate) bool { return p != nil && p(v, params...) })
	}
}

// ------- helpers -------

var reCache sync.Map // pattern -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := reCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rules: compile %q: %w", pattern, err)
	}
	reCache.Store(pattern, re)
	return re, nil
}

// length counts runes for strings and elements for collections.
func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	default:
		return 0, false
	}
}

func intParam(params []any, i int) (int, bool) {
	if i >= len(params) {
		return 0, false
	}
	f, ok := typecheck.ToFloat(params[i])
	return int(f), ok
}
