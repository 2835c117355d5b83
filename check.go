package goforma

import (
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/reoring/goforma/rules"
)

// CheckValue returns the ordered error codes for v against f. ctx exposes
// the enclosing data to inline rules. A nil result means v passed.
func (e *Engine) CheckValue(v mo.Option[any], f *Field, ctx Context, opts ...CheckOptions) []string {
	if f == nil {
		return nil
	}
	opt := lastOpt(opts)
	x, present := v.Get()
	isNil := !present || x == nil

	if isNil && f.AllowNull == NullForbid {
		return []string{CodeRequired, CodeAllowNull}
	}
	if isNil && !f.Required && len(f.Rules) == 0 {
		return nil
	}
	if present && x == nil && f.AllowNull == NullAllow && len(f.Rules) == 0 {
		return nil
	}
	if f.Required && !rules.Required(v) {
		return []string{CodeRequired}
	}
	if f.Type != "" && present {
		if chk, ok := e.types.Lookup(f.Type).Get(); ok && !chk(x) {
			return []string{WrongType(f.Type)}
		}
	}

	var errs []string
	for _, r := range f.Rules {
		passed, known := e.runRule(r, x, ctx)
		if !known {
			errs = append(errs, UnknownRule(r.Name))
			continue
		}
		if !passed {
			errs = append(errs, ResolveMessage(f.Errors, r.Name))
		}
	}
	if !opt.Unscope && !ScopesAllow(f.Write, opt.Scopes) {
		errs = append(errs, CodeWritePermissions)
	}
	return errs
}

// runRule evaluates one rule. A panicking predicate counts as a failure.
func (e *Engine) runRule(r Rule, v any, ctx Context) (passed, known bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Debug("rule panicked", zap.String("rule", r.Name), zap.Any("panic", rec))
			passed, known = false, true
		}
	}()
	if r.Check != nil {
		return r.Check(v, ctx), true
	}
	p, ok := e.rules.Lookup(r.Name).Get()
	if !ok {
		return false, false
	}
	return p(v, r.Params...), true
}

// ResolveMessage picks the message reported for a failing rule: the
// catch-all text, then the per-rule entry, then the "default" entry, then
// the rule name itself.
func ResolveMessage(m Messages, rule string) string {
	if m.Text != "" {
		return m.Text
	}
	if msg, ok := m.ByRule[rule]; ok && msg != "" {
		return msg
	}
	if msg, ok := m.ByRule["default"]; ok && msg != "" {
		return msg
	}
	return rule
}

// ScopesAllow reports whether granted intersects required. An empty
// requirement always passes.
func ScopesAllow(required, granted []string) bool {
	if len(required) == 0 {
		return true
	}
	return lo.Some(required, granted)
}
