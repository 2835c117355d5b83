// Package modeldef builds goforma models from YAML or JSON definitions.
//
// A definition is a mapping from field key to field spec. Key order is the
// field order. A field spec is one of:
//
//	name: string              # shorthand for {type: string}
//	owner: "@user"            # named model, resolved at run time
//	tags: [string]            # array of the element spec
//	address: {city: string}   # nested object model
//	email:                    # full spec
//	  type: string
//	  required: true
//	  rules: {isEmail: true, maxLength: 120}
//	  transform: [trim, lowercase]
//
// A mapping is read as a full spec when every key is a known attribute and
// its type, if any, is a string; otherwise it is a nested model.
package modeldef

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/multierr"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/generator"
	"github.com/reoring/goforma/internal/docio"
	"github.com/reoring/goforma/transform"
)

// ErrInvalid marks every definition error.
var ErrInvalid = errors.New("modeldef: invalid definition")

// Options carries the registries names in a definition resolve against.
// Nil registries fall back to the shared defaults.
type Options struct {
	Transforms *transform.Registry
	Ops        *generator.Registry
}

func (o Options) transforms() *transform.Registry {
	if o.Transforms != nil {
		return o.Transforms
	}
	return transform.Default()
}

func (o Options) ops() *generator.Registry {
	if o.Ops != nil {
		return o.Ops
	}
	return generator.Default()
}

var attributes = map[string]struct{}{
	"type": {}, "default": {}, "required": {}, "allowNull": {}, "rules": {},
	"errors": {}, "transform": {}, "generate": {}, "model": {}, "schema": {},
	"show": {}, "write": {}, "lock": {}, "primaryKey": {},
}

// ParseYAML parses a YAML model definition.
func ParseYAML(b []byte, opts Options) (*goforma.Model, error) {
	return Parse(b, docio.YAML, opts)
}

// ParseJSON parses a JSON model definition. Duplicate keys are rejected.
func ParseJSON(b []byte, opts Options) (*goforma.Model, error) {
	return Parse(b, docio.JSON, opts)
}

// Parse parses a model definition in format f. All problems found are
// reported together.
func Parse(b []byte, f docio.Format, opts Options) (*goforma.Model, error) {
	doc, err := docio.DecodeOrdered(b, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	root, ok := doc.(*docio.Map)
	if !ok {
		return nil, fmt.Errorf("%w: root must be a mapping, got %s", ErrInvalid, kindOf(doc))
	}
	p := &parser{opts: opts}
	m := p.model(root, "")
	if p.errs != nil {
		return nil, p.errs
	}
	return m, nil
}

type parser struct {
	opts Options
	errs error
}

func (p *parser) fail(at, format string, args ...any) {
	if at == "" {
		at = "/"
	}
	p.errs = multierr.Append(p.errs, fmt.Errorf("%w: %s: %s", ErrInvalid, at, fmt.Sprintf(format, args...)))
}

func (p *parser) model(m *docio.Map, at string) *goforma.Model {
	out := goforma.NewModel()
	for _, k := range m.Keys {
		f := p.field(m.Values[k], at+"/"+k)
		f.Key = k
		out.Add(f)
	}
	return out
}

// field reads any value found in a field position.
func (p *parser) field(v any, at string) goforma.Field {
	switch t := v.(type) {
	case string:
		if name, ok := strings.CutPrefix(t, "@"); ok {
			return goforma.Field{Model: goforma.Ref(name)}
		}
		return goforma.Field{Type: t}
	case []any:
		if len(t) != 1 {
			p.fail(at, "array shorthand takes exactly one element spec, got %d", len(t))
			return goforma.Field{Type: "array"}
		}
		return goforma.Field{Type: "array", Model: p.node(t[0], at+"/0")}
	case *docio.Map:
		if isFieldSpec(t) {
			return p.spec(t, at)
		}
		return goforma.Field{Model: p.model(t, at)}
	case nil:
		return goforma.Field{}
	}
	p.fail(at, "unexpected %s", kindOf(v))
	return goforma.Field{}
}

// node reads the value of a model attribute or an array element spec.
func (p *parser) node(v any, at string) goforma.Node {
	switch t := v.(type) {
	case string:
		if name, ok := strings.CutPrefix(t, "@"); ok {
			return goforma.Ref(name)
		}
		return &goforma.Field{Type: t}
	case *docio.Map:
		if isFieldSpec(t) {
			f := p.spec(t, at)
			return &f
		}
		return p.model(t, at)
	}
	f := p.field(v, at)
	return &f
}

func isFieldSpec(m *docio.Map) bool {
	for _, k := range m.Keys {
		if _, ok := attributes[k]; !ok {
			return false
		}
	}
	if typ, ok := m.Get("type"); ok {
		if _, isStr := typ.(string); !isStr {
			return false
		}
	}
	return true
}

func (p *parser) spec(m *docio.Map, at string) goforma.Field {
	var f goforma.Field
	for _, k := range m.Keys {
		v := m.Values[k]
		here := at + "/" + k
		switch k {
		case "type":
			f.Type, _ = v.(string)
		case "default":
			f.Default = mo.Some(literal(v))
		case "required":
			f.Required = p.boolean(v, here)
		case "lock":
			f.Lock = p.boolean(v, here)
		case "primaryKey":
			f.PrimaryKey = p.boolean(v, here)
		case "allowNull":
			f.AllowNull = lo.Ternary(p.boolean(v, here), goforma.NullAllow, goforma.NullForbid)
		case "rules":
			f.Rules = p.rules(v, here)
		case "errors":
			f.Errors = p.messages(v, here)
		case "transform":
			f.Transform = p.transform(v, here)
		case "generate":
			f.Generate = p.generate(v, here)
		case "model":
			f.Model = p.node(v, here)
		case "schema":
			name, ok := v.(string)
			if !ok || name == "" {
				p.fail(here, "schema must name a model")
				continue
			}
			f.Model = goforma.Ref(strings.TrimPrefix(name, "@"))
		case "show":
			f.Show = p.names(v, here)
		case "write":
			f.Write = p.names(v, here)
		}
	}
	return f
}

func (p *parser) boolean(v any, at string) bool {
	b, ok := v.(bool)
	if !ok {
		p.fail(at, "expected a boolean, got %s", kindOf(v))
	}
	return b
}

// names reads a scope or filter list: a single string or an array of strings.
func (p *parser) names(v any, at string) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for i, x := range t {
			s, ok := x.(string)
			if !ok {
				p.fail(fmt.Sprintf("%s/%d", at, i), "expected a string, got %s", kindOf(x))
				continue
			}
			out = append(out, s)
		}
		return out
	}
	p.fail(at, "expected a string or a list of strings, got %s", kindOf(v))
	return nil
}

// rules reads {name: params}. true enables a rule without parameters, false
// disables it, a list spreads into parameters, any other value is the single
// parameter.
func (p *parser) rules(v any, at string) []goforma.Rule {
	m, ok := v.(*docio.Map)
	if !ok {
		p.fail(at, "rules must be a mapping, got %s", kindOf(v))
		return nil
	}
	out := make([]goforma.Rule, 0, len(m.Keys))
	for _, name := range m.Keys {
		switch t := m.Values[name].(type) {
		case bool:
			if t {
				out = append(out, goforma.R(name))
			}
		case []any:
			params := make([]any, len(t))
			for i := range t {
				params[i] = literal(t[i])
			}
			out = append(out, goforma.R(name, params...))
		default:
			out = append(out, goforma.R(name, literal(t)))
		}
	}
	return out
}

func (p *parser) messages(v any, at string) goforma.Messages {
	switch t := v.(type) {
	case string:
		return goforma.Messages{Text: t}
	case *docio.Map:
		out := goforma.Messages{ByRule: make(map[string]string, len(t.Keys))}
		for _, k := range t.Keys {
			s, ok := t.Values[k].(string)
			if !ok {
				p.fail(at+"/"+k, "message must be a string")
				continue
			}
			out.ByRule[k] = s
		}
		return out
	}
	p.fail(at, "errors must be a string or a mapping, got %s", kindOf(v))
	return goforma.Messages{}
}

func (p *parser) transform(v any, at string) goforma.TransformFunc {
	names := p.names(v, at)
	if len(names) == 0 {
		return nil
	}
	chain, err := p.opts.transforms().Chain(names...)
	if err != nil {
		p.fail(at, "%v", err)
		return nil
	}
	return func(v any, _ goforma.Context) (any, error) { return chain(v) }
}

func (p *parser) generate(v any, at string) *goforma.Generator {
	m, ok := v.(*docio.Map)
	if !ok {
		return &goforma.Generator{Ops: p.ops(v, at)}
	}
	if _, isOp := m.Get("fn"); isOp {
		return &goforma.Generator{Ops: p.ops(v, at)}
	}
	g := &goforma.Generator{}
	for _, k := range m.Keys {
		here := at + "/" + k
		switch k {
		case "ops":
			g.Ops = p.ops(m.Values[k], here)
		case "preserve":
			g.Preserve = p.boolean(m.Values[k], here)
		case "require":
			g.Require = p.boolean(m.Values[k], here)
		case "once":
			g.Once = p.boolean(m.Values[k], here)
		default:
			p.fail(here, "unknown generator attribute")
		}
	}
	if len(g.Ops) == 0 {
		p.fail(at, "generator needs at least one op")
	}
	return g
}

// ops reads a single op or a list of ops. An op is a name or {fn, args}.
func (p *parser) ops(v any, at string) []goforma.Op {
	list, isList := v.([]any)
	if !isList {
		list = []any{v}
	}
	out := make([]goforma.Op, 0, len(list))
	for i, x := range list {
		here := at
		if isList {
			here = fmt.Sprintf("%s/%d", at, i)
		}
		var (
			name string
			args []any
		)
		switch t := x.(type) {
		case string:
			name = t
		case *docio.Map:
			fn, _ := t.Get("fn")
			name, _ = fn.(string)
			if raw, has := t.Get("args"); has {
				rawList, isList := raw.([]any)
				if !isList {
					rawList = []any{raw}
				}
				for _, a := range rawList {
					args = append(args, argument(a))
				}
			}
			for _, k := range t.Keys {
				if k != "fn" && k != "args" {
					p.fail(here+"/"+k, "unknown op attribute")
				}
			}
		}
		if name == "" {
			p.fail(here, "op must be a name or {fn, args}")
			continue
		}
		op, err := p.opts.ops().Op(name, args...)
		if err != nil {
			p.fail(here, "%v", err)
			continue
		}
		out = append(out, op)
	}
	return out
}

// argument turns "$field" into a late-bound read of the enclosing data and
// "$" into the whole enclosing data. "$$" escapes a literal dollar.
func argument(v any) any {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return literal(v)
	}
	if strings.HasPrefix(s, "$$") {
		return s[1:]
	}
	if s == "$" {
		return func(ctx goforma.Context) any { return ctx.Data() }
	}
	key := s[1:]
	return func(ctx goforma.Context) any {
		v, _ := ctx.Get(key)
		return v
	}
}

// literal converts decoded definition values into plain engine values.
func literal(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case *docio.Map:
		out := make(map[string]any, len(t.Keys))
		for _, k := range t.Keys {
			out[k] = literal(t.Values[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = literal(t[i])
		}
		return out
	}
	return v
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *docio.Map:
		return "mapping"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, int, float64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// Errors splits an error returned by Parse into its individual problems,
// sorted by message.
func Errors(err error) []error {
	errs := multierr.Errors(err)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errs
}
