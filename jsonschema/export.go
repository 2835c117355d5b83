package jsonschema

import (
	"fmt"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/typecheck"
)

// Option configures an export.
type Option func(*exporter)

// WithResolver resolves Ref nodes. Each referenced model is exported once
// under $defs.
func WithResolver(r goforma.Resolver) Option { return func(e *exporter) { e.resolver = r } }

// WithStrict marks objects as closed (additionalProperties: false), matching
// strict validation.
func WithStrict() Option { return func(e *exporter) { e.strict = true } }

type exporter struct {
	resolver goforma.Resolver
	strict   bool
	defs     map[string]*Schema
}

// FromModel exports n. Behavior that JSON Schema cannot express (generators,
// transforms, scopes, custom rules) is left out.
func FromModel(n goforma.Node, opts ...Option) (*Schema, error) {
	e := &exporter{defs: map[string]*Schema{}}
	for _, o := range opts {
		o(e)
	}
	s, err := e.node(n)
	if err != nil {
		return nil, err
	}
	s.Dialect = Draft
	if len(e.defs) > 0 {
		s.Defs = e.defs
	}
	return s, nil
}

func (e *exporter) node(n goforma.Node) (*Schema, error) {
	switch t := n.(type) {
	case *goforma.Model:
		return e.model(t)
	case *goforma.Field:
		return e.field(t)
	case goforma.Ref:
		return e.ref(string(t))
	case nil:
		return nil, fmt.Errorf("%w: nil node", goforma.ErrUnresolvedModel)
	}
	return nil, fmt.Errorf("%w: unsupported node %T", goforma.ErrUnresolvedModel, n)
}

// ref registers name under $defs before descending so cycles end in a $ref.
func (e *exporter) ref(name string) (*Schema, error) {
	out := &Schema{Ref: "#/$defs/" + name}
	if _, seen := e.defs[name]; seen {
		return out, nil
	}
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: %q (no resolver)", goforma.ErrUnresolvedModel, name)
	}
	n, err := e.resolver.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", goforma.ErrUnresolvedModel, name, err)
	}
	slot := &Schema{}
	e.defs[name] = slot
	s, err := e.node(n)
	if err != nil {
		return nil, err
	}
	*slot = *s
	return out, nil
}

func (e *exporter) model(m *goforma.Model) (*Schema, error) {
	s := &Schema{Type: "object", Properties: make(map[string]*Schema, m.Len())}
	for _, k := range m.Keys() {
		f, _ := m.Lookup(k)
		ps, err := e.field(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		s.Properties[k] = ps
		if f.Required || f.AllowNull == goforma.NullForbid {
			s.Required = append(s.Required, k)
		}
	}
	if e.strict {
		s.AdditionalProperties = false
	}
	return s, nil
}

func (e *exporter) field(f *goforma.Field) (*Schema, error) {
	s := &Schema{}
	if f.Model != nil {
		sub, err := e.node(f.Model)
		if err != nil {
			return nil, err
		}
		if f.Type == "array" {
			s.Items = sub
		} else {
			*s = *sub
		}
	}
	typ, format := jsonType(f.Type)
	if typ != "" {
		s.Type = typ
	}
	if format != "" {
		s.Format = format
	}
	if d, ok := f.Default.Get(); ok && isJSONValue(d) {
		s.Default = d
	}
	for _, r := range f.Rules {
		if r.Check == nil {
			applyRule(s, r)
		}
	}
	if f.AllowNull == goforma.NullAllow && s.Type != "" && s.Type != "null" {
		return &Schema{OneOf: []*Schema{s, {Type: "null"}}}, nil
	}
	return s, nil
}

// jsonType maps a goforma type name onto a JSON Schema type and format.
func jsonType(t string) (typ, format string) {
	switch t {
	case "string", "number", "integer", "boolean", "object", "array", "null":
		return t, ""
	case "date":
		return "string", "date-time"
	}
	return "", ""
}

func applyRule(s *Schema, r goforma.Rule) {
	first := func() (float64, bool) {
		if len(r.Params) == 0 {
			return 0, false
		}
		return typecheck.ToFloat(r.Params[0])
	}
	switch r.Name {
	case "minLength", "maxLength":
		f, ok := first()
		if !ok {
			return
		}
		n := int(f)
		switch {
		case s.Type == "array" && r.Name == "minLength":
			s.MinItems = &n
		case s.Type == "array":
			s.MaxItems = &n
		case r.Name == "minLength":
			s.MinLength = &n
		default:
			s.MaxLength = &n
		}
	case "min":
		if f, ok := first(); ok {
			s.Minimum = &f
		}
	case "max":
		if f, ok := first(); ok {
			s.Maximum = &f
		}
	case "isEmail":
		s.Format = "email"
	case "isUrl":
		s.Format = "uri"
	case "isUUID":
		s.Format = "uuid"
	case "match":
		// flags have no JSON Schema equivalent
		if len(r.Params) == 1 {
			if pattern, ok := r.Params[0].(string); ok {
				s.Pattern = pattern
			}
		}
	case "oneOf":
		s.Enum = append([]any(nil), r.Params...)
	}
}

func isJSONValue(v any) bool {
	switch v.(type) {
	case func() any, func(goforma.Context) any:
		return false
	}
	return true
}
