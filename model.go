package goforma

import "github.com/samber/mo"

// Node is anything a model position may hold: an object Model, a single
// Field describing a scalar or array directly, or a Ref to a named model.
type Node interface{ node() }

// Model describes an object shape. Field order is declaration order and
// drives the formatting order.
type Model struct {
	fields []Field
	index  map[string]int
}

// NewModel builds a Model from fields in declaration order. A later field
// with a key already present replaces the earlier one in place.
func NewModel(fields ...Field) *Model {
	m := &Model{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		m.Add(f)
	}
	return m
}

// Add appends f, or replaces the field with the same key.
func (m *Model) Add(f Field) *Model {
	if m.index == nil {
		m.index = map[string]int{}
	}
	if i, ok := m.index[f.Key]; ok {
		m.fields[i] = f
		return m
	}
	m.index[f.Key] = len(m.fields)
	m.fields = append(m.fields, f)
	return m
}

// Keys returns the field keys in declaration order.
func (m *Model) Keys() []string {
	out := make([]string, len(m.fields))
	for i := range m.fields {
		out[i] = m.fields[i].Key
	}
	return out
}

// Lookup returns the field declared under key.
func (m *Model) Lookup(key string) (*Field, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return &m.fields[i], true
}

// Has reports whether key is declared.
func (m *Model) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Len returns the number of declared fields.
func (m *Model) Len() int { return len(m.fields) }

// PrimaryKey returns the field flagged as primary key, if any.
func (m *Model) PrimaryKey() (*Field, bool) {
	for i := range m.fields {
		if m.fields[i].PrimaryKey {
			return &m.fields[i], true
		}
	}
	return nil, false
}

func (*Model) node() {}

// Ref names a model held by a Resolver.
type Ref string

func (Ref) node() {}

// Resolver returns the model registered under a name.
type Resolver interface {
	Resolve(name string) (Node, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (Node, error)

func (f ResolverFunc) Resolve(name string) (Node, error) { return f(name) }

// NullPolicy is the tri-state allowNull attribute.
type NullPolicy int

const (
	NullUnset  NullPolicy = iota // no explicit policy
	NullForbid                   // NOT NULL: absent and null both fail
	NullAllow                    // explicit null is a valid terminal state
)

// Field is the per-field configuration.
type Field struct {
	// Key is the object key this field describes. It is empty for fields used
	// as element schemas or scalar models.
	Key string

	Type      string
	Default   mo.Option[any]
	Required  bool
	AllowNull NullPolicy
	Rules     []Rule
	Errors    Messages
	Transform TransformFunc
	Generate  *Generator
	// Model describes the value's object shape, or the element shape when the
	// value is an array.
	Model Node

	Show       []string // scopes needed for the field to survive formatting
	Write      []string // scopes needed for the field to pass validation
	Lock       bool
	PrimaryKey bool
}

func (*Field) node() {}

// TransformFunc rewrites a non-null value. ctx exposes the enclosing data.
type TransformFunc func(v any, ctx Context) (any, error)

// Rule is one entry of a field's rules. Check, when set, takes precedence
// over the registry lookup by Name.
type Rule struct {
	Name   string
	Params []any
	Check  func(v any, ctx Context) bool
}

// R declares a registry rule with parameters.
func R(name string, params ...any) Rule { return Rule{Name: name, Params: params} }

// RuleFunc declares an inline rule.
func RuleFunc(name string, check func(v any, ctx Context) bool) Rule {
	return Rule{Name: name, Check: check}
}

// Messages configures the error message reported for failing rules.
// Text, when set, is used for every failure. Otherwise ByRule is consulted by
// rule name and then under the "default" key.
type Messages struct {
	Text   string
	ByRule map[string]string
}

// OpFunc is one step of a generator pipeline.
type OpFunc func(args ...any) (any, error)

// Op binds an OpFunc to its arguments. Arguments of type func() any or
// func(Context) any are resolved when the op runs.
type Op struct {
	Fn   OpFunc
	Args []any
}

// Generator computes a field value. Func, when set, is called directly and
// the flags are ignored. Otherwise Ops run left to right, each op receiving
// the previous result as its first argument.
type Generator struct {
	Func     func(ctx Context) (any, error)
	Ops      []Op
	Preserve bool // do not recompute when a value was provided
	Require  bool // only compute when a value was provided
	Once     bool // only compute when the caller opts in (on create)
}

// GenerateFunc wraps fn as a Generator.
func GenerateFunc(fn func(ctx Context) (any, error)) *Generator { return &Generator{Func: fn} }

// Pipeline builds a Generator running ops in order.
func Pipeline(ops ...Op) *Generator { return &Generator{Ops: ops} }

// Context is a read-only view of the data enclosing the value being
// processed.
type Context struct {
	data any
}

// NewContext wraps data.
func NewContext(data any) Context { return Context{data: data} }

// Data returns the enclosing data.
func (c Context) Data() any { return c.data }

// Get reads a key of the enclosing object.
func (c Context) Get(key string) (any, bool) {
	m, ok := c.data.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}
