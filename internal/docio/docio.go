// Package docio decodes JSON and YAML documents for model definitions and
// data files. Ordered decoding keeps object key order, which model
// definitions rely on for field order.
package docio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format identifies a document syntax.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

// FormatOf picks a format from a file name's extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Sniff guesses the format of b: documents starting with '{' or '[' are JSON.
func Sniff(b []byte) Format {
	t := bytes.TrimLeft(b, " \t\r\n")
	if len(t) > 0 && (t[0] == '{' || t[0] == '[') {
		return JSON
	}
	return YAML
}

// ErrDuplicateKey reports an object key defined twice.
var ErrDuplicateKey = errors.New("docio: duplicate key")

// Map is a decoded object that remembers key order.
type Map struct {
	Keys   []string
	Values map[string]any
}

func newMap() *Map { return &Map{Values: map[string]any{}} }

// Get returns the value stored under k.
func (m *Map) Get(k string) (any, bool) {
	v, ok := m.Values[k]
	return v, ok
}

func (m *Map) set(k string, v any) {
	if _, ok := m.Values[k]; !ok {
		m.Keys = append(m.Keys, k)
	}
	m.Values[k] = v
}

// DecodeOrdered decodes b in the given format. Objects become *Map, arrays
// []any; JSON numbers are json.Number.
func DecodeOrdered(b []byte, f Format) (any, error) {
	if f == YAML {
		return DecodeYAMLOrdered(b)
	}
	return DecodeJSONOrdered(b)
}

// Decode decodes a data document into map[string]any / []any trees.
func Decode(b []byte, f Format) (any, error) {
	if f == YAML {
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("docio: yaml: %w", err)
		}
		return normalizeYAML(v), nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("docio: json: %w", err)
	}
	return v, nil
}

// Plain converts *Map trees into map[string]any trees.
func Plain(v any) any {
	switch t := v.(type) {
	case *Map:
		out := make(map[string]any, len(t.Keys))
		for _, k := range t.Keys {
			out[k] = Plain(t.Values[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Plain(t[i])
		}
		return out
	default:
		return v
	}
}

// ---- ordered JSON over the go-json token stream ----

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
	key          string
	obj          *Map
	arr          []any
}

func (f *frame) value() any {
	if f.kind == kindObject {
		return f.obj
	}
	if f.arr == nil {
		return []any{}
	}
	return f.arr
}

// DecodeJSONOrdered decodes a single JSON document, rejecting duplicate keys.
func DecodeJSONOrdered(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var (
		stack []frame
		root  any
		done  bool
	)
	attach := func(v any) {
		if len(stack) == 0 {
			root, done = v, true
			return
		}
		top := &stack[len(stack)-1]
		if top.kind == kindObject {
			top.obj.set(top.key, v)
			top.expectingKey = true
			return
		}
		top.arr = append(top.arr, v)
	}

	for !done {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("docio: json: %w", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, fmt.Errorf("docio: json: %w", err)
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, frame{kind: kindObject, expectingKey: true, obj: newMap()})
			case '[':
				stack = append(stack, frame{kind: kindArray})
			case '}', ']':
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				attach(top.value())
			}
		case string:
			if n := len(stack); n > 0 {
				top := &stack[n-1]
				if top.kind == kindObject && top.expectingKey {
					if _, dup := top.obj.Values[v]; dup {
						return nil, fmt.Errorf("%w %q at %s", ErrDuplicateKey, v, pointer(stack))
					}
					top.key = v
					top.expectingKey = false
					continue
				}
			}
			attach(v)
		default:
			attach(v)
		}
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("docio: json: trailing data after document")
	}
	return root, nil
}

// pointer renders the JSON Pointer of the container at the top of stack.
func pointer(stack []frame) string {
	var b strings.Builder
	for i := 0; i < len(stack)-1; i++ {
		b.WriteByte('/')
		f := stack[i]
		if f.kind == kindObject {
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(f.key, "~", "~0"), "/", "~1"))
		} else {
			b.WriteString(strconv.Itoa(len(f.arr)))
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// ---- ordered YAML over yaml.Node ----

// DecodeYAMLOrdered decodes the first YAML document, rejecting duplicate
// keys. An empty document decodes to nil.
func DecodeYAMLOrdered(b []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("docio: yaml: %w", err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return fromNode(&doc)
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		m := newMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if _, dup := m.Values[k.Value]; dup {
				return nil, fmt.Errorf("%w %q at line %d", ErrDuplicateKey, k.Value, k.Line)
			}
			val, err := fromNode(v)
			if err != nil {
				return nil, err
			}
			m.set(k.Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("docio: yaml line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

// normalizeYAML turns map[any]any produced by YAML decoding into
// map[string]any, recursively. Non-string keys are dropped.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = normalizeYAML(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = normalizeYAML(t[i])
		}
		return arr
	default:
		return v
	}
}
