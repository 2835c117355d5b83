package goforma_test

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goforma "github.com/reoring/goforma"
)

func mustFormat(t *testing.T, m goforma.Node, data any, opts ...goforma.FormatOptions) any {
	t.Helper()
	out, err := goforma.Format(m, data, opts...)
	require.NoError(t, err)
	return out
}

func diff(t *testing.T, want, got any) {
	t.Helper()
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("mismatch (-want +got):\n%s", d)
	}
}

func upper(v any, _ goforma.Context) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	return strings.ToUpper(s), nil
}

func TestFormat_Defaults(t *testing.T) {
	m := goforma.NewModel(goforma.Field{Key: "f", Default: mo.Some[any]("x")})
	diff(t, map[string]any{"f": "x"}, mustFormat(t, m, map[string]any{}))

	falsy := goforma.NewModel(goforma.Field{Key: "f", Default: mo.Some[any](false)})
	diff(t, map[string]any{"f": false}, mustFormat(t, falsy, map[string]any{"f": nil}))

	skipped := mustFormat(t, m, map[string]any{}, goforma.FormatOptions{SkipDefaults: true})
	diff(t, map[string]any{}, skipped)
}

func TestFormat_Sparse(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "a", Default: mo.Some[any](1)},
		goforma.Field{Key: "b", Default: mo.Some[any](2)},
	)
	got := mustFormat(t, m, map[string]any{"b": nil}, goforma.FormatOptions{Sparse: true})
	diff(t, map[string]any{"b": 2}, got)
}

func TestFormat_LockUnlock(t *testing.T) {
	m := goforma.NewModel(goforma.Field{Key: "name", Lock: true})
	diff(t, map[string]any{}, mustFormat(t, m, map[string]any{"name": "moo"}))
	diff(t, map[string]any{"name": "moo"}, mustFormat(t, m, map[string]any{"name": "moo"}, goforma.FormatOptions{Unlock: true}))

	withDefault := goforma.NewModel(goforma.Field{Key: "status", Lock: true, Default: mo.Some[any]("new")})
	diff(t, map[string]any{"status": "new"}, mustFormat(t, withDefault, map[string]any{"status": "hacked"}))
}

func TestFormat_ScopeProjection(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "name", Show: []string{"admin"}},
		goforma.Field{Key: "age", Default: mo.Some[any](21)},
	)
	in := map[string]any{"name": "X"}
	diff(t, map[string]any{"age": 21}, mustFormat(t, m, in))
	diff(t, map[string]any{"name": "X", "age": 21}, mustFormat(t, m, in, goforma.FormatOptions{Scopes: []string{"admin"}}))
	diff(t, map[string]any{"name": "X", "age": 21}, mustFormat(t, m, in, goforma.FormatOptions{Unscope: true}))
}

func TestFormat_OnceGenerator(t *testing.T) {
	m := goforma.NewModel(goforma.Field{Key: "id", Generate: &goforma.Generator{Ops: []goforma.Op{constOp("gen-1")}, Once: true}})

	diff(t, map[string]any{}, mustFormat(t, m, map[string]any{}))
	diff(t, map[string]any{"id": "gen-1"}, mustFormat(t, m, map[string]any{}, goforma.FormatOptions{Once: true}))
	diff(t, map[string]any{}, mustFormat(t, m, map[string]any{}, goforma.FormatOptions{Once: true, SkipGenerate: true}))
}

func TestFormat_NilDataCreates(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "id", Generate: &goforma.Generator{Ops: []goforma.Op{constOp("gen-1")}, Once: true}},
		goforma.Field{Key: "role", Default: mo.Some[any]("member")},
	)
	diff(t, map[string]any{"id": "gen-1", "role": "member"}, mustFormat(t, m, nil))
}

func TestFormat_GeneratorSeesRoot(t *testing.T) {
	full := goforma.GenerateFunc(func(ctx goforma.Context) (any, error) {
		first, _ := ctx.Get("first")
		last, _ := ctx.Get("last")
		return first.(string) + " " + last.(string), nil
	})
	m := goforma.NewModel(
		goforma.Field{Key: "first"},
		goforma.Field{Key: "last"},
		goforma.Field{Key: "full", Generate: full},
	)
	got := mustFormat(t, m, map[string]any{"first": "Ada", "last": "Lovelace"})
	diff(t, map[string]any{"first": "Ada", "last": "Lovelace", "full": "Ada Lovelace"}, got)
}

func TestFormat_TransformSkipsNull(t *testing.T) {
	m := goforma.NewModel(goforma.Field{Key: "s", Transform: upper})
	diff(t, map[string]any{"s": "ABC"}, mustFormat(t, m, map[string]any{"s": "abc"}))
	diff(t, map[string]any{"s": nil}, mustFormat(t, m, map[string]any{"s": nil}))
	diff(t, map[string]any{"s": "abc"}, mustFormat(t, m, map[string]any{"s": "abc"}, goforma.FormatOptions{SkipTransform: true}))
}

func TestFormat_TransformError(t *testing.T) {
	boom := errors.New("boom")
	m := goforma.NewModel(goforma.Field{Key: "s", Transform: func(any, goforma.Context) (any, error) { return nil, boom }})
	_, err := goforma.Format(m, map[string]any{"s": "x"})
	assert.ErrorIs(t, err, goforma.ErrTransform)
	assert.ErrorIs(t, err, boom)
}

func TestFormat_NestedAndArrays(t *testing.T) {
	author := goforma.NewModel(
		goforma.Field{Key: "name", Transform: upper},
		goforma.Field{Key: "country", Default: mo.Some[any]("JP")},
	)
	m := goforma.NewModel(
		goforma.Field{Key: "owner", Model: author},
		goforma.Field{Key: "authors", Type: "array", Model: author},
		goforma.Field{Key: "tags", Type: "array", Model: &goforma.Field{Transform: upper}},
		goforma.Field{Key: "empty", Type: "array", Default: mo.Some[any]([]any{})},
	)
	in := map[string]any{
		"owner":   map[string]any{"name": "ada"},
		"authors": []any{map[string]any{"name": "rj"}, map[string]any{"name": "kb", "country": "US"}},
		"tags":    []any{"go", "json"},
	}
	want := map[string]any{
		"owner":   map[string]any{"name": "ADA", "country": "JP"},
		"authors": []any{map[string]any{"name": "RJ", "country": "JP"}, map[string]any{"name": "KB", "country": "US"}},
		"tags":    []any{"GO", "JSON"},
		"empty":   []any{},
	}
	diff(t, want, mustFormat(t, m, in))
}

func TestFormat_ArrayElementContext(t *testing.T) {
	label := goforma.GenerateFunc(func(ctx goforma.Context) (any, error) {
		n, _ := ctx.Get("n")
		return n, nil
	})
	item := goforma.NewModel(goforma.Field{Key: "n"}, goforma.Field{Key: "label", Generate: label})
	m := goforma.NewModel(goforma.Field{Key: "items", Model: item})

	got := mustFormat(t, m, map[string]any{"items": []any{map[string]any{"n": 1}, map[string]any{"n": 2}}})
	want := map[string]any{"items": []any{
		map[string]any{"n": 1, "label": 1},
		map[string]any{"n": 2, "label": 2},
	}}
	diff(t, want, got)
}

func TestFormat_Strict(t *testing.T) {
	m := goforma.NewModel(goforma.Field{Key: "keep"})
	in := map[string]any{"keep": 1, "junk": 2}
	diff(t, map[string]any{"keep": 1}, mustFormat(t, m, in, goforma.FormatOptions{Strict: true}))
	diff(t, map[string]any{"keep": 1, "junk": 2}, mustFormat(t, m, in))
}

func TestFormat_Strip(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "a"},
		goforma.Field{Key: "sub", Model: goforma.NewModel(goforma.Field{Key: "b"})},
	)
	in := map[string]any{"a": nil, "c": "", "d": 0.0, "sub": map[string]any{"b": nil, "e": 1}}
	got := mustFormat(t, m, in, goforma.FormatOptions{Strip: []any{nil, "", 0}})
	diff(t, map[string]any{"sub": map[string]any{"e": 1}}, got)
}

func TestFormat_MapIDFrom(t *testing.T) {
	m := goforma.NewModel(goforma.Field{Key: "id", PrimaryKey: true}, goforma.Field{Key: "name"})
	got := mustFormat(t, m, map[string]any{"_id": "42", "name": "x"}, goforma.FormatOptions{MapIDFrom: "_id"})
	diff(t, map[string]any{"id": "42", "name": "x"}, got)

	generated := goforma.NewModel(goforma.Field{Key: "id", PrimaryKey: true, Generate: goforma.GenerateFunc(func(goforma.Context) (any, error) { return "g", nil })})
	got = mustFormat(t, generated, map[string]any{"_id": "42"}, goforma.FormatOptions{MapIDFrom: "_id"})
	diff(t, map[string]any{"_id": "42", "id": "g"}, got)
}

func TestFormat_ScalarModel(t *testing.T) {
	f := &goforma.Field{Default: mo.Some[any]("d"), Transform: upper}
	assert.Equal(t, "ABC", mustFormat(t, f, "abc"))
	assert.Equal(t, "D", mustFormat(t, f, nil))
}

func TestFormat_DoesNotMutateInput(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "name", Transform: upper, Lock: true},
		goforma.Field{Key: "secret", Show: []string{"admin"}},
		goforma.Field{Key: "age", Default: mo.Some[any](21)},
		goforma.Field{Key: "items", Model: goforma.NewModel(goforma.Field{Key: "v", Transform: upper})},
	)
	in := map[string]any{
		"name":   "x",
		"secret": "s",
		"junk":   true,
		"items":  []any{map[string]any{"v": "a"}, "scalar"},
	}
	before, err := json.Marshal(in)
	require.NoError(t, err)

	_, err = goforma.Format(m, in, goforma.FormatOptions{Strict: true, Strip: []any{true}})
	require.NoError(t, err)

	after, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestFormat_Idempotent(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "name", Transform: upper},
		goforma.Field{Key: "age", Default: mo.Some[any](21)},
		goforma.Field{Key: "tags", Type: "array", Model: &goforma.Field{Transform: upper}},
	)
	once := mustFormat(t, m, map[string]any{"name": "ada", "tags": []any{"a"}})
	twice := mustFormat(t, m, once)
	diff(t, once, twice)
}

func TestFormat_Refs(t *testing.T) {
	models := map[string]goforma.Node{
		"address": goforma.NewModel(goforma.Field{Key: "city", Default: mo.Some[any]("Kyoto")}),
	}
	resolver := goforma.ResolverFunc(func(name string) (goforma.Node, error) {
		n, ok := models[name]
		if !ok {
			return nil, errors.New("not found")
		}
		return n, nil
	})
	e := goforma.New(goforma.WithResolver(resolver))
	m := goforma.NewModel(goforma.Field{Key: "home", Model: goforma.Ref("address")})

	got, err := e.Format(m, map[string]any{"home": map[string]any{}})
	require.NoError(t, err)
	diff(t, map[string]any{"home": map[string]any{"city": "Kyoto"}}, got)

	_, err = goforma.Format(m, map[string]any{"home": map[string]any{}})
	assert.ErrorIs(t, err, goforma.ErrUnresolvedModel)
}

func TestFormat_DeepSelfReferentialModel(t *testing.T) {
	node := goforma.NewModel(goforma.Field{Key: "name", Type: "string", Default: mo.Some[any]("n")})
	node.Add(goforma.Field{Key: "child", Model: node})

	data := map[string]any{}
	cur := data
	for i := 0; i < goforma.DefaultMaxDepth; i++ {
		next := map[string]any{}
		cur["child"] = next
		cur = next
	}
	out, err := goforma.Format(node, data)
	require.NoError(t, err)

	levels := 0
	for obj, ok := out.(map[string]any); ok; obj, ok = obj["child"].(map[string]any) {
		assert.Equal(t, "n", obj["name"])
		levels++
	}
	assert.Equal(t, goforma.DefaultMaxDepth+1, levels)
}

func TestFormat_CyclicModelHitsDepthLimit(t *testing.T) {
	node := goforma.NewModel()
	node.Add(goforma.Field{Key: "child", Model: node})

	data := map[string]any{}
	cur := data
	for i := 0; i < 10; i++ {
		next := map[string]any{}
		cur["child"] = next
		cur = next
	}
	e := goforma.New(goforma.WithMaxDepth(4))
	_, err := e.Format(node, data)
	assert.ErrorIs(t, err, goforma.ErrMaxDepth)
}
