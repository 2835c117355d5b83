package goforma_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goforma "github.com/reoring/goforma"
)

func TestResolveDefault(t *testing.T) {
	f := &goforma.Field{Key: "f", Default: mo.Some[any]("x")}

	assert.Equal(t, mo.Some[any]("x"), goforma.ResolveDefault(mo.None[any](), f))
	assert.Equal(t, mo.Some[any]("x"), goforma.ResolveDefault(mo.Some[any](nil), f))
	assert.Equal(t, mo.Some[any]("x"), goforma.ResolveDefault(mo.Some[any](""), f))
	assert.Equal(t, mo.Some[any]("y"), goforma.ResolveDefault(mo.Some[any]("y"), f))

	noDefault := &goforma.Field{Key: "f"}
	assert.True(t, goforma.ResolveDefault(mo.None[any](), noDefault).IsAbsent())
}

func TestResolveDefault_FalsyDefaults(t *testing.T) {
	for _, d := range []any{false, 0, ""} {
		f := &goforma.Field{Default: mo.Some(d)}
		got, ok := goforma.ResolveDefault(mo.None[any](), f).Get()
		require.True(t, ok)
		assert.Equal(t, d, got)
	}
}

func TestResolveDefault_ClonesContainers(t *testing.T) {
	f := &goforma.Field{Default: mo.Some[any]([]any{"a"})}
	v1 := goforma.ResolveDefault(mo.None[any](), f).MustGet().([]any)
	v1[0] = "mutated"
	v2 := goforma.ResolveDefault(mo.None[any](), f).MustGet().([]any)
	assert.Equal(t, "a", v2[0])
}

func TestResolveDefaults_Nested(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "a", Default: mo.Some[any](1)},
		goforma.Field{Key: "addr", Model: goforma.NewModel(
			goforma.Field{Key: "city", Default: mo.Some[any]("Kyoto")},
		)},
	)
	data := map[string]any{"addr": map[string]any{}}
	got := goforma.ResolveDefaults(data, m)
	want := map[string]any{"a": 1, "addr": map[string]any{"city": "Kyoto"}}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("ResolveDefaults mismatch (-want +got):\n%s", d)
	}
}

func TestCreateFrom(t *testing.T) {
	m := goforma.NewModel(
		goforma.Field{Key: "name", Default: mo.Some[any]("anon")},
		goforma.Field{Key: "age"},
		goforma.Field{Key: "tags", Type: "array", Model: &goforma.Field{Type: "string"}},
		goforma.Field{Key: "prefs", Model: goforma.NewModel(
			goforma.Field{Key: "theme", Default: mo.Some[any]("dark")},
		)},
		goforma.Field{Key: "empty", Model: goforma.NewModel(goforma.Field{Key: "x"})},
	)
	got, err := goforma.CreateFrom(m)
	require.NoError(t, err)
	want := map[string]any{"name": "anon", "prefs": map[string]any{"theme": "dark"}}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("CreateFrom mismatch (-want +got):\n%s", d)
	}

	arr, err := goforma.CreateFrom(&goforma.Field{Type: "array"})
	require.NoError(t, err)
	assert.Equal(t, []any{}, arr)
}

func TestCreateFrom_UnresolvedRef(t *testing.T) {
	_, err := goforma.CreateFrom(goforma.Ref("missing"))
	assert.ErrorIs(t, err, goforma.ErrUnresolvedModel)
}
