package docio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONOrdered_KeepsOrder(t *testing.T) {
	v, err := DecodeJSONOrdered([]byte(`{"z":1,"a":{"y":[true,null,"s"],"b":{}},"m":[]}`))
	require.NoError(t, err)
	m, ok := v.(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys)
	assert.Equal(t, json.Number("1"), m.Values["z"])

	a := m.Values["a"].(*Map)
	assert.Equal(t, []string{"y", "b"}, a.Keys)
	assert.Equal(t, []any{true, nil, "s"}, a.Values["y"])
	assert.Equal(t, []any{}, m.Values["m"])
}

func TestDecodeJSONOrdered_DuplicateKey(t *testing.T) {
	_, err := DecodeJSONOrdered([]byte(`{"a":[{"k":1}, {"k":1,"k":2}]}`))
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Contains(t, err.Error(), `"k" at /a/1`)

	_, err = DecodeJSONOrdered([]byte(`{"a":1,"a":2}`))
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestDecodeJSONOrdered_Malformed(t *testing.T) {
	_, err := DecodeJSONOrdered([]byte(`{"a":`))
	assert.Error(t, err)
	_, err = DecodeJSONOrdered([]byte(`{} {}`))
	assert.Error(t, err)
}

func TestDecodeYAMLOrdered(t *testing.T) {
	src := []byte(`
name: string
age:
  type: integer
  default: 3
tags: [a, b]
base: &b {x: 1}
copy: *b
`)
	v, err := DecodeYAMLOrdered(src)
	require.NoError(t, err)
	m := v.(*Map)
	assert.Equal(t, []string{"name", "age", "tags", "base", "copy"}, m.Keys)
	age := m.Values["age"].(*Map)
	assert.Equal(t, []string{"type", "default"}, age.Keys)
	assert.Equal(t, 3, age.Values["default"])
	assert.Equal(t, []any{"a", "b"}, m.Values["tags"])
	assert.Equal(t, map[string]any{"x": 1}, Plain(m.Values["copy"]))

	_, err = DecodeYAMLOrdered([]byte("a: 1\na: 2\n"))
	assert.Error(t, err)

	empty, err := DecodeYAMLOrdered(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"n": 1.5, "list": [{"a": 1}]}`), JSON)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": json.Number("1.5"), "list": []any{map[string]any{"a": json.Number("1")}}}, v)

	v, err = Decode([]byte("n: 2\nnested:\n  k: v\n"), YAML)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 2, "nested": map[string]any{"k": "v"}}, v)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, YAML, FormatOf("model.YML"))
	assert.Equal(t, YAML, FormatOf("a/b.yaml"))
	assert.Equal(t, JSON, FormatOf("data.json"))
	assert.Equal(t, JSON, FormatOf("-"))
	assert.Equal(t, JSON, Sniff([]byte("  [1]")))
	assert.Equal(t, YAML, Sniff([]byte("a: 1")))
}
