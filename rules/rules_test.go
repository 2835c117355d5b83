package rules_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reoring/goforma/rules"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func TestRequired(t *testing.T) {
	assert.False(t, rules.Required(mo.None[any]()))
	assert.False(t, rules.Required(mo.Some[any](nil)))
	assert.False(t, rules.Required(mo.Some[any]("")))
	assert.True(t, rules.Required(mo.Some[any](0)))
	assert.True(t, rules.Required(mo.Some[any](false)))
	assert.True(t, rules.IsEmpty(mo.Some[any]("")))
}

func TestBuiltins(t *testing.T) {
	r := rules.NewRegistry()
	run := func(name string, v any, params ...any) bool {
		p, ok := r.Lookup(name).Get()
		require.Truef(t, ok, "rule %s not registered", name)
		return p(v, params...)
	}

	assert.True(t, run("minLength", "héllo", 5))
	assert.False(t, run("minLength", "abc", 4))
	assert.True(t, run("maxLength", []any{1, 2}, 2))
	assert.False(t, run("maxLength", 12, 2), "numbers have no length")

	assert.True(t, run("min", json.Number("10"), 3))
	assert.False(t, run("max", 10.5, 10))
	assert.False(t, run("min", "12", 3), "numeric strings are not coerced")

	assert.True(t, run("isEmail", "moo@example.com"))
	assert.False(t, run("isEmail", "Moo <moo@example.com>"))
	assert.False(t, run("isEmail", "nope"))

	assert.True(t, run("isUrl", "https://example.com/a"))
	assert.False(t, run("isUrl", "/relative"))

	assert.True(t, run("isUUID", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.False(t, run("isUUID", "xyz"))

	assert.True(t, run("match", "Hello", "^h", "i"))
	assert.False(t, run("match", "Hello", "^h"))
	assert.False(t, run("match", "x", "("), "invalid patterns fail")
	assert.True(t, run("notMatch", "abc", "^z"))
	assert.False(t, run("notMatch", 12, "^z"))

	assert.True(t, run("like", "report-2024.pdf", "report-*.pdf"))
	assert.True(t, run("notLike", "image.png", "*.pdf"))

	assert.True(t, run("oneOf", 2.0, 1, 2, 3))
	assert.False(t, run("oneOf", "d", "a", "b"))
	assert.True(t, run("equals", map[string]any{"a": 1}, map[string]any{"a": 1.0}))
}

func TestCombinators(t *testing.T) {
	short := rules.All(rules.MinLength, rules.MaxLength)
	assert.True(t, short("ab", 2))
	assert.False(t, short("abc", 2))

	either := rules.Any(rules.IsEmail, rules.IsURL)
	assert.True(t, either("https://x.io"))
	assert.False(t, either("plain"))
}

func TestRegistry_ConcurrentRegisterLookup(t *testing.T) {
	r := rules.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("custom", func(v any, _ ...any) bool { return v == "ok" })
		}()
		go func() {
			defer wg.Done()
			_ = r.Lookup("minLength")
		}()
	}
	wg.Wait()

	p, ok := r.Lookup("custom").Get()
	require.True(t, ok)
	require.True(t, p("ok"))
	require.Contains(t, r.Names(), "custom")
	require.True(t, r.Lookup("missing").IsAbsent())
}
