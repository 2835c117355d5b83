package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userModel = `
id: {type: string, primaryKey: true, generate: {ops: [uuid], once: true}}
name: {type: string, required: true, transform: trim}
role: {type: string, default: member}
email: {type: string, rules: {isEmail: true}}
note: {type: string, show: admin}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"GOFORMA_LANG", "GOFORMA_SCOPES", "GOFORMA_MAX_DEPTH"} {
		t.Setenv(k, "")
	}
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFormatCommand(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "user.yaml", "id: {type: string, primaryKey: true}\n"+
		"name: {type: string, transform: trim}\nrole: {default: member}\nnote: {show: admin}\nemail: string\n")
	data := writeFile(t, dir, "in.json", `{"name": "  Ada ", "note": "secret", "_id": "u1", "email": null}`)

	out, err := run(t, "", "format", "--model", model, "--data", data, "--map-id-from", "_id", "--strip-null")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","name":"Ada","role":"member"}`, out)

	out, err = run(t, "", "format", "-m", model, "-d", data, "--scopes", "admin", "--path", "note")
	require.NoError(t, err)
	assert.JSONEq(t, `"secret"`, out)
}

func TestFormatCommand_CreateAndStdin(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "user.yaml", userModel)

	out, err := run(t, "", "format", "--model", model, "--create")
	require.NoError(t, err)
	assert.Contains(t, out, `"id"`)
	assert.Contains(t, out, `"role": "member"`)

	out, err = run(t, "name: Bob\n", "format", "--model", model)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bob","role":"member"}`, out)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "user.yaml", userModel)
	good := writeFile(t, dir, "good.json", `{"name": "Ada", "email": "ada@example.com"}`)
	bad := writeFile(t, dir, "bad.yaml", "email: nope\nextra: 1\n")

	out, err := run(t, "", "validate", "--model", model, "--data", good)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true,"errors":null}`, out)

	out, err = run(t, "", "validate", "--model", model, "--data", bad, "--strict")
	assert.ErrorIs(t, err, errInvalid)
	assert.JSONEq(t, `{"valid":false,"errors":{"name":["required"],"email":["isEmail"],"extra":["invalidKey"]}}`, out)

	out, err = run(t, "", "validate", "--model", model, "--data", bad, "--issues", "--lang", "ja")
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, `"path": "/name"`)
	assert.Contains(t, out, "必須項目です")
}

func TestNamedModelsAndMetrics(t *testing.T) {
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	require.NoError(t, os.Mkdir(models, 0o755))
	writeFile(t, models, "address.yaml", "city: {type: string, default: Kyoto}\n")
	writeFile(t, models, "user.yaml", "name: string\naddress: \"@address\"\n")
	metricsFile := filepath.Join(dir, "metrics.txt")

	out, err := run(t, `{"name":"Ada","address":{}}`, "format", "--models", models, "--model", "@user", "--metrics", metricsFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada","address":{"city":"Kyoto"}}`, out)

	b, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `goforma_format_total{result="ok"} 1`)

	_, err = run(t, "{}", "format", "--models", models, "--model", "@nobody")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "m.yaml", "a: {type: string, show: ops}\nb: {default: \"\"}\n")
	cfg := writeFile(t, dir, "goforma.yaml", "scopes: [ops]\nstrip: [\"\"]\n")

	out, err := run(t, `{"a":"x"}`, "format", "--config", cfg, "--model", model)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x"}`, out)
}

func TestSchemaCommand(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "m.yaml", "name: {type: string, required: true, rules: {maxLength: 3}}\n")

	out, err := run(t, "", "schema", "--model", model, "--strict", "--path", "properties.name")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string","maxLength":3}`, out)

	out, err = run(t, "", "schema", "--model", model, "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, `"$schema": "https://json-schema.org/draft/2020-12/schema"`)
	assert.Contains(t, out, `"additionalProperties": false`)

	_, err = run(t, "", "schema", "--model", model, "--path", "properties.missing")
	assert.ErrorContains(t, err, "not found")
}
