package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/internal/docio"
	"github.com/reoring/goforma/modeldef"
)

// loadModel reads a model definition file, or names a registered model
// when ref starts with '@'.
func (a *app) loadModel(ref string) (goforma.Node, error) {
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		if _, err := a.models.Resolve(name); err != nil {
			return nil, err
		}
		return goforma.Ref(name), nil
	}
	b, err := os.ReadFile(ref)
	if err != nil {
		return nil, err
	}
	m, err := modeldef.Parse(b, docio.FormatOf(ref), a.defOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	a.logger.Debug("model loaded", zap.String("path", ref), zap.Strings("fields", m.Keys()))
	return m, nil
}

// loadData reads a data document from path, or from stdin for "-".
func (a *app) loadData(cmd *cobra.Command, path string) (any, error) {
	var (
		b   []byte
		err error
		f   docio.Format
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
		f = docio.Sniff(b)
	} else {
		b, err = os.ReadFile(path)
		f = docio.FormatOf(path)
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	return docio.Decode(b, f)
}

// writeJSON prints v as indented JSON, optionally narrowed to a gjson path.
func writeJSON(w io.Writer, v any, path string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if path != "" {
		res := gjson.GetBytes(b, path)
		if !res.Exists() {
			return fmt.Errorf("path %q not found in output", path)
		}
		b = []byte(res.Raw)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(w)
	return err
}
