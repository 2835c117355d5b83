package main

import (
	"github.com/spf13/cobra"

	goforma "github.com/reoring/goforma"
)

type formatFlags struct {
	model, data, path string
	create            bool
	stripNull         bool
	opts              goforma.FormatOptions
}

func newFormatCmd(a *app) *cobra.Command {
	var ff formatFlags
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Apply defaults, generators and transforms to a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFormat(cmd, ff)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&ff.model, "model", "m", "", "Model definition file, or @name of a registered model")
	f.StringVarP(&ff.data, "data", "d", "-", "Data file (- for stdin)")
	f.StringVar(&ff.path, "path", "", "Print only this gjson path of the result")
	f.BoolVar(&ff.create, "create", false, "Ignore input and build a new document from model defaults")
	f.BoolVar(&ff.stripNull, "strip-null", false, "Remove keys whose value is null")
	f.BoolVar(&ff.opts.Sparse, "sparse", false, "Only process keys present in the data")
	f.BoolVar(&ff.opts.Strict, "strict", false, "Drop keys the model does not declare")
	f.BoolVar(&ff.opts.Unlock, "unlock", false, "Keep caller values of locked fields")
	f.BoolVar(&ff.opts.Unscope, "unscope", false, "Ignore show scopes")
	f.BoolVar(&ff.opts.Once, "once", false, "Run generators flagged once")
	f.BoolVar(&ff.opts.SkipDefaults, "skip-defaults", false, "Do not apply defaults")
	f.BoolVar(&ff.opts.SkipGenerate, "skip-generate", false, "Do not run generators")
	f.BoolVar(&ff.opts.SkipTransform, "skip-transform", false, "Do not run transforms")
	f.StringVar(&ff.opts.MapIDFrom, "map-id-from", "", "Rename this key to the model's primary key")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) runFormat(cmd *cobra.Command, ff formatFlags) error {
	model, err := a.loadModel(ff.model)
	if err != nil {
		return err
	}
	var data any
	if !ff.create {
		if data, err = a.loadData(cmd, ff.data); err != nil {
			return err
		}
	}

	opts := ff.opts
	opts.Scopes = a.cfg.Scopes
	opts.Strip = append(opts.Strip, a.cfg.Strip...)
	if ff.stripNull {
		opts.Strip = append(opts.Strip, nil)
	}

	out, err := a.engine.Format(model, data, opts)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out, ff.path)
}
