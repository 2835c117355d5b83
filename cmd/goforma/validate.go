package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	goforma "github.com/reoring/goforma"
)

type validateFlags struct {
	model, data string
	issues      bool
	opts        goforma.ValidateOptions
}

func newValidateCmd(a *app) *cobra.Command {
	var vf validateFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a document; exits 1 when it is invalid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, vf)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&vf.model, "model", "m", "", "Model definition file, or @name of a registered model")
	f.StringVarP(&vf.data, "data", "d", "-", "Data file (- for stdin)")
	f.BoolVar(&vf.issues, "issues", false, "Print a flat list of issues with localized messages")
	f.BoolVar(&vf.opts.Sparse, "sparse", false, "Only validate keys present in the data")
	f.BoolVar(&vf.opts.Strict, "strict", false, "Report keys the model does not declare")
	f.BoolVar(&vf.opts.KeyCheckOnly, "keys-only", false, "Only check that every key is declared")
	f.BoolVar(&vf.opts.Unscope, "unscope", false, "Ignore write scopes")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, vf validateFlags) error {
	model, err := a.loadModel(vf.model)
	if err != nil {
		return err
	}
	data, err := a.loadData(cmd, vf.data)
	if err != nil {
		return err
	}

	opts := vf.opts
	opts.Scopes = a.cfg.Scopes
	res, err := a.engine.Validate(model, data, opts)
	if err != nil {
		return err
	}
	a.invalid = !res.Valid
	a.logger.Debug("validated", zap.Bool("valid", res.Valid))

	var out any = res
	if vf.issues {
		iss := res.Issues()
		if iss == nil {
			iss = goforma.Issues{}
		}
		out = iss
	}
	return writeJSON(cmd.OutOrStdout(), out, "")
}
