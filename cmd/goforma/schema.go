package main

import (
	"github.com/spf13/cobra"

	"github.com/reoring/goforma/jsonschema"
)

func newSchemaCmd(a *app) *cobra.Command {
	var (
		model, path string
		strict      bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export a model as JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.loadModel(model)
			if err != nil {
				return err
			}
			opts := []jsonschema.Option{jsonschema.WithResolver(a.models)}
			if strict {
				opts = append(opts, jsonschema.WithStrict())
			}
			s, err := jsonschema.FromModel(n, opts...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s, path)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model definition file, or @name of a registered model")
	cmd.Flags().BoolVar(&strict, "strict", false, "Disallow undeclared keys")
	cmd.Flags().StringVar(&path, "path", "", "Print only this gjson path of the schema")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
