package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/becmodel/internal/rules"
	"github.com/sells-group/becmodel/internal/tables"
)

var validateCmd = &cobra.Command{
	Use:         "validate CONFIG",
	Short:       "Check a config file and its rule polygons and elevation table",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{configArg: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		bands, err := tables.ReadBands(ctx, cfg.Input.Elevation)
		if err != nil {
			return eris.Wrap(err, "validate: read elevation table")
		}
		polys, err := rules.Read(ctx, cfg.Input.RulePolys)
		if err != nil {
			return eris.Wrap(err, "validate: read rule polygons")
		}
		if err := tables.Validate(bands, rules.IDs(polys)); err != nil {
			return err
		}
		if cfg.Input.BECMaster != "" {
			if _, err := tables.ReadCatalogue(ctx, cfg.Input.BECMaster); err != nil {
				return eris.Wrap(err, "validate: read catalogue")
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", cfg.File(), tables.Summary(bands))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
