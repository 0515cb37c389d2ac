package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/rules"
)

var boundsJSON bool

var boundsCmd = &cobra.Command{
	Use:         "bounds CONFIG",
	Short:       "Print the aligned study area a DEM must cover",
	Long:        "Prints the extent of the rule polygons, expanded by model.expand_bounds_metres and aligned to the Hectares BC grid.",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{configArg: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("bounds"); err != nil {
			return err
		}

		polys, err := rules.Read(cmd.Context(), cfg.Input.RulePolys)
		if err != nil {
			return eris.Wrap(err, "bounds: read rule polygons")
		}
		b, ok := rules.StudyArea(polys, cfg.Model.ExpandBoundsMetres)
		if !ok {
			return model.NewDataError(eris.Errorf("bounds: %s has no polygons", cfg.Input.RulePolys))
		}
		return formatBounds(cmd.OutOrStdout(), b, boundsJSON)
	},
}

func init() {
	boundsCmd.Flags().BoolVar(&boundsJSON, "json", false, "print bounds as JSON")
	rootCmd.AddCommand(boundsCmd)
}

// formatBounds writes b as "minx miny maxx maxy" or as JSON.
func formatBounds(w io.Writer, b grid.Bounds, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(b)
	}
	_, err := fmt.Fprintf(w, "%.1f %.1f %.1f %.1f\n", b.MinX, b.MinY, b.MaxX, b.MaxY)
	return err
}
