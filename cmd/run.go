package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/pipeline"
)

var (
	runOverwrite    bool
	runQA           bool
	runConfigLogDir string
)

var runCmd = &cobra.Command{
	Use:         "run CONFIG",
	Short:       "Run the model for a config file",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{configArg: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		p := pipeline.New(cfg, st, pipeline.Options{
			Overwrite:    runOverwrite,
			QA:           runQA,
			ConfigLogDir: runConfigLogDir,
		})
		out, err := p.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("run complete",
			zap.String("run_id", out.RunID),
			zap.String("out_file", out.Result.OutFile),
			zap.Int("features", out.Result.Features),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d features, %.2f ha\n", out.Result.OutFile, out.Result.Features, out.Result.TotalAreaHA)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOverwrite, "overwrite", false, "clear the workspace, including cached slope and aspect, before running")
	runCmd.Flags().BoolVar(&runQA, "qa", false, "write every intermediate grid to the workspace")
	runCmd.Flags().StringVar(&runConfigLogDir, "config-log-dir", ".", "directory for the config log (empty disables it)")
	rootCmd.AddCommand(runCmd)
}
