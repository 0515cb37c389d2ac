package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/becmodel/internal/config"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/pipeline"
)

// configArg marks commands whose first positional argument is the config
// file.
const configArg = "config-arg"

var (
	cfg        *config.Config
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:           "becmodel",
	Short:         "Biogeoclimatic zone model",
	Long:          "Classifies a DEM into biogeoclimatic zone labels using rule polygons and elevation bands, filters the result and writes it as polygons.",
	Version:       pipeline.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configFlag
		if cmd.Annotations[configArg] == "true" && len(args) > 0 {
			path = args[0]
		}
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file for commands without a CONFIG argument (default ./"+config.DefaultFile+")")
}

// exitCode maps an error to the process exit status: 2 for configuration
// errors, 3 for data errors, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case model.IsConfigError(err):
		return 2
	case model.IsDataError(err):
		return 3
	default:
		return 1
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
