package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/becmodel/internal/model"
)

const rulesGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"POLYGON_NUMBER":%d},"geometry":{"type":"Polygon","coordinates":[[[1000000,500000],[1001000,500000],[1001000,501000],[1000000,501000],[1000000,500000]]]}}
]}`

const elevationCSV = `BECLABEL,CLASSNM,COOL_LOW,COOL_HIGH,NEUT_LOW,NEUT_HIGH,WARM_LOW,WARM_HIGH,POLYGONNBR
MS  xk 1,montane,0,950,0,950,0,950,%d
ESSFxc 1,subalpine,950,2000,950,2000,950,2000,%d
`

// writeProject writes rule polygons, an elevation table and a config into a
// temp dir and returns the config path. The DEM is not written.
func writeProject(t *testing.T, ruleID, bandID int) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("rules.geojson", fmt.Sprintf(rulesGeoJSON, ruleID))
	write("elevation.csv", fmt.Sprintf(elevationCSV, bandID, bandID))
	write("dem.asc", "")
	write("becmodel.yaml", fmt.Sprintf(`input:
  rulepolys_file: %[1]s/rules.geojson
  elevation: %[1]s/elevation.csv
  dem: %[1]s/dem.asc
output:
  out_file: %[1]s/out/bec.geojson
  temp_folder: %[1]s/wksp
store:
  driver: none
`, dir))
	return filepath.Join(dir, "becmodel.yaml")
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configFlag = ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "validate", "bounds", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "becmodel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"overwrite", "qa"} {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "run command should have --%s flag", name)
		assert.Equal(t, "false", flag.DefValue)
	}
	flag := runCmd.Flags().Lookup("config-log-dir")
	require.NotNil(t, flag)
	assert.Equal(t, ".", flag.DefValue)
}

func TestConfigArgCommands(t *testing.T) {
	for _, c := range []string{"run", "validate", "bounds"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		assert.Equal(t, "true", cmd.Annotations[configArg], c)
	}
	assert.Empty(t, runsListCmd.Annotations[configArg])
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"config", model.NewConfigError("model.cell_size_metres", errors.New("bad")), 2},
		{"wrapped config", eris.Wrap(model.NewConfigError("", errors.New("bad")), "load config"), 2},
		{"data", model.NewDataError(errors.New("bad labels")), 3},
		{"wrapped data", fmt.Errorf("run: %w", model.NewDataError(errors.New("bad"))), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeProject(t, 1, 1)

	out, err := execute(t, "validate", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, cfgPath+": ok")
	assert.Contains(t, out, "2 bands over 1 rule polygons")
}

func TestValidateCommand_PolygonMismatch(t *testing.T) {
	cfgPath := writeProject(t, 1, 2)

	_, err := execute(t, "validate", cfgPath)
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestValidateCommand_MissingInput(t *testing.T) {
	cfgPath := writeProject(t, 1, 1)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(cfgPath), "elevation.csv")))

	_, err := execute(t, "validate", cfgPath)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "input.elevation")
}
