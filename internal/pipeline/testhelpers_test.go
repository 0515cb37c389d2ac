package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/becmodel/internal/config"
)

// testRows and testCols size the synthetic DEM: 50 m cells whose elevation
// falls 5 m per row southward, a 10% slope below the aspect threshold.
const (
	testRows = 20
	testCols = 20
	testCell = 50
	originX  = 1000000.0
	originY  = 500000.0
)

const testElevationCSV = `BECLABEL,CLASSNM,COOL_LOW,COOL_HIGH,NEUT_LOW,NEUT_HIGH,WARM_LOW,WARM_HIGH,POLYGONNBR
MS  xk 1,montane,0,950,0,950,0,950,%d
ESSFxc 1,subalpine,950,2000,950,2000,950,2000,%d
`

type fixture struct {
	dir    string
	config string
}

// newFixture writes a DEM, rule polygon and elevation table into a temp dir
// plus a config pointing at them. ruleID numbers the single rule polygon and
// bandID the elevation rows, so a mismatch yields a data error.
func newFixture(t *testing.T, ruleID, bandID int, extra string) fixture {
	t.Helper()
	dir := t.TempDir()

	var dem strings.Builder
	fmt.Fprintf(&dem, "ncols %d\nnrows %d\nxllcorner %.0f\nyllcorner %.0f\ncellsize %d\nNODATA_value -9999\n",
		testCols, testRows, originX, originY-testRows*testCell, testCell)
	for r := 0; r < testRows; r++ {
		vals := make([]string, testCols)
		for c := range vals {
			vals[c] = fmt.Sprint(1000 - 5*r)
		}
		dem.WriteString(strings.Join(vals, " ") + "\n")
	}
	write(t, filepath.Join(dir, "dem.asc"), dem.String())

	minY := originY - testRows*testCell
	maxX := originX + testCols*testCell
	write(t, filepath.Join(dir, "rules.geojson"), fmt.Sprintf(`{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"POLYGON_NUMBER":%d},"geometry":{"type":"Polygon","coordinates":[[[%.0f,%.0f],[%.0f,%.0f],[%.0f,%.0f],[%.0f,%.0f],[%.0f,%.0f]]]}}
]}`, ruleID, originX, minY, maxX, minY, maxX, originY, originX, originY, originX, minY))

	write(t, filepath.Join(dir, "elevation.csv"), fmt.Sprintf(testElevationCSV, bandID, bandID))

	cfgPath := filepath.Join(dir, "becmodel.yaml")
	write(t, cfgPath, fmt.Sprintf(`input:
  rulepolys_file: %[1]s/rules.geojson
  elevation: %[1]s/elevation.csv
  dem: %[1]s/dem.asc
output:
  out_file: %[1]s/out/bec.geojson
  temp_folder: %[1]s/wksp
store:
  driver: none
%[2]s`, dir, extra))

	return fixture{dir: dir, config: cfgPath}
}

func (f fixture) load(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(f.config)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate("run"))
	return cfg
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
