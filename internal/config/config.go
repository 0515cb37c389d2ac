// Package config loads becmodel settings from YAML and the environment.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/becmodel/internal/aspect"
	"github.com/sells-group/becmodel/internal/grid"
	"github.com/sells-group/becmodel/internal/model"
	"github.com/sells-group/becmodel/internal/vectorize"
	"github.com/sells-group/becmodel/internal/zone"
)

// DefaultFile is searched for in the working directory when no path is given.
const DefaultFile = "becmodel.yaml"

// EnvPrefix prefixes environment overrides, e.g. BECMODEL_MODEL_CELL_SIZE_METRES.
const EnvPrefix = "BECMODEL"

// Config holds the full application configuration.
type Config struct {
	Input  InputConfig  `yaml:"input" mapstructure:"input"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Model  Model        `yaml:"model" mapstructure:"model"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`

	file string
	user map[string]any
	defs map[string]any
}

// InputConfig locates the source data.
type InputConfig struct {
	RulePolys string `yaml:"rulepolys_file" mapstructure:"rulepolys_file"`
	Elevation string `yaml:"elevation" mapstructure:"elevation"`
	DEM       string `yaml:"dem" mapstructure:"dem"`
	BECMaster string `yaml:"becmaster" mapstructure:"becmaster"`
}

// OutputConfig controls where results and intermediates are written.
type OutputConfig struct {
	File       string `yaml:"out_file" mapstructure:"out_file"`
	Layer      string `yaml:"out_layer" mapstructure:"out_layer"`
	TempFolder string `yaml:"temp_folder" mapstructure:"temp_folder"`
	SRID       int    `yaml:"srid" mapstructure:"srid"`
}

// Model holds the classification parameters. It is passed by value into
// every stage.
type Model struct {
	CellSizeMetres                   int     `yaml:"cell_size_metres" mapstructure:"cell_size_metres"`
	CellConnectivity                 int     `yaml:"cell_connectivity" mapstructure:"cell_connectivity"`
	NoiseRemovalThresholdHa          float64 `yaml:"noise_removal_threshold_ha" mapstructure:"noise_removal_threshold_ha"`
	HighElevationRemovalThresholdHa  float64 `yaml:"high_elevation_removal_threshold_ha" mapstructure:"high_elevation_removal_threshold_ha"`
	AspectNeutralSlopeThresholdPct   float64 `yaml:"aspect_neutral_slope_threshold_percent" mapstructure:"aspect_neutral_slope_threshold_percent"`
	AspectMidpointCoolDegrees        int     `yaml:"aspect_midpoint_cool_degrees" mapstructure:"aspect_midpoint_cool_degrees"`
	AspectMidpointNeutralEastDegrees int     `yaml:"aspect_midpoint_neutral_east_degrees" mapstructure:"aspect_midpoint_neutral_east_degrees"`
	AspectMidpointWarmDegrees        int     `yaml:"aspect_midpoint_warm_degrees" mapstructure:"aspect_midpoint_warm_degrees"`
	AspectMidpointNeutralWestDegrees int     `yaml:"aspect_midpoint_neutral_west_degrees" mapstructure:"aspect_midpoint_neutral_west_degrees"`
	MajoritySteepSlopeThresholdPct   float64 `yaml:"majority_filter_steep_slope_threshold_percent" mapstructure:"majority_filter_steep_slope_threshold_percent"`
	MajorityFilterSizeLowMetres      float64 `yaml:"majority_filter_size_slope_low_metres" mapstructure:"majority_filter_size_slope_low_metres"`
	MajorityFilterSizeSteepMetres    float64 `yaml:"majority_filter_size_slope_steep_metres" mapstructure:"majority_filter_size_slope_steep_metres"`
	ExpandBoundsMetres               float64 `yaml:"expand_bounds_metres" mapstructure:"expand_bounds_metres"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns     int32  `yaml:"max_conns" mapstructure:"max_conns"`
	SaveFeatures bool   `yaml:"save_features" mapstructure:"save_features"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var defaults = map[string]any{
	"input.rulepolys_file": "rulepolys.shp",
	"input.elevation":      "elevation.xlsx",
	"input.dem":            "dem.asc",
	"input.becmaster":      "",

	"output.out_file":    "becmodel.gpkg",
	"output.out_layer":   "becmodel",
	"output.temp_folder": "tempdata",
	"output.srid":        vectorize.SRIDBCAlbers,

	"model.cell_size_metres":                              50,
	"model.cell_connectivity":                             1,
	"model.noise_removal_threshold_ha":                    10.0,
	"model.high_elevation_removal_threshold_ha":           100.0,
	"model.aspect_neutral_slope_threshold_percent":        15.0,
	"model.aspect_midpoint_cool_degrees":                  0,
	"model.aspect_midpoint_neutral_east_degrees":          90,
	"model.aspect_midpoint_warm_degrees":                  200,
	"model.aspect_midpoint_neutral_west_degrees":          290,
	"model.majority_filter_steep_slope_threshold_percent": 25.0,
	"model.majority_filter_size_slope_low_metres":         250.0,
	"model.majority_filter_size_slope_steep_metres":       150.0,
	"model.expand_bounds_metres":                          2000.0,

	"store.driver":        "sqlite",
	"store.database_url":  "becmodel-runs.db",
	"store.max_conns":     4,
	"store.save_features": false,

	"log.level":  "info",
	"log.format": "console",
}

// Load reads configuration from path (or DefaultFile when path is empty and
// the file exists) and the environment. Keys the file sets that becmodel
// does not know are rejected.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, filepath.Ext(DefaultFile)))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, model.NewConfigError("", eris.Wrap(err, "config: read file"))
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, model.NewConfigError("", eris.Wrap(err, "config: unmarshal"))
	}

	cfg.file = v.ConfigFileUsed()
	cfg.user = make(map[string]any)
	cfg.defs = make(map[string]any)
	for _, k := range v.AllKeys() {
		_, fromEnv := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(k, ".", "_")))
		if v.InConfig(k) || fromEnv {
			cfg.user[k] = v.Get(k)
		} else {
			cfg.defs[k] = v.Get(k)
		}
	}
	return &cfg, nil
}

// File returns the configuration file that was read, or "" when only
// defaults and the environment were used.
func (c *Config) File() string { return c.file }

// Sources splits the effective settings into user supplied (file or
// environment) and defaulted values, keyed by dotted name.
func (c *Config) Sources() (user, defaulted map[string]any) {
	return c.user, c.defs
}

// SourceDir is the workspace subdirectory holding cached slope and aspect.
func (c *Config) SourceDir() string {
	return filepath.Join(c.Output.TempFolder, "src")
}

// Validate checks the configuration for the given mode: "run" needs every
// input, "bounds" only the rule polygons, "runs" only the ledger.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "run":
		c.Model.validate(add)
		c.validateOutput(add)
		c.validateStore(add)
		for key, p := range map[string]string{
			"input.rulepolys_file": c.Input.RulePolys,
			"input.elevation":      c.Input.Elevation,
			"input.dem":            c.Input.DEM,
		} {
			requireFile(add, key, p)
		}
		if c.Input.BECMaster != "" {
			requireFile(add, "input.becmaster", c.Input.BECMaster)
		}
	case "bounds":
		c.Model.validate(add)
		requireFile(add, "input.rulepolys_file", c.Input.RulePolys)
	case "runs":
		c.validateStore(add)
	default:
		return model.NewConfigError("", eris.Errorf("config: unknown mode %q", mode))
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return model.NewConfigError("", eris.Errorf("config: invalid: %s", strings.Join(problems, "; ")))
}

func (m Model) validate(add func(string, ...any)) {
	if m.CellSizeMetres < 25 || m.CellSizeMetres > 100 || m.CellSizeMetres%5 != 0 {
		add("model.cell_size_metres %d must be a multiple of 5 from 25-100", m.CellSizeMetres)
	}
	if err := m.Connectivity().Validate(); err != nil {
		add("model.cell_connectivity must be 1 or 2")
	}
	if err := m.Midpoints().Validate(); err != nil {
		add("model.aspect_midpoint_*: %v", err)
	}
	if m.MajorityFilterSizeLowMetres <= 0 {
		add("model.majority_filter_size_slope_low_metres must be > 0")
	}
	if m.MajorityFilterSizeSteepMetres <= 0 {
		add("model.majority_filter_size_slope_steep_metres must be > 0")
	}
	for key, v := range map[string]float64{
		"noise_removal_threshold_ha":                    m.NoiseRemovalThresholdHa,
		"high_elevation_removal_threshold_ha":           m.HighElevationRemovalThresholdHa,
		"aspect_neutral_slope_threshold_percent":        m.AspectNeutralSlopeThresholdPct,
		"majority_filter_steep_slope_threshold_percent": m.MajoritySteepSlopeThresholdPct,
		"expand_bounds_metres":                          m.ExpandBoundsMetres,
	} {
		if v < 0 {
			add("model.%s must be >= 0", key)
		}
	}
}

func (c *Config) validateOutput(add func(string, ...any)) {
	ext := strings.ToLower(filepath.Ext(c.Output.File))
	if !slices.Contains(vectorize.Formats, ext) {
		add("output.out_file %q must end in one of %s", c.Output.File, strings.Join(vectorize.Formats, ", "))
	}
	if ext == ".gpkg" && c.Output.Layer == "" {
		add("output.out_layer is required for .gpkg output")
	}
	if c.Output.TempFolder == "" {
		add("output.temp_folder is required")
	}
	if c.Output.SRID <= 0 {
		add("output.srid must be > 0")
	}
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch c.Store.Driver {
	case "none":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for driver %s", c.Store.Driver)
		}
	default:
		add("store.driver %q must be sqlite, postgres or none", c.Store.Driver)
	}
	if c.Store.SaveFeatures && c.Store.Driver != "postgres" {
		add("store.save_features requires the postgres driver")
	}
}

func requireFile(add func(string, ...any), key, path string) {
	if path == "" {
		add("%s is required", key)
		return
	}
	if _, err := os.Stat(path); err != nil {
		add("%s: %s does not exist", key, path)
	}
}

// CellSize returns the cell size in metres.
func (m Model) CellSize() float64 { return float64(m.CellSizeMetres) }

// Connectivity returns the neighbourhood used by every region operation.
func (m Model) Connectivity() grid.Connectivity { return grid.Connectivity(m.CellConnectivity) }

// Midpoints returns the aspect temperature zone midpoints.
func (m Model) Midpoints() aspect.Midpoints {
	return aspect.Midpoints{
		Cool:        m.AspectMidpointCoolDegrees,
		NeutralEast: m.AspectMidpointNeutralEastDegrees,
		Warm:        m.AspectMidpointWarmDegrees,
		NeutralWest: m.AspectMidpointNeutralWestDegrees,
	}
}

// Matcher returns the high elevation label sets. They are fixed for BC
// labels and not read from the file.
func (m Model) Matcher() zone.Matcher { return zone.DefaultMatcher() }

// FilterSizeLow is the majority kernel width, in cells, for gentle slopes.
func (m Model) FilterSizeLow() int {
	return int(math.Ceil(m.MajorityFilterSizeLowMetres / m.CellSize()))
}

// FilterSizeSteep is the majority kernel width, in cells, for steep slopes.
func (m Model) FilterSizeSteep() int {
	return int(math.Ceil(m.MajorityFilterSizeSteepMetres / m.CellSize()))
}

// NoiseThresholdCells is the smallest patch, in cells, kept by noise removal.
func (m Model) NoiseThresholdCells() int {
	return haToCells(m.NoiseRemovalThresholdHa, m.CellSize())
}

// HighElevationThresholdCells is the smallest high elevation patch, in
// cells, kept by the high elevation filter.
func (m Model) HighElevationThresholdCells() int {
	return haToCells(m.HighElevationRemovalThresholdHa, m.CellSize())
}

// ExpandBoundsCells is the rule expansion distance in cells.
func (m Model) ExpandBoundsCells() int {
	return int(math.Ceil(m.ExpandBoundsMetres / m.CellSize()))
}

func haToCells(ha, cell float64) int {
	return int(ha * 10000 / (cell * cell))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
