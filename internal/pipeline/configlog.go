package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/becmodel/internal/config"
)

// Version is stamped into config logs. It is set at build time.
var Version = "dev"

type configLog struct {
	Version  map[string]string `yaml:"1_version"`
	User     map[string]any    `yaml:"2_user"`
	Defaults map[string]any    `yaml:"3_default"`
}

// WriteConfigLog records the effective configuration of a run started at
// start, user supplied values apart from defaults, as
// becmodel-config-log_<timestamp>.yaml in dir. It returns the path written.
func WriteConfigLog(dir string, cfg *config.Config, start time.Time) (string, error) {
	user, defs := cfg.Sources()
	doc := configLog{
		Version:  map[string]string{"becmodel_version": Version},
		User:     user,
		Defaults: defs,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal config log")
	}

	// colons are not valid in Windows file names
	stamp := strings.ReplaceAll(start.Format("2006-01-02T15:04:05"), ":", "-")
	path := filepath.Join(dir, "becmodel-config-log_"+stamp+".yaml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "pipeline: create %s", dir)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "pipeline: write config log %s", path)
	}
	return path, nil
}
