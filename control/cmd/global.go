package cmd

import (
	"os"
	"path"

	benchCfg "csb/control/config"
	constants "csb/control/constants"
)

type globalConfig struct {
	ctlConfig     *benchCfg.BenchctlConfig
	ctlConfigPath string
}

// GConfig is the configuration shared by all commands
var GConfig = &globalConfig{}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.DEFAULT_CONFIG_DIR
	}
	return path.Join(home, constants.DEFAULT_CONFIG_DIR)
}

func (g *globalConfig) GetConfigFilePath() string {
	return path.Join(g.ctlConfigPath, constants.DEFAULT_CONFIG_FILE)
}

// Load reads the saved configuration. A missing file leaves ctlConfig nil.
func (g *globalConfig) Load() error {
	cfg, err := benchCfg.ReadConfig(g.GetConfigFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	g.ctlConfig = cfg
	return nil
}
