package cmd

import (
	"fmt"
	"os"
	"path"
	"strings"

	benchCfg "csb/control/config"
	constants "csb/control/constants"

	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage benchctl configuration",
	Long:  "View and modify benchctl configuration settings",
}

var configSetCmd = &cobra.Command{
	Use:   "set field=value",
	Short: "Set a configuration field",
	Long:  "Set the value of a specific configuration field (e.g., config set seed=12345 or config set operations=get:0.8,put:0.2)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.ctlConfig == nil {
			fmt.Println("Config not found, please run 'benchctl config init' first")
			os.Exit(1)
		}
		field, value, ok := strings.Cut(args[0], "=")
		if !ok {
			return fmt.Errorf("invalid format. Use: field=value")
		}
		if err := GConfig.ctlConfig.Set(field, value); err != nil {
			return err
		}
		if err := benchCfg.ValidateConfig(GConfig.ctlConfig); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return GConfig.ctlConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get field",
	Short: "Get a configuration field value",
	Long:  "Get the current value of a specific configuration field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.ctlConfig == nil {
			fmt.Println("Config not found, please run 'benchctl config init' first")
			os.Exit(1)
		}
		value, err := GConfig.ctlConfig.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configLoadFileCmd = &cobra.Command{
	Use:   "load-file path/to/config.{json,yaml}",
	Short: "Load configuration from file",
	Long:  "Load and replace current configuration with contents from specified JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newConfig, err := benchCfg.ReadConfig(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}

		if err := initConfigDir(); err != nil {
			return err
		}
		GConfig.ctlConfig = newConfig
		return newConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	Long:  "View the current configuration in JSON format, or YAML with --yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.ctlConfig == nil {
			fmt.Println("Config not found, please run 'benchctl config init' first")
			os.Exit(1)
		}
		data, err := GConfig.ctlConfig.Marshal(viewYAML)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration fields",
	Long:  "List all available configuration fields with their types and current values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.ctlConfig == nil {
			fmt.Println("Config not found, please run 'benchctl config init' first")
			os.Exit(1)
		}
		fmt.Printf("%-20s %-25s %-10s %s\n", "FIELD", "TYPE", "REQUIRED", "CURRENT VALUE")
		fmt.Println(strings.Repeat("-", 80))
		for _, f := range GConfig.ctlConfig.Fields() {
			fmt.Printf("%-20s %-25s %-10v %s\n", f.Name, f.Type, f.Required, f.Value)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  "Write the default configuration into the config directory unless a configuration already exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDefaultConfig(false)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset to default configuration",
	Long:  "Overwrite the configuration in the config directory with the default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDefaultConfig(true)
	},
}

var viewYAML bool

func init() {
	// an unreadable config must not block init and reset
	ConfigCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := GConfig.Load(); err != nil {
			fmt.Println("Ignoring unreadable config: ", err)
		}
		return nil
	}
	configViewCmd.Flags().BoolVar(&viewYAML, "yaml", false, "Print the configuration as YAML")
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configResetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configLoadFileCmd)
	ConfigCmd.AddCommand(configViewCmd)
	ConfigCmd.AddCommand(configListCmd)
}

func initConfigDir() error {
	if err := os.MkdirAll(GConfig.ctlConfigPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

func writeDefaultConfig(overwrite bool) error {
	if err := initConfigDir(); err != nil {
		return err
	}
	configFilePath := path.Join(GConfig.ctlConfigPath, constants.DEFAULT_CONFIG_FILE)
	if _, err := os.Stat(configFilePath); err == nil && !overwrite {
		fmt.Println("Configuration already exists in", configFilePath, "- use 'benchctl config reset' to overwrite it")
		return nil
	}
	defaultConfig := benchCfg.GetDefaultConfig()
	if err := defaultConfig.WriteConfig(configFilePath); err != nil {
		return fmt.Errorf("failed to write default config file: %w", err)
	}
	GConfig.ctlConfig = defaultConfig
	fmt.Println("Default configuration saved in", configFilePath)
	return nil
}
