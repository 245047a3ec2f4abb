package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "benchctl",
	Short: "Benchctl is a CLI tool for driving workloads against key-value stores",
	Long:  "A CLI tool for loading key-value stores and running configurable workloads against them while reporting throughput, latency and memory statistics",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return GConfig.Load()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&GConfig.ctlConfigPath, "config-dir", defaultConfigDir(), "Directory holding the benchctl configuration")
	rootCmd.AddCommand(ConfigCmd)
	rootCmd.AddCommand(LoadCmd)
	rootCmd.AddCommand(RunCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
