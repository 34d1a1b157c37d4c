/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/characterize/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default settings and a generated API key.

Examples:
  characterize init
  characterize init --config ./characterize.yaml --data-dir ./reports --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		_, err := initConfig(cmd.OutOrStdout(), configPath, dataDir, force, printKey)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

// initConfig bootstraps the config at configPath. It returns false without
// touching the file if one exists and force is not set.
func initConfig(out io.Writer, configPath, dataDir string, force, printKey bool) (bool, error) {
	if config.ConfigExists(configPath) && !force {
		fmt.Fprintf(out, "Configuration already exists at %s. Use --force to overwrite.\n", configPath)
		return false, nil
	}

	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return false, err
	}

	fmt.Fprintf(out, "✅ Configuration created at %s\n", configPath)
	fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
	if printKey {
		fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
	}
	return true, nil
}
