package main

import (
	"fmt"
	"os"

	"bookdl/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage bookdl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (BOOKDL_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.bookdl.yaml'
unless a different path is given with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
}

const exampleConfig = `# bookdl configuration file
#
# Every option can also be set through environment variables prefixed with
# BOOKDL_, for example BOOKDL_DISPLAY=tui or BOOKDL_INCREMENTAL=true

output:
  # Directory holding one sub directory per job
  base_directory: "./books"

progress:
  # Refresh every item instead of resuming from the checkpoint
  incremental: false

  # Progress display: bar, tui, none
  display: "bar"

  # Width of the bar in cells
  bar_width: 40

  # Lines erased when the display resumes after a pause
  clear_lines: 2

logging:
  # Log level: debug, info, warn, error, disabled
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".bookdl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Created example configuration: %s", configPath))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
