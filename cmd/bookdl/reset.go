package main

import (
	"fmt"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/logger"
	"bookdl/pkg/ui"

	"github.com/spf13/cobra"
)

var noBackup bool

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <job-dir>",
	Short: "Forget the recorded progress of a job",
	Long: `Delete <job-dir>/progress.json so the next run starts from zero.

The checkpoint is copied to progress.json.backup first unless --no-backup is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVar(&noBackup, "no-backup", false, "delete without keeping a backup copy")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	store := checkpoint.NewStore(resolveJobDir(cfg.Output.BaseDirectory, args[0]), logger.GetLogger())
	if !store.Exists() {
		ui.PrintWarning("No checkpoint to reset", store.Path())
		return nil
	}

	if !noBackup {
		if err := store.Backup(); err != nil {
			return fmt.Errorf("failed to back up checkpoint: %w", err)
		}
		ui.PrintInfo("Backup", store.BackupPath())
	}

	if err := store.Delete(); err != nil {
		return err
	}
	ui.PrintSuccess("Progress reset")
	return nil
}
