package main

import (
	"fmt"
	"os"
	"path/filepath"

	"bookdl/pkg/checkpoint"
	bderrors "bookdl/pkg/errors"
	"bookdl/pkg/logger"
	"bookdl/pkg/ui"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <job-dir>",
	Short: "Show the recorded progress of a job",
	Long: `Read <job-dir>/progress.json and list the items it records.

Relative job directories that do not exist are looked up under the configured
output directory. A corrupt checkpoint is reported but never modified.`,
	Example: `  # Show what has been downloaded for a book
  bookdl status ./books/rust-book`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	jobDir := resolveJobDir(cfg.Output.BaseDirectory, args[0])
	store := checkpoint.NewStore(jobDir, logger.GetLogger())
	ui.PrintInfo("Checkpoint", store.Path())

	if err := store.Validate(); err != nil {
		switch bderrors.TypeOf(err) {
		case bderrors.ErrorTypeMissing:
			ui.PrintWarning("No progress recorded yet")
			return nil
		case bderrors.ErrorTypeCorrupt:
			ui.PrintError("Checkpoint is corrupt and will be ignored on the next run", err)
			return nil
		default:
			return err
		}
	}

	records, err := store.Read()
	if err != nil {
		return err
	}

	ui.PrintInfo("Recorded items", fmt.Sprintf("%d", len(records)))
	for _, rec := range records {
		fmt.Println(formatRecord(rec))
	}
	return nil
}

func formatRecord(rec checkpoint.Record) string {
	line := "  " + ui.Green(rec.ID)
	if rec.Title != nil {
		line += "  " + *rec.Title
	}
	if rec.Path != nil {
		line += "  " + ui.Dim(*rec.Path)
	}
	if rec.UpdatedAt != nil {
		line += "  " + ui.Dim(rec.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return line
}

// resolveJobDir keeps dir as given when it is absolute or already exists,
// otherwise it is placed under the output base directory.
func resolveJobDir(base, dir string) string {
	if filepath.IsAbs(dir) || base == "" {
		return dir
	}
	if _, err := os.Stat(dir); err == nil {
		return dir
	}
	return filepath.Join(base, dir)
}
