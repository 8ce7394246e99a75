package main

import (
	"fmt"
	"time"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/logger"
	"bookdl/pkg/progress"
	"bookdl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Mark command flags
	markTotal       int
	markTitle       string
	markPath        string
	markURL         string
	markFailed      bool
	markIncremental bool
)

// markCmd represents the mark command
var markCmd = &cobra.Command{
	Use:   "mark <job-dir> <item-id>",
	Short: "Record one finished item in a job",
	Long: `Report a single finished item to the job's progress controller.

This is the bookkeeping a downloader performs after each chapter, exposed for
items fetched out of band. A successful item is merged into progress.json; a
failed one only advances the counter.`,
	Example: `  # Record chapter 3 of a 12 chapter book
  bookdl mark ./books/rust-book ch03 --total 12 --title "Ownership"

  # Count a chapter that could not be fetched
  bookdl mark ./books/rust-book ch04 --total 12 --failed`,
	Args: cobra.ExactArgs(2),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().IntVarP(&markTotal, "total", "t", 0, "number of items in the job (required)")
	markCmd.Flags().StringVar(&markTitle, "title", "", "item title")
	markCmd.Flags().StringVar(&markPath, "path", "", "where the item was saved")
	markCmd.Flags().StringVar(&markURL, "url", "", "where the item was fetched from")
	markCmd.Flags().BoolVar(&markFailed, "failed", false, "count the item without recording it")
	markCmd.Flags().BoolVar(&markIncremental, "incremental", false, "treat the run as an incremental refresh")
	_ = markCmd.MarkFlagRequired("total")
}

func runMark(cmd *cobra.Command, args []string) error {
	if markTotal <= 0 {
		return fmt.Errorf("--total must be positive, got %d", markTotal)
	}

	flags := make(map[string]interface{})
	if cmd.Flags().Changed("incremental") {
		flags["incremental"] = markIncremental
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	jobDir := resolveJobDir(cfg.Output.BaseDirectory, args[0])
	ctrl := newController(cfg, jobDir, markTotal)
	if err := ctrl.Init(); err != nil {
		return fmt.Errorf("failed to initialize progress: %w", err)
	}
	defer ctrl.Close()
	if ctrl.State() == progress.StateComplete {
		ui.PrintSuccess("All items already downloaded")
		return nil
	}

	rec := markRecord(args[1], time.Now())
	if err := ctrl.Update(rec, !markFailed); err != nil {
		return err
	}
	ctrl.Close()

	logger.WithField("item", rec.ID).Info("Item marked")
	if ctrl.State() == progress.StateComplete {
		ui.PrintSuccess(fmt.Sprintf("Job complete: %d/%d", ctrl.Current(), ctrl.Total()))
	}
	return nil
}

func markRecord(id string, now time.Time) checkpoint.Record {
	rec := checkpoint.Record{ID: id, UpdatedAt: checkpoint.Time(now)}
	if markTitle != "" {
		rec.Title = checkpoint.String(markTitle)
	}
	if markPath != "" {
		rec.Path = checkpoint.String(markPath)
	}
	if markURL != "" {
		rec.URL = checkpoint.String(markURL)
	}
	return rec
}
