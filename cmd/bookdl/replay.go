package main

import (
	"fmt"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/logger"
	"bookdl/pkg/manifest"
	"bookdl/pkg/progress"
	"bookdl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Replay command flags
	manifestFile      string
	replayIncremental bool
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <job-dir>",
	Short: "Feed a manifest of finished items through the progress tracker",
	Long: `Read a YAML manifest describing the outcome of every item in a job and
report each one to the progress controller, exactly as a downloader would.

Items already in the checkpoint are skipped unless the run is incremental.
Failed items pause the display while the failure is printed.

Manifest format:
  total: 12
  items:
    - id: ch01
      title: Getting Started
      path: ch01.html
      updated_at: 2024-02-01T10:00:00Z
    - id: ch02
      failed: true`,
	Example: `  # Resume a job from a downloader's result log
  bookdl replay ./books/rust-book --manifest results.yaml

  # Refresh every chapter and rewrite the checkpoint metadata
  bookdl replay ./books/rust-book --manifest results.yaml --incremental --display tui`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&manifestFile, "manifest", "m", "", "YAML manifest of item outcomes (required)")
	replayCmd.Flags().BoolVar(&replayIncremental, "incremental", false, "treat the run as an incremental refresh")
	_ = replayCmd.MarkFlagRequired("manifest")
}

func runReplay(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("incremental") {
		flags["incremental"] = replayIncremental
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	m, err := manifest.Load(manifestFile)
	if err != nil {
		return err
	}

	jobDir := resolveJobDir(cfg.Output.BaseDirectory, args[0])
	log := logger.GetLogger().WithField("job", jobDir)

	// Printed before Init starts the display so the two never share a line
	if notice, ok := resumeNotice(checkpoint.NewStore(jobDir, log), m.Total, cfg.Progress.Incremental); ok {
		ui.PrintInfo("Resuming", notice)
	}

	ctrl := newController(cfg, jobDir, m.Total)
	if err := ctrl.Init(); err != nil {
		return fmt.Errorf("failed to initialize progress: %w", err)
	}
	defer ctrl.Close()
	if ctrl.State() == progress.StateComplete {
		ui.PrintSuccess("All items already downloaded")
		return nil
	}

	summary, err := manifest.Replay(ctrl, m, log, func(item manifest.Item) {
		ui.PrintWarning("Failed to download", item.ID)
	})
	if err != nil {
		return err
	}

	// Summary output goes below a finished display line
	ctrl.Close()

	log.InfoWithFields("Replay finished", map[string]interface{}{
		"recorded": summary.Recorded,
		"failed":   summary.Failed,
		"skipped":  summary.Skipped,
		"dropped":  summary.Dropped,
	})
	ui.PrintInfo("Recorded", fmt.Sprintf("%d", summary.Recorded))
	ui.PrintInfo("Failed", fmt.Sprintf("%d", summary.Failed))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d", summary.Skipped))
	if summary.Dropped > 0 {
		ui.PrintWarning(fmt.Sprintf("Dropped %d items listed after the job was complete", summary.Dropped))
	}
	if ctrl.State() == progress.StateComplete {
		ui.PrintSuccess("Job complete")
	} else {
		ui.PrintWarning(fmt.Sprintf("Job incomplete: %d/%d", ctrl.Current(), ctrl.Total()))
	}
	return nil
}

// resumeNotice describes the progress a non-incremental run resumes from,
// read straight from the checkpoint before any display is drawn.
func resumeNotice(store *checkpoint.Store, total int, incremental bool) (string, bool) {
	if incremental {
		return "", false
	}
	records, err := store.Read()
	if err != nil || len(records) == 0 || len(records) >= total {
		return "", false
	}
	return fmt.Sprintf("%d/%d already downloaded", len(records), total), true
}
