package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/logger"
	"bookdl/pkg/progress"
	"bookdl/pkg/ui"

	"github.com/spf13/cobra"
)

var watchTotal int

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <job-dir>",
	Short: "Follow the progress of a job run by another process",
	Long: `Show a live progress bar for a job whose checkpoint is being written by
another process. The bar advances every time progress.json is rewritten and
the command exits once the checkpoint holds --total items or on Ctrl+C.`,
	Example: `  # Follow a 12 chapter download from a second terminal
  bookdl watch ./books/rust-book --total 12`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVarP(&watchTotal, "total", "t", 0, "number of items in the job (required)")
	_ = watchCmd.MarkFlagRequired("total")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchTotal <= 0 {
		return fmt.Errorf("--total must be positive, got %d", watchTotal)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobDir := resolveJobDir(cfg.Output.BaseDirectory, args[0])
	store := checkpoint.NewStore(jobDir, logger.GetLogger())
	return followCheckpoint(ctx, store, newSink(cfg), watchTotal)
}

// followCheckpoint drives sink from checkpoint rewrites until the job holds
// total records or ctx is done.
func followCheckpoint(ctx context.Context, store *checkpoint.Store, sink progress.Sink, total int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := false
	complete := false
	err := store.Watch(ctx, func(records []checkpoint.Record) {
		current := min(len(records), total)
		if !started {
			sink.Start(total, current)
			started = true
		} else {
			sink.Update(current)
		}
		if current == total {
			complete = true
			cancel()
		}
	})
	if err != nil {
		return err
	}

	if started {
		sink.Stop()
		if f, ok := sink.(progress.Finisher); ok && complete {
			f.Finish()
		}
	}
	if complete {
		ui.PrintSuccess("Job complete")
	}
	return nil
}
