package main

import (
	"fmt"
	"os"
	"runtime"

	"bookdl/pkg/config"
	"bookdl/pkg/logger"
	"bookdl/pkg/progress"
	"bookdl/pkg/ui"
	"bookdl/pkg/ui/tui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	displayMode string
	noColor     bool
	quiet       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookdl",
	Short: "Track and resume chapter-by-chapter book downloads",
	Long: `bookdl keeps the progress of a book download job in <job-dir>/progress.json
so an interrupted run can pick up where it stopped.

A downloader reports each finished chapter and bookdl records it, redraws the
progress bar and, once every chapter is counted, closes the bar.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
		if noColor {
			ui.DisableColor()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/bookdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&displayMode, "display", "", "progress display (bar, tui, none)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`bookdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from file, environment and flags, then
// initializes the global logger from it.
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{})
	for k, v := range extra {
		flags[k] = v
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if displayMode != "" {
		flags["display"] = displayMode
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// newSink builds the progress display selected in cfg. The interactive
// display falls back to the plain bar when stderr is not a terminal.
func newSink(cfg *config.Config) progress.Sink {
	if quiet {
		return progress.NopSink{}
	}

	switch cfg.Progress.Display {
	case config.DisplayNone:
		return progress.NopSink{}
	case config.DisplayTUI:
		if ui.IsTerminal(os.Stderr) {
			return tui.NewSink(os.Stderr, "Download", cfg.Progress.BarWidth)
		}
		logger.GetLogger().Warn("Interactive display needs a terminal, using plain bar")
		fallthrough
	default:
		return ui.NewBar(os.Stderr, ui.WithWidth(cfg.Progress.BarWidth))
	}
}

// sinkFor picks the display for a controller; tests swap it out
var sinkFor = newSink

// newController wires a controller for jobDir from cfg. Each run gets its
// own id in the logs so interleaved runs on one job can be told apart.
func newController(cfg *config.Config, jobDir string, total int) *progress.Controller {
	return progress.NewController(jobDir, total,
		progress.WithIncremental(cfg.Progress.Incremental),
		progress.WithSink(sinkFor(cfg)),
		progress.WithClearLines(cfg.Progress.ClearLines),
		progress.WithLogger(logger.GetLogger().WithField("run_id", uuid.NewString())),
	)
}
