// Package logger provides structured logging for bookdl on top of zerolog.
//
// Console output is written to stderr with a compact coloured format so it can
// interleave with the progress bar; pause the bar around bursts of log output.
// When a log file is configured, entries are written to both.
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("job_dir", dir).Info("Checkpoint loaded")
//
// Tests use NewNopLogger to silence output or NewTestLogger to assert on what
// was logged.
package logger
