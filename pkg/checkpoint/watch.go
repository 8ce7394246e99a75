package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the checkpoint contents once at start and again
// every time the file is rewritten, until ctx is done.
//
// The job directory is watched instead of the file because Persist replaces
// the file by rename. Unreadable intermediate states are skipped.
func (s *Store) Watch(ctx context.Context, onChange func([]Record)) error {
	if err := os.MkdirAll(s.jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.jobDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.jobDir, err)
	}
	s.logger.Debug("Watching checkpoint")

	if records, err := s.Read(); err == nil {
		onChange(records)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// Chmod and Remove leave nothing new to read
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			records, err := s.Read()
			if err != nil {
				s.logger.WithError(err).Debug("Skipping unreadable checkpoint")
				continue
			}
			onChange(records)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("Checkpoint watcher error")
		}
	}
}
