package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	bderrors "bookdl/pkg/errors"
	"bookdl/pkg/logger"
)

// FileName is the checkpoint file kept in every job directory
const FileName = "progress.json"

// Store reads and writes the checkpoint file of one job directory.
// It is not safe for concurrent use; callers serialize Persist calls.
type Store struct {
	jobDir string
	path   string
	logger logger.Logger
}

// NewStore creates a store for the checkpoint file in jobDir.
// A nil logger falls back to the global logger.
func NewStore(jobDir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	path := filepath.Join(jobDir, FileName)

	return &Store{
		jobDir: jobDir,
		path:   path,
		logger: log.WithField("checkpoint", path),
	}
}

// Path returns the checkpoint file path
func (s *Store) Path() string {
	return s.path
}

// Read parses the checkpoint file without side effects.
// Failures come back as *errors.Error typed missing, corrupt or unknown.
func (s *Store) Read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bderrors.New(bderrors.ErrorTypeMissing, s.path, "checkpoint file does not exist", err)
		}
		return nil, bderrors.New(bderrors.ErrorTypeUnknown, s.path, "failed to read checkpoint file", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, bderrors.New(bderrors.ErrorTypeCorrupt, s.path, "failed to decode checkpoint", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Load returns the recorded progress for the job.
//
// A missing checkpoint is created holding an empty array. A checkpoint that
// cannot be read or parsed yields an empty slice and is left as it is on disk.
// The only error returned is a failure to create the missing file.
func (s *Store) Load() ([]Record, error) {
	records, err := s.Read()
	if err == nil {
		s.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
			"records": len(records),
		})
		return records, nil
	}

	switch bderrors.TypeOf(err) {
	case bderrors.ErrorTypeMissing:
		if err := s.Persist([]Record{}); err != nil {
			return nil, err
		}
		s.logger.Info("Checkpoint created")
	case bderrors.ErrorTypeCorrupt:
		s.logger.WithError(err).Warn("Checkpoint is corrupt, starting from empty progress")
	default:
		s.logger.WithError(err).Warn("Checkpoint is unreadable, starting from empty progress")
	}
	return []Record{}, nil
}

// Persist overwrites the checkpoint file with records.
// The data is written to a temporary file and renamed into place.
func (s *Store) Persist(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return bderrors.New(bderrors.ErrorTypeWrite, s.path, "failed to encode checkpoint", err)
	}

	if err := os.MkdirAll(s.jobDir, 0755); err != nil {
		return bderrors.New(bderrors.ErrorTypeWrite, s.jobDir, "failed to create job directory", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return bderrors.New(bderrors.ErrorTypeWrite, tempPath, "failed to create temporary checkpoint file", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return bderrors.New(bderrors.ErrorTypeWrite, tempPath, "failed to write checkpoint", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return bderrors.New(bderrors.ErrorTypeWrite, tempPath, "failed to sync checkpoint file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return bderrors.New(bderrors.ErrorTypeWrite, tempPath, "failed to close checkpoint file", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return bderrors.New(bderrors.ErrorTypeWrite, s.path, "failed to replace checkpoint file", err)
	}

	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"records": len(records),
	})
	return nil
}

// Merge folds rec into records by ID. An existing record is patched in
// place; otherwise rec is appended. The returned slice keeps insertion order.
func Merge(records []Record, rec Record) []Record {
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = records[i].Patch(rec)
			return records
		}
	}
	return append(records, rec)
}

// Find returns the record with the given ID
func Find(records []Record, id string) (Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Validate checks the checkpoint on disk: it must exist, parse as an array
// of records and hold at most one record per ID.
func (s *Store) Validate() error {
	records, err := s.Read()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ID == "" {
			return bderrors.New(bderrors.ErrorTypeCorrupt, s.path, "record without id", nil)
		}
		if seen[r.ID] {
			return bderrors.New(bderrors.ErrorTypeCorrupt, s.path, fmt.Sprintf("duplicate record %q", r.ID), nil)
		}
		seen[r.ID] = true
	}
	return nil
}

// Exists checks if the checkpoint file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Delete removes the checkpoint file
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	s.logger.Info("Checkpoint deleted")
	return nil
}

// BackupPath returns where Backup copies the checkpoint
func (s *Store) BackupPath() string {
	return s.path + ".backup"
}

// Backup copies the checkpoint file next to itself. Nothing happens when
// there is no checkpoint yet.
func (s *Store) Backup() error {
	if !s.Exists() {
		return nil
	}

	src, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(s.BackupPath())
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}

	s.logger.Debug("Checkpoint backed up")
	return nil
}
