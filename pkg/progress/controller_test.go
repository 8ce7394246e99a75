package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookdl/pkg/checkpoint"
	bderrors "bookdl/pkg/errors"
	"bookdl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every call the controller makes
type recordingSink struct {
	calls []string
}

func (s *recordingSink) Start(total, current int) {
	s.calls = append(s.calls, fmt.Sprintf("start %d/%d", current, total))
}

func (s *recordingSink) Update(current int) {
	s.calls = append(s.calls, fmt.Sprintf("update %d", current))
}

func (s *recordingSink) Stop() {
	s.calls = append(s.calls, "stop")
}

func (s *recordingSink) ClearLines(n int) {
	s.calls = append(s.calls, fmt.Sprintf("clear %d", n))
}

func (s *recordingSink) Finish() {
	s.calls = append(s.calls, "finish")
}

func writeCheckpoint(t *testing.T, dir string, ids ...string) {
	t.Helper()
	records := make([]checkpoint.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, checkpoint.Record{ID: id})
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, checkpoint.FileName), data, 0644))
}

func readCheckpoint(t *testing.T, dir string) []checkpoint.Record {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, checkpoint.FileName))
	require.NoError(t, err)

	var records []checkpoint.Record
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func newTestController(dir string, total int, sink Sink, opts ...Option) *Controller {
	opts = append([]Option{WithSink(sink), WithLogger(logger.NewNopLogger())}, opts...)
	return NewController(dir, total, opts...)
}

func TestFreshJob(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	c := newTestController(dir, 3, sink)

	require.NoError(t, c.Init())
	assert.Equal(t, 0, c.Current())
	assert.False(t, c.Interrupted())
	assert.Equal(t, StateRunning, c.State())
	assert.Empty(t, readCheckpoint(t, dir))

	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, c.Update(checkpoint.Record{ID: id}, true))
		assert.Len(t, readCheckpoint(t, dir), i+1)
	}

	assert.Equal(t, 3, c.Current())
	assert.Equal(t, StateComplete, c.State())
	assert.Equal(t, []string{"start 0/3", "update 1", "update 2", "update 3", "stop", "finish"}, sink.calls)

	records := readCheckpoint(t, dir)
	assert.Equal(t, []string{"A", "B", "C"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

func TestResumeInterruptedJob(t *testing.T) {
	dir := t.TempDir()
	writeCheckpoint(t, dir, "A", "B")
	sink := &recordingSink{}
	tl := logger.NewTestLogger()
	c := NewController(dir, 5, WithSink(sink), WithLogger(tl))

	require.NoError(t, c.Init())
	assert.Equal(t, 2, c.Current())
	assert.True(t, c.Interrupted())
	assert.True(t, c.Completed("A"))
	assert.False(t, c.Completed("C"))
	assert.True(t, tl.HasMessage("Resuming interrupted download from checkpoint"))

	for _, id := range []string{"C", "D", "E"} {
		require.NoError(t, c.Update(checkpoint.Record{ID: id}, true))
	}

	assert.Equal(t, 5, c.Current())
	assert.Len(t, readCheckpoint(t, dir), 5)
	assert.Equal(t, "start 2/5", sink.calls[0])
}

func TestIncrementalJobRestartsCount(t *testing.T) {
	dir := t.TempDir()
	writeCheckpoint(t, dir, "A", "B")
	sink := &recordingSink{}
	c := newTestController(dir, 5, sink, WithIncremental(true))

	require.NoError(t, c.Init())
	assert.Equal(t, 0, c.Current())
	assert.False(t, c.Interrupted())
	assert.True(t, c.Incremental())
	assert.Equal(t, []string{"start 0/5"}, sink.calls)

	// revisiting a known item refreshes it instead of duplicating it
	updated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Update(checkpoint.Record{ID: "A", UpdatedAt: checkpoint.Time(updated)}, true))

	records := readCheckpoint(t, dir)
	require.Len(t, records, 2)
	assert.Equal(t, updated, *records[0].UpdatedAt)
	assert.Equal(t, 1, c.Current())
}

func TestAlreadyCompleteJob(t *testing.T) {
	dir := t.TempDir()
	writeCheckpoint(t, dir, "A", "B", "C")
	sink := &recordingSink{}
	c := newTestController(dir, 3, sink)

	require.NoError(t, c.Init())
	assert.Equal(t, StateComplete, c.State())
	assert.False(t, c.Interrupted())

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Update(checkpoint.Record{ID: fmt.Sprintf("X%d", i)}, true))
	}

	assert.Equal(t, 3, c.Current())
	assert.Empty(t, sink.calls, "no display should be started")
	assert.Len(t, readCheckpoint(t, dir), 3)
}

func TestCheckpointLargerThanTotalIsCapped(t *testing.T) {
	dir := t.TempDir()
	writeCheckpoint(t, dir, "A", "B", "C", "D")
	sink := &recordingSink{}
	c := newTestController(dir, 3, sink)

	require.NoError(t, c.Init())
	assert.Equal(t, 3, c.Current())
	assert.Equal(t, StateComplete, c.State())
	assert.Empty(t, sink.calls)
}

func TestZeroTotal(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t.TempDir(), 0, sink)

	require.NoError(t, c.Init())
	assert.Equal(t, StateComplete, c.State())
	require.NoError(t, c.Update(checkpoint.Record{ID: "A"}, true))
	assert.Equal(t, 0, c.Current())
	assert.Empty(t, sink.calls)
}

func TestFailedItemsAreCountedButNotRecorded(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(dir, 4, &recordingSink{})
	require.NoError(t, c.Init())

	outcomes := []struct {
		id      string
		success bool
	}{
		{"A", true},
		{"B", false},
		{"C", true},
		{"D", false},
	}
	for _, o := range outcomes {
		require.NoError(t, c.Update(checkpoint.Record{ID: o.id}, o.success))
	}

	assert.Equal(t, 4, c.Current())
	records := readCheckpoint(t, dir)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].ID)
	assert.Equal(t, "C", records[1].ID)
	assert.False(t, c.Completed("B"))
}

func TestRemergePreservesFields(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(dir, 10, &recordingSink{})
	require.NoError(t, c.Init())

	require.NoError(t, c.Update(checkpoint.Record{ID: "A", Title: checkpoint.String("Intro"), Path: checkpoint.String("intro.md")}, true))
	require.NoError(t, c.Update(checkpoint.Record{ID: "A", Path: checkpoint.String("moved/intro.md")}, true))

	records := readCheckpoint(t, dir)
	require.Len(t, records, 1)
	assert.Equal(t, "Intro", *records[0].Title)
	assert.Equal(t, "moved/intro.md", *records[0].Path)
	assert.Equal(t, 2, c.Current())

	rec, ok := c.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "moved/intro.md", *rec.Path)
	assert.Len(t, c.Records(), 1)
}

func TestCorruptCheckpointStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, checkpoint.FileName)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	c := newTestController(dir, 2, &recordingSink{})
	require.NoError(t, c.Init())
	assert.Equal(t, 0, c.Current())
	assert.False(t, c.Interrupted())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}

func TestPauseAndContinue(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	c := newTestController(dir, 3, sink, WithClearLines(3))
	require.NoError(t, c.Init())

	require.NoError(t, c.Update(checkpoint.Record{ID: "A"}, true))
	c.Pause()
	assert.Equal(t, StatePaused, c.State())
	assert.Equal(t, 1, c.Current())

	// a second pause is a no-op
	c.Pause()

	// items finished while paused are counted without rendering
	require.NoError(t, c.Update(checkpoint.Record{ID: "B"}, true))

	c.Continue()
	assert.Equal(t, StateRunning, c.State())

	// continuing while running is a no-op
	c.Continue()

	require.NoError(t, c.Update(checkpoint.Record{ID: "C"}, true))
	assert.Equal(t, []string{
		"start 0/3",
		"update 1",
		"stop",
		"clear 3",
		"start 2/3",
		"update 3",
		"stop",
		"finish",
	}, sink.calls)
}

func TestCompletionWhilePaused(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t.TempDir(), 1, sink)
	require.NoError(t, c.Init())

	c.Pause()
	require.NoError(t, c.Update(checkpoint.Record{ID: "A"}, true))
	assert.Equal(t, StateComplete, c.State())

	c.Continue()
	assert.Equal(t, []string{"start 0/1", "stop", "finish"}, sink.calls)
}

func TestCloseStopsRunningSink(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	c := newTestController(dir, 3, sink)
	require.NoError(t, c.Init())
	require.NoError(t, c.Update(checkpoint.Record{ID: "A"}, true))

	c.Close()
	assert.Equal(t, StatePaused, c.State())
	assert.Equal(t, 1, c.Current())

	// closing twice stops the sink once
	c.Close()
	assert.Equal(t, []string{"start 0/3", "update 1", "stop"}, sink.calls)
	assert.Len(t, readCheckpoint(t, dir), 1)
}

func TestCloseAfterCompletionIsNoop(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t.TempDir(), 1, sink)
	require.NoError(t, c.Init())
	require.NoError(t, c.Update(checkpoint.Record{ID: "A"}, true))

	c.Close()
	assert.Equal(t, StateComplete, c.State())
	assert.Equal(t, []string{"start 0/1", "update 1", "stop", "finish"}, sink.calls)
}

func TestCloseBeforeInitIsNoop(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t.TempDir(), 2, sink)

	c.Close()
	assert.Equal(t, StateUninitialized, c.State())
	assert.Empty(t, sink.calls)
}

func TestUpdateBeforeInit(t *testing.T) {
	c := newTestController(t.TempDir(), 3, &recordingSink{})
	err := c.Update(checkpoint.Record{ID: "A"}, true)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, 0, c.Current())
}

func TestPersistFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(dir, 3, &recordingSink{})
	require.NoError(t, c.Init())

	// replace the job directory with a file so the checkpoint cannot be written
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0644))
	t.Cleanup(func() { os.Remove(dir) })

	err := c.Update(checkpoint.Record{ID: "A"}, true)
	require.Error(t, err)
	assert.Equal(t, bderrors.ErrorTypeWrite, bderrors.TypeOf(err))
	assert.Equal(t, 1, c.Current())
}

func TestInitFailsWhenCheckpointCannotBeCreated(t *testing.T) {
	dir := t.TempDir()
	// a directory in the way of the temporary file makes the first write fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, checkpoint.FileName+".tmp"), 0755))

	c := newTestController(dir, 3, &recordingSink{})
	require.Error(t, c.Init())
	assert.Equal(t, StateUninitialized, c.State())
}

func TestNopSinkIsDefault(t *testing.T) {
	c := NewController(t.TempDir(), 1, WithLogger(logger.NewNopLogger()))
	require.NoError(t, c.Init())
	require.NoError(t, c.Update(checkpoint.Record{ID: "A"}, true))
	assert.Equal(t, StateComplete, c.State())
	assert.Equal(t, 1, c.Total())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "state(42)", State(42).String())
}
