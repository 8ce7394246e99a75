package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/config"
	"bookdl/pkg/progress"
	"bookdl/pkg/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command with fresh flag state
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	configFile, logLevel, displayMode = "", "", ""
	quiet, noColor = false, false
	markTotal, markTitle, markPath, markURL = 0, "", "", ""
	markFailed, markIncremental = false, false
	manifestFile, replayIncremental, noBackup = "", false, false
	watchTotal = 0

	ui.SetOutput(&discard{})
	t.Cleanup(func() {
		ui.SetOutput(os.Stdout)
		ui.SetQuietMode(false)
	})

	rootCmd.SetArgs(append(args, "--display", "none", "--log-level", "disabled"))
	return rootCmd.Execute()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func readCheckpoint(t *testing.T, jobDir string) []checkpoint.Record {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(jobDir, checkpoint.FileName))
	require.NoError(t, err)
	var records []checkpoint.Record
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte(exampleConfig), cfg))
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestResolveJobDir(t *testing.T) {
	existing := t.TempDir()

	assert.Equal(t, existing, resolveJobDir("./books", existing))
	assert.Equal(t, filepath.Join("./books", "no-such-job"), resolveJobDir("./books", "no-such-job"))
	assert.Equal(t, "no-such-job", resolveJobDir("", "no-such-job"))
}

func TestMarkRecord(t *testing.T) {
	markTitle, markPath, markURL = "Ownership", "", "https://example.com/ch03"
	t.Cleanup(func() { markTitle, markURL = "", "" })

	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := markRecord("ch03", now)

	assert.Equal(t, "ch03", rec.ID)
	require.NotNil(t, rec.Title)
	assert.Equal(t, "Ownership", *rec.Title)
	assert.Nil(t, rec.Path)
	require.NotNil(t, rec.URL)
	require.NotNil(t, rec.UpdatedAt)
	assert.True(t, now.Equal(*rec.UpdatedAt))
}

func TestNewSink(t *testing.T) {
	cfg := config.DefaultConfig()
	t.Cleanup(func() { quiet = false })

	cfg.Progress.Display = config.DisplayNone
	assert.IsType(t, progress.NopSink{}, newSink(cfg))

	cfg.Progress.Display = config.DisplayBar
	assert.IsType(t, &ui.Bar{}, newSink(cfg))

	quiet = true
	assert.IsType(t, progress.NopSink{}, newSink(cfg))
}

func TestMarkCommand(t *testing.T) {
	jobDir := t.TempDir()

	require.NoError(t, execute(t, "mark", jobDir, "ch01", "--total", "2", "--title", "Intro"))
	records := readCheckpoint(t, jobDir)
	require.Len(t, records, 1)
	assert.Equal(t, "ch01", records[0].ID)
	require.NotNil(t, records[0].Title)
	assert.Equal(t, "Intro", *records[0].Title)

	require.NoError(t, execute(t, "mark", jobDir, "ch02", "--total", "2", "--failed"))
	assert.Len(t, readCheckpoint(t, jobDir), 1)
}

func TestMarkCommandRejectsZeroTotal(t *testing.T) {
	err := execute(t, "mark", t.TempDir(), "ch01", "--total", "0")
	assert.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	jobDir := t.TempDir()
	manifestPath := filepath.Join(t.TempDir(), "results.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
total: 3
items:
  - id: ch01
    title: Intro
  - id: ch02
    failed: true
  - id: ch03
`), 0644))

	require.NoError(t, execute(t, "replay", jobDir, "--manifest", manifestPath))

	records := readCheckpoint(t, jobDir)
	require.Len(t, records, 2)
	assert.Equal(t, "ch01", records[0].ID)
	assert.Equal(t, "ch03", records[1].ID)
}

func TestResetCommand(t *testing.T) {
	jobDir := t.TempDir()
	store := checkpoint.NewStore(jobDir, nil)
	require.NoError(t, store.Persist([]checkpoint.Record{{ID: "ch01"}}))

	require.NoError(t, execute(t, "reset", jobDir))

	assert.False(t, store.Exists())
	_, err := os.Stat(store.BackupPath())
	assert.NoError(t, err)
}

func TestStatusCommandOnCorruptCheckpoint(t *testing.T) {
	jobDir := t.TempDir()
	path := filepath.Join(jobDir, checkpoint.FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	require.NoError(t, execute(t, "status", jobDir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

type recordingSink struct {
	events []string
}

func (s *recordingSink) Start(total, current int) {
	s.events = append(s.events, fmt.Sprintf("start %d/%d", current, total))
}
func (s *recordingSink) Update(current int) { s.events = append(s.events, fmt.Sprintf("update %d", current)) }
func (s *recordingSink) Stop()              { s.events = append(s.events, "stop") }

func TestFollowCheckpointStopsWhenComplete(t *testing.T) {
	ui.SetOutput(&discard{})
	t.Cleanup(func() { ui.SetOutput(os.Stdout) })

	store := checkpoint.NewStore(t.TempDir(), nil)
	require.NoError(t, store.Persist([]checkpoint.Record{{ID: "ch01"}}))

	sink := &recordingSink{}
	done := make(chan error, 1)
	go func() {
		done <- followCheckpoint(context.Background(), store, sink, 2)
	}()

	// Keep rewriting until the watcher has picked the change up
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, store.Persist([]checkpoint.Record{{ID: "ch01"}, {ID: "ch02"}}))
		select {
		case err := <-done:
			require.NoError(t, err)
			require.NotEmpty(t, sink.events)
			assert.True(t, strings.HasPrefix(sink.events[0], "start "))
			assert.Equal(t, "stop", sink.events[len(sink.events)-1])
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("watch did not finish")
		}
	}
}

// captureSink routes controllers built by the commands to a recording sink
func captureSink(t *testing.T) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	sinkFor = func(*config.Config) progress.Sink { return sink }
	t.Cleanup(func() { sinkFor = newSink })
	return sink
}

func TestMarkCommandStopsDisplayOnUnfinishedJob(t *testing.T) {
	sink := captureSink(t)

	require.NoError(t, execute(t, "mark", t.TempDir(), "ch01", "--total", "3"))
	assert.Equal(t, []string{"start 0/3", "update 1", "stop"}, sink.events)
}

func TestReplayCommandStopsDisplayWhenManifestIsShort(t *testing.T) {
	sink := captureSink(t)
	manifestPath := filepath.Join(t.TempDir(), "results.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("total: 3\nitems:\n  - id: ch01\n"), 0644))

	require.NoError(t, execute(t, "replay", t.TempDir(), "--manifest", manifestPath))
	assert.Equal(t, []string{"start 0/3", "update 1", "stop"}, sink.events)
}

func TestReplayCommandStopsDisplayOnPersistError(t *testing.T) {
	sink := captureSink(t)
	jobDir := t.TempDir()
	manifestPath := filepath.Join(t.TempDir(), "results.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("total: 2\nitems:\n  - id: ch01\n"), 0644))

	// Init creates progress.json; a directory at the temp path then breaks the next write
	store := checkpoint.NewStore(jobDir, nil)
	require.NoError(t, store.Persist([]checkpoint.Record{}))
	require.NoError(t, os.Mkdir(store.Path()+".tmp", 0755))

	assert.Error(t, execute(t, "replay", jobDir, "--manifest", manifestPath))
	assert.Equal(t, []string{"start 0/2", "stop"}, sink.events)
}

func TestResumeNotice(t *testing.T) {
	store := checkpoint.NewStore(t.TempDir(), nil)

	_, ok := resumeNotice(store, 3, false)
	assert.False(t, ok, "missing checkpoint")

	require.NoError(t, store.Persist([]checkpoint.Record{{ID: "ch01"}}))
	notice, ok := resumeNotice(store, 3, false)
	assert.True(t, ok)
	assert.Equal(t, "1/3 already downloaded", notice)

	_, ok = resumeNotice(store, 3, true)
	assert.False(t, ok, "incremental run")

	_, ok = resumeNotice(store, 1, false)
	assert.False(t, ok, "already complete")
}
