package progress

import (
	"errors"
	"fmt"
	"sync"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/logger"
)

// State is the lifecycle state of a Controller
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StatePaused
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultClearLines is how many rendered lines Continue erases
const DefaultClearLines = 2

// ErrNotInitialized is returned by Update before Init has run
var ErrNotInitialized = errors.New("progress controller not initialized")

// Controller tracks how many items of a job are done, records successful
// items in the job's checkpoint and keeps a Sink in step.
type Controller struct {
	mu sync.Mutex

	jobDir      string
	total       int
	current     int
	incremental bool
	interrupted bool
	clearLines  int
	state       State

	records []checkpoint.Record
	store   *checkpoint.Store
	sink    Sink
	logger  logger.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithIncremental makes Init restart the count at zero regardless of the
// checkpoint, so every item is revisited.
func WithIncremental(incremental bool) Option {
	return func(c *Controller) {
		c.incremental = incremental
	}
}

// WithSink sets the display sink. The default discards output.
func WithSink(sink Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger sets the logger used by the controller and its checkpoint store
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithClearLines sets how many lines Continue erases before restarting the sink
func WithClearLines(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.clearLines = n
		}
	}
}

// NewController creates a controller for a job of total items stored in jobDir
func NewController(jobDir string, total int, opts ...Option) *Controller {
	if total < 0 {
		total = 0
	}

	c := &Controller{
		jobDir:     jobDir,
		total:      total,
		clearLines: DefaultClearLines,
		state:      StateUninitialized,
		sink:       NopSink{},
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.WithField("job_dir", jobDir)
	c.store = checkpoint.NewStore(jobDir, c.logger)
	return c
}

// Init loads the checkpoint, works out where the job resumes and starts the
// sink. When the checkpoint already covers every item the controller is
// complete and the sink is never started.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	c.records = records

	if c.incremental {
		c.current = 0
	} else {
		c.current = min(len(records), c.total)
	}

	if c.current == c.total {
		c.state = StateComplete
		c.logger.InfoWithFields("All items already downloaded", logger.JobProgressFields(c.jobDir, c.current, c.total))
		return nil
	}

	if c.current > 0 && !c.incremental {
		c.interrupted = true
		c.logger.InfoWithFields("Resuming interrupted download from checkpoint", logger.JobProgressFields(c.jobDir, c.current, c.total))
	}
	c.state = StateReady

	c.sink.Start(c.total, c.current)
	c.state = StateRunning
	return nil
}

// Update counts one finished item. Successful items are merged into the
// checkpoint by ID and the checkpoint is rewritten before the sink advances.
// Once every item is counted further calls do nothing.
//
// A checkpoint write failure is returned; the item is still counted.
func (c *Controller) Update(rec checkpoint.Record, success bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUninitialized {
		return ErrNotInitialized
	}
	if c.current >= c.total {
		return nil
	}
	c.current++

	if success {
		c.records = checkpoint.Merge(c.records, rec)
		if err := c.store.Persist(c.records); err != nil {
			c.logger.WithError(err).WithField("item", rec.ID).Error("Failed to record progress")
			return err
		}
	} else {
		c.logger.WithField("item", rec.ID).Debug("Item failed, not recorded")
	}

	if c.state == StateRunning {
		c.sink.Update(c.current)
	}

	if c.current >= c.total {
		if c.state == StateRunning {
			c.sink.Stop()
		}
		if f, ok := c.sink.(Finisher); ok {
			f.Finish()
		}
		c.state = StateComplete
		c.logger.InfoWithFields("Download complete", logger.JobProgressFields(c.jobDir, c.current, c.total))
	}
	return nil
}

// Pause stops rendering so other output can be printed cleanly.
// The count is kept.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return
	}
	c.sink.Stop()
	c.state = StatePaused
}

// Continue erases the last rendered lines and restarts the sink at the
// current count.
func (c *Controller) Continue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return
	}
	if lc, ok := c.sink.(LineClearer); ok && c.clearLines > 0 {
		lc.ClearLines(c.clearLines)
	}
	c.sink.Start(c.total, c.current)
	c.state = StateRunning
}

// Close stops a running sink when the caller is done before the job is.
// The count and checkpoint are kept and the controller is left Paused, so a
// later Continue can resume the display.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return
	}
	c.sink.Stop()
	c.state = StatePaused
}

// Current returns how many items have been counted
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Total returns the number of items in the job
func (c *Controller) Total() int {
	return c.total
}

// Interrupted reports whether Init resumed a partially finished run
func (c *Controller) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupted
}

// Incremental reports whether the controller runs in incremental mode
func (c *Controller) Incremental() bool {
	return c.incremental
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Completed reports whether the checkpoint holds a record for id
func (c *Controller) Completed(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// Lookup returns the checkpoint record for id
func (c *Controller) Lookup(id string) (checkpoint.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return checkpoint.Find(c.records, id)
}

// Records returns a copy of the recorded items in checkpoint order
func (c *Controller) Records() []checkpoint.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]checkpoint.Record, len(c.records))
	copy(out, c.records)
	return out
}

// CheckpointPath returns the path of the job's checkpoint file
func (c *Controller) CheckpointPath() string {
	return c.store.Path()
}
