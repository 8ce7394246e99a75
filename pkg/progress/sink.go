package progress

// Sink renders the progress of a job. The controller is its only caller.
type Sink interface {
	Start(total, current int)
	Update(current int)
	Stop()
}

// LineClearer is implemented by sinks that can erase lines they rendered
// earlier, so a restarted bar does not leave a stale copy behind.
type LineClearer interface {
	ClearLines(n int)
}

// Finisher is implemented by sinks that terminate the rendered bar once the
// job completes, typically by printing a trailing newline.
type Finisher interface {
	Finish()
}

// NopSink discards all rendering
type NopSink struct{}

func (NopSink) Start(total, current int) {}
func (NopSink) Update(current int)       {}
func (NopSink) Stop()                    {}
