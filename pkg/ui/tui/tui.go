package tui

import (
	"io"
	"os"
	"sync"

	"bookdl/pkg/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Sink renders job progress with an inline bubbletea program. Each
// Start runs a fresh program; Stop quits it and waits for the last frame.
type Sink struct {
	mu sync.Mutex

	out   io.Writer
	tty   bool
	label string
	width int

	program *tea.Program
	done    chan struct{}
}

// NewSink creates a sink writing to out; nil means stderr
func NewSink(out io.Writer, label string, width int) *Sink {
	if out == nil {
		out = os.Stderr
	}
	if label == "" {
		label = "Download"
	}

	return &Sink{
		out:   out,
		tty:   ui.IsTerminal(out),
		label: label,
		width: width,
	}
}

// Start launches the program at current out of total
func (s *Sink) Start(total, current int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		s.program.Send(startMsg{Total: total, Current: current})
		return
	}

	model := NewModel(s.label, s.width)
	model.total = total
	model.current = current

	program := tea.NewProgram(model,
		tea.WithOutput(s.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = program.Run()
	}()

	s.program = program
	s.done = done
}

// Update moves the bar to current
func (s *Sink) Update(current int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		s.program.Send(updateMsg{Current: current})
	}
}

// Stop quits the program and waits for it to exit
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program == nil {
		return
	}
	s.program.Send(stopMsg{})
	<-s.done
	s.program = nil
	s.done = nil
}

// Finish prints the blank line that closes a completed bar
func (s *Sink) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.out, "\n")
}

// ClearLines erases the n lines above the cursor when writing to a terminal
func (s *Sink) ClearLines(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tty {
		ui.ClearLines(s.out, n)
	}
}
