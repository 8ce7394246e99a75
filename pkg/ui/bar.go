package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

const (
	cursorUp  = "\x1b[1A"
	clearLine = "\x1b[K"
)

// Bar is a single-line progress bar redrawn in place:
//
//	Download [████████░░░░░░░░] 50% | 5/10
//
// Bars written to something other than a terminal render nothing unless
// WithForceRender is set, and never emit cursor control sequences.
type Bar struct {
	mu sync.Mutex

	out      io.Writer
	tty      bool
	force    bool
	label    string
	progress progress.Model

	total   int
	current int
	active  bool
}

// BarOption configures a Bar
type BarOption func(*Bar)

// WithWidth sets the width of the bar glyphs
func WithWidth(width int) BarOption {
	return func(b *Bar) {
		if width > 0 {
			b.progress.Width = width
		}
	}
}

// WithLabel sets the text printed before the bar
func WithLabel(label string) BarOption {
	return func(b *Bar) {
		b.label = label
	}
}

// WithForceRender renders the bar even when out is not a terminal
func WithForceRender(force bool) BarOption {
	return func(b *Bar) {
		b.force = force
	}
}

// NewBar creates a bar writing to out; nil means stderr
func NewBar(out io.Writer, opts ...BarOption) *Bar {
	if out == nil {
		out = os.Stderr
	}

	b := &Bar{
		out:   out,
		tty:   IsTerminal(out),
		label: "Download",
		progress: progress.New(
			progress.WithSolidFill("#39FF14"),
			progress.WithoutPercentage(),
			progress.WithWidth(40),
		),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsTerminal reports whether w is a terminal that accepts cursor control
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Start begins rendering at current out of total
func (b *Bar) Start(total, current int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = total
	b.current = current
	b.active = true
	b.render()
}

// Update redraws the bar at current
func (b *Bar) Update(current int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = current
	if b.active {
		b.render()
	}
}

// Stop draws the final state and moves to a new line
func (b *Bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return
	}
	b.render()
	b.write("\n")
	b.active = false
}

// Finish prints the blank line that closes a completed bar
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write("\n")
}

// ClearLines erases the n lines above the cursor. It does nothing when the
// output is not a terminal.
func (b *Bar) ClearLines(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.tty {
		return
	}
	ClearLines(b.out, n)
}

// ClearLines moves the cursor up n lines on w, erasing each one
func ClearLines(w io.Writer, n int) {
	if n <= 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("\r")
	for i := 0; i < n; i++ {
		sb.WriteString(cursorUp)
		sb.WriteString(clearLine)
	}
	fmt.Fprint(w, sb.String())
}

// String returns the current bar line without cursor control
func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.line()
}

func (b *Bar) line() string {
	return fmt.Sprintf("%s %s %d%% | %d/%d",
		b.label,
		b.progress.ViewAs(Ratio(b.current, b.total)),
		Percent(b.current, b.total),
		b.current,
		b.total,
	)
}

func (b *Bar) render() {
	if !b.tty && !b.force {
		return
	}
	suffix := ""
	if b.tty {
		suffix = clearLine
	}
	fmt.Fprintf(b.out, "\r%s%s", b.line(), suffix)
}

func (b *Bar) write(s string) {
	if !b.tty && !b.force {
		return
	}
	fmt.Fprint(b.out, s)
}

// Ratio returns current/total clamped to [0, 1]. An empty job is complete.
func Ratio(current, total int) float64 {
	if total <= 0 {
		return 1
	}
	r := float64(current) / float64(total)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// Percent returns the whole-number percentage shown next to the bar
func Percent(current, total int) int {
	if total <= 0 {
		return 100
	}
	current = max(0, min(current, total))
	return current * 100 / total
}
