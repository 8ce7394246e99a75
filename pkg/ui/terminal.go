package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color functions for terminal output
var (
	Cyan    = colorize("6")
	Yellow  = colorize("3")
	Red     = colorize("1")
	Green   = colorize("2")
	Magenta = colorize("5")
	Dim     = func(text string) string { return lipgloss.NewStyle().Faint(true).Render(text) }
)

var (
	outMu     sync.Mutex
	out       io.Writer = os.Stdout
	quietMode bool
)

// colorize returns a function that renders text in an ANSI colour
func colorize(color string) func(string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	return func(text string) string {
		return style.Render(text)
	}
}

// SetOutput redirects the Print helpers
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

// SetQuietMode suppresses everything but errors
func SetQuietMode(quiet bool) {
	outMu.Lock()
	defer outMu.Unlock()
	quietMode = quiet
}

// DisableColor strips colours from every helper and bar in the process
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func emit(always bool, text string) {
	outMu.Lock()
	defer outMu.Unlock()
	if quietMode && !always {
		return
	}
	fmt.Fprintln(out, text)
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	emit(true, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(false, Green(msg))
}

// PrintInfo prints a labelled value
func PrintInfo(label string, value string) {
	emit(false, fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	emit(false, Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(false, Magenta(msg))
}
