// Package progress reports import progress to the operator.
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/congregate/internal/logger"
)

// Reporter receives progress callbacks. Fire-and-forget: nothing a
// reporter does affects control flow, and percent may be -1 when the
// source row count is unknown.
type Reporter interface {
	Report(percent int, message string)
}

// barWidth is the character width of the console progress bar.
const barWidth = 40

// ConsoleReporter draws a colorized progress bar on a terminal.
type ConsoleReporter struct {
	out      io.Writer
	lastLine int
}

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Report redraws the bar in place. Messages wider than the previous line
// are padded with runewidth so stale characters never linger.
func (r *ConsoleReporter) Report(percent int, message string) {
	var line string

	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		filled := barWidth * percent / 100
		bar := color.Green.Sprint(strings.Repeat("█", filled)) +
			strings.Repeat("░", barWidth-filled)
		line = fmt.Sprintf("[%s] %3d%% %s", bar, percent, message)
	} else {
		line = message
	}

	width := runewidth.StringWidth(line)
	padding := ""
	if width < r.lastLine {
		padding = strings.Repeat(" ", r.lastLine-width)
	}
	r.lastLine = width

	fmt.Fprintf(r.out, "\r%s%s", line, padding)
}

// Done terminates the in-place line.
func (r *ConsoleReporter) Done() {
	if r.lastLine > 0 {
		fmt.Fprintln(r.out)
		r.lastLine = 0
	}
}

// LogReporter emits progress through the structured logger. Used when
// output is not a terminal.
type LogReporter struct {
	log *logger.Logger
}

// NewLogReporter creates a reporter over the given logger.
func NewLogReporter(log *logger.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Report logs one progress line.
func (r *LogReporter) Report(percent int, message string) {
	if percent >= 0 {
		r.log.Infow("progress", "percent", percent, "message", message)
	} else {
		r.log.Infow("progress", "message", message)
	}
}

// Nop discards all progress reports.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(percent int, message string) {}
