// Package progress draws a single-line stage bar while a coverage run works
// through its pipeline.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Display manages the progress bar.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	started bool
	stopped bool

	total int
	done  int
	stage string

	startTime time.Time
	label     string
	lastLine  string
}

// New creates a display writing to out for a pipeline of total stages.
func New(out io.Writer, total int) *Display {
	if total < 1 {
		total = 1
	}
	return &Display{out: out, total: total}
}

// Start begins the display.
func (d *Display) Start(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}

	d.started = true
	d.startTime = time.Now()
	d.label = label
	d.render()
}

// Stage marks the previous stage finished and shows name as running.
func (d *Display) Stage(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.stopped {
		return
	}
	if d.stage != "" && d.done < d.total {
		d.done++
	}
	d.stage = name
	d.render()
}

// render draws the current line. Callers hold mu.
func (d *Display) render() {
	percent := d.done * 100 / d.total
	filled := d.done * barWidth / d.total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r%s [%s] %3d%% | %-8s | %s",
		d.label, bar, percent, d.stage, formatDuration(time.Since(d.startTime)))

	if len(line) < len(d.lastLine) {
		fmt.Fprint(d.out, "\r"+strings.Repeat(" ", len(d.lastLine)))
	}
	fmt.Fprint(d.out, line)
	d.lastLine = line
}

// Stop completes the bar when ok is set and ends the line.
func (d *Display) Stop(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.started {
		return
	}

	if ok {
		d.done = d.total
		d.stage = "done"
	} else {
		d.stage = "failed"
	}
	d.render()
	d.stopped = true

	fmt.Fprintln(d.out)
}

// Done returns how many stages have finished.
func (d *Display) Done() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
