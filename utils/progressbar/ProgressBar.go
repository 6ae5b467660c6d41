// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar implements progress bar functionality that must be
// manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed.
//
// ProgressBar does not use concurrency.
type ProgressBar struct {
	out             io.Writer
	width           int
	maxProgress     int
	currentProgress int
	startTime       time.Time
}

// New returns a new ProgressBar that is width characters wide,
// reaches 100% after max Increment() calls and is displayed on out
func New(out io.Writer, width, max int) *ProgressBar {
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		out:         out,
		width:       width,
		maxProgress: max,
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// Set sets the progress counter, used when resuming
func (p *ProgressBar) Set(progress int) {
	switch {
	case progress < 0:
		p.currentProgress = 0
	case progress > p.maxProgress:
		p.currentProgress = p.maxProgress
	default:
		p.currentProgress = progress
	}
}

// Progress returns the fraction of the bar that is filled
func (p *ProgressBar) Progress() float64 {
	return float64(p.currentProgress) / float64(p.maxProgress)
}

func (p *ProgressBar) String() string {
	var bar strings.Builder
	bar.WriteString("|")

	filled := p.currentProgress * p.width / p.maxProgress
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))

	bar.WriteString(fmt.Sprintf("| [%.2f%% | elapsed: %v]",
		p.Progress()*100, time.Since(p.startTime).Truncate(time.Second)))
	return bar.String()
}

// Display overwrites the current terminal line with the progress bar
func (p *ProgressBar) Display() {
	fmt.Fprintf(p.out, "\r\033[K%v", p)
}

// Close ends the line the progress bar is displayed on
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}
