package tracker

import (
	"io"

	"github.com/pixelrl/pixeldqn/utils/progressbar"
)

// Progress is a Tracker which displays a progress bar over the
// episodes of an experiment instead of logging each episode
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress returns a new Progress tracker for an experiment of
// the given number of episodes, starting after episode start
func NewProgress(out io.Writer, episodes, start int) *Progress {
	bar := progressbar.New(out, 50, episodes)
	bar.Set(start)
	return &Progress{bar}
}

// Track advances the progress bar by one episode
func (p *Progress) Track(Record) {
	p.bar.Increment()
	p.bar.Display()
}

// Save ends the progress bar line
func (p *Progress) Save() error {
	p.bar.Close()
	return nil
}
