package tracker

import (
	"fmt"
	"io"
	"time"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Logger is a Tracker which caches every episode Record, prints every
// interval episodes to an io.Writer and saves all records to a gob
// file. If filename is empty, Save does nothing.
type Logger struct {
	interval int
	filename string
	out      io.Writer
	colour   aurora.Aurora
	records  []Record
}

// NewLogger returns a new Logger. If interval <= 0, records are never
// printed. Colours are only used if colour is true.
func NewLogger(out io.Writer, interval int, filename string,
	colour bool) *Logger {
	return &Logger{
		interval: interval,
		filename: filename,
		out:      out,
		colour:   aurora.NewAurora(colour),
	}
}

// Track caches the record and prints it if its episode falls on the
// logging interval
func (l *Logger) Track(r Record) {
	l.records = append(l.records, r)
	if l.interval > 0 && r.Episode%l.interval == 0 {
		l.Print(r)
	}
}

// Load adds records from an earlier run of the same experiment
// without printing them
func (l *Logger) Load(records []Record) {
	l.records = append(l.records, records...)
}

// Print writes a single record to the Logger's output
func (l *Logger) Print(r Record) {
	a := l.colour
	fmt.Fprintf(l.out, "%v %v | %v %v | %v %v | %v %v | %v %v | %v %v | %v\n",
		a.Bold("Episode"), a.Cyan(r.Episode),
		"Return", a.Green(fmt.Sprintf("%.2f", r.TotalReward)),
		"Loss", a.Yellow(fmt.Sprintf("%.4f", r.TotalLoss)),
		"Steps", r.Steps,
		"Memory", r.MemorySize,
		"Epsilon", a.Magenta(fmt.Sprintf("%.3f", r.Epsilon)),
		r.Duration.Round(time.Millisecond))
}

// Records returns the records tracked so far
func (l *Logger) Records() []Record {
	return l.records
}

// Save saves all tracked records to disk
func (l *Logger) Save() error {
	if l.filename == "" {
		return nil
	}
	return SaveRecords(l.filename, l.records)
}

// Summary describes the episodic returns over a number of records
type Summary struct {
	Episodes int
	Mean     float64
	StdDev   float64
	Min, Max float64
}

func (s Summary) String() string {
	return fmt.Sprintf("Episodes: %d  |  Return: %.2f ± %.2f  |  "+
		"Min: %.2f  |  Max: %.2f", s.Episodes, s.Mean, s.StdDev, s.Min, s.Max)
}

// Summarize computes the return statistics of the last n records. If
// n <= 0 or n exceeds the number of records, all records are used.
func Summarize(records []Record, n int) Summary {
	if n <= 0 || n > len(records) {
		n = len(records)
	}
	if n == 0 {
		return Summary{}
	}

	returns := make([]float64, n)
	for i, r := range records[len(records)-n:] {
		returns[i] = r.TotalReward
	}

	s := Summary{
		Episodes: n,
		Mean:     stat.Mean(returns, nil),
		Min:      floats.Min(returns),
		Max:      floats.Max(returns),
	}
	if n > 1 {
		s.StdDev = stat.StdDev(returns, nil)
	}
	return s
}
