package tracker

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func records(n int) []Record {
	r := make([]Record, n)
	for i := range r {
		r[i] = Record{
			Episode:     i + 1,
			TotalReward: float64(i),
			TotalLoss:   0.5,
			Steps:       10,
			MemorySize:  10 * (i + 1),
			Epsilon:     0.9 / float64(i+1),
			Duration:    time.Second,
		}
	}
	return r
}

func TestLoggerPrintsOnInterval(t *testing.T) {
	var out bytes.Buffer
	l := NewLogger(&out, 5, "", false)

	for _, r := range records(12) {
		l.Track(r)
	}

	require.Len(t, l.Records(), 12)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Episode 5")
	require.Contains(t, lines[1], "Episode 10")

	// Saving without a filename does nothing
	require.NoError(t, l.Save())
}

func TestSaveLoadRecords(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "records.gob")
	l := NewLogger(&bytes.Buffer{}, 0, filename, false)
	want := records(7)
	for _, r := range want {
		l.Track(r)
	}
	require.NoError(t, l.Save())

	got, err := LoadRecords(filename)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = LoadRecords(filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	r := records(5)

	all := Summarize(r, 0)
	require.Equal(t, 5, all.Episodes)
	require.InDelta(t, 2.0, all.Mean, 1e-12)
	require.InDelta(t, math.Sqrt(2.5), all.StdDev, 1e-12)
	require.Equal(t, 0.0, all.Min)
	require.Equal(t, 4.0, all.Max)

	last := Summarize(r, 2)
	require.Equal(t, 2, last.Episodes)
	require.InDelta(t, 3.5, last.Mean, 1e-12)

	one := Summarize(r, 1)
	require.Equal(t, 0.0, one.StdDev)

	require.Equal(t, Summary{}, Summarize(nil, 3))
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Report(&out, "moving dot", records(4)))
	require.Contains(t, out.String(), "<html")
	require.Contains(t, out.String(), "moving dot: Return")

	require.Error(t, Report(&out, "empty", nil))
}

func TestLoggerLoad(t *testing.T) {
	var out bytes.Buffer
	l := NewLogger(&out, 1, "", false)
	l.Load(records(3))
	require.Empty(t, out.String())

	l.Track(Record{Episode: 4})
	require.Len(t, l.Records(), 4)
	require.Contains(t, out.String(), "Episode 4")
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 4, 1)
	p.Track(Record{Episode: 2})
	require.Contains(t, out.String(), "50.00%")
	require.NoError(t, p.Save())
}
