package tracker

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Report renders an HTML page to w with line charts of the episodic
// return, the total episode loss and the exploration rate over the
// records.
func Report(w io.Writer, title string, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("report: no records to plot")
	}

	episodes := make([]string, len(records))
	for i, r := range records {
		episodes[i] = fmt.Sprintf("%d", r.Episode)
	}

	returns := newLine(title+": Return", episodes, "Return", records,
		func(r Record) float64 { return r.TotalReward })
	losses := newLine(title+": Loss", episodes, "Loss", records,
		func(r Record) float64 { return r.TotalLoss })
	epsilon := newLine(title+": Epsilon", episodes, "Epsilon", records,
		func(r Record) float64 { return r.Epsilon })

	page := components.NewPage()
	page.AddCharts(returns, losses, epsilon)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("report: could not render: %v", err)
	}
	return nil
}

func newLine(title string, xAxis []string, name string, records []Record,
	field func(Record) float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	items := make([]opts.LineData, 0, len(records))
	for _, r := range records {
		items = append(items, opts.LineData{Value: field(r)})
	}

	line.SetXAxis(xAxis).AddSeries(name, items)
	return line
}
