// Package export renders allocation results as JSON, CSV or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/offload/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes one row per device class in model order followed by a
// total row.
func WriteCSV(w io.Writer, res model.AllocationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"device_class", "score", "capacity_kw", "alloc_kw"}); err != nil {
		return err
	}
	var totalCap float64
	for _, c := range model.Classes {
		totalCap += res.CapacitiesKW[c]
		rec := []string{
			c.String(),
			formatFloat(res.Scores[c]),
			formatFloat(res.CapacitiesKW[c]),
			formatFloat(res.AllocKW[c]),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"total", "", formatFloat(totalCap), formatFloat(res.AllocTotalKW)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ChartHTML renders capacity against allocation per class in display order
// as a standalone HTML page.
func ChartHTML(w io.Writer, res model.AllocationResult, title string) error {
	if title == "" {
		title = "Offload allocation"
	}
	labels := make([]string, 0, model.NumClasses)
	capacity := make([]opts.BarData, 0, model.NumClasses)
	alloc := make([]opts.BarData, 0, model.NumClasses)
	for _, c := range model.DisplayOrder {
		labels = append(labels, c.Label())
		capacity = append(capacity, opts.BarData{Value: round4(res.CapacitiesKW[c])})
		alloc = append(alloc, opts.BarData{Value: round4(res.AllocKW[c])})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "budget " + formatFloat(round4(res.BudgetKW)) + " kW, unmet " + formatFloat(round4(res.UnmetKW)) + " kW",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kW"}),
	)
	bar.SetXAxis(labels).
		AddSeries("capacity_kw", capacity).
		AddSeries("alloc_kw", alloc)
	return bar.Render(w)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
