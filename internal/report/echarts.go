// Package report renders clustering results as charts and tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/wellness.report/internal/cluster"
)

// EchartsAssetsHost serves the echarts JavaScript referenced by rendered
// pages.
var EchartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ElbowChart plots WCSS against the number of clusters and marks the knee
// when one was found.
func ElbowChart(curve cluster.WcssCurve, knee *int) *charts.Line {
	x := make([]string, len(curve))
	y := make([]opts.LineData, len(curve))
	for i, p := range curve {
		x[i] = strconv.Itoa(p.K)
		y[i] = opts.LineData{Value: p.WCSS}
	}

	subtitle := "no clear elbow"
	if knee != nil {
		subtitle = fmt.Sprintf("suggested k=%d", *knee)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Elbow Method", Width: "900px", Height: "500px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Elbow Method for Optimal k", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Number of Clusters", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "WCSS", NameLocation: "middle", NameGap: 45}),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
	}
	if knee != nil {
		for _, p := range curve {
			if p.K == *knee {
				seriesOpts = append(seriesOpts, charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
					Name:       "knee",
					Coordinate: []interface{}{strconv.Itoa(p.K), p.WCSS},
					Value:      "k=" + strconv.Itoa(p.K),
				}))
				break
			}
		}
	}
	line.SetXAxis(x).AddSeries("WCSS", y, seriesOpts...)
	return line
}

// ClusterChart plots each center's beneficiary count, one series per
// cluster.
func ClusterChart(res *cluster.Result) *charts.Scatter {
	counts := make(map[string]int, len(res.Counts))
	names := make([]string, len(res.Counts))
	for i, c := range res.Counts {
		counts[c.EntityID] = c.Count
		names[i] = c.EntityID
	}

	series := make([][]opts.ScatterData, res.ChosenK)
	for _, a := range res.Assignments {
		if a.Label < 0 || a.Label >= len(series) {
			continue
		}
		series[a.Label] = append(series[a.Label], opts.ScatterData{
			Name:  a.EntityID,
			Value: []interface{}{a.EntityID, counts[a.EntityID]},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Center Clusters", Width: "1100px", Height: "600px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Clustering of Wellness Centers Based on Beneficiaries",
			Subtitle: fmt.Sprintf("k=%d (%s) centers=%d", res.ChosenK, res.KSource, len(res.Counts)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			Data:      names,
			Name:      "Wellness Center",
			AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Beneficiary Count", NameLocation: "middle", NameGap: 45}),
	)

	palette := hexColors(res.ChosenK)
	for label, data := range series {
		scatter.AddSeries(fmt.Sprintf("Cluster %d", label), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[label]}),
		)
	}
	return scatter
}

// WriteHTML renders the elbow and cluster charts as one HTML page.
func WriteHTML(w io.Writer, res *cluster.Result) error {
	page := components.NewPage()
	page.SetAssetsHost(EchartsAssetsHost)
	page.SetPageTitle("Wellness Center Clustering")
	page.AddCharts(ElbowChart(res.Curve, res.Knee), ClusterChart(res))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return nil
}
