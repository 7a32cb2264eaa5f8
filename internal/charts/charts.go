// Package charts builds Plotly figure JSON from aggregation results.
package charts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// Figure is a Plotly figure: traces plus layout.
type Figure struct {
	Data   []Trace        `json:"data"`
	Layout map[string]any `json:"layout"`
}

// Trace is a scatter trace. Lines and markers are both scatter traces in
// Plotly.
type Trace struct {
	Type          string         `json:"type"`
	Mode          string         `json:"mode"`
	Name          string         `json:"name,omitempty"`
	LegendGroup   string         `json:"legendgroup,omitempty"`
	ShowLegend    *bool          `json:"showlegend,omitempty"`
	X             []any          `json:"x"`
	Y             []any          `json:"y"`
	CustomData    [][]any        `json:"customdata"`
	HoverTemplate string         `json:"hovertemplate"`
	Marker        map[string]any `json:"marker,omitempty"`
	Line          map[string]any `json:"line,omitempty"`
}

// LayoutStyle is applied to every figure.
func LayoutStyle() map[string]any {
	return map[string]any{
		"margin": map[string]any{"l": 10, "r": 10, "t": 10, "b": 10},
		"legend": map[string]any{
			"yanchor": "bottom", "xanchor": "left",
			"x": 0.01, "y": 0.01,
			"font": map[string]any{"color": "black"},
		},
		"paper_bgcolor": "rgba(255,255,255,.5)",
		"plot_bgcolor":  "rgba(255,255,255,.5)",
		"font":          map[string]any{"color": "black", "size": 18},
		"xaxis":         axisStyle(),
		"yaxis":         axisStyle(),
		"clickmode":     "event+select",
		"dragmode":      "select",
	}
}

func axisStyle() map[string]any {
	return map[string]any{
		"tickfont":  map[string]any{"size": 12, "color": "black"},
		"zeroline":  false,
		"gridcolor": "#fff",
	}
}

func applyMoneyFormat(layout map[string]any) {
	yaxis := layout["yaxis"].(map[string]any)
	yaxis["tickprefix"] = "$"
	yaxis["tickformat"] = ",.2f"
}

var palette = []string{
	"#636efa", "#EF553B", "#00cc96", "#ab63fa", "#FFA15A",
	"#19d3f3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// MeasureHoverTemplate formats the measure lines of a scatter hover label.
func MeasureHoverTemplate(x, y models.Measure) string {
	return fmt.Sprintf("%s Number for Sale: %%{x}<br>%s Lowest Price: %%{y:$.2f}", titleCase(string(x)), titleCase(string(y)))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ScatterOptions controls Scatter rendering.
type ScatterOptions struct {
	Title string
	// LogLog puts both axes on a log scale.
	LogLog bool
	// HoverPrefix is prepended to the measure lines.
	HoverPrefix string
}

// maxMarkerSize is the diameter in pixels of the largest group's marker.
const maxMarkerSize = 40

// Scatter plots one marker per group at (num_for_sale, lowest_price), sized
// and colored by the group's distinct title count.
func Scatter(result *analytics.GroupResult, opts ScatterOptions) Figure {
	n := len(result.Rows)
	trace := Trace{
		Type:          "scatter",
		Mode:          "markers",
		X:             make([]any, 0, n),
		Y:             make([]any, 0, n),
		CustomData:    make([][]any, 0, n),
		HoverTemplate: opts.HoverPrefix + MeasureHoverTemplate(result.XMeasure, result.YMeasure),
	}

	sizes := make([]int, 0, n)
	maxCount := 1
	for _, row := range result.Rows {
		trace.X = append(trace.X, floatOrNil(row.NumForSale))
		trace.Y = append(trace.Y, floatOrNil(row.LowestPrice))
		trace.CustomData = append(trace.CustomData, row.Keys)
		sizes = append(sizes, row.Count)
		if row.Count > maxCount {
			maxCount = row.Count
		}
	}

	trace.Marker = map[string]any{
		"size":       sizes,
		"sizemode":   "area",
		"sizeref":    2.0 * float64(maxCount) / math.Pow(maxMarkerSize, 2),
		"sizemin":    2,
		"color":      sizes,
		"colorscale": "Plasma",
		"showscale":  true,
		"colorbar":   map[string]any{"title": map[string]any{"text": "Unique Titles"}},
	}

	layout := LayoutStyle()
	applyMoneyFormat(layout)
	xaxis := layout["xaxis"].(map[string]any)
	yaxis := layout["yaxis"].(map[string]any)
	xaxis["title"] = map[string]any{"text": "Number for Sale"}
	yaxis["title"] = map[string]any{"text": "Lowest Price"}
	if opts.LogLog {
		xaxis["type"] = "log"
		yaxis["type"] = "log"
	}
	if opts.Title != "" {
		layout["title"] = map[string]any{"text": opts.Title}
	}

	return Figure{Data: []Trace{trace}, Layout: layout}
}

// TimeseriesHoverTemplate reads every value from customdata in
// analytics.TimeseriesCustomData order.
const TimeseriesHoverTemplate = "<b>Title</b>: %{customdata[1]} (%{customdata[0]})<br>" +
	"<b>Artist</b>: %{customdata[2]}<br>" +
	"<b>Label</b>: %{customdata[8]} (%{customdata[10]} %{customdata[5]})<br>" +
	"Date: %{x|%d %b %Y}<br>" +
	"Lowest Price: %{customdata[4]:$.2f}<br>" +
	"Number for Sale: %{customdata[3]}" +
	"<extra></extra>"

var axisLabels = map[string]string{
	models.ColLowestPrice: "Lowest Price",
	models.ColNumForSale:  "Number For Sale",
	models.ColCountry:     "Country",
	models.ColLabel:       "Record Label",
	models.ColTitle:       "Album Title",
	models.ColArtist:      "Artist",
	models.ColCatNo:       "Catalog Number",
}

// Timeseries draws one line per release and color value. Lines sharing a
// color value share a legend entry.
func Timeseries(result *analytics.TimeseriesResult) Figure {
	type seriesKey struct {
		color   string
		release int64
		series  int
	}

	var (
		traces     []Trace
		index      = make(map[seriesKey]int)
		colorIndex = make(map[string]int)
		series     int
	)
	for i, p := range result.Points {
		color := colorLabel(p.Value(result.ColorDimension))
		// a new series starts when the release changes or its buckets restart
		if i > 0 && (p.ReleaseID != result.Points[i-1].ReleaseID || !p.Bucket.After(result.Points[i-1].Bucket)) {
			series++
		}
		key := seriesKey{color: color, release: p.ReleaseID, series: series}

		ti, ok := index[key]
		if !ok {
			ci, seen := colorIndex[color]
			if !seen {
				ci = len(colorIndex)
				colorIndex[color] = ci
			}
			show := !seen
			traces = append(traces, Trace{
				Type:          "scatter",
				Mode:          "lines+markers",
				Name:          color,
				LegendGroup:   color,
				ShowLegend:    &show,
				HoverTemplate: TimeseriesHoverTemplate,
				Line:          map[string]any{"color": palette[ci%len(palette)]},
				Marker:        map[string]any{"color": palette[ci%len(palette)]},
			})
			ti = len(traces) - 1
			index[key] = ti
		}

		t := &traces[ti]
		t.X = append(t.X, p.Bucket.UTC().Format(time.RFC3339))
		t.Y = append(t.Y, p.Value(result.YVariable))
		t.CustomData = append(t.CustomData, p.CustomData)
	}

	layout := LayoutStyle()
	xaxis := layout["xaxis"].(map[string]any)
	yaxis := layout["yaxis"].(map[string]any)
	xaxis["title"] = map[string]any{"text": "Date Time"}
	yaxis["title"] = map[string]any{"text": axisLabels[result.YVariable]}
	yaxis["range"] = []float64{0, result.YAxisMax}
	if result.YVariable == models.ColLowestPrice {
		applyMoneyFormat(layout)
	}
	if label, ok := axisLabels[result.ColorDimension]; ok {
		layout["legend"].(map[string]any)["title"] = map[string]any{"text": label}
	}

	return Figure{Data: traces, Layout: layout}
}

func colorLabel(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
