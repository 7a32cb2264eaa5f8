package charts

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

func fp(f float64) *float64 { return &f }

func TestMeasureHoverTemplate(t *testing.T) {
	got := MeasureHoverTemplate(models.MeasureMedian, models.MeasureMax)
	want := "Median Number for Sale: %{x}<br>Max Lowest Price: %{y:$.2f}"
	if got != want {
		t.Errorf("MeasureHoverTemplate() = %q, want %q", got, want)
	}
}

func TestScatter(t *testing.T) {
	result := &analytics.GroupResult{
		Groupings: []string{"country"},
		XMeasure:  models.MeasureMedian,
		YMeasure:  models.MeasureMedian,
		Rows: []analytics.GroupRow{
			{Keys: []any{"-"}, LowestPrice: fp(20), NumForSale: fp(2), Count: 1},
			{Keys: []any{"US"}, LowestPrice: fp(9.5), NumForSale: nil, Count: 4},
		},
		CustomData: []string{"country"},
	}

	fig := Scatter(result, ScatterOptions{Title: "Release Country", LogLog: true, HoverPrefix: "Country: %{customdata[0]}<br>"})
	require.Len(t, fig.Data, 1)
	trace := fig.Data[0]

	assert.Equal(t, []any{2.0, nil}, trace.X)
	assert.Equal(t, []any{20.0, 9.5}, trace.Y)
	assert.Equal(t, [][]any{{"-"}, {"US"}}, trace.CustomData)
	assert.Equal(t, []int{1, 4}, trace.Marker["size"])
	assert.Contains(t, trace.HoverTemplate, "Country: %{customdata[0]}<br>Median Number for Sale")

	xaxis := fig.Layout["xaxis"].(map[string]any)
	assert.Equal(t, "log", xaxis["type"])
	assert.Equal(t, "event+select", fig.Layout["clickmode"])
	assert.Equal(t, "$", fig.Layout["yaxis"].(map[string]any)["tickprefix"])

	_, err := json.Marshal(fig)
	require.NoError(t, err)
}

func TestTimeseriesOneTracePerSeries(t *testing.T) {
	day0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	us := "US"
	points := []analytics.TimeseriesPoint{
		{ReleaseID: 1, Bucket: day0, LowestPrice: fp(8.5), Country: us, CustomData: []any{"a"}},
		{ReleaseID: 1, Bucket: day0.Add(24 * time.Hour), LowestPrice: fp(12), Country: us, CustomData: []any{"b"}},
		{ReleaseID: 2, Bucket: day0, LowestPrice: fp(20), Country: "-", CustomData: []any{"c"}},
		{ReleaseID: 3, Bucket: day0, LowestPrice: fp(15), Country: us, CustomData: []any{"d"}},
	}
	result := &analytics.TimeseriesResult{
		ColorDimension: "country",
		YVariable:      "lowest_price",
		Points:         points,
		CustomData:     analytics.TimeseriesCustomData,
		YAxisMax:       21,
	}

	fig := Timeseries(result)
	require.Len(t, fig.Data, 3)

	assert.Equal(t, "US", fig.Data[0].Name)
	assert.Equal(t, []any{8.5, 12.0}, fig.Data[0].Y)
	assert.True(t, *fig.Data[0].ShowLegend)
	assert.Equal(t, "-", fig.Data[1].Name)
	assert.Equal(t, "US", fig.Data[2].Name)
	assert.False(t, *fig.Data[2].ShowLegend)
	assert.Equal(t, fig.Data[0].Line["color"], fig.Data[2].Line["color"])

	yaxis := fig.Layout["yaxis"].(map[string]any)
	assert.Equal(t, []float64{0, 21}, yaxis["range"])
	assert.Equal(t, "$", yaxis["tickprefix"])
}
