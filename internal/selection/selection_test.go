package selection

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

func clicks(counts ...int) []*int {
	out := make([]*int, len(counts))
	for i := range counts {
		if counts[i] < 0 {
			continue // nil: never clicked
		}
		out[i] = &counts[i]
	}
	return out
}

func TestResolveActiveSelectionsParityToggle(t *testing.T) {
	entities := []CardEntity{{Field: "artist_id", Value: "42"}}

	tests := []struct {
		count  int
		active bool
	}{
		{0, false},
		{1, true},
		{2, false},
		{3, true},
	}

	for _, tt := range tests {
		got, ok := ResolveActiveSelections(entities, clicks(tt.count))
		assert.Equal(t, tt.active, ok, "count %d", tt.count)
		if tt.active {
			assert.Equal(t, models.Filter{"artist_id": {"42"}}, got)
		} else {
			assert.Nil(t, got)
		}
	}
}

func TestResolveActiveSelectionsGroupsByField(t *testing.T) {
	entities := []CardEntity{
		{Field: "artist_id", Value: float64(1)},
		{Field: "label_id", Value: float64(10)},
		{Field: "artist_id", Value: float64(2)},
		{Field: "artist_id", Value: float64(3)},
		{Field: "release_id", Value: float64(7)},
	}

	got, ok := ResolveActiveSelections(entities, clicks(1, 3, 5, 2, -1))
	require.True(t, ok)
	assert.Equal(t, models.Filter{
		"artist_id": {int64(1), int64(2)},
		"label_id":  {int64(10)},
	}, got)
}

func TestResolveActiveSelectionsDistinctValues(t *testing.T) {
	entities := []CardEntity{
		{Field: "artist_id", Value: "42"},
		{Field: "artist_id", Value: "42"},
	}

	got, ok := ResolveActiveSelections(entities, clicks(1, 1))
	require.True(t, ok)
	assert.Equal(t, models.Filter{"artist_id": {"42"}}, got)
}

func TestResolveActiveSelectionsShorterListGoverns(t *testing.T) {
	entities := []CardEntity{
		{Field: "artist_id", Value: "1"},
		{Field: "artist_id", Value: "2"},
	}

	got, ok := ResolveActiveSelections(entities, clicks(1))
	require.True(t, ok)
	assert.Equal(t, models.Filter{"artist_id": {"1"}}, got)

	got, ok = ResolveActiveSelections(entities[:1], clicks(2, 1, 1))
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestResolveActiveSelectionsNoClicks(t *testing.T) {
	_, ok := ResolveActiveSelections(nil, nil)
	assert.False(t, ok)

	_, ok = ResolveActiveSelections([]CardEntity{{Field: "label_id", Value: 1}}, clicks(-1))
	assert.False(t, ok)
}

func TestResolveActiveSelectionsIdempotent(t *testing.T) {
	entities := []CardEntity{{Field: "artist_id", Value: "1"}, {Field: "label_id", Value: "2"}}
	c := clicks(1, 1)

	first, _ := ResolveActiveSelections(entities, c)
	second, _ := ResolveActiveSelections(entities, c)
	assert.Equal(t, first, second)
}

func TestExtractSelected(t *testing.T) {
	order := []string{"artist", "title", "release_id", "artist_id", "master_id"}
	event := SelectionEvent{Points: []SelectedPoint{
		{CustomData: []any{"Miles Davis", "Kind of Blue", float64(1), float64(23755), nil}},
		{CustomData: []any{"John Coltrane", "Blue Train", float64(2), float64(97545), nil}},
		{CustomData: []any{"Miles Davis", "Sketches of Spain", float64(4), float64(23755), nil}},
	}}

	got, err := ExtractSelected("artist_id", event, order)
	require.NoError(t, err)
	assert.Equal(t, models.Filter{"artist_id": {int64(23755), int64(97545)}}, got)

	got, err = ExtractSelected("master_id", event, order)
	require.NoError(t, err)
	assert.Equal(t, models.Filter{"master_id": {nil}}, got)
}

func TestExtractSelectedDuplicatePointsCollapse(t *testing.T) {
	event := SelectionEvent{Points: []SelectedPoint{
		{CustomData: []any{float64(42)}},
		{CustomData: []any{float64(42)}},
	}}

	got, err := ExtractSelected("artist_id", event, []string{"artist_id"})
	require.NoError(t, err)
	assert.Equal(t, models.Filter{"artist_id": {int64(42)}}, got)
}

func TestExtractSelectedErrors(t *testing.T) {
	order := []string{"artist", "artist_id"}
	point := SelectedPoint{CustomData: []any{"Miles Davis", float64(1)}}

	_, err := ExtractSelected("label_id", SelectionEvent{Points: []SelectedPoint{point}}, order)
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = ExtractSelected("artist_id", SelectionEvent{}, order)
	assert.ErrorIs(t, err, ErrEmptySelection)

	short := SelectedPoint{CustomData: []any{"Miles Davis"}}
	_, err = ExtractSelected("artist_id", SelectionEvent{Points: []SelectedPoint{point, short}}, order)
	assert.ErrorIs(t, err, ErrMalformedPoint)
}

func TestSelectionEventDecodesPlotlyPayload(t *testing.T) {
	payload := `{"points":[{"curveNumber":0,"pointIndex":3,"customdata":["US"]}]}`

	var event SelectionEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	got, err := ExtractSelected("country", event, []string{"country"})
	require.NoError(t, err)
	assert.Equal(t, models.Filter{"country": {"US"}}, got)
}
