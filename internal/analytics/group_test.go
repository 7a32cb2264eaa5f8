package analytics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }
func intp(n int64) *int64   { return &n }

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// priceRow builds a prices row for release id with the given descriptors.
func priceRow(id int64, title, country, artist string, artistID int64, p string, supply int64, at time.Time) models.PriceRow {
	r := models.PriceRow{
		ReleaseID:   id,
		ObservedAt:  at,
		LowestPrice: price(p),
		NumForSale:  intp(supply),
		Title:       title,
		Country:     country,
	}
	if artist != "" {
		r.Artist = strp(artist)
		r.ArtistID = intp(artistID)
	}
	return r
}

func sampleRows() []models.PriceRow {
	return []models.PriceRow{
		priceRow(1, "Kind of Blue", "US", "Miles Davis", 1, "10.00", 5, day0),
		priceRow(1, "Kind of Blue", "US", "Miles Davis", 1, "8.50", 7, day0.Add(10*time.Hour)),
		priceRow(1, "Kind of Blue", "US", "Miles Davis", 1, "9.00", 6, day0.Add(20*time.Hour)),
		priceRow(1, "Kind of Blue", "US", "Miles Davis", 1, "12.00", 4, day0.Add(30*time.Hour)),
		priceRow(4, "Sketches of Spain", "US", "Miles Davis", 1, "20.00", 9, day0),
		priceRow(2, "Blue Train", "", "John Coltrane", 2, "20.00", 2, day0),
		priceRow(3, "Giant Steps", "US", "John Coltrane", 2, "15.00", 3, day0),
	}
}

func TestGroupPricesMeasures(t *testing.T) {
	rows := sampleRows()[:4]

	tests := []struct {
		measure models.Measure
		price   float64
		supply  float64
	}{
		{models.MeasureMedian, 9.5, 5.5},
		{models.MeasureMean, 9.875, 5.5},
		{models.MeasureMin, 8.5, 4},
		{models.MeasureMax, 12, 7},
	}

	for _, tt := range tests {
		t.Run(string(tt.measure), func(t *testing.T) {
			res, err := GroupPrices(rows, []string{"release_id"}, tt.measure, tt.measure)
			require.NoError(t, err)
			require.Len(t, res.Rows, 1)
			require.NotNil(t, res.Rows[0].LowestPrice)
			require.NotNil(t, res.Rows[0].NumForSale)
			assert.InDelta(t, tt.price, *res.Rows[0].LowestPrice, 1e-9)
			assert.InDelta(t, tt.supply, *res.Rows[0].NumForSale, 1e-9)
		})
	}
}

func TestGroupPricesOneRowPerKeyAndDistinctTitles(t *testing.T) {
	res, err := GroupPrices(sampleRows(), []string{"artist", "artist_id"}, models.MeasureMedian, models.MeasureMedian)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, []any{"John Coltrane", int64(2)}, res.Rows[0].Keys)
	assert.Equal(t, 2, res.Rows[0].Count)
	assert.Equal(t, []any{"Miles Davis", int64(1)}, res.Rows[1].Keys)
	assert.Equal(t, 2, res.Rows[1].Count)
	assert.Equal(t, []string{"artist", "artist_id"}, res.CustomData)
}

func TestGroupPricesMissingCountryIsDash(t *testing.T) {
	res, err := GroupPrices(sampleRows(), []string{"country"}, models.MeasureMin, models.MeasureMin)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, []any{"-"}, res.Rows[0].Keys)
	assert.InDelta(t, 20.0, *res.Rows[0].LowestPrice, 1e-9)
	assert.Equal(t, []any{"US"}, res.Rows[1].Keys)
}

func TestGroupPricesNullKeysFormOwnGroup(t *testing.T) {
	rows := []models.PriceRow{
		priceRow(1, "Kind of Blue", "US", "Miles Davis", 1, "10.00", 5, day0),
		priceRow(9, "Untitled", "US", "", 0, "3.00", 1, day0),
	}

	res, err := GroupPrices(rows, []string{"artist_id"}, models.MeasureMax, models.MeasureMax)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{nil}, res.Rows[0].Keys)
	assert.Equal(t, []any{int64(1)}, res.Rows[1].Keys)
}

func TestGroupPricesKeysWithSeparatorsStayDistinct(t *testing.T) {
	a := priceRow(1, "Kind of Blue", "US", "x\x1fstring:y", 1, "10.00", 5, day0)
	a.Label = strp("z")
	b := priceRow(2, "Blue Train", "US", "x", 2, "20.00", 2, day0)
	b.Label = strp("y\x1fstring:z")
	c := priceRow(3, "Giant Steps", "US", "a;b", 3, "30.00", 1, day0)
	c.Label = strp("c")
	d := priceRow(4, "Ascension", "US", "a", 4, "40.00", 1, day0)
	d.Label = strp(`b";c`)

	res, err := GroupPrices([]models.PriceRow{a, b, c, d}, []string{"artist", "label"}, models.MeasureMin, models.MeasureMin)
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)
	for _, row := range res.Rows {
		assert.Equal(t, 1, row.Count)
	}
}

func TestGroupPricesNullPricesSkipped(t *testing.T) {
	rows := sampleRows()[:2]
	rows[0].LowestPrice = decimal.NullDecimal{}
	rows[1].LowestPrice = decimal.NullDecimal{}
	rows[1].NumForSale = nil

	res, err := GroupPrices(rows, []string{"release_id"}, models.MeasureMean, models.MeasureMean)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Nil(t, res.Rows[0].LowestPrice)
	require.NotNil(t, res.Rows[0].NumForSale)
	assert.InDelta(t, 5.0, *res.Rows[0].NumForSale, 1e-9)
}

func TestGroupPricesOrderIndependent(t *testing.T) {
	rows := sampleRows()
	want, err := GroupPrices(rows, []string{"country", "artist"}, models.MeasureMean, models.MeasureMedian)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.PriceRow(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := GroupPrices(shuffled, []string{"country", "artist"}, models.MeasureMean, models.MeasureMedian)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestGroupPricesRejectsBadArguments(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		name      string
		groupings []string
		x, y      models.Measure
		wantErr   error
	}{
		{"bogus x measure", []string{"country"}, "bogus", models.MeasureMedian, ErrInvalidMeasure},
		{"bogus y measure", []string{"country"}, models.MeasureMedian, "avg", ErrInvalidMeasure},
		{"no groupings", nil, models.MeasureMin, models.MeasureMin, ErrInvalidGrouping},
		{"too many groupings", []string{"artist", "title", "release_id", "artist_id", "master_id", "country"}, models.MeasureMin, models.MeasureMin, ErrInvalidGrouping},
		{"repeated grouping", []string{"country", "country"}, models.MeasureMin, models.MeasureMin, ErrInvalidGrouping},
		{"unknown column", []string{"price"}, models.MeasureMin, models.MeasureMin, ErrUnknownColumn},
		{"measured column", []string{"lowest_price"}, models.MeasureMin, models.MeasureMin, ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := GroupPrices(rows, tt.groupings, tt.x, tt.y)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
		})
	}
}

func TestCompareValues(t *testing.T) {
	assert.Negative(t, compareValues(nil, int64(1)))
	assert.Negative(t, compareValues(int64(2), int64(10)))
	assert.Negative(t, compareValues(int64(99), "a"))
	assert.Positive(t, compareValues("b", "a"))
	assert.Zero(t, compareValues("x", "x"))
}
