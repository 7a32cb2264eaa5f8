package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/database/dbtest"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

func TestFetchPricesOrderedAndJoined(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)

	rows, err := store.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		ordered := prev.ReleaseID < cur.ReleaseID ||
			(prev.ReleaseID == cur.ReleaseID && !cur.ObservedAt.Before(prev.ObservedAt))
		assert.True(t, ordered, "row %d out of order", i)
	}

	first := rows[0]
	assert.Equal(t, "Kind of Blue", first.Title)
	require.NotNil(t, first.Artist)
	assert.Equal(t, "Miles Davis", *first.Artist)
	require.NotNil(t, first.LabelID)
	assert.Equal(t, int64(10), *first.LabelID)
	assert.True(t, first.LowestPrice.Valid)
	assert.Equal(t, "10", first.LowestPrice.Decimal.String())
}

func TestFetchPricesMissingCountryIsDash(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)

	rows, err := store.FetchPrices(context.Background(), models.Filter{"country": {"-"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ReleaseID)
	assert.Equal(t, models.MissingCountry, rows[0].Country)
}

func TestFetchPricesFilter(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   models.Filter
		releases []int64
	}{
		{"by artist id as string", models.Filter{"artist_id": {"2"}}, []int64{2, 3}},
		{"by two countries", models.Filter{"country": {"US", "-"}}, []int64{1, 1, 1, 1, 2, 3}},
		{"conjunction", models.Filter{"artist_id": {2}, "country": {"US"}}, []int64{3}},
		{"no match", models.Filter{"label_id": {999}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := store.FetchPrices(ctx, tt.filter)
			require.NoError(t, err)
			var got []int64
			for _, r := range rows {
				got = append(got, r.ReleaseID)
			}
			assert.Equal(t, tt.releases, got)
		})
	}
}

func TestFetchRejectsUnknownColumnsAndTables(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	_, err := store.Fetch(ctx, "releases", models.Filter{"title; DROP TABLE releases": {"x"}})
	assert.ErrorIs(t, err, models.ErrUnknownColumn)

	_, err = store.Fetch(ctx, "sqlite_master", nil)
	assert.ErrorIs(t, err, database.ErrUnknownTable)
}

func TestFetchGenericRows(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)

	rows, err := store.Fetch(context.Background(), database.TableArtists, models.Filter{"artist_id": {1, 2}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Miles Davis", rows[0]["name"])
	assert.Equal(t, "John Coltrane", rows[1]["name"])
}

func TestInsertIgnoreSkipsDuplicates(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	n, err := store.InsertIgnore(ctx, &models.Artist{ArtistID: 7, Name: "Sonny Rollins"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.InsertIgnore(ctx, &models.Artist{ArtistID: 7, Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	rows, err := store.Fetch(ctx, database.TableArtists, models.Filter{"artist_id": {7}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sonny Rollins", rows[0]["name"])
}

func TestObservationsAreAppendOnly(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	obs := []models.PriceObservation{
		{ReleaseID: 5, ObservedAt: dbtest.Day0, LowestPrice: dbtest.Price("1.00")},
	}
	_, err := store.InsertObservations(ctx, obs)
	require.NoError(t, err)
	_, err = store.InsertObservations(ctx, []models.PriceObservation{
		{ReleaseID: 5, ObservedAt: dbtest.Day0, LowestPrice: dbtest.Price("1.00")},
	})
	require.NoError(t, err)

	n, err := store.CountObservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMissingReleaseIDs(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)
	ctx := context.Background()

	_, err := store.InsertObservations(ctx, []models.PriceObservation{
		{ReleaseID: 42, ObservedAt: dbtest.Day0},
		{ReleaseID: 42, ObservedAt: dbtest.Day0},
		{ReleaseID: 7, ObservedAt: dbtest.Day0},
	})
	require.NoError(t, err)

	ids, err := store.MissingReleaseIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42}, ids)
}

func TestEntityOptionsSortedByName(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)

	opts, err := store.EntityOptions(context.Background(), models.EntityLabel)
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, "Atlantic", opts[0].Name)
	assert.Equal(t, int64(12), opts[0].ID)
	assert.Equal(t, "Columbia", opts[2].Name)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)

	require.NoError(t, database.Migrate(store.DB()))

	rows, err := store.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}
