package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/database/dbtest"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

func newSeededCatalog(t *testing.T) (*CatalogService, *database.Store) {
	t.Helper()
	store := dbtest.NewStore(t)
	dbtest.Seed(t, store)
	return NewCatalogService(store, 0, 0), store
}

func TestCatalogOptionsSortedByName(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	opts, err := catalog.Options(context.Background(), models.EntityArtist)
	require.NoError(t, err)
	assert.Equal(t, []models.EntityOption{
		{ID: 2, Name: "John Coltrane"},
		{ID: 1, Name: "Miles Davis"},
	}, opts)

	labels, err := catalog.Options(context.Background(), models.EntityLabel)
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, "Atlantic", labels[0].Name)
}

func TestCatalogOptionsCachedUntilInvalidated(t *testing.T) {
	catalog, store := newSeededCatalog(t)
	ctx := context.Background()

	_, err := catalog.Options(ctx, models.EntityArtist)
	require.NoError(t, err)

	_, err = store.InsertIgnore(ctx, &models.Artist{ArtistID: 3, Name: "Bill Evans"})
	require.NoError(t, err)

	cached, err := catalog.Options(ctx, models.EntityArtist)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	catalog.Invalidate()
	fresh, err := catalog.Options(ctx, models.EntityArtist)
	require.NoError(t, err)
	require.Len(t, fresh, 3)
	assert.Equal(t, "Bill Evans", fresh[0].Name)
}

func TestCatalogSearch(t *testing.T) {
	catalog, _ := newSeededCatalog(t)
	ctx := context.Background()

	t.Run("substring", func(t *testing.T) {
		got, err := catalog.Search(ctx, models.EntityArtist, "Coltrane", 10)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, int64(2), got[0].ID)
		assert.GreaterOrEqual(t, got[0].Score, 0.99)
	})

	t.Run("typo", func(t *testing.T) {
		got, err := catalog.Search(ctx, models.EntityArtist, "miles davs", 10)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, "Miles Davis", got[0].Name)
	})

	t.Run("exact match ranks first", func(t *testing.T) {
		got, err := catalog.Search(ctx, models.EntityRelease, "giant steps", 10)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, int64(3), got[0].ID)
		assert.Equal(t, 1.0, got[0].Score)
	})

	t.Run("blank query", func(t *testing.T) {
		got, err := catalog.Search(ctx, models.EntityArtist, "  ", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := catalog.Search(ctx, models.EntityRelease, "blue", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestCatalogCards(t *testing.T) {
	catalog, _ := newSeededCatalog(t)

	cards, err := catalog.Cards(context.Background(), models.EntityArtist, models.Filter{"artist_id": {int64(2)}})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "John Coltrane", cards[0]["name"])

	_, err = catalog.Cards(context.Background(), models.EntityKind("genre"), nil)
	assert.ErrorIs(t, err, database.ErrUnknownTable)

	_, err = catalog.Cards(context.Background(), models.EntityArtist, models.Filter{"bogus": {1}})
	assert.ErrorIs(t, err, models.ErrUnknownColumn)
}

func TestCatalogMissingReleases(t *testing.T) {
	catalog, store := newSeededCatalog(t)
	ctx := context.Background()

	ids, err := catalog.MissingReleases(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = store.InsertObservations(ctx, []models.PriceObservation{
		{ReleaseID: 99, ObservedAt: dbtest.Day0, LowestPrice: dbtest.Price("5.00"), NumForSale: dbtest.Int64(1)},
	})
	require.NoError(t, err)

	ids, err = catalog.MissingReleases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, ids)
}
