// Package dbtest opens migrated sqlite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// NewStore opens a migrated sqlite store in a temp directory.
func NewStore(t testing.TB) *database.Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "vinyl.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store := database.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Day0 is the first observation day of the seeded data.
var Day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// Price builds a non-null decimal price.
func Price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// Int64 returns a pointer to n.
func Int64(n int64) *int64 { return &n }

// Bundles returns the seeded catalog:
//
//	release 1 "Kind of Blue"  US  Miles Davis (1)    Columbia (10)
//	release 2 "Blue Train"    ""  John Coltrane (2)  Blue Note (11)
//	release 3 "Giant Steps"   US  John Coltrane (2)  Atlantic (12)
func Bundles() []models.ReleaseBundle {
	return []models.ReleaseBundle{
		{
			Release: models.Release{ReleaseID: 1, Title: "Kind of Blue", Year: 1959, Country: "US", Format: "Vinyl", CatNo: "CL 1355", MasterID: Int64(100)},
			Artists: []models.Artist{{ArtistID: 1, Name: "Miles Davis"}},
			Labels:  []models.Label{{LabelID: 10, Name: "Columbia"}},
		},
		{
			Release: models.Release{ReleaseID: 2, Title: "Blue Train", Year: 1957, Country: "", Format: "Vinyl", CatNo: "BLP 1577"},
			Artists: []models.Artist{{ArtistID: 2, Name: "John Coltrane"}},
			Labels:  []models.Label{{LabelID: 11, Name: "Blue Note"}},
		},
		{
			Release: models.Release{ReleaseID: 3, Title: "Giant Steps", Year: 1960, Country: "US", Format: "Vinyl", CatNo: "SD 1311", MasterID: Int64(300)},
			Artists: []models.Artist{{ArtistID: 2, Name: "John Coltrane"}},
			Labels:  []models.Label{{LabelID: 12, Name: "Atlantic"}},
		},
	}
}

// Observations returns the seeded marketplace rows. Release 1 has three
// observations on Day0 (10:00 at 0h, 8.50 at 10h, 9.00 at 20h) and one the
// next day; releases 2 and 3 have one each.
func Observations() []models.PriceObservation {
	return []models.PriceObservation{
		{ReleaseID: 1, ObservedAt: Day0, LowestPrice: Price("10.00"), Currency: "USD", NumForSale: Int64(5)},
		{ReleaseID: 1, ObservedAt: Day0.Add(10 * time.Hour), LowestPrice: Price("8.50"), Currency: "USD", NumForSale: Int64(7)},
		{ReleaseID: 1, ObservedAt: Day0.Add(20 * time.Hour), LowestPrice: Price("9.00"), Currency: "USD", NumForSale: Int64(6)},
		{ReleaseID: 1, ObservedAt: Day0.Add(30 * time.Hour), LowestPrice: Price("12.00"), Currency: "USD", NumForSale: Int64(4)},
		{ReleaseID: 2, ObservedAt: Day0.Add(2 * time.Hour), LowestPrice: Price("20.00"), Currency: "USD", NumForSale: Int64(2)},
		{ReleaseID: 3, ObservedAt: Day0.Add(3 * time.Hour), LowestPrice: Price("15.00"), Currency: "USD", NumForSale: Int64(3)},
	}
}

// Seed writes Bundles and Observations directly through the store.
func Seed(t testing.TB, store *database.Store) {
	t.Helper()
	ctx := context.Background()

	for _, b := range Bundles() {
		release := b.Release
		_, err := store.InsertIgnore(ctx, &release)
		require.NoError(t, err)

		artists := b.Artists
		_, err = store.InsertIgnore(ctx, &artists)
		require.NoError(t, err)
		labels := b.Labels
		_, err = store.InsertIgnore(ctx, &labels)
		require.NoError(t, err)

		artistLinks := b.ArtistLinks()
		_, err = store.InsertIgnore(ctx, &artistLinks)
		require.NoError(t, err)
		labelLinks := b.LabelLinks()
		_, err = store.InsertIgnore(ctx, &labelLinks)
		require.NoError(t, err)
	}

	_, err := store.InsertObservations(ctx, Observations())
	require.NoError(t, err)
}
