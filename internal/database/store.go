package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// Table and view names.
const (
	TablePrices        = "prices"
	TableMarketplace   = "marketplace"
	TableReleases      = "releases"
	TableArtists       = "artists"
	TableLabels        = "labels"
	TableArtistRelease = "artist_release"
	TableLabelRelease  = "label_release"
)

// ErrUnknownTable is returned by Fetch for tables outside the schema.
var ErrUnknownTable = errors.New("unknown table")

// tableColumns is the per-table allow-list used to validate filters.
var tableColumns = map[string]models.Columns{
	TablePrices: models.PriceColumns,
	TableMarketplace: {
		"id":                  models.KindInt,
		models.ColReleaseID:   models.KindInt,
		models.ColObservedAt:  models.KindTime,
		models.ColLowestPrice: models.KindDecimal,
		models.ColCurrency:    models.KindText,
		models.ColNumForSale:  models.KindInt,
	},
	TableReleases: {
		models.ColReleaseID: models.KindInt,
		models.ColTitle:     models.KindText,
		models.ColYear:      models.KindInt,
		models.ColCountry:   models.KindText,
		models.ColFormat:    models.KindText,
		models.ColCatNo:     models.KindText,
		models.ColMasterID:  models.KindInt,
	},
	TableArtists: {
		models.ColArtistID: models.KindInt,
		"name":             models.KindText,
	},
	TableLabels: {
		models.ColLabelID: models.KindInt,
		"name":            models.KindText,
	},
	TableArtistRelease: {
		models.ColArtistID:  models.KindInt,
		models.ColReleaseID: models.KindInt,
	},
	TableLabelRelease: {
		models.ColLabelID:   models.KindInt,
		models.ColReleaseID: models.KindInt,
	},
}

var tableOrder = map[string]string{
	TablePrices:        "release_id, observed_at",
	TableMarketplace:   "release_id, observed_at",
	TableReleases:      "release_id",
	TableArtists:       "artist_id",
	TableLabels:        "label_id",
	TableArtistRelease: "release_id, artist_id",
	TableLabelRelease:  "release_id, label_id",
}

// ColumnsFor returns the filter allow-list for a table.
func ColumnsFor(table string) (models.Columns, bool) {
	cols, ok := tableColumns[table]
	return cols, ok
}

// Store is the relational price store.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Fetch returns the rows of table matching filter as column maps.
func (s *Store) Fetch(ctx context.Context, table string, filter models.Filter) ([]map[string]any, error) {
	q, err := s.filtered(ctx, table, filter)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}
	return rows, nil
}

// FetchPrices reads the prices view ordered by release and observation time.
func (s *Store) FetchPrices(ctx context.Context, filter models.Filter) ([]models.PriceRow, error) {
	q, err := s.filtered(ctx, TablePrices, filter)
	if err != nil {
		return nil, err
	}

	var rows []models.PriceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	return rows, nil
}

func (s *Store) filtered(ctx context.Context, table string, filter models.Filter) (*gorm.DB, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	normalized, err := filter.Normalize(cols)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Table(table)
	for _, col := range normalized.Columns() {
		q = q.Where(clause.IN{Column: clause.Column{Name: col}, Values: normalized[col]})
	}
	return q.Order(tableOrder[table]), nil
}

// InsertObservations appends observations. Observations are never updated.
func (s *Store) InsertObservations(ctx context.Context, obs []models.PriceObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).CreateInBatches(obs, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert observations: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// InsertIgnore inserts reference rows, skipping rows whose primary key is
// already present. rows must be a pointer to a model or a non-empty slice.
func (s *Store) InsertIgnore(ctx context.Context, rows any) (int64, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MissingReleaseIDs returns release ids that have observations but no
// release metadata.
func (s *Store) MissingReleaseIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT m.release_id
		FROM marketplace m
		LEFT JOIN releases r ON r.release_id = m.release_id
		WHERE r.release_id IS NULL
		ORDER BY m.release_id`).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find missing releases: %w", err)
	}
	return ids, nil
}

// EntityOptions lists id/name pairs for a catalog entity, sorted by name.
func (s *Store) EntityOptions(ctx context.Context, kind models.EntityKind) ([]models.EntityOption, error) {
	var table, idCol, nameCol string
	switch kind {
	case models.EntityArtist:
		table, idCol, nameCol = TableArtists, "artist_id", "name"
	case models.EntityLabel:
		table, idCol, nameCol = TableLabels, "label_id", "name"
	case models.EntityRelease:
		table, idCol, nameCol = TableReleases, "release_id", "title"
	default:
		return nil, fmt.Errorf("%w: entity %q", ErrUnknownTable, kind)
	}

	var opts []models.EntityOption
	err := s.db.WithContext(ctx).
		Table(table).
		Select(idCol + " AS id, " + nameCol + " AS name").
		Order(nameCol + ", " + idCol).
		Scan(&opts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return opts, nil
}

// CountObservations returns the number of marketplace rows.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.PriceObservation{}).Count(&n).Error
	return n, err
}
