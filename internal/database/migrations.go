package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-tracker/internal/logging"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// pricesViewSQL joins every observation with its release descriptors and all
// artist and label credits. Releases without credits keep null artist and
// label columns; an empty country reads as "-".
const pricesViewSQL = `
CREATE VIEW prices AS
SELECT
	m.release_id   AS release_id,
	m.observed_at  AS observed_at,
	m.lowest_price AS lowest_price,
	m.currency     AS currency,
	m.num_for_sale AS num_for_sale,
	r.title        AS title,
	r.year         AS year,
	COALESCE(NULLIF(r.country, ''), '-') AS country,
	r.format       AS format,
	r.catno        AS catno,
	r.master_id    AS master_id,
	a.name         AS artist,
	ar.artist_id   AS artist_id,
	l.name         AS label,
	lr.label_id    AS label_id
FROM marketplace m
JOIN releases r ON r.release_id = m.release_id
LEFT JOIN artist_release ar ON ar.release_id = m.release_id
LEFT JOIN artists a ON a.artist_id = ar.artist_id
LEFT JOIN label_release lr ON lr.release_id = m.release_id
LEFT JOIN labels l ON l.label_id = lr.label_id`

// Migrate brings the schema up to date: legacy column renames, table
// migration and the prices view. The view is dropped first so table
// alterations are not blocked by it.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("DROP VIEW IF EXISTS prices").Error; err != nil {
		return fmt.Errorf("failed to drop prices view: %w", err)
	}

	if err := renameLegacyColumns(db); err != nil {
		return err
	}

	err := db.AutoMigrate(
		&models.Release{},
		&models.Artist{},
		&models.Label{},
		&models.ArtistRelease{},
		&models.LabelRelease{},
		&models.PriceObservation{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	logging.Info().Msg("Database migration completed")

	return RunMigrations(db)
}

// RunMigrations runs data migrations after schema changes and recreates the
// prices view.
func RunMigrations(db *gorm.DB) error {
	normalizeNullText(db)

	if err := db.Exec(pricesViewSQL).Error; err != nil {
		return fmt.Errorf("failed to create prices view: %w", err)
	}
	return nil
}

// renameLegacyColumns renames columns from the older collector schema,
// which used the reserved word "when" and a long catalog number name.
func renameLegacyColumns(db *gorm.DB) error {
	renames := []struct {
		table, from, to string
	}{
		{"marketplace", "when", "observed_at"},
		{"releases", "catalog_number", "catno"},
	}

	m := db.Migrator()
	for _, r := range renames {
		if !m.HasTable(r.table) || !m.HasColumn(r.table, r.from) || m.HasColumn(r.table, r.to) {
			continue
		}
		if err := m.RenameColumn(r.table, r.from, r.to); err != nil {
			return fmt.Errorf("failed to rename %s.%s: %w", r.table, r.from, err)
		}
		logging.Info().Str("table", r.table).Str("from", r.from).Str("to", r.to).Msg("Renamed legacy column")
	}
	return nil
}

// normalizeNullText replaces NULLs left by older collectors in text columns
// that are now NOT NULL.
func normalizeNullText(db *gorm.DB) {
	updates := []string{
		`UPDATE marketplace SET currency = '' WHERE currency IS NULL`,
		`UPDATE releases SET country = '' WHERE country IS NULL`,
		`UPDATE releases SET catno = '' WHERE catno IS NULL`,
	}
	for _, stmt := range updates {
		result := db.Exec(stmt)
		if result.Error != nil {
			logging.Warn().Err(result.Error).Str("stmt", stmt).Msg("failed to normalize null values")
			continue
		}
		if result.RowsAffected > 0 {
			logging.Info().Int64("rows", result.RowsAffected).Str("stmt", stmt).Msg("Normalized null values")
		}
	}
}
