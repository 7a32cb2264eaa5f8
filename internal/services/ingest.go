package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/logging"
	"github.com/codyseavey/vinyl-tracker/internal/metrics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// IngestResult summarises one ingest call.
type IngestResult struct {
	Observations     int64 `json:"observations"`
	Releases         int   `json:"releases"`
	MetadataWarnings int   `json:"metadata_warnings"`
}

func (r *IngestResult) add(o IngestResult) {
	r.Observations += o.Observations
	r.Releases += o.Releases
	r.MetadataWarnings += o.MetadataWarnings
}

// IngestService writes collector output into the price store.
type IngestService struct {
	store   *database.Store
	catalog *CatalogService
	log     zerolog.Logger
}

// NewIngestService creates an ingest service. catalog may be nil; when set
// its option cache is invalidated after metadata writes.
func NewIngestService(store *database.Store, catalog *CatalogService) *IngestService {
	return &IngestService{
		store:   store,
		catalog: catalog,
		log:     logging.Component("ingest"),
	}
}

// StoreObservations appends marketplace observations. Rows without a
// release id or timestamp are rejected.
func (s *IngestService) StoreObservations(ctx context.Context, obs []models.PriceObservation) (int64, error) {
	for i, o := range obs {
		if o.ReleaseID == 0 || o.ObservedAt.IsZero() {
			return 0, fmt.Errorf("observation %d: release_id and observed_at are required", i)
		}
		if o.ID != 0 {
			obs[i].ID = 0
		}
	}

	n, err := s.store.InsertObservations(ctx, obs)
	if err != nil {
		return 0, err
	}
	metrics.ObservationsIngested.Add(float64(n))
	return n, nil
}

type metadataWrite struct {
	table string
	rows  any
	n     int
}

// StoreReleaseMetadata writes the release, its artists and labels and the
// credit links, skipping rows that already exist. Write failures are logged
// and counted but do not fail the call; the returned count is the number of
// failed writes.
func (s *IngestService) StoreReleaseMetadata(ctx context.Context, bundle models.ReleaseBundle) int {
	release := bundle.Release
	artistLinks := bundle.ArtistLinks()
	labelLinks := bundle.LabelLinks()
	writes := []metadataWrite{
		{database.TableReleases, &release, 1},
		{database.TableArtists, &bundle.Artists, len(bundle.Artists)},
		{database.TableLabels, &bundle.Labels, len(bundle.Labels)},
		{database.TableArtistRelease, &artistLinks, len(artistLinks)},
		{database.TableLabelRelease, &labelLinks, len(labelLinks)},
	}

	warnings := 0
	for _, w := range writes {
		if w.n == 0 {
			continue
		}
		if _, err := s.store.InsertIgnore(ctx, w.rows); err != nil {
			warnings++
			metrics.MetadataWriteWarnings.WithLabelValues(w.table).Inc()
			s.log.Warn().Err(err).
				Int64("release_id", release.ReleaseID).
				Str("table", w.table).
				Msg("metadata write failed, skipping")
		}
	}

	if s.catalog != nil {
		s.catalog.Invalidate()
	}
	return warnings
}

// StoreRelease stores a bundle's metadata and/or its observations.
// Observation failures are returned; metadata failures are only counted.
func (s *IngestService) StoreRelease(ctx context.Context, bundle models.ReleaseBundle, storeMetadata, storePrices bool) (IngestResult, error) {
	var res IngestResult

	if storeMetadata {
		res.MetadataWarnings = s.StoreReleaseMetadata(ctx, bundle)
	}

	if storePrices && len(bundle.Observations) > 0 {
		obs := make([]models.PriceObservation, len(bundle.Observations))
		for i, o := range bundle.Observations {
			if o.ReleaseID == 0 {
				o.ReleaseID = bundle.Release.ReleaseID
			}
			obs[i] = o
		}
		n, err := s.StoreObservations(ctx, obs)
		if err != nil {
			return res, fmt.Errorf("release %d: %w", bundle.Release.ReleaseID, err)
		}
		res.Observations = n
	}

	res.Releases = 1
	metrics.ReleasesIngested.Inc()
	return res, nil
}

// StoreBatch stores a collector batch: loose observations first, then each
// release bundle with both metadata and prices.
func (s *IngestService) StoreBatch(ctx context.Context, obs []models.PriceObservation, bundles []models.ReleaseBundle) (IngestResult, error) {
	var total IngestResult

	if len(obs) > 0 {
		n, err := s.StoreObservations(ctx, obs)
		if err != nil {
			return total, err
		}
		total.Observations += n
	}

	for _, b := range bundles {
		res, err := s.StoreRelease(ctx, b, true, true)
		total.add(res)
		if err != nil {
			return total, err
		}
	}

	s.log.Info().
		Int64("observations", total.Observations).
		Int("releases", total.Releases).
		Int("metadata_warnings", total.MetadataWarnings).
		Msg("batch stored")
	return total, nil
}
