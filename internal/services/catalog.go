package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/logging"
	appmetrics "github.com/codyseavey/vinyl-tracker/internal/metrics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

const (
	defaultCatalogCacheSize = 16
	defaultSearchThreshold  = 0.7
	defaultSearchLimit      = 20
)

// cardTables maps a drill-down entity to the table its cards are read from.
var cardTables = map[models.EntityKind]string{
	models.EntityArtist:  database.TableArtists,
	models.EntityLabel:   database.TableLabels,
	models.EntityRelease: database.TableReleases,
}

// CatalogService serves entity lists, fuzzy search and card metadata.
type CatalogService struct {
	store     *database.Store
	cache     *lru.Cache[models.EntityKind, []models.EntityOption]
	threshold float64
	log       zerolog.Logger
}

// NewCatalogService creates a catalog service. Zero values select defaults.
func NewCatalogService(store *database.Store, cacheSize int, threshold float64) *CatalogService {
	if cacheSize <= 0 {
		cacheSize = defaultCatalogCacheSize
	}
	if threshold <= 0 {
		threshold = defaultSearchThreshold
	}

	log := logging.Component("catalog")
	cache, err := lru.New[models.EntityKind, []models.EntityOption](cacheSize)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create option cache, caching disabled")
	}

	return &CatalogService{
		store:     store,
		cache:     cache,
		threshold: threshold,
		log:       log,
	}
}

// Options returns the id/name list for kind sorted by name. Results are
// cached until Invalidate is called.
func (s *CatalogService) Options(ctx context.Context, kind models.EntityKind) ([]models.EntityOption, error) {
	if s.cache != nil {
		if opts, ok := s.cache.Get(kind); ok {
			appmetrics.CatalogCacheHits.Inc()
			return opts, nil
		}
	}
	appmetrics.CatalogCacheMisses.Inc()

	opts, err := s.store.EntityOptions(ctx, kind)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(kind, opts)
	}
	return opts, nil
}

// Invalidate drops cached options after catalog writes.
func (s *CatalogService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Search ranks entity names by Jaro-Winkler similarity to query and returns
// up to limit matches scoring at least the configured threshold. Names that
// contain the query as a substring always match.
func (s *CatalogService) Search(ctx context.Context, kind models.EntityKind, query string, limit int) ([]models.EntityOption, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	opts, err := s.Options(ctx, kind)
	if err != nil {
		return nil, err
	}

	jw := metrics.NewJaroWinkler()
	var matches []models.EntityOption
	for _, opt := range opts {
		name := strings.ToLower(opt.Name)
		score := strutil.Similarity(query, name, jw)
		if strings.Contains(name, query) && score < 1 {
			// substring hits rank just below exact matches
			score = max(score, 0.99)
		}
		if score < s.threshold {
			continue
		}
		opt.Score = score
		matches = append(matches, opt)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Cards returns metadata rows for the entities selected by filter, one card
// per row.
func (s *CatalogService) Cards(ctx context.Context, kind models.EntityKind, filter models.Filter) ([]map[string]any, error) {
	table, ok := cardTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: entity %q", database.ErrUnknownTable, kind)
	}
	return s.store.Fetch(ctx, table, filter)
}

// MissingReleases returns release ids with marketplace observations but no
// release metadata, for the external collector to backfill.
func (s *CatalogService) MissingReleases(ctx context.Context) ([]int64, error) {
	ids, err := s.store.MissingReleaseIDs(ctx)
	if err != nil {
		return nil, err
	}
	appmetrics.MissingReleases.Set(float64(len(ids)))
	if len(ids) > 0 {
		s.log.Info().Int("count", len(ids)).Msg("releases missing metadata")
	}
	return ids, nil
}
