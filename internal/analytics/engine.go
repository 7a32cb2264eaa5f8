// Package analytics turns marketplace observations into grouped summaries
// and per-release daily time series.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/codyseavey/vinyl-tracker/internal/logging"
	"github.com/codyseavey/vinyl-tracker/internal/metrics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// PriceSource reads rows of the prices view.
type PriceSource interface {
	FetchPrices(ctx context.Context, filter models.Filter) ([]models.PriceRow, error)
}

// Engine validates requests, fetches rows and hands them to GroupPrices or
// BuildTimeseries.
type Engine struct {
	source PriceSource
	log    zerolog.Logger
}

func NewEngine(source PriceSource) *Engine {
	return &Engine{
		source: source,
		log:    logging.Component("analytics"),
	}
}

// AggregateByGroup summarises prices per distinct combination of groupings.
// Arguments are validated before anything is fetched.
func (e *Engine) AggregateByGroup(ctx context.Context, groupings []string, x, y models.Measure, filter models.Filter) (*GroupResult, error) {
	const op = "group"

	if err := validateMeasures(x, y); err != nil {
		return nil, e.fail(op, err)
	}
	if err := ValidateGroupings(groupings); err != nil {
		return nil, e.fail(op, err)
	}

	start := time.Now()
	rows, err := e.fetch(ctx, filter)
	if err != nil {
		return nil, e.fail(op, err)
	}

	result, err := GroupPrices(rows, groupings, x, y)
	if err != nil {
		return nil, e.fail(op, err)
	}

	e.observe(op, start, len(rows), len(result.Rows))
	return result, nil
}

// AggregateTimeseries resamples each matching release onto daily buckets.
func (e *Engine) AggregateTimeseries(ctx context.Context, colorDimension, yVariable string, filter models.Filter) (*TimeseriesResult, error) {
	const op = "timeseries"

	if err := validateTimeseriesArgs(colorDimension, yVariable); err != nil {
		return nil, e.fail(op, err)
	}

	start := time.Now()
	rows, err := e.fetch(ctx, filter)
	if err != nil {
		return nil, e.fail(op, err)
	}

	result, err := BuildTimeseries(rows, colorDimension, yVariable)
	if err != nil {
		return nil, e.fail(op, err)
	}

	e.observe(op, start, len(rows), len(result.Points))
	return result, nil
}

func (e *Engine) fetch(ctx context.Context, filter models.Filter) ([]models.PriceRow, error) {
	normalized, err := filter.Normalize(models.PriceColumns)
	if err != nil {
		return nil, err
	}
	rows, err := e.source.FetchPrices(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}
	return rows, nil
}

func (e *Engine) observe(op string, start time.Time, fetched, produced int) {
	elapsed := time.Since(start)
	metrics.AggregationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	metrics.AggregationRows.WithLabelValues(op).Observe(float64(produced))
	e.log.Debug().
		Str("operation", op).
		Int("rows_fetched", fetched).
		Int("rows_out", produced).
		Dur("took", elapsed).
		Msg("aggregation complete")
}

func (e *Engine) fail(op string, err error) error {
	kind := "store"
	switch {
	case errors.Is(err, ErrEmptyResult):
		kind = "empty"
	case IsInvalidRequest(err):
		kind = "invalid"
	}
	metrics.AggregationErrors.WithLabelValues(op, kind).Inc()
	return err
}

// IsInvalidRequest reports whether err was caused by bad arguments rather
// than by the store.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidMeasure) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrInvalidGrouping) ||
		errors.Is(err, models.ErrInvalidFilter)
}
