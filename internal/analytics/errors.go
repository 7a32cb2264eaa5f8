package analytics

import (
	"errors"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

var (
	// ErrInvalidMeasure is returned for a measure outside median, mean, min, max.
	ErrInvalidMeasure = errors.New("invalid measure")

	// ErrUnknownColumn is returned for grouping, color or filter columns that
	// are not on the prices allow-list.
	ErrUnknownColumn = models.ErrUnknownColumn

	// ErrInvalidGrouping is returned for an empty, oversized or repeating
	// grouping list.
	ErrInvalidGrouping = errors.New("invalid grouping")

	// ErrEmptyResult is returned when the filter matches no observations.
	ErrEmptyResult = errors.New("no matching observations")
)
