package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

var two = decimal.NewFromInt(2)

func validateMeasures(measures ...models.Measure) error {
	for _, m := range measures {
		if !m.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidMeasure, m)
		}
	}
	return nil
}

// applyMeasure reduces vals with m. ok is false when vals is empty.
// Sums are exact, so the result does not depend on the order of vals.
func applyMeasure(m models.Measure, vals []decimal.Decimal) (decimal.Decimal, bool) {
	if len(vals) == 0 {
		return decimal.Zero, false
	}
	switch m {
	case models.MeasureMin:
		return decimal.Min(vals[0], vals[1:]...), true
	case models.MeasureMax:
		return decimal.Max(vals[0], vals[1:]...), true
	case models.MeasureMean:
		return decimal.Sum(vals[0], vals[1:]...).Div(decimal.NewFromInt(int64(len(vals)))), true
	case models.MeasureMedian:
		sorted := make([]decimal.Decimal, len(vals))
		copy(sorted, vals)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid], true
		}
		return sorted[mid-1].Add(sorted[mid]).Div(two), true
	}
	return decimal.Zero, false
}

func floatPtr(d decimal.Decimal, ok bool) *float64 {
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
