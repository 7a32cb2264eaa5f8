// Package selection decodes dashboard interactions into query filters.
//
// Card buttons report cumulative click counts; a card is active when its
// count is odd. Chart selections report the customdata tuples of the
// selected points, from which one field is extracted.
package selection

import (
	"errors"
	"fmt"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrEmptySelection = errors.New("empty selection")
	ErrMalformedPoint = errors.New("malformed point")
)

// CardEntity is the data attached to one rendered card: the filter column
// it selects on and the value it contributes.
type CardEntity struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

// ResolveActiveSelections pairs entities with their click counts and
// returns the values of every card clicked an odd number of times, grouped
// by field. Nil counts are cards never clicked. When the lists differ in
// length only the common prefix is considered. ok is false when no card is
// active.
func ResolveActiveSelections(entities []CardEntity, clicks []*int) (models.Filter, bool) {
	n := min(len(entities), len(clicks))

	out := models.Filter{}
	seen := make(map[string]map[any]bool)
	for i := 0; i < n; i++ {
		if clicks[i] == nil || *clicks[i]%2 == 0 {
			continue
		}
		e := entities[i]
		v := models.NormalizeValue(e.Value)
		k := dedupeKey(v)
		if seen[e.Field] == nil {
			seen[e.Field] = make(map[any]bool)
		}
		if seen[e.Field][k] {
			continue
		}
		seen[e.Field][k] = true
		out[e.Field] = append(out[e.Field], v)
	}

	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// SelectedPoint is one point of a chart selection event.
type SelectedPoint struct {
	CustomData  []any `json:"customdata"`
	CurveNumber int   `json:"curveNumber,omitempty"`
	PointIndex  int   `json:"pointIndex,omitempty"`
}

// SelectionEvent is the selectedData payload of a chart.
type SelectionEvent struct {
	Points []SelectedPoint `json:"points"`
}

// ExtractSelected returns the distinct values of field across the selected
// points, in first-seen order. fieldOrder names the customdata positions;
// the first occurrence of field is used.
func ExtractSelected(field string, event SelectionEvent, fieldOrder []string) (models.Filter, error) {
	idx := -1
	for i, f := range fieldOrder {
		if f == field {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q not in %v", ErrUnknownField, field, fieldOrder)
	}
	if len(event.Points) == 0 {
		return nil, ErrEmptySelection
	}

	values := make([]any, 0, len(event.Points))
	seen := make(map[any]bool, len(event.Points))
	for i, p := range event.Points {
		if idx >= len(p.CustomData) {
			return nil, fmt.Errorf("%w: point %d has %d customdata values, need index %d", ErrMalformedPoint, i, len(p.CustomData), idx)
		}
		v := models.NormalizeValue(p.CustomData[idx])
		k := dedupeKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		values = append(values, v)
	}

	return models.Filter{field: values}, nil
}

// dedupeKey returns v when it can be used as a map key, otherwise a
// printed form of it.
func dedupeKey(v any) any {
	switch v.(type) {
	case nil, string, int64, float64, bool:
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}
