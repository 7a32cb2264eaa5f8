package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// MaxGroupings is the largest number of grouping columns accepted.
const MaxGroupings = 5

// groupableColumns are the prices columns a group key may use. Measured and
// time columns are excluded.
var groupableColumns = map[string]bool{
	models.ColReleaseID: true,
	models.ColCurrency:  true,
	models.ColTitle:     true,
	models.ColYear:      true,
	models.ColCountry:   true,
	models.ColFormat:    true,
	models.ColCatNo:     true,
	models.ColMasterID:  true,
	models.ColArtist:    true,
	models.ColArtistID:  true,
	models.ColLabel:     true,
	models.ColLabelID:   true,
}

// GroupRow is the summary of one distinct grouping key combination.
type GroupRow struct {
	// Keys holds the group's values in grouping order. Nulls are nil.
	Keys        []any    `json:"keys"`
	LowestPrice *float64 `json:"lowest_price"`
	NumForSale  *float64 `json:"num_for_sale"`
	// Count is the number of distinct titles in the group.
	Count int `json:"count"`
}

// GroupResult is the output of a grouped aggregation.
type GroupResult struct {
	Groupings []string       `json:"groupings"`
	XMeasure  models.Measure `json:"x_measure"`
	YMeasure  models.Measure `json:"y_measure"`
	Rows      []GroupRow     `json:"rows"`
	// CustomData names the per-point payload fields, in Keys order.
	CustomData []string `json:"custom_data"`
}

// Record returns row as a column map keyed by the result's groupings.
func (r *GroupResult) Record(row GroupRow) map[string]any {
	rec := make(map[string]any, len(r.Groupings)+3)
	for i, col := range r.Groupings {
		rec[col] = row.Keys[i]
	}
	rec[models.ColLowestPrice] = row.LowestPrice
	rec[models.ColNumForSale] = row.NumForSale
	rec["count"] = row.Count
	return rec
}

// ValidateGroupings checks a grouping list: 1 to MaxGroupings distinct
// groupable columns.
func ValidateGroupings(groupings []string) error {
	if len(groupings) == 0 || len(groupings) > MaxGroupings {
		return fmt.Errorf("%w: need 1 to %d columns, got %d", ErrInvalidGrouping, MaxGroupings, len(groupings))
	}
	seen := make(map[string]bool, len(groupings))
	for _, col := range groupings {
		if !groupableColumns[col] {
			return fmt.Errorf("%w: cannot group by %q", ErrUnknownColumn, col)
		}
		if seen[col] {
			return fmt.Errorf("%w: %q repeated", ErrInvalidGrouping, col)
		}
		seen[col] = true
	}
	return nil
}

type groupAcc struct {
	keys   []any
	prices []decimal.Decimal
	supply []decimal.Decimal
	titles map[string]struct{}
}

// GroupPrices groups rows by the grouping columns and applies y to
// lowest_price and x to num_for_sale within each group. Only key
// combinations present in rows are emitted, sorted by key. Null prices and
// supply counts are skipped by the measures.
func GroupPrices(rows []models.PriceRow, groupings []string, x, y models.Measure) (*GroupResult, error) {
	if err := validateMeasures(x, y); err != nil {
		return nil, err
	}
	if err := ValidateGroupings(groupings); err != nil {
		return nil, err
	}

	groups := make(map[string]*groupAcc)
	for _, row := range rows {
		keys := make([]any, len(groupings))
		for i, col := range groupings {
			keys[i], _ = row.Value(col)
		}
		id := groupID(keys)

		acc, ok := groups[id]
		if !ok {
			acc = &groupAcc{keys: keys, titles: make(map[string]struct{})}
			groups[id] = acc
		}
		if row.LowestPrice.Valid {
			acc.prices = append(acc.prices, row.LowestPrice.Decimal)
		}
		if row.NumForSale != nil {
			acc.supply = append(acc.supply, decimal.NewFromInt(*row.NumForSale))
		}
		acc.titles[row.Title] = struct{}{}
	}

	out := make([]GroupRow, 0, len(groups))
	for _, acc := range groups {
		out = append(out, GroupRow{
			Keys:        acc.keys,
			LowestPrice: floatPtr(applyMeasure(y, acc.prices)),
			NumForSale:  floatPtr(applyMeasure(x, acc.supply)),
			Count:       len(acc.titles),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return compareKeys(out[i].Keys, out[j].Keys) < 0
	})

	return &GroupResult{
		Groupings:  append([]string(nil), groupings...),
		XMeasure:   x,
		YMeasure:   y,
		Rows:       out,
		CustomData: append([]string(nil), groupings...),
	}, nil
}

// groupID encodes keys with their types so that 1 and "1" stay distinct.
// Values are quoted so no key content can spill into the next segment.
func groupID(keys []any) string {
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%T:%q;", k, fmt.Sprint(k))
	}
	return b.String()
}

func compareKeys(a, b []any) int {
	for i := range a {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// compareValues orders nil first, then integers, then strings.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case nil:
		return 0
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int64:
		return 1
	case string:
		return 2
	}
	return 3
}
