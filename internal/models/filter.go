package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrUnknownColumn is returned when a filter, grouping or measure names a
	// column that is not on the allow-list for the queried table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidFilter is returned for empty value lists or values that
	// cannot be coerced to the column type.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Columns of the prices view.
const (
	ColReleaseID   = "release_id"
	ColObservedAt  = "observed_at"
	ColLowestPrice = "lowest_price"
	ColCurrency    = "currency"
	ColNumForSale  = "num_for_sale"
	ColTitle       = "title"
	ColYear        = "year"
	ColCountry     = "country"
	ColFormat      = "format"
	ColCatNo       = "catno"
	ColMasterID    = "master_id"
	ColArtist      = "artist"
	ColArtistID    = "artist_id"
	ColLabel       = "label"
	ColLabelID     = "label_id"
)

// ColumnKind is the Go type filter values are coerced to.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindDecimal
	KindTime
)

// Columns maps column names to their kind for one table.
type Columns map[string]ColumnKind

// Has reports whether name is an allowed column.
func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// PriceColumns is the allow-list for the prices view.
var PriceColumns = Columns{
	ColReleaseID:   KindInt,
	ColObservedAt:  KindTime,
	ColLowestPrice: KindDecimal,
	ColCurrency:    KindText,
	ColNumForSale:  KindInt,
	ColTitle:       KindText,
	ColYear:        KindInt,
	ColCountry:     KindText,
	ColFormat:      KindText,
	ColCatNo:       KindText,
	ColMasterID:    KindInt,
	ColArtist:      KindText,
	ColArtistID:    KindInt,
	ColLabel:       KindText,
	ColLabelID:     KindInt,
}

// Filter restricts a query to rows whose column value is one of the listed
// values. Columns are combined with AND.
type Filter map[string][]any

// Columns returns the filtered column names in sorted order.
func (f Filter) Columns() []string {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Normalize validates f against allowed and returns a copy with every value
// coerced to its column kind. A nil or empty filter normalizes to nil.
func (f Filter) Normalize(allowed Columns) (Filter, error) {
	if len(f) == 0 {
		return nil, nil
	}
	out := make(Filter, len(f))
	for _, col := range f.Columns() {
		values := f[col]
		kind, ok := allowed[col]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: no values for %q", ErrInvalidFilter, col)
		}
		coerced := make([]any, 0, len(values))
		for _, v := range values {
			cv, err := coerce(kind, v)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %v", ErrInvalidFilter, col, err)
			}
			coerced = append(coerced, cv)
		}
		out[col] = coerced
	}
	return out, nil
}

// ParseFilterArgs parses "col=v1,v2" pairs as given on the command line or
// in query strings.
func ParseFilterArgs(args []string) (Filter, error) {
	f := Filter{}
	for _, arg := range args {
		col, raw, ok := strings.Cut(arg, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: expected col=v1,v2, got %q", ErrInvalidFilter, arg)
		}
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f[col] = append(f[col], v)
			}
		}
	}
	return f, nil
}

// NormalizeValue converts decoded JSON scalars to the types used in filters:
// integral numbers become int64 and everything else is returned unchanged.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
	case float32:
		return NormalizeValue(float64(n))
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if fl, err := n.Float64(); err == nil {
			return fl
		}
	}
	return v
}

func coerce(kind ColumnKind, v any) (any, error) {
	v = NormalizeValue(v)
	switch kind {
	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", n)
			}
			return i, nil
		}
		return nil, fmt.Errorf("%v is not an integer", v)
	case KindText:
		switch s := v.(type) {
		case string:
			return s, nil
		case int64, float64, bool:
			return fmt.Sprint(s), nil
		}
		return nil, fmt.Errorf("%v is not text", v)
	default:
		// decimal and time columns are compared as given
		if v == nil {
			return nil, errors.New("null value")
		}
		return v, nil
	}
}
