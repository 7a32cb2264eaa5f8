package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Measure is a statistic applied to a group of observations
type Measure string

const (
	MeasureMedian Measure = "median"
	MeasureMean   Measure = "mean"
	MeasureMin    Measure = "min"
	MeasureMax    Measure = "max"
)

// AllMeasures returns all supported measures
func AllMeasures() []Measure {
	return []Measure{MeasureMedian, MeasureMean, MeasureMin, MeasureMax}
}

// Valid reports whether m is a supported measure.
func (m Measure) Valid() bool {
	switch m {
	case MeasureMedian, MeasureMean, MeasureMin, MeasureMax:
		return true
	}
	return false
}

// PriceObservation is one marketplace snapshot for a release. Rows are
// append-only: a release accumulates one row per observation.
type PriceObservation struct {
	ID          uint                `json:"id" gorm:"primaryKey;autoIncrement"`
	ReleaseID   int64               `json:"release_id" gorm:"not null;index:idx_marketplace_release_time,priority:1"`
	ObservedAt  time.Time           `json:"observed_at" gorm:"not null;index:idx_marketplace_release_time,priority:2"`
	LowestPrice decimal.NullDecimal `json:"lowest_price" gorm:"type:decimal(12,2)"`
	Currency    string              `json:"currency" gorm:"not null;default:''"`
	NumForSale  *int64              `json:"num_for_sale"`
}

func (PriceObservation) TableName() string { return "marketplace" }

// PriceRow is a row of the prices view: an observation joined with its
// release descriptors and one artist and label credit. A release with
// several credits appears once per credit combination.
type PriceRow struct {
	ReleaseID   int64               `json:"release_id" gorm:"column:release_id"`
	ObservedAt  time.Time           `json:"observed_at" gorm:"column:observed_at"`
	LowestPrice decimal.NullDecimal `json:"lowest_price" gorm:"column:lowest_price"`
	Currency    string              `json:"currency" gorm:"column:currency"`
	NumForSale  *int64              `json:"num_for_sale" gorm:"column:num_for_sale"`
	Title       string              `json:"title" gorm:"column:title"`
	Year        int64               `json:"year" gorm:"column:year"`
	Country     string              `json:"country" gorm:"column:country"`
	Format      string              `json:"format" gorm:"column:format"`
	CatNo       string              `json:"catno" gorm:"column:catno"`
	MasterID    *int64              `json:"master_id" gorm:"column:master_id"`
	Artist      *string             `json:"artist" gorm:"column:artist"`
	ArtistID    *int64              `json:"artist_id" gorm:"column:artist_id"`
	Label       *string             `json:"label" gorm:"column:label"`
	LabelID     *int64              `json:"label_id" gorm:"column:label_id"`
}

func (PriceRow) TableName() string { return "prices" }

// MissingCountry replaces an empty country in the prices view.
const MissingCountry = "-"

// Value returns the row's value for a prices column. Nullable columns yield
// nil when unset; ok is false for unknown columns.
func (r PriceRow) Value(column string) (v any, ok bool) {
	switch column {
	case ColReleaseID:
		return r.ReleaseID, true
	case ColObservedAt:
		return r.ObservedAt, true
	case ColLowestPrice:
		if !r.LowestPrice.Valid {
			return nil, true
		}
		return r.LowestPrice.Decimal, true
	case ColCurrency:
		return r.Currency, true
	case ColNumForSale:
		return derefInt(r.NumForSale), true
	case ColTitle:
		return r.Title, true
	case ColYear:
		return r.Year, true
	case ColCountry:
		if r.Country == "" {
			return MissingCountry, true
		}
		return r.Country, true
	case ColFormat:
		return r.Format, true
	case ColCatNo:
		return r.CatNo, true
	case ColMasterID:
		return derefInt(r.MasterID), true
	case ColArtist:
		return derefString(r.Artist), true
	case ColArtistID:
		return derefInt(r.ArtistID), true
	case ColLabel:
		return derefString(r.Label), true
	case ColLabelID:
		return derefInt(r.LabelID), true
	}
	return nil, false
}

func derefInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
