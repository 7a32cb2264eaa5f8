package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// BucketWidth is the resampling grid. Buckets start at UTC midnight.
const BucketWidth = 24 * time.Hour

var yAxisHeadroom = decimal.RequireFromString("1.05")

// TimeseriesCustomData is the per-point payload order for line charts.
var TimeseriesCustomData = []string{
	models.ColCatNo,
	models.ColTitle,
	models.ColArtist,
	models.ColNumForSale,
	models.ColLowestPrice,
	models.ColYear,
	models.ColArtistID,
	models.ColReleaseID,
	models.ColLabel,
	models.ColLabelID,
	models.ColCountry,
}

// colorColumns are the descriptive columns a line chart can be colored by.
var colorColumns = map[string]bool{
	models.ColReleaseID: true,
	models.ColTitle:     true,
	models.ColCatNo:     true,
	models.ColYear:      true,
	models.ColCountry:   true,
	models.ColMasterID:  true,
	models.ColArtist:    true,
	models.ColArtistID:  true,
	models.ColLabel:     true,
	models.ColLabelID:   true,
}

// Bucket is one release's observations collapsed into a 24h window.
type Bucket struct {
	ReleaseID   int64
	Start       time.Time
	LowestPrice decimal.NullDecimal
	NumForSale  *int64
}

// TimeseriesPoint is a resampled bucket joined with one set of release
// descriptors.
type TimeseriesPoint struct {
	ReleaseID   int64     `json:"release_id"`
	Bucket      time.Time `json:"bucket"`
	LowestPrice *float64  `json:"lowest_price"`
	NumForSale  *int64    `json:"num_for_sale"`
	Title       string    `json:"title"`
	CatNo       string    `json:"catno"`
	Year        int64     `json:"year"`
	Country     string    `json:"country"`
	MasterID    *int64    `json:"master_id"`
	Artist      *string   `json:"artist"`
	ArtistID    *int64    `json:"artist_id"`
	Label       *string   `json:"label"`
	LabelID     *int64    `json:"label_id"`
	// CustomData holds the point's values in TimeseriesCustomData order.
	CustomData []any `json:"custom_data"`
}

// Value returns the point's value for a column, nil for nulls.
func (p TimeseriesPoint) Value(column string) any {
	switch column {
	case models.ColReleaseID:
		return p.ReleaseID
	case models.ColObservedAt:
		return p.Bucket
	case models.ColLowestPrice:
		if p.LowestPrice == nil {
			return nil
		}
		return *p.LowestPrice
	case models.ColNumForSale:
		return deref(p.NumForSale)
	case models.ColTitle:
		return p.Title
	case models.ColCatNo:
		return p.CatNo
	case models.ColYear:
		return p.Year
	case models.ColCountry:
		return p.Country
	case models.ColMasterID:
		return deref(p.MasterID)
	case models.ColArtist:
		return deref(p.Artist)
	case models.ColArtistID:
		return deref(p.ArtistID)
	case models.ColLabel:
		return deref(p.Label)
	case models.ColLabelID:
		return deref(p.LabelID)
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// TimeseriesResult is the output of a resampled aggregation.
type TimeseriesResult struct {
	ColorDimension string            `json:"color_dimension"`
	YVariable      string            `json:"y_variable"`
	Points         []TimeseriesPoint `json:"points"`
	CustomData     []string          `json:"custom_data"`
	// YAxisMax is 1.05 times the largest raw y value, floored at zero.
	YAxisMax float64 `json:"y_axis_max"`
}

// ResamplePrices collapses rows into one bucket per release and UTC day,
// keeping the lowest price and the highest supply seen in the window. Days
// without observations have no bucket. Output is ordered by release, then
// bucket start.
func ResamplePrices(rows []models.PriceRow) []Bucket {
	type key struct {
		release int64
		start   int64
	}
	buckets := make(map[key]*Bucket)
	for _, row := range rows {
		start := row.ObservedAt.UTC().Truncate(BucketWidth)
		k := key{release: row.ReleaseID, start: start.Unix()}
		b, ok := buckets[k]
		if !ok {
			b = &Bucket{ReleaseID: row.ReleaseID, Start: start}
			buckets[k] = b
		}
		if row.LowestPrice.Valid && (!b.LowestPrice.Valid || row.LowestPrice.Decimal.LessThan(b.LowestPrice.Decimal)) {
			b.LowestPrice = row.LowestPrice
		}
		if row.NumForSale != nil && (b.NumForSale == nil || *row.NumForSale > *b.NumForSale) {
			n := *row.NumForSale
			b.NumForSale = &n
		}
	}

	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReleaseID != out[j].ReleaseID {
			return out[i].ReleaseID < out[j].ReleaseID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

type nullInt struct {
	v     int64
	valid bool
}

type nullString struct {
	v     string
	valid bool
}

func toNullInt(p *int64) nullInt {
	if p == nil {
		return nullInt{}
	}
	return nullInt{v: *p, valid: true}
}

func toNullString(p *string) nullString {
	if p == nil {
		return nullString{}
	}
	return nullString{v: *p, valid: true}
}

func (n nullInt) ptr() *int64 {
	if !n.valid {
		return nil
	}
	v := n.v
	return &v
}

func (n nullString) ptr() *string {
	if !n.valid {
		return nil
	}
	v := n.v
	return &v
}

// descriptor is the static labeling of a release. A release credited to
// several artists or labels has several descriptors.
type descriptor struct {
	title, catno, country string
	year                  int64
	masterID              nullInt
	artist                nullString
	artistID              nullInt
	label                 nullString
	labelID               nullInt
}

func descriptorOf(row models.PriceRow) descriptor {
	country := row.Country
	if country == "" {
		country = models.MissingCountry
	}
	return descriptor{
		title:    row.Title,
		catno:    row.CatNo,
		country:  country,
		year:     row.Year,
		masterID: toNullInt(row.MasterID),
		artist:   toNullString(row.Artist),
		artistID: toNullInt(row.ArtistID),
		label:    toNullString(row.Label),
		labelID:  toNullInt(row.LabelID),
	}
}

// BuildTimeseries resamples rows and joins each bucket with every distinct
// descriptor of its release.
func BuildTimeseries(rows []models.PriceRow, colorDimension, yVariable string) (*TimeseriesResult, error) {
	if err := validateTimeseriesArgs(colorDimension, yVariable); err != nil {
		return nil, err
	}

	descriptors := make(map[int64][]descriptor)
	seen := make(map[int64]map[descriptor]bool)
	var yMax decimal.NullDecimal
	for _, row := range rows {
		d := descriptorOf(row)
		if seen[row.ReleaseID] == nil {
			seen[row.ReleaseID] = make(map[descriptor]bool)
		}
		if !seen[row.ReleaseID][d] {
			seen[row.ReleaseID][d] = true
			descriptors[row.ReleaseID] = append(descriptors[row.ReleaseID], d)
		}

		if y, ok := rawY(row, yVariable); ok && (!yMax.Valid || y.GreaterThan(yMax.Decimal)) {
			yMax = decimal.NewNullDecimal(y)
		}
	}

	buckets := ResamplePrices(rows)
	points := make([]TimeseriesPoint, 0, len(buckets))
	// buckets are ordered by release then time; emit each release's
	// descriptors as separate series in first-seen order.
	for i := 0; i < len(buckets); {
		j := i
		for j < len(buckets) && buckets[j].ReleaseID == buckets[i].ReleaseID {
			j++
		}
		for _, d := range descriptors[buckets[i].ReleaseID] {
			for _, b := range buckets[i:j] {
				points = append(points, newPoint(b, d))
			}
		}
		i = j
	}

	result := &TimeseriesResult{
		ColorDimension: colorDimension,
		YVariable:      yVariable,
		Points:         points,
		CustomData:     append([]string(nil), TimeseriesCustomData...),
	}
	if yMax.Valid {
		if m := yMax.Decimal.Mul(yAxisHeadroom).InexactFloat64(); m > 0 {
			result.YAxisMax = m
		}
	}
	return result, nil
}

func validateTimeseriesArgs(colorDimension, yVariable string) error {
	if yVariable != models.ColLowestPrice && yVariable != models.ColNumForSale {
		return fmt.Errorf("%w: y variable %q", ErrUnknownColumn, yVariable)
	}
	if !colorColumns[colorDimension] {
		return fmt.Errorf("%w: color dimension %q", ErrUnknownColumn, colorDimension)
	}
	return nil
}

func rawY(row models.PriceRow, yVariable string) (decimal.Decimal, bool) {
	if yVariable == models.ColNumForSale {
		if row.NumForSale == nil {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(*row.NumForSale), true
	}
	return row.LowestPrice.Decimal, row.LowestPrice.Valid
}

func newPoint(b Bucket, d descriptor) TimeseriesPoint {
	p := TimeseriesPoint{
		ReleaseID:  b.ReleaseID,
		Bucket:     b.Start,
		NumForSale: b.NumForSale,
		Title:      d.title,
		CatNo:      d.catno,
		Year:       d.year,
		Country:    d.country,
		MasterID:   d.masterID.ptr(),
		Artist:     d.artist.ptr(),
		ArtistID:   d.artistID.ptr(),
		Label:      d.label.ptr(),
		LabelID:    d.labelID.ptr(),
	}
	if b.LowestPrice.Valid {
		f := b.LowestPrice.Decimal.InexactFloat64()
		p.LowestPrice = &f
	}
	p.CustomData = make([]any, len(TimeseriesCustomData))
	for i, col := range TimeseriesCustomData {
		p.CustomData[i] = p.Value(col)
	}
	return p
}
