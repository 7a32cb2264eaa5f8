package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPriceRowValue(t *testing.T) {
	artist := "Miles Davis"
	artistID := int64(23755)
	row := PriceRow{
		ReleaseID:   1,
		ObservedAt:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		LowestPrice: decimal.NewNullDecimal(decimal.RequireFromString("8.50")),
		Title:       "Kind of Blue",
		Country:     "",
		Artist:      &artist,
		ArtistID:    &artistID,
	}

	tests := []struct {
		column string
		want   any
	}{
		{ColReleaseID, int64(1)},
		{ColTitle, "Kind of Blue"},
		{ColCountry, MissingCountry},
		{ColArtist, "Miles Davis"},
		{ColArtistID, int64(23755)},
		{ColLabel, nil},
		{ColLabelID, nil},
		{ColNumForSale, nil},
		{ColMasterID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := row.Value(tt.column)
			if !ok {
				t.Fatalf("Value(%s) not ok", tt.column)
			}
			if got != tt.want {
				t.Errorf("Value(%s) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}

	price, _ := row.Value(ColLowestPrice)
	if d, ok := price.(decimal.Decimal); !ok || !d.Equal(decimal.RequireFromString("8.5")) {
		t.Errorf("Value(lowest_price) = %v, want 8.5", price)
	}

	if _, ok := row.Value("bogus"); ok {
		t.Error("Value(bogus) should not be ok")
	}
}

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in   string
		want EntityKind
		ok   bool
	}{
		{"artist", EntityArtist, true},
		{"labels", EntityLabel, true},
		{"album", EntityRelease, true},
		{"country", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseEntityKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseEntityKind(%s) = %s, %v, want %s, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReleaseBundleLinks(t *testing.T) {
	b := ReleaseBundle{
		Release: Release{ReleaseID: 10},
		Artists: []Artist{{ArtistID: 1}, {ArtistID: 2}},
		Labels:  []Label{{LabelID: 5}},
	}

	artists := b.ArtistLinks()
	if len(artists) != 2 || artists[1].ArtistID != 2 || artists[1].Rank != 1 || artists[1].ReleaseID != 10 {
		t.Errorf("ArtistLinks() = %+v", artists)
	}
	labels := b.LabelLinks()
	if len(labels) != 1 || labels[0].LabelID != 5 || labels[0].ReleaseID != 10 {
		t.Errorf("LabelLinks() = %+v", labels)
	}
}
