package models

import "time"

// Release is a single pressing of an album as listed in the catalog
type Release struct {
	ReleaseID int64     `json:"release_id" gorm:"column:release_id;primaryKey;autoIncrement:false"`
	Title     string    `json:"title" gorm:"not null;default:''"`
	Year      int64     `json:"year" gorm:"not null;default:0"`
	Country   string    `json:"country" gorm:"not null;default:''"`
	Format    string    `json:"format" gorm:"not null;default:''"`
	CatNo     string    `json:"catno" gorm:"column:catno;not null;default:''"`
	MasterID  *int64    `json:"master_id" gorm:"index"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

func (Release) TableName() string { return "releases" }

type Artist struct {
	ArtistID  int64     `json:"artist_id" gorm:"column:artist_id;primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"not null;index"`
	Profile   string    `json:"profile"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

func (Artist) TableName() string { return "artists" }

type Label struct {
	LabelID   int64     `json:"label_id" gorm:"column:label_id;primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"not null;index"`
	Profile   string    `json:"profile"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

func (Label) TableName() string { return "labels" }

// ArtistRelease credits an artist on a release. Rank keeps the credit order.
type ArtistRelease struct {
	ArtistID  int64 `json:"artist_id" gorm:"primaryKey;autoIncrement:false"`
	ReleaseID int64 `json:"release_id" gorm:"primaryKey;autoIncrement:false;index"`
	Rank      int   `json:"rank"`
}

func (ArtistRelease) TableName() string { return "artist_release" }

type LabelRelease struct {
	LabelID   int64 `json:"label_id" gorm:"primaryKey;autoIncrement:false"`
	ReleaseID int64 `json:"release_id" gorm:"primaryKey;autoIncrement:false;index"`
	Rank      int   `json:"rank"`
}

func (LabelRelease) TableName() string { return "label_release" }

// ReleaseBundle is everything known about one release from a catalog lookup:
// the release row, its credited artists and labels, and optionally the
// marketplace observations taken at the same time.
type ReleaseBundle struct {
	Release      Release            `json:"release"`
	Artists      []Artist           `json:"artists"`
	Labels       []Label            `json:"labels"`
	Observations []PriceObservation `json:"observations,omitempty"`
}

// ArtistLinks returns the artist_release rows for the bundle in credit order.
func (b ReleaseBundle) ArtistLinks() []ArtistRelease {
	links := make([]ArtistRelease, 0, len(b.Artists))
	for i, a := range b.Artists {
		links = append(links, ArtistRelease{ArtistID: a.ArtistID, ReleaseID: b.Release.ReleaseID, Rank: i})
	}
	return links
}

// LabelLinks returns the label_release rows for the bundle in credit order.
func (b ReleaseBundle) LabelLinks() []LabelRelease {
	links := make([]LabelRelease, 0, len(b.Labels))
	for i, l := range b.Labels {
		links = append(links, LabelRelease{LabelID: l.LabelID, ReleaseID: b.Release.ReleaseID, Rank: i})
	}
	return links
}

// EntityKind names a browsable catalog entity
type EntityKind string

const (
	EntityArtist  EntityKind = "artist"
	EntityLabel   EntityKind = "label"
	EntityRelease EntityKind = "release"
)

// AllEntityKinds returns every browsable entity kind
func AllEntityKinds() []EntityKind {
	return []EntityKind{EntityArtist, EntityLabel, EntityRelease}
}

// ParseEntityKind accepts the dashboard's "album" as an alias for release.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch s {
	case "artist", "artists":
		return EntityArtist, true
	case "label", "labels":
		return EntityLabel, true
	case "release", "releases", "album":
		return EntityRelease, true
	}
	return "", false
}

// EntityOption is an id/name pair used for dropdowns and search results.
type EntityOption struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score,omitempty"`
}
