package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// EntityPlot is a named scatter preset.
type EntityPlot struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Groupings []string `json:"groupings"`
	// IDColumn and NameColumn identify the clicked entity for drill-down.
	IDColumn   string `json:"id_column"`
	NameColumn string `json:"name_column"`
	// HoverPrefix is prepended to the measure lines of the hover template.
	HoverPrefix string `json:"hover_prefix"`
}

var entityPlots = map[string]EntityPlot{
	"country": {
		Name:        "country",
		Title:       "Release Country",
		Groupings:   []string{models.ColCountry},
		IDColumn:    models.ColCountry,
		NameColumn:  models.ColCountry,
		HoverPrefix: "Country: %{customdata[0]}<br>",
	},
	"label": {
		Name:        "label",
		Title:       "Record Label",
		Groupings:   []string{models.ColLabel, models.ColLabelID},
		IDColumn:    models.ColLabelID,
		NameColumn:  models.ColLabel,
		HoverPrefix: "Label %{customdata[0]}<br>",
	},
	"artist": {
		Name:        "artist",
		Title:       "Artists: Price vs. Supply",
		Groupings:   []string{models.ColArtist, models.ColArtistID},
		IDColumn:    models.ColArtistID,
		NameColumn:  models.ColArtist,
		HoverPrefix: "Artist: %{customdata[0]}<br>",
	},
	"album": {
		Name:        "album",
		Title:       "Albums: Price vs Supply",
		Groupings:   []string{models.ColArtist, models.ColTitle, models.ColReleaseID, models.ColArtistID, models.ColMasterID},
		IDColumn:    models.ColReleaseID,
		NameColumn:  models.ColTitle,
		HoverPrefix: "<b>Artist</b>: %{customdata[0]}<br><b>Album</b>: %{customdata[1]}<br><extra></extra>",
	},
}

// PlotFor returns the preset named entity.
func PlotFor(entity string) (EntityPlot, bool) {
	p, ok := entityPlots[entity]
	if !ok {
		return EntityPlot{}, false
	}
	p.Groupings = append([]string(nil), p.Groupings...)
	return p, true
}

// EntityPlots lists all presets sorted by name.
func EntityPlots() []EntityPlot {
	out := make([]EntityPlot, 0, len(entityPlots))
	for name := range entityPlots {
		p, _ := PlotFor(name)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AggregateEntity runs AggregateByGroup with a preset's groupings.
func (e *Engine) AggregateEntity(ctx context.Context, entity string, x, y models.Measure, filter models.Filter) (*GroupResult, EntityPlot, error) {
	plot, ok := PlotFor(entity)
	if !ok {
		return nil, EntityPlot{}, fmt.Errorf("%w: no plot for entity %q", ErrInvalidGrouping, entity)
	}
	result, err := e.AggregateByGroup(ctx, plot.Groupings, x, y, filter)
	if err != nil {
		return nil, plot, err
	}
	return result, plot, nil
}
