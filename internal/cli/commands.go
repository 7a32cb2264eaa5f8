package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
	"github.com/codyseavey/vinyl-tracker/internal/services"
)

// ImportCommand stores collector files directly, bypassing the inbox.
type ImportCommand struct {
	Files []string `long:"file" short:"f" description:"Collector JSON file (repeatable)" required:"true"`

	globals *GlobalFlags
}

// MissingCommand lists release ids the collector still has to look up.
type MissingCommand struct {
	globals *GlobalFlags
}

// AggregateCommand runs a grouped aggregation, either from explicit
// groupings or from a plot preset.
type AggregateCommand struct {
	Group   []string `long:"group" short:"g" description:"Grouping column (repeatable, in order)"`
	Plot    string   `long:"plot" description:"Plot preset: album, artist, country, label"`
	X       string   `long:"x" description:"Measure for number for sale" default:"median"`
	Y       string   `long:"y" description:"Measure for lowest price" default:"median"`
	Filters []string `long:"filter" description:"Filter as col=v1,v2 (repeatable)"`

	globals *GlobalFlags
}

// TimeseriesCommand resamples matching releases onto daily buckets.
type TimeseriesCommand struct {
	Color   string   `long:"color" description:"Color dimension" default:"country"`
	Y       string   `long:"y" description:"y variable: lowest_price or num_for_sale" default:"lowest_price"`
	Filters []string `long:"filter" description:"Filter as col=v1,v2 (repeatable)"`

	globals *GlobalFlags
}

// MigrateCommand applies migrations; opening the store already does that.
type MigrateCommand struct {
	globals *GlobalFlags
}

func (c *ImportCommand) Execute(_ []string) error {
	store, err := c.globals.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	ingest := services.NewIngestService(store, nil)

	type fileResult struct {
		File string `json:"file"`
		services.IngestResult
	}
	var results []fileResult
	for _, path := range c.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		batch, err := services.DecodeImportBatch(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res, err := ingest.StoreBatch(ctx, batch.Observations, batch.Releases)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, fileResult{File: filepath.Base(path), IngestResult: res})
	}
	return c.globals.printJSON(results)
}

func (c *MissingCommand) Execute(_ []string) error {
	store, err := c.globals.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := services.NewCatalogService(store, 0, 0).MissingReleases(context.Background())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []int64{}
	}
	return c.globals.printJSON(map[string]any{"release_ids": ids, "count": len(ids)})
}

func (c *AggregateCommand) Execute(_ []string) error {
	if (len(c.Group) == 0) == (c.Plot == "") {
		return errors.New("exactly one of --group or --plot is required")
	}
	filter, err := models.ParseFilterArgs(c.Filters)
	if err != nil {
		return err
	}

	store, err := c.globals.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := analytics.NewEngine(store)
	ctx := context.Background()
	x, y := models.Measure(c.X), models.Measure(c.Y)

	var result *analytics.GroupResult
	if c.Plot != "" {
		result, _, err = engine.AggregateEntity(ctx, c.Plot, x, y, filter)
	} else {
		result, err = engine.AggregateByGroup(ctx, c.Group, x, y, filter)
	}
	if err != nil {
		return noMatches(c.globals, err)
	}

	records := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		records = append(records, result.Record(row))
	}
	return c.globals.printJSON(records)
}

func (c *TimeseriesCommand) Execute(_ []string) error {
	filter, err := models.ParseFilterArgs(c.Filters)
	if err != nil {
		return err
	}

	store, err := c.globals.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := analytics.NewEngine(store).AggregateTimeseries(context.Background(), c.Color, c.Y, filter)
	if err != nil {
		return noMatches(c.globals, err)
	}
	return c.globals.printJSON(result)
}

func (c *MigrateCommand) Execute(_ []string) error {
	store, err := c.globals.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.CountObservations(context.Background())
	if err != nil {
		return err
	}
	return c.globals.printJSON(map[string]any{"migrated": true, "observations": n})
}

// noMatches prints an empty list for ErrEmptyResult instead of failing.
func noMatches(g *GlobalFlags, err error) error {
	if errors.Is(err, analytics.ErrEmptyResult) {
		return g.printJSON([]any{})
	}
	return err
}
