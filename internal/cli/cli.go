// Package cli implements vinylctl, the command line front end to the price
// store: importing collector output, listing missing releases and running
// aggregations.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	goflags "github.com/jessevdk/go-flags"

	"github.com/codyseavey/vinyl-tracker/internal/config"
	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/logging"
)

// GlobalFlags apply to every subcommand.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file"`
	Driver  string `long:"driver" description:"Database driver override (sqlite, postgres, mysql)"`
	DSN     string `long:"dsn" description:"Database DSN override"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
	Compact bool   `long:"compact" description:"Print JSON on one line"`
	Version bool   `long:"version" description:"Show version and exit"`

	out io.Writer
}

type commands struct {
	Import     *ImportCommand
	Missing    *MissingCommand
	Aggregate  *AggregateCommand
	Timeseries *TimeseriesCommand
	Migrate    *MigrateCommand
}

func buildParser(out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	globals := &GlobalFlags{out: out}

	parser := goflags.NewParser(globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "vinylctl"
	parser.LongDescription = "Import marketplace observations and query record price aggregates."

	cmds := &commands{
		Import:     &ImportCommand{globals: globals},
		Missing:    &MissingCommand{globals: globals},
		Aggregate:  &AggregateCommand{globals: globals},
		Timeseries: &TimeseriesCommand{globals: globals},
		Migrate:    &MigrateCommand{globals: globals},
	}

	parser.AddCommand("import", "Import collector files", "Store the observations and release bundles of one or more collector JSON files.", cmds.Import)
	parser.AddCommand("missing", "List releases without metadata", "List release ids that have observations but no release metadata.", cmds.Missing)
	parser.AddCommand("aggregate", "Aggregate prices by group", "Summarise lowest price and supply per distinct grouping value.", cmds.Aggregate)
	parser.AddCommand("timeseries", "Daily price series", "Resample each release onto daily buckets.", cmds.Timeseries)
	parser.AddCommand("migrate", "Apply schema migrations", "Create or update the tables and the prices view.", cmds.Migrate)

	return parser, globals, cmds
}

// Run parses os.Args and executes the matched subcommand.
func Run(version string) error {
	return RunWithArgs(version, os.Args[1:], os.Stdout)
}

// RunWithArgs parses args and executes the matched subcommand, writing
// results to out.
func RunWithArgs(version string, args []string, out io.Writer) error {
	for _, arg := range args {
		if arg == "--version" {
			fmt.Fprintf(out, "vinylctl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(out)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			fmt.Fprintln(out, flagsErr.Message)
			return nil
		}
		return err
	}
	return nil
}

// openStore loads configuration, applies flag overrides, and opens a
// migrated store.
func (g *GlobalFlags) openStore() (*database.Store, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.Config != "" {
		cfg, err = config.LoadFrom(g.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if g.Driver != "" {
		cfg.Database.Driver = g.Driver
	}
	if g.DSN != "" {
		cfg.Database.DSN = g.DSN
	}

	level := cfg.Logging.Level
	if g.Verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console", Output: os.Stderr})

	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return database.NewStore(db), nil
}

func (g *GlobalFlags) printJSON(v any) error {
	enc := json.NewEncoder(g.out)
	if !g.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
