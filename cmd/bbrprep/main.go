// Command bbrprep converts one raw BBR extract into the prepared table.
//
// Usage:
//
//	bbrprep -in raw.csv [-out mapped.csv] [-dataset bbr_demolitions]
//	        [-area-filter 500] [-demolished] [-format csv|xlsx|sqlite|postgres]
//	        [-mappings dir] [-definition file.yaml]
//
// Settings not given as flags come from the environment (see internal/config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bbrprep/internal/config"
	"github.com/JonMunkholm/bbrprep/internal/core"
	_ "github.com/JonMunkholm/bbrprep/internal/core/datasets" // Register all datasets
	"github.com/JonMunkholm/bbrprep/internal/database"
	"github.com/JonMunkholm/bbrprep/internal/geo"
	"github.com/JonMunkholm/bbrprep/internal/logging"
	"github.com/JonMunkholm/bbrprep/internal/sink"
	"github.com/JonMunkholm/bbrprep/internal/source"
)

// options are the parsed command line settings.
type options struct {
	In         string
	Out        string
	Dataset    string
	Format     sink.Format
	Mappings   string
	Definition string
	AreaFilter *float64
	Demolished *bool
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bbrprep:", err)
		os.Exit(1)
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("invalid arguments", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		slog.Error("conversion failed", "error", err, "hint", core.FormatUserError(err))
		os.Exit(1)
	}
}

// parseFlags reads the command line, falling back to cfg for anything not set.
func parseFlags(args []string, cfg *config.Config, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("bbrprep", flag.ContinueOnError)
	fs.SetOutput(output)

	var o options
	var format string
	var area float64
	var demolished bool
	fs.StringVar(&o.In, "in", "", "raw extract (CSV)")
	fs.StringVar(&o.Out, "out", "", "output path (default: <in>_mapped.<ext> in OUTPUT_DIR)")
	fs.StringVar(&o.Dataset, "dataset", cfg.Pipeline.Dataset, "dataset key")
	fs.StringVar(&format, "format", cfg.Output.Format, "output format: "+strings.Join(config.OutputFormats, ", "))
	fs.StringVar(&o.Mappings, "mappings", cfg.Pipeline.MappingsDir, "mappings directory")
	fs.StringVar(&o.Definition, "definition", cfg.Pipeline.Definition, "definition YAML overlay")
	fs.Float64Var(&area, "area-filter", 0, "drop records with Area below this value")
	fs.BoolVar(&demolished, "demolished", false, "derive demolition year and building age")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.In == "" {
		return options{}, errors.New("-in is required")
	}

	f, err := sink.ParseFormat(format)
	if err != nil {
		return options{}, err
	}
	o.Format = f

	o.AreaFilter = cfg.Pipeline.AreaFilterOverride()
	o.Demolished = cfg.Pipeline.DemolishedOverride()
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "area-filter":
			o.AreaFilter = &area
		case "demolished":
			o.Demolished = &demolished
		}
	})
	if o.AreaFilter != nil && *o.AreaFilter < 0 {
		return options{}, errors.New("-area-filter must not be negative")
	}

	if o.Out == "" && f != sink.FormatPostgres {
		base := strings.TrimSuffix(filepath.Base(o.In), filepath.Ext(o.In))
		o.Out = filepath.Join(cfg.Output.Dir, base+"_mapped"+f.Extension())
	}
	return o, nil
}

// run executes one conversion and writes the result with the chosen sink.
func run(ctx context.Context, cfg *config.Config, o options) error {
	deps := core.ServiceDeps{
		Loader:      source.NewDirLoader(o.Mappings),
		Reader:      source.RawReader{},
		Projectors:  geo.Factory(cfg.Pipeline.SourceCRS, cfg.Pipeline.TargetCRS),
		MaxFileSize: cfg.Run.MaxFileSize,
		RunTimeout:  cfg.Run.Timeout,
	}
	if o.Definition != "" {
		def, err := core.LoadDefinition(o.Definition)
		if err != nil {
			return err
		}
		deps.Definition = &def
	}

	var db sink.TxBeginner
	if o.Format == sink.FormatPostgres {
		if !cfg.Database.Enabled() {
			return errors.New("postgres output: database not configured")
		}
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		db = pool
	}

	service, err := core.NewService(deps)
	if err != nil {
		return err
	}

	in, err := os.Open(o.In)
	if err != nil {
		return err
	}
	defer in.Close()

	result, table, err := service.Run(ctx, core.RunRequest{
		Dataset:    o.Dataset,
		FileName:   filepath.Base(o.In),
		Input:      in,
		AreaFilter: o.AreaFilter,
		Demolished: o.Demolished,
	})
	if err != nil {
		return err
	}

	out, closeOut, err := sink.Open(o.Format, o.Out, db, sink.TableName(o.Dataset))
	if err != nil {
		return err
	}
	if err := out.Write(ctx, table); err != nil {
		closeOut()
		return fmt.Errorf("write %s: %w", o.Format, err)
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	slog.Info("conversion complete",
		"run_id", result.Record.ID,
		"dataset", result.Record.Dataset,
		"rows_in", result.Record.RowsIn,
		"rows_out", result.Record.RowsOut,
		"dropped", result.Record.Dropped,
		"format", o.Format,
		"output", o.Out,
		"duration_ms", result.Record.Duration.Milliseconds(),
	)
	return nil
}
