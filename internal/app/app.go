// Package app wires the command line to the conversion pipeline: flag
// parsing, configuration loading, logging setup, and the single processor
// invocation.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"parqconvert/internal/config"
	"parqconvert/internal/finder"
	"parqconvert/internal/logging"
	"parqconvert/internal/processor"
	"parqconvert/internal/util"
)

// Define common application-level errors.
var (
	ErrUsage          = errors.New("usage error")
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrMissingArgs    = errors.New("missing required arguments")
)

// tableProcessor defines the interface for running one conversion or one
// reverse mapping. *processor.Processor satisfies it implicitly.
type tableProcessor interface {
	Process(ctx context.Context, tableName, d string, searchParams map[string]string) error
	MapOutput(outputPath, tableName string, searchParams map[string]string) ([]*finder.RawFile, error)
}

// Factory and filesystem hooks, replaceable in tests.
var (
	newProcessorFunc = func(cfg *config.Config, outputOverride string) (tableProcessor, error) {
		return processor.New(cfg, outputOverride)
	}
	osStatFunc = os.Stat
)

// AppRunner encapsulates the application's execution logic.
type AppRunner struct{}

// NewAppRunner creates a new instance of the application runner.
func NewAppRunner() *AppRunner {
	return &AppRunner{}
}

// usageText defines the command-line help information.
const usageText = `Usage:
  parqconvert -table <name> -d <identifier> [options]

Options:
  -config string
        YAML configuration file (default "config/parqconvert.yaml")
  -table string
        Table to convert (required; must be declared in the configuration)
  -d string
        Date, month, or delta identifier to convert, per the configured
        fileType: a single value (e.g. 20260115) or an inclusive range
        start:end (e.g. 20260110:20260115) (required)
  -p string
        Search parameters as key=value pairs, comma separated; they resolve
        named placeholders in raw-file templates (e.g. region=emea,feed=a)
  -output string
        Override the output directory; files land there as
        <table>_<identifier>.parq instead of using the configured template
  -map string
        Map a committed output file back to the raw file(s) that produced
        it, printing one path per line; -d is not needed (the identifier is
        recovered from the file's path)
  -loglevel string
        Logging level (none, error, warn, info, debug) (default "info")
  -help
        Show help

Environment Variables:
  Any VAR          Can be used in configured paths via $VAR/${VAR} or %VAR%

Examples:
  parqconvert -config=conf.yaml -table=trades -d=20260115
  parqconvert -config=conf.yaml -table=trades -d=20260101:20260131 -p region=emea
  parqconvert -config=conf.yaml -table=positions -d=202601 -output=/tmp/out
  parqconvert -config=conf.yaml -table=trades -map=/data/out/trades_20260115.parq
`

// Usage prints the command-line help information to the specified writer.
func (a *AppRunner) Usage(writer io.Writer) {
	fmt.Fprint(writer, usageText)
}

// Run parses command-line arguments and executes one conversion.
func (a *AppRunner) Run(args []string) error {
	fs := flag.NewFlagSet("parqconvert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "config/parqconvert.yaml", "YAML configuration file")
	tableName := fs.String("table", "", "Table to convert")
	identifier := fs.String("d", "", "Date/month/delta identifier or inclusive range")
	params := fs.String("p", "", "Search parameters as key=value pairs")
	outputDir := fs.String("output", "", "Override the output directory")
	mapFile := fs.String("map", "", "Map an output file back to its raw files")
	logLevelStr := fs.String("loglevel", "info", "Logging level")
	helpFlag := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			a.Usage(os.Stderr)
			return nil
		}
		logging.Logf(logging.Error, "Failed to parse args: %v", err)
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *helpFlag || len(args) == 0 {
		a.Usage(os.Stderr)
		return nil
	}

	logging.SetupLogging(*logLevelStr)

	var missing []string
	if *tableName == "" {
		missing = append(missing, "-table")
	}
	// Mapping recovers the identifier from the output path itself.
	if *identifier == "" && *mapFile == "" {
		missing = append(missing, "-d")
	}
	if len(missing) > 0 {
		logging.Logf(logging.Error, "Missing required arguments: %s", strings.Join(missing, ", "))
		return fmt.Errorf("%w: %s", ErrMissingArgs, strings.Join(missing, ", "))
	}

	searchParams, err := parseSearchParams(*params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if _, err := osStatFunc(*configFile); err != nil {
		if os.IsNotExist(err) {
			logging.Logf(logging.Error, "Config file '%s' not found.", *configFile)
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to stat config file '%s': %w", *configFile, err)
	}
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logging.Logf(logging.Error, "Error loading/validating config '%s': %v", *configFile, err)
		return err
	}

	// The config's level applies unless -loglevel was given explicitly.
	if !isFlagSet(fs, "loglevel") && cfg.Logging.Level != "" {
		logging.SetupLogging(cfg.Logging.Level)
	}
	logging.Logf(logging.Info, "Starting conversion with config: %s", *configFile)

	proc, err := newProcessorFunc(cfg, *outputDir)
	if err != nil {
		return err
	}

	if *mapFile != "" {
		files, err := proc.MapOutput(*mapFile, *tableName, searchParams)
		if err != nil {
			return err
		}
		logging.Logf(logging.Info, "Output %s maps to %d raw file(s)", *mapFile, len(files))
		for _, raw := range files {
			fmt.Fprintln(os.Stdout, raw.FullPath)
		}
		return nil
	}

	start := time.Now()
	if err := proc.Process(context.Background(), *tableName, *identifier, searchParams); err != nil {
		return err
	}
	logging.Logf(logging.Info, "Conversion finished in %s", util.FormatElapsed(time.Since(start)))
	return nil
}

// parseSearchParams parses "key=value,key=value" into a map.
func parseSearchParams(s string) (map[string]string, error) {
	params := make(map[string]string)
	if s == "" {
		return params, nil
	}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed -p entry '%s' (want key=value)", pair)
		}
		params[key] = value
	}
	return params, nil
}

// Helper functions
func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
