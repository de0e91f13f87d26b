// Package processor orchestrates one conversion run: discover the raw files
// for a table and identifier, reconcile the manifest schema against what the
// files carry, stream batches through the metadata adjuster, and commit the
// output files. Two modes exist: aggregate (all discovered files into one
// output, row index monotone across files) and per-file (one output per
// discovered file, row index restarting at zero for each).
package processor

import (
	"context"
	"fmt"
	stdio "io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"parqconvert/internal/adjuster"
	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/finder"
	pcio "parqconvert/internal/io"
	"parqconvert/internal/logging"
	"parqconvert/internal/schema"
	"parqconvert/internal/util"
)

// Processor runs conversions against one loaded configuration.
type Processor struct {
	cfg            *config.Config
	reader         pcio.InputReader
	adjuster       adjuster.Adjuster
	outputOverride string
	runID          string

	// Run-scoped counters, reported when Process returns.
	numFiles   int
	numBatches int
	numRows    int64
	fileTime   time.Duration
}

// New builds a processor, constructing the reader and adjuster backends up
// front so configuration problems surface before discovery.
func New(cfg *config.Config, outputOverride string) (*Processor, error) {
	reader, err := pcio.NewInputReader(cfg.Input)
	if err != nil {
		return nil, err
	}
	adj, err := adjuster.New(cfg.Output.Adjuster, cfg.Output.Metadata)
	if err != nil {
		return nil, err
	}
	return &Processor{
		cfg:            cfg,
		reader:         reader,
		adjuster:       adj,
		outputOverride: outputOverride,
		runID:          uuid.NewString(),
	}, nil
}

// Process converts one table for the identifier d. d is either a single
// date/month/delta value or an inclusive range "after:before". searchParams
// resolve free-form template placeholders.
func (p *Processor) Process(ctx context.Context, tableName, d string, searchParams map[string]string) error {
	start := time.Now()
	logging.Logf(logging.Info, "Run %s: converting table '%s' for '%s'", p.runID, tableName, d)

	table, err := p.cfg.GetTableConfig(tableName)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}

	manifest, operations, err := p.loadManifest(tableName)
	if err != nil {
		return err
	}
	metadataSchema, err := schema.MetadataSchema(p.cfg.Output.Metadata)
	if err != nil {
		return err
	}

	after, before, ok := strings.Cut(d, ":")
	if !ok {
		before = after
	}

	files, err := p.discover(table, after, before, searchParams)
	if err != nil {
		// Per-archive discovery failures are warnings; the healthy files
		// still convert.
		logging.Logf(logging.Warning, "Discovery problems: %v", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no raw files found for table '%s' and '%s'", errs.ErrDiscovery, tableName, d)
	}
	logging.Logf(logging.Info, "Discovered %d raw file(s) for table '%s'", len(files), tableName)

	if table.Aggregate {
		err = p.processAggregate(ctx, tableName, table, before, searchParams, files, manifest, operations, metadataSchema)
	} else {
		err = p.processPerFile(ctx, tableName, table, searchParams, files, manifest, operations, metadataSchema)
	}
	if err != nil {
		return err
	}

	logging.Logf(logging.Info,
		"Run %s: %d file(s), %d batch(es), %d row(s) in %s (read+write %s)",
		p.runID, p.numFiles, p.numBatches, p.numRows,
		util.FormatElapsed(time.Since(start)), util.FormatElapsed(p.fileTime))
	return nil
}

// discover runs every raw-file template of the table and merges the results
// in deterministic (identifier, path) order.
func (p *Processor) discover(table config.TableConfig, after, before string, searchParams map[string]string) ([]*finder.RawFile, error) {
	var files []*finder.RawFile
	var discoveryErrs []string

	for _, template := range table.RawFiles {
		f, err := finder.NewFinder(util.ExpandEnvUniversal(template), finder.Options{
			SearchParams: searchParams,
			ExtractVars:  p.cfg.ExtractVars,
			After:        after,
			Before:       before,
			FileType:     p.cfg.Input.FileType,
		})
		if err != nil {
			return nil, err
		}
		logging.Logf(logging.Debug, "Compiled %s", f)

		found, err := f.FindRange(after, before)
		if err != nil {
			discoveryErrs = append(discoveryErrs, err.Error())
		}
		files = append(files, found...)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].D != files[j].D {
			return files[i].D < files[j].D
		}
		return files[i].FullPath < files[j].FullPath
	})

	if len(discoveryErrs) > 0 {
		return files, fmt.Errorf("%w: %s", errs.ErrDiscovery, strings.Join(discoveryErrs, "; "))
	}
	return files, nil
}

// loadManifest renders the manifest template for the table and loads the
// declared schema.
func (p *Processor) loadManifest(tableName string) (schema.RecordSchema, map[string]schema.ColumnOperation, error) {
	rendered, err := renderTemplate(p.cfg.Manifest.FileTemplate, map[string]string{"table": tableName})
	if err != nil {
		return schema.RecordSchema{}, nil, err
	}
	path := rendered
	if !filepath.IsAbs(path) {
		path = filepath.Join(util.ExpandEnvUniversal(p.cfg.Output.Basedir), rendered)
	}
	logging.Logf(logging.Debug, "Loading manifest %s", path)
	return schema.LoadManifest(path)
}

// reconcile samples a source file's columns and reconciles them with the
// manifest. The sample consumes a throwaway handle.
func (p *Processor) reconcile(raw *finder.RawFile, manifest schema.RecordSchema, operations map[string]schema.ColumnOperation, metadataSchema schema.RecordSchema) (*schema.Reconciled, error) {
	h, err := p.reader.Open(raw.FullPath, raw.IsArchive)
	if err != nil {
		return nil, err
	}
	columns, err := p.reader.Sample(h)
	h.Close()
	if err != nil {
		return nil, err
	}
	return schema.Reconcile(manifest, operations, columns, metadataSchema, raw.FullPath)
}

// processAggregate converts all discovered files into one committed output.
// The schema is reconciled against the first file; the writer is created
// only after reconciliation succeeds, so a schema mismatch aborts before
// anything is on disk.
func (p *Processor) processAggregate(ctx context.Context, tableName string, table config.TableConfig, dEnd string, searchParams map[string]string, files []*finder.RawFile, manifest schema.RecordSchema, operations map[string]schema.ColumnOperation, metadataSchema schema.RecordSchema) error {
	rec, err := p.reconcile(files[0], manifest, operations, metadataSchema)
	if err != nil {
		return err
	}

	outPath, err := p.outputPath(tableName, table, dEnd, searchParams, nil)
	if err != nil {
		return err
	}
	writer, err := pcio.NewOutputWriter(p.cfg.Output.Writer, outPath, rec.Write)
	if err != nil {
		return err
	}

	index := int64(0)
	wrote := false
	for _, raw := range files {
		nextIndex, fileWrote, err := p.convertFile(ctx, raw, rec, writer, index)
		if err != nil {
			return err
		}
		index = nextIndex
		wrote = wrote || fileWrote
	}
	if !wrote {
		if err := p.writeEmpty(ctx, writer, rec.Write); err != nil {
			return err
		}
	}
	return writer.Close()
}

// processPerFile converts each discovered file into its own committed
// output, reconciling and numbering rows per file.
func (p *Processor) processPerFile(ctx context.Context, tableName string, table config.TableConfig, searchParams map[string]string, files []*finder.RawFile, manifest schema.RecordSchema, operations map[string]schema.ColumnOperation, metadataSchema schema.RecordSchema) error {
	for _, raw := range files {
		rec, err := p.reconcile(raw, manifest, operations, metadataSchema)
		if err != nil {
			return err
		}

		outPath, err := p.outputPath(tableName, table, raw.D, searchParams, raw)
		if err != nil {
			return err
		}
		writer, err := pcio.NewOutputWriter(p.cfg.Output.Writer, outPath, rec.Write)
		if err != nil {
			return err
		}

		_, wrote, err := p.convertFile(ctx, raw, rec, writer, 0)
		if err != nil {
			return err
		}
		if !wrote {
			if err := p.writeEmpty(ctx, writer, rec.Write); err != nil {
				return err
			}
		}
		if err := writer.Close(); err != nil {
			return err
		}
	}
	return nil
}

// convertFile streams one source through the adjuster into the writer.
// Returns the next row index and whether any batch was written.
func (p *Processor) convertFile(ctx context.Context, raw *finder.RawFile, rec *schema.Reconciled, writer pcio.OutputWriter, startIndex int64) (int64, bool, error) {
	fileStart := time.Now()
	logging.Logf(logging.Info, "Converting %s", raw.FullPath)

	h, err := p.reader.Open(raw.FullPath, raw.IsArchive)
	if err != nil {
		return startIndex, false, err
	}
	defer h.Close()

	it, err := p.reader.Read(ctx, h, rec.Read)
	if err != nil {
		return startIndex, false, err
	}
	defer it.Close()

	index := startIndex
	wrote := false
	for {
		b, err := it.Next(ctx)
		if err == stdio.EOF {
			break
		}
		if err != nil {
			return index, wrote, err
		}

		// Synthesize the source-optional columns as typed nulls before
		// metadata is appended.
		for name := range rec.NullFill {
			field, _ := rec.Output.FieldByName(name)
			next, err := b.SetNullColumn(name, field.Type)
			if err != nil {
				return index, wrote, err
			}
			b = next
		}

		b, index, err = p.adjuster.Adjust(ctx, b, raw, index)
		if err != nil {
			return index, wrote, err
		}

		b, err = b.ConformTo(ctx, rec.Write)
		if err != nil {
			return index, wrote, err
		}

		rows := b.NumRows()
		err = writer.Write(ctx, b)
		b.Release()
		if err != nil {
			return index, wrote, err
		}

		wrote = true
		p.numBatches++
		p.numRows += rows
	}

	p.numFiles++
	p.fileTime += time.Since(fileStart)
	logging.Logf(logging.Debug, "Finished %s in %s", raw.FullPath, util.FormatElapsed(time.Since(fileStart)))
	return index, wrote, nil
}

// writeEmpty commits a zero-row batch so a discovered-but-empty source
// still produces a valid output file.
func (p *Processor) writeEmpty(ctx context.Context, writer pcio.OutputWriter, writeSchema schema.RecordSchema) error {
	empty, err := batch.Empty(writeSchema)
	if err != nil {
		return err
	}
	defer empty.Release()
	return writer.Write(ctx, empty)
}

// outputPath renders the output file path for one conversion unit. The
// -output override short-circuits templates entirely.
func (p *Processor) outputPath(tableName string, table config.TableConfig, d string, searchParams map[string]string, raw *finder.RawFile) (string, error) {
	if p.outputOverride != "" {
		return filepath.Join(util.ExpandEnvUniversal(p.outputOverride), fmt.Sprintf("%s_%s.parq", tableName, d)), nil
	}

	template := p.cfg.Output.FileTemplate
	if table.OutputFileTemplate != "" {
		template = table.OutputFileTemplate
	}

	values := map[string]string{"table": tableName}
	if raw != nil {
		for key, value := range raw.DateParts {
			if value != "" {
				values[key] = value
			}
		}
		values["file_name"] = raw.Stem()
		for key, value := range raw.ExtractVars {
			if value != nil {
				values[key] = fmt.Sprintf("%v", value)
			}
		}
	} else {
		for key, value := range finder.DatePartsFromIdentifier(d, p.cfg.Input.FileType) {
			if value != "" {
				values[key] = value
			}
		}
	}
	for key, value := range searchParams {
		values[key] = value
	}

	rendered, err := renderTemplate(template, values)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(rendered) {
		return rendered, nil
	}
	return filepath.Join(util.ExpandEnvUniversal(p.cfg.Output.Basedir), rendered), nil
}

var placeholderRegex = regexp.MustCompile(`\{(\w+)\}`)

// renderTemplate substitutes {key} placeholders, erroring on any the values
// map cannot resolve.
func renderTemplate(template string, values map[string]string) (string, error) {
	var missing []string
	rendered := placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := values[key]; ok {
			return value
		}
		missing = append(missing, key)
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: template '%s' references unresolved placeholders %v", errs.ErrConfig, template, missing)
	}
	return rendered, nil
}
