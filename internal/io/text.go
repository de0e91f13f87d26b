package io

import (
	"context"
	"fmt"
	stdio "io"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
)

// dateLayouts and timestampLayouts are the builtin layouts tried for date
// and timestamp cells; reader options may extend them.
var (
	dateLayouts      = []string{"2006-01-02", "20060102"}
	timestampLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
)

// rowSource yields one source row at a time, returning io.EOF when the rows
// run out. Implemented by the csv and xlsx readers.
type rowSource interface {
	nextRow() ([]string, error)
	close() error
}

// textBatchBuilder accumulates parsed rows into Arrow builders, one per
// source column. Columns named in the read schema parse to their declared
// types; everything else stays string.
type textBatchBuilder struct {
	path     string
	opts     *config.ReaderOptions
	fields   []arrow.Field
	builders []array.Builder
	rows     int
}

func newTextBatchBuilder(path string, header []string, readSchema schema.RecordSchema, opts *config.ReaderOptions) (*textBatchBuilder, error) {
	mem := memory.DefaultAllocator
	b := &textBatchBuilder{
		path:     path,
		opts:     opts,
		fields:   make([]arrow.Field, len(header)),
		builders: make([]array.Builder, len(header)),
	}
	for i, name := range header {
		var typ schema.ColumnType = schema.String
		if f, ok := readSchema.FieldByName(name); ok {
			typ = f.Type
		}
		if _, isList := typ.(schema.ListType); isList {
			return nil, fmt.Errorf("%w: column '%s' in '%s' declares a list type, which text sources cannot carry", errs.ErrConfig, name, path)
		}
		dt, err := batch.ToArrowType(typ)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", name, err)
		}
		b.fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
		b.builders[i] = array.NewBuilder(mem, dt)
	}
	return b, nil
}

func (b *textBatchBuilder) release() {
	for _, bld := range b.builders {
		bld.Release()
	}
}

// appendRow parses one row's cells into the builders. Rows shorter than the
// header fill nulls for the trailing columns; longer rows are an error.
func (b *textBatchBuilder) appendRow(row []string, rowNum int) error {
	if len(row) > len(b.fields) {
		return fmt.Errorf("%w: '%s' row %d has %d cells, header has %d columns", errs.ErrStream, b.path, rowNum, len(row), len(b.fields))
	}
	for i, bld := range b.builders {
		if i >= len(row) || b.opts.IsNull(row[i]) {
			bld.AppendNull()
			continue
		}
		if err := b.appendCell(bld, row[i]); err != nil {
			return fmt.Errorf("%w: '%s' row %d column '%s': %v", errs.ErrStream, b.path, rowNum, b.fields[i].Name, err)
		}
	}
	b.rows++
	return nil
}

func (b *textBatchBuilder) appendCell(builder array.Builder, cell string) error {
	switch bld := builder.(type) {
	case *array.StringBuilder:
		bld.Append(cell)
	case *array.Int64Builder:
		v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse '%s' as int64", cell)
		}
		bld.Append(v)
	case *array.Float64Builder:
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return fmt.Errorf("cannot parse '%s' as double", cell)
		}
		bld.Append(v)
	case *array.BooleanBuilder:
		v, ok := b.opts.ParseBool(strings.TrimSpace(cell))
		if !ok {
			return fmt.Errorf("cannot parse '%s' as bool", cell)
		}
		bld.Append(v)
	case *array.Date32Builder:
		t, err := b.parseDate(cell)
		if err != nil {
			return err
		}
		bld.Append(arrow.Date32FromTime(t))
	case *array.Date64Builder:
		t, err := b.parseDate(cell)
		if err != nil {
			return err
		}
		bld.Append(arrow.Date64FromTime(t))
	case *array.TimestampBuilder:
		t, err := b.parseTimestamp(cell)
		if err != nil {
			return err
		}
		unit := bld.Type().(*arrow.TimestampType).Unit
		ts, err := arrow.TimestampFromTime(t, unit)
		if err != nil {
			return err
		}
		bld.Append(ts)
	default:
		return fmt.Errorf("unsupported builder for type %s", builder.Type())
	}
	return nil
}

func (b *textBatchBuilder) parseDate(cell string) (time.Time, error) {
	layouts := dateLayouts
	if b.opts != nil && len(b.opts.DateLayouts) > 0 {
		layouts = append(b.opts.DateLayouts, dateLayouts...)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse '%s' as a date", cell)
}

func (b *textBatchBuilder) parseTimestamp(cell string) (time.Time, error) {
	layouts := timestampLayouts
	if b.opts != nil && len(b.opts.TimestampLayouts) > 0 {
		layouts = append(b.opts.TimestampLayouts, timestampLayouts...)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse '%s' as a timestamp", cell)
}

// flush drains the builders into one batch. With zero accumulated rows it
// still emits a valid empty batch; callers decide whether to forward it.
func (b *textBatchBuilder) flush() *batch.Batch {
	cols := make([]arrow.Array, len(b.builders))
	for i, bld := range b.builders {
		cols[i] = bld.NewArray()
	}
	rec := array.NewRecord(arrow.NewSchema(b.fields, nil), cols, int64(b.rows))
	for _, col := range cols {
		col.Release()
	}
	b.rows = 0
	return batch.New(rec)
}

// textIterator drives a rowSource through the batch builder, honoring the
// footer-skip window: the last skipFooter rows of the source are withheld,
// which requires buffering that many rows ahead.
type textIterator struct {
	source    rowSource
	builder   *textBatchBuilder
	batchRows int
	footer    [][]string
	skip      int
	rowNum    int
	done      bool
}

func newTextIterator(source rowSource, builder *textBatchBuilder, opts *config.ReaderOptions) *textIterator {
	skip := 0
	if opts != nil {
		skip = opts.SkipFooter
	}
	return &textIterator{
		source:    source,
		builder:   builder,
		batchRows: opts.EffectiveBatchRows(),
		skip:      skip,
	}
}

func (it *textIterator) Next(ctx context.Context) (*batch.Batch, error) {
	if it.done {
		return nil, stdio.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := it.source.nextRow()
		if err == stdio.EOF {
			it.done = true
			if it.builder.rows == 0 {
				return nil, stdio.EOF
			}
			return it.builder.flush(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading '%s': %v", errs.ErrStream, it.builder.path, err)
		}

		// Hold the newest skipFooter rows back; only the row falling out of
		// the window is committed.
		if it.skip > 0 {
			it.footer = append(it.footer, row)
			if len(it.footer) <= it.skip {
				continue
			}
			row = it.footer[0]
			it.footer = it.footer[1:]
		}

		it.rowNum++
		if err := it.builder.appendRow(row, it.rowNum); err != nil {
			return nil, err
		}
		if it.builder.rows >= it.batchRows {
			return it.builder.flush(), nil
		}
	}
}

func (it *textIterator) Close() error {
	it.builder.release()
	return it.source.close()
}
