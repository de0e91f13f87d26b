// Package batch wraps columnar record batches and the column-level
// operations the pipeline applies to them: appending constant and range
// metadata columns, replacing and casting columns, and projecting a batch
// onto a write schema. Apache Arrow is the in-memory representation; the
// rest of the pipeline talks to this package in terms of the schema types
// from internal/schema.
package batch

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
)

// Batch is one record batch flowing through the pipeline. It owns its
// underlying record; Release must be called exactly once when the batch is
// no longer needed. The transformation methods return a new Batch and
// release the receiver, so a linear pipeline never leaks.
type Batch struct {
	rec arrow.Record
	mem memory.Allocator
}

// New wraps a record. The batch takes over the caller's reference.
func New(rec arrow.Record) *Batch {
	return &Batch{rec: rec, mem: memory.DefaultAllocator}
}

// Empty builds a zero-row batch with the given schema. A source carrying a
// header but no rows still commits an output file this way.
func Empty(s schema.RecordSchema) (*Batch, error) {
	arrowSchema, err := ToArrowSchema(s)
	if err != nil {
		return nil, err
	}
	mem := memory.DefaultAllocator
	cols := make([]arrow.Array, arrowSchema.NumFields())
	for i := 0; i < arrowSchema.NumFields(); i++ {
		builder := array.NewBuilder(mem, arrowSchema.Field(i).Type)
		cols[i] = builder.NewArray()
		builder.Release()
	}
	rec := array.NewRecord(arrowSchema, cols, 0)
	for _, col := range cols {
		col.Release()
	}
	return New(rec), nil
}

// NumRows returns the number of rows in the batch.
func (b *Batch) NumRows() int64 { return b.rec.NumRows() }

// Schema returns the batch's Arrow schema.
func (b *Batch) Schema() *arrow.Schema { return b.rec.Schema() }

// Record exposes the underlying Arrow record, still owned by the batch.
func (b *Batch) Record() arrow.Record { return b.rec }

// Release frees the underlying record's buffers.
func (b *Batch) Release() { b.rec.Release() }

// Column returns the named column, or an error naming the column when the
// batch does not carry it.
func (b *Batch) Column(name string) (arrow.Array, error) {
	indices := b.rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: batch has no column '%s'", errs.ErrStream, name)
	}
	return b.rec.Column(indices[0]), nil
}

// HasColumn reports whether the batch carries the named column.
func (b *Batch) HasColumn(name string) bool {
	return len(b.rec.Schema().FieldIndices(name)) > 0
}

// rebuild constructs a new batch from fields and columns and releases the
// receiver.
func (b *Batch) rebuild(fields []arrow.Field, cols []arrow.Array, nrows int64) *Batch {
	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, nrows)
	for _, col := range cols {
		col.Release()
	}
	b.rec.Release()
	return &Batch{rec: rec, mem: b.mem}
}

// currentColumns returns retained copies of the batch's fields and columns.
func (b *Batch) currentColumns() ([]arrow.Field, []arrow.Array) {
	n := int(b.rec.NumCols())
	fields := make([]arrow.Field, n)
	cols := make([]arrow.Array, n)
	for i := 0; i < n; i++ {
		fields[i] = b.rec.Schema().Field(i)
		col := b.rec.Column(i)
		col.Retain()
		cols[i] = col
	}
	return fields, cols
}

// AppendConstant appends a column of the declared type whose every row holds
// the same value. A nil value produces an all-null column.
func (b *Batch) AppendConstant(name string, typ schema.ColumnType, nullable bool, value interface{}) (*Batch, error) {
	dt, err := ToArrowType(typ)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", name, err)
	}
	col, err := buildConstant(b.mem, dt, value, int(b.rec.NumRows()))
	if err != nil {
		return nil, fmt.Errorf("%w: building constant column '%s': %v", errs.ErrStream, name, err)
	}

	fields, cols := b.currentColumns()
	fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: nullable})
	cols = append(cols, col)
	return b.rebuild(fields, cols, b.rec.NumRows()), nil
}

// AppendNullColumn appends an all-null column of the declared type. Used to
// materialize source-optional columns missing from a file.
func (b *Batch) AppendNullColumn(name string, typ schema.ColumnType) (*Batch, error) {
	return b.AppendConstant(name, typ, true, nil)
}

// SetNullColumn forces the named column to all nulls of the declared type,
// replacing it when the batch carries it and appending it when absent.
// Source-optional columns are synthesized, never read, so any values the
// source happens to hold for them are discarded here.
func (b *Batch) SetNullColumn(name string, typ schema.ColumnType) (*Batch, error) {
	if !b.HasColumn(name) {
		return b.AppendNullColumn(name, typ)
	}
	dt, err := ToArrowType(typ)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", name, err)
	}
	col, err := buildConstant(b.mem, dt, nil, int(b.rec.NumRows()))
	if err != nil {
		return nil, fmt.Errorf("%w: building null column '%s': %v", errs.ErrStream, name, err)
	}
	return b.ReplaceColumn(name, col)
}

// AppendRange appends an INT64 column counting from start upward, one value
// per row.
func (b *Batch) AppendRange(name string, start int64) (*Batch, error) {
	builder := array.NewInt64Builder(b.mem)
	defer builder.Release()
	n := b.rec.NumRows()
	builder.Reserve(int(n))
	for i := int64(0); i < n; i++ {
		builder.Append(start + i)
	}
	col := builder.NewArray()

	fields, cols := b.currentColumns()
	fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: false})
	cols = append(cols, col)
	return b.rebuild(fields, cols, b.rec.NumRows()), nil
}

// AppendColumn appends a prebuilt column. The batch takes over the caller's
// reference to arr.
func (b *Batch) AppendColumn(name string, nullable bool, arr arrow.Array) (*Batch, error) {
	if int64(arr.Len()) != b.rec.NumRows() {
		arr.Release()
		return nil, fmt.Errorf("%w: column '%s' has %d rows, batch has %d", errs.ErrStream, name, arr.Len(), b.rec.NumRows())
	}
	fields, cols := b.currentColumns()
	fields = append(fields, arrow.Field{Name: name, Type: arr.DataType(), Nullable: nullable})
	cols = append(cols, arr)
	return b.rebuild(fields, cols, b.rec.NumRows()), nil
}

// ReplaceColumn swaps the named column for a prebuilt one, keeping its
// position and nullability. The batch takes over the caller's reference.
func (b *Batch) ReplaceColumn(name string, arr arrow.Array) (*Batch, error) {
	indices := b.rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		arr.Release()
		return nil, fmt.Errorf("%w: batch has no column '%s' to replace", errs.ErrStream, name)
	}
	if int64(arr.Len()) != b.rec.NumRows() {
		arr.Release()
		return nil, fmt.Errorf("%w: replacement for '%s' has %d rows, batch has %d", errs.ErrStream, name, arr.Len(), b.rec.NumRows())
	}
	idx := indices[0]

	fields, cols := b.currentColumns()
	cols[idx].Release()
	cols[idx] = arr
	fields[idx].Type = arr.DataType()
	return b.rebuild(fields, cols, b.rec.NumRows()), nil
}

// CastColumn casts the named column to the declared type in place.
func (b *Batch) CastColumn(ctx context.Context, name string, typ schema.ColumnType) (*Batch, error) {
	dt, err := ToArrowType(typ)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", name, err)
	}
	col, err := b.Column(name)
	if err != nil {
		return nil, err
	}
	if arrow.TypeEqual(col.DataType(), dt) {
		return b, nil
	}
	cast, err := compute.CastArray(ctx, col, compute.SafeCastOptions(dt))
	if err != nil {
		return nil, fmt.Errorf("%w: casting column '%s' to %s: %v", errs.ErrStream, name, dt, err)
	}
	return b.ReplaceColumn(name, cast)
}

// Select projects the batch onto the named columns, in order. Every name
// must be present.
func (b *Batch) Select(names []string) (*Batch, error) {
	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	for i, name := range names {
		indices := b.rec.Schema().FieldIndices(name)
		if len(indices) == 0 {
			for _, col := range cols[:i] {
				col.Release()
			}
			return nil, fmt.Errorf("%w: projection references missing column '%s'", errs.ErrStream, name)
		}
		fields[i] = b.rec.Schema().Field(indices[0])
		col := b.rec.Column(indices[0])
		col.Retain()
		cols[i] = col
	}
	return b.rebuild(fields, cols, b.rec.NumRows()), nil
}

// ConformTo casts every batch column that appears in the target schema to
// its declared type, then projects onto the target's column order. Columns
// the batch carries beyond the target are dropped.
func (b *Batch) ConformTo(ctx context.Context, target schema.RecordSchema) (*Batch, error) {
	out := b
	for _, f := range target.Fields {
		if !out.HasColumn(f.Name) {
			return nil, fmt.Errorf("%w: batch is missing column '%s'", errs.ErrStream, f.Name)
		}
		next, err := out.CastColumn(ctx, f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out.Select(target.Names())
}

// buildConstant materializes a single-valued column of length n. A nil
// value yields n nulls.
func buildConstant(mem memory.Allocator, dt arrow.DataType, value interface{}, n int) (arrow.Array, error) {
	builder := array.NewBuilder(mem, dt)
	defer builder.Release()
	builder.Reserve(n)

	if value == nil {
		for i := 0; i < n; i++ {
			builder.AppendNull()
		}
		return builder.NewArray(), nil
	}

	appendOne, err := constantAppender(builder, dt, value)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		appendOne()
	}
	return builder.NewArray(), nil
}

// constantAppender coerces the value for the target type once and returns a
// closure appending it.
func constantAppender(builder array.Builder, dt arrow.DataType, value interface{}) (func(), error) {
	switch bld := builder.(type) {
	case *array.StringBuilder:
		s := CoerceString(value)
		return func() { bld.Append(s) }, nil
	case *array.Int64Builder:
		v, err := CoerceInt64(value)
		if err != nil {
			return nil, err
		}
		return func() { bld.Append(v) }, nil
	case *array.Float64Builder:
		v, err := CoerceFloat64(value)
		if err != nil {
			return nil, err
		}
		return func() { bld.Append(v) }, nil
	case *array.BooleanBuilder:
		v, err := CoerceBool(value)
		if err != nil {
			return nil, err
		}
		return func() { bld.Append(v) }, nil
	case *array.Date32Builder:
		t, err := CoerceDate(value)
		if err != nil {
			return nil, err
		}
		d := arrow.Date32FromTime(t)
		return func() { bld.Append(d) }, nil
	case *array.Date64Builder:
		t, err := CoerceDate(value)
		if err != nil {
			return nil, err
		}
		d := arrow.Date64FromTime(t)
		return func() { bld.Append(d) }, nil
	case *array.TimestampBuilder:
		t, err := CoerceTimestamp(value)
		if err != nil {
			return nil, err
		}
		ts, err := arrow.TimestampFromTime(t, dt.(*arrow.TimestampType).Unit)
		if err != nil {
			return nil, err
		}
		return func() { bld.Append(ts) }, nil
	}
	return nil, fmt.Errorf("cannot build a constant column of type %s", dt)
}

// ScalarColumn builds a column from per-row values already coerced to the
// declared type's Go form; nil entries become nulls. Used by metadata
// expressions evaluated row by row.
func ScalarColumn(typ schema.ColumnType, values []interface{}) (arrow.Array, error) {
	dt, err := ToArrowType(typ)
	if err != nil {
		return nil, err
	}
	builder := array.NewBuilder(memory.DefaultAllocator, dt)
	defer builder.Release()
	builder.Reserve(len(values))

	for _, v := range values {
		if v == nil {
			builder.AppendNull()
			continue
		}
		if err := appendScalar(builder, dt, v); err != nil {
			return nil, err
		}
	}
	return builder.NewArray(), nil
}

func appendScalar(builder array.Builder, dt arrow.DataType, value interface{}) error {
	switch bld := builder.(type) {
	case *array.StringBuilder:
		bld.Append(CoerceString(value))
	case *array.Int64Builder:
		v, err := CoerceInt64(value)
		if err != nil {
			return err
		}
		bld.Append(v)
	case *array.Float64Builder:
		v, err := CoerceFloat64(value)
		if err != nil {
			return err
		}
		bld.Append(v)
	case *array.BooleanBuilder:
		v, err := CoerceBool(value)
		if err != nil {
			return err
		}
		bld.Append(v)
	case *array.Date32Builder:
		t, err := CoerceDate(value)
		if err != nil {
			return err
		}
		bld.Append(arrow.Date32FromTime(t))
	case *array.Date64Builder:
		t, err := CoerceDate(value)
		if err != nil {
			return err
		}
		bld.Append(arrow.Date64FromTime(t))
	case *array.TimestampBuilder:
		t, err := CoerceTimestamp(value)
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, dt.(*arrow.TimestampType).Unit)
		if err != nil {
			return err
		}
		bld.Append(ts)
	default:
		return fmt.Errorf("cannot append a scalar of type %s", dt)
	}
	return nil
}

// ColumnValue reads one cell back as a Go value; nulls come back as nil.
// Used when a metadata expression consumes an existing column.
func ColumnValue(arr arrow.Array, row int) interface{} {
	if arr.IsNull(row) {
		return nil
	}
	switch col := arr.(type) {
	case *array.String:
		return col.Value(row)
	case *array.Int64:
		return col.Value(row)
	case *array.Float64:
		return col.Value(row)
	case *array.Boolean:
		return col.Value(row)
	case *array.Date32:
		return col.Value(row).ToTime()
	case *array.Date64:
		return col.Value(row).ToTime()
	case *array.Timestamp:
		unit := col.DataType().(*arrow.TimestampType).Unit
		return col.Value(row).ToTime(unit)
	default:
		return arr.ValueStr(row)
	}
}
