// Package adjuster appends metadata columns to batches as they stream from
// a source toward the output writer: configured additional columns first, in
// declaration order, then the standard provenance columns (_source_file,
// _source_file_mtime, _creation_time, _knowledge_time, _knowledge_date,
// _index). Knowledge time is the instant the file's contents became known,
// derived from the path's date components, the file's modification time, or
// a timestamp inside the file's header line.
package adjuster

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/finder"
	"parqconvert/internal/schema"
)

// Adjuster appends metadata columns to one batch. startIndex seeds the
// _index column; the returned index is where the next batch continues, so
// aggregated outputs number rows monotonically across files. Adjust takes
// over the caller's reference to b.
type Adjuster interface {
	Adjust(ctx context.Context, b *batch.Batch, raw *finder.RawFile, startIndex int64) (*batch.Batch, int64, error)
}

// metadataColumn is one compiled additional-metadata column.
type metadataColumn struct {
	name       string
	sourceKind string // "extract_vars", "metadata", or "column"
	sourceKey  string
	typ        schema.ColumnType
	expr       *govaluate.EvaluableExpression
}

// Standard appends the configured metadata columns with knowledge time
// derived from filename date components or the file's mtime.
type Standard struct {
	md      config.MetadataConfig
	columns []metadataColumn
	loc     *time.Location

	// knowledgeTime may be overridden by wrapping adjusters.
	knowledgeTime func(raw *finder.RawFile) (time.Time, error)
}

// NewStandard compiles the metadata configuration: column types are parsed,
// expressions are compiled, and the knowledge-time timezone is resolved, so
// misconfiguration surfaces before any file is processed.
func NewStandard(md config.MetadataConfig) (*Standard, error) {
	s := &Standard{md: md, loc: time.UTC}

	if kt := md.KnowledgeTime; kt != nil && kt.TZ != "" {
		loc, err := time.LoadLocation(kt.TZ)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown knowledge-time timezone '%s'", errs.ErrConfig, kt.TZ)
		}
		s.loc = loc
	}

	for _, field := range md.AdditionalMetadata {
		kind, key, ok := strings.Cut(field.Source, ".")
		if !ok {
			return nil, fmt.Errorf("%w: additional metadata column '%s' has malformed source '%s'", errs.ErrConfig, field.Name, field.Source)
		}
		typ, err := schema.ParseType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("additional metadata column '%s': %w", field.Name, err)
		}
		col := metadataColumn{name: field.Name, sourceKind: kind, sourceKey: key, typ: typ}
		if field.Expr != "" {
			expr, err := govaluate.NewEvaluableExpression(field.Expr)
			if err != nil {
				return nil, fmt.Errorf("%w: additional metadata column '%s' has invalid expr '%s': %v", errs.ErrConfig, field.Name, field.Expr, err)
			}
			col.expr = expr
		}
		s.columns = append(s.columns, col)
	}

	s.knowledgeTime = s.defaultKnowledgeTime
	return s, nil
}

// Adjust appends the additional columns, then the standard provenance
// columns when enabled.
func (s *Standard) Adjust(ctx context.Context, b *batch.Batch, raw *finder.RawFile, startIndex int64) (*batch.Batch, int64, error) {
	out := b
	for _, col := range s.columns {
		next, err := s.appendMetadataColumn(out, col, raw)
		if err != nil {
			return nil, startIndex, err
		}
		out = next
	}

	if !s.md.Standard() {
		return out, startIndex, nil
	}

	kt, err := s.knowledgeTime(raw)
	if err != nil {
		return nil, startIndex, err
	}

	constants := []struct {
		name  string
		typ   schema.ColumnType
		value interface{}
	}{
		{schema.ColSourceFile, schema.String, raw.FullName},
		{schema.ColSourceFileMtime, schema.TimestampUS("UTC"), raw.Meta.Mtime},
		{schema.ColCreationTime, schema.TimestampUS("UTC"), raw.CreationTime},
		{schema.ColKnowledgeTime, schema.TimestampUS("UTC"), kt.UTC()},
		// The knowledge date is the UTC calendar date of the knowledge
		// time, not the date in the configured zone.
		{schema.ColKnowledgeDate, schema.Date32, civilDate(kt.UTC())},
	}
	for _, c := range constants {
		next, err := out.AppendConstant(c.name, c.typ, true, c.value)
		if err != nil {
			return nil, startIndex, err
		}
		out = next
	}

	rows := out.NumRows()
	out, err = out.AppendRange(schema.ColIndex, startIndex)
	if err != nil {
		return nil, startIndex, err
	}
	return out, startIndex + rows, nil
}

// appendMetadataColumn appends one additional column from its source.
func (s *Standard) appendMetadataColumn(b *batch.Batch, col metadataColumn, raw *finder.RawFile) (*batch.Batch, error) {
	switch col.sourceKind {
	case "extract_vars":
		value, ok := raw.ExtractVars[col.sourceKey]
		if !ok {
			return b.AppendConstant(col.name, col.typ, true, nil)
		}
		value, err := s.applyExpr(col, value)
		if err != nil {
			return nil, err
		}
		return b.AppendConstant(col.name, col.typ, true, value)

	case "metadata":
		value, ok := raw.Meta.Value(col.sourceKey)
		if !ok {
			return nil, fmt.Errorf("%w: additional metadata column '%s' references unknown metadata field '%s'", errs.ErrConfig, col.name, col.sourceKey)
		}
		value, err := s.applyExpr(col, value)
		if err != nil {
			return nil, err
		}
		return b.AppendConstant(col.name, col.typ, true, value)

	case "column":
		src, err := b.Column(col.sourceKey)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, src.Len())
		for row := 0; row < src.Len(); row++ {
			value, err := s.applyExpr(col, batch.ColumnValue(src, row))
			if err != nil {
				return nil, fmt.Errorf("column '%s' row %d: %w", col.name, row, err)
			}
			values[row] = value
		}
		arr, err := batch.ScalarColumn(col.typ, values)
		if err != nil {
			return nil, fmt.Errorf("%w: building metadata column '%s': %v", errs.ErrStream, col.name, err)
		}
		return b.AppendColumn(col.name, true, arr)

	default:
		return nil, fmt.Errorf("%w: additional metadata column '%s' has unknown source kind '%s'", errs.ErrConfig, col.name, col.sourceKind)
	}
}

// applyExpr runs the column's expression, binding the source value to the
// "value" variable. Null inputs stay null without evaluating.
func (s *Standard) applyExpr(col metadataColumn, value interface{}) (interface{}, error) {
	if col.expr == nil || value == nil {
		return value, nil
	}
	// govaluate arithmetic works on float64; widen integer inputs.
	if i, ok := value.(int64); ok {
		value = float64(i)
	}
	result, err := col.expr.Evaluate(map[string]interface{}{"value": value})
	if err != nil {
		return nil, fmt.Errorf("%w: evaluating expr for metadata column '%s': %v", errs.ErrStream, col.name, err)
	}
	return result, nil
}

// defaultKnowledgeTime derives knowledge time from the path's date
// components or from the file's modification time, per configuration.
func (s *Standard) defaultKnowledgeTime(raw *finder.RawFile) (time.Time, error) {
	from := config.KnowledgeTimeFromFileName
	if kt := s.md.KnowledgeTime; kt != nil && kt.From != "" {
		from = kt.From
	}
	switch from {
	case config.KnowledgeTimeFromFileMtime:
		return raw.Meta.Mtime.In(s.loc), nil
	case config.KnowledgeTimeFromFileName:
		return knowledgeTimeFromParts(raw, s.loc)
	}
	return time.Time{}, fmt.Errorf("%w: unknown knowledge-time source '%s'", errs.ErrConfig, from)
}

// knowledgeTimeFromParts assembles a wall-clock instant from the date
// components extracted from the path. The day defaults to 1 and clock
// components to 0, so monthly files land on the first of the month at
// midnight. Sub-second precision prefers microseconds over milliseconds.
func knowledgeTimeFromParts(raw *finder.RawFile, loc *time.Location) (time.Time, error) {
	parts := raw.DateParts
	if parts["YYYY"] == "" || parts["MM"] == "" {
		return time.Time{}, fmt.Errorf("%w: '%s' has no date components to derive knowledge time from", errs.ErrStream, raw.FullPath)
	}
	year := atoiOr(parts["YYYY"], 0)
	month := atoiOr(parts["MM"], 1)
	day := atoiOr(parts["DD"], 1)
	hour := atoiOr(parts["hh"], 0)
	minute := atoiOr(parts["mm"], 0)
	second := atoiOr(parts["ss"], 0)

	micros := 0
	switch {
	case parts["us"] != "":
		micros = atoiOr(parts["us"], 0)
	case parts["ms"] != "":
		micros = atoiOr(parts["ms"], 0) * 1000
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, micros*1000, loc), nil
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// civilDate strips the clock from an instant, yielding its calendar date
// in the instant's own zone as a UTC midnight (what a date column stores).
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
