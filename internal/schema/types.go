// Package schema defines the backend-independent logical type system, the
// manifest document model, and schema reconciliation. Nothing in this package
// knows about a concrete columnar backend; conversion to backend schemas is
// the batch package's job.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the closed set of logical column types: scalar LogicalType,
// TimestampType, and (recursively) ListType. All implementations are
// immutable value types that render back to the manifest type grammar via
// String().
type ColumnType interface {
	fmt.Stringer
	isColumnType()
}

// LogicalType is a backend-independent scalar type.
type LogicalType string

// Scalar logical types.
const (
	String LogicalType = "string"
	Int64  LogicalType = "int64"
	Double LogicalType = "double"
	Date32 LogicalType = "date32"
	Date64 LogicalType = "date64"
	Bool   LogicalType = "bool"
)

func (t LogicalType) String() string { return string(t) }
func (LogicalType) isColumnType()    {}

// TimestampType is a timestamp with a fixed unit and an optional timezone.
// An empty TZ means a naive timestamp. Two timestamp types are equal iff
// both unit and timezone string match exactly.
type TimestampType struct {
	Unit string // only "us" is produced by this system
	TZ   string // "" for naive, otherwise an IANA zone name or "UTC"
}

// TimestampUS returns the microsecond timestamp type with the given zone.
func TimestampUS(tz string) TimestampType {
	return TimestampType{Unit: "us", TZ: tz}
}

func (t TimestampType) String() string {
	if t.TZ != "" {
		return fmt.Sprintf("timestamp[%s, tz=%s]", t.Unit, t.TZ)
	}
	return fmt.Sprintf("timestamp[%s]", t.Unit)
}
func (TimestampType) isColumnType() {}

// ListType is a list whose elements all share one type. Elements may
// themselves be lists.
type ListType struct {
	Elem         ColumnType
	ElemNullable bool
}

func (t ListType) String() string {
	suffix := ""
	if !t.ElemNullable {
		suffix = " not null"
	}
	return fmt.Sprintf("list<%s%s>", t.Elem.String(), suffix)
}
func (ListType) isColumnType() {}

// Field is a named, typed column definition.
type Field struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// RecordSchema is an ordered sequence of fields. Order is significant: it
// defines output column order. Names must be unique within a schema.
type RecordSchema struct {
	Fields []Field
}

// Names returns all column names in schema order.
func (s RecordSchema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldByName returns the field with the given name, if present.
func (s RecordSchema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// String renders the schema as "name: type" pairs for log messages.
func (s RecordSchema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		nullability := ""
		if !f.Nullable {
			nullability = " not null"
		}
		parts[i] = fmt.Sprintf("%s: %s%s", f.Name, f.Type, nullability)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ColumnOperation is the per-column reconciliation policy attached by the
// manifest. Operations are independent of nullability.
type ColumnOperation string

// Column operations.
const (
	// SourceRequired columns must exist in the source file.
	SourceRequired ColumnOperation = "source_required"
	// SourceOptional columns are never requested from the reader; they are
	// synthesized as typed nulls in the output.
	SourceOptional ColumnOperation = "source_optional"
	// OutputIgnored columns never appear in the output, present or not.
	OutputIgnored ColumnOperation = "output_ignored"
)

// ParseColumnOperation validates a manifest operation string, defaulting an
// empty string to SourceRequired.
func ParseColumnOperation(s string) (ColumnOperation, error) {
	switch ColumnOperation(s) {
	case "":
		return SourceRequired, nil
	case SourceRequired, SourceOptional, OutputIgnored:
		return ColumnOperation(s), nil
	default:
		return "", fmt.Errorf("unknown column operation '%s'", s)
	}
}
