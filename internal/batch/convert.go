package batch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
)

// ToArrowType maps a column type onto its Arrow data type.
func ToArrowType(t schema.ColumnType) (arrow.DataType, error) {
	switch typ := t.(type) {
	case schema.LogicalType:
		switch typ {
		case schema.String:
			return arrow.BinaryTypes.String, nil
		case schema.Int64:
			return arrow.PrimitiveTypes.Int64, nil
		case schema.Double:
			return arrow.PrimitiveTypes.Float64, nil
		case schema.Date32:
			return arrow.FixedWidthTypes.Date32, nil
		case schema.Date64:
			return arrow.FixedWidthTypes.Date64, nil
		case schema.Bool:
			return arrow.FixedWidthTypes.Boolean, nil
		}
	case schema.TimestampType:
		unit, err := timestampUnit(typ.Unit)
		if err != nil {
			return nil, err
		}
		return &arrow.TimestampType{Unit: unit, TimeZone: typ.TZ}, nil
	case schema.ListType:
		elem, err := ToArrowType(typ.Elem)
		if err != nil {
			return nil, err
		}
		if typ.ElemNullable {
			return arrow.ListOf(elem), nil
		}
		return arrow.ListOfNonNullable(elem), nil
	}
	return nil, fmt.Errorf("%w: no backend mapping for column type '%s'", errs.ErrConfig, t)
}

func timestampUnit(unit string) (arrow.TimeUnit, error) {
	switch unit {
	case "s":
		return arrow.Second, nil
	case "ms":
		return arrow.Millisecond, nil
	case "us", "":
		return arrow.Microsecond, nil
	case "ns":
		return arrow.Nanosecond, nil
	}
	return 0, fmt.Errorf("%w: unknown timestamp unit '%s'", errs.ErrConfig, unit)
}

// FromArrowType maps an Arrow data type back onto a column type. Integer
// widths below 64 bits widen to INT64 and float32 widens to DOUBLE, so a
// passthrough source with narrower physical types reconciles cleanly.
func FromArrowType(dt arrow.DataType) (schema.ColumnType, error) {
	switch t := dt.(type) {
	case *arrow.StringType, *arrow.LargeStringType:
		return schema.String, nil
	case *arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type,
		*arrow.Uint8Type, *arrow.Uint16Type, *arrow.Uint32Type, *arrow.Uint64Type:
		return schema.Int64, nil
	case *arrow.Float32Type, *arrow.Float64Type:
		return schema.Double, nil
	case *arrow.Date32Type:
		return schema.Date32, nil
	case *arrow.Date64Type:
		return schema.Date64, nil
	case *arrow.BooleanType:
		return schema.Bool, nil
	case *arrow.TimestampType:
		return schema.TimestampType{Unit: t.Unit.String(), TZ: t.TimeZone}, nil
	case *arrow.ListType:
		elem, err := FromArrowType(t.Elem())
		if err != nil {
			return nil, err
		}
		return schema.ListType{Elem: elem, ElemNullable: t.ElemField().Nullable}, nil
	}
	return nil, fmt.Errorf("%w: unsupported source column type '%s'", errs.ErrStream, dt)
}

// ToArrowSchema converts a record schema into its Arrow form.
func ToArrowSchema(s schema.RecordSchema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		dt, err := ToArrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FromArrowSchema converts an Arrow schema into a record schema.
func FromArrowSchema(s *arrow.Schema) (schema.RecordSchema, error) {
	fields := make([]schema.Field, s.NumFields())
	for i := 0; i < s.NumFields(); i++ {
		f := s.Field(i)
		t, err := FromArrowType(f.Type)
		if err != nil {
			return schema.RecordSchema{}, fmt.Errorf("column '%s': %w", f.Name, err)
		}
		fields[i] = schema.Field{Name: f.Name, Type: t, Nullable: f.Nullable}
	}
	return schema.RecordSchema{Fields: fields}, nil
}

// CoerceTimestamp converts a value into a UTC time for a timestamp column.
func CoerceTimestamp(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse '%s' as a timestamp", v)
	}
	return time.Time{}, fmt.Errorf("cannot use %T as a timestamp", value)
}

// CoerceDate converts a value into a date for a date column.
func CoerceDate(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{"2006-01-02", "20060102"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse '%s' as a date", v)
	}
	return time.Time{}, fmt.Errorf("cannot use %T as a date", value)
}

// CoerceInt64 converts a value into an int64.
func CoerceInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("cannot use %T as an int64", value)
}

// CoerceFloat64 converts a value into a float64.
func CoerceFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("cannot use %T as a float64", value)
}

// CoerceBool converts a value into a bool.
func CoerceBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	}
	return false, fmt.Errorf("cannot use %T as a bool", value)
}

// CoerceString converts a value into its string form.
func CoerceString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
