package schema

import (
	"fmt"
	"strings"

	"parqconvert/internal/errs"
)

// typeLexicon maps bare grammar tokens (and their common synonyms) to scalar
// logical types.
var typeLexicon = map[string]LogicalType{
	"string":  String,
	"int":     Int64,
	"int64":   Int64,
	"double":  Double,
	"float":   Double,
	"float64": Double,
	"real":    Double,
	"decimal": Double,
	"numeric": Double,
	"number":  Double,
	"date32":  Date32,
	"date64":  Date64,
	"date":    Date64,
	"bool":    Bool,
}

// ParseType parses the compact textual type grammar into a ColumnType.
//
// Accepted productions:
//
//	string | int64 | double | date32 | date64 | bool   (plus synonyms)
//	timestamp | timestamp[us] | timestamp[us, tz=UTC]
//	list<inner> | list<inner not null> | list<list<...>>
//
// The first token before '[' or '<' disambiguates the production. Unknown
// tokens are a hard ErrConfig error, never silently defaulted. A trailing
// " not null" on a scalar is stripped; field nullability is the caller's
// concern.
func ParseType(typeStr string) (ColumnType, error) {
	s := strings.TrimSpace(typeStr)

	if s == "timestamp" || strings.HasPrefix(s, "timestamp[") {
		return parseTimestamp(s)
	}
	if strings.HasPrefix(s, "list<") {
		return parseList(s)
	}

	clean := strings.TrimSpace(strings.TrimSuffix(s, " not null"))
	if t, ok := typeLexicon[clean]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: unknown dtype '%s'", errs.ErrConfig, clean)
}

// parseTimestamp handles "timestamp" with an optional bracketed parameter
// list: a positional unit and a named tz (e.g. "timestamp[us, tz=UTC]").
func parseTimestamp(s string) (ColumnType, error) {
	if s == "timestamp" {
		return TimestampType{Unit: "us"}, nil
	}
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: malformed timestamp type '%s'", errs.ErrConfig, s)
	}
	params := s[len("timestamp[") : len(s)-1]

	unit := "us"
	tz := ""
	for _, param := range strings.Split(params, ",") {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}
		if key, value, found := strings.Cut(param, "="); found {
			if strings.TrimSpace(key) == "tz" {
				tz = strings.TrimSpace(value)
			}
			continue
		}
		unit = param
	}
	return TimestampType{Unit: unit, TZ: tz}, nil
}

// parseList handles "list<inner>" with an optional " not null" suffix on the
// inner type controlling element nullability. Nesting recurses.
func parseList(s string) (ColumnType, error) {
	if !strings.HasSuffix(s, ">") {
		return nil, fmt.Errorf("%w: malformed list type '%s'", errs.ErrConfig, s)
	}
	inner := strings.TrimSpace(s[len("list<") : len(s)-1])

	elemNullable := true
	if strings.HasSuffix(inner, " not null") {
		elemNullable = false
		inner = strings.TrimSpace(strings.TrimSuffix(inner, " not null"))
	}

	elem, err := ParseType(inner)
	if err != nil {
		return nil, err
	}
	return ListType{Elem: elem, ElemNullable: elemNullable}, nil
}
