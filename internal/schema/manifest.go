package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"parqconvert/internal/errs"
)

// manifestDocument mirrors the on-disk manifest layout: a "schema" map keyed
// by 1-based string position. Storage order in the document is irrelevant;
// parsing sorts by the declared position.
type manifestDocument struct {
	Schema map[string]manifestColumn `json:"schema"`
}

type manifestColumn struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	Nullable        *bool  `json:"nullable,omitempty"`
	ColumnOperation string `json:"column_operation,omitempty"`
}

// LoadManifest reads a manifest JSON document and returns the declared
// schema together with the per-column operation policy. Columns default to
// nullable and source_required. A malformed document, unparseable type
// string, or unknown operation is an ErrConfig error.
func LoadManifest(path string) (RecordSchema, map[string]ColumnOperation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RecordSchema{}, nil, fmt.Errorf("%w: reading manifest '%s': %v", errs.ErrConfig, path, err)
	}

	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return RecordSchema{}, nil, fmt.Errorf("%w: parsing manifest '%s': %v", errs.ErrConfig, path, err)
	}
	if len(doc.Schema) == 0 {
		return RecordSchema{}, nil, fmt.Errorf("%w: manifest '%s' declares no columns", errs.ErrConfig, path)
	}

	positions := make([]int, 0, len(doc.Schema))
	byPosition := make(map[int]manifestColumn, len(doc.Schema))
	for key, col := range doc.Schema {
		pos, err := strconv.Atoi(key)
		if err != nil {
			return RecordSchema{}, nil, fmt.Errorf("%w: manifest '%s' has non-numeric position key '%s'", errs.ErrConfig, path, key)
		}
		positions = append(positions, pos)
		byPosition[pos] = col
	}
	sort.Ints(positions)

	fields := make([]Field, 0, len(positions))
	operations := make(map[string]ColumnOperation, len(positions))
	seen := make(map[string]bool, len(positions))
	for _, pos := range positions {
		col := byPosition[pos]
		if col.Name == "" {
			return RecordSchema{}, nil, fmt.Errorf("%w: manifest '%s' column at position %d has no name", errs.ErrConfig, path, pos)
		}
		if seen[col.Name] {
			return RecordSchema{}, nil, fmt.Errorf("%w: manifest '%s' declares column '%s' more than once", errs.ErrConfig, path, col.Name)
		}
		seen[col.Name] = true

		typ, err := ParseType(col.Type)
		if err != nil {
			return RecordSchema{}, nil, fmt.Errorf("manifest '%s' column '%s': %w", path, col.Name, err)
		}
		op, err := ParseColumnOperation(col.ColumnOperation)
		if err != nil {
			return RecordSchema{}, nil, fmt.Errorf("%w: manifest '%s' column '%s': %v", errs.ErrConfig, path, col.Name, err)
		}

		nullable := true
		if col.Nullable != nil {
			nullable = *col.Nullable
		}
		fields = append(fields, Field{Name: col.Name, Type: typ, Nullable: nullable})
		operations[col.Name] = op
	}

	return RecordSchema{Fields: fields}, operations, nil
}
