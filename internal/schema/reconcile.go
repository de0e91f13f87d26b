package schema

import (
	"fmt"
	"sort"

	"parqconvert/internal/errs"
)

// Reconciled is the result of reconciling a declared schema against one
// sample batch. It is computed once per output unit and reused for every
// batch of that unit.
type Reconciled struct {
	// Read is the schema requested from the reader: manifest fields minus
	// the SourceOptional columns.
	Read RecordSchema
	// Output is the data portion of the output: manifest fields minus
	// OutputIgnored columns (SourceOptional columns included, null-filled).
	Output RecordSchema
	// Write is the full writer schema: Output fields followed by the
	// metadata fields, appended positionally, never interleaved.
	Write RecordSchema
	// NullFill names the SourceOptional columns to backfill as typed
	// nulls on every batch.
	NullFill map[string]bool
}

// Reconcile derives the read/output/write schemas and the null-fill set from
// a manifest schema, its column operations, and the column names observed in
// a sample batch of the source file.
//
// Every read-schema column must exist in the sample, except that an absent
// OutputIgnored column is not an error. Missing SourceRequired columns are
// reported together in a single ErrSchemaValidation naming all of them.
func Reconcile(manifest RecordSchema, operations map[string]ColumnOperation, sampleColumns []string, metadata RecordSchema, filePath string) (*Reconciled, error) {
	sample := make(map[string]bool, len(sampleColumns))
	for _, name := range sampleColumns {
		sample[name] = true
	}

	opFor := func(name string) ColumnOperation {
		if op, ok := operations[name]; ok {
			return op
		}
		return SourceRequired
	}

	var readFields, outputFields []Field
	var requiredMissing []string
	nullFill := make(map[string]bool)

	for _, field := range manifest.Fields {
		switch opFor(field.Name) {
		case SourceOptional:
			// Never requested from the reader, always synthesized as typed
			// nulls, whether or not the source carries the column.
			nullFill[field.Name] = true
			outputFields = append(outputFields, field)
		case OutputIgnored:
			// Stays in the read schema as a type hint when present; its
			// absence from the sample is never an error.
			readFields = append(readFields, field)
		default: // SourceRequired
			if !sample[field.Name] {
				requiredMissing = append(requiredMissing, field.Name)
				continue
			}
			readFields = append(readFields, field)
			outputFields = append(outputFields, field)
		}
	}

	if len(requiredMissing) > 0 {
		sort.Strings(requiredMissing)
		return nil, fmt.Errorf("%w: file '%s' is missing required columns %v (marked source_required in the manifest)",
			errs.ErrSchemaValidation, filePath, requiredMissing)
	}

	output := RecordSchema{Fields: outputFields}
	write, err := appendSchemas(output, metadata)
	if err != nil {
		return nil, err
	}

	return &Reconciled{
		Read:     RecordSchema{Fields: readFields},
		Output:   output,
		Write:    write,
		NullFill: nullFill,
	}, nil
}

// appendSchemas concatenates two schemas, erroring on a name collision so a
// data column can never shadow a metadata column.
func appendSchemas(a, b RecordSchema) (RecordSchema, error) {
	seen := make(map[string]bool, len(a.Fields)+len(b.Fields))
	fields := make([]Field, 0, len(a.Fields)+len(b.Fields))
	for _, f := range a.Fields {
		if seen[f.Name] {
			return RecordSchema{}, fmt.Errorf("%w: duplicate column '%s' in write schema", errs.ErrConfig, f.Name)
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}
	for _, f := range b.Fields {
		if seen[f.Name] {
			return RecordSchema{}, fmt.Errorf("%w: metadata column '%s' collides with a data column", errs.ErrConfig, f.Name)
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}
	return RecordSchema{Fields: fields}, nil
}
