package schema

import (
	"fmt"

	"parqconvert/internal/config"
)

// Standard provenance column names appended to every output batch.
const (
	ColSourceFile      = "_source_file"
	ColSourceFileMtime = "_source_file_mtime"
	ColCreationTime    = "_creation_time"
	ColKnowledgeTime   = "_knowledge_time"
	ColKnowledgeDate   = "_knowledge_date"
	ColIndex           = "_index"
)

// MetadataSchema builds the schema of the metadata columns appended during
// conversion: additional columns first, in declaration order, then the
// standard provenance columns. The result is empty when the config disables
// standard metadata and declares no additional columns.
func MetadataSchema(md config.MetadataConfig) (RecordSchema, error) {
	var fields []Field

	for _, extra := range md.AdditionalMetadata {
		typ, err := ParseType(extra.Type)
		if err != nil {
			return RecordSchema{}, fmt.Errorf("additional metadata column '%s': %w", extra.Name, err)
		}
		fields = append(fields, Field{Name: extra.Name, Type: typ, Nullable: true})
	}

	if md.Standard() {
		fields = append(fields,
			Field{Name: ColSourceFile, Type: String, Nullable: true},
			Field{Name: ColSourceFileMtime, Type: TimestampUS("UTC"), Nullable: true},
			Field{Name: ColCreationTime, Type: TimestampUS("UTC"), Nullable: true},
			Field{Name: ColKnowledgeTime, Type: TimestampUS("UTC"), Nullable: true},
			Field{Name: ColKnowledgeDate, Type: Date32, Nullable: true},
			Field{Name: ColIndex, Type: Int64, Nullable: true},
		)
	}

	return RecordSchema{Fields: fields}, nil
}
