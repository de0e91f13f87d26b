package config

// Constants for configuration keys, backend names, and defaults.
const (
	ReaderTypeCSV     = "csv"
	ReaderTypeXLSX    = "xlsx"
	ReaderTypeParquet = "parquet"

	WriterTypeParquet = "parquet"

	AdjusterTypeStandard   = "standard"
	AdjusterTypeHeaderTime = "header_time"

	FileTypeDate  = "date"  // daily files keyed by YYYYMMDD
	FileTypeMonth = "month" // monthly files keyed by YYYYMM
	FileTypeDelta = "delta" // integer-sequenced files keyed by {delta}

	KnowledgeTimeFromFileName  = "file_name"
	KnowledgeTimeFromFileMtime = "file_mtime"

	ExtractVarTypeString = "string"
	ExtractVarTypeInt    = "int"
	ExtractVarTypeFloat  = "float"

	DefaultLogLevel   = "info"
	DefaultFileType   = FileTypeDate
	DefaultReader     = ReaderTypeCSV
	DefaultWriter     = WriterTypeParquet
	DefaultAdjuster   = AdjusterTypeStandard
	DefaultBatchRows  = 65536
	DefaultTZ         = "UTC"
	DefaultHeaderLine = 1
)

// Config is the top-level structure of the converter's YAML configuration.
type Config struct {
	// Logging specifies the verbosity level.
	Logging LoggingConfig `yaml:"logging"`
	// Input selects the reader backend and how raw files are keyed.
	Input InputConfig `yaml:"input"`
	// Output selects the writer and adjuster backends, the base directory,
	// the output path template, and metadata settings.
	Output OutputConfig `yaml:"output"`
	// Manifest locates the manifest documents holding declared schemas.
	Manifest ManifestConfig `yaml:"manifest"`
	// Tables maps table names to their raw-file templates and modes.
	Tables map[string]TableConfig `yaml:"tables"`
	// ExtractVars maps variable names to the capture group and scalar cast
	// used to pull values out of matched file paths.
	ExtractVars map[string]ExtractVarConfig `yaml:"extractVars,omitempty"`
}

// LoggingConfig holds settings related to logging verbosity.
type LoggingConfig struct {
	// Level is one of "none", "error", "warn", "info", "debug".
	Level string `yaml:"level"`
}

// InputConfig selects and parameterizes the reader backend.
type InputConfig struct {
	// Reader names the reader backend: "csv", "xlsx", or "parquet".
	Reader string `yaml:"reader"`
	// FileType is the discovery period: "date", "month", or "delta".
	FileType string `yaml:"fileType"`
	// Options carries reader-specific parsing settings.
	Options *ReaderOptions `yaml:"options,omitempty"`
}

// ReaderOptions carries format-specific parsing settings. Fields irrelevant
// to the selected reader are ignored.
type ReaderOptions struct {
	// Delimiter is the CSV field separator (default ","). Use "\t" for tab.
	Delimiter string `yaml:"delimiter,omitempty"`
	// CommentChar makes lines starting with this rune skipped (CSV only).
	CommentChar string `yaml:"commentChar,omitempty"`
	// SkipRows drops this many leading rows before the header row.
	SkipRows int `yaml:"skipRows,omitempty"`
	// SkipFooter drops this many trailing rows (vendor files with summary
	// footers).
	SkipFooter int `yaml:"skipFooter,omitempty"`
	// NullValues are cell strings treated as null (default "", "NULL").
	NullValues []string `yaml:"nullValues,omitempty"`
	// TrueValues / FalseValues parse bool columns (defaults true/false/1/0).
	TrueValues  []string `yaml:"trueValues,omitempty"`
	FalseValues []string `yaml:"falseValues,omitempty"`
	// BatchRows is the number of rows per streamed batch.
	BatchRows int `yaml:"batchRows,omitempty"`
	// SheetName selects the XLSX sheet by name; takes precedence over
	// SheetIndex.
	SheetName string `yaml:"sheetName,omitempty"`
	// SheetIndex selects the XLSX sheet by 0-based index.
	SheetIndex *int `yaml:"sheetIndex,omitempty"`
	// TimestampLayouts are additional Go time layouts tried when parsing
	// timestamp columns from text sources.
	TimestampLayouts []string `yaml:"timestampLayouts,omitempty"`
	// DateLayouts are additional Go time layouts tried for date columns.
	DateLayouts []string `yaml:"dateLayouts,omitempty"`
}

// EffectiveBatchRows returns the configured batch size or the default.
func (o *ReaderOptions) EffectiveBatchRows() int {
	if o == nil || o.BatchRows <= 0 {
		return DefaultBatchRows
	}
	return o.BatchRows
}

// IsNull reports whether a raw cell string represents null.
func (o *ReaderOptions) IsNull(cell string) bool {
	if o == nil || len(o.NullValues) == 0 {
		return cell == "" || cell == "NULL" || cell == "null"
	}
	for _, nv := range o.NullValues {
		if cell == nv {
			return true
		}
	}
	return false
}

// ParseBool parses a raw cell string into a bool using the configured
// true/false value lists, falling back to common spellings.
func (o *ReaderOptions) ParseBool(cell string) (bool, bool) {
	if o != nil {
		for _, tv := range o.TrueValues {
			if cell == tv {
				return true, true
			}
		}
		for _, fv := range o.FalseValues {
			if cell == fv {
				return false, true
			}
		}
		if len(o.TrueValues) > 0 || len(o.FalseValues) > 0 {
			return false, false
		}
	}
	switch cell {
	case "true", "True", "TRUE", "t", "T", "1", "yes", "Yes", "YES", "y", "Y":
		return true, true
	case "false", "False", "FALSE", "f", "F", "0", "no", "No", "NO", "n", "N":
		return false, true
	}
	return false, false
}

// OutputConfig details the output destination and metadata handling.
type OutputConfig struct {
	// Writer names the writer backend; only "parquet" is currently shipped.
	Writer string `yaml:"writer"`
	// Adjuster names the metadata adjuster: "standard" or "header_time".
	Adjuster string `yaml:"adjuster"`
	// Basedir is the shared base directory. Manifest paths always resolve
	// against it; output paths resolve against it unless a table overrides.
	Basedir string `yaml:"basedir"`
	// FileTemplate is the output path template, filled from date parts,
	// extracted variables, {table}, and (per-file mode) {file_name}.
	FileTemplate string `yaml:"fileTemplate"`
	// Metadata configures the provenance columns appended to every batch.
	Metadata MetadataConfig `yaml:"metadata"`
}

// MetadataConfig controls which metadata columns are appended during
// conversion.
type MetadataConfig struct {
	// StandardMetadata toggles the standard provenance columns
	// (_source_file, _source_file_mtime, _creation_time, _knowledge_time,
	// _knowledge_date, _index). Defaults to true.
	StandardMetadata *bool `yaml:"standardMetadata,omitempty"`
	// KnowledgeTime configures how the knowledge time is derived. When nil,
	// it is derived from filename date components in UTC.
	KnowledgeTime *KnowledgeTimeConfig `yaml:"knowledgeTime,omitempty"`
	// AdditionalMetadata lists custom columns appended before the standard
	// ones, in declaration order.
	AdditionalMetadata []AdditionalMetadataField `yaml:"additionalMetadata,omitempty"`
}

// Standard returns whether standard provenance columns are enabled.
func (m MetadataConfig) Standard() bool {
	return m.StandardMetadata == nil || *m.StandardMetadata
}

// KnowledgeTimeConfig specifies where knowledge time comes from and the
// timezone applied to naive values.
type KnowledgeTimeConfig struct {
	// From is "file_name" (date components extracted from the path) or
	// "file_mtime" (filesystem modification time).
	From string `yaml:"from"`
	// TZ is the timezone assumed for naive values. Defaults to "UTC".
	TZ string `yaml:"tz,omitempty"`
	// HeaderLine is the 1-based line read by the header_time adjuster.
	HeaderLine int `yaml:"headerLine,omitempty"`
	// HeaderPattern is the regex whose first capture group holds the
	// timestamp on HeaderLine. Required by the header_time adjuster.
	HeaderPattern string `yaml:"headerPattern,omitempty"`
}

// AdditionalMetadataField defines one custom metadata column.
type AdditionalMetadataField struct {
	// Name is the output column name.
	Name string `yaml:"name"`
	// Source is where the value comes from:
	//   "extract_vars.<var>"  a variable extracted from the file path
	//   "metadata.<field>"    file metadata (file_name, file_size, ...)
	//   "column.<name>"       an existing data column
	Source string `yaml:"source"`
	// Type is the declared type the value is cast to (type grammar string).
	Type string `yaml:"type"`
	// Expr is an optional expression applied to the value before the cast;
	// the input is bound to the variable "value" (e.g. "value * 100").
	Expr string `yaml:"expr,omitempty"`
}

// ManifestConfig locates manifest documents.
type ManifestConfig struct {
	// FileTemplate is the manifest path template (typically "{table}"-keyed),
	// resolved against the shared basedir.
	FileTemplate string `yaml:"fileTemplate"`
	// AutoDetectSampleSize is reserved for manifest generation by sampling,
	// which is not implemented in this core.
	AutoDetectSampleSize int `yaml:"autoDetectSampleSize,omitempty"`
}

// TableConfig configures a single logical table.
type TableConfig struct {
	// RawFiles lists path templates for discovering this table's raw files.
	// Templates may contain date placeholders, named placeholders, regex
	// capture groups, glob wildcards, and one "|" archive-member separator.
	RawFiles []string `yaml:"rawFiles"`
	// Aggregate selects many-files-to-one-output mode. When false, each
	// discovered file produces its own output file.
	Aggregate bool `yaml:"aggregate,omitempty"`
	// OutputFileTemplate optionally overrides the global output template.
	OutputFileTemplate string `yaml:"outputFileTemplate,omitempty"`
}

// ExtractVarConfig declares how a named variable is pulled from a matched
// path.
type ExtractVarConfig struct {
	// Type is the scalar cast applied to the captured text: "string"
	// (default), "int", or "float".
	Type string `yaml:"type,omitempty"`
	// RegexGroup is the 1-based capture group holding the value.
	RegexGroup int `yaml:"regexGroup"`
}
