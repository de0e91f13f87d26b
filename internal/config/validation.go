package config

import (
	"fmt"
	"strings"

	"parqconvert/internal/errs"
)

// isValidEnumValue reports whether value is one of the allowed values.
func isValidEnumValue(value string, allowedValues []string) bool {
	for _, allowed := range allowedValues {
		if value == allowed {
			return true
		}
	}
	return false
}

// ValidateConfig performs structural validation of the loaded configuration.
// All problems are collected and reported together as a single ErrConfig
// error so the operator can fix the file in one pass.
func ValidateConfig(cfg *Config) error {
	var problems []string

	if !isValidEnumValue(cfg.Input.Reader, []string{ReaderTypeCSV, ReaderTypeXLSX, ReaderTypeParquet}) {
		problems = append(problems, fmt.Sprintf("input.reader: unsupported reader '%s'", cfg.Input.Reader))
	}
	if !isValidEnumValue(cfg.Input.FileType, []string{FileTypeDate, FileTypeMonth, FileTypeDelta}) {
		problems = append(problems, fmt.Sprintf("input.fileType: must be one of date, month, delta (got '%s')", cfg.Input.FileType))
	}
	if cfg.Input.Options != nil {
		problems = append(problems, validateReaderOptions("input.options", cfg.Input.Reader, cfg.Input.Options)...)
	}

	if !isValidEnumValue(cfg.Output.Writer, []string{WriterTypeParquet}) {
		problems = append(problems, fmt.Sprintf("output.writer: unsupported writer '%s'", cfg.Output.Writer))
	}
	if !isValidEnumValue(cfg.Output.Adjuster, []string{AdjusterTypeStandard, AdjusterTypeHeaderTime}) {
		problems = append(problems, fmt.Sprintf("output.adjuster: unsupported adjuster '%s'", cfg.Output.Adjuster))
	}
	if cfg.Output.Basedir == "" {
		problems = append(problems, "output.basedir: required")
	}
	if cfg.Output.FileTemplate == "" {
		problems = append(problems, "output.fileTemplate: required")
	}
	problems = append(problems, validateMetadataConfig("output.metadata", cfg.Output.Adjuster, &cfg.Output.Metadata)...)

	if cfg.Manifest.FileTemplate == "" {
		problems = append(problems, "manifest.fileTemplate: required")
	}

	if len(cfg.Tables) == 0 {
		problems = append(problems, "tables: at least one table must be defined")
	}
	for name, table := range cfg.Tables {
		if len(table.RawFiles) == 0 {
			problems = append(problems, fmt.Sprintf("tables.%s.rawFiles: at least one raw file template is required", name))
		}
		for i, tmpl := range table.RawFiles {
			if strings.Count(tmpl, "|") > 1 {
				problems = append(problems, fmt.Sprintf("tables.%s.rawFiles[%d]: at most one archive-member separator '|' is allowed", name, i))
			}
		}
	}

	for name, ev := range cfg.ExtractVars {
		if ev.RegexGroup < 1 {
			problems = append(problems, fmt.Sprintf("extractVars.%s.regexGroup: must be a 1-based capture group index", name))
		}
		if !isValidEnumValue(ev.Type, []string{ExtractVarTypeString, ExtractVarTypeInt, ExtractVarTypeFloat}) {
			problems = append(problems, fmt.Sprintf("extractVars.%s.type: must be one of string, int, float (got '%s')", name, ev.Type))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid configuration:\n  - %s", errs.ErrConfig, strings.Join(problems, "\n  - "))
	}
	return nil
}

// validateReaderOptions checks reader option fields for the selected reader.
func validateReaderOptions(prefix, reader string, opts *ReaderOptions) []string {
	var problems []string

	if opts.Delimiter != "" {
		if d := unquoteDelimiter(opts.Delimiter); len([]rune(d)) != 1 {
			problems = append(problems, fmt.Sprintf("%s.delimiter: must be a single character (got %q)", prefix, opts.Delimiter))
		}
	}
	if opts.CommentChar != "" && len([]rune(opts.CommentChar)) != 1 {
		problems = append(problems, fmt.Sprintf("%s.commentChar: must be a single character (got %q)", prefix, opts.CommentChar))
	}
	if opts.SkipRows < 0 {
		problems = append(problems, fmt.Sprintf("%s.skipRows: must be >= 0", prefix))
	}
	if opts.SkipFooter < 0 {
		problems = append(problems, fmt.Sprintf("%s.skipFooter: must be >= 0", prefix))
	}
	if reader != ReaderTypeXLSX && (opts.SheetName != "" || opts.SheetIndex != nil) {
		problems = append(problems, fmt.Sprintf("%s: sheetName/sheetIndex only apply to the xlsx reader", prefix))
	}
	if opts.SheetIndex != nil && *opts.SheetIndex < 0 {
		problems = append(problems, fmt.Sprintf("%s.sheetIndex: must be >= 0", prefix))
	}
	return problems
}

// validateMetadataConfig checks the metadata section, including the fields
// the header_time adjuster requires.
func validateMetadataConfig(prefix, adjuster string, md *MetadataConfig) []string {
	var problems []string

	if kt := md.KnowledgeTime; kt != nil {
		if !isValidEnumValue(kt.From, []string{KnowledgeTimeFromFileName, KnowledgeTimeFromFileMtime}) {
			problems = append(problems, fmt.Sprintf("%s.knowledgeTime.from: must be one of file_name, file_mtime (got '%s')", prefix, kt.From))
		}
	}
	if adjuster == AdjusterTypeHeaderTime {
		if md.KnowledgeTime == nil || md.KnowledgeTime.HeaderPattern == "" {
			problems = append(problems, fmt.Sprintf("%s.knowledgeTime.headerPattern: required by the header_time adjuster", prefix))
		}
	}

	seen := make(map[string]bool, len(md.AdditionalMetadata))
	for i, field := range md.AdditionalMetadata {
		p := fmt.Sprintf("%s.additionalMetadata[%d]", prefix, i)
		if field.Name == "" {
			problems = append(problems, p+".name: required")
		} else if seen[field.Name] {
			problems = append(problems, fmt.Sprintf("%s.name: duplicate column '%s'", p, field.Name))
		}
		seen[field.Name] = true
		if field.Type == "" {
			problems = append(problems, p+".type: required")
		}
		switch {
		case strings.HasPrefix(field.Source, "extract_vars."),
			strings.HasPrefix(field.Source, "metadata."),
			strings.HasPrefix(field.Source, "column."):
		default:
			problems = append(problems, fmt.Sprintf("%s.source: must start with extract_vars., metadata., or column. (got '%s')", p, field.Source))
		}
	}
	return problems
}

// unquoteDelimiter turns the YAML-friendly escape "\t" into a real tab.
func unquoteDelimiter(s string) string {
	if s == `\t` {
		return "\t"
	}
	return s
}

// Delimiter returns the effective delimiter rune, defaulting to ','.
func (o *ReaderOptions) DelimiterRune() rune {
	if o == nil || o.Delimiter == "" {
		return ','
	}
	runes := []rune(unquoteDelimiter(o.Delimiter))
	return runes[0]
}

// CommentRune returns the comment rune, or 0 when comments are disabled.
func (o *ReaderOptions) CommentRune() rune {
	if o == nil || o.CommentChar == "" {
		return 0
	}
	return []rune(o.CommentChar)[0]
}
